package session

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zabbix_input/internal/request"
)

func TestNewID(t *testing.T) {
	id := NewID()
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), id)
	assert.NotEqual(t, id, NewID())
}

func TestStoreLifecycle(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(time.Minute, zap.NewNop())
	s.now = func() time.Time { return now }

	sess := s.Create("1", "Admin")
	got, ok := s.Get(sess.ID)
	require.True(t, ok)
	assert.Equal(t, "Admin", got.Username)

	now = now.Add(50 * time.Second)
	_, ok = s.Get(sess.ID)
	require.True(t, ok, "access extends the session")

	now = now.Add(50 * time.Second)
	_, ok = s.Get(sess.ID)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = s.Get(sess.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStorePurge(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(time.Minute, zap.NewNop())
	s.now = func() time.Time { return now }

	old := s.Create("1", "a")
	now = now.Add(45 * time.Second)
	fresh := s.Create("2", "b")
	now = now.Add(30 * time.Second)

	assert.Equal(t, 1, s.Purge())
	_, ok := s.Get(old.ID)
	assert.False(t, ok)
	_, ok = s.Get(fresh.ID)
	assert.True(t, ok)

	assert.True(t, s.Delete(fresh.ID))
	assert.False(t, s.Delete(fresh.ID))
}

func TestSessionToken(t *testing.T) {
	s := NewStore(time.Minute, zap.NewNop())
	sess := s.Create("1", "Admin")

	req := request.FromMap(map[string]string{"sid": sess.ID[16:32]})
	assert.True(t, sess.Token().VerifyToken(req))

	req = request.FromMap(map[string]string{"sid": sess.ID[0:16]})
	assert.False(t, sess.Token().VerifyToken(req))
}
