package profiler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDisabled(t *testing.T) {
	p := New(Config{}, zap.NewNop())
	assert.Nil(t, p.Handler())
	require.NoError(t, p.Start())
	require.NoError(t, p.Stop())
}

func TestHandler(t *testing.T) {
	p := New(Config{Enable: true}, zap.NewNop())
	h := p.Handler()
	require.NotNil(t, h)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutine")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProfileFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Enable:     true,
		CPUProfile: filepath.Join(dir, "cpu.prof"),
		MemProfile: filepath.Join(dir, "mem.prof"),
	}
	p := New(cfg, zap.NewNop())

	require.NoError(t, p.Start())
	p.LogMemStats()
	require.NoError(t, p.Stop())

	for _, path := range []string{cfg.CPUProfile, cfg.MemProfile} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size(), path)
	}
}
