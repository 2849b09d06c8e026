package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zabbix_input/internal/collector"
	"zabbix_input/internal/config"
	zbx "zabbix_input/pkg/zabbix"
)

type fakeCollector struct {
	calls atomic.Int32
	err   error
}

func (f *fakeCollector) Collect(ctx context.Context) (*collector.MetricSet, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &collector.MetricSet{Timestamp: time.Unix(1700000000, 0)}, nil
}

type fakeReporter struct {
	mu       sync.Mutex
	inits    int
	sends    int
	sendErrs []error
	sent     chan struct{}
}

func (f *fakeReporter) Initialize(ctx context.Context, hostName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	return nil
}

func (f *fakeReporter) SendMetrics(ctx context.Context, metrics *collector.MetricSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		return err
	}
	if f.sent != nil {
		select {
		case f.sent <- struct{}{}:
		default:
		}
	}
	return nil
}

func (f *fakeReporter) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inits, f.sends
}

type fakePurger struct {
	calls atomic.Int32
}

func (f *fakePurger) Purge() int {
	f.calls.Add(1)
	return 1
}

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.MonitorEnable = true
	cfg.Interval = 10 * time.Millisecond
	cfg.RetryBackoffBase = time.Millisecond
	cfg.MaxRetries = 3
	return cfg
}

func run(t *testing.T, s *Scheduler) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func TestRunSendsMetrics(t *testing.T) {
	coll := &fakeCollector{}
	rep := &fakeReporter{sent: make(chan struct{}, 1)}
	s := New(testConfig(), coll, rep, &fakePurger{}, zap.NewNop())

	cancel, done := run(t, s)
	for i := 0; i < 3; i++ {
		select {
		case <-rep.sent:
		case <-time.After(2 * time.Second):
			t.Fatal("metrics were not sent")
		}
	}
	cancel()
	require.NoError(t, <-done)

	inits, sends := rep.counts()
	assert.Equal(t, 1, inits, "client is initialized once")
	assert.GreaterOrEqual(t, sends, 3)
}

func TestRunPurgesSessions(t *testing.T) {
	cfg := testConfig()
	cfg.MonitorEnable = false
	coll := &fakeCollector{}
	purger := &fakePurger{}

	s := New(cfg, coll, nil, purger, zap.NewNop())
	s.purgeInterval = 5 * time.Millisecond

	cancel, done := run(t, s)
	assert.Eventually(t, func() bool { return purger.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Zero(t, coll.calls.Load(), "monitoring disabled")
}

func TestRetryReinitializesOnAuthError(t *testing.T) {
	rep := &fakeReporter{sendErrs: []error{
		fmt.Errorf("call failed: %w", zbx.NewError(zbx.CodeInvalidParams, "Session terminated, re-login, please.")),
	}}
	s := New(testConfig(), &fakeCollector{}, rep, &fakePurger{}, zap.NewNop())

	s.collectAndSend(context.Background())

	inits, sends := rep.counts()
	assert.Equal(t, 2, inits)
	assert.Equal(t, 2, sends)
	assert.True(t, s.initialized)
}

func TestRetryGivesUp(t *testing.T) {
	failure := errors.New("connection refused")
	rep := &fakeReporter{sendErrs: []error{failure, failure, failure, failure}}
	s := New(testConfig(), &fakeCollector{}, rep, &fakePurger{}, zap.NewNop())

	err := s.sendMetricsWithRetry(context.Background(), &collector.MetricSet{})
	require.ErrorIs(t, err, failure)
	assert.ErrorContains(t, err, "after 3 attempts")

	inits, sends := rep.counts()
	assert.Zero(t, inits, "not an auth error")
	assert.Equal(t, 3, sends)
}

func TestCollectFailureSkipsSend(t *testing.T) {
	rep := &fakeReporter{}
	s := New(testConfig(), &fakeCollector{err: errors.New("no /proc")}, rep, &fakePurger{}, zap.NewNop())

	s.collectAndSend(context.Background())

	inits, sends := rep.counts()
	assert.Equal(t, 1, inits)
	assert.Zero(t, sends)
}

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"terminated", zbx.NewError(zbx.CodeInvalidParams, "Session terminated, re-login, please."), true},
		{"wrapped", fmt.Errorf("x: %w", zbx.NewError(zbx.CodeInvalidParams, "Not authorised.")), true},
		{"other rpc", zbx.NewError(zbx.CodeInvalidParams, `Invalid parameter "/name": cannot be empty.`), false},
		{"plain", errors.New("Not authorised."), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isAuthError(tt.err))
		})
	}
}
