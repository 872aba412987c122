package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/engine"
	"signal_bot/internal/models"
)

type stubTicker struct {
	mu    sync.Mutex
	calls int
	res   engine.TickResult
	err   error
}

func (s *stubTicker) Tick(context.Context, time.Time) (engine.TickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.res, s.err
}

func (s *stubTicker) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubRetrainer struct {
	ok  bool
	err error
}

func (s stubRetrainer) MaybeRetrain(context.Context, time.Time) (bool, error) { return s.ok, s.err }

type recHealth struct {
	mu       sync.Mutex
	ticks    int
	retrains int
	results  []string
}

func (h *recHealth) TouchTick(time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ticks++
}

func (h *recHealth) TouchRetrain(time.Time) { h.retrains++ }

func (h *recHealth) ObserveRetrain(result string) { h.results = append(h.results, result) }

var cfg = Config{Tick: time.Minute, Backoff: 10 * time.Second, CheckEvery: 30 * time.Second}

func TestTickOnce_Delays(t *testing.T) {
	sig := models.Signal{Instrument: "BTC-USDT", Side: models.SideLong}
	tk := &stubTicker{res: engine.TickResult{Published: &sig}}
	h := &recHealth{}
	r := New(cfg, tk, stubRetrainer{}, h)

	assert.Equal(t, time.Minute, r.tickOnce(context.Background()))

	tk.err = fmt.Errorf("fetch: %w", models.ErrDataUnavailable)
	assert.Equal(t, 10*time.Second, r.tickOnce(context.Background()))
	assert.Equal(t, 2, h.ticks)
}

func TestRetrainOnce_Results(t *testing.T) {
	h := &recHealth{}
	cases := []struct {
		sched Retrainer
		want  string
	}{
		{stubRetrainer{ok: true}, "ok"},
		{stubRetrainer{err: fmt.Errorf("x: %w", models.ErrInsufficientTrainingData)}, "skipped"},
		{stubRetrainer{err: errors.New("boom")}, "error"},
	}
	for _, c := range cases {
		r := New(cfg, &stubTicker{}, c.sched, h)
		assert.Equal(t, 30*time.Second, r.retrainOnce(context.Background()))
	}
	assert.Equal(t, []string{"ok", "skipped", "error"}, h.results)
	assert.Equal(t, 1, h.retrains)

	// не время — ничего не пишем
	r := New(cfg, &stubTicker{}, stubRetrainer{}, h)
	r.retrainOnce(context.Background())
	assert.Len(t, h.results, 3)
}

func TestRunner_StartStop(t *testing.T) {
	tk := &stubTicker{}
	r := New(Config{Tick: 5 * time.Millisecond, Backoff: 5 * time.Millisecond, CheckEvery: time.Hour}, tk, stubRetrainer{}, nil)

	r.Start(context.Background())
	require.Eventually(t, func() bool { return tk.Calls() >= 3 }, time.Second, 5*time.Millisecond)
	r.Stop()

	n := tk.Calls()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, tk.Calls())
}
