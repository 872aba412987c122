// Package outcome считает результаты сделок по отметкам оператора и раз в сутки отдаёт отчёт.
package outcome

import (
	"fmt"
	"sync"
	"time"

	"signal_bot/internal/models"
)

const dayLayout = "2006-01-02"

// MaxPending: сколько опубликованных сигналов ждут отметки win/loss.
const MaxPending = 50

type Counters struct {
	Total  int
	Wins   int
	Losses int
}

// WinRate: процент побед, 0 при пустых счётчиках.
func (c Counters) WinRate() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Wins) / float64(c.Total) * 100
}

type Report struct {
	Day     string
	Total   int
	Wins    int
	Losses  int
	WinRate float64
}

func (r Report) Text() string {
	return fmt.Sprintf(
		"📊 Итоги за %s\n\n"+
			"Сделок: %d\n"+
			"✅ Win: %d\n"+
			"❌ Loss: %d\n"+
			"Win rate: %.1f%%",
		r.Day, r.Total, r.Wins, r.Losses, r.WinRate,
	)
}

// Resolved: отметка оператора и сигнал, к которому она отнесена (если был в очереди).
type Resolved struct {
	Outcome models.Outcome
	Signal  *models.Signal
}

type Tracker struct {
	mu       sync.Mutex
	counters Counters
	lastDay  string
	pending  []models.Signal
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Push ставит опубликованный сигнал в очередь ожидания результата.
func (t *Tracker) Push(sig models.Signal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending = append(t.pending, sig)
	if len(t.pending) > MaxPending {
		t.pending = t.pending[len(t.pending)-MaxPending:]
	}
}

func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Record увеличивает счётчики и закрывает самый старый ожидающий сигнал.
func (t *Tracker) Record(res models.Outcome) (Resolved, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch res {
	case models.OutcomeWin:
		t.counters.Wins++
	case models.OutcomeLoss:
		t.counters.Losses++
	default:
		return Resolved{}, fmt.Errorf("%w: unknown outcome %q", models.ErrValidation, res)
	}
	t.counters.Total++

	out := Resolved{Outcome: res}
	if len(t.pending) > 0 {
		sig := t.pending[0]
		t.pending = t.pending[1:]
		out.Signal = &sig
	}
	return out, nil
}

func (t *Tracker) Counters() Counters {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counters
}

// LastReportDay: последний учтённый день в формате 2006-01-02, пусто до первого вызова.
func (t *Tracker) LastReportDay() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastDay
}

// MaybeDailyReport: отчёт за прошедший день при смене суток; счётчики обнуляются.
// Первый увиденный день отчёта не даёт. День запоминается всегда.
func (t *Tracker) MaybeDailyReport(today time.Time) (Report, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	day := today.Format(dayLayout)
	prev := t.lastDay
	t.lastDay = day

	if prev == "" || prev == day {
		return Report{}, false
	}

	c := t.counters
	t.counters = Counters{}
	return Report{
		Day:     prev,
		Total:   c.Total,
		Wins:    c.Wins,
		Losses:  c.Losses,
		WinRate: c.WinRate(),
	}, true
}
