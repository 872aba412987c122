package outcome

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/models"
)

var day1 = time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)

func TestTracker_DailyReportWinRate(t *testing.T) {
	tr := NewTracker()

	_, ok := tr.MaybeDailyReport(day1)
	assert.False(t, ok)

	for _, r := range []models.Outcome{models.OutcomeWin, models.OutcomeWin, models.OutcomeWin, models.OutcomeLoss} {
		_, err := tr.Record(r)
		require.NoError(t, err)
	}
	assert.Equal(t, Counters{Total: 4, Wins: 3, Losses: 1}, tr.Counters())

	rep, ok := tr.MaybeDailyReport(day1.Add(2 * time.Minute))
	require.True(t, ok)
	assert.Equal(t, 75.0, rep.WinRate)
	assert.Equal(t, "2025-03-10", rep.Day)
	assert.Equal(t, 4, rep.Total)
	assert.Equal(t, Counters{}, tr.Counters())
	assert.Equal(t, "2025-03-11", tr.LastReportDay())
	assert.Contains(t, rep.Text(), "75.0%")
}

func TestTracker_NoReportOnFirstDay(t *testing.T) {
	tr := NewTracker()
	_, err := tr.Record(models.OutcomeWin)
	require.NoError(t, err)

	_, ok := tr.MaybeDailyReport(day1)
	assert.False(t, ok)
	assert.Equal(t, "2025-03-10", tr.LastReportDay())

	// тот же день
	_, ok = tr.MaybeDailyReport(day1.Add(-time.Hour))
	assert.False(t, ok)
	assert.Equal(t, 1, tr.Counters().Total)
}

func TestTracker_EmptyDayReportsZero(t *testing.T) {
	tr := NewTracker()
	tr.MaybeDailyReport(day1)

	rep, ok := tr.MaybeDailyReport(day1.Add(24 * time.Hour))
	require.True(t, ok)
	assert.Zero(t, rep.Total)
	assert.Zero(t, rep.WinRate)
}

func TestTracker_PendingFIFO(t *testing.T) {
	tr := NewTracker()
	tr.Push(models.Signal{Instrument: "BTC-USDT", Side: models.SideLong})
	tr.Push(models.Signal{Instrument: "ETH-USDT", Side: models.SideShort})
	assert.Equal(t, 2, tr.Pending())

	res, err := tr.Record(models.OutcomeLoss)
	require.NoError(t, err)
	require.NotNil(t, res.Signal)
	assert.Equal(t, "BTC-USDT", res.Signal.Instrument)

	res, err = tr.Record(models.OutcomeWin)
	require.NoError(t, err)
	assert.Equal(t, "ETH-USDT", res.Signal.Instrument)

	res, err = tr.Record(models.OutcomeWin)
	require.NoError(t, err)
	assert.Nil(t, res.Signal)
	assert.Equal(t, 3, tr.Counters().Total)
}

func TestTracker_PendingBounded(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < MaxPending+5; i++ {
		tr.Push(models.Signal{Price: float64(i)})
	}
	assert.Equal(t, MaxPending, tr.Pending())

	res, err := tr.Record(models.OutcomeWin)
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Signal.Price)
}

func TestTracker_RecordRejectsUnknown(t *testing.T) {
	tr := NewTracker()
	_, err := tr.Record(models.Outcome("draw"))
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, Counters{}, tr.Counters())
}
