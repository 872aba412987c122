package engine

import (
	"fmt"
	"strconv"

	"signal_bot/internal/models"
	"signal_bot/internal/outcome"
)

// FormatSignal: текст сигнала для канала.
func FormatSignal(sig models.Signal, stake float64, timeframe string) string {
	text := fmt.Sprintf(
		"Signal: %s\n"+
			"Asset: %s\n"+
			"Price: %s\n"+
			"Stake: %s\n"+
			"Timeframe: %s\n"+
			"No martingale.",
		sig.Side.Verb(),
		sig.Instrument,
		strconv.FormatFloat(sig.Price, 'f', -1, 64),
		strconv.FormatFloat(stake, 'f', -1, 64),
		timeframe,
	)
	if sig.Probability >= 0 {
		text += fmt.Sprintf("\nAI: %.0f%%", sig.Probability*100)
	}
	return text
}

// FormatStats: ответ на /stats.
func FormatStats(st State, c outcome.Counters) string {
	return fmt.Sprintf(
		"📈 Статистика\n\n"+
			"Бот: %s\n"+
			"AI: %s (normal %.2f / risky %.2f)\n"+
			"Сделок: %d, ✅ %d, ❌ %d\n"+
			"Win rate: %.1f%%",
		onOff(st.Active),
		onOff(st.AIEnabled), st.ConfidenceNormal, st.ConfidenceRisky,
		c.Total, c.Wins, c.Losses,
		c.WinRate(),
	)
}

func formatResolved(r outcome.Resolved, c outcome.Counters) string {
	mark := "✅ Win"
	if r.Outcome == models.OutcomeLoss {
		mark = "❌ Loss"
	}
	text := mark
	if r.Signal != nil {
		text += fmt.Sprintf(" · %s %s @ %s", r.Signal.Side.Verb(), r.Signal.Instrument,
			strconv.FormatFloat(r.Signal.Price, 'f', -1, 64))
	}
	return text + fmt.Sprintf("\nЗа сегодня: %d/%d (%.1f%%)", c.Wins, c.Total, c.WinRate())
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
