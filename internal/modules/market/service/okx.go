package service

import (
	"fmt"
	"strconv"
	"time"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
)

// okxBar: таймфрейм в формате параметра bar OKX.
func okxBar(tf string) (string, error) {
	switch s := helper.NormTF(tf); s {
	case "1m", "3m", "5m", "15m", "30m":
		return s, nil
	case "1h":
		return "1H", nil
	case "4h":
		return "4H", nil
	}
	return "", fmt.Errorf("unsupported timeframe for OKX bar: %q", tf)
}

// parseRow: строка OKX [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm].
// confirmed=false для ещё не закрытой свечи.
func parseRow(row []string) (c models.Candle, confirmed bool, ok bool) {
	if len(row) < 5 {
		return models.Candle{}, false, false
	}
	tsMs, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return models.Candle{}, false, false
	}
	open, err1 := strconv.ParseFloat(row[1], 64)
	high, err2 := strconv.ParseFloat(row[2], 64)
	low, err3 := strconv.ParseFloat(row[3], 64)
	closep, err4 := strconv.ParseFloat(row[4], 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || closep <= 0 {
		return models.Candle{}, false, false
	}

	c = models.Candle{
		Time:  time.UnixMilli(tsMs).UTC(),
		Open:  open,
		High:  high,
		Low:   low,
		Close: closep,
	}
	if len(row) >= 6 {
		c.Volume, _ = strconv.ParseFloat(row[5], 64)
	}

	// confirm в последнем элементе; без него считаем свечу закрытой
	confirmed = len(row) < 9 || row[len(row)-1] == "1"
	return c, confirmed, true
}
