package service

import (
	"context"
	"fmt"
	"time"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

// candleSource: REST-источник свечей.
type candleSource interface {
	GetCandles(ctx context.Context, instID, tf string, limit int) ([]models.Candle, error)
}

// Feed отдаёт свечи из WS-кэша, если он свежий и достаточно длинный, иначе идёт в REST.
type Feed struct {
	rest      candleSource
	cache     *Cache
	timeframe string
	now       func() time.Time
}

func NewFeed(rest candleSource, cache *Cache, timeframe string) *Feed {
	return &Feed{rest: rest, cache: cache, timeframe: helper.NormTF(timeframe), now: time.Now}
}

func (f *Feed) Cache() *Cache { return f.cache }

func (f *Feed) FetchCandles(ctx context.Context, instrument, interval string, lookback int) ([]models.Candle, error) {
	tf := helper.NormTF(interval)

	// 1) кэш
	if tf == f.timeframe && f.cache != nil {
		if w, ok := f.cache.Window(instrument, lookback); ok && f.fresh(w[len(w)-1], tf) && contiguous(w, tf) {
			return w, nil
		}
	}

	// 2) REST
	cs, err := f.rest.GetCandles(ctx, instrument, tf, lookback)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", instrument, tf, err)
	}
	if len(cs) == 0 {
		return nil, fmt.Errorf("%w: %s %s: empty response", models.ErrDataUnavailable, instrument, tf)
	}
	if tf == f.timeframe && f.cache != nil {
		f.cache.Replace(instrument, cs)
	}
	return cs, nil
}

// fresh: последняя закрытая свеча открылась не раньше двух периодов назад
// (свеча с открытием now-d уже закрыта, следующая ещё идёт).
func (f *Feed) fresh(last models.Candle, tf string) bool {
	d := helper.TFDuration(tf)
	if d == 0 {
		return false
	}
	return f.now().Sub(last.Time) <= 2*d
}

// contiguous: в окне нет пропущенных свечей (WS мог отвалиться и подняться позже).
func contiguous(cs []models.Candle, tf string) bool {
	d := helper.TFDuration(tf)
	for i := 1; i < len(cs); i++ {
		if cs[i].Time.Sub(cs[i-1].Time) != d {
			return false
		}
	}
	return true
}

// Run: держит кэш тёплым из WS, пока открыт stream.
func (f *Feed) Run(stream <-chan ClosedCandle) {
	for cc := range stream {
		if f.cache.Ingest(cc.InstID, []models.Candle{cc.Candle}) == 0 {
			logger.Info("ws: %s candle %s already cached", cc.InstID, cc.Candle.Time.Format(time.RFC3339))
		}
	}
}
