package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"signal_bot/internal/filter"
	"signal_bot/internal/models"
	"signal_bot/internal/modelstore"
	"signal_bot/pkg/logger"
)

type Fetcher interface {
	FetchCandles(ctx context.Context, instrument, interval string, lookback int) ([]models.Candle, error)
}

// Target: куда заливаем историю и отмечаем загруженную модель (движок).
type Target interface {
	Instruments() []string
	Timeframe() string
	Seed(instrument string, cs []models.Candle) (int, error)
	MarkRetrained(at time.Time)
}

type Notifier interface {
	Send(ctx context.Context, text string) error
}

type Warmuper struct {
	fetcher  Fetcher
	target   Target
	filter   *filter.Filter
	store    modelstore.Store
	n        Notifier
	lookback int

	// ограничитель параллелизма, чтобы не словить rate limit
	sem chan struct{}
}

func NewWarmuper(fetcher Fetcher, target Target, f *filter.Filter, store modelstore.Store, n Notifier, lookback int) *Warmuper {
	return &Warmuper{
		fetcher:  fetcher,
		target:   target,
		filter:   f,
		store:    store,
		n:        n,
		lookback: lookback,
		sem:      make(chan struct{}, 4),
	}
}

// LoadModel поднимает сохранённую модель. Её отсутствие — не ошибка: фильтр работает fail-open до первого переобучения.
func (w *Warmuper) LoadModel(ctx context.Context) (bool, error) {
	if w.store == nil {
		return false, nil
	}
	blob, err := w.store.Load(ctx)
	if errors.Is(err, models.ErrModelNotFound) {
		logger.Info("bootstrap: no saved model, filter is fail-open")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load model: %w", err)
	}

	m, err := filter.Decode(blob)
	if err != nil {
		return false, fmt.Errorf("decode model: %w", err)
	}
	w.filter.Swap(m)
	w.target.MarkRetrained(m.TrainedAt)
	logger.Info("bootstrap: model loaded, %d rows, trained at %s", m.Rows, m.TrainedAt.Format(time.RFC3339))
	return true, nil
}

// Warmup заливает REST-историю в буферы движка. Ошибка по одному инструменту не мешает остальным.
func (w *Warmuper) Warmup(ctx context.Context) error {
	symbols := w.target.Instruments()
	if len(symbols) == 0 {
		return nil
	}
	tf := w.target.Timeframe()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		cnt  int
		errs []error
	)

	for _, sym := range symbols {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.sem <- struct{}{}
			defer func() { <-w.sem }()

			cs, err := w.fetcher.FetchCandles(ctx, sym, tf, w.lookback)
			if err == nil {
				var n int
				n, err = w.target.Seed(sym, cs)
				mu.Lock()
				cnt += n
				mu.Unlock()
			}
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("warmup %s: %w", sym, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		w.notify(ctx, "⚠️ Прогрев завершён с ошибкой: "+err.Error())
		return err
	}
	logger.Info("bootstrap: warmup done, %d candles for %d instruments", cnt, len(symbols))
	w.notify(ctx, fmt.Sprintf("✅ Бот запущен: %d инструментов, таймфрейм %s.", len(symbols), tf))
	return nil
}

func (w *Warmuper) notify(ctx context.Context, text string) {
	if w.n == nil {
		return
	}
	if err := w.n.Send(ctx, text); err != nil {
		logger.Error("bootstrap: notify: %v", err)
	}
}
