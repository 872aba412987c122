package service

import (
	"sync"

	"signal_bot/internal/candles"
	"signal_bot/internal/models"
)

// Cache: закрытые свечи из WS по инструментам.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	series   map[string]*candles.Series
}

func NewCache(capacity int) *Cache {
	return &Cache{capacity: capacity, series: make(map[string]*candles.Series)}
}

// Ingest добавляет свечи; старые и повторы молча пропускаются.
func (c *Cache) Ingest(instID string, batch []models.Candle) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.series[instID]
	if !ok {
		s = candles.NewSeries(instID, c.capacity)
		c.series[instID] = s
	}
	n, _ := s.Merge(batch)
	return n
}

// Replace: серия инструмента заново собирается из batch (ответ REST важнее кэша с дыркой).
func (c *Cache) Replace(instID string, batch []models.Candle) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := candles.NewSeries(instID, c.capacity)
	c.series[instID] = s
	n, _ := s.Merge(batch)
	return n
}

// Window: последние n свечей, ok=false если столько нет.
func (c *Cache) Window(instID string, n int) ([]models.Candle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.series[instID]
	if !ok {
		return nil, false
	}
	w, err := s.Window(n)
	if err != nil {
		return nil, false
	}
	return w, true
}
