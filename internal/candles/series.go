// Package candles держит ограниченное окно свечей по одному инструменту.
package candles

import (
	"fmt"

	"signal_bot/internal/models"
)

const DefaultCapacity = 200

// Series: упорядоченное по времени окно из последних capacity свечей.
// Владелец один (движок), поэтому без мьютекса.
type Series struct {
	instrument string
	capacity   int
	buf        []models.Candle
}

func NewSeries(instrument string, capacity int) *Series {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Series{
		instrument: instrument,
		capacity:   capacity,
		buf:        make([]models.Candle, 0, capacity),
	}
}

func (s *Series) Len() int { return len(s.buf) }

// Latest возвращает последнюю свечу, ok=false если буфер пуст.
func (s *Series) Latest() (models.Candle, bool) {
	if len(s.buf) == 0 {
		return models.Candle{}, false
	}
	return s.buf[len(s.buf)-1], true
}

// Append добавляет свечу строго новее последней. Дубликаты и старые свечи — ошибка,
// не перезапись. При заполнении выкидываем самую старую (FIFO).
func (s *Series) Append(c models.Candle) error {
	if last, ok := s.Latest(); ok && !c.Time.After(last.Time) {
		return fmt.Errorf("%s: %w: %s <= %s", s.instrument, models.ErrOutOfOrder,
			c.Time.Format("2006-01-02T15:04:05"), last.Time.Format("2006-01-02T15:04:05"))
	}
	if len(s.buf) == s.capacity {
		copy(s.buf, s.buf[1:])
		s.buf = s.buf[:len(s.buf)-1]
	}
	s.buf = append(s.buf, c)
	return nil
}

// Merge добавляет из пачки только свечи новее последней (фид отдаёт окно внахлёст).
// Возвращает сколько добавлено.
func (s *Series) Merge(batch []models.Candle) (int, error) {
	added := 0
	for _, c := range batch {
		if last, ok := s.Latest(); ok && !c.Time.After(last.Time) {
			continue
		}
		if err := s.Append(c); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// Window: копия последних size свечей.
func (s *Series) Window(size int) ([]models.Candle, error) {
	if size <= 0 || size > len(s.buf) {
		return nil, fmt.Errorf("%s: %w: need %d have %d", s.instrument, models.ErrInsufficientData, size, len(s.buf))
	}
	out := make([]models.Candle, size)
	copy(out, s.buf[len(s.buf)-size:])
	return out, nil
}

// All: копия всего окна.
func (s *Series) All() []models.Candle {
	out := make([]models.Candle, len(s.buf))
	copy(out, s.buf)
	return out
}
