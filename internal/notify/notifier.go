// Package notify: исходящие сообщения: сигналы, отчёты, служебные уведомления.
package notify

import (
	"context"
	"errors"
	"fmt"

	"signal_bot/pkg/logger"
)

type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Stdout: когда нет телеграма, всё пишется в лог.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) Send(_ context.Context, text string) error {
	logger.Info("notify: %s", text)
	return nil
}

// Fanout рассылает во все каналы; ошибка одного не мешает остальным.
type Fanout struct {
	sinks []Notifier
}

func NewFanout(sinks ...Notifier) *Fanout {
	out := make([]Notifier, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Fanout{sinks: out}
}

func (f *Fanout) Send(ctx context.Context, text string) error {
	var errs []error
	for i, s := range f.sinks {
		if err := s.Send(ctx, text); err != nil {
			errs = append(errs, fmt.Errorf("sink %d (%T): %w", i, s, err))
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Len() int { return len(f.sinks) }
