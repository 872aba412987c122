package engine

import (
	"fmt"
	"time"

	"signal_bot/internal/filter"
	"signal_bot/internal/models"
)

// State: настройки и учёт бота. Меняется только через Apply и учёт retrain/report.
type State struct {
	Active           bool
	AIEnabled        bool
	ConfidenceNormal float64
	ConfidenceRisky  float64
	LastRetrain      time.Time
	LastReportDay    string
}

func (s State) Thresholds() filter.Thresholds {
	return filter.Thresholds{Normal: s.ConfidenceNormal, Risky: s.ConfidenceRisky}
}

type CommandKind int

const (
	CmdSetActive CommandKind = iota + 1
	CmdSetAIEnabled
	CmdSetConfidence
	CmdRecordOutcome
)

func (k CommandKind) String() string {
	switch k {
	case CmdSetActive:
		return "set_active"
	case CmdSetAIEnabled:
		return "set_ai_enabled"
	case CmdSetConfidence:
		return "set_confidence"
	case CmdRecordOutcome:
		return "record_outcome"
	}
	return fmt.Sprintf("command(%d)", int(k))
}

type Command struct {
	Kind    CommandKind
	Flag    bool
	Normal  float64
	Risky   float64
	Outcome models.Outcome
}

func SetActive(on bool) Command    { return Command{Kind: CmdSetActive, Flag: on} }
func SetAIEnabled(on bool) Command { return Command{Kind: CmdSetAIEnabled, Flag: on} }
func SetConfidence(normal, risky float64) Command {
	return Command{Kind: CmdSetConfidence, Normal: normal, Risky: risky}
}
func RecordOutcome(o models.Outcome) Command { return Command{Kind: CmdRecordOutcome, Outcome: o} }

// Effect: что нужно сделать снаружи после перехода.
type Effect struct {
	Reply  string
	Record models.Outcome // не пусто — учесть результат в трекере
}

// Apply: чистый переход состояния. При ошибке возвращается исходное состояние.
func Apply(s State, c Command) (State, Effect, error) {
	switch c.Kind {
	case CmdSetActive:
		s.Active = c.Flag
		if c.Flag {
			return s, Effect{Reply: "▶️ Бот запущен"}, nil
		}
		return s, Effect{Reply: "⏸ Бот остановлен"}, nil

	case CmdSetAIEnabled:
		s.AIEnabled = c.Flag
		if c.Flag {
			return s, Effect{Reply: "🧠 AI-фильтр включён"}, nil
		}
		return s, Effect{Reply: "🧠 AI-фильтр выключен"}, nil

	case CmdSetConfidence:
		th := filter.Thresholds{Normal: c.Normal, Risky: c.Risky}
		if err := th.Validate(); err != nil {
			return s, Effect{}, err
		}
		s.ConfidenceNormal, s.ConfidenceRisky = c.Normal, c.Risky
		return s, Effect{Reply: fmt.Sprintf("🎯 Пороги: normal=%.2f risky=%.2f", c.Normal, c.Risky)}, nil

	case CmdRecordOutcome:
		o, err := models.ParseOutcome(string(c.Outcome))
		if err != nil {
			return s, Effect{}, err
		}
		return s, Effect{Record: o}, nil
	}
	return s, Effect{}, fmt.Errorf("%w: unknown command %s", models.ErrValidation, c.Kind)
}
