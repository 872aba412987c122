package service

import (
	"fmt"
	"strconv"
	"strings"

	"signal_bot/internal/engine"
	"signal_bot/internal/models"
)

// Action: что сделать по команде из чата.
type Action struct {
	Command *engine.Command
	Stats   bool
	Retrain bool
	Help    bool
}

const helpText = "Команды:\n" +
	"/start - запустить сигналы\n" +
	"/stop - остановить\n" +
	"/ai_on, /ai_off - AI-фильтр\n" +
	"/confidence <normal> <risky> - пороги, оба в (0,1)\n" +
	"/win, /loss - результат последнего сигнала\n" +
	"/stats - статистика\n" +
	"/retrain - переобучить модель"

// ParseCommand разбирает команду без слэша и её аргументы.
func ParseCommand(name, args string) (Action, error) {
	cmd := func(c engine.Command) (Action, error) { return Action{Command: &c}, nil }

	switch strings.ToLower(name) {
	case "start":
		return cmd(engine.SetActive(true))
	case "stop":
		return cmd(engine.SetActive(false))
	case "ai_on":
		return cmd(engine.SetAIEnabled(true))
	case "ai_off":
		return cmd(engine.SetAIEnabled(false))
	case "win":
		return cmd(engine.RecordOutcome(models.OutcomeWin))
	case "loss":
		return cmd(engine.RecordOutcome(models.OutcomeLoss))
	case "confidence":
		fields := strings.Fields(args)
		if len(fields) != 2 {
			return Action{}, fmt.Errorf("%w: usage /confidence <normal> <risky>", models.ErrValidation)
		}
		normal, err1 := parseFloat(fields[0])
		risky, err2 := parseFloat(fields[1])
		if err1 != nil || err2 != nil {
			return Action{}, fmt.Errorf("%w: thresholds must be numbers", models.ErrValidation)
		}
		return cmd(engine.SetConfidence(normal, risky))
	case "stats":
		return Action{Stats: true}, nil
	case "retrain":
		return Action{Retrain: true}, nil
	case "help":
		return Action{Help: true}, nil
	}
	return Action{}, fmt.Errorf("%w: unknown command /%s", models.ErrValidation, name)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}
