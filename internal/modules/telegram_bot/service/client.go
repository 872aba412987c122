package service

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"signal_bot/internal/engine"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/outcome"
	"signal_bot/pkg/logger"
)

// Controller: операции управления ботом.
type Controller interface {
	Execute(cmd engine.Command) (engine.Effect, error)
	Snapshot() engine.State
	Stats() outcome.Counters
}

type Retrainer interface {
	Force()
}

// Telegram: канал сигналов и командная панель одного чата.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64

	ctl       Controller
	retrainer Retrainer
}

func NewTelegram(cfg *config.Config) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	logger.Info("telegram: authorized as @%s", b.Self.UserName)

	return &Telegram{
		bot:    b,
		chatID: cfg.Telegram.ChatID,
	}, nil
}

// Bind подключает движок; до этого команды отклоняются.
func (t *Telegram) Bind(ctl Controller, retrainer Retrainer) {
	t.ctl = ctl
	t.retrainer = retrainer
}

// Send: в настроенный чат.
func (t *Telegram) Send(_ context.Context, text string) error {
	_, err := t.bot.Send(tgbot.NewMessage(t.chatID, text))
	return err
}

func (t *Telegram) reply(chatID int64, text string) {
	if _, err := t.bot.Send(tgbot.NewMessage(chatID, text)); err != nil {
		logger.Error("telegram: reply: %v", err)
	}
}

// Start: long-polling в отдельной горутине до отмены ctx.
func (t *Telegram) Start(ctx context.Context) {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				if upd.Message != nil {
					t.handleMessage(upd.Message)
				}
			}
		}
	}()
}

func (t *Telegram) Stop() {
	t.bot.StopReceivingUpdates()
}

func (t *Telegram) handleMessage(msg *tgbot.Message) {
	if msg.Chat == nil || !msg.IsCommand() {
		return
	}
	chatID := msg.Chat.ID

	// 1) только свой чат
	if chatID != t.chatID {
		logger.Info("telegram: rejected /%s from chat %d", msg.Command(), chatID)
		t.reply(chatID, "⛔️ Нет доступа")
		return
	}
	if t.ctl == nil {
		t.reply(chatID, "⏳ Бот ещё запускается")
		return
	}

	// 2) разбор
	action, err := ParseCommand(msg.Command(), msg.CommandArguments())
	if err != nil {
		t.reply(chatID, "❗️ "+err.Error())
		return
	}

	// 3) исполнение
	t.reply(chatID, t.execute(action))
}

func (t *Telegram) execute(action Action) string {
	switch {
	case action.Help:
		return helpText
	case action.Stats:
		return engine.FormatStats(t.ctl.Snapshot(), t.ctl.Stats())
	case action.Retrain:
		if t.retrainer == nil {
			return "❗️ Переобучение недоступно"
		}
		t.retrainer.Force()
		return "🧠 Переобучение запланировано"
	case action.Command != nil:
		eff, err := t.ctl.Execute(*action.Command)
		if err != nil {
			return "❗️ " + err.Error()
		}
		return eff.Reply
	}
	return "❗️ Пустая команда"
}
