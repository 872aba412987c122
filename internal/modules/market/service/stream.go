package service

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

// ClosedCandle: закрытая свеча из WS.
type ClosedCandle struct {
	InstID string
	Candle models.Candle
}

type wsFrame struct {
	Arg struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data [][]string `json:"data"`
}

// parseFrame: закрытые свечи из кадра нужного канала, остальное (pong, event) игнорируется.
func parseFrame(msg []byte, channel string) []ClosedCandle {
	var frame wsFrame
	if err := sonic.Unmarshal(msg, &frame); err != nil {
		return nil
	}
	if frame.Arg.Channel != channel || len(frame.Data) == 0 {
		return nil
	}

	out := make([]ClosedCandle, 0, len(frame.Data))
	for _, row := range frame.Data {
		c, confirmed, ok := parseRow(row)
		if !ok || !confirmed {
			continue
		}
		out = append(out, ClosedCandle{InstID: frame.Arg.InstID, Candle: c})
	}
	return out
}

// StreamCandlesBatch: один WebSocket на таймфрейм с пачкой инструментов в args.
// Переподключается, пока жив ctx. Канал закрывается при отмене ctx.
func (c *Client) StreamCandlesBatch(ctx context.Context, instIDs []string, timeframe string) <-chan ClosedCandle {
	ch := make(chan ClosedCandle)

	go func() {
		defer close(ch)

		if len(instIDs) == 0 {
			return
		}

		channel := "candle" + helper.NormTF(timeframe)
		if bar, err := okxBar(timeframe); err == nil {
			channel = "candle" + bar
		}

		args := make([]map[string]string, 0, len(instIDs))
		for _, id := range instIDs {
			args = append(args, map[string]string{
				"channel": channel,
				"instId":  id,
			})
		}

		for ctx.Err() == nil {
			logger.Info("ws: connect %s, %d instruments", channel, len(instIDs))
			conn, _, err := c.wsDialer.DialContext(ctx, c.wsURL, nil)
			if err != nil {
				logger.Error("ws: dial %s: %v", channel, err)
				pause(ctx, time.Second)
				continue
			}

			if err := conn.WriteJSON(map[string]any{"op": "subscribe", "args": args}); err != nil {
				logger.Error("ws: subscribe %s: %v", channel, err)
				_ = conn.Close()
				pause(ctx, time.Second)
				continue
			}

			c.setConnected(true)

			// keepalive каждые 20s, иначе OKX рвёт соединение; при отмене ctx закрываем conn, чтобы выйти из чтения
			stopPing := make(chan struct{})
			go func() {
				t := time.NewTicker(20 * time.Second)
				defer t.Stop()
				for {
					select {
					case <-ctx.Done():
						_ = conn.Close()
						return
					case <-stopPing:
						return
					case <-t.C:
						_ = conn.WriteMessage(websocket.TextMessage, []byte("ping"))
					}
				}
			}()

			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					if ctx.Err() == nil {
						logger.Error("ws: read %s: %v", channel, err)
					}
					break
				}
				for _, cc := range parseFrame(msg, channel) {
					select {
					case ch <- cc:
					case <-ctx.Done():
					}
				}
			}
			close(stopPing)
			_ = conn.Close()
			c.setConnected(false)
			pause(ctx, time.Second)
		}
	}()

	return ch
}
