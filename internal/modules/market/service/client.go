package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// максимум строк за один запрос /market/candles
const pageLimit = 300

type Client struct {
	http     *http.Client
	wsDialer *websocket.Dialer
	baseURL  string
	wsURL    string

	connState func(bool)
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		http:     &http.Client{Timeout: cfg.Market.Timeout},
		wsDialer: &websocket.Dialer{HandshakeTimeout: cfg.Market.Timeout},
		baseURL:  strings.TrimRight(cfg.Market.RESTBaseURL, "/"),
		wsURL:    cfg.Market.WSURL,
	}
}

// OnConnState: колбэк на подключение/обрыв WS (для health).
func (c *Client) OnConnState(fn func(bool)) { c.connState = fn }

func (c *Client) setConnected(v bool) {
	if c.connState != nil {
		c.connState(v)
	}
}

type candlesResponse struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data [][]string `json:"data"`
}

// GetCandles: последние limit закрытых свечей, от старых к новым.
// OKX отдаёт newest-first страницами; дальше листаем параметром after.
func (c *Client) GetCandles(ctx context.Context, instID, tf string, limit int) ([]models.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	bar, err := okxBar(tf)
	if err != nil {
		return nil, err
	}

	newestFirst := make([]models.Candle, 0, limit)
	after := ""
	for len(newestFirst) < limit {
		// +1 на текущую незакрытую свечу
		want := min(limit-len(newestFirst)+1, pageLimit)
		rows, err := c.fetchPage(ctx, instID, bar, want, after)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			candle, confirmed, ok := parseRow(row)
			if !ok || !confirmed {
				continue
			}
			newestFirst = append(newestFirst, candle)
		}
		// история кончилась
		if len(rows) < want {
			break
		}
		after = rows[len(rows)-1][0]
	}

	if len(newestFirst) > limit {
		newestFirst = newestFirst[:limit]
	}
	out := make([]models.Candle, len(newestFirst))
	for i, candle := range newestFirst {
		out[len(newestFirst)-1-i] = candle
	}
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, instID, bar string, limit int, after string) ([][]string, error) {
	q := url.Values{}
	q.Set("instId", instID)
	q.Set("bar", bar)
	q.Set("limit", strconv.Itoa(limit))
	if after != "" {
		q.Set("after", after)
	}
	u := c.baseURL + "/api/v5/market/candles?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrDataUnavailable, instID, err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: %s: http %d: %s", models.ErrDataUnavailable, instID, resp.StatusCode, string(b))
	}

	var r candlesResponse
	if err := sonic.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("%w: %s: decode: %v", models.ErrDataUnavailable, instID, err)
	}
	if r.Code != "0" {
		return nil, fmt.Errorf("%w: okx candles error: code=%s msg=%s", models.ErrDataUnavailable, r.Code, r.Msg)
	}
	return r.Data, nil
}

// pause: сон с выходом по ctx.
func pause(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
