package exchange

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"trade_engine/internal/models"
	"trade_engine/pkg/logger"
)

type candlesResponse struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data [][]string `json:"data"`
}

// GetMarketData returns the latest closed candles for the pair, oldest
// first. On a gateway failure the last cached window is returned when
// one exists.
func (c *Client) GetMarketData(ctx context.Context, pair string) ([]models.Candle, error) {
	path := fmt.Sprintf("/api/v5/market/candles?instId=%s&bar=1m&limit=300", pair)
	candles, err := c.fetchCandles(ctx, path, pair)
	if err != nil {
		c.mu.RLock()
		cached, ok := c.lastCandles[pair]
		c.mu.RUnlock()
		if ok {
			logger.Warn("market data for %s failed, using %d cached candles: %v", pair, len(cached), err)
			return cached, nil
		}
		return nil, &GatewayError{Op: "market data", Err: err}
	}
	if len(candles) == 0 {
		return nil, ErrDataUnavailable
	}

	c.mu.Lock()
	c.lastCandles[pair] = candles
	c.mu.Unlock()
	return candles, nil
}

// GetHistoricalData returns candles for [start, end], oldest first.
func (c *Client) GetHistoricalData(ctx context.Context, pair string, start, end time.Time) ([]models.Candle, error) {
	path := fmt.Sprintf("/api/v5/market/history-candles?instId=%s&bar=1m&before=%d&after=%d",
		pair, start.UnixMilli(), end.UnixMilli())
	candles, err := c.fetchCandles(ctx, path, pair)
	if err != nil {
		return nil, &GatewayError{Op: "historical data", Err: err}
	}
	if len(candles) == 0 {
		return nil, ErrDataUnavailable
	}
	return candles, nil
}

func (c *Client) fetchCandles(ctx context.Context, path, pair string) ([]models.Candle, error) {
	rb, err := c.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var resp candlesResponse
	if err := sonic.Unmarshal(rb, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "0" {
		return nil, fmt.Errorf("venue error: code=%s msg=%s", resp.Code, resp.Msg)
	}

	// The venue returns newest first; flip to chronological order.
	out := make([]models.Candle, 0, len(resp.Data))
	for i := len(resp.Data) - 1; i >= 0; i-- {
		row := resp.Data[i]
		if len(row) < 6 {
			continue
		}
		ms, _ := strconv.ParseInt(row[0], 10, 64)
		open, _ := strconv.ParseFloat(row[1], 64)
		high, _ := strconv.ParseFloat(row[2], 64)
		low, _ := strconv.ParseFloat(row[3], 64)
		cl, _ := strconv.ParseFloat(row[4], 64)
		vol, _ := strconv.ParseFloat(row[5], 64)
		out = append(out, models.Candle{
			Pair:   pair,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  cl,
			Volume: vol,
			Time:   time.UnixMilli(ms).UTC(),
		})
	}
	return out, nil
}
