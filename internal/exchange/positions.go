package exchange

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"

	"trade_engine/internal/models"
)

// AccountPosition is a venue-side open position snapshot carrying the
// risk fields the order endpoints do not return.
type AccountPosition struct {
	Pair        string
	Side        models.PositionSide
	Size        float64
	MarkPrice   float64
	LiqPrice    float64
	MarginRatio float64
}

type positionsResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		InstID   string `json:"instId"`
		PosSide  string `json:"posSide"`
		Pos      string `json:"pos"`
		MarkPx   string `json:"markPx"`
		LiqPx    string `json:"liqPx"`
		MgnRatio string `json:"mgnRatio"`
	} `json:"data"`
}

// GetPositions returns the venue's currently open positions. Flat
// entries are dropped; in net mode a negative size means short.
func (c *Client) GetPositions(ctx context.Context) ([]AccountPosition, error) {
	rb, err := c.request(ctx, http.MethodGet, "/api/v5/account/positions", nil)
	if err != nil {
		return nil, &GatewayError{Op: "positions", Err: err}
	}
	var resp positionsResponse
	if err := sonic.Unmarshal(rb, &resp); err != nil {
		return nil, &GatewayError{Op: "positions decode", Err: err}
	}
	if resp.Code != "0" {
		return nil, &GatewayError{Op: "positions", Err: fmt.Errorf("venue error: code=%s msg=%s", resp.Code, resp.Msg)}
	}

	out := make([]AccountPosition, 0, len(resp.Data))
	for _, row := range resp.Data {
		size, _ := strconv.ParseFloat(row.Pos, 64)
		if size == 0 {
			continue
		}
		side := models.PositionLong
		if row.PosSide == "short" || size < 0 {
			side = models.PositionShort
		}
		mark, _ := strconv.ParseFloat(row.MarkPx, 64)
		liq, _ := strconv.ParseFloat(row.LiqPx, 64)
		ratio, _ := strconv.ParseFloat(row.MgnRatio, 64)
		out = append(out, AccountPosition{
			Pair:        row.InstID,
			Side:        side,
			Size:        math.Abs(size),
			MarkPrice:   mark,
			LiqPrice:    liq,
			MarginRatio: ratio,
		})
	}
	return out, nil
}
