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

type balanceResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		TotalEq string `json:"totalEq"`
		AvailEq string `json:"availEq"`
		Upl     string `json:"upl"`
	} `json:"data"`
}

// GetAccountBalance returns the venue balance snapshot, falling back to
// the last cached value on gateway failure.
func (c *Client) GetAccountBalance(ctx context.Context) (models.AccountBalance, error) {
	rb, err := c.request(ctx, http.MethodGet, "/api/v5/account/balance", nil)
	if err != nil {
		return c.cachedBalance("balance", err)
	}
	var resp balanceResponse
	if err := sonic.Unmarshal(rb, &resp); err != nil {
		return c.cachedBalance("balance decode", err)
	}
	if resp.Code != "0" || len(resp.Data) == 0 {
		return c.cachedBalance("balance", fmt.Errorf("venue error: code=%s msg=%s", resp.Code, resp.Msg))
	}

	total, _ := strconv.ParseFloat(resp.Data[0].TotalEq, 64)
	avail, _ := strconv.ParseFloat(resp.Data[0].AvailEq, 64)
	upl, _ := strconv.ParseFloat(resp.Data[0].Upl, 64)

	bal := models.AccountBalance{
		Total:         total,
		Available:     avail,
		Equity:        total,
		UnrealizedPnL: upl,
	}
	c.mu.Lock()
	c.lastBalance = &bal
	c.mu.Unlock()
	return bal, nil
}

func (c *Client) cachedBalance(op string, err error) (models.AccountBalance, error) {
	c.mu.RLock()
	cached := c.lastBalance
	c.mu.RUnlock()
	if cached != nil {
		logger.Warn("%s failed, using cached balance: %v", op, err)
		return *cached, nil
	}
	return models.AccountBalance{}, &GatewayError{Op: op, Err: err}
}

type orderResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		OrdID  string `json:"ordId"`
		AlgoID string `json:"algoId"`
		SCode  string `json:"sCode"`
		SMsg   string `json:"sMsg"`
	} `json:"data"`
}

// PlaceOrder submits a market or limit order. On any failure the error
// propagates to the caller and no position is recorded: the system must
// not assume an order succeeded without confirmation.
func (c *Client) PlaceOrder(ctx context.Context, pair string, side models.OrderSide, typ models.OrderType, size, price float64) (*models.Order, error) {
	body := map[string]string{
		"instId":  pair,
		"tdMode":  "cross",
		"side":    string(side),
		"ordType": string(typ),
		"sz":      strconv.FormatFloat(size, 'f', -1, 64),
	}
	if typ == models.OrderLimit {
		body["px"] = strconv.FormatFloat(price, 'f', -1, 64)
	}
	payload, err := sonic.Marshal(body)
	if err != nil {
		return nil, &GatewayError{Op: "marshal order", Err: err}
	}

	rb, err := c.request(ctx, http.MethodPost, "/api/v5/trade/order", payload)
	if err != nil {
		return nil, &GatewayError{Op: "place order", Err: err}
	}
	var resp orderResponse
	if err := sonic.Unmarshal(rb, &resp); err != nil {
		return nil, &GatewayError{Op: "decode order", Err: err}
	}
	if resp.Code != "0" || len(resp.Data) == 0 {
		return nil, &GatewayError{Op: "place order", Err: fmt.Errorf("venue error: code=%s msg=%s", resp.Code, resp.Msg)}
	}

	return &models.Order{
		ID:        resp.Data[0].OrdID,
		Pair:      pair,
		Side:      side,
		Type:      typ,
		Size:      size,
		Price:     price,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// PlaceConditionalOrder submits a venue-held trigger order (stop or
// take-profit).
func (c *Client) PlaceConditionalOrder(ctx context.Context, pair string, side models.OrderSide, kind models.ConditionalKind, size, triggerPrice float64) (*models.Order, error) {
	body := map[string]string{
		"instId":  pair,
		"tdMode":  "cross",
		"side":    string(side),
		"ordType": "conditional",
		"sz":      strconv.FormatFloat(size, 'f', -1, 64),
	}
	trigger := strconv.FormatFloat(triggerPrice, 'f', -1, 64)
	switch kind {
	case models.ConditionalTakeProfit:
		body["tpTriggerPx"] = trigger
		body["tpOrdPx"] = "-1"
	default:
		body["slTriggerPx"] = trigger
		body["slOrdPx"] = "-1"
	}
	payload, err := sonic.Marshal(body)
	if err != nil {
		return nil, &GatewayError{Op: "marshal conditional", Err: err}
	}

	rb, err := c.request(ctx, http.MethodPost, "/api/v5/trade/order-algo", payload)
	if err != nil {
		return nil, &GatewayError{Op: "place conditional", Err: err}
	}
	var resp orderResponse
	if err := sonic.Unmarshal(rb, &resp); err != nil {
		return nil, &GatewayError{Op: "decode conditional", Err: err}
	}
	if resp.Code != "0" || len(resp.Data) == 0 {
		return nil, &GatewayError{Op: "place conditional", Err: fmt.Errorf("venue error: code=%s msg=%s", resp.Code, resp.Msg)}
	}

	return &models.Order{
		ID:        resp.Data[0].AlgoID,
		Pair:      pair,
		Side:      side,
		Type:      models.OrderMarket,
		Size:      size,
		Price:     triggerPrice,
		CreatedAt: time.Now().UTC(),
	}, nil
}
