package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"

	"trade_engine/internal/models"
)

// Client is the production Gateway over the venue's signed REST API.
// Last-known balance and candles are cached so read failures can fall
// back instead of aborting the calling loop.
type Client struct {
	http    *http.Client
	baseURL string

	apiKey    string
	apiSecret string
	passph    string

	mu          sync.RWMutex
	lastBalance *models.AccountBalance
	lastCandles map[string][]models.Candle
}

type ClientConfig struct {
	BaseURL    string
	APIKey     string
	APISecret  string
	Passphrase string
}

func NewClient(cfg ClientConfig) *Client {
	return &Client{
		http:        &http.Client{Timeout: 10 * time.Second},
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		apiSecret:   cfg.APISecret,
		passph:      cfg.Passphrase,
		lastCandles: make(map[string][]models.Candle),
	}
}

func (c *Client) sign(ts, method, requestPath, body string) string {
	msg := ts + method + requestPath + body
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func (c *Client) request(ctx context.Context, method, requestPath string, body []byte) ([]byte, error) {
	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var rd io.Reader
	if len(body) > 0 {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, rd)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("OK-ACCESS-KEY", c.apiKey)
	req.Header.Set("OK-ACCESS-SIGN", c.sign(ts, method, requestPath, string(body)))
	req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
	req.Header.Set("OK-ACCESS-PASSPHRASE", c.passph)
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, errors.Errorf("http %d: %s", resp.StatusCode, string(rb))
	}
	return rb, nil
}
