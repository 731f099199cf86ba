package feed

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trade_engine/internal/models"
	"trade_engine/pkg/logger"
)

// WS streams ticker updates from the venue's public websocket and fans
// them out through an embedded Memory feed. Pair subscriptions are
// refcounted; the venue subscription is released when the last
// consumer cancels.
type WS struct {
	endpoint string
	dialer   *websocket.Dialer
	mem      *Memory

	mu    sync.Mutex
	conn  *websocket.Conn
	pairs map[string]int
}

func NewWS(endpoint string) *WS {
	return &WS{
		endpoint: endpoint,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		mem:      NewMemory(),
		pairs:    make(map[string]int),
	}
}

func (w *WS) Subscribe(pair string) (<-chan models.Tick, func()) {
	ch, cancelMem := w.mem.Subscribe(pair)

	w.mu.Lock()
	w.pairs[pair]++
	first := w.pairs[pair] == 1
	conn := w.conn
	w.mu.Unlock()

	if first && conn != nil {
		w.send(conn, "subscribe", pair)
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			cancelMem()
			w.mu.Lock()
			w.pairs[pair]--
			last := w.pairs[pair] <= 0
			if last {
				delete(w.pairs, pair)
			}
			conn := w.conn
			w.mu.Unlock()
			if last && conn != nil {
				w.send(conn, "unsubscribe", pair)
			}
		})
	}
	return ch, cancel
}

func (w *WS) LatestPrice(pair string) (float64, bool) {
	return w.mem.LatestPrice(pair)
}

// Start runs the connect/read loop until ctx is cancelled, redialing
// with a flat backoff on any failure.
func (w *WS) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.runConn(ctx); err != nil {
			logger.Warn("price feed disconnected: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

type wsMessage struct {
	Event string `json:"event"`
	Arg   struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data []struct {
		InstID string `json:"instId"`
		Last   string `json:"last"`
		Open   string `json:"open24h"`
		High   string `json:"high24h"`
		Low    string `json:"low24h"`
		Vol    string `json:"vol24h"`
		TS     string `json:"ts"`
	} `json:"data"`
}

func (w *WS) runConn(ctx context.Context) error {
	conn, _, err := w.dialer.DialContext(ctx, w.endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	w.mu.Lock()
	w.conn = conn
	pairs := make([]string, 0, len(w.pairs))
	for p := range w.pairs {
		pairs = append(pairs, p)
	}
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.conn = nil
		w.mu.Unlock()
	}()

	for _, p := range pairs {
		w.send(conn, "subscribe", p)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil || len(msg.Data) == 0 {
			continue
		}
		for _, d := range msg.Data {
			price, err := strconv.ParseFloat(d.Last, 64)
			if err != nil || price == 0 {
				continue
			}
			ms, _ := strconv.ParseInt(d.TS, 10, 64)
			open, _ := strconv.ParseFloat(d.Open, 64)
			high, _ := strconv.ParseFloat(d.High, 64)
			low, _ := strconv.ParseFloat(d.Low, 64)
			vol, _ := strconv.ParseFloat(d.Vol, 64)
			w.mem.Push(models.Tick{
				Pair:   d.InstID,
				Price:  price,
				Open:   open,
				High:   high,
				Low:    low,
				Volume: vol,
				Time:   time.UnixMilli(ms).UTC(),
			})
		}
	}
}

type wsOp struct {
	Op   string `json:"op"`
	Args []struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"args"`
}

func (w *WS) send(conn *websocket.Conn, op, pair string) {
	msg := wsOp{Op: op}
	msg.Args = append(msg.Args, struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	}{Channel: "tickers", InstID: pair})

	if err := conn.WriteJSON(msg); err != nil {
		logger.Warn("ws %s %s failed: %v", op, pair, err)
	}
}
