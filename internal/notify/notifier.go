package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"trade_engine/internal/models"
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// PositionLister answers the /positions command without coupling the
// notifier to the risk manager.
type PositionLister interface {
	OpenPositions() []models.Position
}

// Telegram — passive notifier plus a single /positions command.
type Telegram struct {
	bot       *tgbot.BotAPI
	chatID    int64
	positions PositionLister
}

func NewTelegram(token string, chatID int64, positions PositionLister) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:       b,
		chatID:    chatID,
		positions: positions,
	}, nil
}

// SetPositions wires the /positions command source after construction.
// The manager consumes the notifier, so the lister cannot be passed at
// build time without a cycle.
func (t *Telegram) SetPositions(p PositionLister) {
	t.positions = p
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	_, _ = t.bot.Send(tgbot.NewMessage(t.chatID, msg))
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

func (t *Telegram) handlePositions() {
	if t.positions == nil {
		t.Send("position tracking is not wired up")
		return
	}
	open := t.positions.OpenPositions()
	if len(open) == 0 {
		t.Send("no open positions")
		return
	}

	var b strings.Builder
	b.WriteString("open positions:\n")
	for _, p := range open {
		fmt.Fprintf(&b, "- %s [%s] size=%.4f @ %.4f lev=%dx upl=%.4f\n",
			p.Symbol, p.Side, p.Size, p.Entry, p.Leverage, p.PnL)
	}
	t.Send(b.String())
}

// Start: long-polling loop for chat commands.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				if upd.Message != nil && upd.Message.Chat != nil &&
					upd.Message.Chat.ID == t.chatID && upd.Message.IsCommand() {

					switch upd.Message.Command() {
					case "positions":
						go t.handlePositions()
					}
				}
			}
		}
	}()
	return nil
}

func (t *Telegram) Stop() {}

// Stdout — fallback notifier that just logs.
type Stdout struct{}

func NewStdout() *Stdout                           { return &Stdout{} }
func (s *Stdout) Send(msg string)                  { log.Println(msg) }
func (s *Stdout) Sendf(format string, args ...any) { log.Printf(format, args...) }
