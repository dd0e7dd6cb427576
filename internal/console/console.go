// Package console is the chat operator console. A telegram bot receives
// commands from the configured admin and replies with operation reports.
package console

import (
	"context"
	"fmt"
	"strings"

	"github.com/Julian6262/BingX/internal/core"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Operator is the command surface the console drives.
type Operator interface {
	AddSymbol(ctx context.Context, symbol string) string
	DeleteSymbol(ctx context.Context, symbol string) string
	Track(ctx context.Context, symbol string) string
	Pause(ctx context.Context, symbol string) string
	Stop(ctx context.Context, symbol string) string
	Buy(ctx context.Context, symbol string) string
	Sell(ctx context.Context, symbol string) string
	SellAll(ctx context.Context, symbol string) string
	Price(ctx context.Context, symbol string) string
	Profit(ctx context.Context, symbol string) string
	PurgeOrders(ctx context.Context, symbol string) string
}

// BotAPI is the slice of tgbotapi.BotAPI the console needs. The caller
// owns the bot so other components (the alert channel) can share it.
type BotAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	StopReceivingUpdates()
}

// Console long-polls telegram and dispatches admin commands.
type Console struct {
	bot     BotAPI
	adminID int64
	ops     Operator
	logger  core.ILogger
}

func New(bot BotAPI, adminID int64, ops Operator, logger core.ILogger) *Console {
	return &Console{
		bot:     bot,
		adminID: adminID,
		ops:     ops,
		logger:  logger.WithField("component", "console"),
	}
}

// Run long-polls until ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := c.bot.GetUpdatesChan(cfg)
	c.logger.Info("console started", "admin_id", c.adminID)

	for {
		select {
		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			c.handle(ctx, update.Message)
		}
	}
}

func (c *Console) handle(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.From == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)

	// /start works for anyone so an operator can discover their id.
	if text == "/start" {
		c.reply(msg.Chat.ID, fmt.Sprintf("your id: %d", msg.From.ID))
		return
	}

	if msg.From.ID != c.adminID {
		c.logger.Warn("ignoring command from unauthorized user",
			"from", msg.From.ID)
		return
	}

	if report := c.dispatch(ctx, text); report != "" {
		c.reply(msg.Chat.ID, report)
	}
}

// command prefixes in match order: longer prefixes shadow shorter ones.
var commands = []struct {
	prefix string
	run    func(Operator, context.Context, string) string
}{
	{"add_", Operator.AddSymbol},
	{"del_", Operator.DeleteSymbol},
	{"track_", Operator.Track},
	{"pause_", Operator.Pause},
	{"stop_", Operator.Stop},
	{"b_", Operator.Buy},
	{"s_all_", Operator.SellAll},
	{"s_", Operator.Sell},
	{"d_all_", Operator.PurgeOrders},
	{"1_", Operator.Price},
	{"profit_", Operator.Profit},
}

func (c *Console) dispatch(ctx context.Context, text string) string {
	for _, cmd := range commands {
		if !strings.HasPrefix(text, cmd.prefix) {
			continue
		}
		symbol := strings.ToUpper(strings.TrimPrefix(text, cmd.prefix))
		if symbol == "" {
			return fmt.Sprintf("%s<SYMBOL>: symbol is missing", cmd.prefix)
		}
		return cmd.run(c.ops, ctx, symbol)
	}
	return fmt.Sprintf("unknown command: %s", text)
}

func (c *Console) reply(chatID int64, text string) {
	if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		c.logger.Error("failed to send reply", "error", err)
	}
}
