package console

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Julian6262/BingX/internal/core"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct{}

func (m *mockLogger) Debug(msg string, fields ...interface{})          {}
func (m *mockLogger) Info(msg string, fields ...interface{})           {}
func (m *mockLogger) Warn(msg string, fields ...interface{})           {}
func (m *mockLogger) Error(msg string, fields ...interface{})          {}
func (m *mockLogger) Fatal(msg string, fields ...interface{})          {}
func (m *mockLogger) WithField(k string, v interface{}) core.ILogger   { return m }
func (m *mockLogger) WithFields(f map[string]interface{}) core.ILogger { return m }

// fakeOps records which operation ran with which symbol.
type fakeOps struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeOps) record(op, symbol string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+":"+symbol)
	return "done " + op + " " + symbol
}

func (f *fakeOps) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeOps) AddSymbol(ctx context.Context, s string) string    { return f.record("add", s) }
func (f *fakeOps) DeleteSymbol(ctx context.Context, s string) string { return f.record("del", s) }
func (f *fakeOps) Track(ctx context.Context, s string) string        { return f.record("track", s) }
func (f *fakeOps) Pause(ctx context.Context, s string) string        { return f.record("pause", s) }
func (f *fakeOps) Stop(ctx context.Context, s string) string         { return f.record("stop", s) }
func (f *fakeOps) Buy(ctx context.Context, s string) string          { return f.record("buy", s) }
func (f *fakeOps) Sell(ctx context.Context, s string) string         { return f.record("sell", s) }
func (f *fakeOps) SellAll(ctx context.Context, s string) string      { return f.record("sell_all", s) }
func (f *fakeOps) Price(ctx context.Context, s string) string        { return f.record("price", s) }
func (f *fakeOps) Profit(ctx context.Context, s string) string       { return f.record("profit", s) }
func (f *fakeOps) PurgeOrders(ctx context.Context, s string) string  { return f.record("purge", s) }

type fakeBot struct {
	mu      sync.Mutex
	updates chan tgbotapi.Update
	sent    []tgbotapi.MessageConfig
	stopped bool
}

func newFakeBot() *fakeBot {
	return &fakeBot{updates: make(chan tgbotapi.Update, 8)}
}

func (b *fakeBot) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return b.updates
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) StopReceivingUpdates() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
}

func (b *fakeBot) replies() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.sent))
	for _, m := range b.sent {
		out = append(out, m.Text)
	}
	return out
}

func message(fromID, chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: fromID},
		Chat: &tgbotapi.Chat{ID: chatID},
	}
}

func newConsole() (*Console, *fakeBot, *fakeOps) {
	bot := newFakeBot()
	ops := &fakeOps{}
	return New(bot, 42, ops, &mockLogger{}), bot, ops
}

func TestDispatch_RoutesCommands(t *testing.T) {
	c, _, ops := newConsole()
	ctx := context.Background()

	tests := []struct {
		text string
		want string
	}{
		{"add_ada", "add:ADA"},
		{"del_ADA", "del:ADA"},
		{"track_ada", "track:ADA"},
		{"pause_ada", "pause:ADA"},
		{"stop_ada", "stop:ADA"},
		{"b_ada", "buy:ADA"},
		{"s_ada", "sell:ADA"},
		{"s_all_ada", "sell_all:ADA"},
		{"1_ada", "price:ADA"},
		{"profit_ada", "profit:ADA"},
		{"d_all_ada", "purge:ADA"},
	}
	for i, tt := range tests {
		report := c.dispatch(ctx, tt.text)
		assert.NotEmpty(t, report, tt.text)
		calls := ops.recorded()
		require.Len(t, calls, i+1)
		assert.Equal(t, tt.want, calls[i], tt.text)
	}
}

func TestDispatch_SellAllNotShadowedBySell(t *testing.T) {
	c, _, ops := newConsole()

	c.dispatch(context.Background(), "s_all_BTC")

	require.Equal(t, []string{"sell_all:BTC"}, ops.recorded())
}

func TestDispatch_UnknownAndMissingSymbol(t *testing.T) {
	c, _, ops := newConsole()
	ctx := context.Background()

	assert.Contains(t, c.dispatch(ctx, "frobnicate"), "unknown command")
	assert.Contains(t, c.dispatch(ctx, "add_"), "symbol is missing")
	assert.Empty(t, ops.recorded())
}

func TestHandle_IgnoresUnauthorizedUsers(t *testing.T) {
	c, bot, ops := newConsole()

	c.handle(context.Background(), message(7, 7, "b_ada"))

	assert.Empty(t, ops.recorded())
	assert.Empty(t, bot.replies())
}

func TestHandle_StartRepliesSenderID(t *testing.T) {
	c, bot, _ := newConsole()

	// /start is open to anyone so operators can discover their id.
	c.handle(context.Background(), message(7, 7, "/start"))

	replies := bot.replies()
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "7")
}

func TestHandle_AdminCommandReplies(t *testing.T) {
	c, bot, ops := newConsole()

	c.handle(context.Background(), message(42, 99, "track_ada"))

	assert.Equal(t, []string{"track:ADA"}, ops.recorded())
	replies := bot.replies()
	require.Len(t, replies, 1)
	assert.Equal(t, "done track ADA", replies[0])
}

func TestRun_StopsOnCancel(t *testing.T) {
	c, bot, ops := newConsole()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	bot.updates <- tgbotapi.Update{Message: message(42, 99, "pause_ada")}
	waitFor(t, func() bool { return len(ops.recorded()) == 1 })

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("console did not stop")
	}
	assert.True(t, bot.stopped)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
