// Package bot is the chat front end: every Telegram chat is one running
// client with its own session, cache and mutations, driven by commands.
package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gitlab.com/yelinaung/finova-bot/internal/api"
	"gitlab.com/yelinaung/finova-bot/internal/config"
	"gitlab.com/yelinaung/finova-bot/internal/logger"
	"gitlab.com/yelinaung/finova-bot/internal/session"
)

// maxDownloadBytes caps avatar uploads.
const maxDownloadBytes = 5 << 20

// commandFunc handles one command for an initialized chat. args is the text
// after the command word.
type commandFunc func(ctx context.Context, tg TelegramAPI, c *chat, msg *tgmodels.Message, args string)

// Bot wraps the Telegram bot with application dependencies.
type Bot struct {
	bot      *bot.Bot
	cfg      *config.Config
	chats    *registry
	commands map[string]commandFunc
	http     *http.Client
	now      func() time.Time
}

// New creates a new Bot instance.
func New(cfg *config.Config, client *api.Client, slots SlotSource) (*Bot, error) {
	b := newBot(cfg, client, slots)

	opts := []bot.Option{
		bot.WithMiddlewares(b.loggingMiddleware),
		bot.WithDefaultHandler(b.defaultHandler),
	}

	telegramBot, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	b.bot = telegramBot

	return b, nil
}

func newBot(cfg *config.Config, client *api.Client, slots SlotSource) *Bot {
	b := &Bot{
		cfg:   cfg,
		chats: newRegistry(client, slots, cfg.CacheStaleTime),
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now: time.Now,
	}
	b.registerCommands()
	return b
}

// Start begins polling for updates.
func (b *Bot) Start(ctx context.Context) {
	logger.Log.Info().Msg("Bot started polling")
	b.bot.Start(ctx)
}

func (b *Bot) registerCommands() {
	b.commands = map[string]commandFunc{
		"/start":        b.handleStart,
		"/ayuda":        b.handleHelp,
		"/help":         b.handleHelp,
		"/login":        b.handleLogin,
		"/registro":     b.handleRegister,
		"/google":       b.handleGoogle,
		"/salir":        b.handleLogout,
		"/perfil":       b.handleProfile,
		"/editarperfil": b.handleEditProfile,
		"/foto":         b.handlePhoto,
		"/clave":        b.handleChangePassword,
		"/recuperar":    b.handleRequestReset,
		"/restablecer":  b.handleConfirmReset,
		"/partidas":     b.handleBudgetItems,
		"/partida":      b.handleBudgetItem,
		"/gastos":       b.handleExpenses,
		"/gasto":        b.handleExpense,
		"/ingresos":     b.handleIncomes,
		"/ingreso":      b.handleIncome,
		"/resumen":      b.handleSummary,
		"/grafico":      b.handleChart,
		"/exportar":     b.handleExport,
	}
}

// publicCommands still run after a stored session failed to restore.
var publicCommands = map[string]bool{
	"/start":       true,
	"/ayuda":       true,
	"/help":        true,
	"/login":       true,
	"/registro":    true,
	"/google":      true,
	"/recuperar":   true,
	"/restablecer": true,
}

// loggingMiddleware logs each incoming command without its arguments, which
// may carry credentials.
func (b *Bot) loggingMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		if update.Message != nil {
			name, _ := commandName(messageText(update.Message))
			event := logger.Log.Info().Str("chat", logger.HashChatID(update.Message.Chat.ID))
			if name != "" {
				event = event.Str("command", name)
			}
			if len(update.Message.Photo) > 0 {
				event = event.Str("type", "photo")
			}
			event.Msg("User input")
		}
		next(ctx, tgBot, update)
	}
}

// defaultHandler receives every update and dispatches commands.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.dispatch(ctx, tgBot, update)
}

// dispatch is the testable implementation of defaultHandler.
func (b *Bot) dispatch(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update == nil || update.Message == nil {
		return
	}
	msg := update.Message

	name, args := commandName(messageText(msg))
	handler, ok := b.commands[name]
	if !ok {
		b.reply(ctx, tg, msg.Chat.ID, "No entendí eso. Usa /ayuda para ver los comandos disponibles.")
		return
	}

	c, err := b.chats.get(ctx, msg.Chat.ID)
	if err != nil {
		logger.Log.Warn().Err(err).Str("chat", logger.HashChatID(msg.Chat.ID)).Msg("Stored session could not be restored")
		b.reply(ctx, tg, msg.Chat.ID, userMessage(err))
		b.flushNavigation(ctx, tg, c)
		if !publicCommands[name] {
			return
		}
	}

	handler(ctx, tg, c, msg, args)
	b.flushNavigation(ctx, tg, c)
}

// messageText returns the text of a message, or the caption of media.
func messageText(msg *tgmodels.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

func (b *Bot) reply(ctx context.Context, tg TelegramAPI, chatID int64, text string) {
	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Str("chat", logger.HashChatID(chatID)).Msg("Failed to send message")
	}
}

func (b *Bot) replyError(ctx context.Context, tg TelegramAPI, chatID int64, err error) {
	b.reply(ctx, tg, chatID, userMessage(err))
}

var routeMessages = map[session.Route]string{
	session.RouteDashboard: "✅ Sesión iniciada. Usa /resumen para ver tu panel o /ayuda para ver los comandos.",
	session.RouteLogin:     "🔒 Sesión cerrada. Inicia sesión con <code>/login &lt;email&gt; &lt;clave&gt;</code>.",
}

// flushNavigation turns queued navigation requests into chat messages.
func (b *Bot) flushNavigation(ctx context.Context, tg TelegramAPI, c *chat) {
	for _, route := range c.nav.drain() {
		if text, ok := routeMessages[route]; ok {
			b.reply(ctx, tg, c.id, text)
		}
	}
}

// forgetMessage deletes a message that carried secrets. Failures are only
// logged: old messages cannot always be deleted.
func (b *Bot) forgetMessage(ctx context.Context, tg TelegramAPI, msg *tgmodels.Message) {
	if _, err := tg.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: msg.Chat.ID, MessageID: msg.ID}); err != nil {
		logger.Log.Debug().Err(err).Str("chat", logger.HashChatID(msg.Chat.ID)).Msg("Failed to delete message with credentials")
	}
}

// downloadFile fetches a Telegram file, refusing anything over maxDownloadBytes.
func (b *Bot) downloadFile(ctx context.Context, tg TelegramAPI, fileID string) ([]byte, error) {
	file, err := tg.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tg.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", maxDownloadBytes)
	}
	return data, nil
}

// today returns the current date in the backend's date layout.
func (b *Bot) today() string {
	return b.now().Format("2006-01-02")
}

// normalizeDate accepts "hoy" for today.
func (b *Bot) normalizeDate(raw string) string {
	if strings.EqualFold(raw, "hoy") {
		return b.today()
	}
	return raw
}
