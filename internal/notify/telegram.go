package notify

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/hongminglow/flous-cash-be/internal/models"
)

// Telegram posts an HTML summary of each request to the operators' chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	wallet string
	now    func() time.Time
	log    *zap.Logger
}

// TelegramConfig describes the bot and chat. Endpoint defaults to the public
// Bot API and must contain two %s verbs for the token and the method.
type TelegramConfig struct {
	Token    string
	ChatID   int64
	Wallet   string
	Endpoint string
	Client   tgbotapi.HTTPClient
}

// NewTelegram authenticates the bot against the Bot API.
func NewTelegram(cfg TelegramConfig, log *zap.Logger) (*Telegram, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.Endpoint, cfg.Client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{
		bot:    bot,
		chatID: cfg.ChatID,
		wallet: cfg.Wallet,
		now:    time.Now,
		log:    log.Named("telegram"),
	}, nil
}

func (t *Telegram) Notify(ctx context.Context, svc models.Service, user models.User) {
	if ctx.Err() != nil {
		return
	}
	msg := tgbotapi.NewMessage(t.chatID, Message(svc, user, t.wallet, t.now()))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := t.bot.Send(msg); err != nil {
		t.log.Warn("telegram delivery failed", zap.Int64("service_id", svc.ID), zap.Error(err))
		return
	}
	t.log.Debug("telegram notification sent", zap.Int64("service_id", svc.ID))
}

// Message is the operator-facing text for a new request.
func Message(svc models.Service, user models.User, wallet string, at time.Time) string {
	var b strings.Builder
	b.WriteString("🧍‍♂️ طلب جديد على منصة فلوس كاش\n\n")
	fmt.Fprintf(&b, "📛 الاسم: %s\n", html.EscapeString(user.FullName))
	fmt.Fprintf(&b, "🆔 الرقم القومي: %s\n", html.EscapeString(user.NationalID))
	fmt.Fprintf(&b, "📱 الموبايل: %s\n", html.EscapeString(user.Phone))
	fmt.Fprintf(&b, "💼 الوظيفة: %s\n", html.EscapeString(user.Job))
	fmt.Fprintf(&b, "🏠 العنوان: %s\n", html.EscapeString(user.Address))
	fmt.Fprintf(&b, "📄 الخدمة: %s\n", svc.Type.Label())
	fmt.Fprintf(&b, "💰 المبلغ: %s جنيه\n", svc.Amount)
	fmt.Fprintf(&b, "✅ تم التحويل على %s\n", html.EscapeString(wallet))
	fmt.Fprintf(&b, "🕒 التاريخ: %s\n", at.Format("2006-01-02 15:04"))
	if svc.Purpose != nil && *svc.Purpose != "" {
		fmt.Fprintf(&b, "\n📝 الغرض: %s\n", html.EscapeString(*svc.Purpose))
	}
	return b.String()
}
