package notify

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier pushes notifications to a Telegram chat, so a headless
// client can still reach its user. Delivery failures are logged and dropped;
// notifications are best effort.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier authorizes the bot and binds it to the target chat.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify: telegram bot: %w", err)
	}
	bot.Debug = false
	log.Printf("Telegram notifications authorized on account %s", bot.Self.UserName)
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (n *TelegramNotifier) ShowSuccess(summary, detail string) { n.send("✅", summary, detail) }
func (n *TelegramNotifier) ShowInfo(summary, detail string)    { n.send("ℹ️", summary, detail) }
func (n *TelegramNotifier) ShowWarn(summary, detail string)    { n.send("⚠️", summary, detail) }
func (n *TelegramNotifier) ShowError(summary, detail string)   { n.send("❌", summary, detail) }
func (n *TelegramNotifier) ShowMessage(summary, detail string) { n.send("💬", summary, detail) }

func (n *TelegramNotifier) send(prefix, summary, detail string) {
	msg := tgbotapi.NewMessage(n.chatID, fmt.Sprintf("%s %s\n%s", prefix, summary, detail))
	if _, err := n.bot.Send(msg); err != nil {
		log.Printf("ERROR: Failed to send Telegram notification: %v", err)
	}
}
