package notify

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier sends notifications over Telegram. If no token is
// configured it runs disabled and every call is a no-op.
type TelegramNotifier struct {
	api      *tgbotapi.BotAPI
	chatID   int64
	disabled bool
}

// NewTelegramNotifier creates a Telegram notifier. An empty token disables it.
func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	if token == "" || chatID == "" {
		return &TelegramNotifier{disabled: true}
	}

	parsedChatID, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		log.Printf("[Notify] Telegram chat ID %q invalid: %v", chatID, err)
		return &TelegramNotifier{disabled: true}
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Printf("[Notify] Telegram bot init failed: %v", err)
		return &TelegramNotifier{disabled: true}
	}

	log.Printf("[Notify] Telegram authorized as @%s", api.Self.UserName)
	return &TelegramNotifier{api: api, chatID: parsedChatID}
}

// IsEnabled reports whether Telegram notifications are configured.
func (t *TelegramNotifier) IsEnabled() bool { return !t.disabled }

// Send sends a plain text message.
func (t *TelegramNotifier) Send(text string) error {
	if t.disabled {
		return nil
	}
	return t.send(text)
}

// SendTradeAlert sends a trade execution alert.
func (t *TelegramNotifier) SendTradeAlert(city, ticker, side string, price, quantity int, cost, forecast float64, orderID string) error {
	if t.disabled {
		return nil
	}
	emoji := "📈"
	if side == "no" {
		emoji = "📉"
	}
	text := fmt.Sprintf("%s *Trade Executed: %s*\nTicker: `%s`\nSide: `%s`\nPrice: `%d¢` x%d = `$%.2f`\nForecast: `%.1f°F`\nOrder: `%s`",
		emoji, escapeMarkdown(city), ticker, side, price, quantity, cost, forecast, orderID)
	return t.send(text)
}

// SendSettlement sends a settlement outcome.
func (t *TelegramNotifier) SendSettlement(ticker string, won bool, pnlCents, totalPnLCents int, actualTemp float64, haveActual bool) error {
	if t.disabled {
		return nil
	}
	emoji, outcome := "✅", "WIN"
	if !won {
		emoji, outcome = "❌", "LOSS"
	}
	text := fmt.Sprintf("%s *Settled: %s*\nOutcome: `%s`\nP&L: `$%.2f`\nTotal P&L: `$%.2f`",
		emoji, ticker, outcome, float64(pnlCents)/100, float64(totalPnLCents)/100)
	if haveActual {
		text += fmt.Sprintf("\nActual: `%.1f°F`", actualTemp)
	}
	return t.send(text)
}

// SendCircuitBreaker sends a circuit-breaker trip alert.
func (t *TelegramNotifier) SendCircuitBreaker(reason string) error {
	if t.disabled {
		return nil
	}
	return t.send(fmt.Sprintf("🛑 *Circuit Breaker Activated*\n%s", escapeMarkdown(reason)))
}

// SendDailySummary sends the daily P&L summary.
func (t *TelegramNotifier) SendDailySummary(trades, wins int, totalCost, totalProfit, netPnL, winRate float64) error {
	if t.disabled {
		return nil
	}
	emoji := "📊"
	if netPnL < 0 {
		emoji = "⚠️"
	}
	text := fmt.Sprintf("%s *Daily Summary*\nTrades: `%d`\nWins: `%d` (`%.1f%%`)\nCost: `$%.2f`\nProfit: `$%.2f`\nNet P&L: `$%.2f`",
		emoji, trades, wins, winRate, totalCost, totalProfit, netPnL)
	return t.send(text)
}

// SendError sends an error alert.
func (t *TelegramNotifier) SendError(component, message string) error {
	if t.disabled {
		return nil
	}
	return t.send(fmt.Sprintf("🚨 *Error: %s*\n%s", escapeMarkdown(component), escapeMarkdown(message)))
}

// SendStartup sends a startup notification.
func (t *TelegramNotifier) SendStartup(balance float64, config string) error {
	if t.disabled {
		return nil
	}
	return t.send(fmt.Sprintf("🚀 *weatherd started*\nBalance: `$%.2f`\n%s", balance, escapeMarkdown(config)))
}

// SendShutdown sends a shutdown notification.
func (t *TelegramNotifier) SendShutdown(reason string, stats map[string]interface{}) error {
	if t.disabled {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "⏹️ *weatherd shutdown*\nReason: %s", escapeMarkdown(reason))
	for k, v := range stats {
		fmt.Fprintf(&b, "\n%s: `%v`", k, v)
	}
	return t.send(b.String())
}

func (t *TelegramNotifier) send(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	return nil
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string { return markdownEscaper.Replace(s) }
