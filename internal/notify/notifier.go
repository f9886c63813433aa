package notify

import (
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var usdPrinter = message.NewPrinter(language.AmericanEnglish)

// formatUSD renders cents as a localized currency amount with its ISO code,
// e.g. "USD 12.34".
func formatUSD(cents int) string {
	return usdPrinter.Sprintf("%v", currency.USD.Amount(float64(cents)/100))
}

// Notifier fans a message out to every configured channel (Slack, Discord,
// Telegram). Paper-mode trade/settlement alerts can be suppressed
// separately from system alerts (errors, circuit breaker, startup/shutdown),
// which always fire regardless of trading mode.
type Notifier struct {
	slack    *SlackNotifier
	discord  *DiscordNotifier
	telegram *TelegramNotifier

	suppressPaperAlerts bool
}

// NewNotifier creates a unified notifier across every configured channel.
// suppressPaperAlerts mutes trade and settlement alerts for paper trades
// (system alerts still fire) — useful when paper trading runs unattended
// and only live trades should page a human.
func NewNotifier(slackWebhookURL, discordWebhookURL, telegramToken, telegramChatID string, suppressPaperAlerts bool) *Notifier {
	n := &Notifier{
		slack:               NewSlackNotifier(slackWebhookURL),
		discord:             NewDiscordNotifier(discordWebhookURL),
		telegram:            NewTelegramNotifier(telegramToken, telegramChatID),
		suppressPaperAlerts: suppressPaperAlerts,
	}

	if n.slack.IsEnabled() {
		log.Println("[Notify] Slack notifications enabled")
	}
	if n.discord.IsEnabled() {
		log.Println("[Notify] Discord notifications enabled")
	}
	if n.telegram.IsEnabled() {
		log.Println("[Notify] Telegram notifications enabled")
	}

	return n
}

// IsEnabled returns true if any notification channel is enabled.
func (n *Notifier) IsEnabled() bool {
	return n.slack.IsEnabled() || n.discord.IsEnabled() || n.telegram.IsEnabled()
}

// Send sends a simple text message to all channels.
func (n *Notifier) Send(text string) {
	if n.slack.IsEnabled() {
		if err := n.slack.Send(text); err != nil {
			log.Printf("[Notify] Slack error: %v", err)
		}
	}
	if n.discord.IsEnabled() {
		if err := n.discord.Send(text); err != nil {
			log.Printf("[Notify] Discord error: %v", err)
		}
	}
	if n.telegram.IsEnabled() {
		if err := n.telegram.Send(text); err != nil {
			log.Printf("[Notify] Telegram error: %v", err)
		}
	}
}

// TradeAlert sends a trade execution alert. Suppressed for paper trades
// when paper alert suppression is on.
func (n *Notifier) TradeAlert(city, ticker, side string, priceCents, quantity, costCents int, forecast float64, orderID string, isPaper bool) {
	if isPaper && n.suppressPaperAlerts {
		return
	}
	cost := float64(costCents) / 100
	if n.slack.IsEnabled() {
		if err := n.slack.SendTradeAlert(city, ticker, side, priceCents, quantity, cost, forecast, orderID); err != nil {
			log.Printf("[Notify] Slack error: %v", err)
		}
	}
	if n.discord.IsEnabled() {
		if err := n.discord.SendTradeAlert(city, ticker, side, priceCents, quantity, cost, forecast, orderID); err != nil {
			log.Printf("[Notify] Discord error: %v", err)
		}
	}
	if n.telegram.IsEnabled() {
		if err := n.telegram.SendTradeAlert(city, ticker, side, priceCents, quantity, cost, forecast, orderID); err != nil {
			log.Printf("[Notify] Telegram error: %v", err)
		}
	}
}

// Settlement sends a settlement outcome alert. Suppressed for paper trades
// when paper alert suppression is on.
func (n *Notifier) Settlement(ticker string, won bool, pnlCents, totalPnLCents int, actualTemp float64, haveActual bool, isPaper bool) {
	if isPaper && n.suppressPaperAlerts {
		return
	}
	if n.slack.IsEnabled() {
		if err := n.slack.SendSettlement(ticker, won, pnlCents, totalPnLCents, actualTemp, haveActual); err != nil {
			log.Printf("[Notify] Slack error: %v", err)
		}
	}
	if n.discord.IsEnabled() {
		if err := n.discord.SendSettlement(ticker, won, pnlCents, totalPnLCents, actualTemp, haveActual); err != nil {
			log.Printf("[Notify] Discord error: %v", err)
		}
	}
	if n.telegram.IsEnabled() {
		if err := n.telegram.SendSettlement(ticker, won, pnlCents, totalPnLCents, actualTemp, haveActual); err != nil {
			log.Printf("[Notify] Telegram error: %v", err)
		}
	}
}

// CircuitBreaker sends a circuit-breaker trip alert. Never suppressed — it
// signals a state the operator needs to know about regardless of mode.
func (n *Notifier) CircuitBreaker(reason string) {
	if n.slack.IsEnabled() {
		if err := n.slack.SendCircuitBreaker(reason); err != nil {
			log.Printf("[Notify] Slack error: %v", err)
		}
	}
	if n.discord.IsEnabled() {
		if err := n.discord.SendCircuitBreaker(reason); err != nil {
			log.Printf("[Notify] Discord error: %v", err)
		}
	}
	if n.telegram.IsEnabled() {
		if err := n.telegram.SendCircuitBreaker(reason); err != nil {
			log.Printf("[Notify] Telegram error: %v", err)
		}
	}
}

// DailySummary sends the daily P&L summary.
func (n *Notifier) DailySummary(trades, wins int, totalCostCents, totalProfitCents, netPnLCents int, winRate float64) {
	totalCost := float64(totalCostCents) / 100
	totalProfit := float64(totalProfitCents) / 100
	netPnL := float64(netPnLCents) / 100
	if n.slack.IsEnabled() {
		if err := n.slack.SendDailySummary(trades, wins, totalCost, totalProfit, netPnL, winRate); err != nil {
			log.Printf("[Notify] Slack error: %v", err)
		}
	}
	if n.discord.IsEnabled() {
		if err := n.discord.SendDailySummary(trades, wins, totalCost, totalProfit, netPnL, winRate); err != nil {
			log.Printf("[Notify] Discord error: %v", err)
		}
	}
	if n.telegram.IsEnabled() {
		if err := n.telegram.SendDailySummary(trades, wins, totalCost, totalProfit, netPnL, winRate); err != nil {
			log.Printf("[Notify] Telegram error: %v", err)
		}
	}
}

// Error sends an error alert.
func (n *Notifier) Error(component, message string) {
	if n.slack.IsEnabled() {
		if err := n.slack.SendError(component, message); err != nil {
			log.Printf("[Notify] Slack error: %v", err)
		}
	}
	if n.discord.IsEnabled() {
		if err := n.discord.SendError(component, message); err != nil {
			log.Printf("[Notify] Discord error: %v", err)
		}
	}
	if n.telegram.IsEnabled() {
		if err := n.telegram.SendError(component, message); err != nil {
			log.Printf("[Notify] Telegram error: %v", err)
		}
	}
}

// Startup sends a startup notification. The balance is rendered as currency
// and the start time logged relative to now.
func (n *Notifier) Startup(balanceCents int, config string) {
	balance := float64(balanceCents) / 100
	log.Printf("[Notify] starting up at %s (balance %s)", humanize.Time(time.Now()), formatUSD(balanceCents))

	if n.slack.IsEnabled() {
		if err := n.slack.SendStartup(balance, config); err != nil {
			log.Printf("[Notify] Slack error: %v", err)
		}
	}
	if n.discord.IsEnabled() {
		if err := n.discord.SendStartup(balance, config); err != nil {
			log.Printf("[Notify] Discord error: %v", err)
		}
	}
	if n.telegram.IsEnabled() {
		if err := n.telegram.SendStartup(balance, config); err != nil {
			log.Printf("[Notify] Telegram error: %v", err)
		}
	}
}

// Shutdown sends a shutdown notification.
func (n *Notifier) Shutdown(reason string, stats map[string]interface{}) {
	if n.slack.IsEnabled() {
		if err := n.slack.SendShutdown(reason, stats); err != nil {
			log.Printf("[Notify] Slack error: %v", err)
		}
	}
	if n.discord.IsEnabled() {
		if err := n.discord.SendShutdown(reason, stats); err != nil {
			log.Printf("[Notify] Discord error: %v", err)
		}
	}
	if n.telegram.IsEnabled() {
		if err := n.telegram.SendShutdown(reason, stats); err != nil {
			log.Printf("[Notify] Telegram error: %v", err)
		}
	}
}
