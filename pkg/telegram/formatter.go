package telegram

import (
	"fmt"
	"strings"
	"time"
)

// FormatSignalAlert renders a distributed signal for Telegram delivery.
func FormatSignalAlert(market string, entryPrice, targetPrice, stopLoss, confidence float64, rationale string, validUntil time.Time, bonus bool) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("📈 [%s] Buy Signal\n", market))
	builder.WriteString(fmt.Sprintf("💰 Entry: %s\n", formatPrice(entryPrice)))
	builder.WriteString(fmt.Sprintf("🎯 Target: %s\n", formatPrice(targetPrice)))
	builder.WriteString(fmt.Sprintf("⚠️ Stop Loss: %s\n", formatPrice(stopLoss)))
	builder.WriteString(fmt.Sprintf("🔮 Confidence: %.0f/100\n", confidence))
	if rationale != "" {
		builder.WriteString(fmt.Sprintf("📋 %s\n", rationale))
	}
	builder.WriteString(fmt.Sprintf("⏰ Valid until %s\n", validUntil.Format("2006-01-02 15:04")))
	if bonus {
		builder.WriteString("🎁 Bonus delivery beyond your plan quota\n")
	}
	return builder.String()
}

// FormatSurgeAlert renders an auto-trading surge candidate alert.
func FormatSurgeAlert(market string, score, currentPrice float64, additionalBuy bool) string {
	var builder strings.Builder

	if additionalBuy {
		builder.WriteString(fmt.Sprintf("🔁 [%s] Additional Buy Opportunity\n", market))
	} else {
		builder.WriteString(fmt.Sprintf("🚀 [%s] Surge Detected\n", market))
	}
	builder.WriteString(fmt.Sprintf("💰 Price: %s\n", formatPrice(currentPrice)))
	builder.WriteString(fmt.Sprintf("📊 Score: %.0f/100\n", score))
	return builder.String()
}

// FormatExecutionReport renders an auto-trade execution confirmation.
func FormatExecutionReport(market string, amount, filledPrice float64, orderID string) string {
	return fmt.Sprintf("✅ [%s] Auto-trade executed\n💵 Amount: %s\n💰 Filled at: %s\n🧾 Order: %s\n",
		market, formatPrice(amount), formatPrice(filledPrice), orderID)
}

func formatPrice(price float64) string {
	if price >= 1000 {
		return groupDigits(fmt.Sprintf("%.0f", price))
	}
	return fmt.Sprintf("%.2f", price)
}

func groupDigits(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var builder strings.Builder
	rem := n % 3
	if rem > 0 {
		builder.WriteString(s[:rem])
	}
	for i := rem; i < n; i += 3 {
		if builder.Len() > 0 {
			builder.WriteString(",")
		}
		builder.WriteString(s[i : i+3])
	}
	return builder.String()
}
