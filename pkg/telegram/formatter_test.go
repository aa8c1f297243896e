package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatSignalAlert(t *testing.T) {
	validUntil := time.Date(2026, time.August, 31, 18, 0, 0, 0, time.UTC)

	message := FormatSignalAlert("KRW-BTC", 50000000, 52500000, 49000000, 85, "volume surge 3.2x above average", validUntil, false)

	assert.Contains(t, message, "[KRW-BTC] Buy Signal")
	assert.Contains(t, message, "Entry: 50,000,000")
	assert.Contains(t, message, "Target: 52,500,000")
	assert.Contains(t, message, "Stop Loss: 49,000,000")
	assert.Contains(t, message, "Confidence: 85/100")
	assert.Contains(t, message, "volume surge 3.2x above average")
	assert.Contains(t, message, "Valid until 2026-08-31 18:00")
	assert.NotContains(t, message, "Bonus")
}

func TestFormatSignalAlertBonusTag(t *testing.T) {
	message := FormatSignalAlert("KRW-ETH", 4200000, 4410000, 4116000, 90, "", time.Now(), true)

	assert.Contains(t, message, "Bonus delivery beyond your plan quota")
}

func TestFormatSurgeAlert(t *testing.T) {
	fresh := FormatSurgeAlert("KRW-SOL", 82, 250000, false)
	assert.Contains(t, fresh, "Surge Detected")
	assert.Contains(t, fresh, "Price: 250,000")
	assert.Contains(t, fresh, "Score: 82/100")

	repeat := FormatSurgeAlert("KRW-SOL", 82, 250000, true)
	assert.Contains(t, repeat, "Additional Buy Opportunity")
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		want  string
	}{
		{name: "grouped whole units", price: 50000000, want: "50,000,000"},
		{name: "four digits", price: 1234, want: "1,234"},
		{name: "three digits keep decimals", price: 850.5, want: "850.50"},
		{name: "sub unit", price: 0.1234, want: "0.12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatPrice(tt.price))
		})
	}
}
