package strategy

import (
	"crypto-signals/internal/dto"
)

const (
	volumeSurgeThreshold = 2.0
	oversoldRSIThreshold = 30.0
	supportProximityPct  = 2.0
	uptrendMinDays       = 3
	momentumThresholdPct = 3.0
	rsiPeriod            = 14
	volumeLookback       = 24
)

// SurgeAnalyzer scores recent price action for surge candidacy. It is pure:
// the caller supplies candles ordered most-recent-first.
type SurgeAnalyzer struct{}

func NewSurgeAnalyzer() *SurgeAnalyzer {
	return &SurgeAnalyzer{}
}

// Analyze scores a candle series on a 0-100 scale and reports which
// components triggered.
func (a *SurgeAnalyzer) Analyze(market string, candles []dto.Candle) dto.SurgeAnalysis {
	analysis := dto.SurgeAnalysis{Market: market}
	if len(candles) < rsiPeriod+1 {
		return analysis
	}

	analysis.CurrentPrice = candles[0].Close

	breakdown := &analysis.Breakdown

	// Volume surge: latest bar against the trailing average.
	breakdown.VolumeSurgeRatio = volumeSurgeRatio(candles)
	if breakdown.VolumeSurgeRatio >= volumeSurgeThreshold {
		breakdown.VolumeSurgeTriggered = true
		analysis.Score += 30
	} else if breakdown.VolumeSurgeRatio >= volumeSurgeThreshold/2 {
		analysis.Score += 15 * (breakdown.VolumeSurgeRatio / volumeSurgeThreshold)
	}

	// Oversold oscillator.
	breakdown.RSI = relativeStrengthIndex(candles, rsiPeriod)
	if breakdown.RSI <= oversoldRSIThreshold {
		breakdown.OversoldTriggered = true
		analysis.Score += 25
	} else if breakdown.RSI <= 45 {
		analysis.Score += 10
	}

	// Proximity to the window low.
	breakdown.SupportProximityPct = supportProximity(candles)
	if breakdown.SupportProximityPct <= supportProximityPct {
		breakdown.NearSupportTriggered = true
		analysis.Score += 15
	}

	// Consecutive rising closes.
	breakdown.ConsecutiveUpDays = consecutiveUpCandles(candles)
	if breakdown.ConsecutiveUpDays >= uptrendMinDays {
		breakdown.UptrendTriggered = true
		analysis.Score += 15
	}

	// Short-horizon momentum.
	breakdown.MomentumStrength = momentumPct(candles)
	if breakdown.MomentumStrength >= momentumThresholdPct {
		breakdown.MomentumTriggered = true
		analysis.Score += 15
	}

	if analysis.Score > 100 {
		analysis.Score = 100
	}
	return analysis
}

func volumeSurgeRatio(candles []dto.Candle) float64 {
	lookback := volumeLookback
	if len(candles)-1 < lookback {
		lookback = len(candles) - 1
	}
	if lookback == 0 {
		return 0
	}

	var sum float64
	for _, c := range candles[1 : lookback+1] {
		sum += c.Volume
	}
	avg := sum / float64(lookback)
	if avg == 0 {
		return 0
	}
	return candles[0].Volume / avg
}

func relativeStrengthIndex(candles []dto.Candle, period int) float64 {
	var gains, losses float64
	// candles are most-recent-first; walk backwards through time pairs.
	for i := 0; i < period; i++ {
		change := candles[i].Close - candles[i+1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	if losses == 0 {
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}

func supportProximity(candles []dto.Candle) float64 {
	low := candles[0].Low
	for _, c := range candles {
		if c.Low < low {
			low = c.Low
		}
	}
	if low == 0 {
		return 100
	}
	return (candles[0].Close - low) / low * 100
}

func consecutiveUpCandles(candles []dto.Candle) int {
	count := 0
	for i := 0; i+1 < len(candles); i++ {
		if candles[i].Close > candles[i+1].Close {
			count++
		} else {
			break
		}
	}
	return count
}

func momentumPct(candles []dto.Candle) float64 {
	horizon := 6
	if len(candles) <= horizon {
		horizon = len(candles) - 1
	}
	base := candles[horizon].Close
	if base == 0 {
		return 0
	}
	return (candles[0].Close - base) / base * 100
}
