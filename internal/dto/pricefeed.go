package dto

// Candle is one OHLCV bar. Candle series are ordered most-recent-first, as the
// upstream API returns them.
type Candle struct {
	Market    string  `json:"market"`
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"opening_price"`
	High      float64 `json:"high_price"`
	Low       float64 `json:"low_price"`
	Close     float64 `json:"trade_price"`
	Volume    float64 `json:"candle_acc_trade_volume"`
}

// UpbitTicker is the subset of the ticker response the engine reads.
type UpbitTicker struct {
	Market     string  `json:"market"`
	TradePrice float64 `json:"trade_price"`
}

// UpbitCandle mirrors the hourly candle payload.
type UpbitCandle struct {
	Market       string  `json:"market"`
	TimestampMs  int64   `json:"timestamp"`
	OpeningPrice float64 `json:"opening_price"`
	HighPrice    float64 `json:"high_price"`
	LowPrice     float64 `json:"low_price"`
	TradePrice   float64 `json:"trade_price"`
	AccVolume    float64 `json:"candle_acc_trade_volume"`
}

// OrderResult is the opaque outcome of a placed order.
type OrderResult struct {
	OrderID        string  `json:"order_id"`
	FilledPrice    float64 `json:"filled_price"`
	FilledQuantity float64 `json:"filled_quantity"`
}
