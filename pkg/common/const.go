package common

const (
	KEY_LAST_PRICE       = "last_price:%s"
	KEY_SURGE_ALERT_SENT = "surge_alert_sent:%s:%d"
	KEY_SIGNAL_DEDUP     = "signal_dedup:%s"
)

const (
	KEY_LOG_HOOK_SEND_ALERT = "send_alert"
)
