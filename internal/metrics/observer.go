package metrics

import (
	"strconv"
	"time"
)

// Observer records Easy-Template client events into the package metrics.
// It satisfies easytemplate.Observer.
type Observer struct{}

// APICall records one HTTP attempt. A zero status means a transport error.
func (Observer) APICall(op string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	APICallsTotal.WithLabelValues(op, label).Inc()
	APICallDuration.WithLabelValues(op).Observe(d.Seconds())
}

// Retry records a scheduled retry.
func (Observer) Retry(op string) {
	APIRetriesTotal.WithLabelValues(op).Inc()
}

// RateLimited records a 429 response.
func (Observer) RateLimited(op string) {
	APIRateLimitedTotal.WithLabelValues(op).Inc()
}

// TokenRefresh records a refresh outcome.
func (Observer) TokenRefresh(result string) {
	TokenRefreshesTotal.WithLabelValues(result).Inc()
}

// Login records a login outcome.
func (Observer) Login(result string) {
	LoginsTotal.WithLabelValues(result).Inc()
}

// TokenCacheError records a swallowed token cache failure.
func (Observer) TokenCacheError(op string) {
	TokenCacheErrorsTotal.WithLabelValues(op).Inc()
}
