package common

import "time"

const (
	// MaxRequestBody limits JSON request bodies for report/zone endpoints.
	MaxRequestBody = 1 << 20
	// RequestTimeout bounds each handler's store work.
	RequestTimeout = 5 * time.Second
	// MaxDescriptionRunes keeps free-text fields to a sane size.
	MaxDescriptionRunes = 2000
)
