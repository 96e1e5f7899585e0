package config

import "time"

const (
	// Listing
	DefaultPageSize = 20
	MaxPageSize     = 100

	// Validation
	MaxComplaintTextLength = 2000
	MaxCategoryTitleLength = 100

	// Realtime
	EventChannel     = "complaints:events"
	EventBufferSize  = 256
	ClientBufferSize = 64

	// Auth
	DefaultTokenTTL = 24 * time.Hour
)
