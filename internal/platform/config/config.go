package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	RequestTimeout time.Duration
	AuditBuffer    int
	RateLimit      int
	RateWindow     time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("DOCKET_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	timeout := 30 * time.Second
	if raw := os.Getenv("DOCKET_REQUEST_TIMEOUT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			timeout = parsed
		}
	}

	rateLimit := 300
	if raw := os.Getenv("DOCKET_RATE_LIMIT"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			rateLimit = parsed
		}
	}

	return Server{
		Addr:           addr,
		RequestTimeout: timeout,
		AuditBuffer:    256,
		RateLimit:      rateLimit,
		RateWindow:     time.Minute,
	}
}
