package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/handlers"

	"cropvault-server/internal/config"
)

// NewServer wraps h with panic recovery, request ids, request logging and
// response compression.
func NewServer(cfg config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           Handler(h),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func Handler(h http.Handler) http.Handler {
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(true),
	)
	return recovery(requestID(requestLogger(handlers.CompressHandler(h))))
}
