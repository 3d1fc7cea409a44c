package server

import (
	"time"

	"chordring/internal/logger"
)

// Option is a functional option for configuring the Server.
type Option func(*Server)

// WithLogger injects a custom logger into the Server.
func WithLogger(lgr logger.Logger) Option {
	return func(s *Server) {
		s.lgr = lgr
	}
}

// WithReadTimeout bounds how long a single connection may take to send its
// request line before the server gives up on it.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.readTimeout = d }
}
