package engine

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultHandshakeTimeout bounds the websocket opening handshake
	DefaultHandshakeTimeout = 30 * time.Second
	// DefaultDialRate is the sustained number of connections opened per second
	DefaultDialRate = 5.0
	// DefaultDialBurst is the number of connections that may open at once
	DefaultDialBurst = 5
)

// Conn is the subset of *websocket.Conn a session uses
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Dialer opens a connection to the checking service
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

// DialerConfig configures a WebsocketDialer
type DialerConfig struct {
	HandshakeTimeout time.Duration
	Rate             float64 // Connections per second (default: 5)
	Burst            int     // Connections allowed at once (default: 5)
	Retry            RetryConfig
	Logger           *zap.Logger
}

// WebsocketDialer dials with gorilla/websocket, pacing opens through a
// token bucket shared by every session
type WebsocketDialer struct {
	dialer  *websocket.Dialer
	limiter *rate.Limiter
	retry   RetryConfig
	logger  *zap.Logger
}

// NewDialer creates a paced websocket dialer
func NewDialer(cfg DialerConfig) *WebsocketDialer {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultDialRate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultDialBurst
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &WebsocketDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
		retry:   cfg.Retry.withDefaults(),
		logger:  cfg.Logger,
	}
}

// Dial opens a websocket connection, retrying per the configured backoff
func (d *WebsocketDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	attempt := 0
	return retryWithBackoff(ctx, d.retry, func() (Conn, error) {
		attempt++
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("dial rate limit: %w", err)
		}
		conn, resp, err := d.dialer.DialContext(ctx, url, header)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			d.logger.Debug("dial failed",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if resp != nil {
				return nil, fmt.Errorf("failed to dial %s: status %d: %w", url, resp.StatusCode, err)
			}
			return nil, fmt.Errorf("failed to dial %s: %w", url, err)
		}
		return conn, nil
	})
}
