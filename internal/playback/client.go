// Package playback forwards interviewer utterances to the text-to-speech
// player over a plain TCP connection.
package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/utils"
)

const (
	DefaultAddr         = "127.0.0.1:5678"
	DefaultDialTimeout  = 5 * time.Second
	DefaultWriteTimeout = 5 * time.Second
	DefaultAckTimeout   = 5 * time.Second

	maxAckBytes = 1024
)

var ErrEmptyText = errors.New("playback text is empty")

type Config struct {
	Addr         string        `mapstructure:"addr"`
	DialTimeout  time.Duration `mapstructure:"dial-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
	AckTimeout   time.Duration `mapstructure:"ack-timeout"`
}

type Client struct {
	cfg    Config
	dialer net.Dialer
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = DefaultAckTimeout
	}

	return &Client{
		cfg:    cfg,
		dialer: net.Dialer{Timeout: cfg.DialTimeout},
		logger: logger,
	}
}

// Send writes text and half-closes the connection. Waiting for the player's
// acknowledgment is best effort: a missing or late ack still counts as sent.
func (c *Client) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}

	c.logger.Info("sending text to player",
		zap.String("addr", c.cfg.Addr),
		zap.String("text", utils.TruncateForLog(text, 80)),
	)

	conn, err := c.dialer.DialContext(ctx, "tcp", c.cfg.Addr)
	if err != nil {
		return fmt.Errorf("connect to player %s: %w", c.cfg.Addr, err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := io.WriteString(conn, text); err != nil {
		return fmt.Errorf("write to player: %w", err)
	}

	if hc, ok := conn.(interface{ CloseWrite() error }); ok {
		if err := hc.CloseWrite(); err != nil {
			return fmt.Errorf("half-close player connection: %w", err)
		}
	}

	c.readAck(conn)
	return nil
}

func (c *Client) readAck(conn net.Conn) {
	if err := conn.SetReadDeadline(time.Now().Add(c.cfg.AckTimeout)); err != nil {
		c.logger.Warn("failed to set ack deadline", zap.Error(err))
		return
	}

	buf := make([]byte, maxAckBytes)
	n, err := conn.Read(buf)
	switch {
	case n > 0:
		c.logger.Info("player acknowledged text", zap.String("ack", strings.TrimSpace(string(buf[:n]))))
	case err == nil || errors.Is(err, io.EOF):
		c.logger.Warn("player closed connection without acknowledgment")
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			c.logger.Warn("timed out waiting for player acknowledgment")
			return
		}
		c.logger.Warn("failed to read player acknowledgment", zap.Error(err))
	}
}
