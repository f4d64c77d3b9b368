// Package confidence calls the emotion analysis service that scores how
// confident a candidate sounded in a recorded answer.
package confidence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/utils"
)

const (
	DefaultEndpoint = "http://127.0.0.1:5003/analyze"
	DefaultTimeout  = 60 * time.Second

	notAvailable    = "N/A"
	maxErrorBodyLen = 200
)

// Result is the outcome of one analysis. Error is set whenever Score cannot
// be trusted, whatever the cause.
type Result struct {
	Score          *float64 `mapstructure:"score"`
	Rating         string   `mapstructure:"rating"`
	PrimaryEmotion string   `mapstructure:"primary_emotion"`
	Error          bool     `mapstructure:"error"`
	Message        string   `mapstructure:"message"`
}

// NotPerformed is the result recorded when no analysis was attempted.
func NotPerformed() Result {
	return Result{Rating: notAvailable, PrimaryEmotion: notAvailable, Error: true, Message: "Analysis not performed"}
}

func failed(message string) Result {
	r := NotPerformed()
	r.Message = message
	return r
}

type Client struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
}

func NewClient(endpoint string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if endpoint = strings.TrimSpace(endpoint); endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Analyze posts the absolute audio path to the service. It never fails: every
// problem is reported through Result.Error and Result.Message.
func (c *Client) Analyze(ctx context.Context, audioPath string) Result {
	absPath, err := filepath.Abs(audioPath)
	if err != nil {
		absPath = audioPath
	}

	body, err := json.Marshal(map[string]string{"audio_path": absPath})
	if err != nil {
		return failed(fmt.Sprintf("Unexpected error calling Emotion API: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return failed(fmt.Sprintf("Unexpected error calling Emotion API: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("calling emotion api", zap.String("endpoint", c.endpoint), zap.String("audio_path", absPath))

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.logger.Error("emotion api timeout", zap.Error(err))
			return failed("Emotion API Timeout")
		}
		c.logger.Error("emotion api connection error", zap.Error(err))
		return failed(fmt.Sprintf("Emotion API Connection Error: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen*4))
		message := fmt.Sprintf("Emotion API Request Error: Status %d. Response: %s",
			resp.StatusCode, utils.Prefix(strings.TrimSpace(string(snippet)), maxErrorBodyLen))
		c.logger.Error("emotion api request failed", zap.Int("status", resp.StatusCode))
		return failed(message)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if isTimeout(err) {
			return failed("Emotion API Timeout")
		}
		c.logger.Error("emotion api returned invalid json", zap.Error(err))
		return failed("Emotion API Invalid JSON Response")
	}

	var result Result
	if err := mapstructure.WeakDecode(payload, &result); err != nil {
		c.logger.Error("emotion api payload has unexpected shape", zap.Error(err))
		return failed("Emotion API Invalid JSON Response")
	}

	if result.Error {
		message := strings.TrimSpace(result.Message)
		if message == "" {
			message = "Emotion API reported an analysis error"
		}
		c.logger.Warn("emotion api reported an error", zap.String("message", message))
		return failed(message)
	}

	if result.Rating == "" {
		result.Rating = notAvailable
	}
	if result.PrimaryEmotion == "" {
		result.PrimaryEmotion = notAvailable
	}

	c.logger.Info("emotion analysis complete",
		zap.Float64p("score", result.Score),
		zap.String("rating", result.Rating),
		zap.String("primary_emotion", result.PrimaryEmotion),
	)
	return result
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
