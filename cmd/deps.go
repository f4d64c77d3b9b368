package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/ai/gemini"
	"github.com/spigell/interviewer/internal/confidence"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/knowledge"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/playback"
	"github.com/spigell/interviewer/internal/secrets"
)

const provider = "gemini"

// buildDeps wires the engine collaborators from config. The returned func
// releases whatever was opened.
func buildDeps(ctx context.Context, config *Config, log *zap.Logger) (interview.Deps, func(), error) {
	deps := interview.Deps{Logger: log}
	cleanup := func() {}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  config.Gemini.APIKeyFile,
		Value: config.Gemini.APIKey,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return deps, cleanup, fmt.Errorf("%w (set gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	client, err := gemini.NewClient(ctx, apiKey)
	if err != nil {
		return deps, cleanup, err
	}

	retry := ai.RetryPolicy{Retries: config.Gemini.MaxRetries, Delay: config.Gemini.RetryDelay}
	genLogger := logger.WithCommonFields(log, provider, config.Interview.Interviewer.Model).
		With(zap.Int("ai_retry_attempts", retry.Attempts()))
	deps.Generator = gemini.NewGenerator(client, config.Interview.Interviewer.Model, retry, genLogger)
	deps.Transcriber = gemini.NewTranscriber(client, config.Gemini.TranscriptionModel,
		logger.WithCommonFields(log, provider, config.Gemini.TranscriptionModel))

	if config.Confidence.Enabled {
		deps.Confidence = confidence.NewClient(config.Confidence.Endpoint, config.Confidence.Timeout,
			logger.Component(log, "confidence"))
	}

	if config.Playback.Enabled {
		deps.Player = playback.NewClient(config.Playback.Config, logger.Component(log, "playback"))
	}

	store, err := openKnowledge(ctx, config, log)
	if err != nil {
		log.Warn("knowledge base unavailable, planning without retrieval", zap.Error(err))
	}
	if store != nil {
		deps.Retriever = store
		cleanup = func() { store.Close() }
	}

	return deps, cleanup, nil
}

// openKnowledge returns nil when no knowledge base is configured.
func openKnowledge(ctx context.Context, config *Config, log *zap.Logger) (*knowledge.Store, error) {
	if config.Knowledge.Path == "" {
		return nil, nil
	}
	return knowledge.Open(ctx, config.Knowledge.Path, logger.Component(log, "knowledge"))
}
