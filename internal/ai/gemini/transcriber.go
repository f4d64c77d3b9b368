package gemini

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/interviewer/internal/ai"
)

const (
	defaultTranscriptionModel = "gemini-1.5-flash-latest"
	maxInlineAudioBytes       = 20 << 20
	noSpeechReply             = "NO_SPEECH"
)

const transcriptionPrompt = `Transcribe the spoken English in this recording verbatim.
Reply with the transcript only, without commentary or timestamps.
If the recording contains no recognizable speech, reply with exactly ` + noSpeechReply + `.`

var audioMIMETypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mp3",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".aac":  "audio/aac",
	".aiff": "audio/aiff",
	".m4a":  "audio/mp4",
	".webm": "audio/webm",
}

// Transcriber implements ai.Transcriber by sending the recording inline to Gemini.
// It makes a single attempt per call.
type Transcriber struct {
	models   modelsAPI
	model    string
	logger   *zap.Logger
	readFile func(string) ([]byte, error)
}

func NewTranscriber(client *genai.Client, model string, logger *zap.Logger) *Transcriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultTranscriptionModel
	}

	t := &Transcriber{model: model, logger: logger, readFile: os.ReadFile}
	if client != nil {
		t.models = client.Models
	}
	return t
}

func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if t == nil || t.models == nil {
		return "", errors.New("speech-to-text client is not initialized")
	}

	audioPath = strings.TrimSpace(audioPath)
	if audioPath == "" {
		return "", errors.New("audio file path is empty")
	}

	data, err := t.readFile(audioPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("audio file not found: %q", audioPath)
		}
		return "", fmt.Errorf("read audio file %q: %w", audioPath, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("audio file is empty: %q", filepath.Base(audioPath))
	}
	if len(data) > maxInlineAudioBytes {
		return "", fmt.Errorf("audio file %q exceeds %d bytes", filepath.Base(audioPath), maxInlineAudioBytes)
	}

	mimeType := audioMIMEType(audioPath)
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(transcriptionPrompt),
			genai.NewPartFromBytes(data, mimeType),
		}, genai.RoleUser),
	}

	t.logger.Debug("transcribing audio",
		zap.String("model", t.model),
		zap.String("audio_path", audioPath),
		zap.String("mime_type", mimeType),
		zap.Int("bytes", len(data)),
	)

	resp, err := t.models.GenerateContent(ctx, t.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("speech-to-text request: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("speech-to-text returned no candidates")
	}

	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		return "", fmt.Errorf("speech-to-text stopped (reason: %s)", candidate.FinishReason)
	}

	text := candidateText(candidate)
	if text == "" || strings.EqualFold(strings.Trim(text, " ."), noSpeechReply) {
		t.logger.Info("no speech recognized", zap.String("audio_path", audioPath))
		return ai.NoSpeechTranscript, nil
	}

	return text, nil
}

func audioMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if known, ok := audioMIMETypes[ext]; ok {
		return known
	}
	if guessed := mime.TypeByExtension(ext); strings.HasPrefix(guessed, "audio/") {
		return guessed
	}
	return "audio/wav"
}
