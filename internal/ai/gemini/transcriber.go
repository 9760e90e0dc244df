package gemini

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const transcribePrompt = "Transcribe the speech in this recording verbatim. Return only the transcript text without timestamps, speaker labels or commentary."

var audioMIMETypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mp3",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".aac":  "audio/aac",
}

type fileGenerator interface {
	GenerateWithFile(ctx context.Context, prompt string, data []byte, mimeType string) (string, error)
}

// Transcriber turns audio recordings into text with a multimodal Gemini model.
type Transcriber struct {
	generator fileGenerator
	logger    *zap.Logger
}

// NewTranscriber returns a Transcriber backed by the generator.
func NewTranscriber(generator fileGenerator, log *zap.Logger) *Transcriber {
	if log == nil {
		log = zap.NewNop()
	}
	return &Transcriber{generator: generator, logger: log}
}

// Transcribe reads the audio file and returns its transcript.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	mimeType, ok := audioMIMETypes[strings.ToLower(filepath.Ext(audioPath))]
	if !ok {
		return "", fmt.Errorf("unsupported audio format %q", filepath.Ext(audioPath))
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}

	t.logger.Debug("transcribing audio", zap.String("path", audioPath), zap.Int("bytes", len(data)))

	text, err := t.generator.GenerateWithFile(ctx, transcribePrompt, data, mimeType)
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", filepath.Base(audioPath), err)
	}

	return strings.TrimSpace(text), nil
}
