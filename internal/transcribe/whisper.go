// Package transcribe converts recorded call audio into text.
package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Audio is the input to a transcription attempt.
type Audio struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Transcriber turns audio into text. Implementations return an empty string
// (not an error) when transcription is unavailable; errors are reserved for
// real service failures that should mark the owning item FAILED.
type Transcriber interface {
	Transcribe(ctx context.Context, a Audio) (string, error)
}

// placeholderKeys are values that show up in copied env files and sample
// configs. Treating them as "unconfigured" keeps voicemail capture working
// instead of failing every item against the speech-to-text API.
var placeholderKeys = map[string]bool{
	"your-api-key":    true,
	"your_api_key":    true,
	"changeme":        true,
	"sk-xxxx":         true,
	"sk-placeholder":  true,
	"sk-your-api-key": true,
}

// IsPlaceholderKey reports whether key is absent or a recognizable sample
// value.
func IsPlaceholderKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" {
		return true
	}
	return placeholderKeys[k]
}

// maxAttemptDuration bounds a single transcription call. The provider retries
// webhook delivery when our handler stalls, so the call must finish well
// before that timeout.
const maxAttemptDuration = 45 * time.Second

// Whisper transcribes audio via the OpenAI speech-to-text endpoint.
type Whisper struct {
	client *openai.Client
}

// NewWhisper returns a Transcriber. When the key is missing or a placeholder
// it returns a disabled transcriber whose Transcribe is a silent no-op.
func NewWhisper(apiKey string) Transcriber {
	if IsPlaceholderKey(apiKey) {
		return disabled{}
	}
	return &Whisper{client: openai.NewClient(apiKey)}
}

func (w *Whisper) Transcribe(ctx context.Context, a Audio) (string, error) {
	if len(a.Data) == 0 {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, maxAttemptDuration)
	defer cancel()

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   bytes.NewReader(a.Data),
		FilePath: a.Filename,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: whisper request failed: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// disabled is the no-credential transcriber: voicemail capture still
// succeeds, the transcript just stays empty.
type disabled struct{}

func (disabled) Transcribe(ctx context.Context, a Audio) (string, error) {
	return "", nil
}
