package telephony

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"
)

// RecordingFetcher downloads call recordings from the provider.
//
// Recordings are fetched exactly once, immediately after the completion
// callback, so responses are never cached.
type RecordingFetcher struct {
	accountSID string
	authToken  string
	client     *http.Client
}

// maxErrorBodyBytes bounds how much of an error response is kept for
// diagnostics.
const maxErrorBodyBytes = 512

var audioExtensions = map[string]bool{
	".wav": true,
	".mp3": true,
}

func NewRecordingFetcher(accountSID, authToken string) (*RecordingFetcher, error) {
	if accountSID == "" || authToken == "" {
		return nil, errors.New("telephony: recording fetcher requires account sid and auth token")
	}
	return &RecordingFetcher{
		accountSID: accountSID,
		authToken:  authToken,
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Recording is a downloaded audio payload.
type Recording struct {
	Data        []byte
	ContentType string
	Filename    string
}

// NormalizeRecordingURL appends a default container extension when the
// provider reports an extensionless URL. The provider serves the same
// resource under multiple formats; .wav is the documented default.
// Best-effort heuristic, not a guaranteed-correct contract.
func NormalizeRecordingURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return trimmed
	}
	base, suffix := trimmed, ""
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		base, suffix = trimmed[:i], trimmed[i:]
	}
	if audioExtensions[strings.ToLower(path.Ext(base))] {
		return trimmed
	}
	return base + ".wav" + suffix
}

// Fetch downloads the recording with HTTP Basic credentials.
// A non-2xx response is a hard failure carrying the status code and a
// truncated body for diagnostics.
func (f *RecordingFetcher) Fetch(ctx context.Context, recordingURL string) (Recording, error) {
	u := NormalizeRecordingURL(recordingURL)
	if u == "" {
		return Recording{}, errors.New("telephony: recording url is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Recording{}, fmt.Errorf("telephony: build recording request: %w", err)
	}
	req.SetBasicAuth(f.accountSID, f.authToken)

	resp, err := f.client.Do(req)
	if err != nil {
		return Recording{}, fmt.Errorf("telephony: fetch recording: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return Recording{}, fmt.Errorf("telephony: recording fetch returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Recording{}, fmt.Errorf("telephony: read recording body: %w", err)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "audio/wav"
	}

	name := path.Base(req.URL.Path)
	if name == "." || name == "/" || name == "" {
		name = "recording.wav"
	}

	return Recording{Data: data, ContentType: ct, Filename: name}, nil
}
