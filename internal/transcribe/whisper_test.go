package transcribe

import (
	"context"
	"testing"
)

func TestIsPlaceholderKey(t *testing.T) {
	cases := []struct {
		key  string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"your-api-key", true},
		{"YOUR_API_KEY", true},
		{"changeme", true},
		{"sk-placeholder", true},
		{"sk-proj-real-looking-key", false},
	}
	for _, tc := range cases {
		if got := IsPlaceholderKey(tc.key); got != tc.want {
			t.Fatalf("IsPlaceholderKey(%q) = %v, want %v", tc.key, got, tc.want)
		}
	}
}

func TestNewWhisper_PlaceholderKeyDisables(t *testing.T) {
	tr := NewWhisper("your-api-key")
	text, err := tr.Transcribe(context.Background(), Audio{Data: []byte("RIFF"), Filename: "x.wav"})
	if err != nil {
		t.Fatalf("disabled transcriber must not fail: %v", err)
	}
	if text != "" {
		t.Fatalf("disabled transcriber must return empty text, got %q", text)
	}
}

func TestWhisper_EmptyAudioIsNoOp(t *testing.T) {
	tr := NewWhisper("sk-proj-real-looking-key")
	text, err := tr.Transcribe(context.Background(), Audio{})
	if err != nil {
		t.Fatalf("empty audio must not hit the API: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
}
