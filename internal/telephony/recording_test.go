package telephony

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeRecordingURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"https://api.twilio.com/rec/RE1", "https://api.twilio.com/rec/RE1.wav"},
		{"https://api.twilio.com/rec/RE1.wav", "https://api.twilio.com/rec/RE1.wav"},
		{"https://api.twilio.com/rec/RE1.mp3", "https://api.twilio.com/rec/RE1.mp3"},
		{"https://api.twilio.com/rec/RE1.WAV", "https://api.twilio.com/rec/RE1.WAV"},
		{"https://api.twilio.com/rec/RE1?Download=true", "https://api.twilio.com/rec/RE1.wav?Download=true"},
	}
	for _, tc := range cases {
		if got := NormalizeRecordingURL(tc.in); got != tc.want {
			t.Fatalf("NormalizeRecordingURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFetch_SendsBasicAuth(t *testing.T) {
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		w.Header().Set("Content-Type", "audio/x-wav")
		_, _ = w.Write([]byte("RIFFdata"))
	}))
	defer srv.Close()

	f, err := NewRecordingFetcher("AC123", "token")
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}

	rec, err := f.Fetch(context.Background(), srv.URL+"/rec/RE1.wav")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotUser != "AC123" || gotPass != "token" {
		t.Fatalf("expected basic auth credentials, got %q/%q", gotUser, gotPass)
	}
	if string(rec.Data) != "RIFFdata" {
		t.Fatalf("unexpected body %q", rec.Data)
	}
	if rec.ContentType != "audio/x-wav" {
		t.Fatalf("unexpected content type %q", rec.ContentType)
	}
	if rec.Filename != "RE1.wav" {
		t.Fatalf("unexpected filename %q", rec.Filename)
	}
}

func TestFetch_NonSuccessIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such recording", http.StatusNotFound)
	}))
	defer srv.Close()

	f, _ := NewRecordingFetcher("AC123", "token")
	if _, err := f.Fetch(context.Background(), srv.URL+"/rec/missing.wav"); err == nil {
		t.Fatalf("expected error for 404")
	}
}

func TestNewRecordingFetcher_RequiresCredentials(t *testing.T) {
	if _, err := NewRecordingFetcher("", "token"); err == nil {
		t.Fatalf("expected error for missing account sid")
	}
	if _, err := NewRecordingFetcher("AC123", ""); err == nil {
		t.Fatalf("expected error for missing auth token")
	}
}
