package telephony

import (
	"net/http"
	"strings"
)

// Typed views over the provider's form-encoded callback payloads.
//
// The payload shape is an external contract not under our control: every
// field is optional from the parser's point of view, and unknown or
// malformed fields are simply absent. Handlers decide what is required.

// StatusCallback carries call lifecycle updates.
type StatusCallback struct {
	CallSid         string
	CallStatus      string
	RecordingStatus string
	From            string
	To              string
	Duration        string
}

// RecordingCallback is delivered when a recording becomes available.
type RecordingCallback struct {
	CallSid         string
	RecordingSid    string
	RecordingURL    string
	RecordingStatus string
	Duration        string
}

// TranscriptionCallback is delivered when the provider's own transcription
// of a recording finishes (or fails).
type TranscriptionCallback struct {
	CallSid             string
	TranscriptionSid    string
	TranscriptionText   string
	TranscriptionStatus string
	RecordingSid        string
}

func ParseStatusCallback(r *http.Request) (StatusCallback, error) {
	if err := r.ParseForm(); err != nil {
		return StatusCallback{}, err
	}
	return StatusCallback{
		CallSid:         r.PostFormValue("CallSid"),
		CallStatus:      r.PostFormValue("CallStatus"),
		RecordingStatus: r.PostFormValue("RecordingStatus"),
		From:            r.PostFormValue("From"),
		To:              r.PostFormValue("To"),
		Duration:        r.PostFormValue("CallDuration"),
	}, nil
}

// EffectiveStatus prefers CallStatus and falls back to RecordingStatus;
// some delivery configurations only populate the latter.
func (c StatusCallback) EffectiveStatus() string {
	if s := strings.TrimSpace(c.CallStatus); s != "" {
		return s
	}
	return strings.TrimSpace(c.RecordingStatus)
}

func ParseRecordingCallback(r *http.Request) (RecordingCallback, error) {
	if err := r.ParseForm(); err != nil {
		return RecordingCallback{}, err
	}
	return RecordingCallback{
		CallSid:         r.PostFormValue("CallSid"),
		RecordingSid:    r.PostFormValue("RecordingSid"),
		RecordingURL:    strings.TrimSpace(r.PostFormValue("RecordingUrl")),
		RecordingStatus: r.PostFormValue("RecordingStatus"),
		Duration:        r.PostFormValue("RecordingDuration"),
	}, nil
}

func ParseTranscriptionCallback(r *http.Request) (TranscriptionCallback, error) {
	if err := r.ParseForm(); err != nil {
		return TranscriptionCallback{}, err
	}
	text := r.PostFormValue("TranscriptionText")
	if text == "" {
		// Older webhook configurations send the text under "Transcription".
		text = r.PostFormValue("Transcription")
	}
	return TranscriptionCallback{
		CallSid:             r.PostFormValue("CallSid"),
		TranscriptionSid:    r.PostFormValue("TranscriptionSid"),
		TranscriptionText:   strings.TrimSpace(text),
		TranscriptionStatus: r.PostFormValue("TranscriptionStatus"),
		RecordingSid:        r.PostFormValue("RecordingSid"),
	}, nil
}
