package telephony

import (
	"strings"
	"testing"
)

func TestVoicemailReceivedTwiML(t *testing.T) {
	out := VoicemailReceivedTwiML()
	if !strings.HasPrefix(out, "<?xml") {
		t.Fatalf("expected xml declaration, got %q", out)
	}
	for _, want := range []string{"<Response>", "<Say>", "has been recorded", "<Hangup>"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}

func TestRecordVoicemailTwiML(t *testing.T) {
	out := RecordVoicemailTwiML("Leave a message.", "/webhooks/twilio/voicemail?tenantId=w1", "/webhooks/twilio/transcription?tenantId=w1", 90)
	for _, want := range []string{
		"Leave a message.",
		`action="/webhooks/twilio/voicemail?tenantId=w1"`,
		`maxLength="90"`,
		`transcribe="true"`,
		`transcribeCallback="/webhooks/twilio/transcription?tenantId=w1"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}

func TestRecordVoicemailTwiML_Defaults(t *testing.T) {
	out := RecordVoicemailTwiML("Hi.", "/cb", "", 0)
	if !strings.Contains(out, `maxLength="120"`) {
		t.Fatalf("expected default max length:\n%s", out)
	}
	if !strings.Contains(out, `transcribe="false"`) {
		t.Fatalf("expected transcription off without callback:\n%s", out)
	}
}

func TestRejectTwiML(t *testing.T) {
	out := RejectTwiML()
	if !strings.Contains(out, `<Reject reason="busy">`) && !strings.Contains(out, `<Reject reason="busy"/>`) {
		t.Fatalf("expected reject verb:\n%s", out)
	}
}
