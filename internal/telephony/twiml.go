package telephony

import (
	"bytes"
	"encoding/xml"
)

// Minimal TwiML response builder.
// It intentionally avoids any provider SDK dependency; only the verbs the
// voicemail flow needs are modeled.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type twimlRecord struct {
	XMLName            xml.Name `xml:"Record"`
	Action             string   `xml:"action,attr,omitempty"`
	MaxLength          int      `xml:"maxLength,attr,omitempty"`
	PlayBeep           bool     `xml:"playBeep,attr"`
	Transcribe         bool     `xml:"transcribe,attr"`
	TranscribeCallback string   `xml:"transcribeCallback,attr,omitempty"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type twimlReject struct {
	XMLName xml.Name `xml:"Reject"`
	Reason  string   `xml:"reason,attr,omitempty"`
}

// VoicemailReceivedTwiML acknowledges a recorded message and ends the call.
func VoicemailReceivedTwiML() string {
	return mustRender(twimlResponse{Verbs: []any{
		twimlSay{Text: "Thank you. Your message has been recorded. Goodbye."},
		twimlHangup{},
	}})
}

// RecordVoicemailTwiML prompts the caller and starts a recording whose
// completion is posted to actionURL.
func RecordVoicemailTwiML(prompt, actionURL, transcribeURL string, maxSeconds int) string {
	if maxSeconds <= 0 {
		maxSeconds = 120
	}
	return mustRender(twimlResponse{Verbs: []any{
		twimlSay{Text: prompt},
		twimlRecord{
			Action:             actionURL,
			MaxLength:          maxSeconds,
			PlayBeep:           true,
			Transcribe:         transcribeURL != "",
			TranscribeCallback: transcribeURL,
		},
	}})
}

// RejectTwiML refuses the call outright.
func RejectTwiML() string {
	return mustRender(twimlResponse{Verbs: []any{twimlReject{Reason: "busy"}}})
}

func mustRender(r twimlResponse) string {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	// Encoding a static verb struct cannot fail; keep the API ergonomic.
	if err := enc.Encode(r); err != nil {
		panic(err)
	}
	if err := enc.Flush(); err != nil {
		panic(err)
	}
	return buf.String()
}
