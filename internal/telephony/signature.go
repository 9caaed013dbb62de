package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// SignatureHeader is the header the provider puts its request signature in.
const SignatureHeader = "X-Twilio-Signature"

var (
	ErrMissingSignature = errors.New("telephony: missing signature header")
	ErrBadSignature     = errors.New("telephony: signature mismatch")
)

// SignatureVerifier authenticates inbound webhook requests.
//
// The provider signs each callback by concatenating the full request URL with
// every POST parameter sorted by name (name immediately followed by value, no
// separators or escaping), HMAC-SHA1ing that string with the account's auth
// token and base64-encoding the digest.
//
// Verification is pure: no side effects, fails closed.
type SignatureVerifier struct {
	authToken []byte

	// BaseURL, when set, replaces the scheme+host of the request when
	// reconstructing the signed URL. Needed behind proxies that rewrite the
	// Host header.
	BaseURL string
}

// NewSignatureVerifier builds a verifier. An empty auth token is a fatal
// misconfiguration, never a bypass.
func NewSignatureVerifier(authToken, baseURL string) (*SignatureVerifier, error) {
	if authToken == "" {
		return nil, errors.New("telephony: auth token is required for signature verification")
	}
	return &SignatureVerifier{authToken: []byte(authToken), BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Sign computes the expected signature for a URL and set of form parameters.
func (v *SignatureVerifier) Sign(rawURL string, form url.Values) string {
	var b strings.Builder
	b.WriteString(rawURL)

	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		b.WriteString(k)
		for _, val := range form[k] {
			b.WriteString(val)
		}
	}

	mac := hmac.New(sha1.New, v.authToken)
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify checks a claimed signature against the canonical representation.
// The comparison is constant-time.
func (v *SignatureVerifier) Verify(rawURL string, form url.Values, signature string) error {
	if signature == "" {
		return ErrMissingSignature
	}
	expected := v.Sign(rawURL, form)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

// VerifyRequest validates an inbound webhook request in place. The form body
// must already be parsed (r.PostForm populated); query parameters are part of
// the signed URL, not the parameter set.
func (v *SignatureVerifier) VerifyRequest(r *http.Request) error {
	return v.Verify(v.requestURL(r), r.PostForm, r.Header.Get(SignatureHeader))
}

// requestURL reconstructs the exact URL the provider signed.
func (v *SignatureVerifier) requestURL(r *http.Request) string {
	uri := r.URL.RequestURI()
	if v.BaseURL != "" {
		return v.BaseURL + uri
	}

	scheme := "https"
	if r.TLS == nil {
		if fp := r.Header.Get("X-Forwarded-Proto"); fp != "" {
			scheme = fp
		} else {
			scheme = "http"
		}
	}
	return scheme + "://" + r.Host + uri
}
