package telephony

import (
	"errors"
	"net/http"
	"strings"

	"tikozap-platform/internal/calls"
	"tikozap-platform/internal/metrics"
	"tikozap-platform/internal/transcribe"
	"tikozap-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WebhookHandlers terminates the provider's signed callbacks.
//
// Error posture (deliberate, see the provider's retry semantics):
// - bad or missing signature -> 403, nothing processed
// - missing routing query params -> 400
// - everything after a valid signature -> 200, even when internal processing
//   fails; a non-2xx would make the provider redeliver and double-apply side
//   effects. Failures are visible in logs and metrics only.
type WebhookHandlers struct {
	Verifier    *SignatureVerifier
	Calls       *calls.Service
	Fetcher     *RecordingFetcher
	Transcriber transcribe.Transcriber
}

// verifyAndParse parses the form body and checks the request signature.
// Returns false after writing the response when the request must not be
// processed.
func (h *WebhookHandlers) verifyAndParse(c *gin.Context, endpoint string) bool {
	if h.Verifier == nil {
		// Fatal misconfiguration, never a silent bypass.
		logger.FromGin(c).Error("webhook verifier not configured", "endpoint", endpoint)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server misconfigured"})
		return false
	}
	if err := c.Request.ParseForm(); err != nil {
		metrics.WebhookRequests.WithLabelValues(endpoint, metrics.OutcomeBadRequest).Inc()
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return false
	}
	if err := h.Verifier.VerifyRequest(c.Request); err != nil {
		metrics.WebhookRequests.WithLabelValues(endpoint, metrics.OutcomeRejected).Inc()
		logger.FromGin(c).Warn("webhook signature rejected", "endpoint", endpoint, "err", err)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return false
	}
	return true
}

// tenantScope extracts the routing query parameters shared by the callback
// endpoints. callSessionID may be optional for endpoints keyed by CallSid.
func tenantScope(c *gin.Context, endpoint string, requireSession bool) (workspaceID, callSessionID string, ok bool) {
	workspaceID = strings.TrimSpace(c.Query("tenantId"))
	callSessionID = strings.TrimSpace(c.Query("callSessionId"))
	if workspaceID == "" || (requireSession && callSessionID == "") {
		metrics.WebhookRequests.WithLabelValues(endpoint, metrics.OutcomeBadRequest).Inc()
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "tenantId and callSessionId are required"})
		return "", "", false
	}
	return workspaceID, callSessionID, true
}

// HandleCallStatus processes call lifecycle callbacks. Only a terminal
// "completed" status mutates the session; everything else is acknowledged
// and ignored.
func (h *WebhookHandlers) HandleCallStatus(c *gin.Context) {
	const endpoint = "call_status"
	if !h.verifyAndParse(c, endpoint) {
		return
	}
	workspaceID, callSessionID, ok := tenantScope(c, endpoint, true)
	if !ok {
		return
	}

	cb, err := ParseStatusCallback(c.Request)
	if err != nil {
		metrics.WebhookRequests.WithLabelValues(endpoint, metrics.OutcomeBadRequest).Inc()
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	ctx := c.Request.Context()
	if err := h.Calls.HandleCallStatus(ctx, workspaceID, callSessionID, cb.EffectiveStatus()); err != nil {
		// Benign ack: the provider cannot act on a 4xx/5xx here, and a retry
		// would not change the outcome.
		metrics.WebhookRequests.WithLabelValues(endpoint, metrics.OutcomeFailed).Inc()
		logger.FromGin(c).Error("call status update failed", "call_session_id", callSessionID, "err", err)
		c.JSON(http.StatusOK, gin.H{"ok": false})
		return
	}

	metrics.WebhookRequests.WithLabelValues(endpoint, metrics.OutcomeOK).Inc()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// HandleVoicemail processes the voicemail capture callback. It attaches the
// recording to the newest open voicemail item (creating one when the capture
// raced ahead of item creation) and always answers with the spoken
// confirmation document.
func (h *WebhookHandlers) HandleVoicemail(c *gin.Context) {
	const endpoint = "voicemail"
	if !h.verifyAndParse(c, endpoint) {
		return
	}
	workspaceID, callSessionID, ok := tenantScope(c, endpoint, true)
	if !ok {
		return
	}

	log := logger.FromGin(c)
	ctx := c.Request.Context()

	cb, err := ParseRecordingCallback(c.Request)
	if err != nil {
		metrics.WebhookRequests.WithLabelValues(endpoint, metrics.OutcomeBadRequest).Inc()
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	outcome := metrics.OutcomeOK
	if cb.RecordingURL != "" {
		_, attached, err := h.Calls.AttachRecording(ctx, workspaceID, callSessionID, cb.RecordingURL, cb.RecordingSid)
		switch {
		case err != nil:
			outcome = metrics.OutcomeFailed
			log.Error("attach recording failed", "call_session_id", callSessionID, "err", err)
		case !attached:
			// The diversion callback may not have created an item yet
			// (out-of-order delivery); create one carrying the recording.
			if err := h.createItemWithRecording(c, workspaceID, callSessionID, cb); err != nil {
				outcome = metrics.OutcomeFailed
				log.Error("voicemail item create failed", "call_session_id", callSessionID, "err", err)
			}
		}
	} else {
		outcome = metrics.OutcomeSkipped
		log.Info("voicemail callback without recording url", "call_session_id", callSessionID)
	}

	metrics.WebhookRequests.WithLabelValues(endpoint, outcome).Inc()

	// The caller hears the confirmation regardless of internal state; the
	// provider must not retry this callback.
	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, VoicemailReceivedTwiML())
}

func (h *WebhookHandlers) createItemWithRecording(c *gin.Context, workspaceID, callSessionID string, cb RecordingCallback) error {
	ctx := c.Request.Context()

	sess, err := h.Calls.GetSession(ctx, workspaceID, callSessionID)
	if err != nil {
		return err
	}

	it, err := h.Calls.CreateAnswerMachineItem(ctx, calls.CreateItemRequest{
		WorkspaceID:    workspaceID,
		ConversationID: sess.ConversationID,
		CallSessionID:  callSessionID,
		Type:           calls.ItemTypeVoicemail,
		Reason:         strings.TrimSpace(c.Query("reason")),
	})
	if err != nil {
		return err
	}

	_, _, err = h.Calls.AttachRecording(ctx, workspaceID, callSessionID, cb.RecordingURL, cb.RecordingSid)
	if err != nil {
		h.Calls.MarkFailed(ctx, workspaceID, it.ID)
	}
	return err
}

// HandleTranscription stores the provider's own transcription result.
// Responds 200 with {ok, received, status} in all post-signature cases.
func (h *WebhookHandlers) HandleTranscription(c *gin.Context) {
	const endpoint = "transcription"
	if !h.verifyAndParse(c, endpoint) {
		return
	}
	workspaceID, callSessionID, ok := tenantScope(c, endpoint, true)
	if !ok {
		return
	}

	cb, err := ParseTranscriptionCallback(c.Request)
	if err != nil {
		metrics.WebhookRequests.WithLabelValues(endpoint, metrics.OutcomeBadRequest).Inc()
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	ctx := c.Request.Context()
	received := false
	outcome := metrics.OutcomeSkipped

	if cb.TranscriptionText != "" {
		_, received, err = h.Calls.AttachTranscript(ctx, workspaceID, callSessionID, cb.TranscriptionText)
		if err != nil {
			outcome = metrics.OutcomeFailed
			logger.FromGin(c).Error("attach transcript failed", "call_session_id", callSessionID, "err", err)
		} else if received {
			outcome = metrics.OutcomeOK
		}
	}

	metrics.WebhookRequests.WithLabelValues(endpoint, outcome).Inc()
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"received": received,
		"status":   cb.TranscriptionStatus,
	})
}

// HandleRecordingStatus is the richer pipeline variant: on a completed
// recording it claims the newest unresolved voicemail item, downloads the
// audio, transcribes it and records the result. Fetch or transcription
// failures mark the item FAILED; the provider still gets a 200 because the
// call itself already completed.
func (h *WebhookHandlers) HandleRecordingStatus(c *gin.Context) {
	const endpoint = "recording_status"
	if !h.verifyAndParse(c, endpoint) {
		return
	}
	workspaceID, _, ok := tenantScope(c, endpoint, false)
	if !ok {
		return
	}

	log := logger.FromGin(c)
	ctx := c.Request.Context()

	cb, err := ParseRecordingCallback(c.Request)
	if err != nil {
		metrics.WebhookRequests.WithLabelValues(endpoint, metrics.OutcomeBadRequest).Inc()
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	if !strings.EqualFold(cb.RecordingStatus, "completed") || cb.RecordingURL == "" || cb.CallSid == "" {
		metrics.WebhookRequests.WithLabelValues(endpoint, metrics.OutcomeSkipped).Inc()
		c.JSON(http.StatusOK, gin.H{"ok": true, "received": false})
		return
	}

	sess, err := h.Calls.GetSessionByProviderCallID(ctx, workspaceID, cb.CallSid)
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			metrics.WebhookRequests.WithLabelValues(endpoint, metrics.OutcomeSkipped).Inc()
			log.Info("recording for unknown call", "call_sid", cb.CallSid)
			c.JSON(http.StatusOK, gin.H{"ok": true, "received": false})
			return
		}
		metrics.WebhookRequests.WithLabelValues(endpoint, metrics.OutcomeFailed).Inc()
		log.Error("session lookup failed", "call_sid", cb.CallSid, "err", err)
		c.JSON(http.StatusOK, gin.H{"ok": false})
		return
	}

	it, claimed, err := h.Calls.ClaimForTranscription(ctx, workspaceID, sess.ID, cb.RecordingURL, cb.RecordingSid)
	if err != nil {
		metrics.WebhookRequests.WithLabelValues(endpoint, metrics.OutcomeFailed).Inc()
		log.Error("item claim failed", "call_session_id", sess.ID, "err", err)
		c.JSON(http.StatusOK, gin.H{"ok": false})
		return
	}
	if !claimed {
		// Call answered by a human, or the item is already final.
		metrics.WebhookRequests.WithLabelValues(endpoint, metrics.OutcomeSkipped).Inc()
		log.Info("no unresolved voicemail item for recording", "call_session_id", sess.ID)
		c.JSON(http.StatusOK, gin.H{"ok": true, "received": false})
		return
	}

	text, err := h.fetchAndTranscribe(c, cb.RecordingURL)
	if err != nil {
		h.Calls.MarkFailed(ctx, workspaceID, it.ID)
		metrics.WebhookRequests.WithLabelValues(endpoint, metrics.OutcomeFailed).Inc()
		log.Error("recording pipeline failed", "item_id", it.ID, "err", err)
		c.JSON(http.StatusOK, gin.H{"ok": false})
		return
	}

	if _, _, err := h.Calls.CompleteTranscription(ctx, workspaceID, sess.ID, text); err != nil {
		h.Calls.MarkFailed(ctx, workspaceID, it.ID)
		metrics.WebhookRequests.WithLabelValues(endpoint, metrics.OutcomeFailed).Inc()
		log.Error("transcript store failed", "item_id", it.ID, "err", err)
		c.JSON(http.StatusOK, gin.H{"ok": false})
		return
	}

	metrics.WebhookRequests.WithLabelValues(endpoint, metrics.OutcomeOK).Inc()
	c.JSON(http.StatusOK, gin.H{"ok": true, "received": true})
}

func (h *WebhookHandlers) fetchAndTranscribe(c *gin.Context, recordingURL string) (string, error) {
	ctx := c.Request.Context()

	rec, err := h.Fetcher.Fetch(ctx, recordingURL)
	if err != nil {
		metrics.TranscriptionAttempts.WithLabelValues("fetch_error").Inc()
		return "", err
	}

	text, err := h.Transcriber.Transcribe(ctx, transcribe.Audio{
		Data:        rec.Data,
		Filename:    rec.Filename,
		ContentType: rec.ContentType,
	})
	if err != nil {
		metrics.TranscriptionAttempts.WithLabelValues("stt_error").Inc()
		return "", err
	}

	if text == "" {
		metrics.TranscriptionAttempts.WithLabelValues("empty").Inc()
	} else {
		metrics.TranscriptionAttempts.WithLabelValues("ok").Inc()
	}
	return text, nil
}
