package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tikozap-platform/internal/auth"
	"tikozap-platform/internal/calls"
	"tikozap-platform/internal/config"
	"tikozap-platform/internal/conversation"

	"github.com/gin-gonic/gin"
)

func newAPIFixture(t *testing.T) (*gin.Engine, *auth.Manager, *calls.Service, *calls.MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := auth.NewManager(config.AuthConfig{JWTSecret: "test-secret"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	repo := calls.NewMemoryRepo()
	svc := calls.NewService(repo, conversation.NewService(conversation.NewMemoryRepo()))

	h := &Handlers{Calls: svc}
	r := gin.New()
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(m))
	v1.GET("/items", h.ListItems)
	v1.GET("/calls", h.ListCalls)

	return r, m, svc, repo
}

func bearer(t *testing.T, m *auth.Manager, workspaceID string) string {
	t.Helper()
	token, err := m.Issue(time.Now(), "u1", workspaceID, "owner", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return "Bearer " + token
}

func TestListItems_ScopedToTokenWorkspace(t *testing.T) {
	r, m, svc, _ := newAPIFixture(t)

	for _, ws := range []string{"w1", "w1", "w2"} {
		_, err := svc.CreateAnswerMachineItem(context.Background(), calls.CreateItemRequest{
			WorkspaceID:    ws,
			ConversationID: "c-" + ws,
			Type:           calls.ItemTypeVoicemail,
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/items", nil)
	req.Header.Set("Authorization", bearer(t, m, "w1"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := strings.Count(w.Body.String(), `"workspace_id":"w1"`); got != 2 {
		t.Fatalf("expected 2 items for w1, got %d in %s", got, w.Body.String())
	}
	if strings.Contains(w.Body.String(), `"workspace_id":"w2"`) {
		t.Fatalf("items leaked across workspaces: %s", w.Body.String())
	}
}

func TestListItems_RequiresToken(t *testing.T) {
	r, _, _, _ := newAPIFixture(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/items", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestListCalls_EmptyIsArray(t *testing.T) {
	r, m, _, _ := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/calls", nil)
	req.Header.Set("Authorization", bearer(t, m, "w1"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"calls":[]`) {
		t.Fatalf("expected empty array, got %s", w.Body.String())
	}
}

func TestListCalls_ReturnsSessions(t *testing.T) {
	r, m, _, repo := newAPIFixture(t)

	err := repo.CreateSession(context.Background(), calls.CallSession{
		ID:             "cs1",
		WorkspaceID:    "w1",
		ProviderCallID: "CA1",
		Status:         calls.CallStatusCompleted,
		ConversationID: "c1",
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/calls", nil)
	req.Header.Set("Authorization", bearer(t, m, "w1"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"id":"cs1"`) || !strings.Contains(w.Body.String(), `"status":"COMPLETED"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}
