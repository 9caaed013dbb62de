package widget

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tikozap-platform/internal/calls"
	"tikozap-platform/internal/conversation"

	"github.com/gin-gonic/gin"
)

type widgetFixture struct {
	router *gin.Engine
	repo   *MemoryRepo
	calls  *calls.Service
}

func newWidgetFixture(t *testing.T) *widgetFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := NewMemoryRepo()
	convs := conversation.NewService(conversation.NewMemoryRepo())
	callSvc := calls.NewService(calls.NewMemoryRepo(), convs)

	h := &Handlers{Widgets: repo, Calls: callSvc, Conversations: convs}

	r := gin.New()
	r.GET("/public/widget/config", h.GetConfig)
	r.POST("/public/widget/demo", h.RequestDemo)

	return &widgetFixture{router: r, repo: repo, calls: callSvc}
}

func (f *widgetFixture) seedWidget(t *testing.T, key string, enabled bool, domains ...string) {
	t.Helper()
	f.repo.Put(Widget{
		PublicKey:      key,
		WorkspaceID:    "w1",
		Enabled:        enabled,
		AllowedDomains: domains,
		Config:         json.RawMessage(`{"theme":"dark"}`),
		CreatedAt:      time.Now().UTC(),
	})
}

func (f *widgetFixture) do(r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	return w
}

func TestGetConfig(t *testing.T) {
	f := newWidgetFixture(t)
	f.seedWidget(t, "pk_live_1", true)

	w := f.do(httptest.NewRequest(http.MethodGet, "/public/widget/config?key=pk_live_1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"theme":"dark"`) {
		t.Fatalf("expected config payload: %s", w.Body.String())
	}

	if w := f.do(httptest.NewRequest(http.MethodGet, "/public/widget/config", nil)); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing key, got %d", w.Code)
	}
	if w := f.do(httptest.NewRequest(http.MethodGet, "/public/widget/config?key=nope", nil)); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown key, got %d", w.Code)
	}
}

func TestGetConfig_DisabledLooksMissing(t *testing.T) {
	f := newWidgetFixture(t)
	f.seedWidget(t, "pk_live_1", false)

	w := f.do(httptest.NewRequest(http.MethodGet, "/public/widget/config?key=pk_live_1", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("disabled widget must look missing, got %d", w.Code)
	}
}

func demoRequestBody(key, number string) *strings.Reader {
	b, _ := json.Marshal(map[string]string{
		"key":             key,
		"callback_number": number,
		"notes":           "interested in a demo",
	})
	return strings.NewReader(string(b))
}

func TestRequestDemo_CreatesCallbackItem(t *testing.T) {
	f := newWidgetFixture(t)
	f.seedWidget(t, "pk_live_1", true, "*.example.com")

	r := httptest.NewRequest(http.MethodPost, "/public/widget/demo", demoRequestBody("pk_live_1", "+15551230000"))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Origin", "https://shop.example.com")

	w := f.do(r)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}

	items, err := f.calls.ListItems(context.Background(), "w1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	it := items[0]
	if it.Type != calls.ItemTypeCallback || it.Status != calls.ItemStatusNew {
		t.Fatalf("unexpected item: %+v", it)
	}
	if it.CallbackNumber != "+15551230000" || it.Reason != "fallback" {
		t.Fatalf("unexpected item fields: %+v", it)
	}
	if it.ConversationID == "" {
		t.Fatalf("expected a conversation attached")
	}
}

func TestRequestDemo_RejectsDisallowedOrigin(t *testing.T) {
	f := newWidgetFixture(t)
	f.seedWidget(t, "pk_live_1", true, "*.example.com")

	r := httptest.NewRequest(http.MethodPost, "/public/widget/demo", demoRequestBody("pk_live_1", "+15551230000"))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Origin", "https://evil.test")

	if w := f.do(r); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}

	items, _ := f.calls.ListItems(context.Background(), "w1", 10)
	if len(items) != 0 {
		t.Fatalf("rejected request must not create items, got %d", len(items))
	}
}

func TestRequestDemo_Validation(t *testing.T) {
	f := newWidgetFixture(t)
	f.seedWidget(t, "pk_live_1", true, "*.example.com")

	r := httptest.NewRequest(http.MethodPost, "/public/widget/demo", demoRequestBody("pk_live_1", ""))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Origin", "https://shop.example.com")
	if w := f.do(r); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing callback number, got %d", w.Code)
	}

	r = httptest.NewRequest(http.MethodPost, "/public/widget/demo", demoRequestBody("pk_unknown", "+15551230000"))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Origin", "https://shop.example.com")
	if w := f.do(r); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown widget, got %d", w.Code)
	}
}
