package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ashwinyue/next-assistant/internal/config"
	"github.com/ashwinyue/next-assistant/internal/handler"
	"github.com/ashwinyue/next-assistant/internal/repository/inmem"
	"github.com/ashwinyue/next-assistant/internal/service"
	"github.com/ashwinyue/next-assistant/internal/service/auth"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newTestServer(t *testing.T, withAuth bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.AI.Primary.APIKey = ""
	cfg.AI.Secondary.APIKey = ""
	cfg.Engine.AsyncPostProcess = false

	reg := prometheus.NewRegistry()
	svcs, err := service.NewServices(context.Background(), inmem.NewRepositories(), cfg, service.Options{Registerer: reg})
	if err != nil {
		t.Fatal(err)
	}

	opts := Options{Gatherer: reg}
	ts := &testServer{t: t}
	if withAuth {
		issuer, err := auth.NewService("test-secret", time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		ts.token, _ = issuer.Issue("acme")
		opts.Auth = issuer
	}
	ts.router = SetupRouter(handler.NewHandlers(svcs), opts)
	return ts
}

func (s *testServer) do(method, path string, body interface{}) (int, envelope) {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func TestRouter_ConversationFlow(t *testing.T) {
	s := newTestServer(t, false)
	base := "/api/v1/tenants/acme"

	if code, _ := s.do(http.MethodPost, base+"/chat", gin.H{"session_id": "s0", "message": "hi"}); code != http.StatusNotFound {
		t.Fatalf("chat before init status = %d, want 404", code)
	}

	if code, _ := s.do(http.MethodPost, base+"/init", gin.H{"expertise_domain": "support", "personality": "calm"}); code != http.StatusOK {
		t.Fatalf("init status = %d", code)
	}

	code, env := s.do(http.MethodPost, base+"/knowledge", gin.H{"title": "Return Policy", "content": "Returns accepted within 30 days."})
	if code != http.StatusCreated {
		t.Fatalf("add knowledge status = %d (%s)", code, env.Msg)
	}
	var added struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(env.Data, &added)

	code, env = s.do(http.MethodGet, base+"/knowledge/search?q=return+policy", nil)
	if code != http.StatusOK || !strings.Contains(string(env.Data), "Return Policy") {
		t.Fatalf("search status = %d data = %s", code, env.Data)
	}

	code, env = s.do(http.MethodPost, base+"/chat", gin.H{"session_id": "s1", "message": "what is your return policy", "user_id": "u1"})
	if code != http.StatusOK {
		t.Fatalf("chat status = %d (%s)", code, env.Msg)
	}
	var reply struct {
		Response      string   `json:"response"`
		KnowledgeUsed []string `json:"knowledge_used"`
		Tier          string   `json:"tier"`
	}
	if err := json.Unmarshal(env.Data, &reply); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reply.Response, "30 days") || reply.Tier != "local" {
		t.Errorf("reply = %+v", reply)
	}
	if len(reply.KnowledgeUsed) != 1 || reply.KnowledgeUsed[0] != added.ID {
		t.Errorf("knowledge_used = %v, want [%s]", reply.KnowledgeUsed, added.ID)
	}

	code, env = s.do(http.MethodGet, base+"/sessions/s1/history?limit=10", nil)
	if code != http.StatusOK || !strings.Contains(string(env.Data), `"total":2`) {
		t.Errorf("history status = %d data = %s", code, env.Data)
	}

	if code, _ := s.do(http.MethodGet, base+"/memory/u1", nil); code != http.StatusOK {
		t.Errorf("memory status = %d", code)
	}
	code, env = s.do(http.MethodGet, base+"/analytics/summary", nil)
	if code != http.StatusOK || !strings.Contains(string(env.Data), `"total":1`) {
		t.Errorf("summary status = %d data = %s", code, env.Data)
	}

	if code, _ := s.do(http.MethodDelete, base+"/knowledge/"+added.ID, nil); code != http.StatusNoContent {
		t.Errorf("deactivate status = %d", code)
	}
	code, env = s.do(http.MethodGet, base+"/knowledge", nil)
	if code != http.StatusOK || !strings.Contains(string(env.Data), `"total":0`) {
		t.Errorf("list after deactivate = %d %s", code, env.Data)
	}
}

func TestRouter_Validation(t *testing.T) {
	s := newTestServer(t, false)
	base := "/api/v1/tenants/acme"
	s.do(http.MethodPost, base+"/init", gin.H{})

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
	}{
		{name: "chat without message", method: http.MethodPost, path: base + "/chat", body: gin.H{"session_id": "s1"}, wantStatus: http.StatusBadRequest},
		{name: "blank message", method: http.MethodPost, path: base + "/chat", body: gin.H{"session_id": "s1", "message": "   "}, wantStatus: http.StatusBadRequest},
		{name: "search without query", method: http.MethodGet, path: base + "/knowledge/search", wantStatus: http.StatusBadRequest},
		{name: "upload blank text", method: http.MethodPost, path: base + "/knowledge/upload", body: gin.H{"file_name": "a.txt", "content": "  "}, wantStatus: http.StatusBadRequest},
		{name: "bad history limit", method: http.MethodGet, path: base + "/sessions/s1/history?limit=x", wantStatus: http.StatusBadRequest},
		{name: "unknown session", method: http.MethodGet, path: base + "/sessions/nope/history", wantStatus: http.StatusNotFound},
		{name: "unknown entry", method: http.MethodDelete, path: base + "/knowledge/missing", wantStatus: http.StatusNotFound},
		{name: "unknown memory", method: http.MethodGet, path: base + "/memory/ghost", wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, env := s.do(tt.method, tt.path, tt.body); code != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", code, tt.wantStatus, env.Msg)
			}
		})
	}
}

func TestRouter_UploadAndTraining(t *testing.T) {
	s := newTestServer(t, false)
	base := "/api/v1/tenants/acme"
	s.do(http.MethodPost, base+"/init", gin.H{"expertise_domain": "fitness"})

	code, env := s.do(http.MethodPost, base+"/knowledge/upload", gin.H{
		"file_name": "faq.txt",
		"file_type": "txt",
		"content":   "Classes start at 7:00. Bring water.",
		"category":  "faq",
	})
	if code != http.StatusCreated || !strings.Contains(string(env.Data), `"ids"`) {
		t.Fatalf("upload = %d %s", code, env.Data)
	}

	code, env = s.do(http.MethodPut, base+"/training", gin.H{
		"custom_personality":    "upbeat coach",
		"training_instructions": []string{"Keep answers short"},
	})
	if code != http.StatusOK || !strings.Contains(string(env.Data), "upbeat coach") {
		t.Fatalf("training = %d %s", code, env.Data)
	}

	code, env = s.do(http.MethodGet, base, nil)
	if code != http.StatusOK || !strings.Contains(string(env.Data), "Keep answers short") {
		t.Errorf("get tenant = %d %s", code, env.Data)
	}
}

func TestRouter_AuthAndOps(t *testing.T) {
	s := newTestServer(t, true)

	if code, _ := s.do(http.MethodPost, "/api/v1/tenants/acme/init", gin.H{}); code != http.StatusOK {
		t.Errorf("authorized init status = %d", code)
	}
	if code, _ := s.do(http.MethodGet, "/api/v1/tenants/globex", nil); code != http.StatusForbidden {
		t.Errorf("cross tenant status = %d, want 403", code)
	}

	s.token = ""
	if code, _ := s.do(http.MethodGet, "/api/v1/tenants/acme", nil); code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", code)
	}
	if code, _ := s.do(http.MethodGet, "/health", nil); code != http.StatusOK {
		t.Errorf("health status = %d", code)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Errorf("metrics status = %d", w.Code)
	}
}
