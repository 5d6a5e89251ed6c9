package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatroom-backend/internal/cache"
	"chatroom-backend/internal/config"
	"chatroom-backend/internal/domain"
	"chatroom-backend/internal/queue"
)

// --- fake queue client so submissions need no Redis ---

type fakeQueue struct {
	tasks []queue.Task
	err   error
}

func (f *fakeQueue) Enqueue(ctx context.Context, t queue.Task) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.tasks = append(f.tasks, t)
	return fmt.Sprintf("task-%d", len(f.tasks)), nil
}

func (f *fakeQueue) Close() error { return nil }

// --- test DB helper (pure-Go sqlite, no CGO) ---

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:routerdb_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// schema so handlers don't explode on list endpoints
	if err := db.AutoMigrate(&domain.User{}, &domain.Chatroom{}, &domain.Message{}, &domain.OTP{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		RateRPS:           100,
		RateBurst:         50,
		DailyMessageLimit: 5,
		CacheTTL:          time.Minute,
		MaxMessageRunes:   4000,
		CORS:              config.CORSConfig{AllowedOrigins: nil}, // triggers AllowAllOrigins branch
		Security:          config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:              config.OTELConfig{ServiceName: "test-svc"},
		Auth: config.AuthConfig{
			JWTSecret: "router-test-secret",
			JWTTTL:    time.Hour,
			OTPTTL:    10 * time.Minute,
		},
	}
}

func newTestServer(t *testing.T, fq *fakeQueue) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, newTestDB(t), cache.NewMemory(), fq, testConfig())
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getJSON(t *testing.T, r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r := newTestServer(t, &fakeQueue{})

	// /health works
	w := getJSON(t, r, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = getJSON(t, r, "/metrics", "")
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	w = getJSON(t, r, "/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (POST /health)
	w = postJSON(t, r, "/health", "", gin.H{})
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_ProtectedRoutesRequireToken(t *testing.T) {
	r := newTestServer(t, &fakeQueue{})

	for _, path := range []string{"/chatroom", "/user/me", "/subscription/status"} {
		w := getJSON(t, r, path, "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("GET %s without token = %d, want 401", path, w.Code)
		}
	}
	w := postJSON(t, r, "/chatroom", "bogus-token", gin.H{"name": "x"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("POST /chatroom with garbage token = %d, want 401", w.Code)
	}
}

// TestRegisterRoutes_FullFlow drives the whole API surface end to end:
// OTP login, chatroom creation, message submission (with the queue faked),
// and the paginated listing that eventually shows the completion.
func TestRegisterRoutes_FullFlow(t *testing.T) {
	fq := &fakeQueue{}
	r := newTestServer(t, fq)
	const mobile = "+306911112222"

	// 1) Request an OTP; the code is echoed in the response.
	w := postJSON(t, r, "/auth/send-otp", "", gin.H{"mobile_number": mobile})
	if w.Code != http.StatusOK {
		t.Fatalf("send-otp = %d body=%s", w.Code, w.Body.String())
	}
	var issue struct {
		Code string `json:"otp"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &issue); err != nil || issue.Code == "" {
		t.Fatalf("otp body: %s err=%v", w.Body.String(), err)
	}

	// 2) Exchange it for a token (provisions the account).
	w = postJSON(t, r, "/auth/verify-otp", "", gin.H{"mobile_number": mobile, "otp": issue.Code})
	if w.Code != http.StatusOK {
		t.Fatalf("verify-otp = %d body=%s", w.Code, w.Body.String())
	}
	var tok struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
		Tier   string `json:"subscription_tier"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &tok); err != nil || tok.Token == "" {
		t.Fatalf("token body: %s err=%v", w.Body.String(), err)
	}
	if tok.Tier != domain.TierBasic {
		t.Fatalf("new accounts should be basic, got %q", tok.Tier)
	}

	// 3) Create a chatroom.
	w = postJSON(t, r, "/chatroom", tok.Token, gin.H{"name": "travel"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create chatroom = %d body=%s", w.Code, w.Body.String())
	}
	var room domain.Chatroom
	if err := json.Unmarshal(w.Body.Bytes(), &room); err != nil || room.ID == "" {
		t.Fatalf("room body: %s err=%v", w.Body.String(), err)
	}

	// 4) List shows it (served via the cache path on repeat).
	for i := 0; i < 2; i++ {
		w = getJSON(t, r, "/chatroom", tok.Token)
		if w.Code != http.StatusOK {
			t.Fatalf("list chatrooms (%d) = %d", i, w.Code)
		}
		var listing struct {
			Chatrooms []domain.Chatroom `json:"chatrooms"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &listing); err != nil || len(listing.Chatrooms) != 1 {
			t.Fatalf("listing (%d): %s err=%v", i, w.Body.String(), err)
		}
	}

	// 5) Submit a message: 200 with pending status, job on the queue.
	w = postJSON(t, r, "/chatroom/"+room.ID+"/message", tok.Token, gin.H{"message": "hello ai"})
	if w.Code != http.StatusOK {
		t.Fatalf("submit = %d body=%s", w.Code, w.Body.String())
	}
	var sub struct {
		MessageID string `json:"message_id"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &sub); err != nil || sub.MessageID == "" {
		t.Fatalf("submit body: %s err=%v", w.Body.String(), err)
	}
	if sub.Status != domain.StatusPending {
		t.Fatalf("status = %q, want pending", sub.Status)
	}
	if len(fq.tasks) != 1 {
		t.Fatalf("queued %d tasks, want 1", len(fq.tasks))
	}

	// 6) Listing the messages shows the pending row newest first.
	w = getJSON(t, r, "/chatroom/"+room.ID+"/messages", tok.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("list messages = %d", w.Code)
	}
	var page struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil || len(page.Messages) != 1 {
		t.Fatalf("messages body: %s err=%v", w.Body.String(), err)
	}
	if page.Messages[0].ID != sub.MessageID || page.Messages[0].Status != domain.StatusPending {
		t.Fatalf("unexpected message row: %+v", page.Messages[0])
	}

	// 7) Quota usage is visible on the subscription endpoint.
	w = getJSON(t, r, "/subscription/status", tok.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("subscription = %d", w.Code)
	}
	var st struct {
		DailyUsed  int `json:"daily_used"`
		DailyLimit int `json:"daily_limit"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("subscription body: %s err=%v", w.Body.String(), err)
	}
	if st.DailyUsed != 1 || st.DailyLimit != 5 {
		t.Fatalf("usage = (%d, %d), want (1, 5)", st.DailyUsed, st.DailyLimit)
	}
}

// TestRegisterRoutes_QuotaExhaustion exercises the daily cap through the
// HTTP surface: the sixth submission of the day is rejected with 429.
func TestRegisterRoutes_QuotaExhaustion(t *testing.T) {
	fq := &fakeQueue{}
	r := newTestServer(t, fq)
	const mobile = "+306933334444"

	w := postJSON(t, r, "/auth/send-otp", "", gin.H{"mobile_number": mobile})
	var issue struct {
		Code string `json:"otp"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &issue); err != nil {
		t.Fatalf("otp: %v", err)
	}
	w = postJSON(t, r, "/auth/verify-otp", "", gin.H{"mobile_number": mobile, "otp": issue.Code})
	var tok struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &tok); err != nil || tok.Token == "" {
		t.Fatalf("token: %s", w.Body.String())
	}

	w = postJSON(t, r, "/chatroom", tok.Token, gin.H{"name": "bursty"})
	var room domain.Chatroom
	if err := json.Unmarshal(w.Body.Bytes(), &room); err != nil || room.ID == "" {
		t.Fatalf("room: %s", w.Body.String())
	}

	for i := 1; i <= 5; i++ {
		w = postJSON(t, r, "/chatroom/"+room.ID+"/message", tok.Token, gin.H{"message": fmt.Sprintf("msg %d", i)})
		if w.Code != http.StatusOK {
			t.Fatalf("submission %d = %d body=%s", i, w.Code, w.Body.String())
		}
	}

	w = postJSON(t, r, "/chatroom/"+room.ID+"/message", tok.Token, gin.H{"message": "over the line"})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("6th submission = %d, want 429", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("429 body: %v", err)
	}
	if body["code"] != "quota_exceeded" {
		t.Fatalf("code = %v", body["code"])
	}
	if int(body["limit"].(float64)) != 5 || int(body["used"].(float64)) != 5 {
		t.Fatalf("usage fields: %v", body)
	}
	if len(fq.tasks) != 5 {
		t.Fatalf("queue received %d tasks, want 5", len(fq.tasks))
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := testConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	RegisterRoutes(r, newTestDB(t), cache.NewMemory(), &fakeQueue{}, cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("ACAO = %q, want the echoed origin", got)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}
