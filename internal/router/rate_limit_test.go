package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestKeyByIPAndJSONField(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/members/register", strings.NewReader(`{"email":" Test@Example.com "}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "1.2.3.4:5678"

	key := KeyByIPAndJSONField("email")(c)
	if key != "test@example.com|1.2.3.4" {
		t.Fatalf("unexpected key: %s", key)
	}
	body, _ := io.ReadAll(c.Request.Body)
	if !strings.Contains(string(body), "Test@Example.com") {
		t.Fatalf("request body should be restored, got %s", string(body))
	}
}

func TestLocalRateLimitBlocks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rule := RateLimitRule{Prefix: "test", WindowSeconds: 60, MaxRequests: 2, BlockSeconds: 30}
	r := gin.New()
	r.POST("/write", RateLimitMiddleware(nil, rule, KeyByIP), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0})
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/write", nil)
		req.RemoteAddr = "9.9.9.9:1000"
		r.ServeHTTP(w, req)
		codes = append(codes, decodeStatusCode(t, w))
	}
	if codes[0] != 0 || codes[1] != 0 || codes[2] != 429 {
		t.Fatalf("unexpected codes: %v", codes)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/write", nil)
	req.RemoteAddr = "8.8.8.8:1000"
	r.ServeHTTP(w, req)
	if got := decodeStatusCode(t, w); got != 0 {
		t.Fatalf("other client should not be limited, got %d", got)
	}
}

func TestLocalLimiterReportsBlockWait(t *testing.T) {
	limiter := newLocalLimiter(RateLimitRule{WindowSeconds: 10, MaxRequests: 1, BlockSeconds: 5})
	if _, ok := limiter.allow("k"); !ok {
		t.Fatalf("first request should pass")
	}
	wait, ok := limiter.allow("k")
	if ok || wait != 5 {
		t.Fatalf("second request should be blocked for 5s, got ok=%v wait=%d", ok, wait)
	}
	wait, ok = limiter.allow("k")
	if ok || wait < 1 || wait > 5 {
		t.Fatalf("blocked key should stay blocked, got ok=%v wait=%d", ok, wait)
	}
}

func TestRateLimitDisabledRule(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/open", RateLimitMiddleware(nil, RateLimitRule{}, nil), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0})
	})
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
		if got := decodeStatusCode(t, w); got != 0 {
			t.Fatalf("disabled rule should not limit, got %d", got)
		}
	}
}
