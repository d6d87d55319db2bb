package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestBuildPagination(t *testing.T) {
	cases := []struct {
		page, size int
		total      int64
		want       int64
	}{
		{1, 20, 0, 0},
		{1, 20, 20, 1},
		{2, 20, 21, 2},
		{1, 0, 5, 0},
	}
	for _, tc := range cases {
		got := BuildPagination(tc.page, tc.size, tc.total)
		if got.TotalPage != tc.want || got.Total != tc.total {
			t.Fatalf("pagination(%d,%d,%d) total_page want %d got %d", tc.page, tc.size, tc.total, tc.want, got.TotalPage)
		}
	}
}

func TestErrorCarriesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(requestIDKey, "rid-1")

	Forbidden(c, "nope")
	if !c.IsAborted() {
		t.Fatalf("forbidden should abort the chain")
	}
	if w.Code != http.StatusOK {
		t.Fatalf("http status want 200 got %d", w.Code)
	}
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.StatusCode != CodeForbidden || resp.Msg != "nope" || resp.RequestID != "rid-1" || resp.Data != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSuccessWithPageOmitsEmptyRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	SuccessWithPage(c, []int{1, 2}, BuildPagination(1, 2, 3))
	var raw map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := raw["request_id"]; ok {
		t.Fatalf("request_id should be omitted when absent")
	}
	pagination, ok := raw["pagination"].(map[string]interface{})
	if !ok || pagination["total_page"].(float64) != 2 {
		t.Fatalf("unexpected pagination: %v", raw["pagination"])
	}
}
