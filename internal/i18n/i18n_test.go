package i18n

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMatchAcceptLanguage(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", LocaleZhCN},
		{"en-US,en;q=0.9", LocaleEnUS},
		{"en-GB", LocaleEnUS},
		{"zh-TW,zh;q=0.8", LocaleZhCN},
		{"fr-FR", LocaleZhCN},
		{";;;", LocaleZhCN},
	}
	for _, tc := range cases {
		if got := MatchAcceptLanguage(tc.header); got != tc.want {
			t.Fatalf("header %q: want %s got %s", tc.header, tc.want, got)
		}
	}
}

func TestTFallsBack(t *testing.T) {
	if got := T(LocaleEnUS, "error.forbidden"); got != "Permission denied" {
		t.Fatalf("unexpected english message: %s", got)
	}
	if got := T("ja-JP", "error.forbidden"); got != "没有访问权限" {
		t.Fatalf("unknown locale should fall back to default, got %s", got)
	}
	if got := T(LocaleEnUS, "error.missing_key"); got != "error.missing_key" {
		t.Fatalf("missing key should echo key, got %s", got)
	}
	if got := Sprintf(LocaleEnUS, "error.rate_limited", 7); got != "Too many requests, retry in 7 seconds" {
		t.Fatalf("unexpected formatted message: %s", got)
	}
}

func TestResolveLocalePrefersQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/?lang=en", nil)
	c.Request.Header.Set("Accept-Language", "zh-CN")
	if got := ResolveLocale(c); got != LocaleEnUS {
		t.Fatalf("query should win, got %s", got)
	}
	if got := ResolveLocale(nil); got != DefaultLocale {
		t.Fatalf("nil context should use default, got %s", got)
	}
}

func TestMessageTablesAligned(t *testing.T) {
	for key := range messages[LocaleZhCN] {
		if _, ok := messages[LocaleEnUS][key]; !ok {
			t.Fatalf("key %s missing from en-US", key)
		}
	}
	if len(messages[LocaleZhCN]) != len(messages[LocaleEnUS]) {
		t.Fatalf("message tables differ in size")
	}
}
