package service

import (
	"testing"
	"time"
)

func TestResolveDashboardWindowRanges(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC)
	cases := []struct {
		rangeKey string
		days     int
	}{
		{"", 7},
		{"today", 1},
		{"7d", 7},
		{"30d", 30},
	}
	for _, tc := range cases {
		window, err := resolveDashboardWindow(DashboardQueryInput{Range: tc.rangeKey}, now)
		if err != nil {
			t.Fatalf("range %q failed: %v", tc.rangeKey, err)
		}
		if got := int(window.endAt.Sub(window.startAt).Hours() / 24); got != tc.days {
			t.Fatalf("range %q want %d days got %d", tc.rangeKey, tc.days, got)
		}
		if !window.endAt.Equal(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("range %q unexpected end: %s", tc.rangeKey, window.endAt)
		}
	}
}

func TestResolveDashboardWindowCustomValidation(t *testing.T) {
	now := time.Now().UTC()
	from := now.Add(-48 * time.Hour)
	if _, err := resolveDashboardWindow(DashboardQueryInput{Range: "custom", From: &from, To: &now}, now); err != nil {
		t.Fatalf("custom range failed: %v", err)
	}
	if _, err := resolveDashboardWindow(DashboardQueryInput{Range: "custom", From: &now, To: &from}, now); err != ErrDashboardRangeInvalid {
		t.Fatalf("expected invalid range for reversed bounds, got %v", err)
	}
	tooOld := now.Add(-100 * 24 * time.Hour)
	if _, err := resolveDashboardWindow(DashboardQueryInput{Range: "custom", From: &tooOld, To: &now}, now); err != ErrDashboardRangeInvalid {
		t.Fatalf("expected invalid range for long window, got %v", err)
	}
	if _, err := resolveDashboardWindow(DashboardQueryInput{Range: "year"}, now); err != ErrDashboardRangeInvalid {
		t.Fatalf("expected invalid range key, got %v", err)
	}
}
