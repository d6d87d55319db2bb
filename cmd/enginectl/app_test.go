package main

import (
	"reflect"
	"testing"
)

func TestNormalizeRoles(t *testing.T) {
	got := normalizeRoles([]string{"Finance,auditor", " auditor ", "", "scheduler"})
	want := []string{"finance", "auditor", "scheduler"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v got %v", want, got)
	}
}

func TestParseAmount(t *testing.T) {
	amount, err := parseAmount(" 12.5 ")
	if err != nil || amount.String() != "12.5" {
		t.Fatalf("unexpected amount %s err=%v", amount, err)
	}
	for _, raw := range []string{"", "0", "-1", "abc"} {
		if _, err := parseAmount(raw); err == nil {
			t.Fatalf("%q should be rejected", raw)
		}
	}
}

func TestAppCommands(t *testing.T) {
	app := newApp()
	names := map[string]bool{}
	for _, cmd := range app.Commands {
		names[cmd.Name] = true
	}
	for _, want := range []string{"accrual-tick", "deactivation-check", "retry-upline", "payout", "operator-role", "token"} {
		if !names[want] {
			t.Fatalf("missing command %s", want)
		}
	}
}
