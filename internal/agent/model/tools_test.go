package model

import (
	"strings"
	"testing"
)

func TestProviderListDecode(t *testing.T) {
	var list ProviderList
	err := list.Decode(`[
		{"name":"demo","transport":"stdio","address":"toolserver"},
		{"name":"search","transport":"sse","address":"http://localhost:8100/sse","enabled":false}
	]`)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d", len(list))
	}
	enabled := list.EnabledProviders()
	if len(enabled) != 1 || enabled[0].Name != "demo" {
		t.Fatalf("EnabledProviders = %v", enabled)
	}
}

func TestProviderListDecodeEmpty(t *testing.T) {
	var list ProviderList
	if err := list.Decode("  "); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if list != nil {
		t.Fatalf("list = %v, want nil", list)
	}
}

func TestProviderListDecodeRejectsInvalid(t *testing.T) {
	cases := []string{
		`[{"name":"x","transport":"carrier-pigeon","address":"coop"}]`,
		`[{"name":"","transport":"stdio","address":"cmd"}]`,
		`[{"name":"x","transport":"sse","address":"not-a-url"}]`,
		`[{"name":"x","transport":"stdio","address":""}]`,
		`{not json`,
	}
	for _, raw := range cases {
		var list ProviderList
		if err := list.Decode(raw); err == nil {
			t.Errorf("Decode(%s) succeeded, want error", raw)
		}
	}
}

func TestToolInvocationResultPayload(t *testing.T) {
	ok := ToolInvocationResult{Name: "calculate", Output: "4"}
	if got := ok.Payload(); got != "4" {
		t.Fatalf("Payload = %q", got)
	}

	failed := ToolInvocationResult{Name: "calculate", Error: "remote exploded"}
	payload := failed.Payload()
	for _, want := range []string{`"success":false`, `"error":"remote exploded"`, `"tool":"calculate"`} {
		if !strings.Contains(payload, want) {
			t.Fatalf("Payload = %q, missing %s", payload, want)
		}
	}
}
