package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func toolText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content = %v, want one text block", res.Content)
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] = %T, want *mcp.TextContent", res.Content[0])
	}
	return text.Text
}

func TestConvertData(t *testing.T) {
	cases := []struct {
		conversion string
		in         string
		want       string
	}{
		{"base64_encode", "hello", "aGVsbG8="},
		{"base64_decode", "aGVsbG8=", "hello"},
		{"hex_encode", "hi", "6869"},
		{"hex_decode", "6869", "hi"},
		{"json_minify", "{\n  \"a\": 1\n}", `{"a":1}`},
		{"json_format", `{"a":1}`, "{\n  \"a\": 1\n}"},
	}
	for _, tc := range cases {
		got, err := convertData(tc.in, tc.conversion)
		if err != nil {
			t.Fatalf("%s(%q): %v", tc.conversion, tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%s(%q) = %q, want %q", tc.conversion, tc.in, got, tc.want)
		}
	}
}

func TestConvertDataErrors(t *testing.T) {
	for _, tc := range []struct{ conversion, in string }{
		{"base64_decode", "not base64!!"},
		{"hex_decode", "xyz"},
		{"json_format", "{broken"},
		{"spin", "anything"},
	} {
		if _, err := convertData(tc.in, tc.conversion); err == nil {
			t.Fatalf("%s(%q): expected error", tc.conversion, tc.in)
		}
	}
}

func TestFetchURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("page body"))
	}))
	defer srv.Close()

	res, _, err := handleFetchURL(context.Background(), nil, fetchURLInput{URL: srv.URL})
	if err != nil {
		t.Fatalf("handleFetchURL: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %v", res.Content)
	}
	if got := toolText(t, res); got != "page body" {
		t.Fatalf("body = %q", got)
	}
}

func TestFetchURLTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	res, _, err := handleFetchURL(context.Background(), nil, fetchURLInput{URL: srv.URL, MaxLength: 10})
	if err != nil {
		t.Fatalf("handleFetchURL: %v", err)
	}
	if got := toolText(t, res); len(got) != 10 {
		t.Fatalf("len = %d, want truncated to 10", len(got))
	}
}

func TestFetchURLRejectsNonHTTP(t *testing.T) {
	for _, u := range []string{"ftp://example.com/file", "file:///etc/passwd", "::bad::"} {
		res, _, err := handleFetchURL(context.Background(), nil, fetchURLInput{URL: u})
		if err != nil {
			t.Fatalf("handleFetchURL(%q): %v", u, err)
		}
		if !res.IsError {
			t.Fatalf("URL %q accepted, want tool error", u)
		}
	}
}
