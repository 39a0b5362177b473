package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func handleCalculate(ctx context.Context, req *mcp.CallToolRequest, in calculateInput) (*mcp.CallToolResult, any, error) {
	value, err := evalExpression(in.Expression)
	if err != nil {
		return errorResult("cannot evaluate %q: %v", in.Expression, err), nil, nil
	}
	return textResult(formatNumber(value)), nil, nil
}

func handleDatetime(ctx context.Context, req *mcp.CallToolRequest, in datetimeInput) (*mcp.CallToolResult, any, error) {
	loc := time.UTC
	if in.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(in.Timezone)
		if err != nil {
			return errorResult("unknown timezone %q", in.Timezone), nil, nil
		}
	}
	now := time.Now().In(loc)
	out := fmt.Sprintf("%s (%s, %s)", now.Format(time.RFC3339), now.Weekday(), loc)
	return textResult(out), nil, nil
}

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	urlPattern   = regexp.MustCompile(`https?://[^\s]+`)
)

func handleProcessText(ctx context.Context, req *mcp.CallToolRequest, in processTextInput) (*mcp.CallToolResult, any, error) {
	text := in.Text
	switch in.Operation {
	case "word_count":
		return textResult(strconv.Itoa(len(strings.Fields(text)))), nil, nil
	case "char_count":
		return textResult(strconv.Itoa(len([]rune(text)))), nil, nil
	case "reverse":
		runes := []rune(text)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return textResult(string(runes)), nil, nil
	case "uppercase":
		return textResult(strings.ToUpper(text)), nil, nil
	case "lowercase":
		return textResult(strings.ToLower(text)), nil, nil
	case "title_case":
		return textResult(titleCase(text)), nil, nil
	case "extract_emails":
		return textResult(joinMatches(emailPattern.FindAllString(text, -1))), nil, nil
	case "extract_urls":
		return textResult(joinMatches(urlPattern.FindAllString(text, -1))), nil, nil
	case "summarize_stats":
		words := strings.Fields(text)
		lines := strings.Count(text, "\n") + 1
		return textResult(fmt.Sprintf("words=%d chars=%d lines=%d", len(words), len([]rune(text)), lines)), nil, nil
	default:
		return errorResult("unknown operation %q", in.Operation), nil, nil
	}
}

const fetchDefaultMaxLength = 10000

var fetchClient = &http.Client{Timeout: 20 * time.Second}

func handleFetchURL(ctx context.Context, req *mcp.CallToolRequest, in fetchURLInput) (*mcp.CallToolResult, any, error) {
	parsed, err := url.Parse(in.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return errorResult("invalid URL %q, only http and https are supported", in.URL), nil, nil
	}

	maxLength := in.MaxLength
	if maxLength <= 0 {
		maxLength = fetchDefaultMaxLength
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, in.URL, nil)
	if err != nil {
		return errorResult("cannot build request for %q: %v", in.URL, err), nil, nil
	}
	resp, err := fetchClient.Do(httpReq)
	if err != nil {
		return errorResult("fetch %q failed: %v", in.URL, err), nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errorResult("fetch %q returned status %d", in.URL, resp.StatusCode), nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxLength)))
	if err != nil {
		return errorResult("reading %q failed: %v", in.URL, err), nil, nil
	}
	return textResult(string(body)), nil, nil
}

func handleConvertData(ctx context.Context, req *mcp.CallToolRequest, in convertDataInput) (*mcp.CallToolResult, any, error) {
	out, err := convertData(in.Data, in.Conversion)
	if err != nil {
		return errorResult("convert_data: %v", err), nil, nil
	}
	return textResult(out), nil, nil
}

func convertData(data, conversion string) (string, error) {
	switch conversion {
	case "base64_encode":
		return base64.StdEncoding.EncodeToString([]byte(data)), nil
	case "base64_decode":
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
		if err != nil {
			return "", fmt.Errorf("invalid base64: %w", err)
		}
		return string(decoded), nil
	case "hex_encode":
		return hex.EncodeToString([]byte(data)), nil
	case "hex_decode":
		decoded, err := hex.DecodeString(strings.TrimSpace(data))
		if err != nil {
			return "", fmt.Errorf("invalid hex: %w", err)
		}
		return string(decoded), nil
	case "json_format":
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(data), "", "  "); err != nil {
			return "", fmt.Errorf("invalid JSON: %w", err)
		}
		return buf.String(), nil
	case "json_minify":
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(data)); err != nil {
			return "", fmt.Errorf("invalid JSON: %w", err)
		}
		return buf.String(), nil
	default:
		return "", fmt.Errorf("unknown conversion %q", conversion)
	}
}

func titleCase(s string) string {
	var b strings.Builder
	prev := ' '
	for _, r := range s {
		if unicode.IsSpace(prev) {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
		prev = r
	}
	return b.String()
}

func joinMatches(matches []string) string {
	if len(matches) == 0 {
		return "none found"
	}
	return strings.Join(matches, "\n")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
