// Command toolserver is a demo MCP server spoken to over stdio. It exposes
// the calculate, get_datetime, process_text, fetch_url and convert_data
// tools, mainly for exercising the agent's tool dispatch locally:
//
//	MCP_SERVERS='[{"name":"demo","transport":"stdio","address":"toolserver"}]'
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type calculateInput struct {
	Expression string `json:"expression" jsonschema:"arithmetic expression, e.g. (2+3)*4"`
}

type datetimeInput struct {
	Timezone string `json:"timezone,omitempty" jsonschema:"IANA timezone name, defaults to UTC"`
}

type processTextInput struct {
	Text      string `json:"text" jsonschema:"text to process"`
	Operation string `json:"operation" jsonschema:"one of word_count, char_count, reverse, uppercase, lowercase, title_case, extract_emails, extract_urls, summarize_stats"`
}

type fetchURLInput struct {
	URL       string `json:"url" jsonschema:"http or https URL to fetch"`
	MaxLength int    `json:"max_length,omitempty" jsonschema:"truncate the body to this many bytes, defaults to 10000"`
}

type convertDataInput struct {
	Data       string `json:"data" jsonschema:"data to convert"`
	Conversion string `json:"conversion" jsonschema:"one of base64_encode, base64_decode, hex_encode, hex_decode, json_format, json_minify"`
}

func main() {
	server := mcp.NewServer(&mcp.Implementation{Name: "demo-tools", Version: "1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "calculate",
		Description: "Evaluate an arithmetic expression (+, -, *, /, %, parentheses)",
		InputSchema: schemaFor[calculateInput](),
	}, handleCalculate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_datetime",
		Description: "Current date and time, optionally in a given timezone",
		InputSchema: schemaFor[datetimeInput](),
	}, handleDatetime)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "process_text",
		Description: "Text processing and analysis operations",
		InputSchema: schemaFor[processTextInput](),
	}, handleProcessText)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "fetch_url",
		Description: "Fetch the contents of a web page over HTTP(S)",
		InputSchema: schemaFor[fetchURLInput](),
	}, handleFetchURL)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "convert_data",
		Description: "Convert data between text, base64, hex and formatted JSON",
		InputSchema: schemaFor[convertDataInput](),
	}, handleConvertData)

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("toolserver: %v", err)
	}
	_ = os.Stdout.Sync()
}

func schemaFor[T any]() *jsonschema.Schema {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		log.Fatalf("toolserver: schema: %v", err)
	}
	return s
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
