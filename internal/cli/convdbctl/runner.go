// Package convdbctl implements the control CLI for the convdb API.
package convdbctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	OpenAIKey  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// Run executes one CLI invocation and returns the process exit code:
// 0 success, 1 request/HTTP failure, 2 usage error.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("convdbctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "convdb API base URL")
	openAIKey := fs.String("openai-key", defaults.OpenAIKey, "OpenAI-compatible API key attached to uploads")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 30*time.Second), "HTTP timeout (e.g. 30s)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	base := strings.TrimRight(*baseURL, "/")
	command := strings.TrimSpace(fs.Arg(0))
	rest := fs.Args()[1:]

	switch command {
	case "health":
		return runJSONCommand(ctx, client, http.MethodGet, base+"/v1/health", nil, stdout, stderr)
	case "ready":
		return runJSONCommand(ctx, client, http.MethodGet, base+"/v1/ready", nil, stdout, stderr)
	case "sessions":
		return runJSONCommand(ctx, client, http.MethodGet, base+"/v1/sessions", nil, stdout, stderr)
	case "sweep":
		return runJSONCommand(ctx, client, http.MethodPost, base+"/v1/maintenance/sweep", nil, stdout, stderr)
	case "upload":
		if len(rest) != 1 {
			_, _ = fmt.Fprintln(stderr, "usage: convdbctl upload <csv-path>")
			return 2
		}
		return runUpload(ctx, client, base, rest[0], *openAIKey, stdout, stderr)
	case "ask", "translate":
		if len(rest) < 2 {
			_, _ = fmt.Fprintf(stderr, "usage: convdbctl %s <session> <request...>\n", command)
			return 2
		}
		path := "/queries"
		if command == "translate" {
			path = "/translate"
		}
		payload := map[string]string{"request": strings.Join(rest[1:], " ")}
		return runJSONCommand(ctx, client, http.MethodPost, base+"/v1/sessions/"+rest[0]+path, payload, stdout, stderr)
	case "history", "schema", "preview":
		if len(rest) != 1 {
			_, _ = fmt.Fprintf(stderr, "usage: convdbctl %s <session>\n", command)
			return 2
		}
		return runJSONCommand(ctx, client, http.MethodGet, base+"/v1/sessions/"+rest[0]+"/"+command, nil, stdout, stderr)
	case "close":
		if len(rest) != 1 {
			_, _ = fmt.Fprintln(stderr, "usage: convdbctl close <session>")
			return 2
		}
		return runJSONCommand(ctx, client, http.MethodDelete, base+"/v1/sessions/"+rest[0], nil, stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}
}

func runJSONCommand(ctx context.Context, client *http.Client, method, url string, payload any, stdout, stderr io.Writer) int {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "encode request: %v\n", err)
			return 1
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return doRequest(client, req, stdout, stderr)
}

func runUpload(ctx context.Context, client *http.Client, base, csvPath, openAIKey string, stdout, stderr io.Writer) int {
	file, err := os.Open(csvPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "open csv: %v\n", err)
		return 1
	}
	defer func() { _ = file.Close() }()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(csvPath))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "build upload: %v\n", err)
		return 1
	}
	if _, err := io.Copy(part, file); err != nil {
		_, _ = fmt.Fprintf(stderr, "read csv: %v\n", err)
		return 1
	}
	if strings.TrimSpace(openAIKey) != "" {
		if err := writer.WriteField("api_key", strings.TrimSpace(openAIKey)); err != nil {
			_, _ = fmt.Fprintf(stderr, "build upload: %v\n", err)
			return 1
		}
	}
	if err := writer.Close(); err != nil {
		_, _ = fmt.Fprintf(stderr, "build upload: %v\n", err)
		return 1
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/sessions", &body)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return doRequest(client, req, stdout, stderr)
}

func doRequest(client *http.Client, req *http.Request, stdout, stderr io.Writer) int {
	resp, err := client.Do(req)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "read response: %v\n", err)
		return 1
	}

	if resp.StatusCode >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", resp.StatusCode, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: convdbctl [flags] <command>")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health                       GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                        GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  sessions                     GET /v1/sessions")
	_, _ = fmt.Fprintln(w, "  upload <csv>                 POST /v1/sessions")
	_, _ = fmt.Fprintln(w, "  ask <session> <request...>   POST /v1/sessions/{session}/queries")
	_, _ = fmt.Fprintln(w, "  translate <session> <req...> POST /v1/sessions/{session}/translate")
	_, _ = fmt.Fprintln(w, "  history <session>            GET /v1/sessions/{session}/history")
	_, _ = fmt.Fprintln(w, "  schema <session>             GET /v1/sessions/{session}/schema")
	_, _ = fmt.Fprintln(w, "  preview <session>            GET /v1/sessions/{session}/preview")
	_, _ = fmt.Fprintln(w, "  close <session>              DELETE /v1/sessions/{session}")
	_, _ = fmt.Fprintln(w, "  sweep                        POST /v1/maintenance/sweep")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
