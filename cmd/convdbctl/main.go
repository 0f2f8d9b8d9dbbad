package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Ambuj00/conversational-db/internal/cli/convdbctl"
)

func main() {
	timeout := parseDurationWithDefault(strings.TrimSpace(os.Getenv("CONVDB_CLI_TIMEOUT")), 30*time.Second)
	options := convdbctl.Options{
		BaseURL:   envOr("CONVDB_API_URL", "http://localhost:8080"),
		OpenAIKey: strings.TrimSpace(os.Getenv("CONVDB_OPENAI_KEY")),
		Timeout:   timeout,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}

	code := convdbctl.Run(context.Background(), os.Args[1:], options)
	os.Exit(code)
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func parseDurationWithDefault(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid CONVDB_CLI_TIMEOUT %q; using %s\n", raw, fallback)
		return fallback
	}
	return parsed
}
