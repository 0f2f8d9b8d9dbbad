// Package nl2sql turns a natural-language request about the session
// dataset into a SQL query by prompting an OpenAI-compatible chat
// completion service.
package nl2sql

import "context"

// Request carries one translation attempt. APIKey is resolved per
// submission by the caller (session key first, configured fallback
// second) and never lives on the translator itself.
type Request struct {
	Request string
	Schema  string
	APIKey  string
}

type Result struct {
	SQL   string `json:"sql"`
	Model string `json:"model"`
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}
