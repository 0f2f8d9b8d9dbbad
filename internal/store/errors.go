package store

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a query failure. The kinds map one-to-one onto
// the fixed user-facing messages; raw driver text stays on the error
// chain for logs and never reaches the conversational surface.
type ErrorKind int

const (
	KindExecution ErrorKind = iota
	KindTableNotFound
	KindSyntax
	KindNotAllowed
)

func (k ErrorKind) String() string {
	switch k {
	case KindTableNotFound:
		return "table_not_found"
	case KindSyntax:
		return "syntax_error"
	case KindNotAllowed:
		return "not_allowed"
	default:
		return "execution_error"
	}
}

func (k ErrorKind) Message() string {
	switch k {
	case KindTableNotFound:
		return "The query could not find the specified table."
	case KindSyntax:
		return "The query has a syntax error."
	case KindNotAllowed:
		return "Only read-only SELECT queries are allowed."
	default:
		return "An error occurred while executing the query."
	}
}

type QueryError struct {
	Kind ErrorKind
	Err  error
}

func (e *QueryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("query rejected (%s)", e.Kind)
	}
	return fmt.Sprintf("query failed (%s): %v", e.Kind, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// UserMessage is the only text shown to the conversational user.
func (e *QueryError) UserMessage() string {
	return e.Kind.Message()
}

// classify maps a driver error onto an ErrorKind by case-insensitive
// substring match, covering both the SQLite and DuckDB phrasings.
func classify(err error) *QueryError {
	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "no such table"):
		return &QueryError{Kind: KindTableNotFound, Err: err}
	case strings.Contains(message, "catalog error") && strings.Contains(message, "does not exist"):
		return &QueryError{Kind: KindTableNotFound, Err: err}
	case strings.Contains(message, "syntax error"):
		return &QueryError{Kind: KindSyntax, Err: err}
	case strings.Contains(message, "parser error"):
		return &QueryError{Kind: KindSyntax, Err: err}
	default:
		return &QueryError{Kind: KindExecution, Err: err}
	}
}
