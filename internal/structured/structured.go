// Package structured turns free-text LLM completions into typed payloads.
package structured

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var ErrParse = errors.New("structured output could not be decoded")

const (
	snippetLen = 500
	fenceOpen  = "```json"
)

var (
	jsonFence = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	validate  = validator.New()
)

// ParseError carries a snippet of the raw completion that failed to decode.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse structured output: %v", e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// ExtractJSON returns the first JSON value after the first ```json fence in
// text, or the whole trimmed text when there is no fence. The value is read
// with a JSON decoder, so backticks inside strings (Markdown code blocks in
// chapter content) do not end it. When the fenced value does not parse, the
// text up to the closing fence is returned so that the caller reports it.
func ExtractJSON(text string) string {
	i := strings.Index(text, fenceOpen)
	if i < 0 {
		return strings.TrimSpace(text)
	}
	var v json.RawMessage
	if err := json.NewDecoder(strings.NewReader(text[i+len(fenceOpen):])).Decode(&v); err == nil {
		return string(v)
	}
	if m := jsonFence.FindStringSubmatch(text[i:]); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text[i+len(fenceOpen):])
}

// Decode extracts JSON from text into a T and checks its required fields.
// Every failure is a *ParseError and the raw text is logged.
func Decode[T any](text string) (*T, error) {
	raw := ExtractJSON(text)

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, parseErr(text, fmt.Errorf("unmarshal: %w", err))
	}
	if err := validate.Struct(&v); err != nil {
		return nil, parseErr(text, fmt.Errorf("validate: %w", err))
	}
	return &v, nil
}

func parseErr(text string, err error) error {
	snippet := text
	if len(snippet) > snippetLen {
		cut := snippetLen
		for cut > 0 && !utf8.RuneStart(snippet[cut]) {
			cut--
		}
		snippet = snippet[:cut]
	}
	slog.Warn("failed to decode structured output", "error", err, "raw_len", len(text), "raw", snippet)
	return &ParseError{Raw: snippet, Err: err}
}
