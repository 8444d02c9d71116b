// Package jsonparse pulls a JSON object out of a model reply.
package jsonparse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNoJSON = errors.New("no JSON object in response")

// Object decodes the JSON object in response into v. The reply may be wrapped
// in a markdown code fence or surrounded by prose; anything else is an error.
func Object(response string, v any) error {
	cleaned := stripFence(strings.TrimSpace(response))
	if cleaned == "" {
		return ErrNoJSON
	}

	err := decode(cleaned, v)
	if err == nil {
		return nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("%w: %v", ErrNoJSON, err)
	}
	if start == 0 && end == len(cleaned)-1 {
		return err
	}
	return decode(cleaned[start:end+1], v)
}

func decode(s string, v any) error {
	if !strings.HasPrefix(s, "{") {
		return fmt.Errorf("expected JSON object, got %q", preview(s))
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after JSON object")
	}
	return nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		lang := strings.TrimSpace(s[:nl])
		if lang == "" || !strings.ContainsAny(lang, "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func preview(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
