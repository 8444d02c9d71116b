package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"postenrich/internal/domain"
)

func TestExtractParsesReply(t *testing.T) {
	llm := fixed(`{"line_count": 3, "language": "English", "tags": ["Job Hunting", "Career"]}`)
	ext := NewMetadataExtractor(llm, nil, 2)

	got, err := ext.Extract(context.Background(), "Line1\nLine2\nLine3")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := domain.ExtractedMetadata{
		LineCount: domain.NewLineCount(3),
		Language:  domain.English,
		Tags:      []string{"Job Hunting", "Career"},
	}
	if diff := cmp.Diff(want, got.Metadata); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}

	calls := llm.calls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one model call, got %d", len(calls))
	}
	for _, s := range []string{"Line1\nLine2\nLine3", "line_count, language, tags", "max 2"} {
		if !strings.Contains(calls[0], s) {
			t.Errorf("prompt missing %q:\n%s", s, calls[0])
		}
	}
}

func TestExtractLanguageOverride(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.Language
	}{
		{"sinhala text, model says English", "ආයුබෝවන්", domain.Sinhala},
		{"tamil text, model says English", "வணக்கம்", domain.Tamil},
		{"english text, model says Sinhala", "Hello there", domain.English},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := fixed(`{"line_count": 1, "language": "English", "tags": []}`)
			if tt.want == domain.English {
				llm = fixed(`{"line_count": 1, "language": "Sinhala", "tags": []}`)
			}
			got, err := NewMetadataExtractor(llm, nil, 2).Extract(context.Background(), tt.text)
			if err != nil {
				t.Fatal(err)
			}
			if got.Metadata.Language != tt.want {
				t.Errorf("language = %s, want %s", got.Metadata.Language, tt.want)
			}
		})
	}
}

func TestExtractLanguageOverrideIgnoresBadModelValue(t *testing.T) {
	llm := fixed(`{"line_count": 1, "language": 42, "tags": ["A"]}`)
	got, err := NewMetadataExtractor(llm, nil, 2).Extract(context.Background(), "plain")
	if err != nil {
		t.Fatal(err)
	}
	if got.Metadata.Language != domain.English {
		t.Errorf("language = %s", got.Metadata.Language)
	}
}

func TestExtractTags(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  []string
	}{
		{"capped", `{"line_count": 2, "tags": ["A", "B", "C"]}`, []string{"A", "B"}},
		{"trimmed and deduped", `{"line_count": 2, "tags": ["  A ", "A", "", "B"]}`, []string{"A", "B"}},
		{"missing", `{"line_count": 2}`, []string{}},
		{"null", `{"line_count": 2, "tags": null}`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewMetadataExtractor(fixed(tt.reply), nil, 2).Extract(context.Background(), "x")
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got.Metadata.Tags); diff != "" {
				t.Errorf("tags mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractParseError(t *testing.T) {
	for _, reply := range []string{
		"Sorry, the post is too long.",
		`{"line_count": 3, "tags": `,
		`{"line_count": 3, "tags": "Career"}`,
		`["Career"]`,
	} {
		llm := fixed(reply)
		_, err := NewMetadataExtractor(llm, nil, 2).Extract(context.Background(), "x")

		var parseErr *domain.ExtractionParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("reply %q: expected ExtractionParseError, got %v", reply, err)
		}
		if parseErr.Response != reply {
			t.Errorf("response not recorded: %q", parseErr.Response)
		}
		if !strings.Contains(err.Error(), "unable to parse") {
			t.Errorf("unexpected message %q", err.Error())
		}
		if n := len(llm.calls()); n != 1 {
			t.Errorf("reply %q: expected no retry, got %d calls", reply, n)
		}
	}
}

func TestExtractTransportErrorIsNotParseError(t *testing.T) {
	boom := errors.New("connection reset")
	llm := &fakeLLM{respond: func(string) (string, error) { return "", boom }}

	_, err := NewMetadataExtractor(llm, nil, 2).Extract(context.Background(), "x")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
	var parseErr *domain.ExtractionParseError
	if errors.As(err, &parseErr) {
		t.Error("transport failure must not be reported as a parse error")
	}
}

func TestExtractUsesCache(t *testing.T) {
	cache := newMemCache()
	llm := fixed(`{"line_count": 4, "language": "English", "tags": ["Career"]}`)
	ext := NewMetadataExtractor(llm, cache, 2)

	first, err := ext.Extract(context.Background(), "post body")
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached {
		t.Error("first extraction should not be cached")
	}

	second, err := ext.Extract(context.Background(), "post body")
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached {
		t.Error("second extraction should come from cache")
	}
	if diff := cmp.Diff(first.Metadata, second.Metadata); diff != "" {
		t.Errorf("cached metadata differs (-first +second):\n%s", diff)
	}
	if n := len(llm.calls()); n != 1 {
		t.Errorf("expected 1 model call, got %d", n)
	}
}
