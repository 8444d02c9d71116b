package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"postenrich/internal/adapter/memstore"
	"postenrich/internal/adapter/store"
	"postenrich/internal/domain"
)

func writeRaw(t *testing.T, body string) (raw, processed string) {
	t.Helper()
	dir := t.TempDir()
	raw = filepath.Join(dir, "raw_posts.json")
	if err := os.WriteFile(raw, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return raw, filepath.Join(dir, "processed_posts.json")
}

func newPipeline(llm *fakeLLM, concurrency int) *EnrichUseCase {
	corpus := store.NewJSONCorpus(nil)
	return NewEnrichUseCase(corpus, corpus, NewMetadataExtractor(llm, nil, 2), NewTagUnifier(llm), concurrency, nil)
}

func TestRunEndToEnd(t *testing.T) {
	raw, processed := writeRaw(t, `[{"text": "Line1\nLine2\nLine3"}]`)

	llm := &fakeLLM{respond: func(prompt string) (string, error) {
		if isUnifyPrompt(prompt) {
			return `{"Job Hunting": "Job Search"}`, nil
		}
		return `{"line_count": 3, "language": "English", "tags": ["Job Hunting"]}`, nil
	}}

	result, err := newPipeline(llm, 1).Run(context.Background(), RunRequest{RawPath: raw, ProcessedPath: processed})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Posts != 1 || result.RawTags != 1 || result.CanonicalTags != 1 {
		t.Errorf("unexpected result %+v", result)
	}
	if result.RunID == "" {
		t.Error("expected a run ID")
	}

	data, err := os.ReadFile(processed)
	if err != nil {
		t.Fatal(err)
	}
	var persisted []map[string]any
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatal(err)
	}
	want := []map[string]any{{
		"text":       "Line1\nLine2\nLine3",
		"line_count": float64(3),
		"language":   "English",
		"tags":       []any{"Job Search"},
	}}
	if diff := cmp.Diff(want, persisted); diff != "" {
		t.Errorf("persisted mismatch (-want +got):\n%s", diff)
	}

	s := memstore.Load(processed, nil)
	posts := s.Posts()
	if len(posts) != 1 || posts[0].LengthCategory != domain.Short {
		t.Fatalf("expected one Short post after load, got %+v", posts)
	}
	if got := s.GetFilteredPosts(domain.Short, domain.English, "Job Search"); len(got) != 1 {
		t.Errorf("expected the post to be retrievable, got %d", len(got))
	}

	if n := len(llm.calls()); n != 2 {
		t.Errorf("expected one extraction and one unification call, got %d", n)
	}
}

func TestRunSinhalaOverridePersisted(t *testing.T) {
	raw, processed := writeRaw(t, `[{"text": "ආයුබෝවන්"}]`)

	llm := &fakeLLM{respond: func(prompt string) (string, error) {
		if isUnifyPrompt(prompt) {
			return `{"Greetings": "Greetings"}`, nil
		}
		return `{"line_count": 1, "language": "English", "tags": ["Greetings"]}`, nil
	}}

	if _, err := newPipeline(llm, 1).Run(context.Background(), RunRequest{RawPath: raw, ProcessedPath: processed}); err != nil {
		t.Fatal(err)
	}

	posts, err := store.ReadCorpus(processed)
	if err != nil {
		t.Fatal(err)
	}
	if posts[0].Language != domain.Sinhala {
		t.Errorf("language = %s, want Sinhala", posts[0].Language)
	}
}

func TestRunCollapsesDuplicateCanonicalTags(t *testing.T) {
	raw, processed := writeRaw(t, `[{"text": "one", "id": 7}, {"text": "two"}]`)

	llm := &fakeLLM{respond: func(prompt string) (string, error) {
		switch {
		case isUnifyPrompt(prompt):
			return `{"Job Hunting": "Job Search", "Job Seeking": "Job Search", "Mindset": "Motivation"}`, nil
		case strings.Contains(prompt, "one"):
			return `{"line_count": 6, "tags": ["Job Hunting", "Job Seeking"]}`, nil
		default:
			return `{"line_count": 12, "tags": ["Mindset", "Job Hunting"]}`, nil
		}
	}}

	if _, err := newPipeline(llm, 1).Run(context.Background(), RunRequest{RawPath: raw, ProcessedPath: processed}); err != nil {
		t.Fatal(err)
	}

	posts, err := store.ReadCorpus(processed)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Job Search"}, posts[0].Tags); diff != "" {
		t.Errorf("post 0 tags (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Motivation", "Job Search"}, posts[1].Tags); diff != "" {
		t.Errorf("post 1 tags (-want +got):\n%s", diff)
	}
	if string(posts[0].Extra["id"]) != "7" {
		t.Errorf("passthrough field lost: %v", posts[0].Extra)
	}
}

// Unification must only ever see the complete vocabulary, regardless of how
// many extractions run at once, and results must keep corpus order.
func TestRunConcurrentExtractionKeepsOrderAndUnifiesLast(t *testing.T) {
	const n = 40
	var posts []map[string]string
	for i := 0; i < n; i++ {
		posts = append(posts, map[string]string{"text": fmt.Sprintf("post number %02d", i)})
	}
	body, _ := json.Marshal(posts)
	raw, processed := writeRaw(t, string(body))

	var extracted, inFlight, maxInFlight int32
	var unifyPrompt string
	var mu sync.Mutex

	llm := &fakeLLM{respond: func(prompt string) (string, error) {
		if isUnifyPrompt(prompt) {
			if got := atomic.LoadInt32(&extracted); got != n {
				return "", fmt.Errorf("unify called after %d of %d extractions", got, n)
			}
			mu.Lock()
			unifyPrompt = prompt
			mu.Unlock()
			return `{}`, nil
		}
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&maxInFlight)
			if cur <= old || atomic.CompareAndSwapInt32(&maxInFlight, old, cur) {
				break
			}
		}
		defer atomic.AddInt32(&inFlight, -1)
		defer atomic.AddInt32(&extracted, 1)

		idx := strings.TrimSpace(prompt[strings.LastIndex(prompt, "post number")+len("post number"):])
		return fmt.Sprintf(`{"line_count": 1, "tags": ["tag %s"]}`, idx), nil
	}}

	var progressCalls int32
	_, err := newPipeline(llm, 8).Run(context.Background(), RunRequest{
		RawPath:       raw,
		ProcessedPath: processed,
		Progress:      func(done, total int) { atomic.AddInt32(&progressCalls, 1) },
	})
	if err != nil {
		t.Fatal(err)
	}

	if atomic.LoadInt32(&maxInFlight) > 8 {
		t.Errorf("concurrency limit exceeded: %d", maxInFlight)
	}
	if progressCalls != n {
		t.Errorf("progress called %d times, want %d", progressCalls, n)
	}
	for i := 0; i < n; i++ {
		if !strings.Contains(unifyPrompt, fmt.Sprintf("tag %02d", i)) {
			t.Errorf("unify prompt missing tag %02d", i)
		}
	}

	out, err := store.ReadCorpus(processed)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range out {
		if want := fmt.Sprintf("post number %02d", i); p.Text != want {
			t.Fatalf("post %d text = %q, want %q", i, p.Text, want)
		}
		if want := fmt.Sprintf("tag %02d", i); len(p.Tags) != 1 || p.Tags[0] != want {
			t.Errorf("post %d tags = %v, want [%s]", i, p.Tags, want)
		}
	}
}

func TestRunAbortsWithoutWriting(t *testing.T) {
	tests := []struct {
		name    string
		respond func(prompt string) (string, error)
		check   func(t *testing.T, err error)
	}{
		{
			name: "extraction parse error",
			respond: func(prompt string) (string, error) {
				if strings.Contains(prompt, "bad") {
					return "not json at all", nil
				}
				return `{"line_count": 1, "tags": ["A"]}`, nil
			},
			check: func(t *testing.T, err error) {
				var parseErr *domain.ExtractionParseError
				if !errors.As(err, &parseErr) {
					t.Errorf("expected ExtractionParseError, got %v", err)
				}
				if !strings.Contains(err.Error(), "post 1") {
					t.Errorf("error should name the failing post: %v", err)
				}
			},
		},
		{
			name: "unification parse error",
			respond: func(prompt string) (string, error) {
				if isUnifyPrompt(prompt) {
					return "Context too big.", nil
				}
				return `{"line_count": 1, "tags": ["A"]}`, nil
			},
			check: func(t *testing.T, err error) {
				var parseErr *domain.UnificationParseError
				if !errors.As(err, &parseErr) {
					t.Errorf("expected UnificationParseError, got %v", err)
				}
			},
		},
		{
			name: "model unavailable",
			respond: func(string) (string, error) {
				return "", errors.New("503 service unavailable")
			},
			check: func(t *testing.T, err error) {
				if err == nil || !strings.Contains(err.Error(), "503") {
					t.Errorf("expected transport error, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, processed := writeRaw(t, `[{"text": "good"}, {"text": "bad"}, {"text": "good again"}]`)
			llm := &fakeLLM{respond: tt.respond}

			_, err := newPipeline(llm, 1).Run(context.Background(), RunRequest{RawPath: raw, ProcessedPath: processed})
			tt.check(t, err)

			if _, statErr := os.Stat(processed); !errors.Is(statErr, os.ErrNotExist) {
				t.Errorf("processed file must not be written on failure (stat: %v)", statErr)
			}
		})
	}
}

func TestRunDecodeError(t *testing.T) {
	raw, processed := writeRaw(t, `{"text": "not an array"`)
	llm := fixed(`{}`)

	_, err := newPipeline(llm, 1).Run(context.Background(), RunRequest{RawPath: raw, ProcessedPath: processed})
	var decodeErr *domain.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if n := len(llm.calls()); n != 0 {
		t.Errorf("no model calls expected, got %d", n)
	}
}

func TestRunSanitizesText(t *testing.T) {
	raw, processed := writeRaw(t, "[{\"text\": \"caf\xffe\"}]")
	llm := &fakeLLM{respond: func(prompt string) (string, error) {
		if isUnifyPrompt(prompt) {
			return `{}`, nil
		}
		return `{"line_count": 1, "tags": []}`, nil
	}}

	if _, err := newPipeline(llm, 1).Run(context.Background(), RunRequest{RawPath: raw, ProcessedPath: processed}); err != nil {
		t.Fatal(err)
	}
	posts, err := store.ReadCorpus(processed)
	if err != nil {
		t.Fatal(err)
	}
	if posts[0].Text != "cafe" {
		t.Errorf("text = %q, want %q", posts[0].Text, "cafe")
	}
	if n := len(llm.calls()); n != 1 {
		t.Errorf("empty vocabulary should skip unification, got %d calls", n)
	}
}
