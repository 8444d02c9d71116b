package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"postenrich/internal/adapter/jsonparse"
	"postenrich/internal/domain"
	"postenrich/internal/port"
)

// TagUnifier builds one canonical tag vocabulary for a whole corpus.
type TagUnifier struct {
	llm port.LLM
}

func NewTagUnifier(llm port.LLM) *TagUnifier {
	return &TagUnifier{llm: llm}
}

// UnifyResult holds the tag map and the raw tags the model left out, which
// map to themselves unchanged.
type UnifyResult struct {
	Map       domain.TagMap
	Fallbacks []string
}

// Unify makes a single model call covering every distinct tag in rawTags and
// returns a map that:
//   - has every observed raw tag as a key,
//   - has Title-Cased values for every tag the model answered,
//   - maps every value to itself.
//
// An unparseable reply is a *domain.UnificationParseError.
func (u *TagUnifier) Unify(ctx context.Context, rawTags []string) (*UnifyResult, error) {
	tags := domain.NewTagSet(rawTags).Sorted()
	if len(tags) == 0 {
		return &UnifyResult{Map: domain.TagMap{}}, nil
	}

	prompt, err := render(unifyTemplate, unifyPromptData{Tags: tags})
	if err != nil {
		return nil, err
	}

	response, err := u.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("tag unification call failed: %w", err)
	}

	var reply map[string]string
	if err := jsonparse.Object(response, &reply); err != nil {
		return nil, &domain.UnificationParseError{Response: response, Err: err}
	}

	return buildTagMap(tags, reply), nil
}

func buildTagMap(observed []string, reply map[string]string) *UnifyResult {
	caser := cases.Title(language.Und, cases.NoLower)

	result := &UnifyResult{}
	direct := make(domain.TagMap, len(observed))
	for _, raw := range observed {
		canonical := titleCase(caser, reply[raw])
		if canonical == "" {
			canonical = raw
			result.Fallbacks = append(result.Fallbacks, raw)
		}
		direct[raw] = canonical
	}

	// Follow chains such as Jobs -> Career -> Career Growth so that a value
	// is never itself remapped. Cycles stop at the first repeat.
	resolved := make(domain.TagMap, len(direct))
	for raw := range direct {
		seen := map[string]bool{raw: true}
		cur := direct[raw]
		for {
			next, ok := direct[cur]
			if !ok || next == cur || seen[cur] {
				break
			}
			seen[cur] = true
			cur = next
		}
		resolved[raw] = cur
	}

	values := make([]string, 0, len(resolved))
	for _, v := range resolved {
		values = append(values, v)
	}
	sort.Strings(values)
	for _, v := range values {
		resolved[v] = v
	}

	result.Map = resolved
	return result
}

// titleCase collapses whitespace and upper-cases each word's first letter.
// Mixed-case words keep their capitals (AI Tools); an all-caps value is
// lowered first (JOB SEARCH becomes Job Search) unless it is a single short
// word such as AI or HR.
func titleCase(caser cases.Caser, s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == strings.ToUpper(s) && !isAcronym(s) {
		s = strings.ToLower(s)
	}
	return caser.String(s)
}

func isAcronym(s string) bool {
	return !strings.Contains(s, " ") && utf8.RuneCountInString(s) <= 4
}
