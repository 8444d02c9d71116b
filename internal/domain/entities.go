package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type Language string

const (
	English Language = "English"
	Tamil   Language = "Tamil"
	Sinhala Language = "Sinhala"
)

// Languages lists the closed set of supported languages.
var Languages = []Language{English, Tamil, Sinhala}

// ParseLanguage matches s case-insensitively against the supported languages.
func ParseLanguage(s string) (Language, error) {
	for _, l := range Languages {
		if strings.EqualFold(strings.TrimSpace(s), string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unsupported language %q (want English, Tamil or Sinhala)", s)
}

type LengthCategory string

const (
	Short   LengthCategory = "Short"
	Medium  LengthCategory = "Medium"
	Long    LengthCategory = "Long"
	Unknown LengthCategory = "Unknown"
)

// ParseLengthCategory matches s case-insensitively against the length buckets.
func ParseLengthCategory(s string) (LengthCategory, error) {
	for _, c := range []LengthCategory{Short, Medium, Long, Unknown} {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unsupported length %q (want Short, Medium, Long or Unknown)", s)
}

// LineCount is a line count as reported by the model or read back from disk.
// Any JSON number is valid and buckets by its numeric value; strings, booleans
// and null are not. Raw keeps the value exactly as received so it is written
// back unchanged.
type LineCount struct {
	N     float64
	Valid bool
	Raw   string
}

func NewLineCount(n int) LineCount {
	return LineCount{N: float64(n), Valid: true, Raw: strconv.Itoa(n)}
}

func (c LineCount) String() string {
	if c.Raw != "" {
		return c.Raw
	}
	if c.Valid {
		return strconv.FormatFloat(c.N, 'g', -1, 64)
	}
	return "null"
}

func (c LineCount) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON never fails on well-formed JSON. Numbers too large for a
// float64 decode as infinities and stay valid.
func (c *LineCount) UnmarshalJSON(data []byte) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return err
	}
	*c = LineCount{}
	if buf.String() == "null" {
		return nil
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(buf.Bytes()))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	c.Raw = buf.String()
	if n, ok := v.(json.Number); ok {
		f, _ := strconv.ParseFloat(n.String(), 64)
		c.N = f
		c.Valid = true
	}
	return nil
}

// RawPost is one entry of the raw input corpus. Every key other than "text"
// is kept in Extra and written back untouched.
type RawPost struct {
	Text  string
	Extra map[string]json.RawMessage
}

func (p RawPost) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.Extra)+1)
	for k, v := range p.Extra {
		out[k] = v
	}
	text, err := json.Marshal(p.Text)
	if err != nil {
		return nil, err
	}
	out["text"] = text
	return json.Marshal(out)
}

func (p *RawPost) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("post is not a JSON object")
	}
	*p = RawPost{}
	if raw, ok := fields["text"]; ok {
		if err := json.Unmarshal(raw, &p.Text); err != nil {
			return fmt.Errorf("field text: %w", err)
		}
		delete(fields, "text")
	}
	if len(fields) > 0 {
		p.Extra = fields
	}
	return nil
}

// ExtractedMetadata is the per-post model output after language override.
type ExtractedMetadata struct {
	LineCount LineCount `json:"line_count"`
	Language  Language  `json:"language"`
	Tags      []string  `json:"tags"`
}

// Keys written by metadata; they shadow passthrough fields of the same name.
var metadataKeys = []string{"line_count", "language", "tags", "length_category"}

// EnrichedPost is the persisted unit. LengthCategory is derived on load and
// never written.
type EnrichedPost struct {
	RawPost
	LineCount      LineCount
	Language       Language
	Tags           []string
	LengthCategory LengthCategory
}

// Merge combines a raw post with its extracted metadata. Metadata keys always
// take precedence: a passthrough field named line_count, language, tags or
// length_category is dropped.
func Merge(raw RawPost, meta ExtractedMetadata) EnrichedPost {
	var extra map[string]json.RawMessage
	for k, v := range raw.Extra {
		if isMetadataKey(k) {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage, len(raw.Extra))
		}
		extra[k] = v
	}
	tags := meta.Tags
	if tags == nil {
		tags = []string{}
	}
	return EnrichedPost{
		RawPost:   RawPost{Text: raw.Text, Extra: extra},
		LineCount: meta.LineCount,
		Language:  meta.Language,
		Tags:      append([]string(nil), tags...),
	}
}

func isMetadataKey(k string) bool {
	for _, m := range metadataKeys {
		if k == m {
			return true
		}
	}
	return false
}

type enrichedFields struct {
	LineCount LineCount `json:"line_count"`
	Language  Language  `json:"language"`
	Tags      []string  `json:"tags"`
}

func (p EnrichedPost) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.Extra)+4)
	for k, v := range p.Extra {
		if !isMetadataKey(k) {
			out[k] = v
		}
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	fields := map[string]any{
		"text":       p.Text,
		"line_count": p.LineCount,
		"language":   p.Language,
		"tags":       tags,
	}
	for k, v := range fields {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[k] = data
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a persisted post. A tags value that is not an array of
// strings is treated as no tags.
func (p *EnrichedPost) UnmarshalJSON(data []byte) error {
	var raw RawPost
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var f struct {
		LineCount LineCount       `json:"line_count"`
		Language  Language        `json:"language"`
		Tags      json.RawMessage `json:"tags"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	var tags []string
	if len(f.Tags) > 0 {
		if err := json.Unmarshal(f.Tags, &tags); err != nil {
			tags = nil
		}
	}
	if tags == nil {
		tags = []string{}
	}
	extra := raw.Extra
	for _, k := range metadataKeys {
		delete(extra, k)
	}
	if len(extra) == 0 {
		extra = nil
	}
	*p = EnrichedPost{
		RawPost:   RawPost{Text: raw.Text, Extra: extra},
		LineCount: f.LineCount,
		Language:  f.Language,
		Tags:      tags,
	}
	return nil
}

// HasTag reports whether tag is one of the post's tags.
func (p EnrichedPost) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// TagMap maps raw tags to canonical tags.
type TagMap map[string]string

// Canonical returns the canonical form of tag, or tag itself when unmapped.
func (m TagMap) Canonical(tag string) string {
	if c, ok := m[tag]; ok {
		return c
	}
	return tag
}

// Apply maps tags through m, keeping the first occurrence of each canonical tag.
func (m TagMap) Apply(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		c := m.Canonical(t)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Values returns the distinct canonical tags.
func (m TagMap) Values() TagSet {
	vals := make([]string, 0, len(m))
	for _, v := range m {
		vals = append(vals, v)
	}
	return NewTagSet(vals)
}

// TagSet is a sorted set of distinct tags.
type TagSet struct {
	tags []string
}

func NewTagSet(tags []string) TagSet {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return TagSet{tags: out}
}

// Sorted returns a copy of the tags in ascending order.
func (s TagSet) Sorted() []string {
	return append([]string{}, s.tags...)
}

func (s TagSet) Contains(tag string) bool {
	i := sort.SearchStrings(s.tags, tag)
	return i < len(s.tags) && s.tags[i] == tag
}

func (s TagSet) Len() int {
	return len(s.tags)
}

func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}
