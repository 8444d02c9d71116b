package length

import (
	"encoding/json"
	"testing"

	"postenrich/internal/domain"
)

func TestFromIntBoundaries(t *testing.T) {
	for n := -3; n <= 40; n++ {
		var want domain.LengthCategory
		switch {
		case n < 5:
			want = domain.Short
		case n >= 5 && n <= 10:
			want = domain.Medium
		default:
			want = domain.Long
		}
		if got := FromInt(n); got != want {
			t.Errorf("FromInt(%d) = %s, want %s", n, got, want)
		}
	}
}

func TestCategorizeDecoded(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.LengthCategory
	}{
		{`3`, domain.Short},
		{`4`, domain.Short},
		{`5`, domain.Medium},
		{`10`, domain.Medium},
		{`11`, domain.Long},
		{`7.0`, domain.Medium},
		{`4.5`, domain.Short},
		{`10.5`, domain.Long},
		{`1e10`, domain.Long},
		{`3000000000`, domain.Long},
		{`1e400`, domain.Long},
		{`-2`, domain.Short},
		{`"12"`, domain.Unknown},
		{`"4"`, domain.Unknown},
		{`"three"`, domain.Unknown},
		{`null`, domain.Unknown},
		{`true`, domain.Unknown},
		{`[1]`, domain.Unknown},
	}

	for _, tt := range tests {
		var c domain.LineCount
		if err := json.Unmarshal([]byte(tt.raw), &c); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.raw, err)
		}
		if got := Categorize(c); got != tt.want {
			t.Errorf("Categorize(%s) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestCategorizeZeroValue(t *testing.T) {
	if got := Categorize(domain.LineCount{}); got != domain.Unknown {
		t.Errorf("zero LineCount = %s, want Unknown", got)
	}
}

func TestLineCountPersistsModelValue(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`4.5`, `4.5`},
		{`1e10`, `1e10`},
		{`3000000000`, `3000000000`},
		{`"12"`, `"12"`},
		{`{ "n" : 3 }`, `{"n":3}`},
		{`null`, `null`},
	}

	for _, tt := range tests {
		var c domain.LineCount
		if err := json.Unmarshal([]byte(tt.raw), &c); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.raw, err)
		}
		out, err := json.Marshal(c)
		if err != nil {
			t.Fatalf("marshal %s: %v", tt.raw, err)
		}
		if string(out) != tt.want {
			t.Errorf("round trip of %s = %s, want %s", tt.raw, out, tt.want)
		}

		var back domain.LineCount
		if err := json.Unmarshal(out, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", out, err)
		}
		if Categorize(back) != Categorize(c) {
			t.Errorf("%s changed bucket after round trip: %s -> %s", tt.raw, Categorize(c), Categorize(back))
		}
	}
}

func TestFromValueBoundaries(t *testing.T) {
	tests := []struct {
		n    float64
		want domain.LengthCategory
	}{
		{4.999, domain.Short},
		{5, domain.Medium},
		{10, domain.Medium},
		{10.001, domain.Long},
	}
	for _, tt := range tests {
		if got := FromValue(tt.n); got != tt.want {
			t.Errorf("FromValue(%v) = %s, want %s", tt.n, got, tt.want)
		}
	}
}
