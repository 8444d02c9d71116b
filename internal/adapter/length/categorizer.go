package length

import "postenrich/internal/domain"

// Categorize buckets a line count: Short below 5, Medium from 5 to 10, Long
// above 10, Unknown when the count is not a number.
func Categorize(c domain.LineCount) domain.LengthCategory {
	if !c.Valid {
		return domain.Unknown
	}
	return FromValue(c.N)
}

func FromInt(n int) domain.LengthCategory {
	return FromValue(float64(n))
}

// FromValue buckets by numeric value, so fractional counts fall on either
// side of a boundary (4.5 is Short, 10.5 is Long).
func FromValue(n float64) domain.LengthCategory {
	switch {
	case n < 5:
		return domain.Short
	case n <= 10:
		return domain.Medium
	default:
		return domain.Long
	}
}
