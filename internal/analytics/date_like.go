package analytics

import (
	"strconv"
	"strings"
)

var monthNames = map[string]struct{}{
	"jan": {}, "january": {},
	"feb": {}, "february": {},
	"mar": {}, "march": {},
	"apr": {}, "april": {},
	"may": {},
	"jun": {}, "june": {},
	"jul": {}, "july": {},
	"aug": {}, "august": {},
	"sep": {}, "sept": {}, "september": {},
	"oct": {}, "october": {},
	"nov": {}, "november": {},
	"dec": {}, "december": {},
}

// numToken is a run of ASCII digits and its length in the input, which
// tells a 4-digit year from a 2-digit one.
type numToken struct {
	value uint64
	width int
}

// IsDateLike reports whether s reads as a calendar date or part of one:
// month names optionally with a day or year ("Jan 17", "January 2024"),
// numeric shapes with two or three parts ("2024-01-17", "01/2024", "01-17-24"),
// or a bare year ("2024").
func IsDateLike(s string) bool {
	s = strings.TrimFunc(strings.TrimSpace(s), func(r rune) bool { return !isASCIIAlnum(r) })
	if s == "" {
		return false
	}
	return isMonthNameDate(s) || isNumericDate(s) || isYearOnly(s)
}

func isMonthNameDate(s string) bool {
	words := strings.FieldsFunc(s, func(r rune) bool { return !isASCIILetter(r) })
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if _, ok := monthNames[strings.ToLower(w)]; !ok {
			return false
		}
	}
	for _, n := range numericTokens(s) {
		if !isDay(n.value) && !isYear(n) {
			return false
		}
	}
	return true
}

func isNumericDate(s string) bool {
	for _, r := range s {
		if isASCIILetter(r) {
			return false
		}
	}
	nums := numericTokens(s)
	switch len(nums) {
	case 2:
		a, b := nums[0], nums[1]
		return (isYear(a) && isMonth(b.value)) ||
			(isYear(b) && isMonth(a.value)) ||
			isMonthDayPair(a.value, b.value)
	case 3:
		return isThreePartDate(nums[0], nums[1], nums[2], isYear) ||
			isThreePartDate(nums[0], nums[1], nums[2], isShortYear)
	default:
		return false
	}
}

// isThreePartDate accepts a year in any position. A leading year must be
// followed by month then day; otherwise month and day may come in either
// order.
func isThreePartDate(a, b, c numToken, year func(numToken) bool) bool {
	switch {
	case year(a) && isMonth(b.value) && isDay(c.value):
		return true
	case year(b) && isMonthDayPair(a.value, c.value):
		return true
	case year(c) && isMonthDayPair(a.value, b.value):
		return true
	}
	return false
}

func isYearOnly(s string) bool {
	if len(s) != 4 {
		return false
	}
	v, err := strconv.ParseUint(s, 10, 32)
	return err == nil && v >= 1000
}

func isMonthDayPair(a, b uint64) bool {
	return (isMonth(a) && isDay(b)) || (isMonth(b) && isDay(a))
}

func isYear(n numToken) bool      { return n.width == 4 && n.value >= 1000 && n.value <= 9999 }
func isShortYear(n numToken) bool { return n.width == 2 }
func isMonth(v uint64) bool       { return v >= 1 && v <= 12 }
func isDay(v uint64) bool         { return v >= 1 && v <= 31 }

func numericTokens(s string) []numToken {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	out := make([]numToken, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			continue
		}
		out = append(out, numToken{value: v, width: len(f)})
	}
	return out
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isASCIIAlnum(r rune) bool {
	return isASCIILetter(r) || isASCIIDigit(r)
}
