package analytics

import (
	"unicode"
	"unicode/utf8"
)

// MiddleDiffs strips the longest prefix and suffix shared by every input and
// returns what is left of each, in input order. Prefix and suffix lengths are
// measured against the first input rune by rune. With fewer than two inputs
// nothing is stripped.
//
// The cut never splits a word. A day or a 4-digit year that all inputs
// share next to the middle ("Strike by January 31?" and "Strike by
// March 31?") is kept when it turns every middle into a date.
func MiddleDiffs(inputs []string) []string {
	if len(inputs) < 2 {
		return append([]string{}, inputs...)
	}

	base := inputs[0]
	prefixLen, suffixLen := len(base), len(base)
	for _, s := range inputs[1:] {
		prefixLen = min(prefixLen, commonPrefixLen(base, s))
		suffixLen = min(suffixLen, commonSuffixLen(base, s))
	}
	prefixLen = wordStart(inputs, prefixLen)
	suffixLen = wordEnd(inputs, suffixLen)

	out := cut(inputs, prefixLen, suffixLen)
	if n := trailingNumberLen(base[len(base)-suffixLen:]); n > 0 {
		if widened := cut(inputs, prefixLen, suffixLen-n); allDateLike(out, widened) {
			out, suffixLen = widened, suffixLen-n
		}
	}
	if n := leadingNumberLen(base[:prefixLen]); n > 0 {
		if widened := cut(inputs, prefixLen-n, suffixLen); allDateLike(out, widened) {
			out = widened
		}
	}
	return out
}

func cut(inputs []string, prefixLen, suffixLen int) []string {
	out := make([]string, len(inputs))
	for i, s := range inputs {
		start := min(prefixLen, len(s))
		end := len(s) - min(suffixLen, len(s)-start)
		out[i] = s[start:end]
	}
	return out
}

// allDateLike reports whether widened is all dates and every middle it
// replaces was non-empty.
func allDateLike(middles, widened []string) bool {
	for i := range widened {
		if middles[i] == "" || !IsDateLike(widened[i]) {
			return false
		}
	}
	return true
}

// wordStart moves a prefix cut that lands inside a word back to the start
// of that word.
func wordStart(inputs []string, prefixLen int) int {
	base := inputs[0]
	if prefixLen == 0 || prefixLen == len(base) {
		return prefixLen
	}
	before, _ := utf8.DecodeLastRuneInString(base[:prefixLen])
	if !isWordRune(before) {
		return prefixLen
	}
	inside := false
	for _, s := range inputs {
		if prefixLen < len(s) {
			after, _ := utf8.DecodeRuneInString(s[prefixLen:])
			inside = inside || isWordRune(after)
		}
	}
	if !inside {
		return prefixLen
	}
	for prefixLen > 0 {
		r, size := utf8.DecodeLastRuneInString(base[:prefixLen])
		if !isWordRune(r) {
			break
		}
		prefixLen -= size
	}
	return prefixLen
}

// wordEnd is wordStart for the suffix cut.
func wordEnd(inputs []string, suffixLen int) int {
	base := inputs[0]
	if suffixLen == 0 || suffixLen == len(base) {
		return suffixLen
	}
	after, _ := utf8.DecodeRuneInString(base[len(base)-suffixLen:])
	if !isWordRune(after) {
		return suffixLen
	}
	inside := false
	for _, s := range inputs {
		if suffixLen < len(s) {
			before, _ := utf8.DecodeLastRuneInString(s[:len(s)-suffixLen])
			inside = inside || isWordRune(before)
		}
	}
	if !inside {
		return suffixLen
	}
	for suffixLen > 0 {
		r, size := utf8.DecodeRuneInString(base[len(base)-suffixLen:])
		if !isWordRune(r) {
			break
		}
		suffixLen -= size
	}
	return suffixLen
}

// trailingNumberLen returns the byte length of the spaces and number that
// open suffix, as in " 31?", when the number is a day or a 4-digit year.
func trailingNumberLen(suffix string) int {
	i := 0
	for i < len(suffix) && suffix[i] == ' ' {
		i++
	}
	if i == 0 {
		return 0
	}
	j := i
	for j < len(suffix) && isASCIIDigit(rune(suffix[j])) {
		j++
	}
	if j < len(suffix) {
		if r, _ := utf8.DecodeRuneInString(suffix[j:]); isWordRune(r) {
			return 0
		}
	}
	if !isDayOrYear(suffix[i:j]) {
		return 0
	}
	return j
}

// leadingNumberLen is trailingNumberLen for a prefix ending in "31 ".
func leadingNumberLen(prefix string) int {
	j := len(prefix)
	for j > 0 && prefix[j-1] == ' ' {
		j--
	}
	if j == len(prefix) {
		return 0
	}
	i := j
	for i > 0 && isASCIIDigit(rune(prefix[i-1])) {
		i--
	}
	if i > 0 {
		if r, _ := utf8.DecodeLastRuneInString(prefix[:i]); isWordRune(r) {
			return 0
		}
	}
	if !isDayOrYear(prefix[i:j]) {
		return 0
	}
	return len(prefix) - i
}

func isDayOrYear(digits string) bool {
	if digits == "" || len(digits) > 4 {
		return false
	}
	v := 0
	for _, r := range digits {
		v = v*10 + int(r-'0')
	}
	n := numToken{value: uint64(v), width: len(digits)}
	return (len(digits) <= 2 && isDay(n.value)) || isYear(n)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// commonPrefixLen returns the byte length of the longest common rune prefix.
func commonPrefixLen(a, b string) int {
	n := 0
	for len(a) > 0 && len(b) > 0 {
		ra, sa := utf8.DecodeRuneInString(a)
		rb, sb := utf8.DecodeRuneInString(b)
		if ra != rb || sa != sb {
			break
		}
		n += sa
		a, b = a[sa:], b[sb:]
	}
	return n
}

// commonSuffixLen returns the byte length of the longest common rune suffix.
func commonSuffixLen(a, b string) int {
	n := 0
	for len(a) > 0 && len(b) > 0 {
		ra, sa := utf8.DecodeLastRuneInString(a)
		rb, sb := utf8.DecodeLastRuneInString(b)
		if ra != rb || sa != sb {
			break
		}
		n += sa
		a, b = a[:len(a)-sa], b[:len(b)-sb]
	}
	return n
}
