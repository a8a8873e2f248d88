package chunker

import "unicode/utf8"

// maxOverlapProbe matches the upper bound the service accepts for chunk_overlap.
const maxOverlapProbe = 1000

// GetLastNChars возвращает последние N символов строки
func GetLastNChars(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}

// GetFirstNChars возвращает первые N символов строки
func GetFirstNChars(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}

// MeasureOverlap returns the longest run of characters that ends prev and
// starts next, capped at maxOverlapProbe.
func MeasureOverlap(prev, next string) int {
	p, q := []rune(prev), []rune(next)
	limit := min(len(p), len(q), maxOverlapProbe)
	for n := limit; n > 0; n-- {
		if string(p[len(p)-n:]) == string(q[:n]) {
			return n
		}
	}
	return 0
}

// Truncate cuts text to n characters and marks the cut.
func Truncate(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return GetFirstNChars(text, n) + "…"
}
