package match

import "bytes"

// Pure helpers for word-bounded matching. They depend only on their inputs.

// IsWordCharacter returns true if the byte is a word character (alphanumeric or underscore).
func IsWordCharacter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9') || b == '_'
}

// IsBoundedOccurrence reports whether content[start:end] is preceded by a
// non-word character or the start of content, and followed by a non-word
// character or the end of content.
func IsBoundedOccurrence(content []byte, start, end int) bool {
	if start < 0 || end > len(content) || start > end {
		return false
	}
	if start > 0 && IsWordCharacter(content[start-1]) {
		return false
	}
	if end < len(content) && IsWordCharacter(content[end]) {
		return false
	}
	return true
}

// ContainsWholeWord reports whether pattern occurs in content as a whole word.
// Overlapping candidates are considered, so "aa" is found in "aaa aa".
func ContainsWholeWord(content, pattern []byte) bool {
	if len(pattern) == 0 || len(pattern) > len(content) {
		return false
	}

	offset := 0
	for offset <= len(content)-len(pattern) {
		idx := bytes.Index(content[offset:], pattern)
		if idx < 0 {
			return false
		}
		start := offset + idx
		if IsBoundedOccurrence(content, start, start+len(pattern)) {
			return true
		}
		offset = start + 1
	}
	return false
}
