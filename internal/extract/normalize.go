package extract

import (
	"strings"
)

// normalizeAnswer strips the decoration models put around a bare answer:
// markdown fences, surrounding quotes or backticks, a trailing period and
// any lines after the first. It returns false for empty and null answers.
func normalizeAnswer(s string) (string, bool) {
	s = stripMarkdown(s)
	if line, _, ok := strings.Cut(s, "\n"); ok {
		s = line
	}
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`“”‘’")
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "."))
	s = strings.Join(strings.Fields(s), " ")

	switch strings.ToLower(s) {
	case "", "null", "none", "nil", "n/a", "undefined":
		return "", false
	}
	return s, true
}

// firstVerse cuts anything after the verse number, reducing a range such as
// "John 3:16-18" or an annotated "John 3:16 (NIV)" to "John 3:16".
func firstVerse(addr string) string {
	idx := strings.IndexByte(addr, ':')
	if idx < 0 {
		return addr
	}
	end := idx + 1
	for end < len(addr) && addr[end] >= '0' && addr[end] <= '9' {
		end++
	}
	return addr[:end]
}

func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```text", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
