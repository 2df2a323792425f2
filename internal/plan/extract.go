package plan

import "strings"

// fencedBlock returns the contents of the first triple-backtick code block,
// skipping an optional language tag on the opening fence. Returns "" when no
// complete block exists.
func fencedBlock(text string) string {
	start := strings.Index(text, "```")
	if start == -1 {
		return ""
	}
	rest := text[start+3:]

	// Drop the language tag (e.g. "json") up to the first newline.
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine != "" && !strings.ContainsAny(firstLine, "{}[]") {
			rest = rest[nl+1:]
		}
	}

	end := strings.Index(rest, "```")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// balancedSpans returns every balanced {...} span in the text, in order.
// An opening brace that never closes does not end the scan: the search
// resumes at the next opening brace, so a stray brace in surrounding prose
// cannot hide a payload that appears later in the text.
func balancedSpans(text string) []string {
	var spans []string
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		end, ok := matchBrace(text, i)
		if !ok {
			continue
		}
		spans = append(spans, text[i:end+1])
		i = end
	}
	return spans
}

// balancedSpan returns the first balanced {...} span in the text, or ""
// when none exists.
func balancedSpan(text string) string {
	if spans := balancedSpans(text); len(spans) > 0 {
		return spans[0]
	}
	return ""
}

// matchBrace walks from the opening brace at start, tracking brace depth
// and ignoring braces inside string literals, and returns the index of the
// brace that closes it.
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// smartQuotes maps typographic quotes that models sometimes emit back to the
// ASCII forms JSON requires.
var smartQuotes = strings.NewReplacer(
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"‘", "'", // left single quote
	"’", "'", // right single quote
)

// sanitize applies light repairs to a JSON candidate: smart quotes become
// ASCII quotes and trailing commas before a closing brace or bracket are
// stripped. String literal contents are left untouched for the comma pass.
func sanitize(candidate string) string {
	s := smartQuotes.Replace(candidate)

	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}

		if c == ',' {
			// Look ahead past whitespace; drop the comma if the next
			// significant byte closes an object or array.
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
