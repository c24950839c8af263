package config

import "strings"

// ExpandBraces expands a generative expression such as
// "{windows,linux}-{tests,unit}" into the cross product of its
// alternatives, left to right. A string without braces expands to itself.
func ExpandBraces(s string) []string {
	open := strings.IndexByte(s, '{')
	if open < 0 {
		return []string{s}
	}
	end := strings.IndexByte(s[open:], '}')
	if end < 0 {
		// Unbalanced brace: treat literally.
		return []string{s}
	}
	end += open

	prefix := s[:open]
	alts := strings.Split(s[open+1:end], ",")
	rest := ExpandBraces(s[end+1:])

	out := make([]string, 0, len(alts)*len(rest))
	for _, alt := range alts {
		alt = strings.TrimSpace(alt)
		for _, r := range rest {
			out = append(out, prefix+alt+r)
		}
	}
	return out
}

// SplitList splits a comma/whitespace separated list, keeping generative
// brace expressions intact: commas inside braces are not separators.
func SplitList(s string) []string {
	var items []string
	depth, start := 0, 0
	flush := func(end int) {
		if item := strings.TrimSpace(s[start:end]); item != "" {
			items = append(items, item)
		}
		start = end + 1
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',', ' ', '\t', '\n':
			if depth == 0 {
				flush(i)
			}
		}
	}
	flush(len(s))
	return items
}

// splitList splits a comma- or whitespace-separated value into its
// non-empty items. For plain lists with no brace expressions.
func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}
