package config

import (
	"strings"
)

// rawSection holds a section's keys in declaration order before
// interpretation. Each key maps to the lines of its value: the inline
// remainder of "key = value" (if non-empty) followed by any indented
// continuation lines.
type rawSection struct {
	name string
	line int
	keys []rawKey
}

type rawKey struct {
	name  string
	line  int
	lines []valueLine
}

type valueLine struct {
	text string
	line int
}

// parseSections performs the line-level pass: section headers, key/value
// pairs, indented continuations, and comment stripping.
func parseSections(path string, data []byte) ([]*rawSection, error) {
	var sections []*rawSection
	var cur *rawSection
	var curKey *rawKey

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	for i, raw := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if trimmed[0] == '#' || trimmed[0] == ';' {
			continue
		}

		indented := raw[0] == ' ' || raw[0] == '\t'
		if !indented && strings.HasPrefix(trimmed, "[") {
			if !strings.HasSuffix(trimmed, "]") {
				return nil, errf(path, lineNo, "unterminated section header %q", trimmed)
			}
			name := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
			if name == "" {
				return nil, errf(path, lineNo, "empty section name")
			}
			cur = &rawSection{name: name, line: lineNo}
			curKey = nil
			sections = append(sections, cur)
			continue
		}

		if indented {
			if curKey == nil {
				return nil, errf(path, lineNo, "continuation line outside a key")
			}
			curKey.lines = append(curKey.lines, valueLine{text: trimmed, line: lineNo})
			continue
		}

		// key = value at column zero
		eq := strings.IndexByte(raw, '=')
		if eq < 0 {
			return nil, errf(path, lineNo, "expected key = value, got %q", trimmed)
		}
		if cur == nil {
			return nil, errf(path, lineNo, "key outside a section")
		}
		key := strings.TrimSpace(raw[:eq])
		if key == "" {
			return nil, errf(path, lineNo, "empty key name")
		}
		val := strings.TrimSpace(raw[eq+1:])
		cur.keys = append(cur.keys, rawKey{name: key, line: lineNo})
		curKey = &cur.keys[len(cur.keys)-1]
		if val != "" {
			curKey.lines = append(curKey.lines, valueLine{text: val, line: lineNo})
		}
	}
	return sections, nil
}

// joined returns the key's lines joined with newlines, for scalar keys.
func (k rawKey) joined() string {
	parts := make([]string, 0, len(k.lines))
	for _, l := range k.lines {
		parts = append(parts, l.text)
	}
	return strings.Join(parts, "\n")
}
