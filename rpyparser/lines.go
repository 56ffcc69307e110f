package rpyparser

import (
	"fmt"
	"path/filepath"
	"strings"
)

// LogicalLine is one statement's source text after comments, continuations
// and string-aware joining have been applied. It may span several physical
// lines; Loc records where it started.
type LogicalLine struct {
	Loc  Loc
	Text string
}

// maxLogicalToken bounds a single token within a logical line. Runaway
// strings or bracket groups trip this before consuming the whole file.
const maxLogicalToken = 65536

// MungeFilename derives the private-name prefix for a file. The base name
// loses its extension (and a trailing "_ren" for the legacy .py embedding
// convention), spaces become underscores, and any other non-identifier
// character is replaced with its hex codepoint.
func MungeFilename(path string) string {
	stem := filepath.Base(path)
	if ext := filepath.Ext(stem); ext != "" {
		stem = strings.TrimSuffix(stem, ext)
		if ext == ".py" {
			stem = strings.TrimSuffix(stem, "_ren")
		}
	}

	stem = strings.ReplaceAll(stem, " ", "_")

	var b strings.Builder
	for _, c := range stem {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			b.WriteRune(c)
		default:
			fmt.Fprintf(&b, "0x%x", c)
		}
	}

	return "_m1_" + b.String() + "__"
}

// ConvertRenPy rewrites the legacy *_ren.py host-embedding dialect into the
// native dialect. Text outside """renpy blocks is blanked, block headers are
// kept as-is, and block bodies are re-indented under the prefix declared by
// the header's last indented line.
func ConvertRenPy(data, filename string) (string, error) {
	const (
		stateIgnore = iota
		stateHeader
		stateBody
	)

	lines := strings.Split(data, "\n")
	result := make([]string, 0, len(lines))
	prefix := ""
	state := stateIgnore
	openLine := 0

	for i, line := range lines {
		if state != stateHeader && strings.HasPrefix(line, `"""renpy`) {
			state = stateHeader
			openLine = i + 1
			result = append(result, "")
			continue
		}

		switch state {
		case stateHeader:
			if line == `"""` {
				state = stateBody
				result = append(result, "")
				continue
			}

			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				result = append(result, line)
				continue
			}

			prefix = line[:len(line)-len(strings.TrimLeft(line, " "))]
			if strings.HasSuffix(trimmed, ":") {
				prefix += "    "
			}

			result = append(result, line)

		case stateBody:
			result = append(result, prefix+line)

		default:
			result = append(result, "")
		}
	}

	switch state {
	case stateIgnore:
		return "", lexErrorf(Loc{File: filename, Line: 1},
			`no """renpy blocks found, every line would be ignored`)
	case stateHeader:
		return "", lexErrorf(Loc{File: filename, Line: openLine},
			`open """renpy block is not terminated by """`)
	}

	return strings.Join(result, "\n"), nil
}

func letterlike(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		return true
	}
	return false
}

// matchLogicalWord consumes one run of spaces, one identifier-like word, or
// one other character, and reports whether the word is a munging candidate
// (at least three characters starting with a double underscore).
func matchLogicalWord(s []rune, pos int) (string, bool, int) {
	start := pos
	c := s[pos]

	switch {
	case c == ' ':
		pos++
		for pos < len(s) && s[pos] == ' ' {
			pos++
		}
	case letterlike(c):
		pos++
		for pos < len(s) && letterlike(s[pos]) {
			pos++
		}
	default:
		pos++
	}

	word := string(s[start:pos])
	magic := pos-start >= 3 && strings.HasPrefix(word, "__")

	return word, magic, pos
}

// ListLogicalLines splits raw file text into logical lines. Indentation must
// use spaces only, newlines inside bracket groups and strings do not end a
// line, backslash-newline continues a line, and # comments are stripped.
// Double-underscore identifiers are munged with the file's private prefix.
func ListLogicalLines(filename, data string) ([]LogicalLine, error) {
	prefix := MungeFilename(filename)

	// Trailing newlines guarantee every line is terminated.
	data += "\n\n"

	chars := []rune(data)
	pos := 0
	number := 1

	if len(chars) > 0 && chars[0] == '\uFEFF' {
		pos++
	}

	var result []LogicalLine

	for pos < len(chars) {
		startNumber := number
		var line []string
		parendepth := 0

		for pos < len(chars) {
			startpos := pos
			c := chars[pos]

			if c == '\t' {
				return nil, lexErrorf(Loc{File: filename, Line: number},
					"tab characters are not allowed in scripts")
			}

			if c == '\n' && parendepth == 0 {
				text := strings.Join(line, "")
				if strings.TrimSpace(text) != "" {
					result = append(result, LogicalLine{
						Loc:  Loc{File: filename, Line: startNumber},
						Text: text,
					})
				}
				pos++
				number++
				line = nil
				break
			}

			if c == '\n' {
				number++
			}

			if c == '\r' {
				pos++
				continue
			}

			if c == '\\' && pos+1 < len(chars) && chars[pos+1] == '\n' {
				pos += 2
				number++
				line = append(line, "\\\n")
				continue
			}

			switch c {
			case '(', '[', '{':
				parendepth++
			case ')', ']', '}':
				if parendepth > 0 {
					parendepth--
				}
			}

			if c == '#' {
				for pos < len(chars) && chars[pos] != '\n' {
					pos++
				}
				continue
			}

			if c == '"' || c == '\'' || c == '`' {
				delim := c
				line = append(line, string(c))
				pos++

				escape := false
				tripleQuote := false

				if pos+1 < len(chars) && chars[pos] == delim && chars[pos+1] == delim {
					line = append(line, string(delim), string(delim))
					pos += 2
					tripleQuote = true
				}

				var s []rune

				for pos < len(chars) {
					c := chars[pos]

					if c == '\n' {
						number++
					}

					if c == '\r' {
						pos++
						continue
					}

					if escape {
						escape = false
						pos++
						s = append(s, c)
						continue
					}

					if c == delim {
						if !tripleQuote {
							pos++
							s = append(s, c)
							break
						}

						if pos+2 < len(chars) && chars[pos+1] == delim && chars[pos+2] == delim {
							pos += 3
							s = append(s, delim, delim, delim)
							break
						}
					}

					if c == '\\' {
						escape = true
					}

					s = append(s, c)
					pos++
				}

				line = append(line, string(s))

				if pos-startpos > maxLogicalToken {
					return nil, lexErrorf(Loc{File: filename, Line: startNumber},
						"overly long logical line (check strings and parenthesis)")
				}

				continue
			}

			word, magic, end := matchLogicalWord(chars, pos)

			if magic {
				rest := word[2:]
				if !strings.Contains(rest, "__") {
					word = prefix + rest
				}
			}

			line = append(line, word)
			pos = end

			if pos-startpos > maxLogicalToken {
				return nil, lexErrorf(Loc{File: filename, Line: startNumber},
					"overly long logical line (check strings and parenthesis)")
			}
		}

		if len(line) > 0 {
			return nil, lexErrorf(Loc{File: filename, Line: startNumber},
				"line is not terminated with a newline (check strings and parenthesis)")
		}
	}

	return result, nil
}
