package rpyparser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reOperator   = regexp.MustCompile(`^(<>|<<|<=|<|>>|>=|>|!=|==|\||\^|&|\+|\-|\*\*|\*|//|/|%|~|@|:=|\bor\b|\band\b|\bnot\b|\bin\b|\bis\b)`)
	reWord       = regexp.MustCompile(`^[a-zA-Z_\x{00a0}-\x{fffd}][0-9a-zA-Z_\x{00a0}-\x{fffd}]*`)
	reWhitespace = regexp.MustCompile(`^(\s+|\\\n)+`)

	reStringDouble = regexp.MustCompile(`(?s)^r?"([^\\"]|\\.)*"`)
	reStringSingle = regexp.MustCompile(`(?s)^r?'([^\\']|\\.)*'`)
	reStringBack   = regexp.MustCompile("(?s)^r?`([^\\\\`]|\\\\.)*`")

	reStringTripleDouble = regexp.MustCompile(`(?s)^r?"""([^\\"]|\\.|"{1,2}[^"])*"""`)
	reStringTripleSingle = regexp.MustCompile(`(?s)^r?'''([^\\']|\\.|'{1,2}[^'])*'''`)
	reStringTripleBack   = regexp.MustCompile("(?s)^r?```([^\\\\`]|\\\\.|`{1,2}[^`])*```")

	reImageName    = regexp.MustCompile(`^[-0-9a-zA-Z_\x{00a0}-\x{fffd}]+`)
	reFloat        = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`)
	reInteger      = regexp.MustCompile(`^[+-]?\d+`)
	rePythonString = regexp.MustCompile(`^[urfURF]*("""|'''|"|')`)
	rePyStrChunk   = regexp.MustCompile(`(?s)^.[^'"\\]*`)

	reStringEscape = regexp.MustCompile(`\\(u[0-9a-fA-F]{1,4}|.)`)
	reCollapseWS   = regexp.MustCompile(`[ \n]+`)
	reNewlineRuns  = regexp.MustCompile(` *\n *`)
	reSpaceRuns    = regexp.MustCompile(` +`)
)

// Words reserved by the statement grammars; Name refuses to match them.
var keywords = map[string]bool{
	"$": true, "as": true, "at": true, "behind": true, "call": true,
	"expression": true, "hide": true, "if": true, "in": true, "image": true,
	"init": true, "jump": true, "menu": true, "onlayer": true, "python": true,
	"return": true, "scene": true, "show": true, "with": true, "while": true,
	"zorder": true, "transform": true, "screen": true,
}

// DefaultMonologueDelimiter splits a triple-quoted say into paragraphs.
const DefaultMonologueDelimiter = "\n\n"

// Lexer is a backtracking cursor over a list of blocks. Grammar code
// advances it line by line and scans within the current line's text;
// Checkpoint/Revert make speculative parsing cheap.
type Lexer struct {
	blocks []Block
	trie   *parseTrie

	init               bool
	initOffset         int
	globalLabel        string
	monologueDelimiter string

	eob      bool
	line     int
	loc      Loc
	text     string
	subblock []Block
	pos      int

	// one-slot cache for Word, keyed by scan position
	wordCachePos    int
	wordCacheNewpos int
	wordCache       string
}

// NewLexer creates a cursor positioned before the first block.
func NewLexer(blocks []Block) *Lexer {
	return &Lexer{
		blocks:             blocks,
		line:               -1,
		wordCachePos:       -1,
		monologueDelimiter: DefaultMonologueDelimiter,
	}
}

// Checkpoint is an immutable snapshot of the cursor's position.
// Reverting to it restores the position exactly; Revert(Checkpoint()) is
// the identity transform.
type Checkpoint struct {
	line     int
	loc      Loc
	text     string
	subblock []Block
	pos      int
}

// Checkpoint captures the cursor's current position as a value.
func (l *Lexer) Checkpoint() Checkpoint {
	return Checkpoint{
		line:     l.line,
		loc:      l.loc,
		text:     l.text,
		subblock: l.subblock,
		pos:      l.pos,
	}
}

// Revert restores a previously captured position and clears the word cache.
func (l *Lexer) Revert(cp Checkpoint) {
	l.line = cp.line
	l.loc = cp.loc
	l.text = cp.text
	l.subblock = cp.subblock
	l.pos = cp.pos
	l.wordCachePos = -1
	l.eob = l.line >= len(l.blocks)
}

// Advance moves to the next logical line, returning false at end of block.
func (l *Lexer) Advance() bool {
	l.line++

	if l.line >= len(l.blocks) {
		l.eob = true
		return false
	}

	b := l.blocks[l.line]
	l.loc = b.Loc
	l.text = b.Text
	l.subblock = b.Sub
	l.pos = 0
	l.wordCachePos = -1

	return true
}

// Unadvance steps back to the previous line, positioned at its end.
func (l *Lexer) Unadvance() {
	l.line--
	l.eob = false

	b := l.blocks[l.line]
	l.loc = b.Loc
	l.text = b.Text
	l.subblock = b.Sub
	l.pos = len(l.text)
	l.wordCachePos = -1
}

// Location returns the origin of the current logical line.
func (l *Lexer) Location() Loc { return l.loc }

func (l *Lexer) clone() *Lexer {
	c := *l
	return &c
}

// SubblockLexer returns a new cursor over the current line's sub-block.
// Scope (init flag, init offset, global label, monologue delimiter) is
// copied by value, so the nested parse cannot disturb this cursor.
func (l *Lexer) SubblockLexer(init bool) *Lexer {
	sub := NewLexer(l.subblock)
	sub.trie = l.trie
	sub.init = l.init || init
	sub.initOffset = l.initOffset
	sub.globalLabel = l.globalLabel
	sub.monologueDelimiter = l.monologueDelimiter
	return sub
}

func (l *Lexer) matchRegexp(re *regexp.Regexp) (string, bool) {
	if l.eob || l.pos >= len(l.text) {
		return "", false
	}

	m := re.FindString(l.text[l.pos:])
	if m == "" {
		return "", false
	}

	l.pos += len(m)
	return m, true
}

func (l *Lexer) matchLit(s string) bool {
	if l.eob || l.pos >= len(l.text) {
		return false
	}

	if strings.HasPrefix(l.text[l.pos:], s) {
		l.pos += len(s)
		return true
	}

	return false
}

func (l *Lexer) skipWhitespace() {
	l.matchRegexp(reWhitespace)
}

func (l *Lexer) rmatch(re *regexp.Regexp) (string, bool) {
	l.skipWhitespace()
	return l.matchRegexp(re)
}

// Match consumes the literal s (after leading whitespace) if present.
func (l *Lexer) Match(s string) bool {
	l.skipWhitespace()
	return l.matchLit(s)
}

// Eol reports whether only whitespace remains on the current line.
func (l *Lexer) Eol() bool {
	l.skipWhitespace()
	return l.pos >= len(l.text)
}

// HasBlock reports whether the current line has an indented sub-block.
func (l *Lexer) HasBlock() bool { return len(l.subblock) > 0 }

// ExpectEOL fails unless the rest of the line is blank.
func (l *Lexer) ExpectEOL() error {
	if !l.Eol() {
		return expectedError(l.loc, "end of line", l.remainder())
	}
	return nil
}

// ExpectBlock fails unless the current line has a sub-block.
func (l *Lexer) ExpectBlock() error {
	if len(l.subblock) == 0 {
		return indentErrorf(l.loc, "expected a non-empty block")
	}
	return nil
}

// ExpectNoblock fails if the current line has a sub-block.
func (l *Lexer) ExpectNoblock() error {
	if len(l.subblock) > 0 {
		return indentErrorf(l.subblock[0].Loc,
			"line is indented, but the preceding statement does not expect a block; check indentation or a missing colon (:)")
	}
	return nil
}

// remainder previews the unconsumed text for error messages.
func (l *Lexer) remainder() string {
	rest := strings.TrimSpace(l.text[l.pos:])
	if rest == "" {
		return "end of line"
	}
	if len(rest) > 40 {
		rest = rest[:40] + "..."
	}
	return fmt.Sprintf("%q", rest)
}

// Word matches an identifier-like word, caching the result so repeated
// speculative calls at one position scan only once.
func (l *Lexer) Word() (string, bool) {
	if l.pos == l.wordCachePos {
		l.pos = l.wordCacheNewpos
		if l.wordCache == "" {
			return "", false
		}
		return l.wordCache, true
	}

	l.wordCachePos = l.pos
	w, ok := l.rmatch(reWord)
	l.wordCache = w
	l.wordCacheNewpos = l.pos

	return w, ok
}

// Keyword consumes the given word if it is the next word on the line.
func (l *Lexer) Keyword(word string) bool {
	oldpos := l.pos
	if w, ok := l.Word(); ok && w == word {
		return true
	}
	l.pos = oldpos
	return false
}

// Name matches a word that is not a reserved keyword or a string prefix.
func (l *Lexer) Name() (string, bool) {
	oldpos := l.pos

	rv, ok := l.Word()
	if !ok {
		return "", false
	}

	if (rv == "r" || rv == "u" || rv == "ur") && l.pos < len(l.text) {
		switch l.text[l.pos] {
		case '"', '\'', '`':
			l.pos = oldpos
			return "", false
		}
	}

	if keywords[rv] {
		l.pos = oldpos
		return "", false
	}

	return rv, true
}

// LabelName matches a label reference: global, global.local, or .local
// resolved against the enclosing global label. With declare set, a dotted
// name must use the current global label as its global part.
func (l *Lexer) LabelName(declare bool) (string, bool) {
	oldpos := l.pos
	localName := ""

	globalName, ok := l.Name()
	if ok {
		if l.Match(".") {
			if declare && globalName != l.globalLabel {
				l.pos = oldpos
				return "", false
			}

			localName, ok = l.Name()
			if !ok {
				l.pos = oldpos
				return "", false
			}
		}
	} else {
		if !l.Match(".") || l.globalLabel == "" {
			l.pos = oldpos
			return "", false
		}

		globalName = l.globalLabel
		localName, ok = l.Name()
		if !ok {
			l.pos = oldpos
			return "", false
		}
	}

	if localName != "" {
		return globalName + "." + localName, true
	}
	return globalName, true
}

// ImageNameComponent matches one dash-allowing image name part.
func (l *Lexer) ImageNameComponent() (string, bool) {
	oldpos := l.pos

	rv, ok := l.rmatch(reImageName)
	if !ok {
		return "", false
	}

	if (rv == "r" || rv == "u") && l.pos < len(l.text) {
		switch l.text[l.pos] {
		case '"', '\'', '`':
			l.pos = oldpos
			return "", false
		}
	}

	if keywords[rv] {
		l.pos = oldpos
		return "", false
	}

	return rv, true
}

// Integer matches an optionally signed integer literal.
func (l *Lexer) Integer() (string, bool) {
	return l.rmatch(reInteger)
}

// Float matches an optionally signed float or integer literal.
func (l *Lexer) Float() (string, bool) {
	return l.rmatch(reFloat)
}

// DottedName matches name(.name)* with an error when a dot is not
// followed by a name.
func (l *Lexer) DottedName() (string, error) {
	rv, ok := l.Name()
	if !ok {
		return "", nil
	}

	for l.Match(".") {
		n, nok := l.Name()
		if !nok {
			return "", expectedError(l.loc, "name after dot", l.remainder())
		}
		rv = rv + "." + n
	}

	return rv, nil
}

// decodeEscapes applies the string escape rules: braces, brackets and
// percent are doubled for the text substitution engine, \n and \uXXXX are
// decoded, any other escaped character stands for itself.
func decodeEscapes(s string) string {
	return reStringEscape.ReplaceAllStringFunc(s, func(m string) string {
		body := m[1:]

		if len(body) > 1 && body[0] == 'u' {
			code, err := strconv.ParseUint(body[1:], 16, 32)
			if err != nil {
				return body
			}
			return string(rune(code))
		}

		switch body {
		case "{":
			return "{{"
		case "[":
			return "[["
		case "%":
			return "%%"
		case "n":
			return "\n"
		}

		return body
	})
}

// String matches a single-delimiter string literal and decodes it. In
// non-raw strings whitespace runs collapse to one space before escape
// decoding, since a logical line may span physical lines.
func (l *Lexer) String() (string, bool) {
	s, ok := l.rmatch(reStringDouble)
	if !ok {
		s, ok = l.rmatch(reStringSingle)
	}
	if !ok {
		s, ok = l.rmatch(reStringBack)
	}
	if !ok {
		return "", false
	}

	raw := false
	if s[0] == 'r' {
		raw = true
		s = s[1:]
	}

	s = s[1 : len(s)-1]

	if !raw {
		s = reCollapseWS.ReplaceAllString(s, " ")
		s = decodeEscapes(s)
	}

	return s, true
}

// TripleString matches a triple-delimiter string literal and splits it
// into monologue paragraphs, each independently whitespace-normalized.
func (l *Lexer) TripleString() ([]string, bool) {
	s, ok := l.rmatch(reStringTripleDouble)
	if !ok {
		s, ok = l.rmatch(reStringTripleSingle)
	}
	if !ok {
		s, ok = l.rmatch(reStringTripleBack)
	}
	if !ok {
		return nil, false
	}

	raw := false
	if s[0] == 'r' {
		raw = true
		s = s[1:]
	}

	s = s[3 : len(s)-3]

	if raw {
		return []string{s}, true
	}

	s = reNewlineRuns.ReplaceAllString(s, "\n")

	var parts []string
	if l.monologueDelimiter != "" {
		parts = strings.Split(s, l.monologueDelimiter)
	} else {
		parts = []string{s}
	}

	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if l.monologueDelimiter != "" {
			p = reCollapseWS.ReplaceAllString(p, " ")
		} else {
			p = reSpaceRuns.ReplaceAllString(p, " ")
		}

		result = append(result, decodeEscapes(p))
	}

	return result, true
}

// PythonString scans over a host-language string literal without decoding
// it, so expression scans do not mistake delimiters inside strings.
func (l *Lexer) PythonString() (bool, error) {
	if l.Eol() {
		return false, nil
	}

	oldpos := l.pos

	start, ok := l.rmatch(rePythonString)
	if !ok {
		l.pos = oldpos
		return false, nil
	}

	delim := strings.TrimLeft(start, "urfURF")

	for {
		if l.Eol() {
			return false, lexErrorf(l.loc, "end of line reached while parsing string")
		}

		if l.Match(delim) {
			break
		}

		if l.Match(`\`) {
			l.pos++
			continue
		}

		if _, ok := l.rmatch(rePyStrChunk); !ok {
			return false, lexErrorf(l.loc, "end of line reached while parsing string")
		}
	}

	return true, nil
}

// ParenthesisedPython scans over one balanced bracket group.
func (l *Lexer) ParenthesisedPython() (bool, error) {
	if l.eob || l.pos >= len(l.text) {
		return false, nil
	}

	var closing string
	switch l.text[l.pos] {
	case '(':
		closing = ")"
	case '[':
		closing = "]"
	case '{':
		closing = "}"
	default:
		return false, nil
	}

	l.pos++
	if _, err := l.DelimitedPython(closing); err != nil {
		return false, err
	}
	l.pos++

	return true, nil
}

// DelimitedPython scans host-language text up to (not including) one of
// the delimiter characters, skipping over strings and bracket groups.
func (l *Lexer) DelimitedPython(delim string) (string, error) {
	start := l.pos

	for !l.Eol() {
		c := l.text[l.pos]

		if strings.IndexByte(delim, c) >= 0 {
			return l.text[start:l.pos], nil
		}

		if c == '\'' || c == '"' {
			if _, err := l.PythonString(); err != nil {
				return "", err
			}
			continue
		}

		ok, err := l.ParenthesisedPython()
		if err != nil {
			return "", err
		}
		if ok {
			continue
		}

		l.pos++
	}

	return "", lexErrorf(l.loc, "end of line reached when expecting %q", delim)
}

// PythonExpression scans an expression terminated by a colon.
func (l *Lexer) PythonExpression() (string, error) {
	pe, err := l.DelimitedPython(":")
	if err != nil {
		return "", err
	}

	pe = strings.TrimSpace(pe)
	if pe == "" {
		return "", expectedError(l.loc, "a python expression", l.remainder())
	}

	return pe, nil
}

// SimpleExpression matches an atomic expression: chains of names, literals,
// strings and bracket groups joined by dots, calls, and (optionally)
// operators or commas. An empty result with a nil error means no
// expression was present.
func (l *Lexer) SimpleExpression(comma, operator bool) (string, error) {
	start := l.pos

	for {
		for {
			if _, ok := l.rmatch(reOperator); !ok {
				break
			}
		}

		if l.Eol() {
			break
		}

		matched, err := l.PythonString()
		if err != nil {
			return "", err
		}
		if !matched {
			_, matched = l.Name()
		}
		if !matched {
			_, matched = l.Float()
		}
		if !matched {
			matched, err = l.ParenthesisedPython()
			if err != nil {
				return "", err
			}
		}
		if !matched {
			break
		}

		// trailers: attribute access and calls/subscripts
		for {
			l.skipWhitespace()

			if l.Eol() {
				break
			}

			if l.matchLit(".") {
				if _, ok := l.Word(); !ok {
					return "", expectedError(l.loc, "name after dot", l.remainder())
				}
				continue
			}

			ok, err := l.ParenthesisedPython()
			if err != nil {
				return "", err
			}
			if ok {
				continue
			}

			break
		}

		if operator {
			if _, ok := l.rmatch(reOperator); ok {
				continue
			}
		}

		if comma && l.Match(",") {
			continue
		}

		break
	}

	return strings.TrimSpace(l.text[start:l.pos]), nil
}

// SayExpression matches the speaker expression of a say statement, which
// chains neither operators nor commas.
func (l *Lexer) SayExpression() (string, error) {
	return l.SimpleExpression(false, false)
}

// Rest consumes and returns the trimmed remainder of the line.
func (l *Lexer) Rest() (string, bool) {
	l.skipWhitespace()

	pos := l.pos
	l.pos = len(l.text)

	rv := strings.TrimSpace(l.text[pos:])
	if rv == "" {
		return "", false
	}

	return rv, true
}

// RestStatement consumes the remainder of the line verbatim.
func (l *Lexer) RestStatement() (string, bool) {
	pos := l.pos
	l.pos = len(l.text)

	rv := l.text[pos:]
	if rv == "" {
		return "", false
	}

	return rv, true
}

// PythonBlock reconstructs the current sub-block as verbatim host-language
// source, padding skipped blank lines so line numbers survive.
func (l *Lexer) PythonBlock() (string, bool) {
	var rv []string
	line := l.loc.Line

	pythonBlockProcess(&rv, &line, l.subblock, "")

	if len(rv) == 0 {
		return "", false
	}

	return strings.Join(rv, ""), true
}

func pythonBlockProcess(rv *[]string, line *int, blocks []Block, indent string) {
	for _, b := range blocks {
		for *line < b.Loc.Line {
			*rv = append(*rv, indent+"\n")
			*line++
		}

		linetext := indent + b.Text + "\n"
		*rv = append(*rv, linetext)
		*line += strings.Count(linetext, "\n")

		pythonBlockProcess(rv, line, b.Sub, indent+"    ")
	}
}

// require helpers wrap the optional matchers with a SyntaxError when the
// construct is mandatory at the current point in a grammar.

func (l *Lexer) requireMatch(s string) error {
	if !l.Match(s) {
		return expectedError(l.loc, fmt.Sprintf("'%s'", s), l.remainder())
	}
	return nil
}

func (l *Lexer) requireName() (string, error) {
	n, ok := l.Name()
	if !ok {
		return "", expectedError(l.loc, "a name", l.remainder())
	}
	return n, nil
}

func (l *Lexer) requireWord() (string, error) {
	w, ok := l.Word()
	if !ok {
		return "", expectedError(l.loc, "a word", l.remainder())
	}
	return w, nil
}

func (l *Lexer) requireSimpleExpression() (string, error) {
	e, err := l.SimpleExpression(false, true)
	if err != nil {
		return "", err
	}
	if e == "" {
		return "", expectedError(l.loc, "a simple expression", l.remainder())
	}
	return e, nil
}

func (l *Lexer) requireLabelName(declare bool) (string, error) {
	n, ok := l.LabelName(declare)
	if !ok {
		return "", expectedError(l.loc, "a label name", l.remainder())
	}
	return n, nil
}

func (l *Lexer) requireImageNameComponent() (string, error) {
	c, ok := l.ImageNameComponent()
	if !ok {
		return "", expectedError(l.loc, "an image name component", l.remainder())
	}
	return c, nil
}

func (l *Lexer) requireDottedName() (string, error) {
	n, err := l.DottedName()
	if err != nil {
		return "", err
	}
	if n == "" {
		return "", expectedError(l.loc, "a dotted name", l.remainder())
	}
	return n, nil
}
