package rpyparser

import "strings"

// grammarFunc parses one statement starting at the cursor's current
// position, leaving the cursor on the line after the statement.
type grammarFunc func(l *Lexer, loc Loc) ([]Node, error)

// BlockMode states what a custom statement expects after its colon.
type BlockMode int

const (
	// NoBlock forbids an indented block.
	NoBlock BlockMode = iota
	// RequiredBlock requires a block, kept as raw lines.
	RequiredBlock
	// ScriptBlock requires a block parsed as script statements.
	ScriptBlock
)

// CustomStatement registers additional statement keywords to be kept as
// verbatim user statements. Words holds the space-separated keyword
// sequence introducing the statement.
type CustomStatement struct {
	Words string
	Block BlockMode
}

// builtinStatements are the engine-defined statements that have no
// dedicated grammar and parse as verbatim user statements.
var builtinStatements = []string{
	"play music",
	"queue music",
	"stop music",
	"play sound",
	"queue sound",
	"stop sound",
	"play audio",
	"queue audio",
	"stop audio",
	"voice",
	"play",
	"queue",
	"stop",
	"pause",
	"show screen",
	"call screen",
	"hide screen",
	"nvl show",
	"nvl hide",
	"nvl clear",
	"window show",
	"window hide",
	"window auto",
}

// parseTrie dispatches a statement to its grammar by consuming leading
// keywords. A line whose keywords match no registered statement falls
// back to the innermost default, ultimately the say statement.
type parseTrie struct {
	def   grammarFunc
	words map[string]*parseTrie
}

func newParseTrie() *parseTrie {
	return &parseTrie{words: make(map[string]*parseTrie)}
}

func (t *parseTrie) add(words string, fn grammarFunc) {
	first, rest, found := strings.Cut(words, " ")
	if first == "" {
		t.def = fn
		return
	}

	sub := t.words[first]
	if sub == nil {
		sub = newParseTrie()
		t.words[first] = sub
	}

	if found {
		sub.add(rest, fn)
	} else {
		sub.def = fn
	}
}

func (t *parseTrie) parse(l *Lexer) ([]Node, error) {
	loc := l.Location()
	oldpos := l.pos

	word, ok := l.Word()
	if !ok && l.Match("$") {
		word, ok = "$", true
	}

	if ok {
		if sub := t.words[word]; sub != nil {
			return sub.parse(l)
		}
	}

	l.pos = oldpos

	if t.def != nil {
		return t.def(l, loc)
	}
	return parseSay(l, loc)
}

// buildTrie assembles the statement dispatch table, extended with any
// registered custom statements.
func buildTrie(custom []CustomStatement) *parseTrie {
	t := newParseTrie()

	t.def = parseSay
	t.add("label", parseLabel)
	t.add("scene", parseScene)
	t.add("with", parseWith)
	t.add("show", parseShow)
	t.add("hide", parseHide)
	t.add("$", parsePythonOneLine)
	t.add("jump", parseJump)
	t.add("menu", parseMenu)
	t.add("if", parseIf)
	t.add("while", parseWhile)
	t.add("return", parseReturn)
	t.add("style", parseStyle)
	t.add("init", parseInit)
	t.add("python", parsePython)
	t.add("define", parseDefine)
	t.add("default", parseDefault)
	t.add("call", parseCall)
	t.add("pass", parsePass)
	t.add("transform", parseTransform)
	t.add("screen", parseScreen)
	t.add("image", parseImage)

	for _, words := range builtinStatements {
		t.add(words, parseUserStatement(NoBlock))
	}

	for _, cs := range custom {
		t.add(cs.Words, parseUserStatement(cs.Block))
	}

	return t
}
