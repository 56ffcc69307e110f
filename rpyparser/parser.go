package rpyparser

import (
	"strconv"
	"strings"
)

// Options adjusts how a script is parsed.
type Options struct {
	// Statements registers custom statement keywords beyond the
	// built-in ones.
	Statements []CustomStatement
	// MonologueDelimiter overrides the paragraph separator of
	// triple-quoted say statements. Empty means DefaultMonologueDelimiter.
	MonologueDelimiter string
	// InitOffset is the starting init priority offset for the file.
	InitOffset int
}

// Parse parses a script file into its statement list. Files named
// *_ren.py are converted from host-language form first.
func Parse(filename string, src []byte) ([]Node, error) {
	return ParseWithOptions(filename, src, Options{})
}

// ParseWithOptions is Parse with custom statements and scope settings.
func ParseWithOptions(filename string, src []byte, opts Options) ([]Node, error) {
	data := string(src)

	if strings.HasSuffix(filename, "_ren.py") {
		converted, err := ConvertRenPy(data, filename)
		if err != nil {
			return nil, err
		}
		data = converted
	}

	lines, err := ListLogicalLines(filename, data)
	if err != nil {
		return nil, err
	}

	blocks, err := GroupLogicalLines(lines)
	if err != nil {
		return nil, err
	}

	l := NewLexer(blocks)
	l.trie = buildTrie(opts.Statements)
	l.initOffset = opts.InitOffset
	if opts.MonologueDelimiter != "" {
		l.monologueDelimiter = opts.MonologueDelimiter
	}

	return parseBlock(l)
}

// parseBlock parses every statement under the cursor, starting before
// its first line.
func parseBlock(l *Lexer) ([]Node, error) {
	l.Advance()

	result := []Node{}

	for !l.eob {
		stmt, err := l.trie.parse(l)
		if err != nil {
			return nil, err
		}
		result = append(result, stmt...)
	}

	return result, nil
}

// globalPart returns the global portion of a possibly dotted label name.
func globalPart(name string) string {
	global, _, _ := strings.Cut(name, ".")
	return global
}

func parseParameters(l *Lexer) (*ParameterSignature, error) {
	if !l.Match("(") {
		return nil, nil
	}

	sig := &ParameterSignature{}
	seen := make(map[string]bool)

	gotSlash := false
	nowKwonly := false
	kind := ParamPositionalOrKeyword
	missingKwonly := false
	nowDefault := false

loop:
	for !l.Match(")") {
		switch {
		case l.Match("**"):
			extrakw, err := l.requireName()
			if err != nil {
				return nil, err
			}

			if seen[extrakw] {
				return nil, semanticErrorf(l.loc, "duplicate parameter name: %s", extrakw)
			}
			seen[extrakw] = true

			sig.Parameters = append(sig.Parameters, Parameter{Name: extrakw, Kind: ParamVarKeyword})

			if l.Match("=") {
				return nil, semanticErrorf(l.loc, "a var-keyword parameter (**%s) cannot have a default value", extrakw)
			}

			l.Match(",")
			if !l.Match(")") {
				return nil, semanticErrorf(l.loc, "no parameter can follow a var-keyword parameter (**%s)", extrakw)
			}

			break loop

		case l.Match("*"):
			if nowKwonly {
				return nil, semanticErrorf(l.loc, "* may appear only once")
			}

			nowKwonly = true
			kind = ParamKeywordOnly
			nowDefault = false

			if extrapos, ok := l.Name(); ok {
				if seen[extrapos] {
					return nil, semanticErrorf(l.loc, "duplicate parameter name: %s", extrapos)
				}
				seen[extrapos] = true

				sig.Parameters = append(sig.Parameters, Parameter{Name: extrapos, Kind: ParamVarPositional})

				if l.Match("=") {
					return nil, semanticErrorf(l.loc, "a var-positional parameter (*%s) cannot have a default value", extrapos)
				}
			} else {
				missingKwonly = true
			}

		case l.Match("/*"):
			return nil, semanticErrorf(l.loc, "expected comma between / and *")

		case l.Match("/"):
			if nowKwonly {
				return nil, semanticErrorf(l.loc, "/ must be ahead of *")
			}
			if gotSlash {
				return nil, semanticErrorf(l.loc, "/ may appear only once")
			}
			if len(sig.Parameters) == 0 {
				return nil, semanticErrorf(l.loc, "at least one parameter must precede /")
			}

			for i := range sig.Parameters {
				sig.Parameters[i].Kind = ParamPositionalOnly
			}
			gotSlash = true

		default:
			name, err := l.requireName()
			if err != nil {
				return nil, err
			}

			missingKwonly = false

			p := Parameter{Name: name, Kind: kind}

			if l.Match("=") {
				l.skipWhitespace()

				def, err := l.DelimitedPython("),")
				if err != nil {
					return nil, err
				}
				if strings.TrimSpace(def) == "" {
					return nil, semanticErrorf(l.loc, "empty default value for parameter %s", name)
				}

				p.Default = def
				p.HasDefault = true
				nowDefault = true
			} else if nowDefault && !nowKwonly {
				return nil, semanticErrorf(l.loc, "non-default parameter %s follows a default parameter", name)
			}

			if seen[name] {
				return nil, semanticErrorf(l.loc, "duplicate parameter name: %s", name)
			}
			seen[name] = true

			sig.Parameters = append(sig.Parameters, p)
		}

		if l.Match(")") {
			break
		}

		if err := l.requireMatch(","); err != nil {
			return nil, err
		}
	}

	if missingKwonly {
		return nil, semanticErrorf(l.loc, "a bare * must be followed by a parameter")
	}

	return sig, nil
}

func parseArguments(l *Lexer) (*ArgumentInfo, error) {
	if !l.Match("(") {
		return nil, nil
	}

	info := &ArgumentInfo{}
	keywordParsed := false
	names := make(map[string]bool)

	for {
		if l.Match(")") {
			break
		}

		star := 0
		if l.Match("**") {
			star = 2
		} else if l.Match("*") {
			star = 1
		}

		name := ""

		if star == 0 {
			cp := l.Checkpoint()

			w, wok := l.Word()
			eq := wok && l.Match("=") && !l.matchLit("=")

			if eq {
				if names[w] {
					return nil, semanticErrorf(l.loc, "keyword argument repeated: '%s'", w)
				}
				names[w] = true
				keywordParsed = true
				name = w
			} else if keywordParsed {
				return nil, semanticErrorf(l.loc, "positional argument follows keyword argument")
			} else {
				l.Revert(cp)
			}
		}

		l.skipWhitespace()

		value, err := l.DelimitedPython("),")
		if err != nil {
			return nil, err
		}

		info.Arguments = append(info.Arguments, Argument{Name: name, Value: value, Star: star})

		if l.Match(")") {
			break
		}

		if err := l.requireMatch(","); err != nil {
			return nil, err
		}
	}

	return info, nil
}

func parseImageName(l *Lexer, withExpr, nodash bool) ([]string, error) {
	first, err := l.requireImageNameComponent()
	if err != nil {
		return nil, err
	}

	rv := []string{first}

	for {
		n, ok := l.ImageNameComponent()
		if !ok {
			break
		}
		rv = append(rv, strings.TrimSpace(n))
	}

	if withExpr {
		e, err := l.SimpleExpression(false, true)
		if err != nil {
			return nil, err
		}
		if e != "" {
			rv = append(rv, e)
		}
	}

	if nodash {
		for _, c := range rv {
			if strings.HasPrefix(c, "-") {
				return nil, semanticErrorf(l.loc, "image name components may not begin with a '-'")
			}
		}
	}

	return rv, nil
}

func parseSimpleExpressionList(l *Lexer) ([]string, error) {
	first, err := l.requireSimpleExpression()
	if err != nil {
		return nil, err
	}

	rv := []string{first}

	for l.Match(",") {
		e, err := l.SimpleExpression(false, true)
		if err != nil {
			return nil, err
		}
		if e == "" {
			break
		}
		rv = append(rv, e)
	}

	return rv, nil
}

func parseImageSpecifier(l *Lexer) (*ImageSpecifier, error) {
	spec := &ImageSpecifier{}

	if l.Keyword("expression") || l.Keyword("image") {
		e, err := l.requireSimpleExpression()
		if err != nil {
			return nil, err
		}
		spec.Expression = e
		spec.ImageName = []string{strings.TrimSpace(e)}
	} else {
		name, err := parseImageName(l, true, false)
		if err != nil {
			return nil, err
		}
		spec.ImageName = name
	}

	for {
		if l.Keyword("onlayer") {
			if spec.Layer != "" {
				return nil, semanticErrorf(l.loc, "multiple onlayer clauses are prohibited")
			}
			layer, err := l.requireName()
			if err != nil {
				return nil, err
			}
			spec.Layer = layer
			continue
		}

		if l.Keyword("at") {
			if len(spec.AtList) > 0 {
				return nil, semanticErrorf(l.loc, "multiple at clauses are prohibited")
			}
			atList, err := parseSimpleExpressionList(l)
			if err != nil {
				return nil, err
			}
			spec.AtList = atList
			continue
		}

		if l.Keyword("as") {
			if spec.Tag != "" {
				return nil, semanticErrorf(l.loc, "multiple as clauses are prohibited")
			}
			tag, err := l.requireName()
			if err != nil {
				return nil, err
			}
			spec.Tag = tag
			continue
		}

		if l.Keyword("zorder") {
			if spec.Zorder != "" {
				return nil, semanticErrorf(l.loc, "multiple zorder clauses are prohibited")
			}
			z, err := l.requireSimpleExpression()
			if err != nil {
				return nil, err
			}
			spec.Zorder = z
			continue
		}

		if l.Keyword("behind") {
			if len(spec.Behind) > 0 {
				return nil, semanticErrorf(l.loc, "multiple behind clauses are prohibited")
			}
			for {
				tag, err := l.requireName()
				if err != nil {
					return nil, err
				}
				spec.Behind = append(spec.Behind, tag)
				if !l.Match(",") {
					break
				}
			}
			continue
		}

		break
	}

	return spec, nil
}

// parseWithNode desugars an inline with clause into a pair of with
// statements around the node.
func parseWithNode(l *Lexer, node Node) ([]Node, error) {
	loc := l.Location()

	if !l.Keyword("with") {
		return []Node{node}, nil
	}

	expr, err := l.requireSimpleExpression()
	if err != nil {
		return nil, err
	}

	return []Node{
		&With{Loc: loc, Expr: "None", Paired: expr},
		node,
		&With{Loc: loc, Expr: expr},
	}, nil
}

func sayAttributes(l *Lexer) []string {
	var attrs []string

	for {
		prefix := ""
		if l.Match("-") {
			prefix = "-"
		}

		c, ok := l.ImageNameComponent()
		if !ok {
			break
		}

		attrs = append(attrs, prefix+c)
	}

	return attrs
}

// sayWhat matches the dialogue text of a say statement, split into
// paragraphs for a triple-quoted monologue.
func sayWhat(l *Lexer) []string {
	if ws, ok := l.TripleString(); ok {
		return ws
	}
	if s, ok := l.String(); ok {
		return []string{s}
	}
	return nil
}

// finishSay parses the trailing say clauses and builds the statement
// list, one say per paragraph. A nil result with nil error means the
// line held no dialogue text.
func finishSay(l *Lexer, loc Loc, who string, what []string, attrs, tempAttrs []string, interact bool) ([]Node, error) {
	if len(what) == 0 {
		return nil, nil
	}

	with := ""
	identifier := ""
	var arguments *ArgumentInfo

	for {
		if l.Keyword("nointeract") {
			interact = false
			continue
		}

		if l.Keyword("with") {
			if with != "" {
				return nil, semanticErrorf(l.loc, "say can only take a single with clause")
			}
			e, err := l.requireSimpleExpression()
			if err != nil {
				return nil, err
			}
			with = e
			continue
		}

		if l.Keyword("id") {
			id, err := l.requireName()
			if err != nil {
				return nil, err
			}
			identifier = id
			continue
		}

		args, err := parseArguments(l)
		if err != nil {
			return nil, err
		}
		if args == nil {
			break
		}
		if arguments != nil {
			return nil, semanticErrorf(l.loc, "say can only take a single set of arguments")
		}
		arguments = args
	}

	var result []Node

	for _, paragraph := range what {
		if len(what) > 1 && paragraph == "{clear}" {
			result = append(result, &UserStatement{Loc: loc, Line: "nvl clear"})
			continue
		}

		result = append(result, &Say{
			Loc:                 loc,
			Who:                 who,
			What:                paragraph,
			With:                with,
			Interact:            interact,
			Attributes:          attrs,
			TemporaryAttributes: tempAttrs,
			Arguments:           arguments,
			Identifier:          identifier,
		})
	}

	return result, nil
}

func parseSay(l *Lexer, loc Loc) ([]Node, error) {
	cp := l.Checkpoint()

	// narration: a bare string, possibly a monologue
	rv, err := finishSay(l, loc, "", sayWhat(l), nil, nil, true)
	if err != nil {
		return nil, err
	}
	if rv != nil {
		if err := l.ExpectNoblock(); err != nil {
			return nil, err
		}
		l.Advance()
		return rv, nil
	}

	l.Revert(cp)

	who, err := l.SayExpression()
	if err != nil {
		return nil, err
	}

	attributes := sayAttributes(l)

	var tempAttributes []string
	if l.Match("@") {
		tempAttributes = sayAttributes(l)
	}

	what := sayWhat(l)

	if who != "" && len(what) > 0 {
		rv, err := finishSay(l, loc, strings.TrimSpace(who), what, attributes, tempAttributes, true)
		if err != nil {
			return nil, err
		}

		if err := l.ExpectEOL(); err != nil {
			return nil, err
		}
		if err := l.ExpectNoblock(); err != nil {
			return nil, err
		}

		l.Advance()
		return rv, nil
	}

	return nil, syntaxErrorf(loc, "expected statement")
}

func parseLabel(l *Lexer, loc Loc) ([]Node, error) {
	name, err := l.requireLabelName(true)
	if err != nil {
		return nil, err
	}
	l.globalLabel = globalPart(name)

	parameters, err := parseParameters(l)
	if err != nil {
		return nil, err
	}

	hide := l.Keyword("hide")

	if err := l.requireMatch(":"); err != nil {
		return nil, err
	}
	if err := l.ExpectEOL(); err != nil {
		return nil, err
	}

	block, err := parseBlock(l.SubblockLexer(false))
	if err != nil {
		return nil, err
	}

	l.Advance()

	return []Node{&Label{Loc: loc, Name: name, Parameters: parameters, Hide: hide, Block: block}}, nil
}

func parseScene(l *Lexer, loc Loc) ([]Node, error) {
	layer := ""

	if l.Keyword("onlayer") {
		var err error
		layer, err = l.requireName()
		if err != nil {
			return nil, err
		}
		if err := l.ExpectEOL(); err != nil {
			return nil, err
		}
	}

	if layer != "" || l.Eol() {
		l.Advance()
		return []Node{&Scene{Loc: loc, Layer: layer}}, nil
	}

	imspec, err := parseImageSpecifier(l)
	if err != nil {
		return nil, err
	}

	stmt := &Scene{Loc: loc, Imspec: imspec, Layer: imspec.Layer}

	rv, err := parseWithNode(l, stmt)
	if err != nil {
		return nil, err
	}

	if l.Match(":") {
		if err := l.ExpectBlock(); err != nil {
			return nil, err
		}
		atl, err := parseAtl(l.SubblockLexer(false))
		if err != nil {
			return nil, err
		}
		stmt.Atl = atl
	} else if err := l.ExpectNoblock(); err != nil {
		return nil, err
	}

	if err := l.ExpectEOL(); err != nil {
		return nil, err
	}
	l.Advance()

	return rv, nil
}

func parseShow(l *Lexer, loc Loc) ([]Node, error) {
	imspec, err := parseImageSpecifier(l)
	if err != nil {
		return nil, err
	}

	stmt := &Show{Loc: loc, Imspec: imspec}

	rv, err := parseWithNode(l, stmt)
	if err != nil {
		return nil, err
	}

	if l.Match(":") {
		if err := l.ExpectBlock(); err != nil {
			return nil, err
		}
		atl, err := parseAtl(l.SubblockLexer(false))
		if err != nil {
			return nil, err
		}
		stmt.Atl = atl
	} else if err := l.ExpectNoblock(); err != nil {
		return nil, err
	}

	if err := l.ExpectEOL(); err != nil {
		return nil, err
	}
	l.Advance()

	return rv, nil
}

func parseHide(l *Lexer, loc Loc) ([]Node, error) {
	imspec, err := parseImageSpecifier(l)
	if err != nil {
		return nil, err
	}

	rv, err := parseWithNode(l, &Hide{Loc: loc, Imspec: imspec})
	if err != nil {
		return nil, err
	}

	if err := l.ExpectEOL(); err != nil {
		return nil, err
	}
	if err := l.ExpectNoblock(); err != nil {
		return nil, err
	}
	l.Advance()

	return rv, nil
}

func parseWith(l *Lexer, loc Loc) ([]Node, error) {
	expr, err := l.requireSimpleExpression()
	if err != nil {
		return nil, err
	}

	if err := l.ExpectEOL(); err != nil {
		return nil, err
	}
	if err := l.ExpectNoblock(); err != nil {
		return nil, err
	}
	l.Advance()

	return []Node{&With{Loc: loc, Expr: expr}}, nil
}

func parsePythonOneLine(l *Lexer, loc Loc) ([]Node, error) {
	code, ok := l.RestStatement()
	if !ok {
		return nil, expectedError(l.loc, "python code", l.remainder())
	}

	if err := l.ExpectNoblock(); err != nil {
		return nil, err
	}
	l.Advance()

	return []Node{&PythonOneLine{Loc: loc, Code: strings.TrimSpace(code)}}, nil
}

func parseJump(l *Lexer, loc Loc) ([]Node, error) {
	if err := l.ExpectNoblock(); err != nil {
		return nil, err
	}

	node := &Jump{Loc: loc}

	if l.Keyword("expression") {
		node.Expression = true
		target, err := l.requireSimpleExpression()
		if err != nil {
			return nil, err
		}
		node.Target = target
	} else {
		target, err := l.requireLabelName(false)
		if err != nil {
			return nil, err
		}
		node.Target = target
	}

	if err := l.ExpectEOL(); err != nil {
		return nil, err
	}
	l.Advance()

	if node.Expression {
		node.GlobalLabel = l.globalLabel
	}

	return []Node{node}, nil
}

func parseMenuItems(l *Lexer, loc Loc, arguments *ArgumentInfo) ([]Node, error) {
	ll := l.SubblockLexer(false)

	menu := &Menu{Loc: loc, Arguments: arguments}

	hasChoice := false
	hasCaption := false
	var sayAst []Node

	for ll.Advance() {
		if ll.Keyword("with") {
			with, err := ll.requireSimpleExpression()
			if err != nil {
				return nil, err
			}
			menu.With = with
			if err := ll.ExpectEOL(); err != nil {
				return nil, err
			}
			if err := ll.ExpectNoblock(); err != nil {
				return nil, err
			}
			continue
		}

		if ll.Keyword("set") {
			set, err := ll.requireSimpleExpression()
			if err != nil {
				return nil, err
			}
			menu.Set = set
			if err := ll.ExpectEOL(); err != nil {
				return nil, err
			}
			if err := ll.ExpectNoblock(); err != nil {
				return nil, err
			}
			continue
		}

		cp := ll.Checkpoint()

		who, err := ll.SimpleExpression(false, true)
		if err != nil {
			return nil, err
		}

		attributes := sayAttributes(ll)

		var tempAttributes []string
		if ll.Match("@") {
			tempAttributes = sayAttributes(ll)
		}

		what := sayWhat(ll)

		if who != "" && len(what) > 0 {
			if hasCaption {
				return nil, semanticErrorf(ll.loc, "say menuitems and captions may not exist in the same menu")
			}
			if sayAst != nil {
				return nil, semanticErrorf(ll.loc, "only one say menuitem may exist per menu")
			}

			sayAst, err = finishSay(ll, loc, strings.TrimSpace(who), what, attributes, tempAttributes, false)
			if err != nil {
				return nil, err
			}

			if err := ll.ExpectEOL(); err != nil {
				return nil, err
			}
			if err := ll.ExpectNoblock(); err != nil {
				return nil, err
			}
			continue
		}

		ll.Revert(cp)

		label, ok := ll.String()
		if !ok {
			return nil, expectedError(ll.loc, "a menuitem", ll.remainder())
		}

		if ll.Eol() {
			if ll.HasBlock() {
				return nil, indentErrorf(ll.subblock[0].Loc,
					"line is followed by a block, despite not being a menu choice; did you forget a colon at the end of the line?")
			}
			if sayAst != nil {
				return nil, semanticErrorf(ll.loc, "captions and say menuitems may not exist in the same menu")
			}

			hasCaption = true
			menu.Items = append(menu.Items, MenuItem{Label: label})
			continue
		}

		hasChoice = true

		itemArgs, err := parseArguments(ll)
		if err != nil {
			return nil, err
		}

		condition := ""
		if ll.Keyword("if") {
			condition, err = ll.PythonExpression()
			if err != nil {
				return nil, err
			}
		}

		if err := ll.requireMatch(":"); err != nil {
			return nil, err
		}
		if err := ll.ExpectEOL(); err != nil {
			return nil, err
		}
		if err := ll.ExpectBlock(); err != nil {
			return nil, err
		}

		block, err := parseBlock(ll.SubblockLexer(false))
		if err != nil {
			return nil, err
		}

		menu.Items = append(menu.Items, MenuItem{
			Label:     label,
			Condition: condition,
			Block:     block,
			Arguments: itemArgs,
		})
	}

	if !hasChoice {
		return nil, semanticErrorf(loc, "menu does not contain any choices")
	}

	menu.HasCaption = hasCaption || sayAst != nil

	var rv []Node
	if sayAst != nil {
		rv = append(rv, sayAst[0])
	}
	rv = append(rv, menu)

	return rv, nil
}

func parseMenu(l *Lexer, loc Loc) ([]Node, error) {
	if err := l.ExpectBlock(); err != nil {
		return nil, err
	}

	label, _ := l.LabelName(true)
	if label != "" {
		l.globalLabel = globalPart(label)
	}

	arguments, err := parseArguments(l)
	if err != nil {
		return nil, err
	}

	if err := l.requireMatch(":"); err != nil {
		return nil, err
	}
	if err := l.ExpectEOL(); err != nil {
		return nil, err
	}

	menu, err := parseMenuItems(l, loc, arguments)
	if err != nil {
		return nil, err
	}

	l.Advance()

	var rv []Node
	if label != "" {
		rv = append(rv, &Label{Loc: loc, Name: label, Block: []Node{}})
	}
	rv = append(rv, menu...)

	first := rv[0]
	for _, n := range rv {
		switch node := n.(type) {
		case *Label:
			node.Start = first
		case *Menu:
			node.Start = first
		}
	}

	return rv, nil
}

// parseCondBlock handles the shared "expr : block" tail of if, elif,
// else and while.
func parseCondBlock(l *Lexer, withCondition bool) (string, []Node, error) {
	condition := ""

	if withCondition {
		var err error
		condition, err = l.PythonExpression()
		if err != nil {
			return "", nil, err
		}
	}

	if err := l.requireMatch(":"); err != nil {
		return "", nil, err
	}
	if err := l.ExpectEOL(); err != nil {
		return "", nil, err
	}
	if err := l.ExpectBlock(); err != nil {
		return "", nil, err
	}

	block, err := parseBlock(l.SubblockLexer(false))
	if err != nil {
		return "", nil, err
	}

	l.Advance()

	return condition, block, nil
}

func parseIf(l *Lexer, loc Loc) ([]Node, error) {
	node := &If{Loc: loc}

	condition, block, err := parseCondBlock(l, true)
	if err != nil {
		return nil, err
	}
	node.Entries = append(node.Entries, IfEntry{Condition: condition, Block: block})

	for l.Keyword("elif") {
		condition, block, err := parseCondBlock(l, true)
		if err != nil {
			return nil, err
		}
		node.Entries = append(node.Entries, IfEntry{Condition: condition, Block: block})
	}

	if l.Keyword("else") {
		_, block, err := parseCondBlock(l, false)
		if err != nil {
			return nil, err
		}
		node.Entries = append(node.Entries, IfEntry{Block: block})
	}

	return []Node{node}, nil
}

func parseWhile(l *Lexer, loc Loc) ([]Node, error) {
	condition, block, err := parseCondBlock(l, true)
	if err != nil {
		return nil, err
	}

	return []Node{&While{Loc: loc, Condition: condition, Block: block}}, nil
}

func parseReturn(l *Lexer, loc Loc) ([]Node, error) {
	if err := l.ExpectNoblock(); err != nil {
		return nil, err
	}

	rest, _ := l.Rest()

	if err := l.ExpectEOL(); err != nil {
		return nil, err
	}
	l.Advance()

	return []Node{&Return{Loc: loc, Expression: rest}}, nil
}

func parsePass(l *Lexer, loc Loc) ([]Node, error) {
	if err := l.ExpectNoblock(); err != nil {
		return nil, err
	}
	if err := l.ExpectEOL(); err != nil {
		return nil, err
	}
	l.Advance()

	return []Node{&Pass{Loc: loc}}, nil
}

func parseStyleClause(node *Style, l *Lexer, seen map[string]bool) (bool, error) {
	if l.Keyword("is") {
		if node.Parent != "" {
			return false, semanticErrorf(l.loc, "parent clause appears twice")
		}
		parent, err := l.requireWord()
		if err != nil {
			return false, err
		}
		node.Parent = parent
		return true, nil
	}

	if l.Keyword("clear") {
		node.Clear = true
		return true, nil
	}

	if l.Keyword("take") {
		if node.Take != "" {
			return false, semanticErrorf(l.loc, "take clause appears twice")
		}
		take, err := l.requireName()
		if err != nil {
			return false, err
		}
		node.Take = take
		return true, nil
	}

	if l.Keyword("del") {
		propname, err := l.requireName()
		if err != nil {
			return false, err
		}
		if !isStyleProperty(propname) {
			return false, semanticErrorf(l.loc, "style property %s is not known", propname)
		}
		node.Delattr = append(node.Delattr, propname)
		return true, nil
	}

	if l.Keyword("variant") {
		if node.Variant != "" {
			return false, semanticErrorf(l.loc, "variant clause appears twice")
		}
		variant, err := l.requireSimpleExpression()
		if err != nil {
			return false, err
		}
		node.Variant = variant
		return true, nil
	}

	if propname, ok := l.Name(); ok {
		if propname != "properties" && !isStyleProperty(propname) {
			return false, semanticErrorf(l.loc, "style property %s is not known", propname)
		}
		if seen[propname] {
			return false, semanticErrorf(l.loc, "style property %s appears twice", propname)
		}
		seen[propname] = true

		value, err := l.requireSimpleExpression()
		if err != nil {
			return false, err
		}
		node.Properties = append(node.Properties, StyleProperty{Name: propname, Value: value})
		return true, nil
	}

	return false, nil
}

func parseStyle(l *Lexer, loc Loc) ([]Node, error) {
	name, err := l.requireWord()
	if err != nil {
		return nil, err
	}

	node := &Style{Loc: loc, Name: name}
	seen := make(map[string]bool)

	for {
		ok, err := parseStyleClause(node, l, seen)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}

	if l.Match(":") {
		if err := l.ExpectBlock(); err != nil {
			return nil, err
		}
		if err := l.ExpectEOL(); err != nil {
			return nil, err
		}

		ll := l.SubblockLexer(false)
		for ll.Advance() {
			for {
				ok, err := parseStyleClause(node, ll, seen)
				if err != nil {
					return nil, err
				}
				if !ok {
					break
				}
			}
			if err := ll.ExpectEOL(); err != nil {
				return nil, err
			}
		}
	} else {
		if err := l.ExpectNoblock(); err != nil {
			return nil, err
		}
		if err := l.ExpectEOL(); err != nil {
			return nil, err
		}
	}

	var rv Node = node
	if !l.init {
		rv = &Init{Loc: loc, Block: []Node{node}, Priority: l.initOffset}
	}

	l.Advance()

	return []Node{rv}, nil
}

func parseInit(l *Lexer, loc Loc) ([]Node, error) {
	priority := 0
	if p, ok := l.Integer(); ok {
		priority, _ = strconv.Atoi(p)
	}

	if l.Keyword("offset") {
		if err := l.requireMatch("="); err != nil {
			return nil, err
		}

		rest, ok := l.Rest()
		if !ok {
			return nil, expectedError(l.loc, "an integer offset", "end of line")
		}

		offset, err := strconv.Atoi(rest)
		if err != nil {
			return nil, expectedError(l.loc, "an integer offset", rest)
		}

		if err := l.ExpectNoblock(); err != nil {
			return nil, err
		}
		l.Advance()

		l.initOffset = offset
		return []Node{}, nil
	}

	var block []Node

	if l.Match(":") {
		if err := l.ExpectEOL(); err != nil {
			return nil, err
		}
		if err := l.ExpectBlock(); err != nil {
			return nil, err
		}

		var err error
		block, err = parseBlock(l.SubblockLexer(true))
		if err != nil {
			return nil, err
		}

		l.Advance()
	} else {
		oldInit := l.init
		l.init = true

		var err error
		block, err = l.trie.parse(l)

		l.init = oldInit
		if err != nil {
			return nil, err
		}
	}

	return []Node{&Init{Loc: loc, Block: block, Priority: priority + l.initOffset}}, nil
}

func parsePython(l *Lexer, loc Loc) ([]Node, error) {
	early := l.Keyword("early")
	hide := l.Keyword("hide")

	store := "store"
	if l.Keyword("in") {
		s, err := l.requireDottedName()
		if err != nil {
			return nil, err
		}
		store = "store." + s
	}

	if err := l.requireMatch(":"); err != nil {
		return nil, err
	}
	if err := l.ExpectEOL(); err != nil {
		return nil, err
	}
	if err := l.ExpectBlock(); err != nil {
		return nil, err
	}

	code, _ := l.PythonBlock()
	code = strings.TrimSpace(code)

	l.Advance()

	if early {
		return []Node{&EarlyPython{Loc: loc, Code: code, Store: store, Hide: hide}}, nil
	}
	return []Node{&Python{Loc: loc, Code: code, Store: store, Hide: hide}}, nil
}

// parseStoreName handles the dotted "name.in.store" form shared by
// define, default and transform, splitting it into a store path and the
// final variable name.
func parseStoreName(l *Lexer) (store, name string, err error) {
	store = "store"

	name, err = l.requireWord()
	if err != nil {
		return "", "", err
	}

	for l.Match(".") {
		store = store + "." + name
		name, err = l.requireWord()
		if err != nil {
			return "", "", err
		}
	}

	return store, name, nil
}

func parseDefine(l *Lexer, loc Loc) ([]Node, error) {
	priority := 0
	if p, ok := l.Integer(); ok {
		priority, _ = strconv.Atoi(p)
	}

	store, name, err := parseStoreName(l)
	if err != nil {
		return nil, err
	}

	index := ""
	if l.Match("[") {
		index, err = l.DelimitedPython("]")
		if err != nil {
			return nil, err
		}
		if err := l.requireMatch("]"); err != nil {
			return nil, err
		}
	}

	operator := "="
	switch {
	case l.Match("+="):
		operator = "+="
	case l.Match("|="):
		operator = "|="
	default:
		if err := l.requireMatch("="); err != nil {
			return nil, err
		}
	}

	expr, ok := l.Rest()
	if !ok {
		return nil, expectedError(l.loc, "an expression", "end of line")
	}

	if err := l.ExpectNoblock(); err != nil {
		return nil, err
	}

	node := &Define{Loc: loc, Store: store, Name: name, Index: index, Operator: operator, Expr: expr}

	var rv Node = node
	if !l.init {
		rv = &Init{Loc: loc, Block: []Node{node}, Priority: priority + l.initOffset}
	}

	l.Advance()

	return []Node{rv}, nil
}

func parseDefault(l *Lexer, loc Loc) ([]Node, error) {
	priority := 0
	if p, ok := l.Integer(); ok {
		priority, _ = strconv.Atoi(p)
	}

	store, name, err := parseStoreName(l)
	if err != nil {
		return nil, err
	}

	if err := l.requireMatch("="); err != nil {
		return nil, err
	}

	expr, ok := l.Rest()
	if !ok {
		return nil, expectedError(l.loc, "an expression", "end of line")
	}

	if err := l.ExpectNoblock(); err != nil {
		return nil, err
	}

	node := &Default{Loc: loc, Store: store, Name: name, Expr: expr}

	var rv Node = node
	if !l.init {
		rv = &Init{Loc: loc, Block: []Node{node}, Priority: priority + l.initOffset}
	}

	l.Advance()

	return []Node{rv}, nil
}

func parseCall(l *Lexer, loc Loc) ([]Node, error) {
	if err := l.ExpectNoblock(); err != nil {
		return nil, err
	}

	node := &Call{Loc: loc}

	if l.Keyword("expression") {
		node.Expression = true
		target, err := l.requireSimpleExpression()
		if err != nil {
			return nil, err
		}
		node.Label = target
	} else {
		target, err := l.requireLabelName(false)
		if err != nil {
			return nil, err
		}
		node.Label = target
	}

	// optional separator before the argument list
	l.Keyword("pass")

	arguments, err := parseArguments(l)
	if err != nil {
		return nil, err
	}
	node.Arguments = arguments

	if node.Expression {
		node.GlobalLabel = l.globalLabel
	}

	rv := []Node{node}

	if l.Keyword("from") {
		name, err := l.requireLabelName(true)
		if err != nil {
			return nil, err
		}
		rv = append(rv, &Label{Loc: loc, Name: name, Block: []Node{}})
	}

	if err := l.ExpectEOL(); err != nil {
		return nil, err
	}
	l.Advance()

	return rv, nil
}

func parseImage(l *Lexer, loc Loc) ([]Node, error) {
	name, err := parseImageName(l, false, true)
	if err != nil {
		return nil, err
	}

	node := &Image{Loc: loc, Name: name}

	if l.Match("=") {
		expr, ok := l.Rest()
		if !ok {
			return nil, expectedError(l.loc, "an expression", "end of line")
		}
		node.Expr = expr

		if err := l.ExpectNoblock(); err != nil {
			return nil, err
		}
	} else {
		if err := l.requireMatch(":"); err != nil {
			return nil, err
		}
		if err := l.ExpectEOL(); err != nil {
			return nil, err
		}
		if err := l.ExpectBlock(); err != nil {
			return nil, err
		}

		atl, err := parseAtl(l.SubblockLexer(false))
		if err != nil {
			return nil, err
		}
		node.Atl = atl
	}

	var rv Node = node
	if !l.init {
		rv = &Init{Loc: loc, Block: []Node{node}, Priority: 500 + l.initOffset}
	}

	l.Advance()

	return []Node{rv}, nil
}

func parseTransform(l *Lexer, loc Loc) ([]Node, error) {
	priority := 0
	if p, ok := l.Integer(); ok {
		priority, _ = strconv.Atoi(p)
	}

	store, name, err := parseStoreName(l)
	if err != nil {
		return nil, err
	}

	parameters, err := parseParameters(l)
	if err != nil {
		return nil, err
	}

	atl, err := parseAtlSubblock(l)
	if err != nil {
		return nil, err
	}

	node := &Transform{Loc: loc, Store: store, Name: name, Parameters: parameters, Atl: atl}

	var rv Node = node
	if !l.init {
		rv = &Init{Loc: loc, Block: []Node{node}, Priority: priority + l.initOffset}
	}

	l.Advance()

	return []Node{rv}, nil
}

func parseScreen(l *Lexer, loc Loc) ([]Node, error) {
	name, err := l.requireWord()
	if err != nil {
		return nil, err
	}

	parameters, err := parseParameters(l)
	if err != nil {
		return nil, err
	}

	if err := l.requireMatch(":"); err != nil {
		return nil, err
	}
	if err := l.ExpectEOL(); err != nil {
		return nil, err
	}
	if err := l.ExpectBlock(); err != nil {
		return nil, err
	}

	code, _ := l.PythonBlock()

	node := &Screen{Loc: loc, Name: name, Parameters: parameters, Code: strings.Trim(code, "\n")}

	var rv Node = node
	if !l.init {
		rv = &Init{Loc: loc, Block: []Node{node}, Priority: -500 + l.initOffset}
	}

	l.Advance()

	return []Node{rv}, nil
}

// parseUserStatement keeps the statement line and any block verbatim.
func parseUserStatement(mode BlockMode) grammarFunc {
	return func(l *Lexer, loc Loc) ([]Node, error) {
		node := &UserStatement{Loc: loc, Line: l.text, Block: l.subblock}

		switch mode {
		case RequiredBlock:
			if err := l.ExpectBlock(); err != nil {
				return nil, err
			}
		case ScriptBlock:
			if err := l.ExpectBlock(); err != nil {
				return nil, err
			}
			codeBlock, err := parseBlock(l.SubblockLexer(false))
			if err != nil {
				return nil, err
			}
			node.CodeBlock = codeBlock
		default:
			if err := l.ExpectNoblock(); err != nil {
				return nil, err
			}
		}

		l.Advance()

		return []Node{node}, nil
	}
}
