// Package rpyformat renders a parsed script back to canonical source.
//
// The output is normalized rather than byte-preserving: indentation is
// four spaces, dialogue strings are double quoted, transform properties
// are sorted by name, and inline with clauses are re-attached to their
// statement. Rendering a script and parsing the result yields the same
// statement tree.
package rpyformat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kobaltcore/renpyfmt/rpyparser"
)

const indentStep = 4

// Render formats a statement list as script source.
func Render(nodes []rpyparser.Node) string {
	r := &renderer{}
	r.nodes(nodes, 0)
	return r.b.String()
}

type renderer struct {
	b strings.Builder
}

func (r *renderer) line(indent int, s string) {
	r.b.WriteString(strings.Repeat(" ", indent))
	r.b.WriteString(s)
	r.b.WriteByte('\n')
}

// encodeString escapes a decoded dialogue string back into a
// double-quoted literal.
func encodeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func renderArguments(info *rpyparser.ArgumentInfo) string {
	var parts []string

	for _, a := range info.Arguments {
		switch {
		case a.Star == 1:
			parts = append(parts, "*"+a.Value)
		case a.Star == 2:
			parts = append(parts, "**"+a.Value)
		case a.Name != "":
			parts = append(parts, a.Name+"="+a.Value)
		default:
			parts = append(parts, a.Value)
		}
	}

	return "(" + strings.Join(parts, ", ") + ")"
}

func renderParameters(sig *rpyparser.ParameterSignature) string {
	var parts []string

	slashAfter := -1
	sawStar := false
	needBareStar := false

	for i, p := range sig.Parameters {
		if p.Kind == rpyparser.ParamPositionalOnly {
			slashAfter = i
		}
		if p.Kind == rpyparser.ParamVarPositional {
			sawStar = true
		}
	}

	for _, p := range sig.Parameters {
		if p.Kind == rpyparser.ParamKeywordOnly && !sawStar {
			needBareStar = true
		}
	}

	starEmitted := false

	for i, p := range sig.Parameters {
		if p.Kind == rpyparser.ParamKeywordOnly && needBareStar && !starEmitted {
			parts = append(parts, "*")
			starEmitted = true
		}

		s := p.Name
		switch p.Kind {
		case rpyparser.ParamVarPositional:
			s = "*" + s
			starEmitted = true
		case rpyparser.ParamVarKeyword:
			s = "**" + s
		}

		if p.HasDefault {
			s = s + "=" + p.Default
		}

		parts = append(parts, s)

		if i == slashAfter {
			parts = append(parts, "/")
		}
	}

	return "(" + strings.Join(parts, ", ") + ")"
}

func renderImspec(spec *rpyparser.ImageSpecifier) string {
	var parts []string

	if spec.Expression != "" {
		parts = append(parts, "expression "+spec.Expression)
	} else if len(spec.ImageName) > 0 {
		parts = append(parts, strings.Join(spec.ImageName, " "))
	}

	if spec.Tag != "" {
		parts = append(parts, "as "+spec.Tag)
	}
	if len(spec.AtList) > 0 {
		parts = append(parts, "at "+strings.Join(spec.AtList, ", "))
	}
	if spec.Layer != "" {
		parts = append(parts, "onlayer "+spec.Layer)
	}
	if spec.Zorder != "" {
		parts = append(parts, "zorder "+spec.Zorder)
	}
	if len(spec.Behind) > 0 {
		parts = append(parts, "behind "+strings.Join(spec.Behind, ", "))
	}

	return strings.Join(parts, " ")
}

func renderSay(n *rpyparser.Say, withExpr string) string {
	var parts []string

	if n.Who != "" {
		parts = append(parts, n.Who)
	}
	parts = append(parts, n.Attributes...)

	if len(n.TemporaryAttributes) > 0 {
		parts = append(parts, "@")
		parts = append(parts, n.TemporaryAttributes...)
	}

	parts = append(parts, encodeString(n.What))

	if !n.Interact {
		parts = append(parts, "nointeract")
	}
	if n.Identifier != "" {
		parts = append(parts, "id "+n.Identifier)
	}
	if n.Arguments != nil {
		parts = append(parts, renderArguments(n.Arguments))
	}
	if n.With != "" {
		parts = append(parts, "with "+n.With)
	}
	if withExpr != "" {
		parts = append(parts, "with "+withExpr)
	}

	return strings.Join(parts, " ")
}

// nodes renders a statement list, merging the split forms the parser
// produces: inline with clauses, call ... from labels, named menus and
// say menuitems.
func (r *renderer) nodes(nodes []rpyparser.Node, indent int) {
	for i := 0; i < len(nodes); i++ {
		// paired with: [with None, stmt, with expr] becomes an
		// inline clause on the statement
		if w, ok := nodes[i].(*rpyparser.With); ok && w.Paired != "" {
			if i+2 < len(nodes) {
				if closing, ok := nodes[i+2].(*rpyparser.With); ok && closing.Expr == w.Paired {
					r.node(nodes[i+1], indent, w.Paired)
					i += 2
					continue
				}
			}
			continue
		}

		// a label with a start marker introduces a named menu
		if lbl, ok := nodes[i].(*rpyparser.Label); ok && lbl.Start != nil && len(lbl.Block) == 0 {
			name := lbl.Name
			var caption *rpyparser.Say

			j := i + 1
			if s, ok := peekSayItem(nodes, j); ok {
				caption = s
				j++
			}
			if m, ok := peekMenu(nodes, j); ok {
				r.menu(m, name, caption, indent)
				i = j
				continue
			}
		}

		// a say menuitem precedes its menu
		if s, ok := nodes[i].(*rpyparser.Say); ok && !s.Interact {
			if m, ok := peekMenu(nodes, i+1); ok && m.HasCaption {
				r.menu(m, "", s, indent)
				i++
				continue
			}
		}

		// call ... from declares a return label
		if c, ok := nodes[i].(*rpyparser.Call); ok && i+1 < len(nodes) {
			if lbl, ok := nodes[i+1].(*rpyparser.Label); ok && len(lbl.Block) == 0 && lbl.Position() == c.Loc {
				r.call(c, lbl.Name, indent)
				i++
				continue
			}
		}

		r.node(nodes[i], indent, "")
	}
}

func peekMenu(nodes []rpyparser.Node, i int) (*rpyparser.Menu, bool) {
	if i >= len(nodes) {
		return nil, false
	}
	m, ok := nodes[i].(*rpyparser.Menu)
	return m, ok
}

func peekSayItem(nodes []rpyparser.Node, i int) (*rpyparser.Say, bool) {
	if i >= len(nodes) {
		return nil, false
	}
	s, ok := nodes[i].(*rpyparser.Say)
	if !ok || s.Interact {
		return nil, false
	}
	return s, true
}

// node renders one statement. withExpr carries a re-attached inline with
// clause for statements that support one.
func (r *renderer) node(node rpyparser.Node, indent int, withExpr string) {
	switch n := node.(type) {
	case *rpyparser.Say:
		r.line(indent, renderSay(n, withExpr))

	case *rpyparser.Label:
		header := "label " + n.Name
		if n.Parameters != nil {
			header += renderParameters(n.Parameters)
		}
		if n.Hide {
			header += " hide"
		}
		r.line(indent, header+":")
		r.nodes(n.Block, indent+indentStep)

	case *rpyparser.Scene:
		if n.Imspec == nil {
			s := "scene"
			if n.Layer != "" {
				s += " onlayer " + n.Layer
			}
			r.line(indent, s)
			return
		}
		r.imageStatement("scene", renderImspec(n.Imspec), withExpr, n.Atl, indent)

	case *rpyparser.Show:
		r.imageStatement("show", renderImspec(n.Imspec), withExpr, n.Atl, indent)

	case *rpyparser.Hide:
		s := "hide " + renderImspec(n.Imspec)
		if withExpr != "" {
			s += " with " + withExpr
		}
		r.line(indent, s)

	case *rpyparser.With:
		if n.Expr != "None" || n.Paired == "" {
			r.line(indent, "with "+n.Expr)
		}

	case *rpyparser.PythonOneLine:
		r.line(indent, "$ "+n.Code)

	case *rpyparser.Jump:
		if n.Expression {
			r.line(indent, "jump expression "+n.Target)
		} else {
			r.line(indent, "jump "+n.Target)
		}

	case *rpyparser.Call:
		r.call(n, "", indent)

	case *rpyparser.Return:
		if n.Expression != "" {
			r.line(indent, "return "+n.Expression)
		} else {
			r.line(indent, "return")
		}

	case *rpyparser.Pass:
		r.line(indent, "pass")

	case *rpyparser.Menu:
		r.menu(n, "", nil, indent)

	case *rpyparser.If:
		for i, e := range n.Entries {
			switch {
			case i == 0:
				r.line(indent, "if "+e.Condition+":")
			case e.Condition == "":
				r.line(indent, "else:")
			default:
				r.line(indent, "elif "+e.Condition+":")
			}
			r.nodes(e.Block, indent+indentStep)
		}

	case *rpyparser.While:
		r.line(indent, "while "+n.Condition+":")
		r.nodes(n.Block, indent+indentStep)

	case *rpyparser.Init:
		r.initNode(n, indent)

	case *rpyparser.Style:
		r.style(n, indent)

	case *rpyparser.Define:
		name := n.Name
		if n.Index != "" {
			name += "[" + n.Index + "]"
		}
		r.line(indent, fmt.Sprintf("define %s %s %s", storeName(n.Store, name), n.Operator, n.Expr))

	case *rpyparser.Default:
		r.line(indent, fmt.Sprintf("default %s = %s", storeName(n.Store, n.Name), n.Expr))

	case *rpyparser.Python:
		r.python("python", n.Hide, n.Store, n.Code, indent)

	case *rpyparser.EarlyPython:
		r.python("python early", n.Hide, n.Store, n.Code, indent)

	case *rpyparser.Image:
		name := "image " + strings.Join(n.Name, " ")
		if n.Atl != nil {
			r.line(indent, name+":")
			r.atlBlock(n.Atl, indent+indentStep)
		} else {
			r.line(indent, name+" = "+n.Expr)
		}

	case *rpyparser.Transform:
		header := "transform " + storeName(n.Store, n.Name)
		if n.Parameters != nil {
			header += renderParameters(n.Parameters)
		}
		r.line(indent, header+":")
		r.atlBlock(n.Atl, indent+indentStep)

	case *rpyparser.Screen:
		header := "screen " + n.Name
		if n.Parameters != nil {
			header += renderParameters(n.Parameters)
		}
		r.line(indent, header+":")
		r.verbatim(n.Code, indent+indentStep)

	case *rpyparser.UserStatement:
		r.line(indent, n.Line)
		r.rawBlocks(n.Block, indent+indentStep)
	}
}

func storeName(store, name string) string {
	if store == "store" {
		return name
	}
	return strings.TrimPrefix(store, "store.") + "." + name
}

func (r *renderer) call(n *rpyparser.Call, from string, indent int) {
	s := "call "
	if n.Expression {
		s += "expression " + n.Label
	} else {
		s += n.Label
	}

	if n.Arguments != nil {
		if n.Expression {
			s += " pass "
		}
		s += renderArguments(n.Arguments)
	}

	if from != "" {
		s += " from " + from
	}

	r.line(indent, s)
}

func (r *renderer) imageStatement(keyword, imspec, withExpr string, atl *rpyparser.RawBlock, indent int) {
	s := keyword + " " + imspec
	if withExpr != "" {
		s += " with " + withExpr
	}

	if atl != nil {
		r.line(indent, s+":")
		r.atlBlock(atl, indent+indentStep)
	} else {
		r.line(indent, s)
	}
}

func (r *renderer) menu(n *rpyparser.Menu, name string, caption *rpyparser.Say, indent int) {
	header := "menu"
	if name != "" {
		header += " " + name
	}
	if n.Arguments != nil {
		header += renderArguments(n.Arguments)
	}
	r.line(indent, header+":")

	inner := indent + indentStep

	if caption != nil {
		// the nointeract flag is implied inside a menu
		c := *caption
		c.Interact = true
		r.line(inner, renderSay(&c, ""))
	}
	if n.Set != "" {
		r.line(inner, "set "+n.Set)
	}
	if n.With != "" {
		r.line(inner, "with "+n.With)
	}

	for _, item := range n.Items {
		if item.Block == nil {
			r.line(inner, encodeString(item.Label))
			continue
		}

		s := encodeString(item.Label)
		if item.Arguments != nil {
			s += " " + renderArguments(item.Arguments)
		}
		if item.Condition != "" {
			s += " if " + item.Condition
		}
		r.line(inner, s+":")
		r.nodes(item.Block, inner+indentStep)
	}
}

// initNode renders an init block, unwrapping the implicit wrappers the
// parser adds around define, default, style, image, screen and
// transform statements.
func (r *renderer) initNode(n *rpyparser.Init, indent int) {
	if len(n.Block) == 1 {
		implicit := false

		switch n.Block[0].(type) {
		case *rpyparser.Define, *rpyparser.Default, *rpyparser.Style, *rpyparser.Transform:
			implicit = n.Priority == 0
		case *rpyparser.Image:
			implicit = n.Priority == 500
		case *rpyparser.Screen:
			implicit = n.Priority == -500
		}

		if implicit {
			r.nodes(n.Block, indent)
			return
		}
	}

	if n.Priority != 0 {
		r.line(indent, fmt.Sprintf("init %d:", n.Priority))
	} else {
		r.line(indent, "init:")
	}
	r.nodes(n.Block, indent+indentStep)
}

func (r *renderer) style(n *rpyparser.Style, indent int) {
	header := "style " + n.Name
	if n.Parent != "" {
		header += " is " + n.Parent
	}

	hasBody := n.Clear || n.Take != "" || n.Variant != "" ||
		len(n.Delattr) > 0 || len(n.Properties) > 0

	if !hasBody {
		r.line(indent, header)
		return
	}

	r.line(indent, header+":")
	inner := indent + indentStep

	if n.Clear {
		r.line(inner, "clear")
	}
	if n.Take != "" {
		r.line(inner, "take "+n.Take)
	}
	if n.Variant != "" {
		r.line(inner, "variant "+n.Variant)
	}
	for _, d := range n.Delattr {
		r.line(inner, "del "+d)
	}
	for _, p := range n.Properties {
		r.line(inner, p.Name+" "+p.Value)
	}
}

func (r *renderer) python(keyword string, hide bool, store, code string, indent int) {
	header := keyword
	if hide {
		header += " hide"
	}
	if store != "store" {
		header += " in " + strings.TrimPrefix(store, "store.")
	}

	r.line(indent, header+":")
	r.verbatim(code, indent+indentStep)
}

// verbatim re-indents a reconstructed code block.
func (r *renderer) verbatim(code string, indent int) {
	for _, line := range strings.Split(code, "\n") {
		if strings.TrimSpace(line) == "" {
			r.b.WriteByte('\n')
			continue
		}
		r.line(indent, line)
	}
}

func (r *renderer) rawBlocks(blocks []rpyparser.Block, indent int) {
	for _, b := range blocks {
		r.line(indent, b.Text)
		r.rawBlocks(b.Sub, indent+indentStep)
	}
}

func (r *renderer) atlBlock(b *rpyparser.RawBlock, indent int) {
	if b.Animation {
		r.line(indent, "animation")
	}

	for _, stmt := range b.Statements {
		r.atlStatement(stmt, indent)
	}
}

func (r *renderer) atlStatement(stmt rpyparser.AtlStatement, indent int) {
	switch n := stmt.(type) {
	case nil:
		r.line(indent, "pass")

	case *rpyparser.RawRepeat:
		if n.Repeats != "" {
			r.line(indent, "repeat "+n.Repeats)
		} else {
			r.line(indent, "repeat")
		}

	case *rpyparser.RawBlock:
		r.line(indent, "block:")
		r.atlBlock(n, indent+indentStep)

	case *rpyparser.RawContainsExpr:
		r.line(indent, "contains "+n.Expr)

	case *rpyparser.RawChild:
		r.line(indent, "contains:")
		r.atlBlock(n.Child, indent+indentStep)

	case *rpyparser.RawParallel:
		r.line(indent, "parallel:")
		r.atlBlock(n.Block, indent+indentStep)

	case *rpyparser.RawChoice:
		if n.Chance != "1.0" {
			r.line(indent, "choice "+n.Chance+":")
		} else {
			r.line(indent, "choice:")
		}
		r.atlBlock(n.Block, indent+indentStep)

	case *rpyparser.RawOn:
		r.line(indent, "on "+strings.Join(n.Names, ", ")+":")
		r.atlBlock(n.Block, indent+indentStep)

	case *rpyparser.RawTime:
		r.line(indent, "time "+n.Time)

	case *rpyparser.RawFunction:
		r.line(indent, "function "+n.Expr)

	case *rpyparser.RawEvent:
		r.line(indent, "event "+n.Name)

	case *rpyparser.RawMultipurpose:
		r.line(indent, renderMultipurpose(n))
	}
}

func renderMultipurpose(n *rpyparser.RawMultipurpose) string {
	var parts []string

	switch {
	case n.Warper != "":
		parts = append(parts, n.Warper, n.Duration)
	case n.WarpFunction != "":
		parts = append(parts, "warp", n.WarpFunction, n.Duration)
	}

	for i, e := range n.Expressions {
		// Adjacent expressions must be separated with pass to parse again.
		if i > 0 {
			parts = append(parts, "pass")
		}
		if e.With != "" {
			parts = append(parts, e.Expr+" with "+e.With)
		} else {
			parts = append(parts, e.Expr)
		}
	}

	props := make([]rpyparser.AtlProperty, len(n.Properties))
	copy(props, n.Properties)
	sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })

	for _, p := range props {
		parts = append(parts, p.Name+" "+p.Value)
	}

	for _, s := range n.Splines {
		last := len(s.Knots) - 1
		spline := s.Name + " " + s.Knots[last]
		for _, k := range s.Knots[:last] {
			spline += " knot " + k
		}
		parts = append(parts, spline)
	}

	if n.Revolution != "" {
		parts = append(parts, n.Revolution)
	}
	if n.Circles != "" {
		parts = append(parts, "circles "+n.Circles)
	}

	return strings.Join(parts, " ")
}
