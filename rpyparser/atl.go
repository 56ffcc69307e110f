package rpyparser

import "strings"

// atlWarpers names the built-in interpolation functions an ATL statement
// may start with.
var atlWarpers = map[string]bool{
	"instant": true,
	"pause":   true,
	"linear":  true,

	"easeout": true, "easein": true, "ease": true,
	"easeout_quad": true, "easein_quad": true, "ease_quad": true,
	"easeout_cubic": true, "easein_cubic": true, "ease_cubic": true,
	"easeout_quart": true, "easein_quart": true, "ease_quart": true,
	"easeout_quint": true, "easein_quint": true, "ease_quint": true,
	"easeout_expo": true, "easein_expo": true, "ease_expo": true,
	"easeout_circ": true, "easein_circ": true, "ease_circ": true,
	"easeout_back": true, "easein_back": true, "ease_back": true,
	"easeout_elastic": true, "easein_elastic": true, "ease_elastic": true,
	"easeout_bounce": true, "easein_bounce": true, "ease_bounce": true,
}

// atlProperties names the transform properties an ATL statement may set.
// Names starting with u_ (uniforms) are accepted as well.
var atlProperties = map[string]bool{
	"additive": true, "alpha": true, "blend": true, "blur": true,
	"corner1": true, "corner2": true, "crop": true, "crop_relative": true,
	"debug": true, "delay": true, "events": true, "fit": true,
	"matrixanchor": true, "matrixcolor": true, "matrixtransform": true,
	"maxsize": true, "mesh": true, "mesh_pad": true, "nearest": true,
	"perspective": true, "rotate": true, "rotate_pad": true,
	"point_to": true, "orientation": true,
	"xrotate": true, "yrotate": true, "zrotate": true,
	"shader": true, "show_cancels_hide": true, "subpixel": true,
	"transform_anchor": true, "zoom": true,
	"xanchoraround": true, "xanchor": true, "xaround": true,
	"xoffset": true, "xpan": true, "xpos": true, "xsize": true,
	"xtile": true, "xzoom": true,
	"yanchoraround": true, "yanchor": true, "yaround": true,
	"yoffset": true, "ypan": true, "ypos": true, "ysize": true,
	"ytile": true, "yzoom": true,
	"zpos": true, "zzoom": true,
	"gl_anisotropic": true, "gl_blend_func": true, "gl_color_mask": true,
	"gl_depth": true, "gl_drawable_resolution": true, "gl_mipmap": true,
	"gl_pixel_perfect": true, "gl_texture_scaling": true,
	"gl_texture_wrap": true,
	"alignaround": true, "align": true, "anchor": true,
	"anchorangle": true, "anchoraround": true, "anchorradius": true,
	"angle": true, "around": true, "offset": true, "pos": true,
	"radius": true, "size": true,
	"xalign": true, "xcenter": true, "xycenter": true, "xysize": true,
	"yalign": true, "ycenter": true,
	"u_lod_bias": true, "u_renpy_blur_log2": true,
	"u_renpy_solid_color": true, "u_renpy_dissolve": true,
	"u_renpy_dissolve_offset": true, "u_renpy_dissolve_multiplier": true,
	"u_renpy_matrixcolor": true, "u_renpy_alpha": true,
	"u_renpy_over": true, "u_renpy_mask_multiplier": true,
	"u_renpy_mask_offset": true,
}

// incompatibleProps maps a composite property to the underlying
// properties it sets. Two properties conflict within one statement when
// one sets a subset of what the other sets.
var incompatibleProps = map[string][]string{
	"alignaround":  {"xaround", "yaround", "xanchoraround", "yanchoraround"},
	"align":        {"xanchor", "yanchor", "xpos", "ypos"},
	"anchor":       {"xanchor", "yanchor"},
	"angle":        {"xpos", "ypos"},
	"anchorangle":  {"xangle", "yangle"},
	"around":       {"xaround", "yaround", "xanchoraround", "yanchoraround"},
	"offset":       {"xoffset", "yoffset"},
	"pos":          {"xpos", "ypos"},
	"radius":       {"xpos", "ypos"},
	"anchorradius": {"xanchor", "yanchor"},
	"size":         {"xsize", "ysize"},
	"xalign":       {"xpos", "xanchor"},
	"xcenter":      {"xpos", "xanchor"},
	"xycenter":     {"xpos", "ypos", "xanchor", "yanchor"},
	"xysize":       {"xsize", "ysize"},
	"yalign":       {"ypos", "yanchor"},
	"ycenter":      {"ypos", "yanchor"},
}

// compatiblePairs lists property pairs that overlap in what they set but
// are still allowed together, as they form one polar coordinate.
var compatiblePairs = [][2]string{
	{"radius", "angle"},
	{"anchorradius", "anchorangle"},
}

// AtlStatement is one statement of a raw ATL block.
type AtlStatement interface {
	atlStatement()
}

// RawBlock is an unevaluated ATL block. A nil entry in Statements is a
// pass statement.
type RawBlock struct {
	Loc        Loc
	Statements []AtlStatement
	Animation  bool
}

func (*RawBlock) atlStatement() {}

// RawRepeat repeats the enclosing block, optionally a fixed count.
type RawRepeat struct {
	Loc     Loc
	Repeats string
}

func (*RawRepeat) atlStatement() {}

// RawContainsExpr replaces the transform's child with an expression.
type RawContainsExpr struct {
	Loc  Loc
	Expr string
}

func (*RawContainsExpr) atlStatement() {}

// RawChild adds a block-defined child to the transform.
type RawChild struct {
	Loc   Loc
	Child *RawBlock
}

func (*RawChild) atlStatement() {}

// RawParallel runs its block alongside the following statements.
type RawParallel struct {
	Loc   Loc
	Block *RawBlock
}

func (*RawParallel) atlStatement() {}

// RawChoice picks one weighted block at random.
type RawChoice struct {
	Loc    Loc
	Chance string
	Block  *RawBlock
}

func (*RawChoice) atlStatement() {}

// RawOn runs a block when one of the named events occurs.
type RawOn struct {
	Loc   Loc
	Names []string
	Block *RawBlock
}

func (*RawOn) atlStatement() {}

// RawTime is an absolute time control statement.
type RawTime struct {
	Loc  Loc
	Time string
}

func (*RawTime) atlStatement() {}

// RawFunction hands control of the transform to a callable.
type RawFunction struct {
	Loc  Loc
	Expr string
}

func (*RawFunction) atlStatement() {}

// RawEvent posts a named event to the enclosing block.
type RawEvent struct {
	Loc  Loc
	Name string
}

func (*RawEvent) atlStatement() {}

// AtlProperty is a single property interpolation target.
type AtlProperty struct {
	Name  string
	Value string
}

// AtlExpression is a displayable expression with an optional transition.
type AtlExpression struct {
	Expr string
	With string
}

// AtlSpline is a property interpolated through knot points.
type AtlSpline struct {
	Name  string
	Knots []string
}

// RawMultipurpose is the general interpolation statement: an optional
// warper and duration followed by properties, expressions, revolution
// direction and splines.
type RawMultipurpose struct {
	Loc          Loc
	Warper       string
	Duration     string
	WarpFunction string
	Properties   []AtlProperty
	Expressions  []AtlExpression
	Splines      []AtlSpline
	Revolution   string
	Circles      string
}

func (*RawMultipurpose) atlStatement() {}

// addProperty records a property assignment and returns the name of a
// previously set property it conflicts with, if any. A conflict with the
// same name means the property was given twice.
func (rm *RawMultipurpose) addProperty(name, value string) string {
	newlySet := incompatibleProps[name]
	if newlySet == nil {
		newlySet = []string{name}
	}

	oldProp := ""
	for _, p := range rm.Properties {
		iprops := incompatibleProps[p.Name]
		if iprops == nil {
			iprops = []string{p.Name}
		}

		subset := true
		for _, x := range newlySet {
			found := false
			for _, y := range iprops {
				if x == y {
					found = true
					break
				}
			}
			if !found {
				subset = false
				break
			}
		}

		if subset {
			oldProp = p.Name
		}
	}

	rm.Properties = append(rm.Properties, AtlProperty{Name: name, Value: value})

	if oldProp != "" {
		for _, pair := range compatiblePairs {
			a, b := pair[0], pair[1]
			if (a == oldProp && b == name) || (a == name && b == oldProp) {
				oldProp = ""
				break
			}
		}
	}

	return oldProp
}

// parseAtl parses the block under the given cursor as raw ATL.
func parseAtl(l *Lexer) (*RawBlock, error) {
	l.Advance()

	block := &RawBlock{Loc: l.Location()}

	for !l.eob {
		loc := l.Location()

		switch {
		case l.Keyword("repeat"):
			repeats, err := l.SimpleExpression(false, true)
			if err != nil {
				return nil, err
			}
			block.Statements = append(block.Statements, &RawRepeat{Loc: loc, Repeats: repeats})

		case l.Keyword("block"):
			sub, err := parseAtlSubblock(l)
			if err != nil {
				return nil, err
			}
			block.Statements = append(block.Statements, sub)

		case l.Keyword("contains"):
			expr, err := l.SimpleExpression(false, true)
			if err != nil {
				return nil, err
			}

			if expr != "" {
				if err := l.ExpectNoblock(); err != nil {
					return nil, err
				}
				block.Statements = append(block.Statements, &RawContainsExpr{Loc: loc, Expr: expr})
			} else {
				sub, err := parseAtlSubblock(l)
				if err != nil {
					return nil, err
				}
				block.Statements = append(block.Statements, &RawChild{Loc: loc, Child: sub})
			}

		case l.Keyword("parallel"):
			sub, err := parseAtlSubblock(l)
			if err != nil {
				return nil, err
			}
			block.Statements = append(block.Statements, &RawParallel{Loc: loc, Block: sub})

		case l.Keyword("choice"):
			chance, err := l.SimpleExpression(false, true)
			if err != nil {
				return nil, err
			}
			if chance == "" {
				chance = "1.0"
			}

			sub, err := parseAtlSubblock(l)
			if err != nil {
				return nil, err
			}
			block.Statements = append(block.Statements, &RawChoice{Loc: loc, Chance: chance, Block: sub})

		case l.Keyword("on"):
			name, err := l.requireWord()
			if err != nil {
				return nil, err
			}
			names := []string{name}

			for l.Match(",") {
				n, ok := l.Word()
				if !ok {
					break
				}
				names = append(names, n)
			}

			sub, err := parseAtlSubblock(l)
			if err != nil {
				return nil, err
			}
			block.Statements = append(block.Statements, &RawOn{Loc: loc, Names: names, Block: sub})

		case l.Keyword("time"):
			t, err := l.requireSimpleExpression()
			if err != nil {
				return nil, err
			}
			if err := l.ExpectNoblock(); err != nil {
				return nil, err
			}
			block.Statements = append(block.Statements, &RawTime{Loc: loc, Time: t})

		case l.Keyword("function"):
			expr, err := l.requireSimpleExpression()
			if err != nil {
				return nil, err
			}
			if err := l.ExpectNoblock(); err != nil {
				return nil, err
			}
			block.Statements = append(block.Statements, &RawFunction{Loc: loc, Expr: expr})

		case l.Keyword("event"):
			name, err := l.requireWord()
			if err != nil {
				return nil, err
			}
			if err := l.ExpectNoblock(); err != nil {
				return nil, err
			}
			block.Statements = append(block.Statements, &RawEvent{Loc: loc, Name: name})

		case l.Keyword("pass"):
			if err := l.ExpectNoblock(); err != nil {
				return nil, err
			}
			block.Statements = append(block.Statements, nil)

		case l.Keyword("animation"):
			if err := l.ExpectNoblock(); err != nil {
				return nil, err
			}
			block.Animation = true

		default:
			if err := parseAtlMultipurpose(l, block, loc); err != nil {
				return nil, err
			}
		}

		if l.Eol() {
			l.Advance()
			continue
		}

		if !l.Match(",") {
			return nil, expectedError(l.loc, "comma or end of line", l.remainder())
		}
	}

	return block, nil
}

// parseAtlSubblock handles the common ": block" tail of the compound ATL
// statements.
func parseAtlSubblock(l *Lexer) (*RawBlock, error) {
	if err := l.requireMatch(":"); err != nil {
		return nil, err
	}
	if err := l.ExpectEOL(); err != nil {
		return nil, err
	}
	if err := l.ExpectBlock(); err != nil {
		return nil, err
	}

	return parseAtl(l.SubblockLexer(false))
}

// parseAtlMultipurpose parses the general interpolation statement. A
// warper may carry its clauses either inline or in an indented block; the
// second cursor ll walks whichever of the two holds the clauses, and the
// main cursor is synchronized when the clauses turn out to be inline.
func parseAtlMultipurpose(l *Lexer, block *RawBlock, loc Loc) error {
	rm := &RawMultipurpose{Loc: loc}

	cp := l.Checkpoint()
	warper, _ := l.Name()

	switch {
	case warper != "" && atlWarpers[warper]:
		duration, err := l.requireSimpleExpression()
		if err != nil {
			return err
		}
		rm.Warper = warper
		rm.Duration = duration

	case warper == "warp":
		warper = ""
		warpFunction, err := l.requireSimpleExpression()
		if err != nil {
			return err
		}
		duration, err := l.requireSimpleExpression()
		if err != nil {
			return err
		}
		rm.WarpFunction = warpFunction
		rm.Duration = duration

	default:
		l.Revert(cp)
		warper = ""
	}

	ll := l.clone()
	hasBlock := false
	lastExpression := false
	thisExpression := false

	for {
		if warper != "" && !hasBlock && ll.Match(":") {
			if err := ll.ExpectEOL(); err != nil {
				return err
			}
			if err := ll.ExpectBlock(); err != nil {
				return err
			}
			hasBlock = true

			l.Revert(ll.Checkpoint())
			ll = l.SubblockLexer(false)
			ll.Advance()
			if err := ll.ExpectNoblock(); err != nil {
				return err
			}
		}

		if hasBlock && ll.Eol() {
			if ll.Advance() {
				if err := ll.ExpectNoblock(); err != nil {
					return err
				}
			}
		}

		lastExpression = thisExpression
		thisExpression = false

		if ll.Keyword("pass") {
			continue
		}

		if ll.Keyword("clockwise") {
			rm.Revolution = "clockwise"
			continue
		}

		if ll.Keyword("counterclockwise") {
			rm.Revolution = "counterclockwise"
			continue
		}

		if ll.Keyword("circles") {
			expr, err := ll.requireSimpleExpression()
			if err != nil {
				return err
			}
			rm.Circles = expr
			continue
		}

		cp := ll.Checkpoint()

		if prop, ok := ll.Name(); ok && (atlProperties[prop] || strings.HasPrefix(prop, "u_")) {
			expr, err := ll.requireSimpleExpression()
			if err != nil {
				return err
			}

			var knots []string
			for ll.Keyword("knot") {
				knot, err := ll.requireSimpleExpression()
				if err != nil {
					return err
				}
				knots = append(knots, knot)
			}

			if len(knots) > 0 {
				if prop == "orientation" {
					return semanticErrorf(ll.loc, "orientation does not support spline")
				}
				knots = append(knots, expr)
				rm.Splines = append(rm.Splines, AtlSpline{Name: prop, Knots: knots})
			} else {
				switch conflict := rm.addProperty(prop, expr); {
				case conflict == prop:
					return semanticErrorf(ll.loc, "property %s is given a value more than once", prop)
				case conflict != "":
					return semanticErrorf(ll.loc, "properties %s and %s conflict with each other", prop, conflict)
				}
			}

			continue
		}

		ll.Revert(cp)

		expr, err := ll.SimpleExpression(false, true)
		if err != nil {
			return err
		}
		if expr == "" {
			break
		}

		if lastExpression {
			return semanticErrorf(ll.loc,
				"statement contains two expressions in a row; is one of them a misspelled property? If not, separate them with pass.")
		}
		thisExpression = true

		withExpr := ""
		if ll.Keyword("with") {
			withExpr, err = ll.requireSimpleExpression()
			if err != nil {
				return err
			}
		}

		rm.Expressions = append(rm.Expressions, AtlExpression{Expr: expr, With: withExpr})
	}

	if !hasBlock {
		l.Revert(ll.Checkpoint())
		if err := l.ExpectNoblock(); err != nil {
			return err
		}
	}

	block.Statements = append(block.Statements, rm)
	return nil
}
