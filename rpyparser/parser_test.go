package rpyparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) []Node {
	t.Helper()
	nodes, err := Parse("script.rpy", []byte(src))
	require.NoError(t, err)
	return nodes
}

func parseErr(t *testing.T, src string) error {
	t.Helper()
	_, err := Parse("script.rpy", []byte(src))
	require.Error(t, err)
	return err
}

func TestParseNarration(t *testing.T) {
	nodes := mustParse(t, "\"Hello, world.\"\n")
	require.Len(t, nodes, 1)

	say := nodes[0].(*Say)
	assert.Equal(t, "", say.Who)
	assert.Equal(t, "Hello, world.", say.What)
	assert.True(t, say.Interact)
	assert.Equal(t, 1, say.Position().Line)
}

func TestParseSayClauses(t *testing.T) {
	nodes := mustParse(t, "e happy @ sad \"Hi!\" nointeract id hi (multiple=2) with dissolve\n")
	require.Len(t, nodes, 1)

	say := nodes[0].(*Say)
	assert.Equal(t, "e", say.Who)
	assert.Equal(t, []string{"happy"}, say.Attributes)
	assert.Equal(t, []string{"sad"}, say.TemporaryAttributes)
	assert.Equal(t, "Hi!", say.What)
	assert.False(t, say.Interact)
	assert.Equal(t, "hi", say.Identifier)
	assert.Equal(t, "dissolve", say.With)

	require.NotNil(t, say.Arguments)
	require.Len(t, say.Arguments.Arguments, 1)
	assert.Equal(t, "multiple", say.Arguments.Arguments[0].Name)
	assert.Equal(t, "2", say.Arguments.Arguments[0].Value)
}

func TestParseSayNegatedAttribute(t *testing.T) {
	nodes := mustParse(t, "e -happy \"Hi.\"\n")
	say := nodes[0].(*Say)
	assert.Equal(t, []string{"-happy"}, say.Attributes)
}

func TestParseMonologue(t *testing.T) {
	src := `e """
    First paragraph.

    {clear}

    Second paragraph.
    """
`
	nodes := mustParse(t, src)
	require.Len(t, nodes, 3)

	first := nodes[0].(*Say)
	assert.Equal(t, "e", first.Who)
	assert.Equal(t, "First paragraph.", first.What)

	clear := nodes[1].(*UserStatement)
	assert.Equal(t, "nvl clear", clear.Line)

	second := nodes[2].(*Say)
	assert.Equal(t, "Second paragraph.", second.What)
}

func TestParseExpectedStatement(t *testing.T) {
	err := parseErr(t, "foo bar baz\n")

	var synErr *SyntaxError
	require.ErrorAs(t, err, &synErr)
	assert.Contains(t, err.Error(), "expected statement")
}

func TestParseLabel(t *testing.T) {
	nodes := mustParse(t, "label start:\n    return\n")
	require.Len(t, nodes, 1)

	label := nodes[0].(*Label)
	assert.Equal(t, "start", label.Name)
	assert.False(t, label.Hide)
	require.Len(t, label.Block, 1)
	assert.IsType(t, &Return{}, label.Block[0])
}

func TestParseLabelHide(t *testing.T) {
	nodes := mustParse(t, "label helper hide:\n    return\n")
	assert.True(t, nodes[0].(*Label).Hide)
}

func TestParseLocalLabels(t *testing.T) {
	src := `label chapter:
    jump .start
label chapter.start:
    return
`
	nodes := mustParse(t, src)
	require.Len(t, nodes, 2)

	jump := nodes[0].(*Label).Block[0].(*Jump)
	assert.Equal(t, "chapter.start", jump.Target)

	assert.Equal(t, "chapter.start", nodes[1].(*Label).Name)
}

func TestParseParameters(t *testing.T) {
	nodes := mustParse(t, "label f(a, b=1, *args, c, **kwargs):\n    return\n")

	sig := nodes[0].(*Label).Parameters
	require.NotNil(t, sig)
	require.Len(t, sig.Parameters, 5)

	assert.Equal(t, Parameter{Name: "a", Kind: ParamPositionalOrKeyword}, sig.Parameters[0])
	assert.Equal(t, Parameter{Name: "b", Kind: ParamPositionalOrKeyword, Default: "1", HasDefault: true}, sig.Parameters[1])
	assert.Equal(t, Parameter{Name: "args", Kind: ParamVarPositional}, sig.Parameters[2])
	assert.Equal(t, Parameter{Name: "c", Kind: ParamKeywordOnly}, sig.Parameters[3])
	assert.Equal(t, Parameter{Name: "kwargs", Kind: ParamVarKeyword}, sig.Parameters[4])
}

func TestParseParametersPositionalOnly(t *testing.T) {
	nodes := mustParse(t, "label f(a, /, b):\n    return\n")

	sig := nodes[0].(*Label).Parameters
	require.Len(t, sig.Parameters, 2)
	assert.Equal(t, ParamPositionalOnly, sig.Parameters[0].Kind)
	assert.Equal(t, ParamPositionalOrKeyword, sig.Parameters[1].Kind)
}

func TestParseParameterErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"label f(a, a):\n    return\n", "duplicate parameter name: a"},
		{"label f(a=1, b):\n    return\n", "non-default parameter b follows a default parameter"},
		{"label f(*):\n    return\n", "a bare * must be followed by a parameter"},
		{"label f(*args, *more):\n    return\n", "* may appear only once"},
		{"label f(**kw, a):\n    return\n", "no parameter can follow a var-keyword parameter (**kw)"},
		{"label f(/, a):\n    return\n", "at least one parameter must precede /"},
		{"label f(a=):\n    return\n", "empty default value for parameter a"},
	}

	for _, tt := range tests {
		err := parseErr(t, tt.src)
		assert.Contains(t, err.Error(), tt.want, tt.src)
	}
}

func TestParseMenu(t *testing.T) {
	src := `menu:
    "What do?"
    "Fight":
        return
    "Flee" if brave:
        jump away
`
	nodes := mustParse(t, src)
	require.Len(t, nodes, 1)

	menu := nodes[0].(*Menu)
	assert.True(t, menu.HasCaption)
	require.Len(t, menu.Items, 3)

	assert.Equal(t, "What do?", menu.Items[0].Label)
	assert.Nil(t, menu.Items[0].Block)

	assert.Equal(t, "Fight", menu.Items[1].Label)
	require.Len(t, menu.Items[1].Block, 1)

	assert.Equal(t, "brave", menu.Items[2].Condition)

	assert.Same(t, Node(menu), menu.Start)
}

func TestParseNamedMenu(t *testing.T) {
	src := `menu choices:
    "A":
        return
`
	nodes := mustParse(t, src)
	require.Len(t, nodes, 2)

	label := nodes[0].(*Label)
	assert.Equal(t, "choices", label.Name)
	assert.Empty(t, label.Block)

	menu := nodes[1].(*Menu)
	assert.False(t, menu.HasCaption)
	assert.Same(t, Node(label), label.Start)
	assert.Same(t, Node(label), menu.Start)
}

func TestParseMenuSayItem(t *testing.T) {
	src := `menu:
    e "Which way?"
    set seen
    with dissolve
    "Left":
        return
`
	nodes := mustParse(t, src)
	require.Len(t, nodes, 2)

	say := nodes[0].(*Say)
	assert.Equal(t, "e", say.Who)
	assert.False(t, say.Interact)

	menu := nodes[1].(*Menu)
	assert.True(t, menu.HasCaption)
	assert.Equal(t, "seen", menu.Set)
	assert.Equal(t, "dissolve", menu.With)
	require.Len(t, menu.Items, 1)
}

func TestParseMenuItemArguments(t *testing.T) {
	src := `menu:
    "A" (style="big"):
        return
`
	nodes := mustParse(t, src)
	menu := nodes[0].(*Menu)
	require.NotNil(t, menu.Items[0].Arguments)
	assert.Equal(t, `"big"`, menu.Items[0].Arguments.Arguments[0].Value)
}

func TestParseMenuErrors(t *testing.T) {
	noChoices := `menu:
    "Just a caption"
`
	err := parseErr(t, noChoices)
	assert.Contains(t, err.Error(), "menu does not contain any choices")

	missingColon := `menu:
    "Broken"
        return
    "A":
        return
`
	err = parseErr(t, missingColon)
	assert.Contains(t, err.Error(), "did you forget a colon")

	mixed := `menu:
    e "Say item."
    "A caption"
    "A":
        return
`
	err = parseErr(t, mixed)
	assert.Contains(t, err.Error(), "captions and say menuitems may not exist in the same menu")
}

func TestParseIf(t *testing.T) {
	src := `if a:
    return
elif b:
    jump x
else:
    pass
`
	nodes := mustParse(t, src)
	require.Len(t, nodes, 1)

	node := nodes[0].(*If)
	require.Len(t, node.Entries, 3)
	assert.Equal(t, "a", node.Entries[0].Condition)
	assert.Equal(t, "b", node.Entries[1].Condition)
	assert.Equal(t, "", node.Entries[2].Condition)
	assert.IsType(t, &Pass{}, node.Entries[2].Block[0])
}

func TestParseWhile(t *testing.T) {
	nodes := mustParse(t, "while points < 3:\n    pass\n")

	node := nodes[0].(*While)
	assert.Equal(t, "points < 3", node.Condition)
	require.Len(t, node.Block, 1)
}

func TestParseDefine(t *testing.T) {
	nodes := mustParse(t, "define e = Character(\"Eileen\")\n")
	require.Len(t, nodes, 1)

	init := nodes[0].(*Init)
	assert.Equal(t, 0, init.Priority)
	require.Len(t, init.Block, 1)

	def := init.Block[0].(*Define)
	assert.Equal(t, "store", def.Store)
	assert.Equal(t, "e", def.Name)
	assert.Equal(t, "=", def.Operator)
	assert.Equal(t, `Character("Eileen")`, def.Expr)
}

func TestParseDefineForms(t *testing.T) {
	nodes := mustParse(t, "define 5 config.name = \"Demo\"\n")
	init := nodes[0].(*Init)
	assert.Equal(t, 5, init.Priority)
	def := init.Block[0].(*Define)
	assert.Equal(t, "store.config", def.Store)
	assert.Equal(t, "name", def.Name)

	nodes = mustParse(t, "define d[1] = \"x\"\n")
	def = nodes[0].(*Init).Block[0].(*Define)
	assert.Equal(t, "1", def.Index)

	nodes = mustParse(t, "define l += [1]\n")
	def = nodes[0].(*Init).Block[0].(*Define)
	assert.Equal(t, "+=", def.Operator)
	assert.Equal(t, "[1]", def.Expr)
}

func TestParseDefault(t *testing.T) {
	nodes := mustParse(t, "default points = 0\n")

	init := nodes[0].(*Init)
	def := init.Block[0].(*Default)
	assert.Equal(t, "store", def.Store)
	assert.Equal(t, "points", def.Name)
	assert.Equal(t, "0", def.Expr)
}

func TestParseInitBlock(t *testing.T) {
	src := `init 10:
    $ x = 1
    define y = 2
`
	nodes := mustParse(t, src)
	require.Len(t, nodes, 1)

	init := nodes[0].(*Init)
	assert.Equal(t, 10, init.Priority)
	require.Len(t, init.Block, 2)

	assert.IsType(t, &PythonOneLine{}, init.Block[0])
	// a define inside init is not wrapped a second time
	assert.IsType(t, &Define{}, init.Block[1])
}

func TestParseInitInline(t *testing.T) {
	nodes := mustParse(t, "init $ x = 1\n")

	init := nodes[0].(*Init)
	assert.Equal(t, 0, init.Priority)
	assert.IsType(t, &PythonOneLine{}, init.Block[0])
}

func TestParseInitOffset(t *testing.T) {
	src := `init offset = 2
define x = 1
`
	nodes := mustParse(t, src)
	require.Len(t, nodes, 1)
	assert.Equal(t, 2, nodes[0].(*Init).Priority)

	err := parseErr(t, "init offset = nope\n")
	assert.Contains(t, err.Error(), "expected an integer offset")
}

func TestParsePythonBlock(t *testing.T) {
	src := `python:
    x = 1
    if x:
        x = 2
`
	nodes := mustParse(t, src)

	py := nodes[0].(*Python)
	assert.Equal(t, "store", py.Store)
	assert.False(t, py.Hide)
	assert.Equal(t, "x = 1\nif x:\n    x = 2", py.Code)
}

func TestParsePythonVariants(t *testing.T) {
	nodes := mustParse(t, "python early hide in util:\n    x = 1\n")

	py := nodes[0].(*EarlyPython)
	assert.True(t, py.Hide)
	assert.Equal(t, "store.util", py.Store)
	assert.Equal(t, "x = 1", py.Code)
}

func TestParsePythonOneLine(t *testing.T) {
	nodes := mustParse(t, "$ x = 1\n")
	assert.Equal(t, "x = 1", nodes[0].(*PythonOneLine).Code)
}

func TestParseCall(t *testing.T) {
	nodes := mustParse(t, "call subroutine\n")
	require.Len(t, nodes, 1)
	assert.Equal(t, "subroutine", nodes[0].(*Call).Label)

	nodes = mustParse(t, "call sub from after_sub\n")
	require.Len(t, nodes, 2)
	call := nodes[0].(*Call)
	label := nodes[1].(*Label)
	assert.Equal(t, "after_sub", label.Name)
	assert.Empty(t, label.Block)
	assert.Equal(t, call.Loc, label.Loc)

	nodes = mustParse(t, "call expression target pass (1, mode=\"fast\")\n")
	call = nodes[0].(*Call)
	assert.True(t, call.Expression)
	assert.Equal(t, "target", call.Label)
	require.NotNil(t, call.Arguments)
	require.Len(t, call.Arguments.Arguments, 2)
	assert.Equal(t, "1", call.Arguments.Arguments[0].Value)
	assert.Equal(t, "mode", call.Arguments.Arguments[1].Name)
}

func TestParseJump(t *testing.T) {
	nodes := mustParse(t, "jump start\n")
	jump := nodes[0].(*Jump)
	assert.Equal(t, "start", jump.Target)
	assert.False(t, jump.Expression)

	src := `label chapter:
    jump expression dest
`
	nodes = mustParse(t, src)
	jump = nodes[0].(*Label).Block[0].(*Jump)
	assert.True(t, jump.Expression)
	assert.Equal(t, "dest", jump.Target)
	assert.Equal(t, "chapter", jump.GlobalLabel)
}

func TestParseReturn(t *testing.T) {
	nodes := mustParse(t, "return\n")
	assert.Equal(t, "", nodes[0].(*Return).Expression)

	nodes = mustParse(t, "return 42\n")
	assert.Equal(t, "42", nodes[0].(*Return).Expression)
}

func TestParseScene(t *testing.T) {
	nodes := mustParse(t, "scene bg room\n")
	scene := nodes[0].(*Scene)
	require.NotNil(t, scene.Imspec)
	assert.Equal(t, []string{"bg", "room"}, scene.Imspec.ImageName)

	nodes = mustParse(t, "scene onlayer master\n")
	scene = nodes[0].(*Scene)
	assert.Nil(t, scene.Imspec)
	assert.Equal(t, "master", scene.Layer)
}

func TestParseShowClauses(t *testing.T) {
	nodes := mustParse(t, "show eileen happy at left, right as e onlayer master zorder 2 behind bg\n")

	spec := nodes[0].(*Show).Imspec
	assert.Equal(t, []string{"eileen", "happy"}, spec.ImageName)
	assert.Equal(t, []string{"left", "right"}, spec.AtList)
	assert.Equal(t, "e", spec.Tag)
	assert.Equal(t, "master", spec.Layer)
	assert.Equal(t, "2", spec.Zorder)
	assert.Equal(t, []string{"bg"}, spec.Behind)
}

func TestParseShowExpression(t *testing.T) {
	nodes := mustParse(t, "show expression \"eileen.png\" as e\n")

	spec := nodes[0].(*Show).Imspec
	assert.Equal(t, `"eileen.png"`, spec.Expression)
	assert.Equal(t, "e", spec.Tag)
}

func TestParseShowDuplicateClause(t *testing.T) {
	err := parseErr(t, "show eileen as a as b\n")
	assert.Contains(t, err.Error(), "multiple as clauses are prohibited")
}

func TestParseInlineWith(t *testing.T) {
	nodes := mustParse(t, "show eileen with dissolve\n")
	require.Len(t, nodes, 3)

	opening := nodes[0].(*With)
	assert.Equal(t, "None", opening.Expr)
	assert.Equal(t, "dissolve", opening.Paired)

	assert.IsType(t, &Show{}, nodes[1])

	closing := nodes[2].(*With)
	assert.Equal(t, "dissolve", closing.Expr)
	assert.Equal(t, "", closing.Paired)
}

func TestParseShowWithAndAtl(t *testing.T) {
	src := `show eileen with dissolve:
    xpos 0.5
`
	nodes := mustParse(t, src)
	require.Len(t, nodes, 3)

	show := nodes[1].(*Show)
	require.NotNil(t, show.Atl)
	require.Len(t, show.Atl.Statements, 1)
}

func TestParseHide(t *testing.T) {
	nodes := mustParse(t, "hide eileen with dissolve\n")
	require.Len(t, nodes, 3)
	assert.Equal(t, []string{"eileen"}, nodes[1].(*Hide).Imspec.ImageName)
}

func TestParseWith(t *testing.T) {
	nodes := mustParse(t, "with fade\n")
	w := nodes[0].(*With)
	assert.Equal(t, "fade", w.Expr)
	assert.Equal(t, "", w.Paired)
}

func TestParseImage(t *testing.T) {
	nodes := mustParse(t, "image eileen happy = \"eileen_happy.png\"\n")

	init := nodes[0].(*Init)
	assert.Equal(t, 500, init.Priority)

	img := init.Block[0].(*Image)
	assert.Equal(t, []string{"eileen", "happy"}, img.Name)
	assert.Equal(t, `"eileen_happy.png"`, img.Expr)
	assert.Nil(t, img.Atl)
}

func TestParseImageAtl(t *testing.T) {
	src := `image spinner:
    "spin.png"
    rotate 360
`
	nodes := mustParse(t, src)
	img := nodes[0].(*Init).Block[0].(*Image)
	assert.Equal(t, "", img.Expr)
	require.NotNil(t, img.Atl)
}

func TestParseImageNameDash(t *testing.T) {
	err := parseErr(t, "image -bad = \"x.png\"\n")
	assert.Contains(t, err.Error(), "may not begin with a '-'")
}

func TestParseTransform(t *testing.T) {
	src := `transform 10 box.slide(x=0.3):
    linear 0.5 xpos x
`
	nodes := mustParse(t, src)

	init := nodes[0].(*Init)
	assert.Equal(t, 10, init.Priority)

	tr := init.Block[0].(*Transform)
	assert.Equal(t, "store.box", tr.Store)
	assert.Equal(t, "slide", tr.Name)
	require.NotNil(t, tr.Parameters)
	require.NotNil(t, tr.Atl)
}

func TestParseScreen(t *testing.T) {
	src := `screen hello():
    text "Hi"
    vbox:
        text "there"
`
	nodes := mustParse(t, src)

	init := nodes[0].(*Init)
	assert.Equal(t, -500, init.Priority)

	screen := init.Block[0].(*Screen)
	assert.Equal(t, "hello", screen.Name)
	assert.Equal(t, "text \"Hi\"\nvbox:\n    text \"there\"", screen.Code)
}

func TestParseStyle(t *testing.T) {
	nodes := mustParse(t, "style big is default\n")

	style := nodes[0].(*Init).Block[0].(*Style)
	assert.Equal(t, "big", style.Name)
	assert.Equal(t, "default", style.Parent)

	src := `style big:
    clear
    take small
    variant "touch"
    del size
    color "#fff"
`
	nodes = mustParse(t, src)
	style = nodes[0].(*Init).Block[0].(*Style)
	assert.True(t, style.Clear)
	assert.Equal(t, "small", style.Take)
	assert.Equal(t, `"touch"`, style.Variant)
	assert.Equal(t, []string{"size"}, style.Delattr)
	require.Len(t, style.Properties, 1)
	assert.Equal(t, StyleProperty{Name: "color", Value: `"#fff"`}, style.Properties[0])
}

func TestParseStyleErrors(t *testing.T) {
	err := parseErr(t, "style big fake 1\n")
	assert.Contains(t, err.Error(), "style property fake is not known")

	// Sound properties exist only for the hover and activate states.
	err = parseErr(t, "style button sound \"click.ogg\"\n")
	assert.Contains(t, err.Error(), "style property sound is not known")

	nodes := mustParse(t, "style button hover_sound \"click.ogg\"\n")
	assert.IsType(t, &Init{}, nodes[0])

	err = parseErr(t, "style big:\n    size 1\n    size 2\n")
	assert.Contains(t, err.Error(), "style property size appears twice")
}

func TestParseBuiltinStatements(t *testing.T) {
	nodes := mustParse(t, "play music \"town.ogg\" fadein 0.5\n")

	us := nodes[0].(*UserStatement)
	assert.Equal(t, "play music \"town.ogg\" fadein 0.5", us.Line)
	assert.Empty(t, us.Block)
	assert.Nil(t, us.CodeBlock)

	nodes = mustParse(t, "voice \"line_001\"\n")
	assert.Equal(t, "voice \"line_001\"", nodes[0].(*UserStatement).Line)

	nodes = mustParse(t, "play audio \"click.ogg\"\n")
	assert.Equal(t, "play audio \"click.ogg\"", nodes[0].(*UserStatement).Line)
}

func TestParseShowScreenIsUserStatement(t *testing.T) {
	nodes := mustParse(t, "show screen hud\n")
	assert.IsType(t, &UserStatement{}, nodes[0])

	nodes = mustParse(t, "show eileen\n")
	assert.IsType(t, &Show{}, nodes[0])
}

func TestParseCustomStatements(t *testing.T) {
	opts := Options{Statements: []CustomStatement{
		{Words: "camera", Block: NoBlock},
		{Words: "layeredimage", Block: RequiredBlock},
		{Words: "narrate", Block: ScriptBlock},
	}}

	src := `camera at zoom
layeredimage eileen:
    attribute happy
narrate:
    "Inside"
`
	nodes, err := ParseWithOptions("script.rpy", []byte(src), opts)
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	camera := nodes[0].(*UserStatement)
	assert.Equal(t, "camera at zoom", camera.Line)

	li := nodes[1].(*UserStatement)
	require.Len(t, li.Block, 1)
	assert.Equal(t, "attribute happy", li.Block[0].Text)
	assert.Nil(t, li.CodeBlock)

	narrate := nodes[2].(*UserStatement)
	require.Len(t, narrate.CodeBlock, 1)
	assert.IsType(t, &Say{}, narrate.CodeBlock[0])
}

func TestParseCustomStatementBlockModes(t *testing.T) {
	opts := Options{Statements: []CustomStatement{{Words: "camera", Block: NoBlock}}}

	src := `camera at zoom
    stray line
`
	_, err := ParseWithOptions("script.rpy", []byte(src), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not expect a block")
}

func TestParseUnexpectedBlock(t *testing.T) {
	err := parseErr(t, "jump start\n    stray\n")

	var indentErr *IndentError
	require.ErrorAs(t, err, &indentErr)
	assert.Contains(t, err.Error(), "does not expect a block")
	assert.Equal(t, 2, indentErr.Loc.Line)
}

func TestParseInitOffsetScopedToFile(t *testing.T) {
	opts := Options{InitOffset: 3}

	nodes, err := ParseWithOptions("script.rpy", []byte("define x = 1\n"), opts)
	require.NoError(t, err)
	assert.Equal(t, 3, nodes[0].(*Init).Priority)
}

func TestParseRenPyFile(t *testing.T) {
	src := `"""renpy
label start:
"""
"Hello from the host file."
return
`
	nodes, err := Parse("script_ren.py", []byte(src))
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	label := nodes[0].(*Label)
	assert.Equal(t, "start", label.Name)
	require.Len(t, label.Block, 2)
	assert.IsType(t, &Say{}, label.Block[0])
	assert.IsType(t, &Return{}, label.Block[1])
}

func TestParseEmptyFile(t *testing.T) {
	nodes := mustParse(t, "")
	assert.NotNil(t, nodes)
	assert.Empty(t, nodes)
}
