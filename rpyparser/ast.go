package rpyparser

// Node is a parsed script statement.
type Node interface {
	Position() Loc
}

// ParamKind classifies how a parameter may be bound at call time.
type ParamKind int

const (
	// ParamPositionalOrKeyword is the default binding.
	ParamPositionalOrKeyword ParamKind = iota
	// ParamPositionalOnly marks parameters declared before a slash.
	ParamPositionalOnly
	// ParamKeywordOnly marks parameters declared after a star.
	ParamKeywordOnly
	// ParamVarPositional is a *args catch-all.
	ParamVarPositional
	// ParamVarKeyword is a **kwargs catch-all.
	ParamVarKeyword
)

// Parameter is a single entry of a parameter signature, in declaration
// order.
type Parameter struct {
	Name       string
	Kind       ParamKind
	Default    string
	HasDefault bool
}

// ParameterSignature is the parenthesised parameter list of a label,
// transform or screen.
type ParameterSignature struct {
	Parameters []Parameter
}

// Argument is one entry of a call-site argument list. Star is 0 for a
// plain argument, 1 for *expr and 2 for **expr.
type Argument struct {
	Name  string
	Value string
	Star  int
}

// ArgumentInfo is a call-site argument list in source order.
type ArgumentInfo struct {
	Arguments []Argument
}

// ImageSpecifier names a displayable and its placement clauses, as used
// by scene, show and hide.
type ImageSpecifier struct {
	ImageName  []string
	Expression string
	Tag        string
	AtList     []string
	Layer      string
	Zorder     string
	Behind     []string
}

// Say is a line of dialogue or narration.
type Say struct {
	Loc                 Loc
	Who                 string
	What                string
	With                string
	Interact            bool
	Attributes          []string
	TemporaryAttributes []string
	Arguments           *ArgumentInfo
	Identifier          string
}

func (n *Say) Position() Loc { return n.Loc }

// Label declares a jump target with an optional parameter signature and
// a block of statements.
type Label struct {
	Loc        Loc
	Name       string
	Parameters *ParameterSignature
	Hide       bool
	Block      []Node
	// Start is the first node executed under this label, used when a
	// menu statement is labelled.
	Start Node
}

func (n *Label) Position() Loc { return n.Loc }

// MenuItem is one entry of a menu: a caption when Block is nil, a choice
// otherwise.
type MenuItem struct {
	Label     string
	Condition string
	Block     []Node
	Arguments *ArgumentInfo
}

// Menu presents in-game choices.
type Menu struct {
	Loc        Loc
	Items      []MenuItem
	Set        string
	With       string
	HasCaption bool
	Arguments  *ArgumentInfo
	Start      Node
}

func (n *Menu) Position() Loc { return n.Loc }

// IfEntry is one arm of an if statement; an empty condition is the else
// arm.
type IfEntry struct {
	Condition string
	Block     []Node
}

// If selects between blocks on host-language conditions.
type If struct {
	Loc     Loc
	Entries []IfEntry
}

func (n *If) Position() Loc { return n.Loc }

// While repeats its block as long as the condition holds.
type While struct {
	Loc       Loc
	Condition string
	Block     []Node
}

func (n *While) Position() Loc { return n.Loc }

// StyleProperty is one property assignment of a style statement.
type StyleProperty struct {
	Name  string
	Value string
}

// Style declares or modifies a named style.
type Style struct {
	Loc        Loc
	Name       string
	Parent     string
	Clear      bool
	Take       string
	Delattr    []string
	Variant    string
	Properties []StyleProperty
}

func (n *Style) Position() Loc { return n.Loc }

// Init runs its block at initialization time with the given priority.
type Init struct {
	Loc      Loc
	Block    []Node
	Priority int
}

func (n *Init) Position() Loc { return n.Loc }

// Define assigns a value to a store variable at init time.
type Define struct {
	Loc      Loc
	Store    string
	Name     string
	Index    string
	Operator string
	Expr     string
}

func (n *Define) Position() Loc { return n.Loc }

// Default supplies a store variable's value when the game starts if the
// variable is not already set.
type Default struct {
	Loc   Loc
	Store string
	Name  string
	Expr  string
}

func (n *Default) Position() Loc { return n.Loc }

// Call transfers control to a label, pushing the return site.
type Call struct {
	Loc         Loc
	Label       string
	Expression  bool
	Arguments   *ArgumentInfo
	GlobalLabel string
}

func (n *Call) Position() Loc { return n.Loc }

// Jump transfers control to a label without pushing the return site.
type Jump struct {
	Loc         Loc
	Target      string
	Expression  bool
	GlobalLabel string
}

func (n *Jump) Position() Loc { return n.Loc }

// Return pops the call stack, optionally yielding a value.
type Return struct {
	Loc        Loc
	Expression string
}

func (n *Return) Position() Loc { return n.Loc }

// Pass does nothing.
type Pass struct {
	Loc Loc
}

func (n *Pass) Position() Loc { return n.Loc }

// Python embeds a block of host-language code.
type Python struct {
	Loc   Loc
	Code  string
	Store string
	Hide  bool
}

func (n *Python) Position() Loc { return n.Loc }

// EarlyPython is a python block hoisted to the early init phase.
type EarlyPython struct {
	Loc   Loc
	Code  string
	Store string
	Hide  bool
}

func (n *EarlyPython) Position() Loc { return n.Loc }

// PythonOneLine embeds a single line of host-language code.
type PythonOneLine struct {
	Loc  Loc
	Code string
}

func (n *PythonOneLine) Position() Loc { return n.Loc }

// Scene clears a layer and optionally shows an image on it.
type Scene struct {
	Loc    Loc
	Imspec *ImageSpecifier
	Layer  string
	Atl    *RawBlock
}

func (n *Scene) Position() Loc { return n.Loc }

// Show displays an image.
type Show struct {
	Loc    Loc
	Imspec *ImageSpecifier
	Atl    *RawBlock
}

func (n *Show) Position() Loc { return n.Loc }

// Hide removes an image.
type Hide struct {
	Loc    Loc
	Imspec *ImageSpecifier
}

func (n *Hide) Position() Loc { return n.Loc }

// With applies a transition. Paired carries the matching transition of a
// desugared inline with clause.
type With struct {
	Loc    Loc
	Expr   string
	Paired string
}

func (n *With) Position() Loc { return n.Loc }

// Image binds an image name to an expression or an ATL block.
type Image struct {
	Loc  Loc
	Name []string
	Expr string
	Atl  *RawBlock
}

func (n *Image) Position() Loc { return n.Loc }

// Transform declares a named transform built from an ATL block.
type Transform struct {
	Loc        Loc
	Store      string
	Name       string
	Parameters *ParameterSignature
	Atl        *RawBlock
}

func (n *Transform) Position() Loc { return n.Loc }

// Screen declares a named screen; its body is kept as verbatim source.
type Screen struct {
	Loc        Loc
	Name       string
	Parameters *ParameterSignature
	Code       string
}

func (n *Screen) Position() Loc { return n.Loc }

// UserStatement is a registered custom statement kept as verbatim text.
type UserStatement struct {
	Loc       Loc
	Line      string
	Block     []Block
	CodeBlock []Node
}

func (n *UserStatement) Position() Loc { return n.Loc }
