// Package dsl is the Go-native authoring surface for Smithers plans (spec
// §4.1's "UI library" side of the host contract): instead of JSX, a plan is
// built with plain Go function calls that return loader.Element values,
// which internal/loader.Materialize then drives through the same
// CreateInstance/AppendChild host ops a JSX reconciler would.
//
// Element construction is grounded on other_examples' TroutSoftware-rx
// render.go: Node.AddAttr's dedup-by-key-in-place semantics (set an
// attribute that already exists in place rather than appending a
// duplicate) is reproduced here as With, and AddChildren's simple
// append-and-return-self chaining is the model for how these constructors
// compose — adapted from *Node method chaining to plain value-returning
// functions since loader.Element carries no identity rx.Node's Entity
// embedding provides.
package dsl

import (
	"github.com/evmts/smithers/internal/loader"
	"github.com/evmts/smithers/internal/node"
)

// Attr is one ordered (key, value) authoring attribute, aliased to
// loader.ElementProp so DSL callers never need to import internal/loader
// directly for the common case.
type Attr = loader.ElementProp

// A builds a single Attr; short name because plans list many of these.
func A(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// El builds a generic element of the given node type. The per-type
// constructors below (Claude, Phase, Step, ...) are thin wrappers over this
// one, matching spec §3's fixed node.Type vocabulary.
func El(typ node.Type, attrs []Attr, children ...loader.Element) loader.Element {
	return loader.Element{Type: string(typ), Props: attrs, Children: children}
}

// Text builds a TEXT leaf, the DSL's equivalent of a JSX string child.
func Text(s string) loader.Element {
	return loader.Element{Type: string(node.TypeText), Text: s}
}

// With sets attr key on e, replacing any existing value for that key in
// place rather than appending a duplicate — the dedup rule
// other_examples' rx.Node.AddAttr enforces for repeated attribute names.
func With(e loader.Element, key string, value any) loader.Element {
	for i := range e.Props {
		if e.Props[i].Key == key {
			e.Props[i].Value = value
			return e
		}
	}
	e.Props = append(e.Props, Attr{Key: key, Value: value})
	return e
}

// Render materializes a DSL-built root element into a fresh node.Tree,
// exactly as internal/loader.Materialize does for a file-sourced Element —
// the DSL is simply another Loader-shaped producer of the same Element
// value, not a parallel tree-construction path.
func Render(root loader.Element) *node.Tree {
	return loader.Materialize(root)
}

// The constructors below cover spec §3's node.Type vocabulary. Each takes
// its ordered attrs first (nil is fine for an element with none) and any
// number of children last, mirroring hyperscript-style builders while
// keeping attribute order authoritative per spec §4.2 "Ordering".

func Claude(attrs []Attr, children ...loader.Element) loader.Element {
	return El(node.TypeClaude, attrs, children...)
}

func ClaudeAPI(attrs []Attr, children ...loader.Element) loader.Element {
	return El(node.TypeClaudeAPI, attrs, children...)
}

func ClaudeCLI(attrs []Attr, children ...loader.Element) loader.Element {
	return El(node.TypeClaudeCLI, attrs, children...)
}

func ClaudeProvider(attrs []Attr, children ...loader.Element) loader.Element {
	return El(node.TypeClaudeProvider, attrs, children...)
}

func Subagent(attrs []Attr, children ...loader.Element) loader.Element {
	return El(node.TypeSubagent, attrs, children...)
}

func Phase(attrs []Attr, children ...loader.Element) loader.Element {
	return El(node.TypePhase, attrs, children...)
}

func Step(attrs []Attr, children ...loader.Element) loader.Element {
	return El(node.TypeStep, attrs, children...)
}

func Persona(text string) loader.Element {
	return El(node.TypePersona, nil, Text(text))
}

func Constraints(attrs []Attr, children ...loader.Element) loader.Element {
	return El(node.TypeConstraints, attrs, children...)
}

func OutputFormat(attrs []Attr, children ...loader.Element) loader.Element {
	return El(node.TypeOutputFormat, attrs, children...)
}

func Task(text string) loader.Element {
	return El(node.TypeTask, nil, Text(text))
}

func Stop(attrs []Attr) loader.Element {
	return El(node.TypeStop, attrs)
}

func Human(attrs []Attr, children ...loader.Element) loader.Element {
	return El(node.TypeHuman, attrs, children...)
}

func File(attrs []Attr, children ...loader.Element) loader.Element {
	return El(node.TypeFile, attrs, children...)
}

func Worktree(attrs []Attr, children ...loader.Element) loader.Element {
	return El(node.TypeWorktree, attrs, children...)
}

func Output(attrs []Attr, children ...loader.Element) loader.Element {
	return El(node.TypeOutput, attrs, children...)
}
