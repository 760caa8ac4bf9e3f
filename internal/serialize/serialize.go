// Package serialize renders a node.Tree to its XML plan form (spec §4.2,
// §6 "XML plan"). Deliberately hand-rolled rather than built on
// encoding/xml: the attribute-exclusion policy, the exact
// `& < > " '` escape order, and the no-alphabetization/insertion-order
// attribute rule are bespoke and not what Marshal produces (see
// DESIGN.md's component-2 entry for the full justification).
package serialize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/evmts/smithers/internal/node"
)

// excludedProps never appear as XML attributes regardless of value,
// per spec §4.2's attribute policy.
var excludedProps = map[string]bool{
	"children":   true,
	"value":      true,
	"onFinished": true,
	"onError":    true,
	"_mockMode":  true,
}

// Serialize renders id and its subtree to XML. TEXT nodes render as
// escaped text; ROOT renders its children joined by newline with no
// wrapping tag; every other node renders as `<tag attrs...>...</tag>` or
// a self-closing `<tag attrs... />` when childless.
func Serialize(t *node.Tree, id node.ID) string {
	var b strings.Builder
	writeNode(&b, t, id, 0)
	return b.String()
}

// WithPaths renders the subtree the same way but additionally emits a
// `path="…"` attribute (first, per spec §4.5 "an added path attribute on
// every element") computed against the given path table, used when a
// node's plan children are handed to the render_node tool (spec §4.8).
func WithPaths(t *node.Tree, id node.ID) string {
	var b strings.Builder
	writeNodeWithPaths(&b, t, id, 0, t)
	return b.String()
}

func writeNode(b *strings.Builder, t *node.Tree, id node.ID, depth int) {
	n := t.Get(id)

	if n.Type == node.TypeText {
		b.WriteString(escapeText(n.Value))
		return
	}

	if n.Type == node.TypeRoot {
		writeChildrenJoined(b, t, n.Children, depth)
		return
	}

	tag := strings.ToLower(string(n.Type))
	attrs := renderAttrs(n.Props)

	if len(n.Children) == 0 {
		b.WriteString(indent(depth))
		b.WriteString("<")
		b.WriteString(tag)
		b.WriteString(attrs)
		b.WriteString(" />")
		return
	}

	b.WriteString(indent(depth))
	b.WriteString("<")
	b.WriteString(tag)
	b.WriteString(attrs)
	b.WriteString(">\n")
	writeChildren(b, t, n.Children, depth+1)
	b.WriteString("\n")
	b.WriteString(indent(depth))
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteString(">")
}

func writeNodeWithPaths(b *strings.Builder, t *node.Tree, id node.ID, depth int, full *node.Tree) {
	n := t.Get(id)

	if n.Type == node.TypeText {
		b.WriteString(escapeText(n.Value))
		return
	}

	if n.Type == node.TypeRoot {
		for i, c := range n.Children {
			if i > 0 {
				b.WriteString("\n")
			}
			writeNodeWithPaths(b, t, c, depth, full)
		}
		return
	}

	tag := strings.ToLower(string(n.Type))
	path := full.Path(id)
	attrs := ` path="` + escapeAttr(path) + `"` + renderAttrs(n.Props)

	if len(n.Children) == 0 {
		b.WriteString(indent(depth))
		b.WriteString("<")
		b.WriteString(tag)
		b.WriteString(attrs)
		b.WriteString(" />")
		return
	}

	b.WriteString(indent(depth))
	b.WriteString("<")
	b.WriteString(tag)
	b.WriteString(attrs)
	b.WriteString(">\n")
	for i, c := range n.Children {
		if i > 0 {
			b.WriteString("\n")
		}
		writeNodeWithPaths(b, t, c, depth+1, full)
	}
	b.WriteString("\n")
	b.WriteString(indent(depth))
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteString(">")
}

// writeChildren preserves interleaved TEXT/element whitespace (spec
// §4.2 "Whitespace preservation") by never trimming TEXT chunk contents
// and separating element siblings with newlines but leaving TEXT
// adjacency exactly as authored.
func writeChildren(b *strings.Builder, t *node.Tree, children []node.ID, depth int) {
	for i, c := range children {
		child := t.Get(c)
		if child.Type != node.TypeText && i > 0 {
			b.WriteString("\n")
		}
		writeNode(b, t, c, depth)
	}
}

func writeChildrenJoined(b *strings.Builder, t *node.Tree, children []node.ID, depth int) {
	for i, c := range children {
		if i > 0 {
			b.WriteString("\n")
		}
		writeNode(b, t, c, depth)
	}
}

// renderAttrs renders every eligible prop as ` key="value"`, each with a
// leading space, in source/insertion order (spec §4.2 "Ordering": "no
// alphabetization").
func renderAttrs(props []node.Prop) string {
	var b strings.Builder
	for _, p := range props {
		if excludedProps[p.Key] || strings.HasPrefix(p.Key, "_") {
			continue
		}
		if p.Value == nil {
			continue
		}
		if isCallable(p.Value) {
			continue
		}
		b.WriteString(" ")
		b.WriteString(p.Key)
		b.WriteString(`="`)
		b.WriteString(escapeAttr(renderValue(p.Value)))
		b.WriteString(`"`)
	}
	return b.String()
}

func isCallable(v any) bool {
	_, ok := v.(func())
	return ok
}

func renderValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", x) // arrays/objects: caller is expected to pass pre-JSON-encoded strings for complex props.
	}
}

// escapeAttr and escapeText both apply the 5-entity escape in the exact
// order mandated by spec §4.2 and §6: & first, to avoid double-encoding
// any of the other four entities' replacement text.
func escapeAttr(s string) string { return escape(s) }
func escapeText(s string) string { return escape(s) }

func escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	s = strings.ReplaceAll(s, "'", "&#39;")
	return s
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}
