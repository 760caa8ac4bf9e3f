// Package executor implements the three agent executor variants selected
// by node type (spec §4.5): claude (Agent SDK mode), claude-api (direct
// Anthropic Messages API with a manual tool loop), and claude-cli (argv
// subprocess spawn). All three share prompt construction so the same
// persona/plan/system rules apply regardless of which transport runs the
// turn.
package executor

import (
	"strings"

	"github.com/evmts/smithers/internal/node"
	"github.com/evmts/smithers/internal/serialize"
)

// Prompt is the fully assembled input to an agent call (spec §4.5 "Prompt
// construction").
type Prompt struct {
	System string
	Body   string
	// PlanXML is non-empty when the node has plan children; it is handed
	// to the agent alongside the render_node tool (spec §4.8).
	PlanXML string
}

// BuildPrompt implements spec §4.5 steps 1-3.
func BuildPrompt(t *node.Tree, n *node.Node) Prompt {
	var p Prompt

	if hasPlanChildren(t, n) {
		var body strings.Builder
		for _, c := range n.Children {
			child := t.Get(c)
			if child.Type == node.TypeText {
				body.WriteString(child.Value)
			}
		}
		p.Body = body.String()
		p.PlanXML = planXML(t, n)
	} else {
		p.Body = t.FlattenText(n.ID)
	}

	p.System = buildSystem(t, n, p.PlanXML)
	return p
}

// hasPlanChildren reports whether n has any non-TEXT descendant among its
// immediate children, which splits prompt construction into body+plan
// rather than flattened text (spec §4.5 step 1).
func hasPlanChildren(t *node.Tree, n *node.Node) bool {
	for _, c := range n.Children {
		if t.Get(c).Type != node.TypeText {
			return true
		}
	}
	return false
}

// planXML serializes n's element children with path attributes, per §4.3,
// for the render_node tool addendum (spec §4.5 step 1, §4.8).
func planXML(t *node.Tree, n *node.Node) string {
	var b strings.Builder
	first := true
	for _, c := range n.Children {
		child := t.Get(c)
		if child.Type == node.TypeText {
			continue
		}
		if !first {
			b.WriteString("\n")
		}
		first = false
		b.WriteString(serialize.WithPaths(t, c))
	}
	return b.String()
}

func buildSystem(t *node.Tree, n *node.Node, planXML string) string {
	var parts []string

	if sys := n.PropString("system", ""); sys != "" {
		parts = append(parts, sys)
	}
	if sys := n.PropString("systemPrompt", ""); sys != "" {
		parts = append(parts, sys)
	}

	for _, c := range n.Children {
		child := t.Get(c)
		if child.Type != node.TypePersona {
			continue
		}
		role := child.PropString("role", "")
		body := t.FlattenText(child.ID)
		if role != "" {
			parts = append(parts, role+": "+body)
		} else {
			parts = append(parts, body)
		}
	}

	if planXML != "" {
		parts = append(parts, "A plan is attached below. Invoke the render_node tool with a node_path to execute a specific plan node.\n\n"+planXML)
	}

	return strings.Join(parts, "\n\n")
}
