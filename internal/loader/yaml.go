package loader

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLLoader is a concrete Loader implementation reading a plan expressed
// as YAML (supplementing spec §6's "OUT OF SCOPE" MDX/TSX loader with a
// loader this repo can actually ship, since a file-based entry point needs
// at least one concrete Loader to run against). Props are written as a
// sequence of single-key maps rather than one mapping, so authoring order
// survives (spec §4.2 "Ordering") the way internal/config's yaml.v3 struct
// tags can't preserve map key order.
//
// Example:
//
//	type: claude-provider
//	props:
//	  - requestsPerMinute: 10
//	children:
//	  - type: claude
//	    props:
//	      - model: claude-sonnet-4-5-20250929
//	    children:
//	      - type: persona
//	        text: You are a careful reviewer.
type YAMLLoader struct{}

var _ Loader = YAMLLoader{}

// Load implements Loader.
func (YAMLLoader) Load(ctx context.Context, path string) (Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Element{}, &Error{Kind: KindLoader, Path: path, Message: err.Error(), Cause: err}
	}

	var ye yamlElement
	if err := yaml.Unmarshal(data, &ye); err != nil {
		return Element{}, &Error{Kind: KindSyntax, Path: path, Message: err.Error(), Cause: err}
	}
	if ye.Type == "" && ye.Text == "" {
		return Element{}, &Error{Kind: KindInvalidElement, Path: path, Message: "root element is missing a type"}
	}
	return ye.toElement(), nil
}

type yamlElement struct {
	Type     string      `yaml:"type"`
	Text     string      `yaml:"text,omitempty"`
	Props    []yamlProp  `yaml:"props,omitempty"`
	Children []yamlElement `yaml:"children,omitempty"`
}

func (e yamlElement) toElement() Element {
	el := Element{Type: e.Type, Text: e.Text}
	for _, p := range e.Props {
		el.Props = append(el.Props, ElementProp{Key: p.Key, Value: p.Value})
	}
	for _, c := range e.Children {
		el.Children = append(el.Children, c.toElement())
	}
	return el
}

// yamlProp decodes one `- key: value` sequence item into an ordered
// (key, value) pair, the YAML equivalent of ElementProp.
type yamlProp struct {
	Key   string
	Value any
}

func (p *yamlProp) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode || len(value.Content) != 2 {
		return fmt.Errorf("loader: each props entry must be a single-key mapping, e.g. \"- model: foo\"")
	}
	p.Key = value.Content[0].Value
	return value.Content[1].Decode(&p.Value)
}
