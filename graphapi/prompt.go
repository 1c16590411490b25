package graphapi

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotObject    = errors.New("prompt is not a JSON object")
	ErrNodeNotFound = errors.New("node not found in prompt")
)

// Prompt is the API form of a workflow, as ComfyUI writes it to the "prompt" chunk of its
// outputs: a mapping of node id to {class_type, inputs, _meta}. Node order follows the
// document.
type Prompt struct {
	root *Mapping
}

// PromptNode is a view over one entry of a Prompt.
type PromptNode struct {
	ID  string
	raw *Mapping
}

// NewPromptFromJSON decodes an API prompt. Entries that are not objects are kept in the
// document but never returned as nodes.
func NewPromptFromJSON(data []byte) (*Prompt, error) {
	v, err := ParseValue(data)
	if err != nil {
		return nil, err
	}
	return NewPromptFromValue(v)
}

func NewPromptFromValue(v Value) (*Prompt, error) {
	m, ok := v.Mapping()
	if !ok {
		return nil, ErrNotObject
	}
	return &Prompt{root: m}, nil
}

// Root exposes the underlying mapping.
func (p *Prompt) Root() *Mapping {
	return p.root
}

// Nodes returns every node record in document order.
func (p *Prompt) Nodes() []PromptNode {
	retv := make([]PromptNode, 0, p.root.Len())
	for _, k := range p.root.Keys() {
		if n, ok := p.GetNodeById(k); ok {
			retv = append(retv, n)
		}
	}
	return retv
}

func (p *Prompt) GetNodeById(id string) (PromptNode, bool) {
	v, ok := p.root.Get(id)
	if !ok {
		return PromptNode{}, false
	}
	m, ok := v.Mapping()
	if !ok {
		return PromptNode{}, false
	}
	return PromptNode{ID: id, raw: m}, true
}

// Resolve follows ref one hop. It only succeeds when the target node's class is accepted by
// resolvable, in which case the target's literal "value" input is returned. The result is
// never followed further.
func (p *Prompt) Resolve(ref Reference, resolvable func(classType string) bool) (Value, bool) {
	target, ok := p.GetNodeById(ref.NodeID)
	if !ok || resolvable == nil || !resolvable(target.ClassType()) {
		return Value{}, false
	}
	v, ok := target.Input("value")
	if !ok || v.IsReference() {
		return Value{}, false
	}
	return v, true
}

func (p *Prompt) MarshalJSON() ([]byte, error) {
	return p.root.MarshalJSON()
}

func (p *Prompt) UnmarshalJSON(b []byte) error {
	np, err := NewPromptFromJSON(b)
	if err != nil {
		return err
	}
	*p = *np
	return nil
}

// PromptRole selects which saved-prompt title StampText writes.
type PromptRole string

const (
	RolePositive PromptRole = "positive"
	RoleNegative PromptRole = "negative"
)

func ParsePromptRole(s string) (PromptRole, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "pos":
		return RolePositive, nil
	case "negative", "neg":
		return RoleNegative, nil
	}
	return "", fmt.Errorf("unknown prompt role %q", s)
}

// SavedTitle is the _meta.title a stamped node receives.
func (r PromptRole) SavedTitle() string {
	if r == RoleNegative {
		return "Negative Prompt (Saved)"
	}
	return "Positive Prompt (Saved)"
}

// StampText replaces the text input of the node with the given id by the literal text, and
// retitles it so later readers classify it by role. A linked text input is overwritten.
func (p *Prompt) StampText(nodeID string, text string, role PromptRole) error {
	node, ok := p.GetNodeById(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	inputs, ok := node.inputsMapping()
	if !ok {
		inputs = NewMapping()
		node.raw.Set("inputs", MappingValue(inputs))
	}
	inputs.Set("text", StringValue(text))

	meta, ok := node.metaMapping()
	if !ok {
		meta = NewMapping()
		node.raw.Set("_meta", MappingValue(meta))
	}
	meta.Set("title", StringValue(role.SavedTitle()))
	return nil
}

// ClassType returns the node's class_type, or "" when absent.
func (n PromptNode) ClassType() string {
	v, _ := n.raw.Get("class_type")
	s, _ := v.AsString()
	return s
}

// Title returns _meta.title, or "" when absent.
func (n PromptNode) Title() string {
	meta, ok := n.metaMapping()
	if !ok {
		return ""
	}
	v, _ := meta.Get("title")
	s, _ := v.AsString()
	return s
}

// Inputs returns the input mapping. A node without inputs yields an empty mapping.
func (n PromptNode) Inputs() *Mapping {
	if m, ok := n.inputsMapping(); ok {
		return m
	}
	return NewMapping()
}

func (n PromptNode) Input(name string) (Value, bool) {
	return n.Inputs().Get(name)
}

func (n PromptNode) inputsMapping() (*Mapping, bool) {
	v, ok := n.raw.Get("inputs")
	if !ok {
		return nil, false
	}
	return v.Mapping()
}

func (n PromptNode) metaMapping() (*Mapping, bool) {
	v, ok := n.raw.Get("_meta")
	if !ok {
		return nil, false
	}
	return v.Mapping()
}
