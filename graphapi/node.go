package graphapi

import "strings"

// GraphNode is a single node of a UI workflow.
type GraphNode struct {
	ID           int    `json:"id"`
	Type         string `json:"type"`
	Order        int    `json:"order"`
	Mode         int    `json:"mode"`
	Title        string `json:"title"`
	WidgetValues Value  `json:"widgets_values"`
	Inputs       []Slot `json:"inputs,omitempty"`
	Outputs      []Slot `json:"outputs,omitempty"`
	scope        linkScope
}

// IsVirtual reports whether the node only exists in the frontend.
func (n *GraphNode) IsVirtual() bool {
	switch n.Type {
	case "PrimitiveNode", "Reroute", "Note", "MarkdownNote":
		return true
	}
	return false
}

// IsMuted reports whether the node is muted (mode 2) or bypassed (mode 4).
func (n *GraphNode) IsMuted() bool {
	return n.Mode == 2 || n.Mode == 4
}

// Widget returns the widget value at index. Workflows that store widget values as an object
// have no positional widgets.
func (n *GraphNode) Widget(index int) (Value, bool) {
	items, ok := n.WidgetValues.List()
	if !ok || index < 0 || index >= len(items) {
		return Value{}, false
	}
	return items[index], true
}

// NamedWidget returns a widget from workflows that store widget values as an object.
func (n *GraphNode) NamedWidget(name string) (Value, bool) {
	m, ok := n.WidgetValues.Mapping()
	if !ok {
		return Value{}, false
	}
	return m.Get(name)
}

func (n *GraphNode) GetInputWithName(name string) *Slot {
	for i, s := range n.Inputs {
		if s.Name == name {
			return &n.Inputs[i]
		}
	}
	return nil
}

// GetNodeForInput returns the node feeding the input slot at slotIndex.
func (n *GraphNode) GetNodeForInput(slotIndex int) *GraphNode {
	if n.scope == nil || slotIndex < 0 || slotIndex >= len(n.Inputs) {
		return nil
	}
	slot := n.Inputs[slotIndex]
	if slot.Link == nil {
		return nil
	}
	l := n.scope.GetLinkById(*slot.Link)
	if l == nil {
		return nil
	}
	return n.scope.GetNodeById(l.OriginID)
}

// OutputTargets returns the input slots that the node's outputs feed, following each
// output link once. Reroutes are passed through.
func (n *GraphNode) OutputTargets() []*Slot {
	return n.outputTargets(map[int]bool{})
}

func (n *GraphNode) outputTargets(seen map[int]bool) []*Slot {
	retv := make([]*Slot, 0)
	if n.scope == nil || seen[n.ID] {
		return retv
	}
	seen[n.ID] = true
	for _, out := range n.Outputs {
		if out.Links == nil {
			continue
		}
		for _, id := range *out.Links {
			l := n.scope.GetLinkById(id)
			if l == nil {
				continue
			}
			target := n.scope.GetNodeById(l.TargetID)
			if target == nil {
				continue
			}
			if target.Type == "Reroute" {
				retv = append(retv, target.outputTargets(seen)...)
				continue
			}
			if l.TargetSlot >= 0 && l.TargetSlot < len(target.Inputs) {
				retv = append(retv, &target.Inputs[l.TargetSlot])
			}
		}
	}
	return retv
}

// TypeContains does a case-insensitive substring match on the node type.
func (n *GraphNode) TypeContains(sub string) bool {
	return strings.Contains(strings.ToLower(n.Type), strings.ToLower(sub))
}
