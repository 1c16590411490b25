package graphapi

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// Graph is the UI form of a workflow (the "workflow" chunk): a list of nodes with their
// widget values, plus the links between their slots.
type Graph struct {
	Nodes         []*GraphNode                   `json:"nodes"`
	Links         []*Link                        `json:"links"`
	LastNodeID    int                            `json:"last_node_id"`
	LastLinkID    int                            `json:"last_link_id"`
	Version       float32                        `json:"version"`
	Definitions   *GraphDefinitions              `json:"definitions,omitempty"`
	NodesByID     map[int]*GraphNode             `json:"-"`
	LinksByID     map[int]*Link                  `json:"-"`
	SubgraphsByID map[string]*SubgraphDefinition `json:"-"`
}

func (t *Graph) UnmarshalJSON(b []byte) error {
	// Create an alias type to avoid recursive call to UnmarshalJSON
	type Alias Graph

	alias := &Alias{}

	if err := json.Unmarshal(b, alias); err != nil {
		return err
	}
	if alias.Nodes == nil {
		return errors.New("workflow has no nodes list")
	}

	t.Nodes = alias.Nodes
	t.Links = alias.Links
	t.LastNodeID = alias.LastNodeID
	t.LastLinkID = alias.LastLinkID
	t.Version = alias.Version
	t.Definitions = alias.Definitions
	t.NodesByID = make(map[int]*GraphNode)
	t.LinksByID = make(map[int]*Link)
	t.SubgraphsByID = make(map[string]*SubgraphDefinition)

	for _, node := range t.Nodes {
		if node == nil {
			continue
		}
		t.NodesByID[node.ID] = node
		node.scope = t
	}

	for _, link := range t.Links {
		if link == nil {
			continue
		}
		t.LinksByID[link.ID] = link
	}

	if t.Definitions != nil {
		for _, sg := range t.Definitions.Subgraphs {
			if sg == nil {
				continue
			}
			sg.BuildInternalMaps()
			t.SubgraphsByID[sg.ID] = sg
		}
	}

	return nil
}

func (t *Graph) GetLinkById(id int) *Link {
	val, ok := t.LinksByID[id]
	if ok {
		return val
	}
	return nil
}

func (t *Graph) GetNodeById(id int) *GraphNode {
	val, ok := t.NodesByID[id]
	if ok {
		return val
	}
	return nil
}

// GetNodesWithType retrieves all nodes in the graph that match a specified type.
func (t *Graph) GetNodesWithType(nodeType string) []*GraphNode {
	retv := make([]*GraphNode, 0)
	for _, n := range t.AllNodes() {
		if n.Type == nodeType {
			retv = append(retv, n)
		}
	}
	return retv
}

// AllNodes returns the top level nodes followed by the nodes of every subgraph definition.
// Subgraph nodes resolve their links inside their own definition.
func (t *Graph) AllNodes() []*GraphNode {
	retv := make([]*GraphNode, 0, len(t.Nodes))
	for _, n := range t.Nodes {
		if n != nil {
			retv = append(retv, n)
		}
	}
	if t.Definitions != nil {
		for _, sg := range t.Definitions.Subgraphs {
			if sg == nil {
				continue
			}
			for _, n := range sg.Nodes {
				if n != nil {
					retv = append(retv, n)
				}
			}
		}
	}
	return retv
}

func NewGraphFromJsonReader(r io.Reader) (*Graph, error) {
	fileContent, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	graph := &Graph{}
	if err := json.Unmarshal(fileContent, graph); err != nil {
		return nil, err
	}
	return graph, nil
}

func NewGraphFromJsonString(data string) (*Graph, error) {
	return NewGraphFromJsonReader(strings.NewReader(data))
}

// linkScope is implemented by anything that owns nodes and links: the top level graph or a
// subgraph definition.
type linkScope interface {
	GetNodeById(id int) *GraphNode
	GetLinkById(id int) *Link
}
