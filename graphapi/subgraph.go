package graphapi

// SubgraphDefinition is one entry of definitions.subgraphs. Newer frontends nest the
// sampler and prompt nodes of a workflow here, so metadata must look inside them too.
type SubgraphDefinition struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Nodes []*GraphNode `json:"nodes"`
	Links []*Link      `json:"links"`

	// filled by BuildInternalMaps
	NodesByID map[int]*GraphNode `json:"-"`
	LinksByID map[int]*Link      `json:"-"`
}

type GraphDefinitions struct {
	Subgraphs []*SubgraphDefinition `json:"subgraphs,omitempty"`
}

// BuildInternalMaps populates the runtime lookup maps for a subgraph and scopes its nodes'
// links to the subgraph.
func (sg *SubgraphDefinition) BuildInternalMaps() {
	sg.NodesByID = make(map[int]*GraphNode)
	sg.LinksByID = make(map[int]*Link)

	for _, node := range sg.Nodes {
		if node == nil {
			continue
		}
		sg.NodesByID[node.ID] = node
		node.scope = sg
	}

	for _, link := range sg.Links {
		if link == nil {
			continue
		}
		sg.LinksByID[link.ID] = link
	}
}

func (sg *SubgraphDefinition) GetNodeById(id int) *GraphNode {
	return sg.NodesByID[id]
}

func (sg *SubgraphDefinition) GetLinkById(id int) *Link {
	return sg.LinksByID[id]
}
