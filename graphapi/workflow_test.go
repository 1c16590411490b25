package graphapi

import (
	"encoding/json"
	"testing"
)

const simpleWorkflow = `{
	"last_node_id": 7,
	"last_link_id": 9,
	"nodes": [
		{
			"id": 4,
			"type": "CheckpointLoaderSimple",
			"pos": [26, 474],
			"size": {"0": 315, "1": 98},
			"flags": {},
			"order": 0,
			"mode": 0,
			"outputs": [
				{"name": "MODEL", "type": "MODEL", "links": [1], "slot_index": 0},
				{"name": "CLIP", "type": "CLIP", "links": [3, 5], "slot_index": 1}
			],
			"properties": {"Node name for S&R": "CheckpointLoaderSimple"},
			"widgets_values": ["v1-5-pruned-emaonly.safetensors"]
		},
		{
			"id": 6,
			"type": "CLIPTextEncode",
			"title": "Top",
			"order": 2,
			"mode": 0,
			"inputs": [{"name": "clip", "type": "CLIP", "link": 3}],
			"outputs": [{"name": "CONDITIONING", "type": "CONDITIONING", "links": [4], "slot_index": 0}],
			"widgets_values": ["a photo of a cat"]
		},
		{
			"id": 7,
			"type": "CLIPTextEncode",
			"order": 3,
			"mode": 0,
			"inputs": [{"name": "clip", "type": "CLIP", "link": 5}],
			"outputs": [{"name": "CONDITIONING", "type": "CONDITIONING", "links": [6], "slot_index": 0}],
			"widgets_values": ["blurry"]
		},
		{
			"id": 3,
			"type": "KSampler",
			"order": 4,
			"mode": 0,
			"inputs": [
				{"name": "model", "type": "MODEL", "link": 1},
				{"name": "positive", "type": "CONDITIONING", "link": 4},
				{"name": "negative", "type": "CONDITIONING", "link": 6},
				{"name": "latent_image", "type": "LATENT", "link": null}
			],
			"outputs": [{"name": "LATENT", "type": "LATENT", "links": null}],
			"widgets_values": [156680208700286, "randomize", 20, 8.0, "euler", "normal", 1]
		}
	],
	"links": [
		[1, 4, 0, 3, 0, "MODEL"],
		[3, 4, 1, 6, 0, "CLIP"],
		[4, 6, 0, 3, 1, "CONDITIONING"],
		[5, 4, 1, 7, 0, "CLIP"],
		[6, 7, 0, 3, 2, "CONDITIONING"]
	],
	"groups": [],
	"version": 0.4
}`

func TestUnmarshalWorkflow(t *testing.T) {
	var graph Graph
	if err := json.Unmarshal([]byte(simpleWorkflow), &graph); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if len(graph.Nodes) != 4 {
		t.Fatalf("Expected 4 nodes, got %d", len(graph.Nodes))
	}
	if len(graph.LinksByID) != 5 {
		t.Errorf("Expected 5 links by id, got %d", len(graph.LinksByID))
	}

	ks := graph.GetNodesWithType("KSampler")
	if len(ks) != 1 {
		t.Fatalf("Expected one KSampler, got %d", len(ks))
	}

	seed, ok := ks[0].Widget(0)
	if !ok || seed.String() != "156680208700286" {
		t.Errorf("Expected seed widget to keep its literal, got %q", seed.String())
	}
	cfg, _ := ks[0].Widget(3)
	if cfg.String() != "8.0" {
		t.Errorf("Expected cfg 8.0, got %q", cfg.String())
	}
	if _, ok := ks[0].Widget(7); ok {
		t.Error("Expected out of range widget to be absent")
	}
}

func TestOutputTargetsFollowLinks(t *testing.T) {
	graph, err := NewGraphFromJsonString(simpleWorkflow)
	if err != nil {
		t.Fatalf("Failed to read graph: %v", err)
	}

	pos := graph.GetNodeById(6)
	targets := pos.OutputTargets()
	if len(targets) != 1 || targets[0].Name != "positive" {
		t.Errorf("Expected node 6 to feed the positive slot, got %+v", targets)
	}

	neg := graph.GetNodeById(7)
	targets = neg.OutputTargets()
	if len(targets) != 1 || targets[0].Name != "negative" {
		t.Errorf("Expected node 7 to feed the negative slot, got %+v", targets)
	}

	ks := graph.GetNodeById(3)
	if n := ks.GetNodeForInput(0); n == nil || n.ID != 4 {
		t.Errorf("Expected model input to come from node 4")
	}
	if n := ks.GetNodeForInput(3); n != nil {
		t.Errorf("Expected unlinked latent input to have no origin")
	}
}

func TestLinkObjectFormat(t *testing.T) {
	var l Link
	err := json.Unmarshal([]byte(`{"id": 9, "origin_id": -10, "origin_slot": 0, "target_id": "3", "target_slot": 1, "type": "INT"}`), &l)
	if err != nil {
		t.Fatalf("Failed to unmarshal link: %v", err)
	}
	if l.ID != 9 || l.OriginID != -10 || l.TargetID != 3 || l.TargetSlot != 1 || l.Type != "INT" {
		t.Errorf("Unexpected link %+v", l)
	}

	if err := json.Unmarshal([]byte(`[1, 2, 3]`), &l); err == nil {
		t.Error("Expected short tuple to fail")
	}
}

func TestSubgraphNodesAreScoped(t *testing.T) {
	input := `{
		"nodes": [{"id": 1, "type": "f2fdebf6", "mode": 0}],
		"links": [],
		"definitions": {
			"subgraphs": [{
				"id": "f2fdebf6",
				"name": "Text to Image",
				"nodes": [
					{"id": 10, "type": "CLIPTextEncode", "outputs": [{"name": "CONDITIONING", "type": "CONDITIONING", "links": [1]}], "widgets_values": ["inner"]},
					{"id": 11, "type": "KSampler", "inputs": [{"name": "positive", "type": "CONDITIONING", "link": 1}], "widgets_values": [1, "fixed", 4, 1.0, "euler", "simple", 1.0]}
				],
				"links": [{"id": 1, "origin_id": 10, "origin_slot": 0, "target_id": 11, "target_slot": 0, "type": "CONDITIONING"}]
			}]
		}
	}`

	graph, err := NewGraphFromJsonString(input)
	if err != nil {
		t.Fatalf("Failed to read graph: %v", err)
	}
	if len(graph.AllNodes()) != 3 {
		t.Fatalf("Expected 3 nodes across graph and subgraph, got %d", len(graph.AllNodes()))
	}
	if graph.SubgraphsByID["f2fdebf6"] == nil {
		t.Fatal("Expected subgraph to be indexed")
	}

	inner := graph.SubgraphsByID["f2fdebf6"].GetNodeById(10)
	targets := inner.OutputTargets()
	if len(targets) != 1 || targets[0].Name != "positive" {
		t.Errorf("Expected subgraph link to resolve inside the subgraph, got %+v", targets)
	}
}

func TestWorkflowWithoutNodesFails(t *testing.T) {
	if _, err := NewGraphFromJsonString(`{"1": {"class_type": "KSampler"}}`); err == nil {
		t.Error("Expected an API prompt to be rejected as a workflow")
	}
}
