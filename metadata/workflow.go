package metadata

import (
	"strings"

	"github.com/ShammiG/comfy-readable-metadata/graphapi"
)

// samplerWidgets maps sampling fields to positions in a sampler node's widgets_values.
// The UI inserts a control_after_generate widget right after the seed.
type samplerWidgets struct {
	seed, steps, cfg, sampler, scheduler, denoise int
}

var samplerLayouts = map[string]samplerWidgets{
	"KSampler":         {seed: 0, steps: 2, cfg: 3, sampler: 4, scheduler: 5, denoise: 6},
	"KSamplerAdvanced": {seed: 1, steps: 3, cfg: 4, sampler: 5, scheduler: 6, denoise: -1},
}

var modelFileSuffixes = []string{".safetensors", ".ckpt", ".gguf", ".pt", ".pth", ".bin"}

// WorkflowParser extracts Fields from a UI workflow, used when a file carries no API prompt.
// Muted, bypassed and frontend-only nodes are ignored.
type WorkflowParser struct{}

func NewWorkflowParser() *WorkflowParser {
	return &WorkflowParser{}
}

func (wp *WorkflowParser) Parse(g *graphapi.Graph) Fields {
	f := NewFields()
	if g == nil {
		return f
	}
	nodes := activeNodes(g)

	guard("workflow model", func() { f.Model = wp.modelName(nodes) })
	guard("workflow sampling", func() { wp.sampling(nodes, &f) })
	guard("workflow dimensions", func() { wp.dimensions(nodes, &f) })
	guard("workflow prompts", func() { f.Positive, f.Negative = wp.prompts(nodes) })
	guard("workflow loras", func() { f.LoRAs = wp.loras(nodes) })
	guard("workflow components", func() { f.Components = wp.components(nodes, f.LoRAs) })
	return f
}

func widgetName(n *graphapi.GraphNode, index int) (string, bool) {
	v, ok := n.Widget(index)
	if !ok {
		return "", false
	}
	return literalName(v)
}

func isModelFile(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range modelFileSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

func (wp *WorkflowParser) modelName(nodes []*graphapi.GraphNode) string {
	for _, n := range nodes {
		if !n.TypeContains("checkpoint") && !n.TypeContains("loader") {
			continue
		}
		if containsAny(strings.ToLower(n.Type), "lora", "clip", "control", "vae", "upscale") {
			continue
		}
		name, ok := widgetName(n, 0)
		if !ok || !isModelFile(name) {
			continue
		}
		switch {
		case n.TypeContains("gguf"):
			return name + " (GGUF)"
		case n.TypeContains("unet") || n.TypeContains("diffusionmodel"):
			return name + " (UNET)"
		}
		return name
	}
	return Unknown
}

func widgetDisplay(n *graphapi.GraphNode, index int, name string) string {
	if v, ok := n.Widget(index); ok {
		return display(v)
	}
	if v, ok := n.NamedWidget(name); ok {
		return display(v)
	}
	return Unknown
}

func (wp *WorkflowParser) sampling(nodes []*graphapi.GraphNode, f *Fields) {
	for _, n := range nodes {
		layout, ok := samplerLayouts[n.Type]
		if !ok {
			continue
		}
		seedName := "seed"
		if n.Type == "KSamplerAdvanced" {
			seedName = "noise_seed"
		}
		f.Seed = widgetDisplay(n, layout.seed, seedName)
		f.Steps = widgetDisplay(n, layout.steps, "steps")
		f.CFG = widgetDisplay(n, layout.cfg, "cfg")
		f.Sampler = widgetDisplay(n, layout.sampler, "sampler_name")
		f.Scheduler = widgetDisplay(n, layout.scheduler, "scheduler")
		if layout.denoise >= 0 {
			f.Denoise = widgetDisplay(n, layout.denoise, "denoise")
		}
		return
	}
}

func (wp *WorkflowParser) dimensions(nodes []*graphapi.GraphNode, f *Fields) {
	for _, n := range nodes {
		if !n.TypeContains("EmptyLatent") && !n.TypeContains("LatentImage") {
			continue
		}
		f.Width = widgetDisplay(n, 0, "width")
		f.Height = widgetDisplay(n, 1, "height")
		f.BatchSize = widgetDisplay(n, 2, "batch_size")
		return
	}
}

// workflowRole follows the encoder's outputs to the sampler input they feed. The title is
// only consulted when no link says positive or negative.
func workflowRole(n *graphapi.GraphNode) graphapi.PromptRole {
	for _, target := range n.OutputTargets() {
		name := strings.ToLower(target.Name)
		switch {
		case strings.Contains(name, "negative"):
			return graphapi.RoleNegative
		case strings.Contains(name, "positive"):
			return graphapi.RolePositive
		}
	}
	return promptRole(n.Title)
}

func (wp *WorkflowParser) prompts(nodes []*graphapi.GraphNode) (string, string) {
	c := &promptCollector{}
	for _, n := range nodes {
		if !isTextEncoder(n.Type) {
			continue
		}
		v, ok := n.Widget(0)
		if !ok {
			v, ok = n.NamedWidget("text")
		}
		if !ok || v.Kind() != graphapi.KindString {
			continue
		}
		text := display(v)
		if !Known(text) {
			continue
		}
		c.add(text, workflowRole(n))
	}
	return c.result()
}

func (wp *WorkflowParser) loras(nodes []*graphapi.GraphNode) []LoRA {
	set := newLoraSet()
	for _, n := range nodes {
		if !n.TypeContains("lora") {
			continue
		}
		items, ok := n.WidgetValues.List()
		if !ok {
			continue
		}
		for i, item := range items {
			switch item.Kind() {
			case graphapi.KindMapping:
				m, _ := item.Mapping()
				w, ok := decodeWrapped(m)
				if !ok || (w.On != nil && !*w.On) || w.Lora == nil {
					continue
				}
				name := strings.TrimSpace(*w.Lora)
				if name == "" || name == "None" {
					continue
				}
				strength := defaultStrength
				if sv, ok := m.Get("strength"); ok {
					strength = display(sv)
				}
				set.add(name, strength)
			case graphapi.KindString:
				name, ok := literalName(item)
				if !ok || !isModelFile(name) {
					continue
				}
				strength := defaultStrength
				if i+1 < len(items) && items[i+1].Kind() == graphapi.KindNumber {
					strength = display(items[i+1])
				}
				set.add(name, strength)
			}
		}
	}
	return set.items
}

// workflowComponents lists the widget positions of the stock loader nodes.
var workflowComponents = map[string][]string{
	"CheckpointLoaderSimple": {"CHECKPOINT"},
	"UNETLoader":             {"UNET"},
	"UnetLoaderGGUF":         {"UNET"},
	"CLIPLoader":             {"CLIP"},
	"DualCLIPLoader":         {"CLIP-1", "CLIP-2"},
	"TripleCLIPLoader":       {"CLIP-1", "CLIP-2", "CLIP-3"},
	"VAELoader":              {"VAE"},
	"ControlNetLoader":       {"CONTROLNET"},
	"UpscaleModelLoader":     {"UPSCALER"},
	"HypernetworkLoader":     {"HYPERNETWORK"},
}

func (wp *WorkflowParser) components(nodes []*graphapi.GraphNode, loras []LoRA) []Component {
	set := newComponentSet(loras)
	for _, n := range nodes {
		labels, ok := workflowComponents[n.Type]
		if !ok {
			continue
		}
		for i, label := range labels {
			if name, ok := widgetName(n, i); ok {
				set.add(label, name)
			}
		}
	}
	sortComponents(set.items)
	return set.items
}
