package metadata

import (
	"fmt"
	"strings"

	"github.com/ShammiG/comfy-readable-metadata/graphapi"
)

// LoaderRule names one way of finding the main model in a prompt.
type LoaderRule string

const (
	// LoaderCheckpoint matches *CheckpointLoader* nodes with a ckpt_name.
	LoaderCheckpoint LoaderRule = "checkpoint"
	// LoaderDiffusion matches UNETLoader / DiffusionModelLoader nodes with a unet_name.
	LoaderDiffusion LoaderRule = "diffusion"
	// LoaderGGUF matches GGUF loaders.
	LoaderGGUF LoaderRule = "gguf"
	// LoaderGeneric matches any other *Loader* with a recognised parameter name.
	LoaderGeneric LoaderRule = "generic"
)

var (
	DefaultLoaderPriority  = []LoaderRule{LoaderCheckpoint, LoaderDiffusion, LoaderGGUF, LoaderGeneric}
	DefaultResolvableTypes = []string{"easy int"}
)

func ParseLoaderRule(s string) (LoaderRule, error) {
	switch r := LoaderRule(strings.ToLower(strings.TrimSpace(s))); r {
	case LoaderCheckpoint, LoaderDiffusion, LoaderGGUF, LoaderGeneric:
		return r, nil
	}
	return "", fmt.Errorf("unknown loader rule %q", s)
}

// GraphParser extracts Fields from a ComfyUI API prompt.
type GraphParser struct {
	// LoaderPriority is the order in which loader rules are tried. For each rule every node
	// is scanned, so an earlier rule wins regardless of node order.
	LoaderPriority []LoaderRule
	// ResolvableTypes are the node classes whose literal "value" input a one-hop reference
	// may be resolved to.
	ResolvableTypes []string
}

func NewGraphParser() *GraphParser {
	return &GraphParser{
		LoaderPriority:  DefaultLoaderPriority,
		ResolvableTypes: DefaultResolvableTypes,
	}
}

// Parse walks the prompt once per field group. Each group fails on its own.
func (gp *GraphParser) Parse(p *graphapi.Prompt) Fields {
	f := NewFields()
	if p == nil {
		return f
	}
	nodes := p.Nodes()

	guard("model", func() { f.Model = gp.modelName(nodes) })
	guard("sampling", func() { gp.sampling(p, nodes, &f) })
	guard("dimensions", func() { gp.dimensions(p, nodes, &f) })
	guard("prompts", func() { f.Positive, f.Negative = gp.prompts(nodes) })
	guard("loras", func() { f.LoRAs = gp.loras(nodes) })
	guard("components", func() { f.Components = gp.components(nodes, f.LoRAs) })
	return f
}

func (gp *GraphParser) resolvable(classType string) bool {
	for _, t := range gp.ResolvableTypes {
		if t == classType {
			return true
		}
	}
	return false
}

// resolveDisplay renders an input value, following a reference one hop when the target is
// resolvable and falling back to a placeholder otherwise.
func (gp *GraphParser) resolveDisplay(p *graphapi.Prompt, v graphapi.Value) string {
	ref, ok := v.Reference()
	if !ok {
		return display(v)
	}
	if target, ok := p.Resolve(ref, gp.resolvable); ok {
		return display(target)
	}
	return referencePlaceholder(ref)
}

func (gp *GraphParser) modelName(nodes []graphapi.PromptNode) string {
	priority := gp.LoaderPriority
	if len(priority) == 0 {
		priority = DefaultLoaderPriority
	}
	for _, rule := range priority {
		for _, n := range nodes {
			if name, ok := matchLoader(rule, n); ok {
				return name
			}
		}
	}
	return Unknown
}

func inputName(n graphapi.PromptNode, key string) (string, bool) {
	v, ok := n.Input(key)
	if !ok {
		return "", false
	}
	return literalName(v)
}

func matchLoader(rule LoaderRule, n graphapi.PromptNode) (string, bool) {
	ct := n.ClassType()
	switch rule {
	case LoaderCheckpoint:
		if strings.Contains(ct, "CheckpointLoader") {
			return inputName(n, "ckpt_name")
		}
	case LoaderDiffusion:
		if strings.Contains(ct, "UNETLoader") || strings.Contains(ct, "DiffusionModelLoader") {
			if name, ok := inputName(n, "unet_name"); ok {
				return name + " (UNET)", true
			}
		}
	case LoaderGGUF:
		if name, ok := inputName(n, "gguf_name"); ok {
			return name + " (GGUF)", true
		}
		if strings.Contains(strings.ToUpper(ct), "GGUF") {
			if name, ok := inputName(n, "unet_name"); ok {
				return name + " (GGUF)", true
			}
		}
	case LoaderGeneric:
		if !strings.Contains(ct, "Loader") {
			return "", false
		}
		if containsAny(strings.ToLower(ct), "lora", "clip", "control", "vae", "upscale") {
			return "", false
		}
		if name, ok := inputName(n, "ckpt_name"); ok {
			return name, true
		}
		if name, ok := inputName(n, "unet_name"); ok {
			return name + " (UNET)", true
		}
		return inputName(n, "model_name")
	}
	return "", false
}

type samplingField struct {
	target *string
	keys   []string
}

func samplingFields(f *Fields) []samplingField {
	return []samplingField{
		{&f.Seed, []string{"seed", "noise_seed"}},
		{&f.Steps, []string{"steps"}},
		{&f.CFG, []string{"cfg"}},
		{&f.Sampler, []string{"sampler_name"}},
		{&f.Scheduler, []string{"scheduler"}},
		{&f.Denoise, []string{"denoise"}},
	}
}

// sampling prefers the canonical KSampler node, which supplies every field at once.
// Without one, fields are accumulated over all nodes: literals win over earlier values,
// unresolved references only fill fields that are still unknown.
func (gp *GraphParser) sampling(p *graphapi.Prompt, nodes []graphapi.PromptNode, f *Fields) {
	for _, n := range nodes {
		if n.ClassType() != "KSampler" {
			continue
		}
		for _, sf := range samplingFields(f) {
			*sf.target = Unknown
			if v, ok := n.Input(sf.keys[0]); ok {
				*sf.target = gp.resolveDisplay(p, v)
			}
		}
		return
	}

	for _, n := range nodes {
		for _, sf := range samplingFields(f) {
			for _, key := range sf.keys {
				v, ok := n.Input(key)
				if !ok {
					continue
				}
				s := gp.resolveDisplay(p, v)
				switch {
				case !Known(s):
				case isPlaceholder(s):
					if !Known(*sf.target) {
						*sf.target = s
					}
				default:
					*sf.target = s
				}
				break
			}
		}
	}
}

func (gp *GraphParser) dimensions(p *graphapi.Prompt, nodes []graphapi.PromptNode, f *Fields) {
	for _, n := range nodes {
		ct := n.ClassType()
		if !strings.Contains(ct, "LatentImage") && !strings.Contains(ct, "EmptyLatent") {
			continue
		}
		if v, ok := n.Input("width"); ok {
			f.Width = gp.resolveDisplay(p, v)
		}
		if v, ok := n.Input("height"); ok {
			f.Height = gp.resolveDisplay(p, v)
		}
		if v, ok := n.Input("batch_size"); ok {
			f.BatchSize = gp.resolveDisplay(p, v)
		}
		return
	}
}

var promptTextKeys = []string{"text", "text_g", "prompt", "string"}

func isTextEncoder(classType string) bool {
	return containsAny(classType, "CLIPTextEncode", "TextEncode", "Prompt")
}

// promptRole classifies a title. It returns "" when the title carries no hint.
func promptRole(title string) graphapi.PromptRole {
	title = strings.ToLower(title)
	if strings.Contains(title, "negative") || strings.Contains(title, "neg") {
		return graphapi.RoleNegative
	}
	if strings.Contains(title, "positive") || strings.Contains(title, "prompt") {
		return graphapi.RolePositive
	}
	return ""
}

// promptCollector keeps the candidate order rules shared by the graph and workflow parsers.
type promptCollector struct {
	positive []string
	negative []string
}

func (c *promptCollector) add(text string, role graphapi.PromptRole) {
	switch role {
	case graphapi.RoleNegative:
		c.negative = append(c.negative, text)
	case graphapi.RolePositive:
		c.positive = append(c.positive, text)
	default:
		// an unlabelled encoder is positive only while nothing else has been seen
		if len(c.positive) == 0 && len(c.negative) == 0 {
			c.positive = append(c.positive, text)
		}
	}
}

func (c *promptCollector) result() (string, string) {
	var pos, neg string
	if len(c.positive) > 0 {
		pos = c.positive[0]
	}
	if len(c.negative) > 0 {
		neg = c.negative[0]
	}
	return pos, neg
}

func (gp *GraphParser) prompts(nodes []graphapi.PromptNode) (string, string) {
	c := &promptCollector{}
	for _, n := range nodes {
		if !isTextEncoder(n.ClassType()) {
			continue
		}
		text, ok := promptText(n)
		if !ok {
			continue
		}
		c.add(text, promptRole(n.Title()))
	}
	return c.result()
}

func promptText(n graphapi.PromptNode) (string, bool) {
	for _, key := range promptTextKeys {
		v, ok := n.Input(key)
		if !ok {
			continue
		}
		if v.IsReference() {
			return "", false
		}
		s := display(v)
		if !Known(s) {
			return "", false
		}
		return s, true
	}
	return "", false
}
