package metadata

import (
	"regexp"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/ShammiG/comfy-readable-metadata/graphapi"
)

const defaultStrength = "1.0"

// wrappedLoRA is the object form some loader nodes (rgthree Power Lora Loader and friends)
// store per slot: {"on": true, "lora": "x.safetensors", "strength": 0.8}.
type wrappedLoRA struct {
	On   *bool   `mapstructure:"on"`
	Lora *string `mapstructure:"lora"`
}

func decodeWrapped(m *graphapi.Mapping) (wrappedLoRA, bool) {
	var w wrappedLoRA
	plain, ok := graphapi.MappingValue(m).Interface().(map[string]interface{})
	if !ok {
		return w, false
	}
	if err := mapstructure.WeakDecode(plain, &w); err != nil {
		return w, false
	}
	return w, true
}

var digitsRegex = regexp.MustCompile(`\d+`)

// loraStrength finds the strength that belongs to the LoRA stored under key, trying the
// naming conventions of the common loader nodes in turn.
func loraStrength(inputs *graphapi.Mapping, key string, show func(graphapi.Value) string) string {
	strength := ""
	try := func(candidates ...string) {
		for _, c := range candidates {
			if v, ok := inputs.Get(c); ok {
				strength = show(v)
				return
			}
		}
	}
	// a strength of exactly one is indistinguishable from the default, keep looking
	unset := func() bool {
		if strength == "" {
			return true
		}
		f, ok := graphapi.StringValue(strength).AsFloat()
		return ok && f == 1.0
	}

	if i := strings.LastIndex(key, "_"); i >= 0 {
		prefix, suffix := key[:i], key[i+1:]
		try("strength_"+suffix, "strength"+suffix, prefix+"_strength_"+suffix, "str_"+suffix)
	}
	if unset() {
		try("strength_model", "strength", "model_strength", "lora_strength")
	}
	if nums := digitsRegex.FindAllString(key, -1); len(nums) > 0 && unset() {
		n := nums[len(nums)-1]
		try("strength_"+n, "strength"+n, "str_"+n, "lora_strength_"+n)
	}
	if strength == "" {
		return defaultStrength
	}
	return strength
}

type loraSet struct {
	items []LoRA
	seen  map[string]bool
}

func newLoraSet() *loraSet {
	return &loraSet{seen: make(map[string]bool)}
}

func (s *loraSet) add(name, strength string) {
	key := normalizedFile(name)
	if key == "" || s.seen[key] {
		return
	}
	s.seen[key] = true
	s.items = append(s.items, LoRA{Name: baseName(name), Strength: strength})
}

func (gp *GraphParser) loras(nodes []graphapi.PromptNode) []LoRA {
	set := newLoraSet()
	for _, n := range nodes {
		if !strings.Contains(strings.ToLower(n.ClassType()), "lora") {
			continue
		}
		inputs := n.Inputs()
		for _, key := range inputs.Keys() {
			if !strings.Contains(strings.ToLower(key), "lora") {
				continue
			}
			v, _ := inputs.Get(key)

			switch v.Kind() {
			case graphapi.KindMapping:
				m, _ := v.Mapping()
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
				name, ok := literalName(v)
				if !ok || numericLike(name) {
					continue
				}
				set.add(name, loraStrength(inputs, key, display))
			}
		}
	}
	return set.items
}

type componentKind struct {
	kind   string
	params []string
}

var componentKinds = []componentKind{
	{"CHECKPOINT", []string{"ckpt_name", "checkpoint_name", "model_name", "checkpoint"}},
	{"UNET", []string{"unet_name", "unet", "diffusion_model"}},
	{"CLIP", []string{"clip_name", "clip_name1", "clip_name2", "clip", "text_encoder"}},
	{"VAE", []string{"vae_name", "vae", "autoencoder"}},
	{"T5", []string{"t5_name", "t5", "t5xxl"}},
	{"CONTROLNET", []string{"control_net_name", "controlnet_name", "controlnet"}},
	{"UPSCALER", []string{"upscale_model", "upscaler_name", "upscaler"}},
	{"EMBEDDINGS", []string{"embedding_name", "embedding"}},
	{"HYPERNETWORK", []string{"hypernetwork_name", "hypernetwork"}},
}

// classComponentKinds names loaders whose class already says what they load. Their file
// input is often the generic model_name, which would otherwise read as a checkpoint.
var classComponentKinds = []struct {
	keyword string
	kind    string
}{
	{"upscale", "UPSCALER"},
	{"controlnet", "CONTROLNET"},
	{"vae", "VAE"},
	{"clip", "CLIP"},
	{"hypernetwork", "HYPERNETWORK"},
}

// kindsFor returns the component kinds to look for on a loader of the given class.
func kindsFor(classType string) []componentKind {
	ct := strings.ToLower(classType)
	if strings.Contains(ct, "checkpoint") {
		return componentKinds
	}
	for _, ck := range classComponentKinds {
		if !strings.Contains(ct, ck.keyword) {
			continue
		}
		for _, k := range componentKinds {
			if k.kind == ck.kind {
				params := append(append([]string{}, k.params...), "model_name")
				return []componentKind{{kind: k.kind, params: params}}
			}
		}
	}
	return componentKinds
}

func clipLabel(param string) string {
	if strings.HasPrefix(param, "clip_name") {
		if n := strings.TrimPrefix(param, "clip_name"); n != "" && numericLike(n) {
			return "CLIP-" + n
		}
	}
	return "CLIP"
}

// componentValue unwraps a component input. Object values may be toggled off and carry the
// file under model, name or value.
func componentValue(v graphapi.Value) (string, bool) {
	if m, ok := v.Mapping(); ok {
		if on, ok := m.Get("on"); ok {
			if b, isBool := on.AsBool(); isBool && !b {
				return "", false
			}
		}
		for _, k := range []string{"model", "name", "value"} {
			if inner, ok := m.Get(k); ok {
				return literalName(inner)
			}
		}
		return "", false
	}
	return literalName(v)
}

type componentSet struct {
	items  []Component
	labels map[string]bool
	files  map[string]bool
}

func newComponentSet(loras []LoRA) *componentSet {
	s := &componentSet{labels: make(map[string]bool), files: make(map[string]bool)}
	for _, l := range loras {
		s.files[normalizedFile(l.Name)] = true
	}
	return s
}

// add keeps the first file per label and never lists the same file twice.
func (s *componentSet) add(label, name string) {
	file := normalizedFile(name)
	if s.labels[label] || s.files[file] {
		return
	}
	s.labels[label] = true
	s.files[file] = true
	s.items = append(s.items, Component{Kind: label, Name: name})
}

func componentRank(kind string) int {
	switch {
	case kind == "CHECKPOINT":
		return 0
	case kind == "UNET":
		return 1
	case strings.HasPrefix(kind, "CLIP"):
		return 2
	case kind == "VAE":
		return 3
	}
	return 4
}

func sortComponents(items []Component) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := componentRank(items[i].Kind), componentRank(items[j].Kind)
		if ri != rj {
			return ri < rj
		}
		return items[i].Kind < items[j].Kind
	})
}

func isComponentLoader(classType string) bool {
	ct := strings.ToLower(classType)
	if strings.Contains(ct, "lora") {
		return false
	}
	return containsAny(ct, "loader", "load", "checkpoint", "unet", "clip", "vae", "model")
}

func (gp *GraphParser) components(nodes []graphapi.PromptNode, loras []LoRA) []Component {
	set := newComponentSet(loras)
	for _, n := range nodes {
		if !isComponentLoader(n.ClassType()) {
			continue
		}
		inputs := n.Inputs()
		for _, ck := range kindsFor(n.ClassType()) {
			for _, param := range ck.params {
				v, ok := inputs.Get(param)
				if !ok || v.IsReference() {
					continue
				}
				name, ok := componentValue(v)
				if !ok {
					continue
				}
				label := ck.kind
				if label == "CLIP" {
					label = clipLabel(param)
				}
				set.add(label, name)
				// only text encoders may contribute several files per node
				if ck.kind != "CLIP" {
					break
				}
			}
		}
	}
	sortComponents(set.items)
	return set.items
}
