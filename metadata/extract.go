package metadata

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/ShammiG/comfy-readable-metadata/graphapi"
)

// Options tune the structured-graph parser.
type Options struct {
	LoaderPriority  []LoaderRule
	ResolvableTypes []string
}

// Result is the outcome of one extraction.
type Result struct {
	Format Format
	Fields Fields
}

// Extractor routes a metadata blob to the parser for its format.
type Extractor struct {
	graph    *GraphParser
	workflow *WorkflowParser
	flat     *FlatParser
}

func NewExtractor(opts Options) *Extractor {
	gp := NewGraphParser()
	if len(opts.LoaderPriority) > 0 {
		gp.LoaderPriority = opts.LoaderPriority
	}
	if opts.ResolvableTypes != nil {
		gp.ResolvableTypes = opts.ResolvableTypes
	}
	return &Extractor{
		graph:    gp,
		workflow: NewWorkflowParser(),
		flat:     NewFlatParser(),
	}
}

// Extract never fails. Anything it cannot make sense of comes back as FormatUnknown.
func (e *Extractor) Extract(raw string) Result {
	return e.ExtractWithWorkflow(raw, "")
}

// ExtractWithWorkflow extracts from raw and, when the prompt names no model, falls back to
// the model found in the UI workflow stored alongside it.
func (e *Extractor) ExtractWithWorkflow(raw string, workflow string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Metadata extraction failed", "error", r)
			res = Result{Format: FormatUnknown, Fields: NewFields()}
		}
	}()

	switch Detect(raw) {
	case FormatFlat:
		return Result{Format: FormatFlat, Fields: e.flat.Parse(raw)}
	case FormatGraph:
		return e.extractJSON(StripPromptPrefix(raw), workflow)
	}
	return Result{Format: FormatUnknown, Fields: NewFields()}
}

func (e *Extractor) extractJSON(body string, workflow string) Result {
	v, err := graphapi.ParseValue([]byte(body))
	if err != nil {
		slog.Warn("Unable to decode metadata JSON", "error", err)
		return Result{Format: FormatUnknown, Fields: NewFields()}
	}

	if g, ok := workflowGraph(v); ok {
		return Result{Format: FormatWorkflow, Fields: e.workflow.Parse(g)}
	}

	p, err := graphapi.NewPromptFromValue(v)
	if err != nil {
		slog.Warn("Metadata JSON is not a prompt", "error", err)
		return Result{Format: FormatGraph, Fields: NewFields()}
	}
	f := e.graph.Parse(p)

	if !Known(f.Model) && workflow != "" {
		guard("workflow model fallback", func() {
			g, err := ParseWorkflow(workflow)
			if err != nil {
				slog.Debug("Stored workflow is unusable", "error", err)
				return
			}
			f.Model = e.workflow.modelName(activeNodes(g))
		})
	}
	return Result{Format: FormatGraph, Fields: f}
}

// ParseWorkflow decodes a UI workflow, accepting the {"workflow": ...} and
// {"workflow_only": "<json>"} wrappers as well as the bare document.
func ParseWorkflow(text string) (*graphapi.Graph, error) {
	v, err := graphapi.ParseValue([]byte(StripPromptPrefix(text)))
	if err != nil {
		return nil, err
	}
	g, ok := workflowGraph(v)
	if !ok {
		return nil, errors.New("not a workflow document")
	}
	return g, nil
}

func workflowGraph(v graphapi.Value) (*graphapi.Graph, bool) {
	m, ok := v.Mapping()
	if !ok {
		return nil, false
	}
	for _, wrapper := range []string{"workflow", "workflow_only"} {
		inner, ok := m.Get(wrapper)
		if !ok {
			continue
		}
		if s, isString := inner.AsString(); isString {
			parsed, err := graphapi.ParseValue([]byte(s))
			if err != nil {
				return nil, false
			}
			inner = parsed
		}
		return workflowGraph(inner)
	}
	nodes, ok := m.Get("nodes")
	if !ok || nodes.Kind() != graphapi.KindList {
		return nil, false
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	g, err := graphapi.NewGraphFromJsonString(string(data))
	if err != nil {
		slog.Warn("Unable to decode workflow", "error", err)
		return nil, false
	}
	return g, true
}

func activeNodes(g *graphapi.Graph) []*graphapi.GraphNode {
	retv := make([]*graphapi.GraphNode, 0, len(g.Nodes))
	for _, n := range g.AllNodes() {
		if !n.IsVirtual() && !n.IsMuted() {
			retv = append(retv, n)
		}
	}
	return retv
}
