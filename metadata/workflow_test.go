package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShammiG/comfy-readable-metadata/graphapi"
)

const uiWorkflow = `{
	"last_node_id": 20,
	"last_link_id": 6,
	"nodes": [
		{"id": 4, "type": "CheckpointLoaderSimple", "mode": 0, "widgets_values": ["v1-5-pruned-emaonly.safetensors"]},
		{"id": 10, "type": "LoraLoader", "mode": 0, "widgets_values": ["add_detail.safetensors", 0.7, 1]},
		{"id": 11, "type": "Power Lora Loader (rgthree)", "mode": 0, "widgets_values": [
			{},
			{"type": "PowerLoraLoaderHeaderWidget"},
			{"on": true, "lora": "x\\hands.safetensors", "strength": 0.9},
			{"on": false, "lora": "off.safetensors", "strength": 1},
			{},
			""
		]},
		{"id": 12, "type": "VAELoader", "mode": 4, "widgets_values": ["bypassed_vae.safetensors"]},
		{"id": 13, "type": "VAELoader", "mode": 0, "widgets_values": ["vae-ft-mse.safetensors"]},
		{"id": 5, "type": "EmptyLatentImage", "mode": 0, "widgets_values": [512, 768, 2]},
		{
			"id": 6, "type": "CLIPTextEncode", "title": "Top", "mode": 0,
			"outputs": [{"name": "CONDITIONING", "type": "CONDITIONING", "links": [4]}],
			"widgets_values": ["a photo of a cat"]
		},
		{
			"id": 7, "type": "CLIPTextEncode", "mode": 0,
			"outputs": [{"name": "CONDITIONING", "type": "CONDITIONING", "links": [6]}],
			"widgets_values": ["blurry"]
		},
		{
			"id": 3, "type": "KSampler", "mode": 0,
			"inputs": [
				{"name": "model", "type": "MODEL", "link": null},
				{"name": "positive", "type": "CONDITIONING", "link": 4},
				{"name": "negative", "type": "CONDITIONING", "link": 6}
			],
			"widgets_values": [156680208700286, "randomize", 20, 8.0, "euler", "normal", 1]
		},
		{"id": 20, "type": "Note", "mode": 0, "widgets_values": ["remember.safetensors"]}
	],
	"links": [
		[4, 6, 0, 3, 1, "CONDITIONING"],
		[6, 7, 0, 3, 2, "CONDITIONING"]
	],
	"version": 0.4
}`

func TestWorkflowParser(t *testing.T) {
	g, err := graphapi.NewGraphFromJsonString(uiWorkflow)
	require.NoError(t, err)

	f := NewWorkflowParser().Parse(g)

	assert.Equal(t, "v1-5-pruned-emaonly.safetensors", f.Model)
	assert.Equal(t, "156680208700286", f.Seed)
	assert.Equal(t, "20", f.Steps)
	assert.Equal(t, "8.0", f.CFG)
	assert.Equal(t, "euler", f.Sampler)
	assert.Equal(t, "normal", f.Scheduler)
	assert.Equal(t, "1", f.Denoise)

	assert.Equal(t, "512", f.Width)
	assert.Equal(t, "768", f.Height)
	assert.Equal(t, "2", f.BatchSize)

	// the first encoder is titled "Top", its link into the sampler decides the role
	assert.Equal(t, "a photo of a cat", f.Positive)
	assert.Equal(t, "blurry", f.Negative)

	assert.Equal(t, []LoRA{
		{Name: "add_detail.safetensors", Strength: "0.7"},
		{Name: "hands.safetensors", Strength: "0.9"},
	}, f.LoRAs)
	assert.Equal(t, []Component{
		{Kind: "CHECKPOINT", Name: "v1-5-pruned-emaonly.safetensors"},
		{Kind: "VAE", Name: "vae-ft-mse.safetensors"},
	}, f.Components)
}

func TestWorkflowAdvancedSampler(t *testing.T) {
	g, err := graphapi.NewGraphFromJsonString(`{"nodes": [
		{"id": 1, "type": "UNETLoader", "widgets_values": ["flux1-dev.safetensors", "default"]},
		{"id": 2, "type": "KSamplerAdvanced", "widgets_values": ["enable", 99, "fixed", 30, 6.5, "dpmpp_2m", "karras", 0, 30, "disable"]},
		{"id": 3, "type": "CLIPTextEncode", "title": "Negative", "widgets_values": ["lowres"]}
	], "links": []}`)
	require.NoError(t, err)

	f := NewWorkflowParser().Parse(g)
	assert.Equal(t, "flux1-dev.safetensors (UNET)", f.Model)
	assert.Equal(t, "99", f.Seed)
	assert.Equal(t, "30", f.Steps)
	assert.Equal(t, "6.5", f.CFG)
	assert.Equal(t, "dpmpp_2m", f.Sampler)
	assert.Equal(t, "karras", f.Scheduler)
	assert.Equal(t, Unknown, f.Denoise)
	assert.Empty(t, f.Positive)
	assert.Equal(t, "lowres", f.Negative)
	assert.False(t, f.HasDimensions())
}

func TestWorkflowParserNil(t *testing.T) {
	f := NewWorkflowParser().Parse(nil)
	assert.Equal(t, NewFields(), f)
}
