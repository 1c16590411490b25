package client

import "strings"

type DataOutput struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
	Text      string `json:"-"` // for "text" type data output
}

// ExecutedOutput is what one node produced when it finished.
type ExecutedOutput struct {
	PromptID string
	NodeID   string
	Outputs  map[string][]DataOutput
}

// Files lists the file outputs of a node, images first.
func (o *ExecutedOutput) Files() []DataOutput {
	var files []DataOutput
	for _, key := range []string{"images", "gifs", "videos"} {
		for _, d := range o.Outputs[key] {
			if d.Filename != "" {
				files = append(files, d)
			}
		}
	}
	return files
}

// IsTemp reports whether the output is a preview that ComfyUI will not keep.
func (d DataOutput) IsTemp() bool {
	return strings.EqualFold(d.Type, "temp")
}

type SystemStats struct {
	System  System `json:"system"`
	Devices []GPU  `json:"devices"`
}

type System struct {
	OS             string `json:"os"`
	PythonVersion  string `json:"python_version"`
	ComfyUIVersion string `json:"comfyui_version"`
	EmbeddedPython bool   `json:"embedded_python"`
}

type GPU struct {
	Name             string `json:"name"`
	Type             string `json:"type"`
	Index            int    `json:"index"`
	VRAM_Total       int64  `json:"vram_total"`
	VRAM_Free        int64  `json:"vram_free"`
	Torch_VRAM_Total int64  `json:"torch_vram_total"`
	Torch_VRAM_Free  int64  `json:"torch_vram_free"`
}

type QueueExecInfo struct {
	ExecInfo struct {
		QueueRemaining int `json:"queue_remaining"`
	} `json:"exec_info"`
}
