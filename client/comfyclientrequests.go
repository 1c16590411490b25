package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
)

/*
Routes used here:

@routes.get("/view")
@routes.get("/system_stats")
@routes.get("/queue")
@routes.get("/history/{prompt_id}")
*/

func (c *ComfyClient) GetSystemStats() (*SystemStats, error) {
	resp, err := c.get("/system_stats", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	retv := &SystemStats{}
	if err := json.NewDecoder(resp.Body).Decode(retv); err != nil {
		return nil, fmt.Errorf("decode system stats: %w", err)
	}
	return retv, nil
}

// GetImage downloads one output file through /view.
func (c *ComfyClient) GetImage(image_data DataOutput) ([]byte, error) {
	params := url.Values{}
	params.Add("filename", image_data.Filename)
	params.Add("subfolder", image_data.Subfolder)
	params.Add("type", image_data.Type)

	resp, err := c.get("/view", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", image_data.Filename, err)
	}
	return body, nil
}

func (c *ComfyClient) GetQueueExecutionInfo() (*QueueExecInfo, error) {
	resp, err := c.get("/prompt", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	retv := &QueueExecInfo{}
	if err := json.NewDecoder(resp.Body).Decode(retv); err != nil {
		return nil, fmt.Errorf("decode queue info: %w", err)
	}
	return retv, nil
}

// GetPromptOutputs returns the outputs recorded in the history for promptID, keyed by node
// id. It is used to catch up on images finished before the websocket connected.
func (c *ComfyClient) GetPromptOutputs(promptID string) (map[string]map[string][]DataOutput, error) {
	resp, err := c.get("/history/"+url.PathEscape(promptID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// The history entry also carries the prompt itself as an array; only outputs are read.
	var history map[string]struct {
		Outputs map[string]map[string]json.RawMessage `json:"outputs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	item, ok := history[promptID]
	if !ok {
		return nil, fmt.Errorf("prompt %s not found in history", promptID)
	}
	ret := make(map[string]map[string][]DataOutput, len(item.Outputs))
	for node, outputs := range item.Outputs {
		ret[node] = decodeOutputs(outputs)
	}
	return ret, nil
}
