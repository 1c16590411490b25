package graphapi

import (
	"encoding/json"
	"errors"
	"strconv"
)

type Link struct {
	ID         int
	OriginID   int
	OriginSlot int
	TargetID   int
	TargetSlot int
	Type       string
}

func (l *Link) UnmarshalJSON(b []byte) error {
	// Try to unmarshal as array (tuple format) first
	var tmp []json.RawMessage
	if err := json.Unmarshal(b, &tmp); err == nil {
		if len(tmp) != 6 {
			return errors.New("wrong number of fields in JSON array")
		}

		fields := []*int{&l.ID, &l.OriginID, &l.OriginSlot, &l.TargetID, &l.TargetSlot}
		for i, f := range fields {
			v, err := linkInt(tmp[i])
			if err != nil {
				return err
			}
			*f = v
		}
		// the type is usually a string but may be an array of types or null
		_ = json.Unmarshal(tmp[5], &l.Type)
		return nil
	}

	// Try to unmarshal as object (subgraph format)
	var obj struct {
		ID         json.RawMessage `json:"id"`
		OriginID   json.RawMessage `json:"origin_id"`
		OriginSlot json.RawMessage `json:"origin_slot"`
		TargetID   json.RawMessage `json:"target_id"`
		TargetSlot json.RawMessage `json:"target_slot"`
		Type       json.RawMessage `json:"type"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}

	raws := []json.RawMessage{obj.ID, obj.OriginID, obj.OriginSlot, obj.TargetID, obj.TargetSlot}
	fields := []*int{&l.ID, &l.OriginID, &l.OriginSlot, &l.TargetID, &l.TargetSlot}
	for i, f := range fields {
		v, err := linkInt(raws[i])
		if err != nil {
			return err
		}
		*f = v
	}
	_ = json.Unmarshal(obj.Type, &l.Type)
	return nil
}

// linkInt accepts a number or a numeric string. Null and missing decode to -1.
func linkInt(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return -1, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		n = json.Number(s)
	}
	if i, err := n.Int64(); err == nil {
		return int(i), nil
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
