package models

import (
	"encoding/json"
	"fmt"
	"os"
)

// TableFunction is one piecewise-linear lookup table of the engine. Fields
// the search does not touch are kept in Extra and written back unchanged.
type TableFunction struct {
	YName   string                     `json:"y.name,omitempty"`
	XName   string                     `json:"x.name,omitempty"`
	XValues []float64                  `json:"x.values,omitempty"`
	YValues []float64                  `json:"y.values"`
	Extra   map[string]json.RawMessage `json:"-"`
}

var tableKnownKeys = map[string]bool{"y.name": true, "x.name": true, "x.values": true, "y.values": true}

// UnmarshalJSON decodes the known fields and stashes the rest.
func (t *TableFunction) UnmarshalJSON(data []byte) error {
	type plain TableFunction
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if _, ok := raw["y.values"]; !ok {
		return fmt.Errorf("table function is missing y.values")
	}
	for k, v := range raw {
		if tableKnownKeys[k] {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]json.RawMessage)
		}
		p.Extra[k] = v
	}
	*t = TableFunction(p)
	return nil
}

// MarshalJSON writes known fields and the preserved extras.
func (t TableFunction) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.Extra)+4)
	for k, v := range t.Extra {
		out[k] = v
	}
	if t.YName != "" {
		out["y.name"] = t.YName
	}
	if t.XName != "" {
		out["x.name"] = t.XName
	}
	if t.XValues != nil {
		out["x.values"] = t.XValues
	}
	yv := t.YValues
	if yv == nil {
		yv = []float64{}
	}
	out["y.values"] = yv
	return json.Marshal(out)
}

// TableSet is the ordered list of table functions in an override file.
type TableSet []TableFunction

// LoadTableSet reads a JSON table-function file.
func LoadTableSet(path string) (TableSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table file %s: %w", path, err)
	}
	var ts TableSet
	if err := json.Unmarshal(data, &ts); err != nil {
		return nil, fmt.Errorf("failed to parse table file %s: %w", path, err)
	}
	return ts, nil
}

// Clone deep-copies the set so per-candidate edits never leak.
func (ts TableSet) Clone() TableSet {
	if ts == nil {
		return nil
	}
	out := make(TableSet, len(ts))
	for i, t := range ts {
		c := TableFunction{YName: t.YName, XName: t.XName}
		if t.XValues != nil {
			c.XValues = append([]float64(nil), t.XValues...)
		}
		if t.YValues != nil {
			c.YValues = append([]float64(nil), t.YValues...)
		}
		if t.Extra != nil {
			c.Extra = make(map[string]json.RawMessage, len(t.Extra))
			for k, v := range t.Extra {
				c.Extra[k] = append(json.RawMessage(nil), v...)
			}
		}
		out[i] = c
	}
	return out
}

// ScaleY multiplies the y.values of the table at index by factor.
func (ts TableSet) ScaleY(index int, factor float64) error {
	if index < 0 || index >= len(ts) {
		return fmt.Errorf("table index %d out of range [0, %d)", index, len(ts))
	}
	for i := range ts[index].YValues {
		ts[index].YValues[i] *= factor
	}
	return nil
}

// SetY replaces the y.values of the table at index.
func (ts TableSet) SetY(index int, values []float64) error {
	if index < 0 || index >= len(ts) {
		return fmt.Errorf("table index %d out of range [0, %d)", index, len(ts))
	}
	ts[index].YValues = append([]float64(nil), values...)
	return nil
}
