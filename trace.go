package composer

import "encoding/json"

// Trace captures provenance for one parameter lookup: which of the three
// value sources were consulted and which one produced the effective value.
type Trace struct {
	ParamID string       `json:"param_id"`
	Sources []Provenance `json:"sources"`
}

// Provenance details one source's contribution to a traced parameter.
type Provenance struct {
	Source string `json:"source"`
	Value  any    `json:"value,omitempty"`
	Found  bool   `json:"found"`
	Used   bool   `json:"used"`
}

// ResolveTrace resolves one parameter and reports where the effective value
// came from, strongest source first. Editor tooling uses this to explain why
// a slider shows a value the user did not set.
func (r *Resolver) ResolveTrace(layerID, paramID string) (Trace, bool) {
	r.mu.RLock()
	root, ok := r.configs[layerID]
	r.mu.RUnlock()
	if !ok {
		return Trace{}, false
	}
	var option *ConfigOption
	walkParameters(root, func(candidate *ConfigOption) {
		if candidate.ID == paramID {
			option = candidate
		}
	})
	if option == nil {
		return Trace{}, false
	}

	trace := Trace{ParamID: paramID}
	used := false

	nodeEntry := Provenance{Source: SourceNode}
	if ref, ok := r.binding(paramID); ok {
		if value, ok := r.live.GetRef(ref); ok {
			nodeEntry.Value = value
			nodeEntry.Found = true
			nodeEntry.Used = true
			used = true
		}
	}
	trace.Sources = append(trace.Sources, nodeEntry)

	storedEntry := Provenance{Source: SourceStored}
	if value, ok := r.values.Lookup(layerID, ParameterPath(paramID)); ok {
		storedEntry.Value = value
		storedEntry.Found = true
		storedEntry.Used = !used
		used = true
	}
	trace.Sources = append(trace.Sources, storedEntry)

	trace.Sources = append(trace.Sources, Provenance{
		Source: SourceDefault,
		Value:  option.Default,
		Found:  true,
		Used:   !used,
	})
	return trace, true
}

// ToJSON serialises the trace for logging or transport.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a payload previously generated via ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
