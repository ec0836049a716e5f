package composer

import "strings"

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

// SchemaFormatDescriptors represents the flattened parameter descriptors.
const SchemaFormatDescriptors SchemaFormat = "descriptors"

// SchemaDocument encapsulates a generated schema output alongside its format
// identifier. Document is JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
}

// ParameterDescriptor is the flattened view of one leaf parameter, consumed
// by editor panels and node-graph binding pickers.
type ParameterDescriptor struct {
	ID      string    `json:"id"`
	Path    string    `json:"path"`
	Type    ParamType `json:"type"`
	Default any       `json:"default,omitempty"`
	Min     *float64  `json:"min,omitempty"`
	Max     *float64  `json:"max,omitempty"`
	Step    *float64  `json:"step,omitempty"`
	Choices []string  `json:"choices,omitempty"`
}

// Describe flattens a layer's config tree into parameter descriptors in the
// same pre-order as CollectParameterIDs.
func Describe(root *ConfigOption) SchemaDocument {
	descriptors := []ParameterDescriptor{}
	walkParameters(root, func(option *ConfigOption) {
		descriptors = append(descriptors, ParameterDescriptor{
			ID:      option.ID,
			Path:    descriptorPath(option),
			Type:    option.Type,
			Default: option.Default,
			Min:     option.Min,
			Max:     option.Max,
			Step:    option.Step,
			Choices: option.Choices,
		})
	})
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: descriptors,
	}
}

// ParameterPath derives the nested value-bag path from a deterministic id:
// everything after the layer-id prefix, split on the id separator.
func ParameterPath(paramID string) []string {
	segments := strings.Split(paramID, ":")
	if len(segments) <= 1 {
		return nil
	}
	return segments[1:]
}

func descriptorPath(option *ConfigOption) string {
	path := ParameterPath(option.ID)
	if path == nil {
		return option.ID
	}
	return strings.Join(path, ".")
}
