package composer

// ParamType tags the value variant a parameter accepts.
type ParamType string

const (
	ParamNumber  ParamType = "number"
	ParamColor   ParamType = "color"
	ParamSelect  ParamType = "select"
	ParamBoolean ParamType = "boolean"
	ParamString  ParamType = "string"
	ParamGroup   ParamType = "group"
	ParamFile    ParamType = "file"
	ParamVector3 ParamType = "vector3"
)

// ConfigOption is one node of a layer's parameter schema: either a leaf
// parameter or a group owning ordered children. IDs are not authored; they
// are assigned by AssignDeterministicIDs from the owning layer's id.
type ConfigOption struct {
	ID      string
	Type    ParamType
	Default any
	Min     *float64
	Max     *float64
	Step    *float64
	Choices []string
	// Children is the ordered key→option mapping of a group. Order is the
	// author's insertion order and is semantically significant: collection
	// and resolution walk it as written.
	Children []ConfigEntry
}

// ConfigEntry binds a child option to its key within the parent group.
type ConfigEntry struct {
	Key    string
	Option *ConfigOption
}

// Group constructs a group option with ordered children.
func Group(children ...ConfigEntry) *ConfigOption {
	return &ConfigOption{Type: ParamGroup, Children: children}
}

// Entry pairs a key with its option for group construction.
func Entry(key string, option *ConfigOption) ConfigEntry {
	return ConfigEntry{Key: key, Option: option}
}

// Number constructs a bounded numeric parameter.
func Number(def, min, max float64) *ConfigOption {
	return &ConfigOption{Type: ParamNumber, Default: def, Min: &min, Max: &max}
}

// Select constructs a choice parameter.
func Select(def string, choices ...string) *ConfigOption {
	return &ConfigOption{Type: ParamSelect, Default: def, Choices: choices}
}

// Boolean constructs a boolean parameter.
func Boolean(def bool) *ConfigOption {
	return &ConfigOption{Type: ParamBoolean, Default: def}
}

// Color constructs a color parameter with a hex string default.
func Color(def string) *ConfigOption {
	return &ConfigOption{Type: ParamColor, Default: def}
}

// AssignDeterministicIDs walks root depth-first and assigns every option the
// id parentID + ":" + key, starting from the owning layer's id. The same
// schema and layer id always produce the same ids, which is what makes
// persistence keys and node-graph binding targets stable across sessions.
// Returns root for chaining.
func AssignDeterministicIDs(layerID string, root *ConfigOption) *ConfigOption {
	if root == nil {
		return nil
	}
	root.ID = layerID
	assignChildIDs(root)
	return root
}

func assignChildIDs(parent *ConfigOption) {
	for _, entry := range parent.Children {
		if entry.Option == nil {
			continue
		}
		entry.Option.ID = parent.ID + ":" + entry.Key
		if entry.Option.Type == ParamGroup {
			assignChildIDs(entry.Option)
		}
	}
}

// CollectParameterIDs returns every leaf parameter id in pre-order, group
// ids excluded. Calling twice on the same tree yields the same sequence.
func CollectParameterIDs(root *ConfigOption) []string {
	var ids []string
	walkParameters(root, func(option *ConfigOption) {
		ids = append(ids, option.ID)
	})
	return ids
}

// DefaultValues builds the nested value bag declared by the schema's
// defaults, keyed by entry keys. Used when a layer has no persisted record.
func DefaultValues(root *ConfigOption) map[string]any {
	if root == nil {
		return map[string]any{}
	}
	bag := make(map[string]any, len(root.Children))
	for _, entry := range root.Children {
		if entry.Option == nil {
			continue
		}
		if entry.Option.Type == ParamGroup {
			bag[entry.Key] = DefaultValues(entry.Option)
			continue
		}
		bag[entry.Key] = entry.Option.Default
	}
	return bag
}

func walkParameters(option *ConfigOption, visit func(*ConfigOption)) {
	if option == nil {
		return
	}
	for _, entry := range option.Children {
		if entry.Option == nil {
			continue
		}
		if entry.Option.Type == ParamGroup {
			walkParameters(entry.Option, visit)
			continue
		}
		visit(entry.Option)
	}
}
