// Package layering implements the value-bag primitives shared by the stores:
// precedence merging of nested parameter bags and copy-on-write path updates
// that preserve sibling identity for downstream change detection.
package layering

// Bag is a nested mapping of parameter keys to values. Group parameters nest
// as child Bags (or map[string]any, which is treated identically).
type Bag = map[string]any

// Clone returns a deep copy of b. Leaf values are shared; only the map spine
// is duplicated, which is sufficient because mutation always goes through
// SetPath rather than in-place writes.
func Clone(b Bag) Bag {
	if b == nil {
		return nil
	}
	out := make(Bag, len(b))
	for key, value := range b {
		if child, ok := asBag(value); ok {
			out[key] = Clone(child)
			continue
		}
		out[key] = value
	}
	return out
}

// Merge composes bags ordered from strongest to weakest, returning a new bag
// that keeps explicit settings from stronger bags while filling any missing
// keys from weaker ones. Nested bags merge recursively; a non-bag value in a
// stronger layer shadows the weaker subtree entirely.
func Merge(layers ...Bag) Bag {
	if len(layers) == 0 {
		return Bag{}
	}
	merged := Clone(layers[len(layers)-1])
	if merged == nil {
		merged = Bag{}
	}
	for i := len(layers) - 2; i >= 0; i-- {
		merged = mergeBags(layers[i], merged)
	}
	return merged
}

func mergeBags(strong, weak Bag) Bag {
	if strong == nil {
		return weak
	}
	out := Clone(weak)
	if out == nil {
		out = make(Bag, len(strong))
	}
	for key, value := range strong {
		strongChild, strongIsBag := asBag(value)
		weakChild, weakIsBag := asBag(out[key])
		if strongIsBag && weakIsBag {
			out[key] = mergeBags(strongChild, weakChild)
			continue
		}
		if strongIsBag {
			out[key] = Clone(strongChild)
			continue
		}
		out[key] = value
	}
	return out
}

// SetPath returns a new bag with value stored at path. The maps along path
// are copied; every sibling subtree keeps its original identity. Missing or
// non-bag intermediates are replaced with empty bags rather than reported as
// errors, matching the store's silent-recovery policy for invalid paths.
func SetPath(b Bag, path []string, value any) Bag {
	if len(path) == 0 {
		return b
	}
	out := make(Bag, len(b)+1)
	for key, existing := range b {
		out[key] = existing
	}
	head := path[0]
	if len(path) == 1 {
		out[head] = value
		return out
	}
	child, ok := asBag(b[head])
	if !ok {
		child = Bag{}
	}
	out[head] = SetPath(child, path[1:], value)
	return out
}

// Lookup walks path through nested bags and reports whether a value exists.
func Lookup(b Bag, path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	current := b
	for _, key := range path[:len(path)-1] {
		child, ok := asBag(current[key])
		if !ok {
			return nil, false
		}
		current = child
	}
	value, ok := current[path[len(path)-1]]
	return value, ok
}

func asBag(value any) (Bag, bool) {
	switch typed := value.(type) {
	case Bag:
		return typed, true
	default:
		return nil, false
	}
}
