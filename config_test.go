package composer

import (
	"reflect"
	"testing"
)

func shaderConfig() *ConfigOption {
	return Group(
		Entry("opacity", Number(1, 0, 1)),
		Entry("motion", Group(
			Entry("speed", Number(0.5, 0, 2)),
			Entry("reactive", Boolean(true)),
		)),
		Entry("palette", Select("neon", "neon", "mono", "sunset")),
	)
}

func TestAssignDeterministicIDs(t *testing.T) {
	tree := Group(
		Entry("group", Group(
			Entry("child", Number(0, 0, 1)),
		)),
	)
	AssignDeterministicIDs("layerA", tree)

	group := tree.Children[0].Option
	if group.ID != "layerA:group" {
		t.Fatalf("group id = %q", group.ID)
	}
	child := group.Children[0].Option
	if child.ID != "layerA:group:child" {
		t.Fatalf("child id = %q", child.ID)
	}
}

func TestAssignDeterministicIDsIsReproducible(t *testing.T) {
	tree := shaderConfig()
	AssignDeterministicIDs("layer-1", tree)
	first := CollectParameterIDs(tree)

	AssignDeterministicIDs("layer-1", tree)
	second := CollectParameterIDs(tree)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("ids changed across assignments: %v vs %v", first, second)
	}
}

func TestCollectParameterIDsPreOrderLeavesOnly(t *testing.T) {
	tree := shaderConfig()
	AssignDeterministicIDs("layer-1", tree)

	want := []string{
		"layer-1:opacity",
		"layer-1:motion:speed",
		"layer-1:motion:reactive",
		"layer-1:palette",
	}
	if got := CollectParameterIDs(tree); !reflect.DeepEqual(got, want) {
		t.Fatalf("collected %v, want %v", got, want)
	}
}

func TestDefaultValues(t *testing.T) {
	tree := shaderConfig()
	defaults := DefaultValues(tree)

	if defaults["opacity"] != 1.0 {
		t.Fatalf("opacity default = %v", defaults["opacity"])
	}
	motion, ok := defaults["motion"].(map[string]any)
	if !ok {
		t.Fatalf("motion should nest as a bag, got %T", defaults["motion"])
	}
	if motion["speed"] != 0.5 || motion["reactive"] != true {
		t.Fatalf("nested defaults wrong: %v", motion)
	}
}

func TestParameterPath(t *testing.T) {
	if got := ParameterPath("layer-1:motion:speed"); !reflect.DeepEqual(got, []string{"motion", "speed"}) {
		t.Fatalf("path = %v", got)
	}
	if got := ParameterPath("layer-1"); got != nil {
		t.Fatalf("layer-root id should yield no path, got %v", got)
	}
}

func TestDescribeFlattensParameters(t *testing.T) {
	tree := shaderConfig()
	AssignDeterministicIDs("layer-1", tree)

	doc := Describe(tree)
	if doc.Format != SchemaFormatDescriptors {
		t.Fatalf("format = %q", doc.Format)
	}
	descriptors, ok := doc.Document.([]ParameterDescriptor)
	if !ok {
		t.Fatalf("document type %T", doc.Document)
	}
	if len(descriptors) != 4 {
		t.Fatalf("expected 4 descriptors, got %d", len(descriptors))
	}
	if descriptors[1].ID != "layer-1:motion:speed" || descriptors[1].Path != "motion.speed" {
		t.Fatalf("descriptor[1] = %+v", descriptors[1])
	}
	if descriptors[3].Type != ParamSelect || len(descriptors[3].Choices) != 3 {
		t.Fatalf("descriptor[3] = %+v", descriptors[3])
	}
}
