package termsurface

import "testing"

func TestAttrCloneIsIndependent(t *testing.T) {
	a := NewAttr().WithPatch("setup", "cleanup", true)
	b := a.Clone()

	if b.Patch == a.Patch {
		t.Fatalf("Clone() returned the same *Patch pointer")
	}
	if *b.Patch != *a.Patch {
		t.Errorf("Clone() patch contents differ: %+v vs %+v", *b.Patch, *a.Patch)
	}

	b.Patch.Setup = "mutated"
	if a.Patch.Setup == "mutated" {
		t.Errorf("mutating the clone's patch mutated the original")
	}
}

func TestAttrWithPatchAndWithout(t *testing.T) {
	a := NewAttr()
	if a.Patch != nil {
		t.Fatalf("NewAttr() has a non-nil patch")
	}
	a = a.WithPatch("s", "c", false)
	if a.Patch == nil || a.Patch.Setup != "s" || a.Patch.Cleanup != "c" {
		t.Errorf("WithPatch did not set expected fields: %+v", a.Patch)
	}
	a = a.WithoutPatch()
	if a.Patch != nil {
		t.Errorf("WithoutPatch() left a non-nil patch")
	}
}

func TestSamePatch(t *testing.T) {
	p1 := &Patch{Setup: "a", Cleanup: "b"}
	p2 := &Patch{Setup: "a", Cleanup: "b"}
	p3 := &Patch{Setup: "x", Cleanup: "b"}

	if !samePatch(p1, p2) {
		t.Errorf("samePatch(p1, p2) = false, want true (equal contents)")
	}
	if samePatch(p1, p3) {
		t.Errorf("samePatch(p1, p3) = true, want false")
	}
	if !samePatch(nil, nil) {
		t.Errorf("samePatch(nil, nil) = false, want true")
	}
	if samePatch(p1, nil) {
		t.Errorf("samePatch(p1, nil) = true, want false")
	}
}
