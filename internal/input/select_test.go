// internal/input/select_test.go
package input

import (
	"testing"

	"github.com/ColonelBlimp/drumkeys/internal/sample"
)

func fixtureLibrary() *sample.Library {
	return &sample.Library{
		Root: "/unused",
		Kits: []sample.KitInfo{
			{Name: "acoustic", Variants: []string{"v1", "v2"}},
			{Name: "electronic", Variants: []string{"v1", "v2", "v3"}},
		},
	}
}

func TestCycleState_InitialLoadSelectsFirstKitAndVariant(t *testing.T) {
	lib := fixtureLibrary()
	cell := sample.NewCell(nil)

	cs, err := NewCycleState(cell, lib)
	if err != nil {
		t.Fatalf("NewCycleState failed: %v", err)
	}

	if cs.Kit() != 0 || cs.Variant() != 0 {
		t.Fatalf("Kit/Variant = %d/%d, want 0/0", cs.Kit(), cs.Variant())
	}
	if cell.Load() == nil {
		t.Fatal("initial bank was not published to the cell")
	}
}

func TestCycleState_NextVariantWrapsWithinKit(t *testing.T) {
	lib := fixtureLibrary()
	cell := sample.NewCell(nil)
	cs, _ := NewCycleState(cell, lib)

	cs.NextVariant()
	if cs.Variant() != 1 {
		t.Fatalf("Variant = %d, want 1", cs.Variant())
	}
	cs.NextVariant()
	if cs.Kit() != 0 || cs.Variant() != 0 {
		t.Fatalf("Kit/Variant = %d/%d, want 0/0 after wrapping past the last variant", cs.Kit(), cs.Variant())
	}
}

func TestCycleState_PrevVariantWrapsToLast(t *testing.T) {
	lib := fixtureLibrary()
	cell := sample.NewCell(nil)
	cs, _ := NewCycleState(cell, lib)

	cs.PrevVariant()
	if cs.Variant() != 1 {
		t.Fatalf("Variant = %d, want 1 (last variant of kit 0)", cs.Variant())
	}
}

func TestCycleState_NextKitResetsVariantToZero(t *testing.T) {
	lib := fixtureLibrary()
	cell := sample.NewCell(nil)
	cs, _ := NewCycleState(cell, lib)

	cs.NextVariant() // variant 1
	cs.NextKit()
	if cs.Kit() != 1 {
		t.Fatalf("Kit = %d, want 1", cs.Kit())
	}
	if cs.Variant() != 0 {
		t.Fatalf("Variant = %d, want 0 (reset on kit change)", cs.Variant())
	}
}

func TestCycleState_KitWrapsAround(t *testing.T) {
	lib := fixtureLibrary()
	cell := sample.NewCell(nil)
	cs, _ := NewCycleState(cell, lib)

	cs.PrevKit()
	if cs.Kit() != 1 {
		t.Fatalf("Kit = %d, want 1 (wrapped to last kit)", cs.Kit())
	}
}

func TestCycleState_ForwardThenBackwardReturnsToSameKitVariant(t *testing.T) {
	lib := fixtureLibrary()
	cell := sample.NewCell(nil)
	cs, _ := NewCycleState(cell, lib)

	cs.NextKit()
	cs.NextVariant()
	cs.NextVariant()

	cs.PrevVariant()
	cs.PrevVariant()
	cs.PrevKit()

	if cs.Kit() != 0 || cs.Variant() != 0 {
		t.Fatalf("Kit/Variant = %d/%d, want 0/0 after an equal-and-opposite cycle", cs.Kit(), cs.Variant())
	}
}

func TestCycleState_PublishesNewBankOnEachMove(t *testing.T) {
	lib := fixtureLibrary()
	cell := sample.NewCell(nil)
	cs, _ := NewCycleState(cell, lib)

	before := cell.Load()
	cs.NextVariant()
	after := cell.Load()

	if before == after {
		t.Fatal("Load() returned the same bank instance after a variant change")
	}
	if after.VariantName != "v2" {
		t.Errorf("VariantName = %s, want v2", after.VariantName)
	}
}
