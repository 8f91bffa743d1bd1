// internal/input/select.go
package input

import (
	"log"

	"github.com/ColonelBlimp/drumkeys/internal/sample"
)

// CycleState tracks which kit/variant is currently selected and publishes
// swaps to the shared bank cell. It is owned exclusively by the input
// thread; the audio thread never observes it directly.
type CycleState struct {
	kit     int
	variant int

	cell    *sample.Cell
	library *sample.Library
}

// NewCycleState creates cycle state starting at kit 0, variant 0, and
// loads the initial bank into cell.
func NewCycleState(cell *sample.Cell, library *sample.Library) (*CycleState, error) {
	cs := &CycleState{cell: cell, library: library}
	bank, err := library.LoadBank(0, 0)
	if err != nil {
		return nil, err
	}
	cell.Store(bank)
	return cs, nil
}

// Kit returns the currently selected kit index.
func (c *CycleState) Kit() int { return c.kit }

// Variant returns the currently selected variant index.
func (c *CycleState) Variant() int { return c.variant }

// NextKit advances to the next kit, wrapping around, and resets the
// variant to the first one. On load failure the previous bank and
// indices are left untouched.
func (c *CycleState) NextKit() {
	c.moveKit(1)
}

// PrevKit moves to the previous kit, wrapping around, and resets the
// variant to the first one.
func (c *CycleState) PrevKit() {
	c.moveKit(-1)
}

// NextVariant advances to the next variant within the current kit,
// wrapping around.
func (c *CycleState) NextVariant() {
	c.moveVariant(1)
}

// PrevVariant moves to the previous variant within the current kit,
// wrapping around.
func (c *CycleState) PrevVariant() {
	c.moveVariant(-1)
}

func (c *CycleState) moveKit(delta int) {
	kits := c.library.KitCount()
	if kits == 0 {
		return
	}
	newKit := wrap(c.kit+delta, kits)
	c.apply(newKit, 0)
}

func (c *CycleState) moveVariant(delta int) {
	variants := c.library.VariantCount(c.kit)
	if variants == 0 {
		return
	}
	newVariant := wrap(c.variant+delta, variants)
	c.apply(c.kit, newVariant)
}

func (c *CycleState) apply(kit, variant int) {
	bank, err := c.library.LoadBank(kit, variant)
	if err != nil {
		log.Printf("input: load kit %d variant %d failed, keeping previous bank: %v", kit, variant, err)
		return
	}
	c.kit = kit
	c.variant = variant
	c.cell.Store(bank)
}

func wrap(n, mod int) int {
	n %= mod
	if n < 0 {
		n += mod
	}
	return n
}
