package nucleus

// Component is an instance of a MethodTable bound to a Computer at a
// specific slot.
type Component struct {
	Address string
	Slot    int
	Table   *MethodTable
	State   any

	computer   *Computer
	budgetUsed float64
}

// Computer returns the owning Computer.
func (c *Component) Computer() *Computer { return c.computer }
