package domain

// CraterRecord is a single crater observation. It is a value type: two
// records with equal fields are the same crater for all purposes here.
type CraterRecord struct {
	Longitude float64  `json:"longitude"`
	Latitude  float64  `json:"latitude"`
	Diameter  float64  `json:"diameter"` // meters
	Depth     *float64 `json:"depth,omitempty"`

	// CreatedStep is the timestep the crater appears at. Nil means it existed
	// from the first step.
	CreatedStep *int `json:"created_step,omitempty"`

	// ErasedStep is the first timestep at which the crater is no longer
	// visible. Nil means the crater is never erased.
	ErasedStep *int `json:"erased_step,omitempty"`

	// RegionKey is the normalized key of the owning mare, empty when the
	// crater was not matched to any region.
	RegionKey string `json:"region,omitempty"`
}

// Created returns the creation step, defaulting to 0 when absent.
func (c CraterRecord) Created() int {
	if c.CreatedStep == nil {
		return 0
	}
	return *c.CreatedStep
}

// Erased returns the erasure step and whether one is set. When ok is false
// the crater is visible forever once created.
func (c CraterRecord) Erased() (step int, ok bool) {
	if c.ErasedStep == nil {
		return 0, false
	}
	return *c.ErasedStep, true
}

// VisibleAt reports whether the crater exists at timestep t.
func (c CraterRecord) VisibleAt(t int) bool {
	if t < c.Created() {
		return false
	}
	if erased, ok := c.Erased(); ok && t >= erased {
		return false
	}
	return true
}

// Step returns a pointer to v, for populating optional step fields.
func Step(v int) *int { return &v }
