package domain

// Summary holds descriptive statistics over crater diameters (meters).
type Summary struct {
	Count  int     `json:"num_craters"`
	Min    float64 `json:"min_size"`
	Max    float64 `json:"max_size"`
	Mean   float64 `json:"mean_size"`
	Median float64 `json:"med_size"`
}

// RegionStats is the detail-panel payload for one region, optionally at one
// timestep. It is derived on demand and never persisted.
type RegionStats struct {
	Key     string    `json:"key"`
	Step    *int      `json:"step,omitempty"`
	Summary Summary   `json:"summary"`
	Sizes   []float64 `json:"sizes"`
	// Smallest and Largest are nil when the source did not record them.
	Smallest *CraterRecord `json:"smallest,omitempty"`
	Largest  *CraterRecord `json:"largest,omitempty"`
}
