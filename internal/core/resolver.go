package core

// resolver.go finds the local subsidy for a vehicle in a region by walking an
// ordered list of strategies. The first strategy that yields an amount wins;
// when none does the amount is zero.

// Match names the strategy that produced a local subsidy.
type Match string

const (
	MatchExact         Match = "exact"
	MatchRegionAverage Match = "region-average"
	MatchNone          Match = "none"
)

// Strategy looks up a local subsidy for a (vehicle, region) pair.
type Strategy interface {
	Match() Match
	Local(ds *Dataset, vehicleID, region string) (int, bool)
}

// overrideStrategy uses the vehicle specific amount of the region.
type overrideStrategy struct{}

func (overrideStrategy) Match() Match { return MatchExact }

func (overrideStrategy) Local(ds *Dataset, vehicleID, region string) (int, bool) {
	return ds.Overrides.Lookup(region, vehicleID)
}

// regionAverageStrategy uses the average of the region record.
type regionAverageStrategy struct{}

func (regionAverageStrategy) Match() Match { return MatchRegionAverage }

func (regionAverageStrategy) Local(ds *Dataset, _ string, region string) (int, bool) {
	r, ok := ds.Region(region)
	if !ok {
		return 0, false
	}
	return r.AvgSubsidy, true
}

// DefaultStrategies is the resolution order: exact override, then region average.
var DefaultStrategies = []Strategy{overrideStrategy{}, regionAverageStrategy{}}

// Resolution is the subsidy pair for a vehicle in a region.
type Resolution struct {
	VehicleID       string `json:"vehicleId"`
	Region          string `json:"region"`
	NationalSubsidy int    `json:"nationalSubsidy"`
	LocalSubsidy    int    `json:"localSubsidy"`
	Match           Match  `json:"match"`
	KnownVehicle    bool   `json:"knownVehicle"`
}

// Resolver resolves subsidies against one dataset.
type Resolver struct {
	strategies []Strategy
}

// NewResolver creates a resolver with the given strategies, or
// DefaultStrategies when none are given.
func NewResolver(strategies ...Strategy) *Resolver {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	return &Resolver{strategies: strategies}
}

// Resolve returns the national and local subsidy for a vehicle in a region.
// The national amount comes from the vehicle record and is zero for unknown
// vehicles. Unresolvable lookups yield zero, never an error.
func (r *Resolver) Resolve(ds *Dataset, vehicleID, region string) Resolution {
	res := Resolution{
		VehicleID: vehicleID,
		Region:    region,
		Match:     MatchNone,
	}
	if ds == nil {
		return res
	}

	if v, ok := ds.Vehicle(vehicleID); ok {
		res.NationalSubsidy = v.NationalSubsidy
		res.KnownVehicle = true
	}

	for _, s := range r.strategies {
		if amount, ok := s.Local(ds, vehicleID, region); ok {
			res.LocalSubsidy = clampAmount(amount)
			res.Match = s.Match()
			break
		}
	}

	return res
}

// VehicleID builds the identifier of a vehicle from its manufacturer and model.
// Data files key vehicles by exactly this form.
func VehicleID(manufacturer, model string) string {
	return manufacturer + "_" + model
}
