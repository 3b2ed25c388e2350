package core

import (
	"sort"
	"strings"
)

// Vehicle is one purchasable EV model with its national subsidy.
// Amounts are in 만원 (10,000 KRW).
type Vehicle struct {
	ID              string `json:"id"`
	Manufacturer    string `json:"manufacturer"`
	Model           string `json:"model"`
	Category        string `json:"category,omitempty"`
	NationalSubsidy int    `json:"nationalSubsidy"`
	LocalSubsidy    int    `json:"localSubsidy"` // baseline, used for display only
}

// Region is one local government with its subsidy statistics.
type Region struct {
	Region        string `json:"region"`
	AvgSubsidy    int    `json:"avgSubsidy"`
	MaxSubsidy    int    `json:"maxSubsidy,omitempty"`
	MinSubsidy    int    `json:"minSubsidy,omitempty"`
	VehicleCount  int    `json:"vehicleCount,omitempty"`
	HasDetailData bool   `json:"hasDetailData"`
	ParentRegion  string `json:"parentRegion,omitempty"`
	Description   string `json:"description,omitempty"`
	Order         int    `json:"order"`
	Group         Group  `json:"group,omitempty"`
}

// Overrides holds vehicle specific local subsidies: region -> vehicle ID -> amount.
// The map is sparse; a missing pair means "use the region average".
type Overrides map[string]map[string]int

// Lookup returns the override for a vehicle in a region.
func (o Overrides) Lookup(region, vehicleID string) (int, bool) {
	byVehicle, ok := o[region]
	if !ok {
		return 0, false
	}
	amount, ok := byVehicle[vehicleID]
	return amount, ok
}

// Set records an override, clamping negative amounts to zero.
func (o Overrides) Set(region, vehicleID string, amount int) {
	if region == "" || vehicleID == "" {
		return
	}
	byVehicle, ok := o[region]
	if !ok {
		byVehicle = make(map[string]int)
		o[region] = byVehicle
	}
	byVehicle[vehicleID] = clampAmount(amount)
}

// Merge copies every entry of other into o. Entries of other win.
func (o Overrides) Merge(other Overrides) {
	for region, byVehicle := range other {
		for id, amount := range byVehicle {
			o.Set(region, id, amount)
		}
	}
}

// Len returns the number of (region, vehicle) pairs.
func (o Overrides) Len() int {
	n := 0
	for _, byVehicle := range o {
		n += len(byVehicle)
	}
	return n
}

// Metadata describes where a dataset came from.
type Metadata struct {
	LastUpdated        string `json:"lastUpdated,omitempty"`
	Source             string `json:"source,omitempty"`
	Year               int    `json:"year,omitempty"`
	TotalVehicles      int    `json:"totalVehicles,omitempty"`
	TotalManufacturers int    `json:"totalManufacturers,omitempty"`
	TotalRegions       int    `json:"totalRegions,omitempty"`
	MajorCities        int    `json:"majorCities,omitempty"`
}

// Dataset is the in-memory tabular store every lookup runs against.
// A Dataset is never mutated after Build returns it.
type Dataset struct {
	Vehicles      []Vehicle `json:"vehicles"`
	Regions       []Region  `json:"regions"`
	Manufacturers []string  `json:"manufacturers"`
	Metadata      Metadata  `json:"metadata"`
	Overrides     Overrides `json:"vehicleSubsidyByRegion,omitempty"`

	vehicleIdx map[string]int
	regionIdx  map[string]int
}

// Vehicle returns the vehicle with the given ID.
func (d *Dataset) Vehicle(id string) (Vehicle, bool) {
	i, ok := d.vehicleIdx[id]
	if !ok {
		return Vehicle{}, false
	}
	return d.Vehicles[i], true
}

// Region returns the region record with the exact given name.
func (d *Dataset) Region(name string) (Region, bool) {
	i, ok := d.regionIdx[name]
	if !ok {
		return Region{}, false
	}
	return d.Regions[i], true
}

// Row is one vehicle row as read from a tabular source, before normalization.
// Region is empty for sources that carry no per-region amounts.
type Row struct {
	Region       string
	ID           string
	Manufacturer string
	Model        string
	Category     string
	National     int
	Local        int
	HasNational  bool // national cell was present and non-empty
}

// Draft collects the raw pieces of a dataset from one source.
type Draft struct {
	Rows          []Row
	Regions       []Region
	Manufacturers []string
	Overrides     Overrides
	Metadata      Metadata
}

// Build normalizes a draft into a Dataset.
//
// A row becomes a vehicle only when manufacturer, model and national subsidy
// are all present; other rows are dropped silently. Vehicles are unique by
// (manufacturer, model) and the first row wins. Rows with a region also record
// an override. Negative amounts are clamped to zero. Regions get their rank and
// group from the region directory and are sorted by it. Build is idempotent:
// building a draft decoded from a built dataset yields the same dataset.
func (d Draft) Build() *Dataset {
	ds := &Dataset{
		Metadata:   d.Metadata,
		Overrides:  make(Overrides),
		vehicleIdx: make(map[string]int),
		regionIdx:  make(map[string]int),
	}

	seen := make(map[string]bool)
	manufacturers := make(map[string]bool)

	for _, row := range d.Rows {
		manufacturer := strings.TrimSpace(row.Manufacturer)
		model := strings.TrimSpace(row.Model)
		if manufacturer == "" || model == "" || !row.HasNational {
			continue
		}

		id := strings.TrimSpace(row.ID)
		if id == "" {
			id = VehicleID(manufacturer, model)
		}

		if row.Region != "" {
			ds.Overrides.Set(strings.TrimSpace(row.Region), id, row.Local)
		}

		key := manufacturer + "\x00" + model
		if seen[key] {
			continue
		}
		seen[key] = true
		if _, dup := ds.vehicleIdx[id]; dup {
			continue
		}

		ds.vehicleIdx[id] = len(ds.Vehicles)
		ds.Vehicles = append(ds.Vehicles, Vehicle{
			ID:              id,
			Manufacturer:    manufacturer,
			Model:           model,
			Category:        strings.TrimSpace(row.Category),
			NationalSubsidy: clampAmount(row.National),
			LocalSubsidy:    clampAmount(row.Local),
		})
		manufacturers[manufacturer] = true
	}

	ds.Overrides.Merge(d.Overrides)

	for _, m := range d.Manufacturers {
		if m = strings.TrimSpace(m); m != "" {
			manufacturers[m] = true
		}
	}
	ds.Manufacturers = make([]string, 0, len(manufacturers))
	for m := range manufacturers {
		ds.Manufacturers = append(ds.Manufacturers, m)
	}
	sort.Strings(ds.Manufacturers)

	for _, r := range d.Regions {
		name := strings.TrimSpace(r.Region)
		if name == "" {
			continue
		}
		if _, dup := ds.regionIdx[name]; dup {
			continue
		}
		r.Region = name
		r.AvgSubsidy = clampAmount(r.AvgSubsidy)
		r.MaxSubsidy = clampAmount(r.MaxSubsidy)
		r.MinSubsidy = clampAmount(r.MinSubsidy)
		r.VehicleCount = clampAmount(r.VehicleCount)
		r.Order = RegionRank(name)
		r.Group, _ = RegionGroup(name)
		ds.regionIdx[name] = len(ds.Regions)
		ds.Regions = append(ds.Regions, r)
	}
	SortRegionRecords(ds.Regions)
	for i, r := range ds.Regions {
		ds.regionIdx[r.Region] = i
	}

	if len(ds.Overrides) == 0 {
		ds.Overrides = nil
	}

	return ds
}

// Empty reports whether the dataset has no vehicles.
func (d *Dataset) Empty() bool {
	return d == nil || len(d.Vehicles) == 0
}

// Draft converts a dataset back into a draft, for merging with other sources.
func (d *Dataset) Draft() Draft {
	rows := make([]Row, len(d.Vehicles))
	for i, v := range d.Vehicles {
		rows[i] = Row{
			ID:           v.ID,
			Manufacturer: v.Manufacturer,
			Model:        v.Model,
			Category:     v.Category,
			National:     v.NationalSubsidy,
			Local:        v.LocalSubsidy,
			HasNational:  true,
		}
	}

	overrides := make(Overrides, len(d.Overrides))
	overrides.Merge(d.Overrides)

	return Draft{
		Rows:          rows,
		Regions:       append([]Region(nil), d.Regions...),
		Manufacturers: append([]string(nil), d.Manufacturers...),
		Overrides:     overrides,
		Metadata:      d.Metadata,
	}
}

func clampAmount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
