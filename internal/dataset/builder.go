// Package dataset turns per-region subsidy rows into dataset documents.
//
// The builder starts from a table of default region records, replaces the
// records of every region that has rows with statistics computed from those
// rows, and records each row's local amount as a vehicle-region override.
// The result is written as a "complete" document (with the override map) and
// a "light" document (without it).
package dataset

import (
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/evsubsidy/internal/core"
)

// Metadata defaults.
const (
	DefaultSource = "환경부 전기차 보조금 데이터"
	DefaultYear   = 2025
)

// MajorCities are the records used for regions without detail rows.
var MajorCities = []core.Region{
	{Region: "서울특별시", AvgSubsidy: 400, MaxSubsidy: 450, MinSubsidy: 350, Description: "수도권"},
	{Region: "부산광역시", AvgSubsidy: 300, MaxSubsidy: 350, MinSubsidy: 250, Description: "경남권"},
	{Region: "대구광역시", AvgSubsidy: 350, MaxSubsidy: 400, MinSubsidy: 300, Description: "경북권"},
	{Region: "인천광역시", AvgSubsidy: 350, MaxSubsidy: 400, MinSubsidy: 300, Description: "수도권"},
	{Region: "광주광역시", AvgSubsidy: 380, MaxSubsidy: 450, MinSubsidy: 330, Description: "전남권"},
	{Region: "대전광역시", AvgSubsidy: 360, MaxSubsidy: 400, MinSubsidy: 320, Description: "충청권"},
	{Region: "울산광역시", AvgSubsidy: 350, MaxSubsidy: 400, MinSubsidy: 300, Description: "경남권"},
	{Region: "세종특별자치시", AvgSubsidy: 400, MaxSubsidy: 450, MinSubsidy: 350, Description: "충청권"},
	{Region: "경기도", AvgSubsidy: 300, MaxSubsidy: 400, MinSubsidy: 200, Description: "수도권"},
	{Region: "강원도", AvgSubsidy: 450, MaxSubsidy: 500, MinSubsidy: 400, Description: "강원권"},
	{Region: "충청북도", AvgSubsidy: 400, MaxSubsidy: 450, MinSubsidy: 350, Description: "충청권"},
	{Region: "충청남도", AvgSubsidy: 400, MaxSubsidy: 450, MinSubsidy: 350, Description: "충청권"},
	{Region: "전라북도", AvgSubsidy: 420, MaxSubsidy: 500, MinSubsidy: 350, Description: "전북권"},
	{Region: "전라남도", AvgSubsidy: 450, MaxSubsidy: 500, MinSubsidy: 400, Description: "전남권"},
	{Region: "경상북도", AvgSubsidy: 400, MaxSubsidy: 450, MinSubsidy: 350, Description: "경북권"},
	{Region: "경상남도", AvgSubsidy: 380, MaxSubsidy: 450, MinSubsidy: 330, Description: "경남권"},
}

// Builder aggregates rows into a dataset.
type Builder struct {
	defaults []core.Region
	source   string
	year     int
	now      func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithDefaults replaces the default region records.
func WithDefaults(regions []core.Region) Option {
	return func(b *Builder) { b.defaults = regions }
}

// WithSource sets metadata.source.
func WithSource(source string) Option {
	return func(b *Builder) { b.source = source }
}

// WithYear sets metadata.year.
func WithYear(year int) Option {
	return func(b *Builder) { b.year = year }
}

// WithClock replaces time.Now as the source of metadata.lastUpdated.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a Builder seeded with MajorCities.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		defaults: MajorCities,
		source:   DefaultSource,
		year:     DefaultYear,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// regionRows collects the rows of one region in input order.
type regionRows struct {
	name   string
	total  int
	locals []int
}

// Draft aggregates rows into a draft.
//
// Every row with a region counts toward that region's vehicle count. Only
// rows that would become vehicles contribute a local amount, and only
// positive amounts enter the statistics. A region with at least one positive
// amount gets a detail record (integer mean, max, min, parent region) that
// replaces its default; other regions keep the default record.
func (b *Builder) Draft(rows []core.Row) core.Draft {
	var order []*regionRows
	byName := make(map[string]*regionRows)

	for _, row := range rows {
		name := strings.TrimSpace(row.Region)
		if name == "" {
			continue
		}
		rr, ok := byName[name]
		if !ok {
			rr = &regionRows{name: name}
			byName[name] = rr
			order = append(order, rr)
		}
		rr.total++
		if usable(row) && row.Local > 0 {
			rr.locals = append(rr.locals, row.Local)
		}
	}

	regions := make([]core.Region, 0, len(b.defaults)+len(order))
	index := make(map[string]int)
	for _, r := range b.defaults {
		r.VehicleCount = 0
		r.HasDetailData = false
		index[r.Region] = len(regions)
		regions = append(regions, r)
	}

	for _, rr := range order {
		if len(rr.locals) == 0 {
			continue
		}
		rec := detailRecord(rr)
		if i, ok := index[rr.name]; ok {
			regions[i] = rec
			continue
		}
		index[rr.name] = len(regions)
		regions = append(regions, rec)
	}

	sorted := make([]core.Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		x, y := sorted[i], sorted[j]
		if x.Manufacturer != y.Manufacturer {
			return x.Manufacturer < y.Manufacturer
		}
		return x.Model < y.Model
	})

	return core.Draft{
		Rows:    sorted,
		Regions: regions,
		Metadata: core.Metadata{
			LastUpdated: b.now().Format(time.RFC3339),
			Source:      b.source,
			Year:        b.year,
		},
	}
}

// Build aggregates rows and fills in the metadata totals.
func (b *Builder) Build(rows []core.Row) *core.Dataset {
	ds := b.Draft(rows).Build()

	major := make(map[string]bool, len(b.defaults))
	for _, r := range b.defaults {
		major[r.Region] = true
	}
	majorCount := 0
	for _, r := range ds.Regions {
		if major[r.Region] {
			majorCount++
		}
	}

	ds.Metadata.TotalVehicles = len(ds.Vehicles)
	ds.Metadata.TotalManufacturers = len(ds.Manufacturers)
	ds.Metadata.TotalRegions = len(ds.Regions)
	ds.Metadata.MajorCities = majorCount
	return ds
}

func detailRecord(rr *regionRows) core.Region {
	sum, hi, lo := 0, rr.locals[0], rr.locals[0]
	for _, v := range rr.locals {
		sum += v
		if v > hi {
			hi = v
		}
		if v < lo {
			lo = v
		}
	}

	parent, ok := core.ParentRegion(rr.name)
	if !ok {
		parent = rr.name
	}

	return core.Region{
		Region:        rr.name,
		AvgSubsidy:    sum / len(rr.locals),
		MaxSubsidy:    hi,
		MinSubsidy:    lo,
		VehicleCount:  rr.total,
		HasDetailData: true,
		ParentRegion:  parent,
	}
}

// usable mirrors the row filter applied by core.Draft.Build.
func usable(row core.Row) bool {
	return row.HasNational &&
		strings.TrimSpace(row.Manufacturer) != "" &&
		strings.TrimSpace(row.Model) != ""
}
