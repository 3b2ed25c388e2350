package core

// region.go holds the fixed region directory: display rank and group of the
// seventeen metropolitan-level governments, plus the province a city or county
// belongs to. The tables are reference data and are never mutated.

import (
	"sort"
	"strings"
)

// Group classifies a region for display.
type Group string

const (
	GroupCapitalArea Group = "capital-area"
	GroupMetroCity   Group = "metro-city"
	GroupProvince    Group = "province"
)

// Groups lists every group in display order.
var Groups = []Group{GroupCapitalArea, GroupMetroCity, GroupProvince}

// Label returns the Korean display label of the group.
func (g Group) Label() string {
	switch g {
	case GroupCapitalArea:
		return "수도권"
	case GroupMetroCity:
		return "광역시"
	case GroupProvince:
		return "도"
	default:
		return ""
	}
}

// ParseGroup accepts a group identifier or its Korean label.
func ParseGroup(s string) (Group, bool) {
	s = strings.TrimSpace(s)
	for _, g := range Groups {
		if strings.EqualFold(s, string(g)) || s == g.Label() {
			return g, true
		}
	}
	return "", false
}

// unknownRank sorts regions missing from the directory after every known one.
const unknownRank = 50

// regionRanks orders regions capital area first (1-3), then metropolitan
// cities (11-16), then provinces (21-28).
var regionRanks = map[string]int{
	"서울특별시": 1,
	"경기도":   2,
	"인천광역시": 3,

	"부산광역시":   11,
	"대구광역시":   12,
	"광주광역시":   13,
	"대전광역시":   14,
	"울산광역시":   15,
	"세종특별자치시": 16,

	"강원도":     21,
	"충청북도":    22,
	"충청남도":    23,
	"전라북도":    24,
	"전라남도":    25,
	"경상북도":    26,
	"경상남도":    27,
	"제주특별자치도": 28,
}

// cityRegion ties a city or county with its own subsidy table to its
// province.
type cityRegion struct {
	city     string
	province string
}

// cityRegions is ordered; containment matches take the first entry.
var cityRegions = []cityRegion{
	{"가평군", "경기도"}, {"양주시", "경기도"}, {"양평군", "경기도"},
	{"여주시", "경기도"}, {"연천군", "경기도"}, {"포천시", "경기도"},
	{"천안시", "충청남도"}, {"아산시", "충청남도"}, {"서산시", "충청남도"},
	{"당진시", "충청남도"}, {"보령시", "충청남도"},
	{"청주시", "충청북도"}, {"충주시", "충청북도"}, {"제천시", "충청북도"},
	{"춘천시", "강원도"}, {"원주시", "강원도"}, {"강릉시", "강원도"},
	{"창원시", "경상남도"}, {"진주시", "경상남도"}, {"김해시", "경상남도"},
	{"포항시", "경상북도"}, {"경주시", "경상북도"}, {"구미시", "경상북도"},
	{"전주시", "전라북도"}, {"익산시", "전라북도"}, {"군산시", "전라북도"},
	{"여수시", "전라남도"}, {"순천시", "전라남도"}, {"목포시", "전라남도"},
}

// parentRegions indexes cityRegions for exact lookups.
var parentRegions = func() map[string]string {
	m := make(map[string]string, len(cityRegions))
	for _, cr := range cityRegions {
		m[cr.city] = cr.province
	}
	return m
}()

// RegionRank returns the display rank of a region, 50 when unknown.
func RegionRank(name string) int {
	if rank, ok := regionRanks[name]; ok {
		return rank
	}
	return unknownRank
}

// IsKnownRegion reports whether the name is one of the directory regions.
func IsKnownRegion(name string) bool {
	_, ok := regionRanks[name]
	return ok
}

// RegionGroup returns the group of a directory region.
func RegionGroup(name string) (Group, bool) {
	rank, ok := regionRanks[name]
	if !ok {
		return "", false
	}
	switch {
	case rank < 10:
		return GroupCapitalArea, true
	case rank < 20:
		return GroupMetroCity, true
	default:
		return GroupProvince, true
	}
}

// regionLess orders by rank, then by name.
func regionLess(a, b string) bool {
	ra, rb := RegionRank(a), RegionRank(b)
	if ra != rb {
		return ra < rb
	}
	return a < b
}

// SortRegions returns the names ordered by rank, ties broken by name.
// The input slice is not modified.
func SortRegions(names []string) []string {
	out := append([]string(nil), names...)
	sort.SliceStable(out, func(i, j int) bool {
		return regionLess(out[i], out[j])
	})
	return out
}

// SortRegionRecords sorts region records in place with the SortRegions order.
func SortRegionRecords(regions []Region) {
	sort.SliceStable(regions, func(i, j int) bool {
		return regionLess(regions[i].Region, regions[j].Region)
	})
}

// AllRegions returns every directory region in display order.
func AllRegions() []string {
	names := make([]string, 0, len(regionRanks))
	for name := range regionRanks {
		names = append(names, name)
	}
	return SortRegions(names)
}

// RegionsByGroup returns the directory regions of a group in display order.
func RegionsByGroup(g Group) []string {
	var names []string
	for _, name := range AllRegions() {
		if got, _ := RegionGroup(name); got == g {
			names = append(names, name)
		}
	}
	return names
}

// ParentRegion returns the province a city or county belongs to. Directory
// regions are their own parent. Names ending in 시 or 군 are matched by
// containment in table order, so "경기 포천시" resolves to 경기도.
func ParentRegion(name string) (string, bool) {
	if IsKnownRegion(name) {
		return name, true
	}
	if p, ok := parentRegions[name]; ok {
		return p, true
	}
	if !strings.HasSuffix(name, "시") && !strings.HasSuffix(name, "군") {
		return "", false
	}
	for _, cr := range cityRegions {
		if strings.Contains(name, cr.city) {
			return cr.province, true
		}
	}
	return "", false
}
