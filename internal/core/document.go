package core

// document.go decodes the JSON dataset document. The decoder is lenient in
// the same way the tabular loaders are: numbers may arrive as JSON numbers or
// as strings ("1,234"), and values that fail to parse become zero instead of
// failing the whole document.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/JonMunkholm/evsubsidy/internal/schema"
)

// flexInt is an integer that accepts a JSON number or string.
type flexInt struct {
	Value int
	Set   bool // present, not null and not an empty string
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		if schema.CleanCell(s) == "" {
			return nil
		}
		f.Set = true
		f.Value = schema.ParseInt(s)
		return nil
	}

	f.Set = true
	// Numbers outside the int64 range become 0, like unparseable strings.
	if n, err := strconv.ParseFloat(string(b), 64); err == nil && n > math.MinInt64 && n < math.MaxInt64 {
		f.Value = int(n)
	}
	return nil
}

type documentVehicle struct {
	ID              string  `json:"id"`
	Manufacturer    string  `json:"manufacturer"`
	Model           string  `json:"model"`
	Category        string  `json:"category"`
	NationalSubsidy flexInt `json:"nationalSubsidy"`
	LocalSubsidy    flexInt `json:"localSubsidy"`
}

type documentRegion struct {
	Region        string  `json:"region"`
	AvgSubsidy    flexInt `json:"avgSubsidy"`
	MaxSubsidy    flexInt `json:"maxSubsidy"`
	MinSubsidy    flexInt `json:"minSubsidy"`
	VehicleCount  flexInt `json:"vehicleCount"`
	HasDetailData bool    `json:"hasDetailData"`
	ParentRegion  string  `json:"parentRegion"`
	Description   string  `json:"description"`
}

type documentMetadata struct {
	LastUpdated        string  `json:"lastUpdated"`
	Source             string  `json:"source"`
	Year               flexInt `json:"year"`
	TotalVehicles      flexInt `json:"totalVehicles"`
	TotalManufacturers flexInt `json:"totalManufacturers"`
	TotalRegions       flexInt `json:"totalRegions"`
	MajorCities        flexInt `json:"majorCities"`
}

type document struct {
	Vehicles               []documentVehicle             `json:"vehicles"`
	Regions                []documentRegion              `json:"regions"`
	Manufacturers          []string                      `json:"manufacturers"`
	Metadata               documentMetadata              `json:"metadata"`
	VehicleSubsidyByRegion map[string]map[string]flexInt `json:"vehicleSubsidyByRegion"`
}

// DecodeDocument reads a dataset document into a draft. Only malformed JSON
// is an error; missing or unparseable fields are left for Build to filter.
func DecodeDocument(r io.Reader) (Draft, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Draft{}, fmt.Errorf("decode dataset document: %w", err)
	}

	d := Draft{
		Rows:          make([]Row, 0, len(doc.Vehicles)),
		Regions:       make([]Region, 0, len(doc.Regions)),
		Manufacturers: doc.Manufacturers,
		Overrides:     make(Overrides),
		Metadata: Metadata{
			LastUpdated:        doc.Metadata.LastUpdated,
			Source:             doc.Metadata.Source,
			Year:               doc.Metadata.Year.Value,
			TotalVehicles:      doc.Metadata.TotalVehicles.Value,
			TotalManufacturers: doc.Metadata.TotalManufacturers.Value,
			TotalRegions:       doc.Metadata.TotalRegions.Value,
			MajorCities:        doc.Metadata.MajorCities.Value,
		},
	}

	for _, v := range doc.Vehicles {
		d.Rows = append(d.Rows, Row{
			ID:           v.ID,
			Manufacturer: v.Manufacturer,
			Model:        v.Model,
			Category:     v.Category,
			National:     v.NationalSubsidy.Value,
			Local:        v.LocalSubsidy.Value,
			HasNational:  v.NationalSubsidy.Set,
		})
	}

	for _, r := range doc.Regions {
		d.Regions = append(d.Regions, Region{
			Region:        r.Region,
			AvgSubsidy:    r.AvgSubsidy.Value,
			MaxSubsidy:    r.MaxSubsidy.Value,
			MinSubsidy:    r.MinSubsidy.Value,
			VehicleCount:  r.VehicleCount.Value,
			HasDetailData: r.HasDetailData,
			ParentRegion:  r.ParentRegion,
			Description:   r.Description,
		})
	}

	for region, byVehicle := range doc.VehicleSubsidyByRegion {
		for id, amount := range byVehicle {
			if amount.Set {
				d.Overrides.Set(region, id, amount.Value)
			}
		}
	}

	return d, nil
}

// DecodeDataset decodes and builds a dataset document in one step.
func DecodeDataset(r io.Reader) (*Dataset, error) {
	d, err := DecodeDocument(r)
	if err != nil {
		return nil, err
	}
	return d.Build(), nil
}

// EncodeDataset writes the dataset as a JSON document. With overrides false
// the vehicleSubsidyByRegion map is left out (the "light" document).
func EncodeDataset(w io.Writer, ds *Dataset, overrides bool) error {
	out := *ds
	if !overrides {
		out.Overrides = nil
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("encode dataset document: %w", err)
	}
	return nil
}
