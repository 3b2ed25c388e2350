package source

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/evsubsidy/internal/core"
)

//go:embed fallback.yaml
var fallbackYAML []byte

// FallbackName is the name the embedded source reports.
const FallbackName = "fallback"

type fallbackDocument struct {
	Metadata struct {
		Source string `yaml:"source"`
		Year   int    `yaml:"year"`
	} `yaml:"metadata"`
	Vehicles []struct {
		Manufacturer    string `yaml:"manufacturer"`
		Model           string `yaml:"model"`
		Category        string `yaml:"category"`
		NationalSubsidy int    `yaml:"nationalSubsidy"`
		LocalSubsidy    int    `yaml:"localSubsidy"`
	} `yaml:"vehicles"`
	Regions []struct {
		Region     string `yaml:"region"`
		AvgSubsidy int    `yaml:"avgSubsidy"`
	} `yaml:"regions"`
}

// Fallback serves the dataset embedded in the binary. It is the last source
// of every chain and does not fail.
type Fallback struct{}

// NewFallback creates the embedded source.
func NewFallback() *Fallback { return &Fallback{} }

func (*Fallback) Name() string { return FallbackName }

func (*Fallback) Load(context.Context) (*core.Dataset, error) {
	draft, err := fallbackDraft()
	if err != nil {
		return nil, err
	}
	return draft.Build(), nil
}

// FallbackRegions returns the embedded region records.
func FallbackRegions() []core.Region {
	draft, err := fallbackDraft()
	if err != nil {
		return nil
	}
	return draft.Regions
}

func fallbackDraft() (core.Draft, error) {
	var doc fallbackDocument
	if err := yaml.Unmarshal(fallbackYAML, &doc); err != nil {
		return core.Draft{}, fmt.Errorf("decode embedded dataset: %w", err)
	}

	draft := core.Draft{
		Rows:    make([]core.Row, 0, len(doc.Vehicles)),
		Regions: make([]core.Region, 0, len(doc.Regions)),
		Metadata: core.Metadata{
			Source: doc.Metadata.Source,
			Year:   doc.Metadata.Year,
		},
	}
	for _, v := range doc.Vehicles {
		draft.Rows = append(draft.Rows, core.Row{
			Manufacturer: v.Manufacturer,
			Model:        v.Model,
			Category:     v.Category,
			National:     v.NationalSubsidy,
			Local:        v.LocalSubsidy,
			HasNational:  true,
		})
	}
	for _, r := range doc.Regions {
		draft.Regions = append(draft.Regions, core.Region{Region: r.Region, AvgSubsidy: r.AvgSubsidy})
	}
	return draft, nil
}
