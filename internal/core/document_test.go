package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleDocument = `{
  "metadata": {"lastUpdated": "2025-07-12T19:10:09", "source": "환경부", "year": 2025, "totalVehicles": "3"},
  "vehicles": [
    {"id": "기아_EV6", "manufacturer": "기아", "model": "EV6", "nationalSubsidy": 655, "localSubsidy": 400},
    {"manufacturer": "기아", "model": "EV3", "nationalSubsidy": "565", "localSubsidy": "4,00"},
    {"manufacturer": "기아", "model": "EV9", "nationalSubsidy": null},
    {"manufacturer": "기아", "model": "레이 EV", "nationalSubsidy": ""},
    {"manufacturer": "BMW", "model": "iX", "nationalSubsidy": "abc"}
  ],
  "manufacturers": ["기아", "BMW", "기아"],
  "regions": [
    {"region": "제주특별자치도", "avgSubsidy": 600},
    {"region": "서울특별시", "avgSubsidy": "400", "maxSubsidy": 450, "minSubsidy": 350, "hasDetailData": true}
  ],
  "vehicleSubsidyByRegion": {
    "서울특별시": {"기아_EV6": 180, "기아_EV3": "175", "bad": null}
  }
}`

func TestDecodeDataset(t *testing.T) {
	ds, err := DecodeDataset(strings.NewReader(sampleDocument))
	if err != nil {
		t.Fatalf("DecodeDataset() error = %v", err)
	}

	ids := make([]string, len(ds.Vehicles))
	for i, v := range ds.Vehicles {
		ids[i] = v.ID
	}
	if diff := cmp.Diff([]string{"기아_EV6", "기아_EV3", "BMW_iX"}, ids); diff != "" {
		t.Errorf("vehicles mismatch (-want +got):\n%s", diff)
	}

	ev3, _ := ds.Vehicle("기아_EV3")
	if ev3.NationalSubsidy != 565 || ev3.LocalSubsidy != 400 {
		t.Errorf("EV3 = %+v, want national 565 local 400", ev3)
	}
	ix, _ := ds.Vehicle("BMW_iX")
	if ix.NationalSubsidy != 0 {
		t.Errorf("unparseable national = %d, want 0", ix.NationalSubsidy)
	}

	if diff := cmp.Diff([]string{"BMW", "기아"}, ds.Manufacturers); diff != "" {
		t.Errorf("manufacturers mismatch (-want +got):\n%s", diff)
	}

	if ds.Regions[0].Region != "서울특별시" || ds.Regions[0].AvgSubsidy != 400 || ds.Regions[0].MaxSubsidy != 450 {
		t.Errorf("first region = %+v", ds.Regions[0])
	}

	if got, ok := ds.Overrides.Lookup("서울특별시", "기아_EV3"); !ok || got != 175 {
		t.Errorf("override EV3 = (%d, %v), want (175, true)", got, ok)
	}
	if _, ok := ds.Overrides.Lookup("서울특별시", "bad"); ok {
		t.Error("null override should be dropped")
	}

	if ds.Metadata.Year != 2025 || ds.Metadata.TotalVehicles != 3 {
		t.Errorf("metadata = %+v", ds.Metadata)
	}
}

func TestFlexInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantSet bool
	}{
		{`655`, 655, true},
		{`686.7`, 686, true},
		{`"1,234"`, 1234, true},
		{`"18446744073709551616"`, 0, true},
		{`1e300`, 0, true},
		{`-1e300`, 0, true},
		{`18446744073709551616`, 0, true},
		{`null`, 0, false},
		{`""`, 0, false},
	}

	for _, tt := range tests {
		var f flexInt
		if err := f.UnmarshalJSON([]byte(tt.in)); err != nil {
			t.Fatalf("UnmarshalJSON(%s) error = %v", tt.in, err)
		}
		if f.Value != tt.want || f.Set != tt.wantSet {
			t.Errorf("UnmarshalJSON(%s) = %+v, want {Value:%d Set:%v}", tt.in, f, tt.want, tt.wantSet)
		}
	}
}

func TestDecodeDataset_Malformed(t *testing.T) {
	_, err := DecodeDataset(strings.NewReader(`{"vehicles": [`))
	if err == nil {
		t.Fatal("DecodeDataset() expected error for truncated JSON")
	}
	if !strings.Contains(err.Error(), "decode dataset document") {
		t.Errorf("error = %v", err)
	}
}

func TestEncodeDataset_RoundTrip(t *testing.T) {
	ds := testDataset()

	var full, light bytes.Buffer
	if err := EncodeDataset(&full, ds, true); err != nil {
		t.Fatalf("EncodeDataset(full) error = %v", err)
	}
	if err := EncodeDataset(&light, ds, false); err != nil {
		t.Fatalf("EncodeDataset(light) error = %v", err)
	}

	if !strings.Contains(full.String(), "vehicleSubsidyByRegion") {
		t.Error("full document lacks vehicleSubsidyByRegion")
	}
	if strings.Contains(light.String(), "vehicleSubsidyByRegion") {
		t.Error("light document carries vehicleSubsidyByRegion")
	}

	back, err := DecodeDataset(&full)
	if err != nil {
		t.Fatalf("DecodeDataset() error = %v", err)
	}
	if diff := cmp.Diff(ds, back, cmp.AllowUnexported(Dataset{})); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
