package core

import (
	"path"
	"regexp"
	"strings"
)

// vehicleSlugs maps model names to their stable URL slugs. Order matters for
// partial matching: the first entry contained in (or containing) the name wins.
var vehicleSlugs = []struct {
	name string
	slug string
}{
	// 현대
	{"코나 Electric", "kona-electric"},
	{"아이오닉 5", "ioniq5"},
	{"아이오닉 6", "ioniq6"},
	{"NEXO", "nexo"},
	{"더 뉴 아이오닉 5", "new-ioniq5"},
	{"더 뉴 아이오닉 6", "new-ioniq6"},
	{"캐스퍼 Electric", "casper-electric"},
	{"아이오닉 7", "ioniq7"},

	// 기아
	{"EV6", "ev6"},
	{"더뉴EV6", "new-ev6"},
	{"EV9", "ev9"},
	{"EV3", "ev3"},
	{"EV4", "ev4"},
	{"The all-new Kia Niro EV", "niro-ev"},
	{"레이 EV", "ray-ev"},

	// 테슬라
	{"Model 3", "model3"},
	{"Model Y", "model-y"},
	{"Model S", "model-s"},
	{"Model X", "model-x"},

	// 제네시스
	{"Electrified G80", "g80-electrified"},
	{"Electrified GV70", "gv70-electrified"},
	{"GV60", "gv60"},

	// BMW, MINI
	{"i4", "i4"},
	{"iX", "ix"},
	{"i3", "i3"},
	{"i7", "i7"},
	{"iX1", "ix1"},
	{"iX2", "ix2"},
	{"MINI Cooper SE", "mini-cooper-se"},
	{"MINI Countryman SE", "mini-countryman-se"},
	{"MINI Aceman", "mini-aceman"},

	// 메르세데스-벤츠
	{"EQA", "eqa"},
	{"EQB", "eqb"},
	{"EQC", "eqc"},
	{"EQE", "eqe"},
	{"EQS", "eqs"},
	{"EQV", "eqv"},

	// 아우디
	{"Q4 e-tron", "q4-etron"},
	{"Q8 e-tron", "q8-etron"},
	{"e-tron GT", "etron-gt"},

	// 폭스바겐
	{"ID.4", "id4"},
	{"ID.5", "id5"},
	{"ID.6", "id6"},
	{"ID.7", "id7"},
	{"ID.Buzz", "id-buzz"},

	// 볼보
	{"XC40 Recharge", "xc40-recharge"},
	{"C40 Recharge", "c40-recharge"},
	{"EX30", "ex30"},
	{"EX90", "ex90"},

	// 기타
	{"BYD ATTO 3", "byd-atto3"},
	{"토레스 EVX", "torres-evx"},
	{"코란도 EV", "korando-ev"},
	{"CEVO-C SE", "cevo-c-se"},
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9\x{AC00}-\x{D7A3}]+`)

// VehicleSlug returns the URL slug of a model name: the mapped slug on an
// exact match, then on a partial match, else a slug derived from the name.
func VehicleSlug(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	for _, e := range vehicleSlugs {
		if e.name == name {
			return e.slug
		}
	}
	for _, e := range vehicleSlugs {
		if strings.Contains(name, e.name) || strings.Contains(e.name, name) {
			return e.slug
		}
	}

	s := slugUnsafe.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// VehicleNameFromSlug returns the mapped model name of a slug. A URL path is
// accepted; only its last segment is used.
func VehicleNameFromSlug(urlPath string) (string, bool) {
	slug := path.Base(strings.TrimSuffix(urlPath, "/"))
	for _, e := range vehicleSlugs {
		if e.slug == slug {
			return e.name, true
		}
	}
	return "", false
}
