package schema

// Columns of the per-region subsidy CSV export.
var (
	RegionColumn       = FieldSpec{Name: "지역", Type: FieldText}
	ModelColumn        = FieldSpec{Name: "모델명", Aliases: []string{"차종"}, Type: FieldText, Required: true}
	ManufacturerColumn = FieldSpec{Name: "제조사", Type: FieldText, Required: true}
	NationalColumn     = FieldSpec{Name: "국비보조금(만원)", Type: FieldNumeric, Required: true}
	LocalColumn        = FieldSpec{Name: "지방비보조금(만원)", Type: FieldNumeric}
)

// SubsidyCSV defines the expected columns of the subsidy CSV export.
var SubsidyCSV = []FieldSpec{
	RegionColumn,
	ModelColumn,
	ManufacturerColumn,
	NationalColumn,
	LocalColumn,
}

// SheetLayout gives the positional columns of a spreadsheet range response.
// Spreadsheet rows carry no usable header names, so cells are addressed by index.
type SheetLayout struct {
	Manufacturer int
	Model        int
	National     int
	Local        int
}

// DefaultSheetLayout matches the "2025 <region>!A:G" ranges: column B holds
// the vehicle class and is ignored.
var DefaultSheetLayout = SheetLayout{
	Manufacturer: 0,
	Model:        2,
	National:     3,
	Local:        4,
}

// Cell returns the cleaned value at pos, or "" when the row is short.
func (l SheetLayout) Cell(row []string, pos int) string {
	if pos < 0 || pos >= len(row) {
		return ""
	}
	return CleanCell(row[pos])
}
