package web

//go:generate templ generate -f page.templ

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/evsubsidy/internal/core"
	"github.com/JonMunkholm/evsubsidy/internal/logging"
)

// pageData is what the calculator page renders.
type pageData struct {
	Vehicles    []core.ManufacturerVehicles
	Regions     []core.Region
	Status      core.Status
	Form        pageForm
	Calculation *core.Calculation
	Error       *core.UserMessage
}

// pageForm echoes the submitted form back into the page.
type pageForm struct {
	Price   string
	Vehicle string
	Region  string
	Tax     bool
}

// handlePage renders the calculator. When the form was submitted the result,
// or the validation error, is rendered under it.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	data := pageData{
		Vehicles: s.service.VehiclesByManufacturer(ctx),
		Regions:  s.service.Regions(ctx),
		Status:   s.service.Status(ctx),
		Form: pageForm{
			Price:   q.Get("price"),
			Vehicle: q.Get("vehicle"),
			Region:  q.Get("region"),
			Tax:     parseFlag(q.Get("tax")),
		},
	}

	if q.Has("price") {
		if calc, err := s.pageCalculate(ctx, data.Form); err != nil {
			msg := core.MapError(err)
			data.Error = &msg
		} else {
			data.Calculation = &calc
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := calculatorPage(data).Render(ctx, w); err != nil {
		logging.FromContext(ctx).Error("render page", "error", err)
	}
}

func (s *Server) pageCalculate(ctx context.Context, f pageForm) (core.Calculation, error) {
	price, err := core.ParsePrice(f.Price)
	if err != nil {
		return core.Calculation{}, err
	}
	return s.service.Calculate(ctx, core.CalculationRequest{
		Price:      price,
		VehicleID:  f.Vehicle,
		Region:     strings.TrimSpace(f.Region),
		IncludeTax: f.Tax,
	})
}

// errorLine is the user message shown under the form.
func errorLine(m *core.UserMessage) string {
	return fmt.Sprintf("%s (%s). %s", m.Message, m.Code, m.Action)
}

// statusLine names the dataset source and when it was loaded.
func statusLine(st core.Status) string {
	if st.LoadedAt.IsZero() {
		return st.Source
	}
	return st.Source + " · " + st.LoadedAt.Format("2006-01-02 15:04")
}

func ratePercent(rate float64) string {
	return fmt.Sprintf("%.0f%%", rate*100)
}

func manwon(n int) string {
	s := fmt.Sprint(n)
	if n < 0 {
		return s + "만원"
	}
	var b strings.Builder
	for i, ch := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	return b.String() + "만원"
}
