package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/evsubsidy/internal/core"
	"github.com/JonMunkholm/evsubsidy/internal/logging"
)

// maxBodySize bounds calculate request bodies.
const maxBodySize = 64 << 10

// vehicleView is a vehicle with its URL slug.
type vehicleView struct {
	core.Vehicle
	Slug string `json:"slug"`
}

// regionGroupResponse answers /api/regions/{name}/group.
type regionGroupResponse struct {
	Region string     `json:"region"`
	Group  core.Group `json:"group"`
	Label  string     `json:"label"`
}

// clearCacheResponse answers /api/cache/clear.
type clearCacheResponse struct {
	Cleared bool        `json:"cleared"`
	Status  core.Status `json:"status"`
}

// handleListVehicles lists vehicles, optionally narrowed by manufacturer
// and a search query.
func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	vehicles := s.service.Search(r.Context(), core.VehicleFilter{
		Manufacturer: strings.TrimSpace(q.Get("manufacturer")),
		Query:        q.Get("q"),
	})

	out := make([]vehicleView, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, vehicleView{Vehicle: v, Slug: core.VehicleSlug(v.Model)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleVehiclesByManufacturer(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.VehiclesByManufacturer(r.Context()))
}

// handleVehicleBySlug finds a vehicle by the slug of its model name.
func (s *Server) handleVehicleBySlug(w http.ResponseWriter, r *http.Request) {
	slug := pathParam(r, "slug")
	mapped, hasMapped := core.VehicleNameFromSlug(slug)

	for _, v := range s.service.Vehicles(r.Context()) {
		if (hasMapped && v.Model == mapped) || core.VehicleSlug(v.Model) == slug {
			writeJSON(w, http.StatusOK, vehicleView{Vehicle: v, Slug: core.VehicleSlug(v.Model)})
			return
		}
	}
	s.respondError(w, r, fmt.Errorf("%w: %q", core.ErrVehicleNotFound, slug))
}

func (s *Server) handleListManufacturers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.service.Manufacturers(r.Context())))
}

// handleListRegions lists region records in directory order. The group
// parameter takes an identifier or a Korean label.
func (s *Server) handleListRegions(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("group"))
	if raw == "" {
		writeJSON(w, http.StatusOK, nonNil(s.service.Regions(r.Context())))
		return
	}

	g, ok := core.ParseGroup(raw)
	if !ok {
		s.respondError(w, r, fmt.Errorf("%w: %q", core.ErrUnknownGroup, raw))
		return
	}
	writeJSON(w, http.StatusOK, nonNil(s.service.RegionsByGroup(r.Context(), g)))
}

// handleRegionGroup reports the display group of a directory region.
func (s *Server) handleRegionGroup(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	g, ok := core.RegionGroup(name)
	if !ok {
		s.respondError(w, r, fmt.Errorf("%w: %q", core.ErrRegionNotFound, name))
		return
	}
	writeJSON(w, http.StatusOK, regionGroupResponse{Region: name, Group: g, Label: g.Label()})
}

// handleResolve returns the national and local subsidy of a vehicle in a region.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := core.CalculationRequest{
		VehicleID:    q.Get("vehicle"),
		Manufacturer: q.Get("manufacturer"),
		Model:        q.Get("model"),
	}
	id := req.ResolveVehicleID()
	if id == "" {
		s.respondError(w, r, core.ErrVehicleRequired)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Resolve(r.Context(), id, strings.TrimSpace(q.Get("region"))))
}

// handleCalculate scales the resolved subsidy by the price tier. GET reads
// query parameters; POST reads a JSON object or form fields.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	req, err := parseCalculation(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	calc, err := s.service.Calculate(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Debug("subsidy calculated",
		"vehicle_id", calc.Resolution.VehicleID,
		"region", calc.Resolution.Region,
		"match", calc.Resolution.Match,
		"tier", calc.Result.Tier,
	)
	writeJSON(w, http.StatusOK, calc)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Status(r.Context()))
}

// handleClearCache drops the cached dataset and reloads it from the sources.
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearCache(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("dataset cache cleared")
	writeJSON(w, http.StatusOK, clearCacheResponse{Cleared: true, Status: s.service.Status(r.Context())})
}

// calculateBody is the JSON form of a calculate request. Price may be a
// number or a string such as "5,500만원".
type calculateBody struct {
	Price        any    `json:"price"`
	VehicleID    string `json:"vehicleId"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Region       string `json:"region"`
	IncludeTax   bool   `json:"includeTax"`
}

func parseCalculation(w http.ResponseWriter, r *http.Request) (core.CalculationRequest, error) {
	if r.Method == http.MethodPost {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
			return parseCalculationJSON(r)
		}
	}
	if err := r.ParseForm(); err != nil {
		return core.CalculationRequest{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}

	price, err := core.ParsePrice(r.Form.Get("price"))
	if err != nil {
		return core.CalculationRequest{}, err
	}
	return core.CalculationRequest{
		Price:        price,
		VehicleID:    r.Form.Get("vehicle"),
		Manufacturer: r.Form.Get("manufacturer"),
		Model:        r.Form.Get("model"),
		Region:       strings.TrimSpace(r.Form.Get("region")),
		IncludeTax:   parseFlag(r.Form.Get("tax")),
	}, nil
}

func parseCalculationJSON(r *http.Request) (core.CalculationRequest, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var body calculateBody
	if err := dec.Decode(&body); err != nil {
		return core.CalculationRequest{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}

	var rawPrice string
	switch p := body.Price.(type) {
	case nil:
	case string:
		rawPrice = p
	case json.Number:
		rawPrice = p.String()
	default:
		return core.CalculationRequest{}, fmt.Errorf("%w: price must be a number or string", core.ErrInvalidPrice)
	}

	price, err := core.ParsePrice(rawPrice)
	if err != nil {
		return core.CalculationRequest{}, err
	}
	return core.CalculationRequest{
		Price:        price,
		VehicleID:    body.VehicleID,
		Manufacturer: body.Manufacturer,
		Model:        body.Model,
		Region:       strings.TrimSpace(body.Region),
		IncludeTax:   body.IncludeTax,
	}, nil
}

// parseFlag accepts the usual boolean spellings plus an HTML checkbox "on".
func parseFlag(s string) bool {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "on") {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// pathParam returns a decoded chi URL parameter.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return strings.TrimSpace(decoded)
	}
	return strings.TrimSpace(raw)
}

// nonNil keeps empty listings encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
