package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/evsubsidy/internal/logging"
	"github.com/JonMunkholm/evsubsidy/internal/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheKey is the cache key the merged dataset is stored under.
const DefaultCacheKey = "ev_final_data"

// Request validation errors.
var (
	ErrPriceRequired   = errors.New("price is required")
	ErrInvalidPrice    = errors.New("invalid price")
	ErrVehicleRequired = errors.New("vehicle is required")
	ErrUnknownGroup    = errors.New("unknown region group")
	ErrRegionNotFound  = errors.New("region not found")
	ErrVehicleNotFound = errors.New("vehicle not found")

	// ErrNoData is returned by Load when every source failed and no
	// dataset was loaded before.
	ErrNoData = errors.New("no data source produced a dataset")
)

// Source produces a dataset from one location.
type Source interface {
	Name() string
	Load(ctx context.Context) (*Dataset, error)
}

// Cache stores the merged dataset between runs.
// Get never fails: stale, corrupt or unreadable entries are a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, payload []byte) error
	Clear(ctx context.Context, key string) error
}

// SourceCache is the name reported for datasets served from the cache.
const SourceCache = "cache"

// Service is the data-access service: it owns the active dataset, loads it
// through the source chain and answers lookups and calculations against it.
// A Service is safe for concurrent use.
type Service struct {
	sources  []Source
	overlay  Source
	cache    Cache
	cacheKey string
	resolver *Resolver
	refresh  time.Duration
	now      func() time.Time

	group singleflight.Group

	mu    sync.RWMutex
	state *snapshot
}

type snapshot struct {
	ds       *Dataset
	source   string
	loadID   string
	loadedAt time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCache stores the merged dataset in c under key.
func WithCache(c Cache, key string) ServiceOption {
	return func(s *Service) {
		s.cache = c
		if key != "" {
			s.cacheKey = key
		}
	}
}

// WithOverlay merges the vehicle-region subsidies of src into whatever
// dataset the chain produced.
func WithOverlay(src Source) ServiceOption {
	return func(s *Service) { s.overlay = src }
}

// WithRefreshInterval reloads the dataset on first use after d has passed.
// Zero keeps the dataset until Reload is called.
func WithRefreshInterval(d time.Duration) ServiceOption {
	return func(s *Service) { s.refresh = d }
}

// WithResolver replaces the default resolver.
func WithResolver(r *Resolver) ServiceOption {
	return func(s *Service) { s.resolver = r }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service that tries sources in order.
// The dataset is loaded lazily on first use, or eagerly by Load.
func NewService(sources []Source, opts ...ServiceOption) *Service {
	s := &Service{
		sources:  sources,
		cacheKey: DefaultCacheKey,
		resolver: NewResolver(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Load makes sure a dataset is active, reading the cache first. It does
// nothing while the active dataset is fresh. Concurrent calls share one load.
func (s *Service) Load(ctx context.Context) error {
	return s.load(ctx, true)
}

// Reload bypasses the cache, walks the source chain and refreshes the cache.
func (s *Service) Reload(ctx context.Context) error {
	return s.load(ctx, false)
}

// ClearCache drops the cached dataset and reloads from the sources.
func (s *Service) ClearCache(ctx context.Context) error {
	if s.cache != nil {
		if err := s.cache.Clear(ctx, s.cacheKey); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
	}
	return s.Reload(ctx)
}

func (s *Service) load(ctx context.Context, useCache bool) error {
	key := "reload"
	if useCache {
		key = "load"
	}
	_, err, _ := s.group.Do(key, func() (any, error) {
		if useCache && s.fresh() {
			return nil, nil
		}
		snap, err := s.fetch(ctx, useCache)
		if err != nil {
			return nil, err
		}
		s.install(snap)
		return nil, nil
	})
	return err
}

// fetch walks cache -> sources -> overlay and returns the new snapshot.
func (s *Service) fetch(ctx context.Context, useCache bool) (*snapshot, error) {
	loadID := uuid.New().String()
	logger := logging.WithFields(ctx, "load_id", loadID)

	if useCache && s.cache != nil {
		if payload, ok := s.cache.Get(ctx, s.cacheKey); ok {
			ds, err := DecodeDataset(bytes.NewReader(payload))
			if err == nil && !ds.Empty() {
				logger.Info("dataset loaded", "source", SourceCache, "vehicles", len(ds.Vehicles))
				return &snapshot{ds: ds, source: SourceCache, loadID: loadID, loadedAt: s.now()}, nil
			}
			logger.Warn("cached dataset unusable, reloading", "error", err)
		}
	}

	var (
		ds     *Dataset
		winner string
	)
	for _, src := range s.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := s.loadSource(ctx, src)
		if err != nil {
			logger.Warn("data source failed, trying next", "source", src.Name(), "error", err)
			continue
		}
		ds, winner = got, src.Name()
		break
	}
	if ds == nil {
		return nil, ErrNoData
	}

	if s.overlay != nil && s.overlay.Name() != winner {
		if extra, err := s.loadSource(ctx, s.overlay); err != nil {
			logger.Warn("overlay source failed, using base dataset", "source", s.overlay.Name(), "error", err)
		} else if extra.Overrides.Len() > 0 {
			draft := ds.Draft()
			draft.Overrides.Merge(extra.Overrides)
			ds = draft.Build()
		}
	}

	if s.cache != nil {
		var buf bytes.Buffer
		if err := EncodeDataset(&buf, ds, true); err != nil {
			logger.Warn("encode dataset for cache", "error", err)
		} else if err := s.cache.Put(ctx, s.cacheKey, buf.Bytes()); err != nil {
			logger.Warn("cache write failed", "error", err)
		}
	}

	logger.Info("dataset loaded",
		"source", winner,
		"vehicles", len(ds.Vehicles),
		"regions", len(ds.Regions),
		"overrides", ds.Overrides.Len(),
	)
	return &snapshot{ds: ds, source: winner, loadID: loadID, loadedAt: s.now()}, nil
}

// loadSource runs one source and records its outcome.
func (s *Service) loadSource(ctx context.Context, src Source) (*Dataset, error) {
	start := time.Now()
	ds, err := src.Load(ctx)
	metrics.SourceLoadDuration.WithLabelValues(src.Name()).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		metrics.SourceLoads.WithLabelValues(src.Name(), metrics.LoadFailed).Inc()
		return nil, err
	case ds.Empty():
		metrics.SourceLoads.WithLabelValues(src.Name(), metrics.LoadEmpty).Inc()
		return nil, fmt.Errorf("%s: empty dataset", src.Name())
	}
	metrics.SourceLoads.WithLabelValues(src.Name(), metrics.LoadOK).Inc()
	return ds, nil
}

func (s *Service) install(snap *snapshot) {
	s.mu.Lock()
	s.state = snap
	s.mu.Unlock()

	metrics.DatasetVehicles.Set(float64(len(snap.ds.Vehicles)))
	metrics.DatasetOverrides.Set(float64(snap.ds.Overrides.Len()))
}

// fresh reports whether a dataset is loaded and within the refresh interval.
func (s *Service) fresh() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state != nil && (s.refresh <= 0 || s.now().Sub(s.state.loadedAt) < s.refresh)
}

// current returns the active snapshot, loading or refreshing it first when
// needed. A failed refresh keeps serving the previous dataset.
func (s *Service) current(ctx context.Context) *snapshot {
	if !s.fresh() {
		if err := s.Load(ctx); err != nil {
			logging.FromContext(ctx).Warn("dataset load failed", "error", err)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dataset returns the active dataset, or an empty one when nothing loaded.
func (s *Service) Dataset(ctx context.Context) *Dataset {
	snap := s.current(ctx)
	if snap == nil {
		return Draft{}.Build()
	}
	return snap.ds
}

// Vehicles returns every vehicle of the active dataset.
func (s *Service) Vehicles(ctx context.Context) []Vehicle {
	return append([]Vehicle(nil), s.Dataset(ctx).Vehicles...)
}

// Manufacturers returns the sorted, unique manufacturer names.
func (s *Service) Manufacturers(ctx context.Context) []string {
	return append([]string(nil), s.Dataset(ctx).Manufacturers...)
}

// Regions returns the region records in directory order.
func (s *Service) Regions(ctx context.Context) []Region {
	return append([]Region(nil), s.Dataset(ctx).Regions...)
}

// RegionsByGroup returns the region records of one group in directory order.
func (s *Service) RegionsByGroup(ctx context.Context, g Group) []Region {
	var out []Region
	for _, r := range s.Dataset(ctx).Regions {
		if r.Group == g {
			out = append(out, r)
		}
	}
	return out
}

// VehicleFilter narrows a vehicle listing.
type VehicleFilter struct {
	Manufacturer string // exact manufacturer name
	Query        string // case-insensitive substring of manufacturer or model
}

// Search returns the vehicles matching the filter, in dataset order.
func (s *Service) Search(ctx context.Context, f VehicleFilter) []Vehicle {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	var out []Vehicle
	for _, v := range s.Dataset(ctx).Vehicles {
		if f.Manufacturer != "" && v.Manufacturer != f.Manufacturer {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(v.Model), q) &&
			!strings.Contains(strings.ToLower(v.Manufacturer), q) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// ManufacturerVehicles is one manufacturer with its vehicles.
type ManufacturerVehicles struct {
	Manufacturer string    `json:"manufacturer"`
	Vehicles     []Vehicle `json:"vehicles"`
}

// VehiclesByManufacturer groups the vehicles by manufacturer, manufacturers
// sorted and vehicles sorted by model.
func (s *Service) VehiclesByManufacturer(ctx context.Context) []ManufacturerVehicles {
	ds := s.Dataset(ctx)
	byName := make(map[string][]Vehicle)
	for _, v := range ds.Vehicles {
		byName[v.Manufacturer] = append(byName[v.Manufacturer], v)
	}

	out := make([]ManufacturerVehicles, 0, len(byName))
	for _, m := range ds.Manufacturers {
		vs, ok := byName[m]
		if !ok {
			continue
		}
		sort.SliceStable(vs, func(i, j int) bool { return vs[i].Model < vs[j].Model })
		out = append(out, ManufacturerVehicles{Manufacturer: m, Vehicles: vs})
	}
	return out
}

// Resolve returns the subsidy pair of a vehicle in a region.
func (s *Service) Resolve(ctx context.Context, vehicleID, region string) Resolution {
	return s.resolver.Resolve(s.Dataset(ctx), vehicleID, region)
}

// CalculationRequest is the input of Service.Calculate. The vehicle is given
// by VehicleID, or by Manufacturer and Model when VehicleID is empty.
type CalculationRequest struct {
	Price        int    `json:"price"`
	VehicleID    string `json:"vehicleId"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Region       string `json:"region"`
	IncludeTax   bool   `json:"includeTax"`
}

// ResolveVehicleID returns the explicit ID, or the manufacturer_model form.
func (r CalculationRequest) ResolveVehicleID() string {
	if id := strings.TrimSpace(r.VehicleID); id != "" {
		return id
	}
	m, model := strings.TrimSpace(r.Manufacturer), strings.TrimSpace(r.Model)
	if m == "" || model == "" {
		return ""
	}
	return VehicleID(m, model)
}

// Calculation is a resolved and price-scaled subsidy.
type Calculation struct {
	Vehicle    *Vehicle   `json:"vehicle,omitempty"`
	Resolution Resolution `json:"resolution"`
	Result     Result     `json:"result"`
}

// Calculate resolves the subsidy of the requested vehicle and region and
// scales it by the price tier. Only a missing vehicle is an error; unknown
// vehicles and regions calculate with zero amounts.
func (s *Service) Calculate(ctx context.Context, req CalculationRequest) (Calculation, error) {
	id := req.ResolveVehicleID()
	if id == "" {
		return Calculation{}, ErrVehicleRequired
	}

	ds := s.Dataset(ctx)
	res := s.resolver.Resolve(ds, id, req.Region)

	var result Result
	if req.IncludeTax {
		result = CalculateWithTax(req.Price, res.NationalSubsidy, res.LocalSubsidy)
	} else {
		result = Calculate(req.Price, res.NationalSubsidy, res.LocalSubsidy)
	}
	metrics.Calculations.WithLabelValues(string(result.Tier)).Inc()

	calc := Calculation{Resolution: res, Result: result}
	if v, ok := ds.Vehicle(id); ok {
		calc.Vehicle = &v
	}
	return calc, nil
}

// Status describes the active dataset.
type Status struct {
	Source        string    `json:"source"`
	LoadID        string    `json:"loadId"`
	LoadedAt      time.Time `json:"loadedAt"`
	Vehicles      int       `json:"vehicles"`
	Regions       int       `json:"regions"`
	Manufacturers int       `json:"manufacturers"`
	Overrides     int       `json:"overrides"`
	Metadata      Metadata  `json:"metadata"`
}

// Status reports where the active dataset came from.
func (s *Service) Status(ctx context.Context) Status {
	snap := s.current(ctx)
	if snap == nil {
		return Status{}
	}
	return Status{
		Source:        snap.source,
		LoadID:        snap.loadID,
		LoadedAt:      snap.loadedAt,
		Vehicles:      len(snap.ds.Vehicles),
		Regions:       len(snap.ds.Regions),
		Manufacturers: len(snap.ds.Manufacturers),
		Overrides:     snap.ds.Overrides.Len(),
		Metadata:      snap.ds.Metadata,
	}
}

// maxPrice bounds parsed prices so they always fit an int.
var maxPrice = decimal.NewFromInt(math.MaxInt32)

// ParsePrice parses a user supplied price in 만원. Thousands separators and
// a trailing 만원 are accepted; fractions are floored. Prices above
// math.MaxInt32 are rejected.
func ParsePrice(s string) (int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "만원")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, ErrPriceRequired
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidPrice)
	}
	if d.GreaterThan(maxPrice) {
		return 0, fmt.Errorf("%w: %s is out of range", ErrInvalidPrice, s)
	}
	return int(d.Floor().IntPart()), nil
}
