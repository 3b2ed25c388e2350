package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/evsubsidy/internal/config"
	"github.com/JonMunkholm/evsubsidy/internal/core"
)

// ----------------------------------------------------------------------------
// Fixtures
// ----------------------------------------------------------------------------

type staticSource struct {
	loads atomic.Int32
}

func (*staticSource) Name() string { return "static" }

func (s *staticSource) Load(context.Context) (*core.Dataset, error) {
	s.loads.Add(1)
	return core.Draft{
		Rows: []core.Row{
			{Manufacturer: "현대", Model: "아이오닉 6", National: 680, Local: 400, HasNational: true},
			{Manufacturer: "기아", Model: "EV6", National: 655, Local: 400, HasNational: true},
		},
		Regions: []core.Region{
			{Region: "부산광역시", AvgSubsidy: 350},
			{Region: "서울특별시", AvgSubsidy: 400},
		},
		Overrides: core.Overrides{"서울특별시": {"기아_EV6": 500}},
		Metadata:  core.Metadata{Source: "test", Year: 2025},
	}.Build(), nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Rate:   config.RateLimitConfig{Enabled: false},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *staticSource) {
	t.Helper()
	src := &staticSource{}
	srv := NewServer(core.NewService([]core.Source{src}), cfg)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, src
}

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, srv *Server, path string, query url.Values) *httptest.ResponseRecorder {
	t.Helper()
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return do(t, srv, httptest.NewRequest(http.MethodGet, path, nil))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, code, resp.Code)
	assert.NotEmpty(t, resp.Message)
}

// ----------------------------------------------------------------------------
// Vehicles
// ----------------------------------------------------------------------------

func TestListVehicles(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	tests := []struct {
		name  string
		query url.Values
		want  []string
	}{
		{"all", nil, []string{"현대_아이오닉 6", "기아_EV6"}},
		{"manufacturer", url.Values{"manufacturer": {"기아"}}, []string{"기아_EV6"}},
		{"query", url.Values{"q": {"아이오닉"}}, []string{"현대_아이오닉 6"}},
		{"query case-insensitive", url.Values{"q": {"ev6"}}, []string{"기아_EV6"}},
		{"no match", url.Values{"q": {"모델 Y"}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, srv, "/api/vehicles", tt.query)
			require.Equal(t, http.StatusOK, rec.Code)

			got := []string{}
			for _, v := range decode[[]vehicleView](t, rec) {
				got = append(got, v.ID)
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestListVehicles_EmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	rec := get(t, srv, "/api/vehicles", url.Values{"manufacturer": {"테슬라"}})
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestVehicleBySlug(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := get(t, srv, "/api/vehicles/ioniq6", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[vehicleView](t, rec)
	assert.Equal(t, "현대_아이오닉 6", v.ID)
	assert.Equal(t, "ioniq6", v.Slug)
	assert.Equal(t, 680, v.NationalSubsidy)

	rec = get(t, srv, "/api/vehicles/ev6", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "기아_EV6", decode[vehicleView](t, rec).ID)

	assertErrorCode(t, get(t, srv, "/api/vehicles/cybertruck", nil), http.StatusNotFound, "NF002")
}

func TestVehiclesByManufacturer(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := get(t, srv, "/api/vehicles/by-manufacturer", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	groups := decode[[]core.ManufacturerVehicles](t, rec)
	require.Len(t, groups, 2)
	assert.Equal(t, "기아", groups[0].Manufacturer)
	assert.Equal(t, "현대", groups[1].Manufacturer)
}

func TestListManufacturers(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := get(t, srv, "/api/manufacturers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"기아", "현대"}, decode[[]string](t, rec))
}

// ----------------------------------------------------------------------------
// Regions
// ----------------------------------------------------------------------------

func TestListRegions(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := get(t, srv, "/api/regions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	regions := decode[[]core.Region](t, rec)
	require.Len(t, regions, 2)
	assert.Equal(t, "서울특별시", regions[0].Region, "directory order puts the capital first")
	assert.Equal(t, "부산광역시", regions[1].Region)

	for _, group := range []string{"metro-city", "광역시"} {
		rec := get(t, srv, "/api/regions", url.Values{"group": {group}})
		require.Equal(t, http.StatusOK, rec.Code, group)
		regions := decode[[]core.Region](t, rec)
		require.Len(t, regions, 1, group)
		assert.Equal(t, "부산광역시", regions[0].Region)
	}

	rec = get(t, srv, "/api/regions", url.Values{"group": {"province"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	assertErrorCode(t, get(t, srv, "/api/regions", url.Values{"group": {"islands"}}), http.StatusBadRequest, "REQ004")
}

func TestRegionGroup(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	tests := []struct {
		region    string
		wantGroup core.Group
		wantLabel string
	}{
		{"서울특별시", core.GroupCapitalArea, "수도권"},
		{"대구광역시", core.GroupMetroCity, "광역시"},
		{"제주특별자치도", core.GroupProvince, "도"},
	}

	for _, tt := range tests {
		rec := get(t, srv, "/api/regions/"+url.PathEscape(tt.region)+"/group", nil)
		require.Equal(t, http.StatusOK, rec.Code, tt.region)
		got := decode[regionGroupResponse](t, rec)
		assert.Equal(t, tt.region, got.Region)
		assert.Equal(t, tt.wantGroup, got.Group)
		assert.Equal(t, tt.wantLabel, got.Label)
	}

	rec := get(t, srv, "/api/regions/"+url.PathEscape("아틀란티스")+"/group", nil)
	assertErrorCode(t, rec, http.StatusNotFound, "NF001")
}

// ----------------------------------------------------------------------------
// Subsidies
// ----------------------------------------------------------------------------

func TestResolve(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	tests := []struct {
		name         string
		query        url.Values
		wantNational int
		wantLocal    int
		wantMatch    core.Match
	}{
		{"override", url.Values{"vehicle": {"기아_EV6"}, "region": {"서울특별시"}}, 655, 500, core.MatchExact},
		{"by manufacturer and model", url.Values{"manufacturer": {"기아"}, "model": {"EV6"}, "region": {"서울특별시"}}, 655, 500, core.MatchExact},
		{"region average", url.Values{"vehicle": {"현대_아이오닉 6"}, "region": {"부산광역시"}}, 680, 350, core.MatchRegionAverage},
		{"unknown region", url.Values{"vehicle": {"기아_EV6"}, "region": {"Atlantis"}}, 655, 0, core.MatchNone},
		{"unknown vehicle", url.Values{"vehicle": {"테슬라_모델 Y"}, "region": {"서울특별시"}}, 0, 400, core.MatchRegionAverage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, srv, "/api/subsidy", tt.query)
			require.Equal(t, http.StatusOK, rec.Code)
			res := decode[core.Resolution](t, rec)
			assert.Equal(t, tt.wantLocal, res.LocalSubsidy)
			assert.Equal(t, tt.wantMatch, res.Match)
			assert.Equal(t, tt.wantNational, res.NationalSubsidy)
		})
	}

	assertErrorCode(t, get(t, srv, "/api/subsidy", url.Values{"region": {"서울특별시"}}), http.StatusBadRequest, "REQ003")
}

func TestCalculate_Get(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := get(t, srv, "/api/calculate", url.Values{
		"price":   {"6000"},
		"vehicle": {"기아_EV6"},
		"region":  {"서울특별시"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	calc := decode[core.Calculation](t, rec)
	assert.Equal(t, core.TierHalf, calc.Result.Tier)
	assert.Equal(t, 327, calc.Result.NationalSubsidy)
	assert.Equal(t, 250, calc.Result.LocalSubsidy)
	assert.Equal(t, 577, calc.Result.TotalSubsidy)
	assert.Equal(t, 500, calc.Result.OriginalLocal)
	assert.Nil(t, calc.Result.Tax)
	require.NotNil(t, calc.Vehicle)
	assert.Equal(t, "EV6", calc.Vehicle.Model)
}

func TestCalculate_PostJSON(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	body := `{"price":"6,000만원","manufacturer":"기아","model":"EV6","region":"부산광역시","includeTax":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/calculate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[core.Calculation](t, rec).Result
	assert.Equal(t, 327, res.NationalSubsidy)
	assert.Equal(t, 175, res.LocalSubsidy)
	assert.Equal(t, 502, res.TotalSubsidy)
	require.NotNil(t, res.Tax)
	assert.Equal(t, core.Tax{BaseTax: 420, Reduction: 140, FinalTax: 280}, *res.Tax)
	require.NotNil(t, res.FinalPrice)
	assert.Equal(t, 6000+280-502, *res.FinalPrice)
}

func TestCalculate_PostJSONNumericPrice(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/calculate",
		strings.NewReader(`{"price":4800.9,"vehicleId":"현대_아이오닉 6","region":"부산광역시"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[core.Calculation](t, rec).Result
	assert.Equal(t, 4800, res.Price)
	assert.Equal(t, core.TierFull, res.Tier)
	assert.Equal(t, 680+350, res.TotalSubsidy)
}

func TestCalculate_PostForm(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	form := url.Values{"price": {"9000"}, "vehicle": {"기아_EV6"}, "region": {"서울특별시"}, "tax": {"on"}}
	req := httptest.NewRequest(http.MethodPost, "/api/calculate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[core.Calculation](t, rec).Result
	assert.Equal(t, core.TierNone, res.Tier)
	assert.Zero(t, res.TotalSubsidy)
	require.NotNil(t, res.Tax)
	assert.Equal(t, 630, res.Tax.BaseTax)
}

func TestCalculate_Errors(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	tests := []struct {
		name        string
		contentType string
		body        string
		query       url.Values
		wantCode    string
	}{
		{"missing price", "", "", url.Values{"vehicle": {"기아_EV6"}}, "REQ001"},
		{"invalid price", "", "", url.Values{"price": {"abc"}, "vehicle": {"기아_EV6"}}, "REQ002"},
		{"negative price", "", "", url.Values{"price": {"-1"}, "vehicle": {"기아_EV6"}}, "REQ002"},
		{"missing vehicle", "", "", url.Values{"price": {"5000"}}, "REQ003"},
		{"malformed json", "application/json", `{"price":`, nil, "REQ005"},
		{"boolean price", "application/json", `{"price":true,"vehicleId":"기아_EV6"}`, nil, "REQ002"},
		{"oversized json price", "application/json", `{"price":18446744073709551616,"vehicleId":"기아_EV6"}`, nil, "REQ002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(http.MethodPost, "/api/calculate", strings.NewReader(tt.body))
				req.Header.Set("Content-Type", tt.contentType)
			} else {
				req = httptest.NewRequest(http.MethodGet, "/api/calculate?"+tt.query.Encode(), nil)
			}
			assertErrorCode(t, do(t, srv, req), http.StatusBadRequest, tt.wantCode)
		})
	}
}

// ----------------------------------------------------------------------------
// Dataset
// ----------------------------------------------------------------------------

func TestStatus(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := get(t, srv, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[core.Status](t, rec)
	assert.Equal(t, "static", st.Source)
	assert.NotEmpty(t, st.LoadID)
	assert.Equal(t, 2, st.Vehicles)
	assert.Equal(t, 2, st.Regions)
	assert.Equal(t, 1, st.Overrides)
}

func TestClearCache(t *testing.T) {
	srv, src := newTestServer(t, testConfig())

	first := decode[core.Status](t, get(t, srv, "/api/status", nil))
	require.EqualValues(t, 1, src.loads.Load())

	rec := do(t, srv, httptest.NewRequest(http.MethodPost, "/api/cache/clear", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[clearCacheResponse](t, rec)
	assert.True(t, resp.Cleared)
	assert.NotEqual(t, first.LoadID, resp.Status.LoadID)
	assert.EqualValues(t, 2, src.loads.Load())

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/cache/clear", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	get(t, srv, "/api/status", nil)

	rec := get(t, srv, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "evsubsidy_dataset_vehicles 2")
}

// ----------------------------------------------------------------------------
// Page
// ----------------------------------------------------------------------------

func TestPage(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := get(t, srv, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "전기차 보조금 계산기")
	assert.Contains(t, body, `<option value="기아_EV6">EV6</option>`)
	assert.Contains(t, body, `<optgroup label="현대">`)
	assert.NotContains(t, body, "총 보조금")
}

func TestPage_Result(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := get(t, srv, "/", url.Values{
		"price":   {"6000"},
		"vehicle": {"기아_EV6"},
		"region":  {"부산광역시"},
		"tax":     {"on"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<option value="기아_EV6" selected>`)
	assert.Contains(t, body, "<td>총 보조금</td><td>502만원</td>")
	assert.Contains(t, body, "<td>실구매가</td><td>5,778만원</td>")
	assert.Contains(t, body, "지역 평균")
}

func TestPage_Error(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := get(t, srv, "/", url.Values{"price": {"<b>많이</b>"}, "vehicle": {"기아_EV6"}})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "REQ002")
	assert.NotContains(t, body, "<b>많이</b>")
	assert.Contains(t, body, "&lt;b&gt;")
}

func TestManwon(t *testing.T) {
	tests := map[int]string{0: "0만원", 502: "502만원", 5778: "5,778만원", 1234567: "1,234,567만원"}
	for in, want := range tests {
		assert.Equal(t, want, manwon(in), fmt.Sprint(in))
	}
}

// ----------------------------------------------------------------------------
// Middleware
// ----------------------------------------------------------------------------

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := get(t, srv, "/api/manufacturers", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 2}
	srv, _ := newTestServer(t, cfg)

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/manufacturers", nil)
		req.RemoteAddr = remote
		return do(t, srv, req)
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1235").Code)

	rec := send("10.0.0.1:1236")
	assertErrorCode(t, rec, http.StatusTooManyRequests, "RATE001")
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, send("10.0.0.2:1234").Code, "buckets are per IP")
}

func TestRateLimiter_Evict(t *testing.T) {
	rl := newRateLimiter(60, 1)
	defer rl.stop()

	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ok, _ := rl.reserve("10.0.0.1")
	require.True(t, ok)
	ok, wait := rl.reserve("10.0.0.1")
	require.False(t, ok)
	assert.InDelta(t, time.Second, wait, float64(10*time.Millisecond))

	now = now.Add(visitorTTL + time.Second)
	rl.evict()
	rl.mu.Lock()
	assert.Empty(t, rl.visitors)
	rl.mu.Unlock()

	rl.stop() // idempotent
}

// ----------------------------------------------------------------------------
// Errors
// ----------------------------------------------------------------------------

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrPriceRequired, http.StatusBadRequest},
		{fmt.Errorf("%w: %q", core.ErrInvalidPrice, "x"), http.StatusBadRequest},
		{core.ErrVehicleRequired, http.StatusBadRequest},
		{fmt.Errorf("%w: boom", errBadRequest), http.StatusBadRequest},
		{core.ErrRegionNotFound, http.StatusNotFound},
		{core.ErrVehicleNotFound, http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("clear cache: cache backend down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestWantsJSON(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		header string
		value  string
		want   bool
	}{
		{"api path", "/api/status", "", "", true},
		{"accept", "/", "Accept", "application/json", true},
		{"content type", "/", "Content-Type", "application/json", true},
		{"page", "/", "Accept", "text/html", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			assert.Equal(t, tt.want, wantsJSON(req))
		})
	}
}
