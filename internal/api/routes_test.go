package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"tw-geodata/internal/geoset"
	"tw-geodata/pkg/geodata"

	"github.com/matryer/is"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	dir := t.TempDir()
	var b geodata.Builder
	b.Add([]geodata.Coordinate{{Lng: 0, Lat: 0}, {Lng: 0, Lat: 1}, {Lng: 1, Lat: 1}, {Lng: 1, Lat: 0}})
	if err := geodata.WriteFile(filepath.Join(dir, "alpha.geo"), &b); err != nil {
		t.Fatal(err)
	}
	ix, err := geoset.LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ix.Close)
	var d geoset.DynamicIndex
	d.Set(ix)
	return BuildRoutes(nil, nil, &d, nil)
}

func getJSON(t *testing.T, mux *http.ServeMux, path string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatal(err)
		}
	}
	return rec.Code
}

func TestContainsHandler(t *testing.T) {
	is := is.New(t)
	t.Setenv("POINT_CACHE_ENABLE", "false")
	mux := newTestMux(t)

	var res containsResult
	is.Equal(getJSON(t, mux, "/contains?lng=0.5&lat=0.5", &res), http.StatusOK)
	is.True(res.Contained)
	is.Equal(res.Region, "alpha")

	// 未命中响应省略 region 字段，必须用全新结构体解码，避免残留上一次的值
	var miss containsResult
	is.Equal(getJSON(t, mux, "/contains?lng=5&lat=5", &miss), http.StatusOK)
	is.True(!miss.Contained)
	is.Equal(miss.Region, "")
}

func TestContainsHandlerBadInput(t *testing.T) {
	is := is.New(t)
	t.Setenv("POINT_CACHE_ENABLE", "false")
	mux := newTestMux(t)

	// 非法/缺失坐标与越界坐标均降级为未包含，不返回错误
	var res containsResult
	is.Equal(getJSON(t, mux, "/contains", &res), http.StatusOK)
	is.True(!res.Contained)
	is.Equal(getJSON(t, mux, "/contains?lng=abc&lat=0", &res), http.StatusOK)
	is.True(!res.Contained)
	is.Equal(getJSON(t, mux, "/contains?lng=200&lat=0", &res), http.StatusOK)
	is.True(!res.Contained)
}

func TestContainsHandlerWithLRU(t *testing.T) {
	is := is.New(t)
	t.Setenv("POINT_CACHE_ENABLE", "true")
	mux := newTestMux(t)

	// 同一坐标重复查询走进程内缓存，答案保持一致
	for i := 0; i < 3; i++ {
		var res containsResult
		is.Equal(getJSON(t, mux, "/contains?lng=0.5&lat=0.5", &res), http.StatusOK)
		is.True(res.Contained)
		is.Equal(res.Region, "alpha")
	}
}

func TestRegionsHandler(t *testing.T) {
	is := is.New(t)
	mux := newTestMux(t)

	var res struct {
		Regions []geoset.SetInfo `json:"regions"`
	}
	is.Equal(getJSON(t, mux, "/regions", &res), http.StatusOK)
	is.Equal(len(res.Regions), 1)
	is.Equal(res.Regions[0].Name, "alpha")
	is.Equal(res.Regions[0].Polygons, 1)
}

func TestStatsHandlerWithoutDB(t *testing.T) {
	is := is.New(t)
	mux := newTestMux(t)

	var res map[string]int64
	is.Equal(getJSON(t, mux, "/stats", &res), http.StatusOK)
	is.Equal(res["total"], int64(0))
}

func TestLocateWithoutMMDB(t *testing.T) {
	is := is.New(t)
	mux := newTestMux(t)
	req := httptest.NewRequest(http.MethodGet, "/locate?ip=1.2.3.4", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	is.Equal(rec.Code, http.StatusNotFound)
}

func TestGetClientIP(t *testing.T) {
	is := is.New(t)
	req := httptest.NewRequest(http.MethodGet, "/whereami?ip=9.9.9.9", nil)
	is.Equal(getClientIP(req), "9.9.9.9")

	req = httptest.NewRequest(http.MethodGet, "/whereami", nil)
	req.Header.Set("x-forwarded-for", "1.2.3.4, 5.6.7.8")
	is.Equal(getClientIP(req), "1.2.3.4")

	req = httptest.NewRequest(http.MethodGet, "/whereami", nil)
	req.RemoteAddr = "10.0.0.1:9999"
	is.Equal(getClientIP(req), "10.0.0.1")
}
