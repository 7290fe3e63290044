// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"
	"tw-geodata/internal/geoset"
	"tw-geodata/internal/logger"
	"tw-geodata/internal/metrics"
	"tw-geodata/internal/mmdb"
	"tw-geodata/internal/store"

	"github.com/redis/go-redis/v9"
)

// 缓存键的 geohash 精度：7 位约 150m，足够命中热点又不至于过度合并
const cacheKeyPrecision = 7

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	_ = json.NewEncoder(w).Encode(v)
}

// BuildRoutes：构建并返回 API 路由
// 背景：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀；store/redis/mmdb 均可为 nil（降级运行）。
func BuildRoutes(st *store.Store, rc *redis.Client, ix *geoset.DynamicIndex, mr *mmdb.Reader) *http.ServeMux {
	cacheEnabled := os.Getenv("POINT_CACHE_ENABLE") != "false"
	ttl := 3600
	if s := os.Getenv("POINT_CACHE_TTL_S"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			ttl = n
		}
	}
	lru := geoset.NewLRU(4096, ttl)

	// locate：缓存前置的归属判定，/contains 与 /locate 共用
	locate := func(ctx context.Context, lng, lat float64, visitor string) (string, bool) {
		if !cacheEnabled {
			region, ok := ix.Locate(lng, lat)
			countQuery(ctx, st, rc, visitor, "", region, ok)
			return region, ok
		}
		key := "pt:" + geoset.EncodeGeohash(lat, lng, cacheKeyPrecision)
		if v, ok := lru.Get(key); ok {
			metrics.LRUHitsTotal.Inc()
			return v.Region, v.Contained
		}
		if rc != nil {
			if s, _ := rc.Get(ctx, key).Result(); s != "" {
				metrics.RedisHitsTotal.Inc()
				var v geoset.PointAnswer
				_ = json.Unmarshal([]byte(s), &v)
				lru.Set(key, v)
				return v.Region, v.Contained
			}
			metrics.RedisMissesTotal.Inc()
		}
		region, ok := ix.Locate(lng, lat)
		v := geoset.PointAnswer{Region: region, Contained: ok}
		lru.Set(key, v)
		if rc != nil {
			b, _ := json.Marshal(v)
			rc.Set(ctx, key, string(b), time.Duration(ttl)*time.Second)
		}
		countQuery(ctx, st, rc, visitor, key, region, ok)
		return region, ok
	}

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/contains", func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		metrics.RequestsTotal.Inc()
		defer func() { metrics.RequestDurationMs.Observe(float64(time.Since(t0).Milliseconds())) }()
		q := r.URL.Query()
		lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
		lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
		var res containsResult
		if errLng != nil || errLat != nil {
			// 查询路径无错误条件：非法输入一律降级为未包含
			writeJSON(w, res)
			return
		}
		res.Lng = lng
		res.Lat = lat
		if lng < -180 || lng > 180 || lat < -180 || lat > 180 {
			metrics.OutOfRangeTotal.Inc()
			writeJSON(w, res)
			return
		}
		region, ok := locate(r.Context(), lng, lat, getClientIP(r))
		res.Contained = ok
		res.Region = region
		if ok {
			metrics.HitsTotal.Inc()
		} else {
			metrics.MissesTotal.Inc()
		}
		writeJSON(w, res)
	})

	apiMux.HandleFunc("/locate", func(w http.ResponseWriter, r *http.Request) {
		if mr == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		ip := getClientIP(r)
		res := locateResult{IP: ip}
		lng, lat, ok := mr.Locate(ip)
		if !ok {
			metrics.MMDBLookupsTotal.WithLabelValues("miss").Inc()
			writeJSON(w, res)
			return
		}
		metrics.MMDBLookupsTotal.WithLabelValues("hit").Inc()
		res.Found = true
		res.Lng = lng
		res.Lat = lat
		res.Region, res.Contained = locate(r.Context(), lng, lat, ip)
		writeJSON(w, res)
	})

	apiMux.HandleFunc("/whereami", func(w http.ResponseWriter, r *http.Request) {
		if mr == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		ip := getClientIP(r)
		res := whereamiResult{IP: ip}
		rec, err := mr.City(ip)
		if err != nil || rec == nil {
			metrics.MMDBLookupsTotal.WithLabelValues("miss").Inc()
			writeJSON(w, res)
			return
		}
		metrics.MMDBLookupsTotal.WithLabelValues("hit").Inc()
		res.City = rec.City.Names["en"]
		res.Country = rec.Country.IsoCode
		res.Lng = rec.Location.Longitude
		res.Lat = rec.Location.Latitude
		res.Region, res.Contained = locate(r.Context(), res.Lng, res.Lat, ip)
		writeJSON(w, res)
	})

	apiMux.HandleFunc("/regions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"regions": ix.Sets()})
	})

	apiMux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		m := map[string]any{"total": int64(0), "today": int64(0), "hits": int64(0)}
		if st != nil {
			t, err := st.GetTotals(r.Context())
			if err != nil || t == nil {
				writeJSON(w, m)
				return
			}
			m["total"] = t.Total
			m["today"] = t.Today
			m["hits"] = t.TotalHits
		}
		writeJSON(w, m)
	})

	return apiMux
}

// countQuery：统计一次归属查询
// 背景：同一访问者对同一坐标格的重复查询经布隆位图短周期去重，统计口径为“去重后查询数”；
// 无数据库时静默跳过，统计不阻断主流程。
func countQuery(ctx context.Context, st *store.Store, rc *redis.Client, visitor, cell, region string, hit bool) {
	if st == nil {
		return
	}
	if visitor != "" && cell != "" {
		key := "seen:" + time.Now().Format("20060102")
		first, err := bloomCheckAndSet(ctx, rc, key, bloomPositions([]byte(visitor+"|"+cell), 1<<22, 4), 24*time.Hour)
		if err == nil && !first {
			return
		}
	}
	if err := st.IncrStats(ctx, hit); err != nil {
		logger.L().Debug("stats_incr_error", "err", err)
	}
	logger.L().Debug("query_counted", "region", region, "hit", hit)
}
