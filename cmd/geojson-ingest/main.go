// 数据导入工具：解析 GeoJSON 并把区域外环写入 PostgreSQL
package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
	"tw-geodata/internal/logger"
	"tw-geodata/internal/store"
	"tw-geodata/internal/utils"
	"tw-geodata/pkg/geodata"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// 从 geometry 对象提取外环集合；Polygon 取第一环，MultiPolygon 逐面取第一环
// 约束：内环（洞）忽略；坐标按 GeoJSON 约定为 [lng, lat]
func ringsFromGeometry(g map[string]any) ([][]geodata.Coordinate, error) {
	typ, _ := g["type"].(string)
	coords, _ := g["coordinates"].([]any)
	ring := func(r []any) []geodata.Coordinate {
		out := make([]geodata.Coordinate, 0, len(r))
		for _, p := range r {
			pt, ok := p.([]any)
			if !ok || len(pt) < 2 {
				continue
			}
			lng, ok1 := pt[0].(float64)
			lat, ok2 := pt[1].(float64)
			if !ok1 || !ok2 {
				continue
			}
			out = append(out, geodata.Coordinate{Lng: lng, Lat: lat})
		}
		return out
	}
	switch typ {
	case "Polygon":
		if len(coords) == 0 {
			return nil, errors.New("polygon has no rings")
		}
		outer, ok := coords[0].([]any)
		if !ok {
			return nil, errors.New("bad polygon ring")
		}
		return [][]geodata.Coordinate{ring(outer)}, nil
	case "MultiPolygon":
		var out [][]geodata.Coordinate
		for _, poly := range coords {
			rings, ok := poly.([]any)
			if !ok || len(rings) == 0 {
				continue
			}
			outer, ok := rings[0].([]any)
			if !ok {
				continue
			}
			out = append(out, ring(outer))
		}
		if len(out) == 0 {
			return nil, errors.New("multipolygon has no rings")
		}
		return out, nil
	default:
		return nil, errors.New("unsupported geometry type: " + typ)
	}
}

// 取 feature 的区域名：REGION_NAME 覆盖一切，其次 properties 里常见的命名字段
func regionName(props map[string]any) string {
	if n := os.Getenv("REGION_NAME"); n != "" {
		return n
	}
	for _, k := range []string{"name", "Name", "NAME", "region", "id"} {
		if v, ok := props[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	path := os.Getenv("GEOJSON_PATH")
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	if path == "" {
		l.Error("geojson_path_missing")
		os.Exit(1)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		l.Error("geojson_read_error", "err", err)
		os.Exit(1)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		l.Error("geojson_parse_error", "err", err)
		os.Exit(1)
	}

	// Feature 与 FeatureCollection 统一成 feature 列表处理
	var features []map[string]any
	switch doc["type"] {
	case "FeatureCollection":
		fs, _ := doc["features"].([]any)
		for _, f := range fs {
			if m, ok := f.(map[string]any); ok {
				features = append(features, m)
			}
		}
	case "Feature":
		features = append(features, doc)
	case "Polygon", "MultiPolygon":
		features = append(features, map[string]any{"geometry": doc, "properties": map[string]any{}})
	default:
		l.Error("geojson_unsupported_root", "type", doc["type"])
		os.Exit(1)
	}

	st, err := store.Open(utils.BuildPostgresDSNFromEnv())
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	tag := os.Getenv("SOURCE_TAG")
	if tag == "" {
		tag = "geojson:" + strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	imported := 0
	for _, f := range features {
		props, _ := f["properties"].(map[string]any)
		name := regionName(props)
		if name == "" {
			l.Error("region_name_missing", "hint", "set REGION_NAME or a name property")
			continue
		}
		geom, ok := f["geometry"].(map[string]any)
		if !ok {
			l.Error("geometry_missing", "region", name)
			continue
		}
		rings, err := ringsFromGeometry(geom)
		if err != nil {
			l.Error("geometry_error", "region", name, "err", err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		id, err := st.UpsertRegion(ctx, name, tag)
		if err == nil {
			err = st.ReplacePolygons(ctx, id, rings)
		}
		cancel()
		if err != nil {
			l.Error("region_write_error", "region", name, "err", err)
			continue
		}
		imported++
		l.Info("region_imported", "region", name, "polygons", len(rings))
	}
	l.Info("ingest_done", "imported", imported, "features", len(features))
	if imported == 0 {
		os.Exit(1)
	}
}
