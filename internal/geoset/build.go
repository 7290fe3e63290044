package geoset

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"tw-geodata/internal/logger"
	"tw-geodata/pkg/geodata"

	"github.com/lib/pq"
)

// 文档注释：从数据库构建 .geo 文件目录
// 背景：区域与顶点数据以行存形式入库（geojson-ingest 导入），查询服务只消费
// 构建产物；每个区域产出一个独立文件，顶点数组按 lng,lat 交替展开存储。
// 约束：逐文件临时写入后原子改名；产物构建完成后回读校验，坏文件不落地。
func BuildFilesFromDB(dir string, db *sql.DB) error {
	logger.L().Info("geoset_build_begin", "dir", dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	rows, err := db.Query("SELECT id, name FROM _geo_regions ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()
	type region struct {
		id   int
		name string
	}
	var regions []region
	for rows.Next() {
		var r region
		if err := rows.Scan(&r.id, &r.name); err != nil {
			return err
		}
		regions = append(regions, r)
	}
	for _, r := range regions {
		prows, err := db.Query("SELECT vertices FROM _geo_region_polygons WHERE region_id=$1 ORDER BY seq", r.id)
		if err != nil {
			return err
		}
		var b geodata.Builder
		for prows.Next() {
			var arr pq.Float64Array
			if err := prows.Scan(&arr); err != nil {
				prows.Close()
				return err
			}
			coords := make([]geodata.Coordinate, 0, len(arr)/2)
			for i := 0; i+1 < len(arr); i += 2 {
				coords = append(coords, geodata.Coordinate{Lng: arr[i], Lat: arr[i+1]})
			}
			b.Add(coords)
		}
		if err := prows.Close(); err != nil {
			return err
		}
		fp := filepath.Join(dir, FileName(r.name))
		if err := geodata.WriteFile(fp, &b); err != nil {
			return err
		}
		// 回读校验：构建方自证产物可被加载方接受
		g, err := geodata.Load(fp)
		if err != nil {
			_ = os.Remove(fp)
			logger.L().Error("geoset_build_verify_error", "region", r.name, "err", err)
			return err
		}
		g.Close()
		logger.L().Debug("geoset_build_file", "region", r.name, "polygons", b.NumPolygons())
	}
	logger.L().Info("geoset_build_done", "regions", len(regions))
	return nil
}

// FileName：区域名到文件名的确定性映射
// 约束：仅替换路径分隔与空白，保持名称可逆（加载侧去掉 .geo 后缀即得区域名）。
func FileName(region string) string {
	s := strings.TrimSpace(region)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, string(os.PathSeparator), "_")
	s = strings.ReplaceAll(s, " ", "-")
	return s + ".geo"
}
