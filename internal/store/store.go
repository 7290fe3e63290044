// 包 store: 提供与 PostgreSQL 的数据访问层，包含区域/多边形读写与统计
package store

import (
	"context"
	"database/sql"
	"tw-geodata/internal/logger"
	"tw-geodata/pkg/geodata"

	"github.com/lib/pq"
)

// Store: 数据库访问入口，持有连接池并提供区域与统计接口
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Open: 使用 DSN 打开数据库连接并配置连接池参数
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	return &Store{db: db}, nil
}

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Region: 区域记录，名称唯一；source_tag 标记数据来源批次
type Region struct {
	ID        int
	Name      string
	SourceTag string
	Polygons  int
}

// UpsertRegion: 按名称写入或复用区域，返回区域 id
func (s *Store) UpsertRegion(ctx context.Context, name, sourceTag string) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx, `INSERT INTO _geo_regions(name, source_tag) VALUES($1,$2)
        ON CONFLICT (name) DO UPDATE SET source_tag=EXCLUDED.source_tag
        RETURNING id`, name, sourceTag).Scan(&id)
	if err != nil {
		return 0, err
	}
	logger.L().Debug("region_upsert", "name", name, "id", id)
	return id, nil
}

// ReplacePolygons: 整体替换区域的多边形集合
// 背景：导入以区域为原子单位，不做逐多边形编辑；顶点按 lng,lat 交替展开为浮点数组。
func (s *Store) ReplacePolygons(ctx context.Context, regionID int, polys [][]geodata.Coordinate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM _geo_region_polygons WHERE region_id=$1", regionID); err != nil {
		return err
	}
	for seq, p := range polys {
		flat := make([]float64, 0, len(p)*2)
		for _, c := range p {
			flat = append(flat, c.Lng, c.Lat)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO _geo_region_polygons(region_id, seq, vertices)
            VALUES($1,$2,$3)`, regionID, seq, pq.Array(flat)); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logger.L().Debug("region_polygons_replaced", "region_id", regionID, "polygons", len(polys))
	return nil
}

// ListRegions: 区域全集（含多边形数量），供接口与构建工具使用
func (s *Store) ListRegions(ctx context.Context) ([]Region, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT r.id, r.name, r.source_tag, COUNT(p.region_id)
        FROM _geo_regions r
        LEFT JOIN _geo_region_polygons p ON p.region_id = r.id
        GROUP BY r.id, r.name, r.source_tag
        ORDER BY r.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Region
	for rows.Next() {
		var r Region
		if err := rows.Scan(&r.ID, &r.Name, &r.SourceTag, &r.Polygons); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RegionPolygons: 读取区域的全部多边形（按 seq 顺序，即文件内存储顺序）
func (s *Store) RegionPolygons(ctx context.Context, regionID int) ([][]geodata.Coordinate, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT vertices FROM _geo_region_polygons WHERE region_id=$1 ORDER BY seq", regionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out [][]geodata.Coordinate
	for rows.Next() {
		var arr pq.Float64Array
		if err := rows.Scan(&arr); err != nil {
			return nil, err
		}
		coords := make([]geodata.Coordinate, 0, len(arr)/2)
		for i := 0; i+1 < len(arr); i += 2 {
			coords = append(coords, geodata.Coordinate{Lng: arr[i], Lat: arr[i+1]})
		}
		out = append(out, coords)
	}
	return out, rows.Err()
}

// IncrStats: 查询后递增总计与当日计数；命中时同步递增命中计数
func (s *Store) IncrStats(ctx context.Context, hit bool) error {
	_, _ = s.db.ExecContext(ctx, "UPDATE _geo_stats_total SET total_queries=total_queries+1 WHERE id=1")
	_, _ = s.db.ExecContext(ctx, "INSERT INTO _geo_stats_daily(day, queries) VALUES(current_date, 1) ON CONFLICT (day) DO UPDATE SET queries=_geo_stats_daily.queries+1")
	if hit {
		_, _ = s.db.ExecContext(ctx, "UPDATE _geo_stats_total SET total_hits=total_hits+1 WHERE id=1")
		_, _ = s.db.ExecContext(ctx, "INSERT INTO _geo_stats_daily(day, hits) VALUES(current_date, 1) ON CONFLICT (day) DO UPDATE SET hits=_geo_stats_daily.hits+1")
	}
	return nil
}

// Totals: 统计返回结构，包含累计与当日查询次数及命中数
type Totals struct {
	Total     int64
	Today     int64
	TotalHits int64
}

// GetTotals: 读取累计与当日查询次数，用于接口返回
func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	var t Totals
	row := s.db.QueryRowContext(ctx, "SELECT total_queries, total_hits FROM _geo_stats_total WHERE id=1")
	_ = row.Scan(&t.Total, &t.TotalHits)
	row2 := s.db.QueryRowContext(ctx, "SELECT queries FROM _geo_stats_daily WHERE day=current_date")
	_ = row2.Scan(&t.Today)
	logger.L().Debug("stats_totals", "total", t.Total, "today", t.Today, "hits", t.TotalHits)
	return &t, nil
}
