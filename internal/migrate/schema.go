package migrate

import (
	"database/sql"
	"tw-geodata/internal/logger"
)

// 背景：首次运行自动创建所需表与索引，保障后续导入与查询
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；仅创建最小必需结构
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _geo_regions (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL UNIQUE,
            source_tag TEXT NOT NULL DEFAULT ''
        )`,
		`CREATE TABLE IF NOT EXISTS _geo_region_polygons (
            region_id INT NOT NULL REFERENCES _geo_regions(id) ON DELETE CASCADE,
            seq INT NOT NULL,
            vertices DOUBLE PRECISION[] NOT NULL,
            PRIMARY KEY (region_id, seq)
        )`,
		`CREATE TABLE IF NOT EXISTS _geo_stats_total (
            id INT PRIMARY KEY,
            total_queries BIGINT NOT NULL DEFAULT 0,
            total_hits BIGINT NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS _geo_stats_daily (
            day DATE PRIMARY KEY,
            queries BIGINT NOT NULL DEFAULT 0,
            hits BIGINT NOT NULL DEFAULT 0
        )`,
		`INSERT INTO _geo_stats_total(id, total_queries, total_hits)
         VALUES(1, 0, 0)
         ON CONFLICT (id) DO NOTHING`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
