package main

import (
	"os"
	"path/filepath"
	"tw-geodata/internal/geoset"
	"tw-geodata/internal/logger"
	"tw-geodata/internal/utils"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// 文档注释：从数据库物化区域集合文件
// 背景：服务启动时按需构建，但大库场景下离线预构建更省启动时间；
// 本工具把 _geo_regions/_geo_region_polygons 全量导出为目录下的 .geo 文件。
// 约束：输出目录内同名文件会被覆盖；写入采用临时文件加改名，构建中断不会留下半截文件。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	dir := os.Getenv("GEOSET_DIR")
	if dir == "" {
		dir = filepath.Join("data", "geoset")
	}
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := geoset.BuildFilesFromDB(dir, db); err != nil {
		l.Error("geoset_build_error", "err", err)
		os.Exit(1)
	}
	ix, err := geoset.LoadDir(dir)
	if err != nil {
		l.Error("geoset_verify_error", "err", err)
		os.Exit(1)
	}
	defer ix.Close()
	for _, s := range ix.Sets() {
		l.Info("geoset_built", "region", s.Name, "polygons", s.Polygons, "bytes", s.Bytes)
	}
}
