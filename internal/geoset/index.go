// 包 geoset：管理按区域命名的 GEO! 文件集合，提供坐标归属查询
package geoset

import (
	"os"
	"path/filepath"
	"strings"
	"tw-geodata/internal/logger"
	"tw-geodata/pkg/geodata"
)

// SetInfo：单个区域集合的对外描述
type SetInfo struct {
	Name     string `json:"name"`
	Polygons int    `json:"polygons"`
	Bytes    int    `json:"bytes"`
}

// Index：有序区域集合
// 背景：目录内每个 .geo 文件对应一个区域（文件名去后缀即区域名）；
// 查询按文件名顺序逐集合命中测试，首个包含该点的区域即为结果。
// 约束：构建完成后只读；热更新通过 DynamicIndex 整体替换。
type Index struct {
	names []string
	sets  []*geodata.GeoData
}

// LoadDir：加载目录下全部 .geo 文件
// 背景：任一文件校验失败则整体失败并释放已加载的集合，不提供部分可用状态。
func LoadDir(dir string) (*Index, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	ix := &Index{}
	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() || !strings.HasSuffix(name, ".geo") {
			continue
		}
		g, err := geodata.Load(filepath.Join(dir, name))
		if err != nil {
			logger.L().Error("geoset_load_error", "file", name, "err", err)
			ix.Close()
			return nil, err
		}
		region := strings.TrimSuffix(name, ".geo")
		ix.names = append(ix.names, region)
		ix.sets = append(ix.sets, g)
		logger.L().Debug("geoset_load", "region", region, "polygons", g.NumPolygons(), "bytes", g.Size())
	}
	logger.L().Info("geoset_loaded", "dir", dir, "regions", len(ix.sets))
	return ix, nil
}

// Locate：返回首个包含该坐标的区域名
// 背景：跨集合沿用 OR 语义；界外与非法坐标由底层直接判否。
func (ix *Index) Locate(lng, lat float64) (string, bool) {
	for i, g := range ix.sets {
		if g.Contains(lng, lat) {
			return ix.names[i], true
		}
	}
	return "", false
}

// Sets：已加载集合的描述列表（按扫描顺序）
func (ix *Index) Sets() []SetInfo {
	out := make([]SetInfo, 0, len(ix.sets))
	for i, g := range ix.sets {
		out = append(out, SetInfo{Name: ix.names[i], Polygons: g.NumPolygons(), Bytes: g.Size()})
	}
	return out
}

// Close：释放全部集合缓冲区；可重复调用
func (ix *Index) Close() {
	for _, g := range ix.sets {
		g.Close()
	}
}
