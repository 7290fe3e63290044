// 包 mmdb：GeoLite2 数据库查询，提供 IP 到坐标/城市信息的可选解析能力
package mmdb

import (
	"net"
	"os"
	"tw-geodata/internal/logger"

	"github.com/oschwald/geoip2-golang"
	"github.com/oschwald/maxminddb-golang"
)

// 文档注释：mmdb 双通道读取器
// 背景：热路径（/locate）只需坐标，用 maxminddb 自定义结构最小化解码；
// 详情路径（/whereami）需要城市与国家名称，用 geoip2 的完整记录。
// 约束：两个读取器共享同一份文件字节；文件缺失时服务降级运行（相关端点 404）。
type Reader struct {
	raw  *maxminddb.Reader
	city *geoip2.Reader
}

// 最小化解码结构：仅取经纬度，避免热路径解码整条城市记录
type coordRecord struct {
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

// Open：读取 mmdb 文件并构建两个读取器
func Open(path string) (*Reader, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := maxminddb.FromBytes(b)
	if err != nil {
		return nil, err
	}
	city, err := geoip2.FromBytes(b)
	if err != nil {
		raw.Close()
		return nil, err
	}
	logger.L().Info("mmdb_open_ok", "path", path)
	return &Reader{raw: raw, city: city}, nil
}

// Locate：返回 IP 的经纬度（经度在前，与 GEO! 坐标序一致）
func (r *Reader) Locate(ip string) (float64, float64, bool) {
	p := net.ParseIP(ip)
	if p == nil {
		return 0, 0, false
	}
	var rec coordRecord
	if err := r.raw.Lookup(p, &rec); err != nil {
		return 0, 0, false
	}
	if rec.Location.Latitude == 0 && rec.Location.Longitude == 0 {
		return 0, 0, false
	}
	return rec.Location.Longitude, rec.Location.Latitude, true
}

// City：完整城市记录（名称、国家码、定位精度半径）
func (r *Reader) City(ip string) (*geoip2.City, error) {
	p := net.ParseIP(ip)
	if p == nil {
		return nil, nil
	}
	return r.city.City(p)
}

func (r *Reader) Close() error {
	_ = r.city.Close()
	return r.raw.Close()
}
