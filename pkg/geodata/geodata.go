// 包 geodata：GEO! 多边形集合文件的解析、校验与命中判定
// 背景：自定义二进制格式，面向低内存高频命中测试；加载一次、查询多次。
// 约束：
// 1) 不依赖项目内部代码，提供独立包以便在其他项目直接复用；
// 2) 文件内容视为不可信输入，所有计数必须先经边界校验再被使用；
// 3) 加载成功后结构只读，可在多个 goroutine 间共享查询（销毁需外部同步）。
package geodata

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
)

// FILE LAYOUT（小端，无填充）：
//   bytes[4]  magic = "GEO!"
//   uint32    num_polygons
//   POLYGON[num_polygons]
// POLYGON：
//   uint32    num_coordinates
//   COORD[num_coordinates]
// COORD：
//   float64   longitude
//   float64   latitude
const (
	magic     = "GEO!"
	headerLen = 8
	coordLen  = 16
)

// 结构性错误：每条对应一条被破坏的格式规则，调用方以 errors.Is 区分
var (
	ErrTruncatedHeader        = errors.New("geodata: truncated header")
	ErrBadMagic               = errors.New("geodata: bad magic")
	ErrTruncatedPolygonHeader = errors.New("geodata: truncated polygon header")
	ErrTruncatedPolygonBody   = errors.New("geodata: truncated polygon body")
	ErrTrailingBytes          = errors.New("geodata: trailing bytes after last polygon")
)

// Coordinate：经纬度坐标对，与文件内 16 字节记录一一对应
type Coordinate struct {
	Lng float64
	Lat float64
}

// GeoData：多边形集合，持有整段载荷缓冲区与多边形数量
// 背景：顶点计数与坐标在查询时按偏移惰性读取，不展开为富结构，常驻内存恰为文件体积。
type GeoData struct {
	count uint32
	buf   []byte
}

// Load：从文件加载并校验多边形集合
// 背景：空路径返回合法的空集合（无数据状态），与按路径构造失败是两种情况；
// I/O 错误原样返回（含系统错误文本），格式错误返回上面的结构性错误。
func Load(path string) (*GeoData, error) {
	if path == "" {
		return &GeoData{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromBytes(b)
}

// FromBytes：对原始字节做完整结构校验并接管所有权
// 约束：调用方在成功返回后不得再修改 b；校验失败不保留任何引用。
// 长度校验是严格的：载荷必须与声明的多边形数据逐字节对齐，计数为 0 时
// 除 8 字节头外不允许任何内容，多余字节一律返回 ErrTrailingBytes。
func FromBytes(b []byte) (*GeoData, error) {
	if len(b) < headerLen {
		return nil, ErrTruncatedHeader
	}
	if string(b[:4]) != magic {
		return nil, ErrBadMagic
	}
	n := binary.LittleEndian.Uint32(b[4:8])
	if n == 0 {
		if len(b) != headerLen {
			return nil, ErrTrailingBytes
		}
		return &GeoData{}, nil
	}
	payload := b[headerLen:]
	// 逐多边形推进偏移：先保证 4 字节计数可读，再保证全部坐标在界内
	// 注意 V*16 以 64 位计算，防止对抗性计数在 32 位上溢出后绕过检查
	plen := uint64(len(payload))
	var off uint64
	for i := uint32(0); i < n; i++ {
		if off+4 > plen {
			return nil, ErrTruncatedPolygonHeader
		}
		v := binary.LittleEndian.Uint32(payload[off:])
		body := uint64(v) * coordLen
		if off+4+body > plen {
			return nil, ErrTruncatedPolygonBody
		}
		off += 4 + body
	}
	if off != plen {
		return nil, ErrTrailingBytes
	}
	return &GeoData{count: n, buf: payload}, nil
}

// Contains：判定坐标是否落在集合内任意一个多边形中（跨多边形 OR 语义）
// 背景：±180 闭区间界外直接返回 false，经纬两轴使用同一界（沿用上游实现的既定行为）；
// 非法输入（含 NaN）一律降级为 false，查询路径不产生错误。
func (g *GeoData) Contains(lng, lat float64) bool {
	if g == nil {
		return false
	}
	if math.Abs(lng) > 180 || math.Abs(lat) > 180 {
		return false
	}
	return g.hitTest(lng, lat)
}

// hitTest：按存储顺序扫描各多边形，命中即短路
// 射线法（even-odd）：边由相邻顶点构成，末顶点与首顶点隐式闭合；
// 半开比较（一侧 <=、另一侧 <）保证恰好落在射线上的顶点不被重复计数。
func (g *GeoData) hitTest(lng, lat float64) bool {
	buf := g.buf
	off := 0
	for n := uint32(0); n < g.count; n++ {
		v := int(binary.LittleEndian.Uint32(buf[off:]))
		base := off + 4
		inside := false
		j := v - 1
		for i := 0; i < v; i++ {
			iLng := readFloat(buf, base+i*coordLen)
			iLat := readFloat(buf, base+i*coordLen+8)
			jLng := readFloat(buf, base+j*coordLen)
			jLat := readFloat(buf, base+j*coordLen+8)
			if ((iLng <= lng && lng < jLng) || (jLng <= lng && lng < iLng)) &&
				lat < (jLat-iLat)*(lng-iLng)/(jLng-iLng)+iLat {
				inside = !inside
			}
			j = i
		}
		if inside {
			return true
		}
		off = base + v*coordLen
	}
	return false
}

func readFloat(b []byte, off int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b[off:]))
}

// NumPolygons：集合内多边形数量（含零顶点的退化多边形）
func (g *GeoData) NumPolygons() int {
	if g == nil {
		return 0
	}
	return int(g.count)
}

// Size：载荷字节数，等于文件体积减去 8 字节头部
func (g *GeoData) Size() int {
	if g == nil {
		return 0
	}
	return len(g.buf)
}

// Close：释放缓冲区
// 约束：对 nil 或已释放的集合重复调用安全；释放后所有查询返回 false。
func (g *GeoData) Close() {
	if g == nil {
		return
	}
	g.buf = nil
	g.count = 0
}
