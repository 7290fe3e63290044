package geodata

import (
	"encoding/binary"
	"math"
	"os"
)

// Builder：按文件布局累积多边形并序列化
// 背景：供数据构建工具与测试产出 GEO! 文件；追加顺序即存储顺序，也即查询时的扫描顺序。
type Builder struct {
	count   uint32
	payload []byte
}

// Add：追加一个多边形（按顶点顺序；零顶点合法，表示退化多边形）
func (b *Builder) Add(coords []Coordinate) {
	var rec [coordLen]byte
	b.payload = binary.LittleEndian.AppendUint32(b.payload, uint32(len(coords)))
	for _, c := range coords {
		binary.LittleEndian.PutUint64(rec[0:8], math.Float64bits(c.Lng))
		binary.LittleEndian.PutUint64(rec[8:16], math.Float64bits(c.Lat))
		b.payload = append(b.payload, rec[:]...)
	}
	b.count++
}

// NumPolygons：已追加的多边形数量
func (b *Builder) NumPolygons() int { return int(b.count) }

// Bytes：完整文件字节（头部 + 载荷），可直接交给 FromBytes 或写盘
func (b *Builder) Bytes() []byte {
	out := make([]byte, 0, headerLen+len(b.payload))
	out = append(out, magic...)
	out = binary.LittleEndian.AppendUint32(out, b.count)
	out = append(out, b.payload...)
	return out
}

// WriteFile：落盘为 GEO! 文件
// 约束：先写临时文件并 fsync，再原子改名，避免并发加载方读到半成品。
func WriteFile(path string, b *Builder) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(b.Bytes()); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
