package geodata

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
)

func unitSquare(offset float64) []Coordinate {
	return []Coordinate{
		{Lng: offset, Lat: offset},
		{Lng: offset, Lat: offset + 1},
		{Lng: offset + 1, Lat: offset + 1},
		{Lng: offset + 1, Lat: offset},
	}
}

func TestRoundTrip(t *testing.T) {
	is := is.New(t)

	polys := [][]Coordinate{
		unitSquare(0),
		{{Lng: -122.41, Lat: 37.77}, {Lng: -122.39, Lat: 37.77}, {Lng: -122.40, Lat: 37.79}},
		{},
	}
	var b Builder
	for _, p := range polys {
		b.Add(p)
	}
	raw := b.Bytes()

	g, err := FromBytes(raw)
	is.NoErr(err)
	is.Equal(g.NumPolygons(), 3)
	is.Equal(g.Size(), len(raw)-8)

	// 逐字节重解码载荷，坐标必须位级一致
	payload := raw[8:]
	off := 0
	for _, p := range polys {
		v := binary.LittleEndian.Uint32(payload[off:])
		is.Equal(int(v), len(p))
		off += 4
		for _, c := range p {
			lng := math.Float64frombits(binary.LittleEndian.Uint64(payload[off:]))
			lat := math.Float64frombits(binary.LittleEndian.Uint64(payload[off+8:]))
			is.Equal(math.Float64bits(lng), math.Float64bits(c.Lng))
			is.Equal(math.Float64bits(lat), math.Float64bits(c.Lat))
			off += 16
		}
	}
	is.Equal(off, len(payload))
}

func TestLoadFromFile(t *testing.T) {
	is := is.New(t)

	var b Builder
	b.Add(unitSquare(0))
	fp := filepath.Join(t.TempDir(), "one.geo")
	is.NoErr(WriteFile(fp, &b))

	g, err := Load(fp)
	is.NoErr(err)
	is.Equal(g.NumPolygons(), 1)
	is.True(g.Contains(0.5, 0.5))
	g.Close()
}

func TestLoadMissingFile(t *testing.T) {
	is := is.New(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.geo"))
	is.True(err != nil)
	is.True(errors.Is(err, os.ErrNotExist))
}

func TestLoadEmptyPath(t *testing.T) {
	is := is.New(t)
	g, err := Load("")
	is.NoErr(err)
	is.Equal(g.NumPolygons(), 0)
	is.True(!g.Contains(0, 0))
}

func TestEmptySet(t *testing.T) {
	is := is.New(t)
	g, err := FromBytes([]byte("GEO!\x00\x00\x00\x00"))
	is.NoErr(err)
	is.Equal(g.NumPolygons(), 0)
	is.True(!g.Contains(0, 0))
	is.True(!g.Contains(0.5, 0.5))
}

func TestBadMagic(t *testing.T) {
	is := is.New(t)
	var b Builder
	b.Add(unitSquare(0))
	raw := b.Bytes()
	raw[0] = 'X'
	_, err := FromBytes(raw)
	is.True(errors.Is(err, ErrBadMagic))
}

func TestTruncatedHeader(t *testing.T) {
	is := is.New(t)
	for _, n := range []int{0, 1, 4, 7} {
		_, err := FromBytes([]byte("GEO!\x01\x00\x00")[:min(n, 7)])
		is.True(errors.Is(err, ErrTruncatedHeader))
	}
}

func TestTruncatedPolygonHeader(t *testing.T) {
	is := is.New(t)
	var b Builder
	b.Add(unitSquare(0))
	b.Add(unitSquare(10))
	raw := b.Bytes()
	// 首个多边形完整，第二个的顶点计数被截断到 2 字节
	cut := 8 + 4 + 4*16 + 2
	_, err := FromBytes(raw[:cut])
	is.True(errors.Is(err, ErrTruncatedPolygonHeader))
}

func TestTruncatedPolygonBody(t *testing.T) {
	is := is.New(t)
	var b Builder
	b.Add(unitSquare(0))
	raw := b.Bytes()
	// 砍掉最后一个坐标的尾部字节
	_, err := FromBytes(raw[:len(raw)-5])
	is.True(errors.Is(err, ErrTruncatedPolygonBody))
}

func TestHugeVertexCountRejected(t *testing.T) {
	is := is.New(t)
	// 顶点计数为 0xffffffff：V*16 在 64 位下运算，不得回绕后通过校验
	raw := []byte("GEO!\x01\x00\x00\x00\xff\xff\xff\xff")
	_, err := FromBytes(raw)
	is.True(errors.Is(err, ErrTruncatedPolygonBody))
}

func TestTrailingBytes(t *testing.T) {
	is := is.New(t)
	var b Builder
	b.Add(unitSquare(0))
	raw := append(b.Bytes(), 0xde, 0xad)
	_, err := FromBytes(raw)
	is.True(errors.Is(err, ErrTrailingBytes))

	// 计数为 0 的文件同样只允许恰好 8 字节
	_, err = FromBytes([]byte("GEO!\x00\x00\x00\x00\xff"))
	is.True(errors.Is(err, ErrTrailingBytes))
}

func TestUnitSquareContainment(t *testing.T) {
	is := is.New(t)
	var b Builder
	b.Add(unitSquare(0))
	g, err := FromBytes(b.Bytes())
	is.NoErr(err)
	is.True(g.Contains(0.5, 0.5))
	is.True(!g.Contains(2, 2))
	is.True(!g.Contains(-0.5, 0.5))
}

func TestEdgeAttribution(t *testing.T) {
	is := is.New(t)
	var b Builder
	b.Add(unitSquare(0))
	g, err := FromBytes(b.Bytes())
	is.NoErr(err)
	// 半开比较：左边界归属多边形，右边界不归属，避免相邻多边形双重计数
	is.True(g.Contains(0, 0.5))
	is.True(!g.Contains(1, 0.5))
}

func TestMultiPolygonOr(t *testing.T) {
	is := is.New(t)
	var b Builder
	b.Add(unitSquare(0))
	b.Add(unitSquare(10))
	g, err := FromBytes(b.Bytes())
	is.NoErr(err)
	is.True(g.Contains(0.5, 0.5))
	is.True(g.Contains(10.5, 10.5))
	is.True(!g.Contains(5, 5))
}

func TestRangeClamp(t *testing.T) {
	is := is.New(t)
	var b Builder
	b.Add(unitSquare(0))
	g, err := FromBytes(b.Bytes())
	is.NoErr(err)
	is.True(!g.Contains(200.0, 0.0))
	is.True(!g.Contains(0.0, 200.0))
	is.True(!g.Contains(-181.0, 0.5))
	is.True(!g.Contains(math.NaN(), 0.5))
	is.True(!g.Contains(0.5, math.NaN()))
}

func TestLatitudeSharesLongitudeBound(t *testing.T) {
	is := is.New(t)
	// 纬度界沿用 ±180 而非 ±90：纬度 100 的点仍参与判定（上游既定行为）
	var b Builder
	b.Add([]Coordinate{{0, 95}, {0, 105}, {1, 105}, {1, 95}})
	g, err := FromBytes(b.Bytes())
	is.NoErr(err)
	is.True(g.Contains(0.5, 100))
}

func TestDegeneratePolygon(t *testing.T) {
	is := is.New(t)
	var b Builder
	b.Add(nil)
	g, err := FromBytes(b.Bytes())
	is.NoErr(err)
	is.Equal(g.NumPolygons(), 1)
	is.True(!g.Contains(0, 0))
	is.True(!g.Contains(0.5, 0.5))
}

func TestCloseIdempotent(t *testing.T) {
	is := is.New(t)
	var b Builder
	b.Add(unitSquare(0))
	g, err := FromBytes(b.Bytes())
	is.NoErr(err)
	is.True(g.Contains(0.5, 0.5))
	g.Close()
	is.True(!g.Contains(0.5, 0.5))
	g.Close()

	var nilSet *GeoData
	is.True(!nilSet.Contains(0.5, 0.5))
	nilSet.Close()
}
