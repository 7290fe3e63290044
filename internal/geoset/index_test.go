package geoset

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	"tw-geodata/pkg/geodata"

	"github.com/matryer/is"
)

func writeSet(t *testing.T, dir, region string, polys ...[]geodata.Coordinate) {
	t.Helper()
	var b geodata.Builder
	for _, p := range polys {
		b.Add(p)
	}
	if err := geodata.WriteFile(filepath.Join(dir, FileName(region)), &b); err != nil {
		t.Fatal(err)
	}
}

func square(lng, lat, side float64) []geodata.Coordinate {
	return []geodata.Coordinate{
		{Lng: lng, Lat: lat},
		{Lng: lng, Lat: lat + side},
		{Lng: lng + side, Lat: lat + side},
		{Lng: lng + side, Lat: lat},
	}
}

func TestLoadDirAndLocate(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	writeSet(t, dir, "alpha", square(0, 0, 1))
	writeSet(t, dir, "beta", square(10, 10, 1))

	ix, err := LoadDir(dir)
	is.NoErr(err)
	defer ix.Close()

	name, ok := ix.Locate(0.5, 0.5)
	is.True(ok)
	is.Equal(name, "alpha")

	name, ok = ix.Locate(10.5, 10.5)
	is.True(ok)
	is.Equal(name, "beta")

	_, ok = ix.Locate(5, 5)
	is.True(!ok)
	_, ok = ix.Locate(200, 0)
	is.True(!ok)

	infos := ix.Sets()
	is.Equal(len(infos), 2)
	is.Equal(infos[0].Name, "alpha")
	is.Equal(infos[0].Polygons, 1)
}

func TestLoadDirFirstMatchOrder(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	// 两个区域重叠时按文件名顺序首个命中者胜出
	writeSet(t, dir, "aa", square(0, 0, 2))
	writeSet(t, dir, "bb", square(0, 0, 2))

	ix, err := LoadDir(dir)
	is.NoErr(err)
	defer ix.Close()

	name, ok := ix.Locate(1, 1)
	is.True(ok)
	is.Equal(name, "aa")
}

func TestLoadDirRejectsCorruptFile(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	writeSet(t, dir, "good", square(0, 0, 1))
	is.NoErr(os.WriteFile(filepath.Join(dir, "bad.geo"), []byte("GEO!\x01\x00\x00\x00\xff\xff"), 0o644))

	_, err := LoadDir(dir)
	is.True(err != nil)
}

func TestLoadDirIgnoresOtherFiles(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	writeSet(t, dir, "alpha", square(0, 0, 1))
	is.NoErr(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	ix, err := LoadDir(dir)
	is.NoErr(err)
	defer ix.Close()
	is.Equal(len(ix.Sets()), 1)
}

func TestDynamicIndex(t *testing.T) {
	is := is.New(t)
	var d DynamicIndex
	_, ok := d.Locate(0.5, 0.5)
	is.True(!ok)

	dir := t.TempDir()
	writeSet(t, dir, "alpha", square(0, 0, 1))
	ix, err := LoadDir(dir)
	is.NoErr(err)
	defer ix.Close()

	d.Set(ix)
	name, ok := d.Locate(0.5, 0.5)
	is.True(ok)
	is.Equal(name, "alpha")
}

func TestDynamicIndexSwap(t *testing.T) {
	is := is.New(t)
	dirA := t.TempDir()
	writeSet(t, dirA, "alpha", square(0, 0, 1))
	ixA, err := LoadDir(dirA)
	is.NoErr(err)
	dirB := t.TempDir()
	writeSet(t, dirB, "beta", square(10, 10, 1))
	ixB, err := LoadDir(dirB)
	is.NoErr(err)
	defer ixB.Close()

	var d DynamicIndex
	is.True(d.Swap(ixA) == nil)

	// Swap 交回被替换的索引，在途查询结束前它保持可用
	old := d.Swap(ixB)
	is.Equal(old, locatable(ixA))
	name, ok := old.Locate(0.5, 0.5)
	is.True(ok)
	is.Equal(name, "alpha")
	old.(*Index).Close()

	name, ok = d.Locate(10.5, 10.5)
	is.True(ok)
	is.Equal(name, "beta")
}

func TestFileName(t *testing.T) {
	is := is.New(t)
	is.Equal(FileName("alpha"), "alpha.geo")
	is.Equal(FileName("north west"), "north-west.geo")
	is.Equal(FileName("a/b"), "a_b.geo")
}

func TestEncodeGeohash(t *testing.T) {
	is := is.New(t)
	is.Equal(EncodeGeohash(37.77, -122.41, 7), EncodeGeohash(37.77, -122.41, 7))
	is.True(EncodeGeohash(37.77, -122.41, 7) != EncodeGeohash(48.85, 2.35, 7))
	is.Equal(len(EncodeGeohash(0, 0, 6)), 6)
}

func TestLRU(t *testing.T) {
	is := is.New(t)
	c := NewLRU(2, 60)
	c.Set("a", PointAnswer{Region: "alpha", Contained: true})
	c.Set("b", PointAnswer{Contained: false})
	v, ok := c.Get("a")
	is.True(ok)
	is.Equal(v.Region, "alpha")

	// 超过容量淘汰最久未使用的键
	c.Set("c", PointAnswer{Region: "gamma", Contained: true})
	_, ok = c.Get("b")
	is.True(!ok)
	_, ok = c.Get("a")
	is.True(ok)
}

func TestLRUExpiry(t *testing.T) {
	is := is.New(t)
	c := NewLRU(4, 0)
	c.Set("a", PointAnswer{Contained: true})
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("a")
	is.True(!ok)
}
