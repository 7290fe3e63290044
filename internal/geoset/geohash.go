package geoset

// 文档注释：轻量 geohash 编码（base32）
// 背景：用于热点坐标的缓存键量化；精度 7 约 150m，同格坐标共享缓存答案。
// 约束：仅作缓存键，不参与精确命中判定；未命中路径始终走底层扫描。
var base32 = []rune("0123456789bcdefghjkmnpqrstuvwxyz")

func EncodeGeohash(lat, lon float64, precision int) string {
	latInt := []float64{-90, 90}
	lonInt := []float64{-180, 180}
	bits := []int{16, 8, 4, 2, 1}
	bit := 0
	ch := 0
	even := true
	out := make([]rune, 0, precision)
	for len(out) < precision {
		if even {
			mid := (lonInt[0] + lonInt[1]) / 2
			if lon >= mid {
				ch |= bits[bit]
				lonInt[0] = mid
			} else {
				lonInt[1] = mid
			}
		} else {
			mid := (latInt[0] + latInt[1]) / 2
			if lat >= mid {
				ch |= bits[bit]
				latInt[0] = mid
			} else {
				latInt[1] = mid
			}
		}
		even = !even
		if bit < 4 {
			bit++
		} else {
			out = append(out, base32[ch])
			bit = 0
			ch = 0
		}
	}
	return string(out)
}
