package geoset

import (
	"sync/atomic"
)

type locatable interface {
	Locate(float64, float64) (string, bool)
	Sets() []SetInfo
}

// 文档注释：动态索引包装器
// 背景：通过 atomic.Value 提供无锁读写切换（重建 .geo 目录后整体替换），
// 保障高并发查询路径不被热更新阻塞。
// 约束：内部存储需实现 Locate(lng, lat)；Set 传入类型需保持一致，否则读取断言会 panic。
type DynamicIndex struct{ v atomic.Value }

// Locate：原子读取当前索引，未就绪时一律未命中
func (d *DynamicIndex) Locate(lng, lat float64) (string, bool) {
	x := d.v.Load()
	if x == nil {
		return "", false
	}
	ix := x.(locatable)
	return ix.Locate(lng, lat)
}

// Sets：当前索引的集合描述；未就绪时返回空列表
func (d *DynamicIndex) Sets() []SetInfo {
	x := d.v.Load()
	if x == nil {
		return nil
	}
	return x.(locatable).Sets()
}

// Set：替换当前索引（写路径），对后续查询立即生效
// WARNING: 旧索引的释放由调用方负责延迟处理，避免在途查询读到已释放缓冲区。
func (d *DynamicIndex) Set(ix locatable) { d.v.Store(ix) }

// Swap：替换当前索引并交回被替换者，调用方延迟释放其缓冲区
func (d *DynamicIndex) Swap(ix locatable) locatable {
	old := d.v.Swap(ix)
	if old == nil {
		return nil
	}
	return old.(locatable)
}
