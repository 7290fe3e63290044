package geoset

import (
	"container/list"
	"sync"
	"time"
)

// PointAnswer：一次归属查询的缓存值
type PointAnswer struct {
	Region    string
	Contained bool
}

// 文档注释：本地 LRU 缓存（geohash 量化坐标为键）
// 背景：热点坐标在短周期内重复查询，进程内缓存先于 redis 生效，降低扫描开销；TTL 可调。
// 约束：键由调用方用 EncodeGeohash 构造；索引热更新后旧答案在 TTL 内可能滞留。
type LRU struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[string]*list.Element
}

type kv struct {
	k   string
	v   PointAnswer
	exp time.Time
}

func NewLRU(capacity int, ttlSec int) *LRU {
	return &LRU{cap: capacity, ttl: time.Duration(ttlSec) * time.Second, lst: list.New(), dict: make(map[string]*list.Element)}
}

func (c *LRU) Get(k string) (PointAnswer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		it := e.Value.(kv)
		if time.Now().Before(it.exp) {
			c.lst.MoveToFront(e)
			return it.v, true
		}
		c.lst.Remove(e)
		delete(c.dict, k)
	}
	return PointAnswer{}, false
}

func (c *LRU) Set(k string, v PointAnswer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		e.Value = kv{k: k, v: v, exp: time.Now().Add(c.ttl)}
		c.lst.MoveToFront(e)
		return
	}
	e := c.lst.PushFront(kv{k: k, v: v, exp: time.Now().Add(c.ttl)})
	c.dict[k] = e
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		if back != nil {
			it := back.Value.(kv)
			delete(c.dict, it.k)
			c.lst.Remove(back)
		}
	}
}
