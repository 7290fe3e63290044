package api

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// 文档注释：计算布隆过滤器位置
// 参数：data 为参与哈希的字节序列，m 为位图大小（建议 2 的幂以便分布更均匀），k 为哈希次数（控制误判率与写入开销）。
// 背景：使用 FNV64a 结合索引扰动生成 k 个位置，用于 GetBit/SetBit；适配短周期去重场景。
// 约束：m、k 需结合实际 QPS 与 TTL 调参，避免过高误判率或写入开销过大。
func bloomPositions(data []byte, m uint32, k int) []int64 {
	pos := make([]int64, k)
	for i := 0; i < k; i++ {
		h := fnv.New64a()
		h.Write([]byte{byte(i)})
		h.Write(data)
		v := h.Sum64()
		pos[i] = int64(uint32(v % uint64(m)))
	}
	return pos
}

// 文档注释：检查并写入布隆过滤器位图
// 背景：以（访问者 IP + 坐标格）为键做短周期去重，重复查询不再累加统计，降低数据库写入压力。
// 返回：true 表示首次见到（已写入位图，可计入统计）；false 表示已存在。
// 异常：Redis 交互错误时返回 error；当 rc 为 nil 时视为“首次见到”，避免阻断主流程。
func bloomCheckAndSet(ctx context.Context, rc *redis.Client, key string, positions []int64, ttl time.Duration) (bool, error) {
	if rc == nil {
		return true, nil
	}
	seen := true
	for _, p := range positions {
		b, err := rc.GetBit(ctx, key, p).Result()
		if err != nil {
			return true, err
		}
		if b == 0 {
			seen = false
		}
	}
	if !seen {
		for _, p := range positions {
			_, _ = rc.SetBit(ctx, key, p, 1).Result()
		}
		_ = rc.Expire(ctx, key, ttl).Err()
		return true, nil
	}
	return false, nil
}
