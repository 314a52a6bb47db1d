package investigate

import (
	"fmt"
	"sort"
	"strings"
)

// Order 决定报告中掩码键与未匹配行的遍历顺序。
type Order int

const (
	// OrderInsertion: 按首次出现顺序。
	OrderInsertion Order = iota
	// OrderSorted: 掩码键与时间戳按字典序。
	OrderSorted
)

// ParseOrder 解析配置值（空串为 insertion）。
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "insertion":
		return OrderInsertion, nil
	case "sorted":
		return OrderSorted, nil
	default:
		return OrderInsertion, fmt.Errorf("unknown order %q", s)
	}
}

func (o Order) String() string {
	if o == OrderSorted {
		return "sorted"
	}
	return "insertion"
}

// Index: 分组引擎的两份关联结构。
// - variants: 掩码键 → 共享该键的 Record 列表（插入顺序）；
// - pool: 时间戳 → 原文，即“尚未确认有相似句”的行。
// 不变量：写入 variants 的 Record，其时间戳在写入时必在 pool 中。
// 非并发安全；摄入期构建，报告期 variants 只读、pool 逐步排空。
type Index struct {
	dedup    Dedup
	variants map[string][]Record
	keys     []string
	pool     map[string]string
	poolKeys []string
	seen     map[string]struct{}
	records  int
}

// NewIndex 创建空索引。
func NewIndex(dedup Dedup) *Index {
	return &Index{
		dedup:    dedup,
		variants: make(map[string][]Record),
		pool:     make(map[string]string),
		seen:     make(map[string]struct{}),
	}
}

// Add 摄入一条 Record。
// 时间戳总是写入 pool（同一时间戳后写覆盖前写）；
// 若该掩码键下已有同一句子的 Record，则丢弃新 Record 并返回 false。
func (x *Index) Add(rec Record) bool {
	if _, ok := x.seen[rec.Timestamp]; !ok {
		x.seen[rec.Timestamp] = struct{}{}
		x.poolKeys = append(x.poolKeys, rec.Timestamp)
	}
	x.pool[rec.Timestamp] = rec.Raw

	key := rec.Variant.Key
	list, ok := x.variants[key]
	if !ok {
		x.keys = append(x.keys, key)
	}
	id := x.dedup.identity(rec)
	for _, r := range list {
		if x.dedup.identity(r) == id {
			return false
		}
	}
	x.variants[key] = append(list, rec)
	x.records++
	return true
}

// Keys 返回全部掩码键。
func (x *Index) Keys(order Order) []string {
	out := make([]string, len(x.keys))
	copy(out, x.keys)
	if order == OrderSorted {
		sort.Strings(out)
	}
	return out
}

// Records 返回某掩码键下的 Record 列表（只读视图）。
func (x *Index) Records(key string) []Record { return x.variants[key] }

// Drain 将时间戳移出未匹配池；重复调用安全。
func (x *Index) Drain(timestamp string) { delete(x.pool, timestamp) }

// Remaining 返回仍在未匹配池中的原文。
func (x *Index) Remaining(order Order) []string {
	keys := make([]string, 0, len(x.pool))
	for _, ts := range x.poolKeys {
		if _, ok := x.pool[ts]; ok {
			keys = append(keys, ts)
		}
	}
	if order == OrderSorted {
		sort.Strings(keys)
	}
	out := make([]string, 0, len(keys))
	for _, ts := range keys {
		out = append(out, x.pool[ts])
	}
	return out
}

// Len 返回已写入 variants 的 Record 总数。
func (x *Index) Len() int { return x.records }

// Pending 返回未匹配池当前大小。
func (x *Index) Pending() int { return len(x.pool) }
