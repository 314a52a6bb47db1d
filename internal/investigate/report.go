package investigate

import "pinvestigator/pkg/contract"

// extract 遍历掩码键，输出至少两条 Record 共享的键为一组，
// 并把组内每行的时间戳移出未匹配池；最后收集池中剩余原文。
// 同一行可因不同位置的掩码键出现在多个组中。
func extract(idx *Index, order Order) contract.Report {
	var rep contract.Report
	for _, key := range idx.Keys(order) {
		recs := idx.Records(key)
		if len(recs) < 2 {
			continue
		}
		g := contract.Group{
			Variant: key,
			Lines:   make([]string, 0, len(recs)),
			Words:   make([]string, 0, len(recs)),
		}
		for _, r := range recs {
			g.Lines = append(g.Lines, r.Raw)
			g.Words = append(g.Words, r.Variant.Removed)
			idx.Drain(r.Timestamp)
		}
		rep.Groups = append(rep.Groups, g)
	}
	if idx.Pending() > 0 {
		rep.Unmatched = idx.Remaining(order)
	}
	return rep
}
