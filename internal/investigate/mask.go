package investigate

import "strings"

// Variant: 去掉一个句子词后的掩码键及被去掉的词。
type Variant struct {
	// Key: 其余句子词按原顺序直接拼接（无分隔符）后转小写。
	Key string
	// Removed: 被去掉的词（保留原大小写）。
	Removed string
	// Pos: 被去掉的词在句子词中的位置（0 起始）。
	Pos int
}

// Mask 为每个句子词位置各生成一个掩码变体。
// k 个句子词恰好产出 k 个变体；相同词出现在不同位置时各自产出，不做去重。
func Mask(tokens []string) []Variant {
	body := Body(tokens)
	if len(body) == 0 {
		return nil
	}
	out := make([]Variant, 0, len(body))
	var sb strings.Builder
	for i := range body {
		sb.Reset()
		for j, w := range body {
			if j != i {
				sb.WriteString(w)
			}
		}
		out = append(out, Variant{Key: strings.ToLower(sb.String()), Removed: body[i], Pos: i})
	}
	return out
}
