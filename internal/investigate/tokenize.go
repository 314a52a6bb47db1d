package investigate

import "strings"

const (
	// timestampTokens: 行首的日期与时间两个词构成时间戳。
	timestampTokens = 2
	// minTokens: 时间戳 + 至少一个句子词。
	minTokens = timestampTokens + 1
)

// Tokenize 按一个或多个空格切分一行，丢弃空词。
// 仅空格作为分隔符；制表符等其他空白保留在词内。
func Tokenize(line string) []string {
	parts := strings.Split(line, " ")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Valid 判断词序列是否满足“时间戳 + 句子”结构。
func Valid(tokens []string) bool { return len(tokens) >= minTokens }

// Timestamp 返回前两个词以单个空格连接的时间戳。
func Timestamp(tokens []string) string {
	if len(tokens) < timestampTokens {
		return strings.Join(tokens, " ")
	}
	return tokens[0] + " " + tokens[1]
}

// Body 返回时间戳之后的句子词。
func Body(tokens []string) []string {
	if len(tokens) <= timestampTokens {
		return nil
	}
	return tokens[timestampTokens:]
}
