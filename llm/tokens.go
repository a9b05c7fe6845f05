package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

func getEncoding() *tiktoken.Tiktoken {
	encodingOnce.Do(func() {
		// cl100k_base 覆盖主流 chat 模型; 初始化失败时回退到按字符截断
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	return encoding
}

// CountTokens 返回文本的 token 数量.
func CountTokens(text string) int {
	enc := getEncoding()
	if enc == nil {
		return len([]rune(text))
	}
	return len(enc.Encode(text, nil, nil))
}

// TruncateTokens 把文本截断到最多 maxTokens 个 token, 保留开头部分.
// maxTokens <= 0 时原样返回.
func TruncateTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}

	enc := getEncoding()
	if enc == nil {
		runes := []rune(text)
		if len(runes) <= maxTokens*4 {
			return text
		}
		return string(runes[:maxTokens*4])
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return enc.Decode(tokens[:maxTokens])
}
