package module

import (
	"strings"

	"sigrag/store"
)

// maxCollectionNameLen 是把输入值当作集合名候选的长度上限.
const maxCollectionNameLen = 50

// LooksLikeCollection 判断输入值是否可能是集合名: 单个 token 且不超长.
// 这是确定性的形态检查, 真正的存在性由 provider 查询决定.
func LooksLikeCollection(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > maxCollectionNameLen {
		return false
	}
	return len(strings.Fields(value)) == 1
}

// Detection 是集合检测的结果.
type Detection struct {
	// 命中的输入字段名
	Field string
	// 集合名称
	Collection string
}

// DetectCollection 按签名顺序找出第一个取值命名了已有集合的输入.
// 先做形态检查再查存储, 未命中的输入原样保留.
func DetectCollection(provider store.Provider, sig Signature, inputs map[string]string) (Detection, bool) {
	if provider == nil {
		return Detection{}, false
	}
	for _, field := range sig.Inputs {
		value, ok := inputs[field]
		if !ok || !LooksLikeCollection(value) {
			continue
		}
		name := strings.TrimSpace(value)
		if _, err := provider.Lookup(name); err != nil {
			continue
		}
		return Detection{Field: field, Collection: name}, true
	}
	return Detection{}, false
}
