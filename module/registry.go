package module

import (
	"sort"
	"strings"

	"sigrag/types"
)

// Builder 按签名和依赖构造一个模块实例.
type Builder func(sig Signature, deps Deps) (Module, error)

// builders 是封闭的模块注册表: 可用模块在编译期固定, 不做运行时反射查找.
var builders = map[string]Builder{
	"Predict":        newPredict,
	"ChainOfThought": newChainOfThought,
	"EnhancedRAG":    newEnhancedRAG,
}

// Names 返回全部可用模块名, 按字典序.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New 按名称构造模块. 未知名称返回 MODULE_NOT_FOUND 并列出可用模块.
func New(name string, sig Signature, deps Deps) (Module, error) {
	build, ok := builders[name]
	if !ok {
		return nil, types.NewErrorf(types.ErrModuleNotFound,
			"module %q not found, available: %s", name, strings.Join(Names(), ", "))
	}
	return build(sig, deps)
}
