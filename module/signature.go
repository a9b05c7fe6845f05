// Package module 提供签名驱动的推理模块: 解析 "Module(inputs -> outputs)"
// 形式的模块说明, 并通过封闭注册表构造对应模块实例.
package module

import (
	"regexp"
	"strings"

	"sigrag/types"
)

// Signature 是一个推理模块的字段签名: 命名输入与命名输出, 均保持声明顺序.
type Signature struct {
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
}

var (
	specPattern = regexp.MustCompile(`^\s*(\w+)\s*\(\s*(.*?)\s*\)\s*$`)
	identifier  = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// ParseSpec 解析完整模块说明, 例如 "ChainOfThought(question -> answer)".
func ParseSpec(raw string) (string, Signature, error) {
	m := specPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", Signature{}, types.NewError(types.ErrInvalidSignature,
			"invalid module spec, expected ModuleName(inputs -> outputs)")
	}
	sig, err := ParseSignature(m[2])
	if err != nil {
		return "", Signature{}, err
	}
	return m[1], sig, nil
}

// ParseSignature 解析裸签名, 例如 "context, question -> answer".
// 字段名必须是标识符, 箭头两侧至少各有一个字段, 且不允许重复.
func ParseSignature(raw string) (Signature, error) {
	parts := strings.Split(raw, "->")
	if len(parts) != 2 {
		return Signature{}, types.NewError(types.ErrInvalidSignature,
			"signature must contain exactly one \"->\"")
	}

	inputs, err := parseFieldList(parts[0])
	if err != nil {
		return Signature{}, err
	}
	outputs, err := parseFieldList(parts[1])
	if err != nil {
		return Signature{}, err
	}

	seen := make(map[string]bool, len(inputs)+len(outputs))
	for _, name := range append(append([]string{}, inputs...), outputs...) {
		if seen[name] {
			return Signature{}, types.NewErrorf(types.ErrInvalidSignature,
				"duplicate field %q in signature", name).WithField(name)
		}
		seen[name] = true
	}

	return Signature{Inputs: inputs, Outputs: outputs}, nil
}

func parseFieldList(raw string) ([]string, error) {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if !identifier.MatchString(name) {
			return nil, types.NewErrorf(types.ErrInvalidSignature,
				"invalid field name %q", name).WithField(name)
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, types.NewError(types.ErrInvalidSignature,
			"signature needs at least one field on each side of \"->\"")
	}
	return names, nil
}
