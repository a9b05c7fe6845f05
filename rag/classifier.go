package rag

import "strings"

// QuestionClass 是问题的确定性分类结果, 不经过语言模型.
type QuestionClass struct {
	// 问题是否在要具体数字/清单
	NeedsSpecifics bool
	// 问题是否要求时间顺序
	NeedsChronological bool
}

// ClassifierConfig 配置分类关键词. 关键词集合本身不是契约的一部分,
// 所以保持可配置; 空集合使用默认值.
type ClassifierConfig struct {
	SpecificsTerms     []string `yaml:"specifics_terms" json:"specifics_terms"`
	ChronologicalTerms []string `yaml:"chronological_terms" json:"chronological_terms"`
}

// DefaultClassifierConfig 返回默认关键词集合.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		SpecificsTerms: []string{
			"how much", "what amount", "how many", "amount", "revenue", "cost",
			"transaction", "number", "total", "price", "value", "list",
		},
		ChronologicalTerms: []string{"chronological", "order"},
	}
}

// Classifier 用关键词子串匹配对问题做轻量分类.
type Classifier struct {
	specifics     []string
	chronological []string
}

// NewClassifier 创建分类器.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	defaults := DefaultClassifierConfig()
	if len(cfg.SpecificsTerms) == 0 {
		cfg.SpecificsTerms = defaults.SpecificsTerms
	}
	if len(cfg.ChronologicalTerms) == 0 {
		cfg.ChronologicalTerms = defaults.ChronologicalTerms
	}
	return &Classifier{
		specifics:     lowerAll(cfg.SpecificsTerms),
		chronological: lowerAll(cfg.ChronologicalTerms),
	}
}

// Classify 对问题做确定性分类.
func (c *Classifier) Classify(question string) QuestionClass {
	q := strings.ToLower(question)
	return QuestionClass{
		NeedsSpecifics:     containsAny(q, c.specifics),
		NeedsChronological: containsAny(q, c.chronological),
	}
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

func lowerAll(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = strings.ToLower(t)
	}
	return out
}
