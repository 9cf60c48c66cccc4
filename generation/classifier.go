package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/linkedlist771/magic-image-private/types"
)

// =============================================================================
// 🧭 协议变体分类
// =============================================================================

// Selection 模型选择：模型标识 + 协议变体
type Selection struct {
	Model   string
	Variant types.Variant
}

// Rule 分类规则
type Rule struct {
	Name    string
	Match   func(model string) bool
	Variant types.Variant
	// Enabled 为 false 的规则保留但不参与匹配
	Enabled bool
}

// ModelLookup 按模型标识查找自定义模型
type ModelLookup interface {
	FindCustomModelByValue(ctx context.Context, value string) (types.CustomModel, bool, error)
}

func exactly(ids ...string) func(string) bool {
	return func(model string) bool {
		for _, id := range ids {
			if model == id {
				return true
			}
		}
		return false
	}
}

// DefaultRules 内置规则。当前部署只支持 openai 变体，全部禁用
func DefaultRules() []Rule {
	return []Rule{
		{Name: "dalle-models", Match: exactly("dall-e-3", "gpt-image-1"), Variant: types.VariantDalle},
		{Name: "chat-image-models", Match: exactly("sora_image", "gpt_4o_image"), Variant: types.VariantOpenAI},
		{Name: "gemini-prefix", Match: func(m string) bool { return strings.HasPrefix(m, "gemini") }, Variant: types.VariantGemini},
	}
}

// Classifier 把 (模型标识, 类型提示) 映射为协议变体
type Classifier struct {
	rules     []Rule
	supported []types.Variant
	lookup    ModelLookup
}

// NewClassifier 创建分类器。supported 的第一个元素为默认变体
func NewClassifier(lookup ModelLookup, supported []types.Variant, rules []Rule) (*Classifier, error) {
	if len(supported) == 0 {
		return nil, types.NewConfigurationError("no supported protocol variant configured")
	}
	return &Classifier{
		rules:     rules,
		supported: supported,
		lookup:    lookup,
	}, nil
}

// ParseVariants 解析配置中的变体列表
func ParseVariants(names []string) ([]types.Variant, error) {
	out := make([]types.Variant, 0, len(names))
	for _, n := range names {
		v, err := types.ParseVariant(n)
		if err != nil {
			return nil, types.NewConfigurationError(err.Error())
		}
		out = append(out, v)
	}
	return out, nil
}

// Default 默认变体
func (c *Classifier) Default() types.Variant {
	return c.supported[0]
}

// Classify 解析变体，优先级：自定义模型记录 → 显式提示 → 启用的规则 → 默认。
// 不在支持集合中的候选变体收敛为默认变体
func (c *Classifier) Classify(ctx context.Context, model string, hint types.Variant) (Selection, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return Selection{}, types.NewConfigurationError("model identifier is empty")
	}

	candidate, err := c.candidate(ctx, model, hint)
	if err != nil {
		return Selection{}, err
	}
	if !c.isSupported(candidate) {
		candidate = c.Default()
	}
	return Selection{Model: model, Variant: candidate}, nil
}

func (c *Classifier) candidate(ctx context.Context, model string, hint types.Variant) (types.Variant, error) {
	if c.lookup != nil {
		rec, ok, err := c.lookup.FindCustomModelByValue(ctx, model)
		if err != nil {
			return "", fmt.Errorf("custom model lookup: %w", err)
		}
		if ok {
			return rec.Type, nil
		}
	}
	if hint != "" {
		return hint, nil
	}
	for _, r := range c.rules {
		if r.Enabled && r.Match != nil && r.Match(model) {
			return r.Variant, nil
		}
	}
	return c.Default(), nil
}

func (c *Classifier) isSupported(v types.Variant) bool {
	for _, s := range c.supported {
		if s == v {
			return true
		}
	}
	return false
}
