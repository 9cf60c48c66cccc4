package generation

import "slices"

// Mode 生成模式
type Mode string

const (
	ModeTextToImage  Mode = "text-to-image"
	ModeImageToImage Mode = "image-to-image"
)

// 取值枚举
var (
	Sizes        = []string{"1024x1024", "1536x1024", "1024x1536", "1792x1024"}
	Qualities    = []string{"auto", "high", "medium", "low", "hd", "standard"}
	AspectRatios = []string{"1:1", "16:9", "9:16"}
)

const (
	MinCount = 1
	MaxCount = 4
)

// 默认值
const (
	DefaultSize        = "1024x1024"
	DefaultQuality     = "auto"
	DefaultAspectRatio = "1:1"
	DefaultCount       = 1
)

// Intent 一次生成请求的用户意图
type Intent struct {
	Prompt string
	Mode   Mode
	// Sources 参考图（data URI），由 SourceImages 校验后产生
	Sources []string
	// Mask 编辑蒙版（data URI），可为空
	Mask        string
	Size        string
	Count       int
	Quality     string
	AspectRatio string
}

// WithDefaults 返回补齐默认值后的副本
func (in Intent) WithDefaults() Intent {
	if in.Mode == "" {
		in.Mode = ModeTextToImage
	}
	if in.Size == "" {
		in.Size = DefaultSize
	}
	if in.Count == 0 {
		in.Count = DefaultCount
	}
	if in.Quality == "" {
		in.Quality = DefaultQuality
	}
	if in.AspectRatio == "" {
		in.AspectRatio = DefaultAspectRatio
	}
	in.Sources = slices.Clone(in.Sources)
	return in
}
