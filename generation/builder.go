package generation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/linkedlist771/magic-image-private/transport"
	"github.com/linkedlist771/magic-image-private/types"
)

// =============================================================================
// 🧱 请求构建
// =============================================================================

// MultiImageClause 多参考图时追加到提示词的说明
func MultiImageClause(n int) string {
	return fmt.Sprintf("\n\n参考图片信息：上传了%d张参考图片，第一张作为主要参考，其他图片作为额外参考。", n)
}

// AspectRatioClause 自由比例提供方追加的比例说明
func AspectRatioClause(ratio string) string {
	return "\n图片生成比例为：" + ratio
}

// QualitiesFor 模型可接受的质量取值
func QualitiesFor(sel Selection) []string {
	if !sel.Variant.FixedSize() {
		return nil
	}
	if sel.Model == "dall-e-3" {
		return []string{"hd", "standard"}
	}
	return []string{"auto", "high", "medium", "low"}
}

// Validate 检查构建前置条件：图生图至少一张参考图，提示词非空，
// 尺寸、质量、数量、比例在枚举范围内。
// 质量只校验全局枚举，模型不接受的取值在 Build 中省略
func Validate(in Intent) error {
	switch in.Mode {
	case ModeTextToImage, ModeImageToImage:
	default:
		return types.NewValidationError(fmt.Sprintf("unknown generation mode %q", in.Mode))
	}
	if in.Mode == ModeImageToImage && len(in.Sources) == 0 {
		return types.NewValidationError("image-to-image mode requires at least one source image")
	}
	if strings.TrimSpace(in.Prompt) == "" {
		return types.NewValidationError("prompt must not be empty")
	}
	if !slices.Contains(Sizes, in.Size) {
		return types.NewValidationError(fmt.Sprintf("unsupported size %q", in.Size))
	}
	if !slices.Contains(Qualities, in.Quality) {
		return types.NewValidationError(fmt.Sprintf("unsupported quality %q", in.Quality))
	}
	if in.Count < MinCount || in.Count > MaxCount {
		return types.NewValidationError(fmt.Sprintf("image count must be between %d and %d", MinCount, MaxCount))
	}
	if !slices.Contains(AspectRatios, in.AspectRatio) {
		return types.NewValidationError(fmt.Sprintf("unsupported aspect ratio %q", in.AspectRatio))
	}
	if len(in.Sources) > MaxSourceImages {
		return types.NewValidationError(fmt.Sprintf("at most %d source images are allowed", MaxSourceImages))
	}
	return nil
}

// EnrichPrompt 生成实际发送（也是写入历史）的提示词
func EnrichPrompt(in Intent, variant types.Variant) string {
	prompt := strings.TrimSpace(in.Prompt)
	if in.Mode == ModeImageToImage && len(in.Sources) > 1 {
		prompt += MultiImageClause(len(in.Sources))
	}
	if !variant.FixedSize() {
		prompt += AspectRatioClause(in.AspectRatio)
	}
	return prompt
}

// Build 从意图构建提供方请求
func Build(in Intent, sel Selection) (*transport.Request, error) {
	in = in.WithDefaults()
	if err := Validate(in); err != nil {
		return nil, err
	}

	req := &transport.Request{
		Variant: sel.Variant,
		Model:   sel.Model,
		Prompt:  EnrichPrompt(in, sel.Variant),
	}

	if sel.Variant.Streaming() {
		req.AspectRatio = in.AspectRatio
		if in.Mode == ModeImageToImage {
			req.SourceImage = in.Sources[0]
			req.SourceImages = in.Sources
		}
		return req, nil
	}

	req.Size = in.Size
	req.Count = in.Count
	if slices.Contains(QualitiesFor(sel), in.Quality) {
		req.Quality = in.Quality
	}
	if in.Mode == ModeImageToImage {
		// 编辑接口只接受一张主图，其余参考图只体现在提示词中
		req.Edit = true
		req.SourceImage = in.Sources[0]
		req.Mask = in.Mask
	}
	return req, nil
}
