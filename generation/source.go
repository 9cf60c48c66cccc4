package generation

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/linkedlist771/magic-image-private/types"
)

const (
	// MaxUploadBytes 单张上传图片上限
	MaxUploadBytes = 4 << 20
	// MaxSourceImages 参考图数量上限
	MaxSourceImages = 4
)

var allowedMIME = []string{"image/jpeg", "image/png"}

// SourceImages 经过校验的参考图集合。任何校验失败都不修改集合
type SourceImages struct {
	images []string
	mask   string
}

// validateUpload 校验大小与类型，mimeType 为空时按内容嗅探
func validateUpload(data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", types.NewValidationError("image is empty")
	}
	if len(data) > MaxUploadBytes {
		return "", types.NewValidationError(fmt.Sprintf("image exceeds the %dMB limit", MaxUploadBytes>>20))
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	mimeType = strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if !slices.Contains(allowedMIME, mimeType) {
		return "", types.NewValidationError(fmt.Sprintf("unsupported image type %q, only JPEG and PNG are accepted", mimeType))
	}
	return mimeType, nil
}

// Add 添加一张参考图
func (s *SourceImages) Add(data []byte, mimeType string) error {
	if len(s.images) >= MaxSourceImages {
		return types.NewValidationError(fmt.Sprintf("at most %d source images are allowed", MaxSourceImages))
	}
	mimeType, err := validateUpload(data, mimeType)
	if err != nil {
		return err
	}
	s.images = append(s.images, types.EncodeDataURI(mimeType, data))
	return nil
}

// AddDataURI 添加一张已编码的参考图（例如从历史记录选择）
func (s *SourceImages) AddDataURI(uri string) error {
	mimeType, data, err := types.ParseDataURI(uri)
	if err != nil {
		return types.NewValidationError(err.Error())
	}
	return s.Add(data, mimeType)
}

// Remove 删除第 i 张参考图
func (s *SourceImages) Remove(i int) error {
	if i < 0 || i >= len(s.images) {
		return types.NewValidationError(fmt.Sprintf("source image index %d out of range", i))
	}
	s.images = slices.Delete(s.images, i, i+1)
	return nil
}

// Len 参考图数量
func (s *SourceImages) Len() int { return len(s.images) }

// List 参考图副本
func (s *SourceImages) List() []string { return slices.Clone(s.images) }

// SetMask 设置编辑蒙版
func (s *SourceImages) SetMask(data []byte, mimeType string) error {
	mimeType, err := validateUpload(data, mimeType)
	if err != nil {
		return err
	}
	s.mask = types.EncodeDataURI(mimeType, data)
	return nil
}

// Mask 当前蒙版（data URI），未设置为空
func (s *SourceImages) Mask() string { return s.mask }

// ClearMask 清除蒙版
func (s *SourceImages) ClearMask() { s.mask = "" }

// Clear 清空参考图与蒙版
func (s *SourceImages) Clear() {
	s.images = nil
	s.mask = ""
}
