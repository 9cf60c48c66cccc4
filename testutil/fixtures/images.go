// Package fixtures 提供测试用的图片样例。
package fixtures

import (
	"bytes"

	"github.com/linkedlist771/magic-image-private/types"
)

var (
	// PNG 最小的 PNG 文件头，足以被内容嗅探识别
	PNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

	// JPEG 最小的 JPEG 文件头
	JPEG = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")

	// GIF 不被接受的类型
	GIF = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00")
)

// PNGDataURI PNG 样例的 data URI
func PNGDataURI() string {
	return types.EncodeDataURI("image/png", PNG)
}

// Oversized 返回超过上传上限的 PNG 数据
func Oversized(limit int) []byte {
	return append(bytes.Clone(PNG), make([]byte, limit)...)
}
