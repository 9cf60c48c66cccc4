// Package ctxkeys 定义跨包传递的 context 键。
// 编排器把会话信息放进 context，传输层据此给日志打上关联字段。
package ctxkeys

import (
	"context"

	"go.uber.org/zap"
)

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	sessionKey contextKey = "generation_session"
	modelKey   contextKey = "generation_model"
)

// WithSession 设置生成会话号
func WithSession(ctx context.Context, session uint64) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// Session 获取生成会话号
func Session(ctx context.Context) (uint64, bool) {
	v, ok := ctx.Value(sessionKey).(uint64)
	return v, ok
}

// WithModel 设置本次请求的模型标识
func WithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, modelKey, model)
}

// Model 获取模型标识
func Model(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(modelKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Fields 把 context 中的关联信息转换为日志字段
func Fields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if s, ok := Session(ctx); ok {
		fields = append(fields, zap.Uint64("session", s))
	}
	if m, ok := Model(ctx); ok {
		fields = append(fields, zap.String("model", m))
	}
	return fields
}
