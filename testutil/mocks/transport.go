// MockTransport 是传输层的测试模拟实现。
//
// 支持固定图片结果、错误注入、自动回放的流式片段，
// 以及由测试手动触发回调的流式会话。
package mocks

import (
	"context"
	"sync"

	"github.com/linkedlist771/magic-image-private/transport"
	"github.com/linkedlist771/magic-image-private/types"
)

// --- MockTransport 结构 ---

// Call 记录一次调用
type Call struct {
	// Ctx 调用时传入的 context，用于断言 trace 与会话字段
	Ctx     context.Context
	Variant types.Variant
	Request transport.Request
	Stream  bool
}

// MockTransport 实现 transport.Adapter
type MockTransport struct {
	mu sync.Mutex

	images []transport.ImageItem
	err    error

	streamChunks []string
	streamRef    string
	streamErr    error
	manual       bool

	calls    []Call
	sessions []transport.StreamCallbacks
}

var _ transport.Adapter = (*MockTransport)(nil)

// NewMockTransport 创建 MockTransport
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// --- Builder 方法 ---

// WithImages 设置一次性请求的返回结果
func (m *MockTransport) WithImages(items ...transport.ImageItem) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images = items
	return m
}

// WithError 设置一次性请求的错误
func (m *MockTransport) WithError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithStream 设置流式回放：依次触发 chunks，然后 OnComplete(ref)
func (m *MockTransport) WithStream(ref string, chunks ...string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamRef = ref
	m.streamChunks = chunks
	return m
}

// WithStreamError 设置流式回放以 OnError(err) 结束
func (m *MockTransport) WithStreamError(err error, chunks ...string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamErr = err
	m.streamChunks = chunks
	return m
}

// WithManualStream 流式请求只登记回调，由测试通过 Session 手动触发
func (m *MockTransport) WithManualStream() *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manual = true
	return m
}

// --- Adapter 实现 ---

// Generate 返回预设结果
func (m *MockTransport) Generate(ctx context.Context, variant types.Variant, req *transport.Request) (*transport.ImagesResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Ctx: ctx, Variant: variant, Request: *req})
	if m.err != nil {
		return nil, m.err
	}
	return &transport.ImagesResponse{Data: append([]transport.ImageItem(nil), m.images...)}, nil
}

// Stream 同步回放或登记回调
func (m *MockTransport) Stream(ctx context.Context, req *transport.Request, cb transport.StreamCallbacks) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Ctx: ctx, Variant: req.Variant, Request: *req, Stream: true})
	m.sessions = append(m.sessions, cb)
	manual := m.manual
	chunks := append([]string(nil), m.streamChunks...)
	ref, streamErr := m.streamRef, m.streamErr
	m.mu.Unlock()

	if manual {
		return
	}
	for _, c := range chunks {
		cb.OnChunk(c)
	}
	if streamErr != nil {
		cb.OnError(streamErr)
		return
	}
	cb.OnComplete(ref)
}

// --- 查询方法 ---

// Calls 返回调用记录
func (m *MockTransport) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount 返回调用次数
func (m *MockTransport) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Session 返回第 i 次流式调用登记的回调
func (m *MockTransport) Session(i int) transport.StreamCallbacks {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[i]
}
