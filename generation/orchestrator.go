package generation

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/linkedlist771/magic-image-private/internal/ctxkeys"
	"github.com/linkedlist771/magic-image-private/internal/metrics"
	"github.com/linkedlist771/magic-image-private/transport"
	"github.com/linkedlist771/magic-image-private/types"
)

// =============================================================================
// 🎬 生成编排器
// =============================================================================

// ErrAbandoned 会话在结束前被 Reset 放弃
var ErrAbandoned = errors.New("generation abandoned")

// Persistence 编排器需要的存储能力
type Persistence interface {
	transport.CredentialSource
	AddHistory(ctx context.Context, entry types.HistoryEntry) (types.HistoryEntry, error)
}

// Options 编排器依赖
type Options struct {
	Transport  transport.Adapter
	Store      Persistence
	Classifier *Classifier
	// Collector 为 nil 时不记录指标
	Collector *metrics.Collector
	Logger    *zap.Logger
	Tracer    trace.Tracer
	Now       func() time.Time
	NewID     func() string
}

// Snapshot 编排器可观察状态
type Snapshot struct {
	State   State
	Session uint64
	// Buffer 流式文本累计
	Buffer string
	Images []string
	Prompt string
	Model  string
	Err    error
	// Warning 成功后历史写入失败等非致命问题
	Warning error
}

// Result Generate 的返回值
type Result struct {
	Session uint64
	// Pending 为 true 表示流式会话已启动，结果通过 Wait/Subscribe 获取
	Pending bool
	State   State
	Images  []string
	Prompt  string
	Entry   *types.HistoryEntry
	Warning error
}

// Orchestrator 串联 分类 → 构建 → 分发 → 归一化 → 持久化。
// 同一时刻只允许一个生成在进行
type Orchestrator struct {
	transport  transport.Adapter
	store      Persistence
	classifier *Classifier
	collector  *metrics.Collector
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
	newID      func() string

	sem *semaphore.Weighted

	mu       sync.Mutex
	state    State
	session  uint64
	inflight bool
	buffer   strings.Builder
	images   []string
	prompt   string
	model    string
	variant  types.Variant
	mode     Mode
	err      error
	warning  error
	started  time.Time
	span     trace.Span
	settled  chan struct{}

	subMu       sync.RWMutex
	subscribers map[int]func(Snapshot)
	nextSubID   int
}

// New 创建编排器
func New(opts Options) (*Orchestrator, error) {
	if opts.Transport == nil {
		return nil, types.NewConfigurationError("transport is required")
	}
	if opts.Store == nil {
		return nil, types.NewConfigurationError("store is required")
	}
	if opts.Classifier == nil {
		return nil, types.NewConfigurationError("classifier is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/linkedlist771/magic-image-private/generation")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	return &Orchestrator{
		transport:   opts.Transport,
		store:       opts.Store,
		classifier:  opts.Classifier,
		collector:   opts.Collector,
		logger:      opts.Logger.With(zap.String("component", "orchestrator")),
		tracer:      opts.Tracer,
		now:         opts.Now,
		newID:       opts.NewID,
		sem:         semaphore.NewWeighted(1),
		state:       StateIdle,
		subscribers: make(map[int]func(Snapshot)),
	}, nil
}

// =============================================================================
// 🚀 Generate
// =============================================================================

// Generate 执行一次生成。流式变体立即返回 Pending 结果；
// 已有生成在进行时返回 BUSY 错误且不改变状态
func (o *Orchestrator) Generate(ctx context.Context, intent Intent, sel Selection) (*Result, error) {
	if !o.sem.TryAcquire(1) {
		return nil, types.NewError(types.ErrBusy, "a generation is already in progress")
	}

	intent = intent.WithDefaults()
	ctx, session := o.begin(ctx, intent)

	// Validating：分类、构建、凭证
	resolved, err := o.classifier.Classify(ctx, sel.Model, sel.Variant)
	if err != nil {
		return nil, o.fail(session, err)
	}
	req, err := Build(intent, resolved)
	if err != nil {
		return nil, o.fail(session, err)
	}
	if _, ok, err := o.store.APICredential(ctx); err != nil {
		return nil, o.fail(session, err)
	} else if !ok {
		return nil, o.fail(session, types.NewConfigurationError("api key is not configured"))
	}

	if !o.update(session, func() {
		o.prompt = req.Prompt
		o.model = resolved.Model
		o.variant = resolved.Variant
		o.span.SetAttributes(attribute.String("variant", string(resolved.Variant)))
		o.transition(StateDispatching)
	}) {
		return nil, ErrAbandoned
	}

	ctx = ctxkeys.WithModel(ctxkeys.WithSession(ctx, session), resolved.Model)
	if resolved.Variant.Streaming() {
		return o.dispatchStream(ctx, session, req)
	}
	return o.dispatchOnce(ctx, session, req, resolved)
}

func (o *Orchestrator) dispatchOnce(ctx context.Context, session uint64, req *transport.Request, sel Selection) (*Result, error) {
	resp, err := o.transport.Generate(ctx, sel.Variant, req)
	if err != nil {
		return nil, o.fail(session, err)
	}

	refs := Normalize(resp.Data)
	if len(refs) == 0 {
		return nil, o.fail(session, types.NewError(types.ErrNoImage, "provider returned no usable image"))
	}

	// 固定尺寸提供方不接受自由比例，历史中记录 1:1
	ratio := req.AspectRatio
	if sel.Variant.FixedSize() || ratio == "" {
		ratio = DefaultAspectRatio
	}

	var result *Result
	ok := o.update(session, func() {
		entry, warn := o.persist(ctx, refs[0], ratio)
		o.images = refs
		o.warning = warn
		o.settle(StateSuccess)
		result = &Result{
			Session: session,
			State:   StateSuccess,
			Images:  slices.Clone(refs),
			Prompt:  req.Prompt,
			Entry:   entry,
			Warning: warn,
		}
	})
	if !ok {
		return nil, ErrAbandoned
	}
	return result, nil
}

func (o *Orchestrator) dispatchStream(ctx context.Context, session uint64, req *transport.Request) (*Result, error) {
	if !o.update(session, func() { o.transition(StateStreaming) }) {
		return nil, ErrAbandoned
	}

	// 历史写入不随调用方 ctx 取消
	persistCtx := context.WithoutCancel(ctx)
	o.transport.Stream(ctx, req, transport.StreamCallbacks{
		OnChunk: func(text string) {
			o.update(session, func() {
				o.buffer.WriteString(text)
				if o.collector != nil {
					o.collector.RecordStreamChunk()
				}
			})
		},
		OnComplete: func(raw string) {
			o.update(session, func() {
				ref := NormalizeRef(raw)
				if ref == "" {
					o.images = nil
					o.err = types.NewStreamError(string(types.ErrNoImage), "response did not contain a usable image")
					o.settle(StateFailed)
					return
				}
				_, warn := o.persist(persistCtx, ref, req.AspectRatio)
				o.images = []string{ref}
				o.warning = warn
				o.settle(StateSuccess)
			})
		},
		OnError: func(err error) {
			o.update(session, func() {
				o.images = nil
				o.err = err
				o.settle(StateFailed)
			})
		},
	})

	return &Result{
		Session: session,
		Pending: true,
		State:   StateStreaming,
		Prompt:  req.Prompt,
	}, nil
}

// persist 写入一条历史。失败只记录警告，不改变成功结果
func (o *Orchestrator) persist(ctx context.Context, ref, ratio string) (*types.HistoryEntry, error) {
	entry, err := o.store.AddHistory(ctx, types.HistoryEntry{
		ID:          o.newID(),
		Prompt:      o.prompt,
		URL:         ref,
		Model:       o.model,
		CreatedAt:   types.Timestamp(o.now()),
		AspectRatio: ratio,
	})
	if o.collector != nil {
		o.collector.RecordHistoryWrite(err)
	}
	if err != nil {
		o.logger.Warn("history write failed", zap.Uint64("session", o.session), zap.Error(err))
		return nil, err
	}
	return &entry, nil
}

// =============================================================================
// 🔄 会话与状态
// =============================================================================

// begin 开启新会话：清空上一次的缓冲与结果，返回携带会话 span 的 ctx
func (o *Orchestrator) begin(ctx context.Context, intent Intent) (context.Context, uint64) {
	o.mu.Lock()
	o.session++
	o.inflight = true
	o.buffer.Reset()
	o.images = nil
	o.err = nil
	o.warning = nil
	o.prompt = ""
	o.model = ""
	o.variant = ""
	o.mode = intent.Mode
	o.started = o.now()
	o.settled = make(chan struct{})
	ctx, o.span = o.tracer.Start(ctx, "generation.generate", trace.WithAttributes(
		attribute.String("mode", string(intent.Mode)),
		attribute.Int64("session", int64(o.session)),
	))
	o.transition(StateValidating)
	session := o.session
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.notify(snap)
	return ctx, session
}

// update 在会话仍然有效时执行 fn 并通知订阅者；过期会话的回调被丢弃
func (o *Orchestrator) update(session uint64, fn func()) bool {
	o.mu.Lock()
	if session != o.session || !o.state.Busy() {
		o.mu.Unlock()
		o.logger.Debug("dropping stale session callback", zap.Uint64("session", session))
		return false
	}
	fn()
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.notify(snap)
	return true
}

// fail 使会话失败并返回原始错误
func (o *Orchestrator) fail(session uint64, err error) error {
	if !o.update(session, func() {
		o.images = nil
		o.err = err
		o.settle(StateFailed)
	}) {
		return ErrAbandoned
	}
	return err
}

// transition 在持有 mu 时调用
func (o *Orchestrator) transition(to State) {
	from := o.state
	if !CanTransition(from, to) {
		o.logger.Error("unexpected state transition", zap.Error(ErrInvalidTransition{From: from, To: to}))
	}
	o.state = to
	if o.collector != nil && from != to {
		o.collector.RecordStateTransition(string(from), string(to))
	}
}

// settle 进入终态并释放单飞信号量，在持有 mu 时调用
func (o *Orchestrator) settle(to State) {
	o.transition(to)

	status := "success"
	if to == StateFailed {
		status = "failed"
		o.span.RecordError(o.err)
		o.span.SetStatus(codes.Error, types.UserMessage(o.err))
		o.logger.Info("generation failed",
			zap.Uint64("session", o.session),
			zap.String("code", string(types.GetErrorCode(o.err))),
			zap.Error(o.err),
		)
	} else {
		o.logger.Info("generation succeeded",
			zap.Uint64("session", o.session),
			zap.String("model", o.model),
			zap.Int("images", len(o.images)),
		)
	}
	o.span.End()

	if o.collector != nil {
		variant := string(o.variant)
		if variant == "" {
			variant = "unknown"
		}
		o.collector.RecordGeneration(variant, string(o.mode), status, o.now().Sub(o.started))
	}

	o.release()
}

// release 关闭 settled 通道并归还信号量，在持有 mu 时调用
func (o *Orchestrator) release() {
	if !o.inflight {
		return
	}
	o.inflight = false
	close(o.settled)
	o.sem.Release(1)
}

// Reset 放弃当前会话并回到 Idle。被放弃会话的后续回调都会被丢弃
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	if o.inflight {
		o.span.SetStatus(codes.Error, ErrAbandoned.Error())
		o.span.End()
	}
	o.session++
	if o.state != StateIdle {
		o.transition(StateIdle)
	}
	o.buffer.Reset()
	o.images = nil
	o.err = nil
	o.warning = nil
	o.release()
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.notify(snap)
}

// =============================================================================
// 👀 观察
// =============================================================================

// State 当前状态
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Snapshot 当前可观察状态
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	return Snapshot{
		State:   o.state,
		Session: o.session,
		Buffer:  o.buffer.String(),
		Images:  slices.Clone(o.images),
		Prompt:  o.prompt,
		Model:   o.model,
		Err:     o.err,
		Warning: o.warning,
	}
}

// Wait 阻塞直到当前会话结束（或被 Reset），返回结束时的快照
func (o *Orchestrator) Wait(ctx context.Context) (Snapshot, error) {
	o.mu.Lock()
	ch := o.settled
	o.mu.Unlock()

	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return o.Snapshot(), ctx.Err()
		}
	}
	return o.Snapshot(), nil
}

// Subscribe 注册状态变化回调，返回取消函数。
// 回调在触发变化的 goroutine 上同步执行，不应阻塞
func (o *Orchestrator) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	o.subMu.Lock()
	id := o.nextSubID
	o.nextSubID++
	o.subscribers[id] = fn
	o.subMu.Unlock()

	return func() {
		o.subMu.Lock()
		delete(o.subscribers, id)
		o.subMu.Unlock()
	}
}

func (o *Orchestrator) notify(snap Snapshot) {
	o.subMu.RLock()
	subs := make([]func(Snapshot), 0, len(o.subscribers))
	for _, fn := range o.subscribers {
		subs = append(subs, fn)
	}
	o.subMu.RUnlock()

	for _, fn := range subs {
		fn(snap)
	}
}
