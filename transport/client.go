package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/linkedlist771/magic-image-private/internal/ctxkeys"
	"github.com/linkedlist771/magic-image-private/internal/tlsutil"
	"github.com/linkedlist771/magic-image-private/types"
)

// =============================================================================
// 🌐 HTTP 客户端
// =============================================================================

// Config 客户端配置
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	// HTTPClient 为空时使用加固的 TLS 客户端
	HTTPClient *http.Client
}

// Client 实现 Adapter
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	creds   CredentialSource
	logger  *zap.Logger
}

var _ Adapter = (*Client)(nil)

// NewClient 创建客户端
func NewClient(cfg Config, creds CredentialSource, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = tlsutil.SecureHTTPClient(cfg.Timeout)
	}

	limit := rate.Inf
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		creds:   creds,
		logger:  logger.With(zap.String("component", "transport")),
	}
}

type generationRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n,omitempty"`
	Size    string `json:"size,omitempty"`
	Quality string `json:"quality,omitempty"`
}

// Generate 文生图或图生图的一次性请求
func (c *Client) Generate(ctx context.Context, variant types.Variant, req *Request) (*ImagesResponse, error) {
	if req.Edit {
		return c.edit(ctx, variant, req)
	}

	payload, err := json.Marshal(generationRequest{
		Model:   req.Model,
		Prompt:  req.Prompt,
		N:       req.Count,
		Size:    req.Size,
		Quality: req.Quality,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.do(ctx, variant, "/v1/images/generations", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeImages(resp, variant)
}

func (c *Client) edit(ctx context.Context, variant types.Variant, req *Request) (*ImagesResponse, error) {
	if req.SourceImage == "" {
		return nil, types.NewValidationError("image editing requires a source image")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writeImagePart(writer, "image", req.SourceImage); err != nil {
		return nil, err
	}
	if req.Mask != "" {
		if err := writeImagePart(writer, "mask", req.Mask); err != nil {
			return nil, err
		}
	}

	fields := [][2]string{{"prompt", req.Prompt}}
	if req.Model != "" {
		fields = append(fields, [2]string{"model", req.Model})
	}
	if req.Count > 0 {
		fields = append(fields, [2]string{"n", strconv.Itoa(req.Count)})
	}
	if req.Size != "" {
		fields = append(fields, [2]string{"size", req.Size})
	}
	if req.Quality != "" {
		fields = append(fields, [2]string{"quality", req.Quality})
	}
	if err := writeFields(writer, fields); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	resp, err := c.do(ctx, variant, "/v1/images/edits", writer.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeImages(resp, variant)
}

func writeFields(w *multipart.Writer, fields [][2]string) error {
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("failed to write %s field: %w", f[0], err)
		}
	}
	return nil
}

func writeImagePart(w *multipart.Writer, field, dataURI string) error {
	mimeType, data, err := types.ParseDataURI(dataURI)
	if err != nil {
		return types.NewValidationError(field + ": " + err.Error())
	}
	ext := "png"
	if mimeType == "image/jpeg" {
		ext = "jpg"
	}
	part, err := w.CreateFormFile(field, field+"."+ext)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", field, err)
	}
	_, err = part.Write(data)
	return err
}

// do 发送请求；非 2xx 响应转换为 TransportError，上游消息原样保留
func (c *Client) do(ctx context.Context, variant types.Variant, path, contentType string, body io.Reader) (*http.Response, error) {
	resp, err := c.send(ctx, variant, path, contentType, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := readErrorMessage(resp.Body, resp.StatusCode)
		return nil, types.NewTransportError(msg, resp.StatusCode).
			WithRetryable(resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500).
			WithProvider(string(variant))
	}

	return resp, nil
}

// send 读取凭证、限流并发送请求，不检查状态码
func (c *Client) send(ctx context.Context, variant types.Variant, path, contentType string, body io.Reader) (*http.Response, error) {
	key, err := c.bearer(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, types.NewTransportError("rate limiter: "+err.Error(), 0).WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+key)
	httpReq.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log(ctx).Warn("request failed", zap.String("path", path), zap.Error(err))
		return nil, types.NewTransportError(err.Error(), 0).
			WithCause(err).
			WithRetryable(true).
			WithProvider(string(variant))
	}

	c.log(ctx).Debug("request completed",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return resp, nil
}

// log 带上 context 中的会话字段
func (c *Client) log(ctx context.Context) *zap.Logger {
	if fields := ctxkeys.Fields(ctx); len(fields) > 0 {
		return c.logger.With(fields...)
	}
	return c.logger
}

func (c *Client) bearer(ctx context.Context) (string, error) {
	if c.creds == nil {
		return "", types.NewConfigurationError("api key is not configured")
	}
	cred, ok, err := c.creds.APICredential(ctx)
	if err != nil {
		return "", err
	}
	if !ok || cred.Key == "" {
		return "", types.NewConfigurationError("api key is not configured")
	}
	return cred.Key, nil
}

func decodeImages(resp *http.Response, variant types.Variant) (*ImagesResponse, error) {
	var out ImagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewTransportError("failed to decode images response: "+err.Error(), resp.StatusCode).
			WithCause(err).
			WithProvider(string(variant))
	}
	return &out, nil
}

// upstreamError OpenAI 兼容的错误体，code 可能是字符串或数字
type upstreamError struct {
	Error *struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (u upstreamError) code() string {
	if u.Error == nil || u.Error.Code == nil {
		return ""
	}
	switch v := u.Error.Code.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// readErrorMessage 读取错误消息：JSON 错误体取 message，否则回退到原始文本
func readErrorMessage(body io.Reader, status int) (string, *upstreamError) {
	data, err := io.ReadAll(io.LimitReader(body, 1<<20))
	if err != nil {
		return "failed to read error response", nil
	}

	var ue upstreamError
	if err := json.Unmarshal(data, &ue); err == nil && ue.Error != nil && ue.Error.Message != "" {
		return ue.Error.Message, &ue
	}

	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", status)
	}
	return msg, nil
}
