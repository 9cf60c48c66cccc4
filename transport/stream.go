package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/linkedlist771/magic-image-private/types"
)

// =============================================================================
// 📡 流式对话接口
// =============================================================================

type imageURL struct {
	URL string `json:"url"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatChunk struct {
	upstreamError
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

func buildChatRequest(req *Request) chatRequest {
	msg := chatMessage{Role: "user", Content: req.Prompt}
	if len(req.SourceImages) > 0 {
		parts := make([]contentPart, 0, len(req.SourceImages)+1)
		parts = append(parts, contentPart{Type: "text", Text: req.Prompt})
		for _, img := range req.SourceImages {
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: img}})
		}
		msg.Content = parts
	}
	return chatRequest{
		Model:    req.Model,
		Messages: []chatMessage{msg},
		Stream:   true,
	}
}

// Stream 在后台 goroutine 中执行流式请求
func (c *Client) Stream(ctx context.Context, req *Request, cb StreamCallbacks) {
	go c.stream(ctx, req, cb)
}

func (c *Client) stream(ctx context.Context, req *Request, cb StreamCallbacks) {
	fail := func(err error) {
		c.log(ctx).Debug("stream failed", zap.Error(err))
		if cb.OnError != nil {
			cb.OnError(err)
		}
	}

	payload, err := json.Marshal(buildChatRequest(req))
	if err != nil {
		fail(types.NewPlainStreamError(err.Error()))
		return
	}

	resp, err := c.send(ctx, req.Variant, "/v1/chat/completions", "application/json", bytes.NewReader(payload))
	if err != nil {
		fail(err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, ue := readErrorMessage(resp.Body, resp.StatusCode)
		if ue != nil {
			fail(types.NewStreamError(ue.code(), msg))
		} else {
			fail(types.NewPlainStreamError(msg))
		}
		return
	}

	var content strings.Builder
	reader := bufio.NewReader(resp.Body)
	for {
		line, readErr := reader.ReadString('\n')
		line = strings.TrimSpace(line)

		if line != "" {
			data, isData := strings.CutPrefix(line, "data:")
			data = strings.TrimSpace(data)
			if isData && data == "[DONE]" {
				break
			}
			// 非 SSE 行只关心 JSON 错误体
			if isData || strings.HasPrefix(line, "{") {
				var chunk chatChunk
				if err := json.Unmarshal([]byte(data), &chunk); err != nil {
					if isData {
						fail(types.NewPlainStreamError("malformed stream frame: " + err.Error()))
						return
					}
				} else if chunk.Error != nil {
					fail(types.NewStreamError(chunk.code(), chunk.Error.Message))
					return
				}
				for _, choice := range chunk.Choices {
					if choice.Delta.Content == "" {
						continue
					}
					content.WriteString(choice.Delta.Content)
					if cb.OnChunk != nil {
						cb.OnChunk(choice.Delta.Content)
					}
				}
			}
		}

		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				fail(types.NewPlainStreamError(readErr.Error()))
				return
			}
			break
		}
	}

	ref := ExtractImageRef(content.String())
	if ref == "" {
		fail(types.NewStreamError(string(types.ErrNoImage), "no image found in response"))
		return
	}
	if cb.OnComplete != nil {
		cb.OnComplete(ref)
	}
}

var (
	markdownImage = regexp.MustCompile(`!\[[^\]]*\]\(\s*([^)\s]+)\s*\)`)
	bareImageRef  = regexp.MustCompile(`https?://[^\s)"'<>\]]+|data:image/[a-zA-Z0-9.+-]+;base64,[A-Za-z0-9+/=]+`)
)

// ExtractImageRef 从累计文本中提取图片地址：优先最后一个指向 http(s) 或
// data:image 的 markdown 图片，否则取最后一个裸 http(s) 或 data URL
func ExtractImageRef(text string) string {
	matches := markdownImage.FindAllStringSubmatch(text, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		if ref := matches[i][1]; types.IsImageRef(ref) {
			return ref
		}
	}
	if m := bareImageRef.FindAllString(text, -1); len(m) > 0 {
		return strings.TrimRight(m[len(m)-1], ".,;")
	}
	return ""
}
