package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkedlist771/magic-image-private/types"
)

// =============================================================================
// 🧪 Stream 测试
// =============================================================================

type streamOutcome struct {
	chunks []string
	ref    string
	err    error
}

// runStream 启动流式请求并等待唯一的终止回调
func runStream(t *testing.T, client *Client, req *Request) streamOutcome {
	t.Helper()

	var out streamOutcome
	done := make(chan struct{})
	client.Stream(context.Background(), req, StreamCallbacks{
		OnChunk:    func(text string) { out.chunks = append(out.chunks, text) },
		OnComplete: func(ref string) { out.ref = ref; close(done) },
		OnError:    func(err error) { out.err = err; close(done) },
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not settle")
	}
	return out
}

func sseHandler(t *testing.T, frames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range frames {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", f)
			w.(http.Flusher).Flush()
		}
	}
}

func delta(text string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"delta": map[string]any{"content": text}}},
	})
	return string(b)
}

func TestStream_ChunksThenComplete(t *testing.T) {
	client := newTestClient(t, sseHandler(t,
		delta("正在生成..."),
		delta("\n![image]("),
		delta("https://x/img.png)"),
		"[DONE]",
	))

	out := runStream(t, client, &Request{Model: "sora_image", Prompt: "a red fox"})
	require.NoError(t, out.err)
	assert.Equal(t, []string{"正在生成...", "\n![image](", "https://x/img.png)"}, out.chunks)
	assert.Equal(t, "https://x/img.png", out.ref)
}

func TestStream_RequestBody(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		sseHandler(t, delta("https://x/1.png"), "[DONE]")(w, r)
	})

	src := []string{"data:image/png;base64,QQ==", "data:image/png;base64,Qg=="}
	out := runStream(t, client, &Request{Model: "gpt_4o_image", Prompt: "mix", SourceImages: src})
	require.NoError(t, out.err)

	assert.Equal(t, true, body["stream"])
	assert.Equal(t, "gpt_4o_image", body["model"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	parts := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 3)
	assert.Equal(t, "mix", parts[0].(map[string]any)["text"])
	assert.Equal(t, src[1], parts[2].(map[string]any)["image_url"].(map[string]any)["url"])
}

func TestStream_StructuredErrorFrame(t *testing.T) {
	client := newTestClient(t, sseHandler(t,
		delta("partial"),
		`{"error":{"code":"quota_exceeded","message":"insufficient quota"}}`,
	))

	out := runStream(t, client, &Request{Prompt: "p"})
	var se *types.StreamError
	require.ErrorAs(t, out.err, &se)
	assert.True(t, se.Structured)
	assert.Equal(t, "quota_exceeded", se.Code)
	assert.Equal(t, "insufficient quota", se.Message)
	assert.Equal(t, []string{"partial"}, out.chunks)
}

func TestStream_HTTPErrorStatus(t *testing.T) {
	t.Run("json body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":{"code":401,"message":"invalid token"}}`)
		})
		out := runStream(t, client, &Request{Prompt: "p"})
		var se *types.StreamError
		require.ErrorAs(t, out.err, &se)
		assert.Equal(t, "401", se.Code)
		assert.Equal(t, "image generation failed: invalid token\nerror code: 401", se.Display())
	})

	t.Run("plain body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, "upstream overloaded")
		})
		out := runStream(t, client, &Request{Prompt: "p"})
		var se *types.StreamError
		require.ErrorAs(t, out.err, &se)
		assert.False(t, se.Structured)
		assert.Equal(t, "upstream overloaded", se.Display())
	})
}

func TestStream_NonSSEErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"error":{"message":"model not found","code":"model_not_found"}}`)
	})

	out := runStream(t, client, &Request{Prompt: "p"})
	var se *types.StreamError
	require.ErrorAs(t, out.err, &se)
	assert.Equal(t, "model_not_found", se.Code)
}

func TestStream_NoImageInContent(t *testing.T) {
	client := newTestClient(t, sseHandler(t, delta("sorry, I cannot draw that"), "[DONE]"))

	out := runStream(t, client, &Request{Prompt: "p"})
	var se *types.StreamError
	require.ErrorAs(t, out.err, &se)
	assert.Equal(t, string(types.ErrNoImage), se.Code)
}

func TestStream_MalformedFrame(t *testing.T) {
	client := newTestClient(t, sseHandler(t, "{not json"))

	out := runStream(t, client, &Request{Prompt: "p"})
	var se *types.StreamError
	require.ErrorAs(t, out.err, &se)
	assert.False(t, se.Structured)
}

func TestStream_MissingCredential(t *testing.T) {
	client := newTestClient(t, sseHandler(t))
	client.creds = staticCreds{}

	out := runStream(t, client, &Request{Prompt: "p"})
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(out.err))
}

func TestExtractImageRef(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "markdown", in: "done ![img](https://x/a.png) enjoy", want: "https://x/a.png"},
		{name: "last markdown wins", in: "![a](https://x/1.png)\n![b](https://x/2.png)", want: "https://x/2.png"},
		{name: "bare url", in: "see https://x/a.png, and https://x/b.png.", want: "https://x/b.png"},
		{name: "data url", in: "![](data:image/png;base64,QUJD)", want: "data:image/png;base64,QUJD"},
		{name: "bare data url", in: "result data:image/webp;base64,QUJD", want: "data:image/webp;base64,QUJD"},
		{name: "relative markdown target", in: "![img](images/abc.png)", want: ""},
		{name: "relative target skipped", in: "![a](https://x/1.png) ![b](images/abc.png)", want: "https://x/1.png"},
		{name: "nothing", in: "no image here", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractImageRef(tt.in))
		})
	}
}
