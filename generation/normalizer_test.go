package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/linkedlist771/magic-image-private/testutil/fixtures"
	"github.com/linkedlist771/magic-image-private/transport"
	"github.com/linkedlist771/magic-image-private/types"
)

func TestNormalize(t *testing.T) {
	refs := Normalize([]transport.ImageItem{
		{URL: "https://x/a.png"},
		{B64JSON: "QUJD"},
		{},
		{URL: "https://x/b.png", B64JSON: "ignored"},
		{B64JSON: "data:image/jpeg;base64,QUJD"},
	})

	assert.Equal(t, []string{
		"https://x/a.png",
		"data:image/png;base64,QUJD",
		"https://x/b.png",
		"data:image/jpeg;base64,QUJD",
	}, refs)
}

func TestNormalize_Empty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	assert.Empty(t, Normalize([]transport.ImageItem{{}, {URL: "  "}}))
}

func TestNormalize_RejectsNonImageURLs(t *testing.T) {
	refs := Normalize([]transport.ImageItem{
		{URL: "images/abc.png"},
		{URL: "images/abc.png", B64JSON: "QUJD"},
		{URL: "ftp://x/a.png"},
		{URL: " https://x/a.png "},
	})

	assert.Equal(t, []string{
		"data:image/png;base64,QUJD",
		"https://x/a.png",
	}, refs)
}

func TestNormalizeRef(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"hosted", "https://x/img.png", "https://x/img.png"},
		{"inline", "data:image/jpeg;base64,QUJD", "data:image/jpeg;base64,QUJD"},
		{"bare payload", "QUJD", "data:image/png;base64,QUJD"},
		{"padded payload", " QUI= ", "data:image/png;base64,QUI="},
		{"relative path", "images/abc.png", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRef(tt.in))
		})
	}
}

func TestDecodeDataURI(t *testing.T) {
	data, mime, err := DecodeDataURI(fixtures.PNGDataURI())
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, fixtures.PNG, data)

	_, _, err = DecodeDataURI("https://x/a.png")
	assert.Error(t, err)
}

// 归一化结果要么是 http(s) 链接要么是 data:image URI，且重复归一化不变
func TestProperty_NormalizeShapeAndIdempotence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 6).Draw(t, "n")
		items := make([]transport.ImageItem, n)
		for i := range items {
			switch rapid.IntRange(0, 4).Draw(t, "kind") {
			case 0:
				items[i].URL = "https://cdn.example.com/" + rapid.StringMatching(`[a-z0-9]{1,12}`).Draw(t, "path") + ".png"
			case 1:
				items[i].B64JSON = rapid.StringMatching(`[A-Za-z0-9+/]{4,40}`).Draw(t, "b64")
			case 2:
				items[i].URL = rapid.String().Draw(t, "url")
			case 3:
				items[i].URL = rapid.String().Draw(t, "url")
				items[i].B64JSON = rapid.String().Draw(t, "raw")
			}
		}

		refs := Normalize(items)
		for _, ref := range refs {
			if !types.IsImageRef(ref) {
				t.Fatalf("unexpected ref shape %q", ref)
			}
		}

		again := make([]transport.ImageItem, len(refs))
		for i, ref := range refs {
			if IsDataURI(ref) {
				again[i].B64JSON = ref
			} else {
				again[i].URL = ref
			}
		}
		assert.Equal(t, refs, Normalize(again))
	})
}

// 流式引用归一化后要么为空，要么是可展示的引用，且重复归一化不变
func TestProperty_NormalizeRefShape(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := rapid.OneOf(
			rapid.String(),
			rapid.StringMatching(`[A-Za-z0-9+/]{1,40}={0,2}`),
			rapid.StringMatching(`https?://[a-z]{1,8}/[a-z0-9./]{0,16}`),
		).Draw(t, "ref")

		ref := NormalizeRef(in)
		if ref == "" {
			return
		}
		if !types.IsImageRef(ref) {
			t.Fatalf("unexpected ref shape %q from %q", ref, in)
		}
		if again := NormalizeRef(ref); again != ref {
			t.Fatalf("not idempotent: %q -> %q", ref, again)
		}
	})
}
