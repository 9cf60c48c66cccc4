package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkedlist771/magic-image-private/testutil/fixtures"
	"github.com/linkedlist771/magic-image-private/types"
)

func TestSourceImages_Add(t *testing.T) {
	var s SourceImages
	require.NoError(t, s.Add(fixtures.PNG, "image/png"))
	require.NoError(t, s.Add(fixtures.JPEG, "image/jpeg"))

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, fixtures.PNGDataURI(), list[0])
	assert.Contains(t, list[1], "data:image/jpeg;base64,")
}

func TestSourceImages_RejectsOversized(t *testing.T) {
	var s SourceImages
	require.NoError(t, s.Add(fixtures.PNG, "image/png"))

	err := s.Add(fixtures.Oversized(5<<20), "image/png")
	require.Error(t, err)
	assert.Equal(t, types.ErrValidation, types.GetErrorCode(err))
	assert.Equal(t, 1, s.Len(), "rejected upload must not change the collection")
}

func TestSourceImages_RejectsUnsupportedType(t *testing.T) {
	var s SourceImages

	err := s.Add(fixtures.GIF, "image/gif")
	require.Error(t, err)
	assert.Equal(t, types.ErrValidation, types.GetErrorCode(err))

	// 未声明类型时按内容嗅探
	assert.Error(t, s.Add(fixtures.GIF, ""))
	assert.Equal(t, 0, s.Len())
}

func TestSourceImages_SniffsType(t *testing.T) {
	var s SourceImages
	require.NoError(t, s.Add(fixtures.PNG, ""))
	assert.Equal(t, fixtures.PNGDataURI(), s.List()[0])
}

func TestSourceImages_Limit(t *testing.T) {
	var s SourceImages
	for i := 0; i < MaxSourceImages; i++ {
		require.NoError(t, s.Add(fixtures.PNG, "image/png"))
	}

	err := s.Add(fixtures.PNG, "image/png")
	require.Error(t, err)
	assert.Equal(t, MaxSourceImages, s.Len())
}

func TestSourceImages_RemoveAndMask(t *testing.T) {
	var s SourceImages
	require.NoError(t, s.Add(fixtures.PNG, "image/png"))
	require.NoError(t, s.Add(fixtures.JPEG, "image/jpeg"))

	assert.Error(t, s.Remove(5))
	require.NoError(t, s.Remove(0))
	assert.Contains(t, s.List()[0], "image/jpeg")

	require.NoError(t, s.SetMask(fixtures.PNG, ""))
	assert.Equal(t, fixtures.PNGDataURI(), s.Mask())
	s.ClearMask()
	assert.Empty(t, s.Mask())

	require.NoError(t, s.SetMask(fixtures.PNG, ""))
	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Mask())
}

func TestSourceImages_AddDataURI(t *testing.T) {
	var s SourceImages
	require.NoError(t, s.AddDataURI(fixtures.PNGDataURI()))
	assert.Equal(t, 1, s.Len())

	assert.Error(t, s.AddDataURI("https://x/img.png"))
	assert.Equal(t, 1, s.Len())
}

func TestSourceImages_ListIsCopy(t *testing.T) {
	var s SourceImages
	require.NoError(t, s.Add(fixtures.PNG, "image/png"))

	list := s.List()
	list[0] = "mutated"
	assert.Equal(t, fixtures.PNGDataURI(), s.List()[0])
}
