package llmjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArray_Plain(t *testing.T) {
	arr, err := Array(`[{"a":1},{"a":2}]`)
	require.NoError(t, err)
	assert.Len(t, arr, 2)
}

func TestArray_Fenced(t *testing.T) {
	arr, err := Array("```json\n[{\"index\":1}]\n```")
	require.NoError(t, err)
	assert.Len(t, arr, 1)
}

func TestArray_SurroundingProse(t *testing.T) {
	text := "以下が結果です。\n[{\"index\":1,\"title\":\"面談\"}]\n以上です。"
	arr, err := Array(text)
	require.NoError(t, err)
	require.Len(t, arr, 1)

	var v struct {
		Index int    `json:"index"`
		Title string `json:"title"`
	}
	require.NoError(t, Decode(arr[0], &v))
	assert.Equal(t, 1, v.Index)
	assert.Equal(t, "面談", v.Title)
}

func TestArray_NestedArraysBalance(t *testing.T) {
	arr, err := Array(`prefix [[1,2],[3]] suffix`)
	require.NoError(t, err)
	assert.Len(t, arr, 2)
}

func TestArray_Empty(t *testing.T) {
	arr, err := Array(`[]`)
	require.NoError(t, err)
	assert.Empty(t, arr)
}

func TestArray_NoArray(t *testing.T) {
	_, err := Array("申し訳ありませんが、該当するイベントはありません。")
	assert.Error(t, err)
}

func TestArray_Unbalanced(t *testing.T) {
	_, err := Array(`[{"a":1}`)
	assert.Error(t, err)
}

func TestArray_EmptyInput(t *testing.T) {
	_, err := Array("   ")
	assert.Error(t, err)
}

func TestDecode_Malformed(t *testing.T) {
	arr, err := Array(`["not-an-object"]`)
	require.NoError(t, err)

	var v struct{ Index int }
	assert.Error(t, Decode(arr[0], &v))
}
