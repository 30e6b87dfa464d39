package node

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenplay-ai-api/internal/domain/entity"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain object", in: `{"a":1}`, want: `{"a":1}`},
		{name: "surrounding text", in: "好的，结果如下：\n{\"a\":1}\n希望有帮助", want: `{"a":1}`},
		{name: "code fence", in: "```json\n[1,2]\n```", want: `[1,2]`},
		{name: "array before object", in: `[{"a":1}]`, want: `[{"a":1}]`},
		{name: "no json", in: "抱歉，无法生成", want: "抱歉，无法生成"},
		{name: "empty", in: "  ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSONObject(tt.in))
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type out struct {
		Title string `json:"title"`
	}
	got, err := DecodeJSON[out]("```json\n{\"title\":\"夜航\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "夜航", got.Title)

	_, err = DecodeJSON[out]("没有 JSON")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = DecodeJSON[out](`{"title": }`)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoJSON)
}

func TestIsResponseFormatUnsupportedError(t *testing.T) {
	assert.False(t, IsResponseFormatUnsupportedError(nil))
	assert.True(t, IsResponseFormatUnsupportedError(errors.New("400: response_format is not supported")))
	assert.True(t, IsResponseFormatUnsupportedError(errors.New("Unknown parameter: 'response'")))
	assert.False(t, IsResponseFormatUnsupportedError(errors.New("connection reset")))
}

func TestTruncateAndTail(t *testing.T) {
	assert.Equal(t, "春眠", TruncateByRunes("春眠不觉晓", 2))
	assert.Equal(t, "觉晓", TailByRunes("春眠不觉晓", 2))
	assert.Equal(t, "春眠", TailByRunes("春眠", 5))
	assert.Equal(t, "", TruncateByRunes("abc", 0))
}

func TestPromptBlocks(t *testing.T) {
	assert.Equal(t, EmptyBlock, BuildCharactersBlock(nil))
	assert.Equal(t, "- 林舟（protagonist）：刑警", BuildCharactersBlock([]entity.Character{
		{Name: "林舟", Role: entity.RoleProtagonist, Description: "刑警"},
	}))
	assert.Equal(t, "1. 开端：雨夜\n2. 追查", BuildOutlineBlock([]entity.OutlineSection{
		{Title: "开端", Content: "雨夜"}, {Title: "追查"},
	}))
	assert.Equal(t, "[b1][action] 门开了", BuildScriptBlock([]entity.ScriptBlock{
		{ID: "b1", Type: entity.BlockAction, Content: "门开了"},
	}))
	assert.Equal(t, EmptyBlock, BuildListBlock([]string{" ", ""}))
}
