package novel

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenplay-ai-api/internal/application/projectstore"
	"screenplay-ai-api/internal/domain/entity"
	"screenplay-ai-api/internal/infrastructure/persistence/memory"
	apperrors "screenplay-ai-api/pkg/errors"
)

func fixedChunker(max int) *Chunker {
	return &Chunker{MaxChunkRunes: max, Now: func() time.Time { return time.UnixMilli(10_000) }}
}

func TestSplitByRunes_Reconstructs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  int
	}{
		{name: "empty", input: "", max: 3, want: 0},
		{name: "below limit", input: "ab", max: 3, want: 1},
		{name: "exact limit", input: "abc", max: 3, want: 1},
		{name: "one over", input: "abcd", max: 3, want: 2},
		{name: "multibyte", input: "春眠不觉晓处处闻啼鸟", max: 4, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := SplitByRunes(tt.input, tt.max)
			assert.Len(t, parts, tt.want)
			assert.Equal(t, tt.input, strings.Join(parts, ""))
			for _, p := range parts {
				assert.LessOrEqual(t, len([]rune(p)), tt.max)
			}
		})
	}
}

func TestAppend_LargeDocumentSplitsIntoParts(t *testing.T) {
	doc := strings.Repeat("字", 250_000)
	res := NewChunker(0).Append(nil, []Document{{Name: "长篇.txt", Content: doc}})

	require.Len(t, res.Added, 3)
	assert.Equal(t, "长篇.txt (Part 1/3)", res.Added[0].Name)
	assert.Equal(t, "长篇.txt (Part 3/3)", res.Added[2].Name)
	assert.Equal(t, 100_000, res.Added[0].WordCount)
	assert.Equal(t, 100_000, res.Added[1].WordCount)
	assert.Equal(t, 50_000, res.Added[2].WordCount)

	var rebuilt strings.Builder
	for _, ch := range res.Added {
		rebuilt.WriteString(ch.Content)
		assert.Equal(t, len([]rune(ch.Content)), ch.WordCount)
	}
	assert.Equal(t, doc, rebuilt.String())
	assert.Less(t, res.Added[0].UploadedAt, res.Added[1].UploadedAt)
	assert.Less(t, res.Added[1].UploadedAt, res.Added[2].UploadedAt)
}

func TestAppend_SmallDocumentKeepsName(t *testing.T) {
	res := fixedChunker(10).Append(nil, []Document{{Name: "a.txt", Content: "短文"}})
	require.Len(t, res.Added, 1)
	assert.Equal(t, "a.txt", res.Added[0].Name)
	assert.Equal(t, "短文", res.FullText)
}

func TestAppend_SkipsEmptyAndDuplicates(t *testing.T) {
	c := fixedChunker(10)
	first := c.Append(nil, []Document{{Name: "a.txt", Content: "第一章"}})

	res := c.Append(first.Chunks, []Document{
		{Name: "empty.txt", Content: ""},
		{Name: "a.txt", Content: "完全不同的内容"},
		{Name: "a", Content: "另一章"},
		{Name: "b.txt", Content: "第二章"},
	})

	require.Len(t, res.Added, 1)
	assert.Equal(t, "b.txt", res.Added[0].Name)
	assert.Equal(t, []Skipped{
		{Name: "empty.txt", Reason: SkipEmpty},
		{Name: "a.txt", Reason: SkipDuplicate},
		{Name: "a", Reason: SkipDuplicate},
	}, res.Skipped)
	assert.Equal(t, "第一章\n\n第二章", res.FullText)
	assert.Greater(t, res.Added[0].UploadedAt, first.Added[0].UploadedAt)
}

func TestAppend_LargeDocumentReuploadIsDuplicate(t *testing.T) {
	c := NewChunker(0)
	doc := Document{Name: "book.txt", Content: strings.Repeat("字", 250_000)}
	first := c.Append(nil, []Document{doc})
	require.Len(t, first.Added, 3)

	res := c.Append(first.Chunks, []Document{doc})
	assert.Empty(t, res.Added)
	assert.Len(t, res.Chunks, 3)
	assert.Equal(t, []Skipped{{Name: "book.txt", Reason: SkipDuplicate}}, res.Skipped)

	longer := Document{Name: "book.txt", Content: strings.Repeat("字", 250_001)}
	res = c.Append(first.Chunks, []Document{longer})
	assert.Len(t, res.Added, 3)
}

func TestAppend_PrefixWithDifferentLengthIsNotDuplicate(t *testing.T) {
	c := fixedChunker(10)
	first := c.Append(nil, []Document{{Name: "卷一.txt", Content: "abc"}})

	res := c.Append(first.Chunks, []Document{{Name: "卷一", Content: "abcd"}})
	assert.Len(t, res.Added, 1)
}

func TestAppend_DoesNotMutateExisting(t *testing.T) {
	existing := []entity.NovelUploadChunk{{ID: "x", Name: "x", Content: "x", WordCount: 1}}
	res := fixedChunker(10).Append(existing[:1:1], []Document{{Name: "y", Content: "y"}})
	assert.Len(t, existing, 1)
	assert.Len(t, res.Chunks, 2)
}

func TestRemove_RecomputesFullText(t *testing.T) {
	res := fixedChunker(10).Append(nil, []Document{
		{Name: "a", Content: "甲"},
		{Name: "b", Content: "乙"},
		{Name: "c", Content: "丙"},
	})

	chunks, text, ok := Remove(res.Chunks, res.Chunks[1].ID)
	require.True(t, ok)
	assert.Len(t, chunks, 2)
	assert.Equal(t, "甲\n\n丙", text)

	_, _, ok = Remove(chunks, "missing")
	assert.False(t, ok)
}

func TestService_UploadAndRemove(t *testing.T) {
	ctx := context.Background()
	store := projectstore.New(memory.NewSnapshotRepo(), projectstore.Options{})
	store.Hydrate(ctx)
	p := store.Create(ctx, "x")
	svc := NewService(store, fixedChunker(4))

	out, err := svc.UploadDocuments(ctx, p.ID, []Document{{Name: "n.txt", Content: "一二三四五六"}})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Added)
	require.Len(t, out.Project.NovelUploadChunks, 2)
	assert.Equal(t, "一二三四\n\n五六", out.Project.NovelFullText)
	assert.Greater(t, out.Project.UpdatedAt, p.UpdatedAt)

	again, err := svc.UploadDocuments(ctx, p.ID, []Document{{Name: "", Content: ""}})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Added)
	assert.Equal(t, out.Project.UpdatedAt, again.Project.UpdatedAt)

	got, err := svc.RemoveChunk(ctx, p.ID, out.Project.NovelUploadChunks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "五六", got.NovelFullText)

	_, err = svc.RemoveChunk(ctx, p.ID, "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeChunkNotFound))

	_, err = svc.UploadDocuments(ctx, p.ID, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidParam))
}

func TestPatchReplacingChunksRefreshesFullText(t *testing.T) {
	ctx := context.Background()
	store := projectstore.New(memory.NewSnapshotRepo(), projectstore.Options{})
	store.Hydrate(ctx)
	p := store.Create(ctx, "x")
	svc := NewService(store, fixedChunker(10))

	_, err := svc.UploadDocuments(ctx, p.ID, []Document{{Name: "a.txt", Content: "原著内容"}})
	require.NoError(t, err)

	empty := []entity.NovelUploadChunk{}
	got, err := store.ApplyPatch(ctx, p.ID, entity.ProjectPatch{NovelUploadChunks: &empty})
	require.NoError(t, err)
	assert.Empty(t, got.NovelUploadChunks)
	assert.Equal(t, "", got.NovelFullText)
}
