// Package novel 处理原著文档：切片、去重、全文缓存
package novel

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"screenplay-ai-api/internal/domain/entity"
)

// DefaultMaxChunkRunes 单个分片的最大字符数
const DefaultMaxChunkRunes = 100_000

// FullTextSeparator 重建全文时分片之间的分隔符
const FullTextSeparator = entity.NovelChunkSeparator

// Document 一份上传的文本文档
type Document struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// SkipReason 文档被跳过的原因
type SkipReason string

const (
	SkipEmpty     SkipReason = "empty"
	SkipDuplicate SkipReason = "duplicate"
)

// Skipped 被跳过的文档
type Skipped struct {
	Name   string     `json:"name"`
	Reason SkipReason `json:"reason"`
}

// Result 一次追加的结果
type Result struct {
	// Added 本次新增的分片
	Added []entity.NovelUploadChunk
	// Chunks 追加后的完整分片列表
	Chunks   []entity.NovelUploadChunk
	FullText string
	Skipped  []Skipped
}

// Chunker 文档切片器
type Chunker struct {
	MaxChunkRunes int
	Now           func() time.Time
}

// NewChunker 创建切片器，maxRunes <= 0 时使用默认值
func NewChunker(maxRunes int) *Chunker {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxChunkRunes
	}
	return &Chunker{MaxChunkRunes: maxRunes, Now: time.Now}
}

// Append 把文档切片后追加到已有分片之后，并重算全文。
//
// 空文档和疑似重复上传的文档会被跳过；existing 不会被修改。
func (c *Chunker) Append(existing []entity.NovelUploadChunk, docs []Document) Result {
	chunks := make([]entity.NovelUploadChunk, len(existing), len(existing)+len(docs))
	copy(chunks, existing)

	ts := c.now().UnixMilli()
	for _, ch := range existing {
		if ch.UploadedAt >= ts {
			ts = ch.UploadedAt + 1
		}
	}

	var res Result
	for _, doc := range docs {
		if doc.Content == "" {
			res.Skipped = append(res.Skipped, Skipped{Name: doc.Name, Reason: SkipEmpty})
			continue
		}
		if isDuplicate(chunks, doc) {
			res.Skipped = append(res.Skipped, Skipped{Name: doc.Name, Reason: SkipDuplicate})
			continue
		}

		parts := SplitByRunes(doc.Content, c.maxRunes())
		for i, part := range parts {
			name := doc.Name
			if len(parts) > 1 {
				name = PartName(doc.Name, i+1, len(parts))
			}
			ch := entity.NovelUploadChunk{
				ID:         uuid.NewString(),
				Name:       name,
				Content:    part,
				WordCount:  utf8.RuneCountInString(part),
				UploadedAt: ts,
			}
			ts++
			chunks = append(chunks, ch)
			res.Added = append(res.Added, ch)
		}
	}

	res.Chunks = chunks
	res.FullText = FullText(chunks)
	return res
}

// Remove 删除一个分片并重算全文；分片不存在时 ok 为 false
func Remove(chunks []entity.NovelUploadChunk, id string) (out []entity.NovelUploadChunk, fullText string, ok bool) {
	out = make([]entity.NovelUploadChunk, 0, len(chunks))
	for _, ch := range chunks {
		if ch.ID == id {
			ok = true
			continue
		}
		out = append(out, ch)
	}
	return out, FullText(out), ok
}

// FullText 按顺序拼接全部分片内容
func FullText(chunks []entity.NovelUploadChunk) string {
	return entity.JoinNovelChunks(chunks)
}

// PartName 生成分片名
func PartName(name string, i, n int) string {
	return name + " (Part " + strconv.Itoa(i) + "/" + strconv.Itoa(n) + ")"
}

// SplitByRunes 按字符数切成不重叠的连续片段，最后一片可以更短。
// 拼接结果与输入完全一致。
func SplitByRunes(s string, maxRunes int) []string {
	if s == "" {
		return nil
	}
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return []string{s}
	}

	out := make([]string, 0, utf8.RuneCountInString(s)/maxRunes+1)
	start, n := 0, 0
	for i := range s {
		if n == maxRunes {
			out = append(out, s[start:i])
			start, n = i, 0
		}
		n++
	}
	return append(out, s[start:])
}

// isDuplicate 重复上传判断：名字与已有分片完全相同，
// 或者是已有分片名的前缀且总长度与该分片记录的字数一致。
// 超长文档只留下 "<name> (Part i/n)" 分片，按同组分片字数之和比较。
func isDuplicate(chunks []entity.NovelUploadChunk, doc Document) bool {
	length := utf8.RuneCountInString(doc.Content)
	partPrefix := doc.Name + " (Part "
	partRunes := 0
	for _, ch := range chunks {
		if ch.Name == doc.Name {
			return true
		}
		if strings.HasPrefix(ch.Name, doc.Name) && ch.WordCount == length {
			return true
		}
		if strings.HasPrefix(ch.Name, partPrefix) {
			partRunes += ch.WordCount
		}
	}
	return partRunes > 0 && partRunes == length
}

func (c *Chunker) maxRunes() int {
	if c.MaxChunkRunes <= 0 {
		return DefaultMaxChunkRunes
	}
	return c.MaxChunkRunes
}

func (c *Chunker) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
