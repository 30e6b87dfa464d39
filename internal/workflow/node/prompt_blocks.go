package node

import (
	"strconv"
	"strings"

	"screenplay-ai-api/internal/domain/entity"
)

// EmptyBlock 没有内容时写入提示词的占位
const EmptyBlock = "（无）"

func orEmpty(lines []string) string {
	if len(lines) == 0 {
		return EmptyBlock
	}
	return strings.Join(lines, "\n")
}

// BuildCharactersBlock 每个角色一行：名字（定位）：描述
func BuildCharactersBlock(chars []entity.Character) string {
	lines := make([]string, 0, len(chars))
	for _, c := range chars {
		line := "- " + c.Name
		if c.Role != "" {
			line += "（" + string(c.Role) + "）"
		}
		if d := strings.TrimSpace(c.Description); d != "" {
			line += "：" + d
		}
		if m := strings.TrimSpace(c.Motivation); m != "" {
			line += " 动机：" + m
		}
		lines = append(lines, line)
	}
	return orEmpty(lines)
}

func BuildOutlineBlock(sections []entity.OutlineSection) string {
	lines := make([]string, 0, len(sections))
	for i, s := range sections {
		line := strconv.Itoa(i+1) + ". " + s.Title
		if c := strings.TrimSpace(s.Content); c != "" {
			line += "：" + c
		}
		lines = append(lines, line)
	}
	return orEmpty(lines)
}

func BuildListBlock(items []string) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			lines = append(lines, "- "+it)
		}
	}
	return orEmpty(lines)
}

// BuildScriptBlock 剧本逐块列出，带上块 ID 便于模型回指
func BuildScriptBlock(blocks []entity.ScriptBlock) string {
	lines := make([]string, 0, len(blocks))
	for _, b := range blocks {
		lines = append(lines, "["+b.ID+"]["+string(b.Type)+"] "+b.Content)
	}
	return orEmpty(lines)
}

func BuildAnalysisBlock(a *entity.NovelDeepAnalysis) string {
	if a == nil {
		return EmptyBlock
	}
	var b strings.Builder
	b.WriteString("世界观：" + a.WorldView + "\n")
	b.WriteString("主线：" + a.MainPlot)
	for _, c := range a.CharacterCards {
		b.WriteString("\n- " + c.Name)
		if c.Identity != "" {
			b.WriteString("（" + c.Identity + "）")
		}
		if c.Arc != "" {
			b.WriteString("：" + c.Arc)
		}
	}
	return b.String()
}

// TextOrEmpty 空白文本替换为占位
func TextOrEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return EmptyBlock
	}
	return strings.TrimSpace(s)
}
