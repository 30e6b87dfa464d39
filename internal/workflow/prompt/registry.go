// Package prompt 管理内嵌的提示词模板
package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptNovelAnalysisV1  PromptID = "novel_analysis_v1"
	PromptAdaptationPlanV1 PromptID = "adaptation_plan_v1"
	PromptCharactersV1     PromptID = "characters_v1"
	PromptOutlineV1        PromptID = "outline_v1"
	PromptScriptV1         PromptID = "script_v1"
	PromptStoryboardV1     PromptID = "storyboard_v1"
	PromptMarketAnalysisV1 PromptID = "market_analysis_v1"
	PromptRewriteV1        PromptID = "rewrite_v1"
	PromptCopilotChatV1    PromptID = "copilot_chat_v1"
)

// All 全部已注册的提示词
func All() []PromptID {
	return []PromptID{
		PromptNovelAnalysisV1,
		PromptAdaptationPlanV1,
		PromptCharactersV1,
		PromptOutlineV1,
		PromptScriptV1,
		PromptStoryboardV1,
		PromptMarketAnalysisV1,
		PromptRewriteV1,
		PromptCopilotChatV1,
	}
}

// Registry 模板缓存，模板按需解析一次
type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	system, err := readEmbeddedText(templatePath(id, "system"))
	if err != nil {
		return nil, fmt.Errorf("unknown prompt id %s: %w", id, err)
	}
	user, err := readEmbeddedText(templatePath(id, "user"))
	if err != nil {
		return nil, fmt.Errorf("unknown prompt id %s: %w", id, err)
	}

	tpl := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)
	r.cache[id] = tpl
	return tpl, nil
}

// templatePath 模板文件按 <id>.<role>.txt 命名
func templatePath(id PromptID, role string) string {
	return "templates/" + string(id) + "." + role + ".txt"
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
