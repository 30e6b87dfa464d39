package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenplay-ai-api/internal/application/copilot"
	"screenplay-ai-api/internal/application/generation"
	"screenplay-ai-api/internal/application/novel"
	"screenplay-ai-api/internal/application/projectstore"
	"screenplay-ai-api/internal/domain/entity"
	"screenplay-ai-api/internal/infrastructure/persistence/memory"
)

// setupSession 通过内存传输连接客户端与服务端
func setupSession(t *testing.T) (*mcp.ClientSession, *projectstore.Store) {
	t.Helper()
	store := projectstore.New(memory.NewSnapshotRepo(), projectstore.Options{})
	gw := generation.New(nil, nil, generation.Options{})
	srv := New("test", store, novel.NewService(store, novel.NewChunker(0)), copilot.NewService(store, gw))

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	_, err := srv.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session, store
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err, name)
	require.NotEmpty(t, result.Content, name)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text, result.IsError
}

func TestListTools(t *testing.T) {
	session, _ := setupSession(t)
	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"list_projects", "get_project", "create_project", "apply_patch",
		"upload_document", "sync_plan", "apply_copilot_action", "export_script",
	}, names)
}

func TestProjectWorkflow(t *testing.T) {
	session, store := setupSession(t)

	text, isErr := callTool(t, session, "create_project", map[string]any{"title": "夜航船"})
	require.False(t, isErr, text)
	var created entity.Project
	require.NoError(t, json.Unmarshal([]byte(text), &created))
	assert.Equal(t, created.ID, store.ActiveID())

	text, isErr = callTool(t, session, "apply_patch", map[string]any{
		"patch": map[string]any{"logline": "一封信牵出旧案"},
	})
	require.False(t, isErr, text)
	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "一封信牵出旧案", got.Logline)

	text, isErr = callTool(t, session, "upload_document", map[string]any{
		"projectId": created.ID,
		"name":      "第一卷",
		"content":   "雨夜，码头。",
	})
	require.False(t, isErr, text)
	assert.Contains(t, text, `"added": 1`)

	text, isErr = callTool(t, session, "apply_copilot_action", map[string]any{
		"ops": []map[string]any{{"op": "add", "path": "/characters/-", "value": map[string]any{"name": "林舟"}}},
	})
	require.False(t, isErr, text)
	got, _ = store.Get(created.ID)
	require.Len(t, got.Characters, 1)
	assert.NotEmpty(t, got.Characters[0].ID)

	text, isErr = callTool(t, session, "export_script", map[string]any{})
	require.False(t, isErr, text)
	assert.Equal(t, entity.ScriptText(got.Script), text)

	text, isErr = callTool(t, session, "list_projects", map[string]any{})
	require.False(t, isErr, text)
	assert.Contains(t, text, created.ID)
}

func TestToolErrors(t *testing.T) {
	session, store := setupSession(t)

	text, isErr := callTool(t, session, "get_project", map[string]any{})
	assert.True(t, isErr)
	assert.Contains(t, text, "project not found")

	p := store.Create(context.Background(), "x")

	text, isErr = callTool(t, session, "apply_copilot_action", map[string]any{
		"projectId": p.ID,
		"ops":       []map[string]any{{"op": "remove", "path": "/script"}},
	})
	assert.True(t, isErr)
	assert.True(t, strings.HasPrefix(text, "Failed to apply action"))

	_, isErr = callTool(t, session, "sync_plan", map[string]any{"projectId": p.ID})
	assert.True(t, isErr)

	_, isErr = callTool(t, session, "apply_patch", map[string]any{"patch": map[string]any{"unknown": 1}})
	assert.True(t, isErr)
}
