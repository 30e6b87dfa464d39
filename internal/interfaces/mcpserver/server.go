// Package mcpserver 通过 Model Context Protocol 暴露项目存储操作，供外部助手充当创作助手
package mcpserver

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"screenplay-ai-api/internal/application/copilot"
	"screenplay-ai-api/internal/application/novel"
	"screenplay-ai-api/internal/application/projectstore"
)

// ServerName MCP 服务名
const ServerName = "screenplay-mcp"

// New 创建注册了全部工具的 MCP 服务
func New(version string, store *projectstore.Store, novels *novel.Service, cop *copilot.Service) *mcp.Server {
	pt := &ProjectTools{Store: store, Novels: novels, Copilot: cop}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version,
	}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_projects",
		Description: "List project summaries ordered by last modification, with the active project id",
	}, pt.ListProjects)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_project",
		Description: "Get the full project document (defaults to the active project)",
	}, pt.GetProject)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_project",
		Description: "Create an empty project and make it active",
	}, pt.CreateProject)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "apply_patch",
		Description: "Replace whole top-level project fields; dangling references are cleaned up afterwards",
	}, pt.ApplyPatch)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "upload_document",
		Description: "Append a source novel document; large documents are split into parts, duplicates are skipped",
	}, pt.UploadDocument)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "sync_plan",
		Description: "Rebuild the outline and plot matrix from the adaptation plan",
	}, pt.SyncPlan)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "apply_copilot_action",
		Description: "Apply JSON Patch operations (add/replace) to allowed project paths such as /characters or /outline",
	}, pt.ApplyCopilotAction)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "export_script",
		Description: "Export the script as plain text, one block per paragraph",
	}, pt.ExportScript)

	return srv
}
