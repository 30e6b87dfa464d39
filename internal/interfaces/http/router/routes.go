package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers, generateLimit, copilotLimit gin.HandlerFunc) {
	projects := v1.Group("/projects")
	{
		projects.GET("", h.Project.ListProjects)
		projects.POST("", h.Project.CreateProject)
		projects.GET("/active", h.Project.GetActiveProject)
		projects.GET("/:pid", h.Project.GetProject)
		projects.PATCH("/:pid", h.Project.PatchProject)
		projects.DELETE("/:pid", h.Project.DeleteProject)
		projects.PUT("/:pid/active", h.Project.SetActiveProject)
		projects.GET("/:pid/script.txt", h.Project.ExportScript)

		// 角色与关系
		projects.POST("/:pid/characters", h.Edit.AddCharacter)
		projects.PUT("/:pid/characters/:cid", h.Edit.UpdateCharacter)
		projects.DELETE("/:pid/characters/:cid", h.Edit.DeleteCharacter)
		projects.POST("/:pid/relationships", h.Edit.AddRelationship)
		projects.DELETE("/:pid/relationships/:rid", h.Edit.DeleteRelationship)

		// 大纲与剧情矩阵
		projects.POST("/:pid/outline", h.Edit.AddOutlineSection)
		projects.PUT("/:pid/outline/:sid", h.Edit.UpdateOutlineSection)
		projects.DELETE("/:pid/outline/:sid", h.Edit.DeleteOutlineSection)
		projects.POST("/:pid/outline/:sid/move", h.Edit.MoveOutlineSection)
		projects.POST("/:pid/plotlines", h.Edit.AddPlotline)
		projects.DELETE("/:pid/plotlines/:lid", h.Edit.DeletePlotline)
		projects.POST("/:pid/plot-events", h.Edit.AddPlotEvent)
		projects.PUT("/:pid/plot-events/:eid", h.Edit.UpdatePlotEvent)
		projects.DELETE("/:pid/plot-events/:eid", h.Edit.DeletePlotEvent)
		projects.POST("/:pid/plan/sync", h.Edit.SyncPlan)

		// 剧本
		projects.POST("/:pid/script", h.Edit.AddScriptBlock)
		projects.PUT("/:pid/script/:bid", h.Edit.UpdateScriptBlock)
		projects.DELETE("/:pid/script/:bid", h.Edit.DeleteScriptBlock)
		projects.PUT("/:pid/storyboard-rows", h.Edit.SetStoryboardRows)

		// 原著
		projects.POST("/:pid/novel/chunks", h.Novel.UploadDocuments)
		projects.DELETE("/:pid/novel/chunks", h.Novel.ClearChunks)
		projects.DELETE("/:pid/novel/chunks/:chid", h.Novel.RemoveChunk)

		// 生成
		gen := projects.Group("/:pid/generate", generateLimit)
		{
			gen.POST("/analysis", h.Generation.Analysis)
			gen.POST("/plan", h.Generation.Plan)
			gen.POST("/characters", h.Generation.Characters)
			gen.POST("/outline", h.Generation.Outline)
			gen.POST("/script", h.Generation.Script)
			gen.POST("/storyboard", h.Generation.Storyboard)
			gen.POST("/market", h.Generation.Market)
			gen.POST("/rewrite", h.Generation.Rewrite)
			gen.POST("/image", h.Generation.Image)
			gen.POST("/image-edit", h.Generation.ImageEdit)
		}

		// 创作助手
		cop := projects.Group("/:pid/copilot")
		{
			cop.POST("/chat", copilotLimit, h.Copilot.Chat)
			cop.POST("/apply", h.Copilot.Apply)
		}
	}
}
