package dto

import (
	"github.com/gin-gonic/gin"
)

// 路径参数名
const (
	ParamProject      = "pid"
	ParamCharacter    = "cid"
	ParamRelationship = "rid"
	ParamSection      = "sid"
	ParamPlotline     = "lid"
	ParamEvent        = "eid"
	ParamBlock        = "bid"
	ParamChunk        = "chid"
)

// BindProjectID 从路径中获取项目 ID
func BindProjectID(c *gin.Context) string {
	return c.Param(ParamProject)
}
