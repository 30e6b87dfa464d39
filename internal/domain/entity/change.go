package entity

// ChangeKind 项目变更类型
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ProjectChange 项目变更通知
type ProjectChange struct {
	ProjectID string          `json:"projectId"`
	Kind      ChangeKind      `json:"kind"`
	Fields    []string        `json:"fields,omitempty"`
	UpdatedAt int64           `json:"updatedAt"`
	Cascade   ReconcileReport `json:"cascade"`
}
