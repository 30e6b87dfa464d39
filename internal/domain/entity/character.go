package entity

// CharacterRole 角色定位
type CharacterRole string

const (
	RoleProtagonist CharacterRole = "protagonist"
	RoleAntagonist  CharacterRole = "antagonist"
	RoleSupporting  CharacterRole = "supporting"
	RoleMinor       CharacterRole = "minor"
)

// Character 角色
type Character struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Role        CharacterRole `json:"role"`
	Age         string        `json:"age,omitempty"`
	Description string        `json:"description"`
	Motivation  string        `json:"motivation,omitempty"`
	Arc         string        `json:"arc,omitempty"`
	Avatar      string        `json:"avatar,omitempty"`
}

// RelationType 关系类型
type RelationType string

const (
	RelationTypeFriend RelationType = "friend"
	RelationTypeEnemy  RelationType = "enemy"
	RelationTypeFamily RelationType = "family"
	RelationTypeLover  RelationType = "lover"
	RelationTypeMentor RelationType = "mentor"
	RelationTypeRival  RelationType = "rival"
	RelationTypeAlly   RelationType = "ally"
	RelationTypeOther  RelationType = "other"
)

// CharacterRelationship 角色关系，两端按 ID 弱引用角色
type CharacterRelationship struct {
	ID          string       `json:"id"`
	SourceID    string       `json:"sourceId"`
	TargetID    string       `json:"targetId"`
	Type        RelationType `json:"type"`
	Description string       `json:"description,omitempty"`
}

// Touches 判断关系是否引用了指定角色
func (r CharacterRelationship) Touches(characterID string) bool {
	return r.SourceID == characterID || r.TargetID == characterID
}
