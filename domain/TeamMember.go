package domain

import (
	"github.com/fundwit/go-commons/types"
)

const (
	TeamMemberStatusPlanned   = "planned"
	TeamMemberStatusInvited   = "invited"
	TeamMemberStatusConfirmed = "confirmed"
	TeamMemberStatusRejected  = "rejected"
	TeamMemberStatusCancelled = "cancelled"
)

// TeamMember is one staffed role within a project, either bound to a known
// professional or an external placeholder (name only), never both.
type TeamMember struct {
	ID        types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	ProjectID types.ID `json:"projectId" sql:"type:BIGINT UNSIGNED NOT NULL"`

	ProfessionalID types.ID `json:"professionalId"`
	ExternalName   string   `json:"externalName"`

	Role        string `json:"role"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`

	Quantity     int     `json:"quantity"`
	DurationDays int     `json:"durationDays"`
	DailyRate    float64 `json:"dailyRate"`
	TotalCost    float64 `json:"totalCost"`

	Status string `json:"status"`
	Notes  string `json:"notes" sql:"type:TEXT"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6)"`
}

func (r *TeamMember) TableName() string {
	return "project_team"
}

// CostOf is the only way total_cost is ever produced; client-supplied
// values are overwritten with it on every write.
func (r *TeamMember) CostOf() float64 {
	return Round2(r.DailyRate * float64(r.Quantity) * float64(r.DurationDays))
}

type TeamMemberCreation struct {
	ProfessionalID types.ID `json:"professionalId"`
	ExternalName   string   `json:"externalName"`

	Role        string `json:"role" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Subcategory string `json:"subcategory"`

	Quantity     int     `json:"quantity" binding:"omitempty,gte=1"`
	DurationDays int     `json:"durationDays" binding:"omitempty,gte=1"`
	DailyRate    float64 `json:"dailyRate" binding:"omitempty,gte=0"`

	Notes string `json:"notes"`
}

type TeamMemberUpdating struct {
	Quantity     *int     `json:"quantity" binding:"omitempty,gte=1"`
	DurationDays *int     `json:"durationDays" binding:"omitempty,gte=1"`
	DailyRate    *float64 `json:"dailyRate" binding:"omitempty,gte=0"`

	Status string `json:"status"`
	Notes  *string `json:"notes"`
}
