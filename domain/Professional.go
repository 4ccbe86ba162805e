package domain

import (
	"database/sql/driver"

	"github.com/fundwit/go-commons/types"
)

const (
	RegistrationStatusPending  = "pending"
	RegistrationStatusApproved = "approved"
	RegistrationStatusRejected = "rejected"
)

// Professional is a freelance event professional; Status gates marketplace
// visibility, only approved records are staffable.
type Professional struct {
	ID types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`

	FullName string `json:"fullName"`
	CPF      string `json:"cpf"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`

	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	DailyRate   float64 `json:"dailyRate"`

	City      string  `json:"city"`
	State     string  `json:"state"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	Status           string     `json:"status"`
	RejectionReason  string     `json:"rejectionReason" sql:"type:TEXT"`
	FlaggedDocuments StringList `json:"flaggedDocuments" sql:"type:TEXT"`

	ApprovedBy   types.ID        `json:"approvedBy"`
	ApprovedTime types.Timestamp `json:"approvedTime" sql:"type:DATETIME(6)"`
	CreateTime   types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
	UpdateTime   types.Timestamp `json:"updateTime" sql:"type:DATETIME(6)"`
}

func (r *Professional) TableName() string {
	return "professionals"
}

// ProfessionalHistory keeps every status transition verbatim for later
// resubmission flows.
type ProfessionalHistory struct {
	ID             types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	ProfessionalID types.ID `json:"professionalId" sql:"type:BIGINT UNSIGNED NOT NULL"`

	FromStatus string `json:"fromStatus"`
	ToStatus   string `json:"toStatus"`

	Reason           string     `json:"reason" sql:"type:TEXT"`
	FlaggedDocuments StringList `json:"flaggedDocuments" sql:"type:TEXT"`

	ActorID    types.ID        `json:"actorId"`
	ActorName  string          `json:"actorName"`
	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
}

func (r *ProfessionalHistory) TableName() string {
	return "professional_history"
}

type ProfessionalRegistration struct {
	FullName string `json:"fullName" binding:"required"`
	CPF      string `json:"cpf" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`

	Category    string  `json:"category" binding:"required"`
	Subcategory string  `json:"subcategory"`
	DailyRate   float64 `json:"dailyRate" binding:"omitempty,gte=0"`

	City  string `json:"city" binding:"required"`
	State string `json:"state" binding:"required"`
}

type ProfessionalUpdating struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`

	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
	DailyRate   *float64 `json:"dailyRate" binding:"omitempty,gte=0"`

	City  string `json:"city"`
	State string `json:"state"`
}

type ProfessionalRejection struct {
	Reason           string     `json:"reason" binding:"required"`
	FlaggedDocuments StringList `json:"documentsWithIssues"`
}

type ProfessionalQuery struct {
	Status   string `json:"status" form:"status"`
	Category string `json:"category" form:"category"`
	City     string `json:"city" form:"city"`
	State    string `json:"state" form:"state"`

	Limit  int `json:"limit" form:"limit"`
	Offset int `json:"offset" form:"offset"`
}

// ProfessionalSearch is the full-text directory search input.
type ProfessionalSearch struct {
	Name     string `json:"name" form:"name"`
	Category string `json:"category" form:"category"`
	City     string `json:"city" form:"city"`
	Status   string `json:"status" form:"status"`
}

type StringList []string

func (t StringList) Value() (driver.Value, error) {
	return marshalJSONColumn(&t)
}

func (c *StringList) Scan(v interface{}) error {
	return scanJSONColumn(v, c)
}
