package domain

import (
	"github.com/fundwit/go-commons/types"
)

const (
	SupplierStatusActive   = "active"
	SupplierStatusInactive = "inactive"
)

// EquipmentSupplier rents equipment to projects; only approved suppliers
// receive quotation requests.
type EquipmentSupplier struct {
	ID types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`

	CompanyName string `json:"companyName"`
	ContactName string `json:"contactName"`
	CNPJ        string `json:"cnpj"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`

	EquipmentTypes StringList `json:"equipmentTypes" sql:"type:TEXT"`

	City      string  `json:"city"`
	State     string  `json:"state"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	Status string `json:"status"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6)"`
}

func (r *EquipmentSupplier) TableName() string {
	return "equipment_suppliers"
}

type SupplierRegistration struct {
	CompanyName string `json:"companyName" binding:"required"`
	ContactName string `json:"contactName" binding:"required"`
	CNPJ        string `json:"cnpj" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Phone       string `json:"phone"`

	EquipmentTypes StringList `json:"equipmentTypes" binding:"required,min=1"`

	City  string `json:"city" binding:"required"`
	State string `json:"state" binding:"required"`
}

type SupplierUpdating struct {
	CompanyName string `json:"companyName"`
	ContactName string `json:"contactName"`
	Phone       string `json:"phone"`

	EquipmentTypes StringList `json:"equipmentTypes"`

	City  string `json:"city"`
	State string `json:"state"`
}

type SupplierQuery struct {
	Status        string `json:"status" form:"status"`
	EquipmentType string `json:"equipmentType" form:"equipmentType"`
	City          string `json:"city" form:"city"`
	State         string `json:"state" form:"state"`
}
