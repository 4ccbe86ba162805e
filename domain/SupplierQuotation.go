package domain

import (
	"github.com/fundwit/go-commons/types"
)

const (
	QuotationStatusPending   = "pending"
	QuotationStatusSubmitted = "submitted"
	QuotationStatusAccepted  = "accepted"
	QuotationStatusRejected  = "rejected"
	QuotationStatusExpired   = "expired"
)

// SupplierQuotation is one supplier's priced response to a project's
// equipment request. AccessToken authenticates exactly this quotation.
type SupplierQuotation struct {
	ID         types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	ProjectID  types.ID `json:"projectId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	SupplierID types.ID `json:"supplierId" sql:"type:BIGINT UNSIGNED NOT NULL"`

	EquipmentType  string         `json:"equipmentType"`
	RequestedItems EquipmentNeeds `json:"requestedItems" sql:"type:TEXT"`

	AccessToken string `json:"-" gorm:"unique_index"`

	Status string `json:"status"`

	SupplierPrice float64 `json:"supplierPrice"`
	MarginApplied float64 `json:"marginApplied"`
	TotalPrice    float64 `json:"totalPrice"`

	DeliveryTime  string `json:"deliveryTime"`
	PaymentTerms  string `json:"paymentTerms"`
	SupplierNotes string `json:"supplierNotes" sql:"type:TEXT"`

	ValidUntil  types.Timestamp `json:"validUntil" sql:"type:DATETIME(6)"`
	CreateTime  types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
	RespondTime types.Timestamp `json:"respondTime" sql:"type:DATETIME(6)"`
	DecideTime  types.Timestamp `json:"decideTime" sql:"type:DATETIME(6)"`
}

func (r *SupplierQuotation) TableName() string {
	return "supplier_quotations"
}

type QuotationDispatching struct {
	EquipmentType string          `json:"equipmentType" binding:"required"`
	SupplierIDs   []types.ID      `json:"supplierIds" binding:"required,min=1"`
	ValidUntil    types.Timestamp `json:"validUntil" binding:"required"`
}

// DispatchResult reports the per-supplier outcome of a quote request.
type DispatchResult struct {
	SupplierID   types.ID `json:"supplierId"`
	SupplierName string   `json:"supplierName"`
	QuotationID  types.ID `json:"quotationId,omitempty"`
	Success      bool     `json:"success"`
	Error        string   `json:"error,omitempty"`
}

type QuotationSubmission struct {
	SupplierPrice float64 `json:"supplierPrice" binding:"required,gt=0"`
	DeliveryTime  string  `json:"deliveryTime"`
	PaymentTerms  string  `json:"paymentTerms"`
	Notes         string  `json:"notes"`
}

// QuotationPublicView is what a supplier sees when opening a token link.
type QuotationPublicView struct {
	ID     types.ID `json:"id"`
	Status string   `json:"status"`

	ProjectNumber string          `json:"projectNumber"`
	EventName     string          `json:"eventName"`
	EventDate     types.Timestamp `json:"eventDate"`
	VenueCity     string          `json:"venueCity"`
	VenueState    string          `json:"venueState"`

	EquipmentType  string          `json:"equipmentType"`
	RequestedItems EquipmentNeeds  `json:"requestedItems"`
	ValidUntil     types.Timestamp `json:"validUntil"`

	CanRespond       bool `json:"canRespond"`
	IsExpired        bool `json:"isExpired"`
	AlreadyResponded bool `json:"alreadyResponded"`
}
