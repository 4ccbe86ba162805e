package domain

import (
	"database/sql/driver"

	"github.com/fundwit/go-commons/types"
)

const (
	ContractStatusAwaitingSignature = "awaiting_signature"
	ContractStatusSigned            = "signed"
	ContractStatusExpired           = "expired"
)

// Contract is generated only from an approved project; it snapshots the
// accepted quotation and team and carries its own signature workflow.
type Contract struct {
	ID        types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	ProjectID types.ID `json:"projectId" gorm:"unique_index" sql:"type:BIGINT UNSIGNED NOT NULL"`

	QuotationID types.ID `json:"quotationId"`

	ClientName       string  `json:"clientName"`
	ClientEmail      string  `json:"clientEmail"`
	TotalClientPrice float64 `json:"totalClientPrice"`

	TeamSnapshot      TeamSnapshot   `json:"teamSnapshot" sql:"type:TEXT"`
	EquipmentSnapshot EquipmentNeeds `json:"equipmentSnapshot" sql:"type:TEXT"`

	Status string `json:"status"`

	SignatureToken  string          `json:"-"`
	TokenExpireTime types.Timestamp `json:"tokenExpireTime" sql:"type:DATETIME(6)"`

	SignerName    string          `json:"signerName"`
	SignatureHash string          `json:"signatureHash"`
	SignTime      types.Timestamp `json:"signTime" sql:"type:DATETIME(6)"`

	CreateTime   types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
	LastSendTime types.Timestamp `json:"lastSendTime" sql:"type:DATETIME(6)"`
}

func (r *Contract) TableName() string {
	return "contracts"
}

type TeamSnapshotEntry struct {
	Role         string  `json:"role"`
	Category     string  `json:"category"`
	Quantity     int     `json:"quantity"`
	DurationDays int     `json:"durationDays"`
	DailyRate    float64 `json:"dailyRate"`
	TotalCost    float64 `json:"totalCost"`
}

type TeamSnapshot []TeamSnapshotEntry

type ContractSigning struct {
	Token      string `json:"token" binding:"required"`
	SignerName string `json:"signerName" binding:"required"`
}

func (t TeamSnapshot) Value() (driver.Value, error) {
	return marshalJSONColumn(&t)
}

func (c *TeamSnapshot) Scan(v interface{}) error {
	return scanJSONColumn(v, c)
}
