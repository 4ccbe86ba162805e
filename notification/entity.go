package notification

import (
	"github.com/fundwit/go-commons/types"
)

const (
	RecipientTypeClient       = "client"
	RecipientTypeSupplier     = "supplier"
	RecipientTypeProfessional = "professional"
	RecipientTypeAdmin        = "hrx_admin"
)

const (
	EmailTypeQuoteUrgentAdmin     = "quote_urgent_admin"
	EmailTypeQuoteRequest         = "quote_request"
	EmailTypeQuoteAccepted        = "quote_accepted"
	EmailTypeQuoteRejected        = "quote_rejected"
	EmailTypeProposalSent         = "proposal_sent"
	EmailTypeProfessionalApproved = "professional_approved"
	EmailTypeProfessionalRejected = "professional_rejected"
	EmailTypeContractSignature    = "contract_signature"
)

const (
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// EmailRecord keeps every delivery attempt, sent or failed, for later
// inspection; the workflow itself never blocks on it.
type EmailRecord struct {
	ID types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`

	ProjectID   types.ID `json:"projectId"`
	QuotationID types.ID `json:"quotationId"`

	RecipientType  string `json:"recipientType"`
	RecipientEmail string `json:"recipientEmail"`
	EmailType      string `json:"emailType"`
	Subject        string `json:"subject"`

	Status       string `json:"status"`
	ProviderId   string `json:"providerId"`
	FailureCause string `json:"failureCause" sql:"type:TEXT"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
}

func (r *EmailRecord) TableName() string {
	return "project_emails"
}

// Email is one outgoing notification before dispatch.
type Email struct {
	ProjectID   types.ID
	QuotationID types.ID

	RecipientType  string
	RecipientEmail string
	EmailType      string

	Subject string
	Html    string
}
