package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"

	"hrx/domain/state"

	"github.com/fundwit/go-commons/types"
)

const (
	ProjectStatusNew         = "new"
	ProjectStatusAnalyzing   = "analyzing"
	ProjectStatusQuoting     = "quoting"
	ProjectStatusQuoted      = "quoted"
	ProjectStatusProposed    = "proposed"
	ProjectStatusApproved    = "approved"
	ProjectStatusInExecution = "in_execution"
	ProjectStatusCompleted   = "completed"
	ProjectStatusCancelled   = "cancelled"
)

// default profit margin percentages by urgency
const (
	MarginDefault       = 35
	MarginDefaultUrgent = 80
)

var (
	StateNew         = state.State{Name: ProjectStatusNew, Category: state.InIntake}
	StateAnalyzing   = state.State{Name: ProjectStatusAnalyzing, Category: state.InIntake}
	StateQuoting     = state.State{Name: ProjectStatusQuoting, Category: state.InProcess}
	StateQuoted      = state.State{Name: ProjectStatusQuoted, Category: state.InProcess}
	StateProposed    = state.State{Name: ProjectStatusProposed, Category: state.InProcess}
	StateApproved    = state.State{Name: ProjectStatusApproved, Category: state.InProcess}
	StateInExecution = state.State{Name: ProjectStatusInExecution, Category: state.InProcess}
	StateCompleted   = state.State{Name: ProjectStatusCompleted, Category: state.Done}
	StateCancelled   = state.State{Name: ProjectStatusCancelled, Category: state.Cancelled}
)

// ProjectStateMachine encodes the only allowed status walks; completed and
// cancelled are terminal, nothing ever regresses out of them.
var ProjectStateMachine = state.NewStateMachine(
	[]state.State{StateNew, StateAnalyzing, StateQuoting, StateQuoted, StateProposed,
		StateApproved, StateInExecution, StateCompleted, StateCancelled},
	[]state.Transition{
		{Name: "analyze", From: StateNew, To: StateAnalyzing},
		{Name: "request quotes", From: StateAnalyzing, To: StateQuoting},
		{Name: "quotes collected", From: StateQuoting, To: StateQuoted},
		{Name: "back to quoting", From: StateQuoted, To: StateQuoting},
		{Name: "send proposal", From: StateQuoted, To: StateProposed},
		{Name: "client approved", From: StateProposed, To: StateApproved},
		{Name: "start execution", From: StateApproved, To: StateInExecution},
		{Name: "complete", From: StateInExecution, To: StateCompleted},
		{Name: "cancel", From: StateNew, To: StateCancelled},
		{Name: "cancel", From: StateAnalyzing, To: StateCancelled},
		{Name: "cancel", From: StateQuoting, To: StateCancelled},
		{Name: "cancel", From: StateQuoted, To: StateCancelled},
		{Name: "cancel", From: StateProposed, To: StateCancelled},
		{Name: "cancel", From: StateApproved, To: StateCancelled},
		{Name: "cancel", From: StateInExecution, To: StateCancelled},
	})

// statuses in which demand lists and team may still be edited
func ProjectIsEditable(status string) bool {
	switch status {
	case ProjectStatusNew, ProjectStatusAnalyzing, ProjectStatusQuoting, ProjectStatusQuoted, ProjectStatusProposed:
		return true
	}
	return false
}

func DefaultProfitMargin(isUrgent bool) float64 {
	if isUrgent {
		return MarginDefaultUrgent
	}
	return MarginDefault
}

// ProfessionalNeed is one requested professional role within a project.
type ProfessionalNeed struct {
	Category    string `json:"category" binding:"required"`
	Subcategory string `json:"subcategory,omitempty"`
	Quantity    int    `json:"quantity" binding:"required,gte=1"`
	Notes       string `json:"notes,omitempty"`
}

// EquipmentNeed is one requested equipment item within a project.
type EquipmentNeed struct {
	Type         string         `json:"type" binding:"required"`
	Quantity     int            `json:"quantity" binding:"required,gte=1"`
	DurationDays int            `json:"durationDays,omitempty"`
	Notes        string         `json:"notes,omitempty"`
	Specs        Specifications `json:"specs,omitempty"`
}

// Specifications is a free-form key-value bag; values stay strings so
// downstream arithmetic can never silently operate on them.
type Specifications map[string]string

type ProfessionalNeeds []ProfessionalNeed
type EquipmentNeeds []EquipmentNeed

type EventProject struct {
	ID            types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	ProjectNumber string   `json:"projectNumber"`

	ClientName    string `json:"clientName"`
	ClientEmail   string `json:"clientEmail"`
	ClientPhone   string `json:"clientPhone"`
	ClientCompany string `json:"clientCompany"`
	ClientCNPJ    string `json:"clientCnpj"`

	EventName        string          `json:"eventName"`
	EventType        string          `json:"eventType"`
	EventDescription string          `json:"eventDescription" sql:"type:TEXT"`
	EventDate        types.Timestamp `json:"eventDate" sql:"type:DATETIME(6)"`

	VenueName    string  `json:"venueName"`
	VenueAddress string  `json:"venueAddress"`
	VenueCity    string  `json:"venueCity"`
	VenueState   string  `json:"venueState"`
	VenueZip     string  `json:"venueZip"`
	VenueLat     float64 `json:"venueLat"`
	VenueLng     float64 `json:"venueLng"`

	IsUrgent     bool    `json:"isUrgent"`
	ProfitMargin float64 `json:"profitMargin"`

	ProfessionalsNeeded ProfessionalNeeds `json:"professionalsNeeded" sql:"type:TEXT"`
	EquipmentNeeded     EquipmentNeeds    `json:"equipmentNeeded" sql:"type:TEXT"`

	Status string `json:"status"`

	EquipmentSupplierID types.ID `json:"equipmentSupplierId"`
	TotalTeamCost       float64  `json:"totalTeamCost"`
	TotalEquipmentCost  float64  `json:"totalEquipmentCost"`
	TotalCost           float64  `json:"totalCost"`
	TotalClientPrice    float64  `json:"totalClientPrice"`

	CreatorID    types.ID        `json:"creatorId"`
	CreateTime   types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
	QuotedTime   types.Timestamp `json:"quotedTime" sql:"type:DATETIME(6)"`
	ApprovedTime types.Timestamp `json:"approvedTime" sql:"type:DATETIME(6)"`
	CompleteTime types.Timestamp `json:"completeTime" sql:"type:DATETIME(6)"`
	UpdateTime   types.Timestamp `json:"updateTime" sql:"type:DATETIME(6)"`
}

func (r *EventProject) TableName() string {
	return "event_projects"
}

// ClientPrice applies the profit margin on top of base cost.
func ClientPrice(totalCost, margin float64) float64 {
	return Round2(totalCost * (1 + margin/100))
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ProjectNumberSequence holds the counter the human-readable project
// numbers are issued from. A single row with ID 1 is maintained.
type ProjectNumberSequence struct {
	ID          types.ID `json:"id" gorm:"primary_key"`
	NextProject int64    `json:"nextProject"`
}

func (r *ProjectNumberSequence) TableName() string {
	return "project_number_sequences"
}

type EventProjectCreation struct {
	ClientName    string `json:"clientName" binding:"required"`
	ClientEmail   string `json:"clientEmail" binding:"omitempty,email"`
	ClientPhone   string `json:"clientPhone"`
	ClientCompany string `json:"clientCompany"`
	ClientCNPJ    string `json:"clientCnpj"`

	EventName        string          `json:"eventName" binding:"required"`
	EventType        string          `json:"eventType" binding:"required"`
	EventDescription string          `json:"eventDescription"`
	EventDate        types.Timestamp `json:"eventDate" binding:"required"`

	VenueName    string `json:"venueName"`
	VenueAddress string `json:"venueAddress" binding:"required"`
	VenueCity    string `json:"venueCity" binding:"required"`
	VenueState   string `json:"venueState" binding:"required"`
	VenueZip     string `json:"venueZip"`

	IsUrgent bool `json:"isUrgent"`
	// optional margin override; nil means default by urgency
	ProfitMargin *float64 `json:"profitMargin"`

	ProfessionalsNeeded ProfessionalNeeds `json:"professionalsNeeded" binding:"dive"`
	EquipmentNeeded     EquipmentNeeds    `json:"equipmentNeeded" binding:"dive"`

	Team []TeamMemberCreation `json:"team" binding:"dive"`
}

type EventProjectUpdating struct {
	EventName        string          `json:"eventName"`
	EventType        string          `json:"eventType"`
	EventDescription string          `json:"eventDescription"`
	EventDate        types.Timestamp `json:"eventDate"`

	VenueName    string `json:"venueName"`
	VenueAddress string `json:"venueAddress"`
	VenueCity    string `json:"venueCity"`
	VenueState   string `json:"venueState"`
	VenueZip     string `json:"venueZip"`

	ProfitMargin *float64 `json:"profitMargin"`

	ProfessionalsNeeded ProfessionalNeeds `json:"professionalsNeeded" binding:"dive"`
	EquipmentNeeded     EquipmentNeeds    `json:"equipmentNeeded" binding:"dive"`
}

type EventProjectQuery struct {
	Status     string `json:"status" form:"status"`
	IsUrgent   string `json:"isUrgent" form:"isUrgent"`
	ClientName string `json:"clientName" form:"clientName"`
	EventType  string `json:"eventType" form:"eventType"`
	VenueCity  string `json:"venueCity" form:"venueCity"`
	VenueState string `json:"venueState" form:"venueState"`

	Limit  int `json:"limit" form:"limit"`
	Offset int `json:"offset" form:"offset"`
}

type ProjectStatusUpdating struct {
	Status string `json:"status" binding:"required"`
}

// EventProjectSummary augments list rows with demand counts computed from
// the requested need lists, not from the currently staffed team.
type EventProjectSummary struct {
	EventProject
	TeamCount      int `json:"teamCount"`
	EquipmentCount int `json:"equipmentCount"`
}

func (t ProfessionalNeeds) Value() (driver.Value, error) {
	return marshalJSONColumn(&t)
}

func (c *ProfessionalNeeds) Scan(v interface{}) error {
	return scanJSONColumn(v, c)
}

func (t EquipmentNeeds) Value() (driver.Value, error) {
	return marshalJSONColumn(&t)
}

func (c *EquipmentNeeds) Scan(v interface{}) error {
	return scanJSONColumn(v, c)
}

func (t Specifications) Value() (driver.Value, error) {
	return marshalJSONColumn(&t)
}

func (c *Specifications) Scan(v interface{}) error {
	return scanJSONColumn(v, c)
}

func marshalJSONColumn(t interface{}) (driver.Value, error) {
	jsonBytes, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func scanJSONColumn(v interface{}, target interface{}) error {
	jsonString, ok := v.(string)
	if !ok {
		jsonByte, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("type is neither string nor []byte: %T %v", v, v)
		}
		jsonString = string(jsonByte)
	}
	return json.Unmarshal([]byte(jsonString), target)
}
