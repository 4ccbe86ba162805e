package bizerror

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("record not found")
	ErrInvalidPassword = errors.New("invalid password")

	ErrUnknownState        = errors.New("unknown state")
	ErrStateInvalid        = errors.New("state invalid")
	ErrInvalidTransition   = errors.New("state transition not allowed")
	ErrProjectNotEditable  = errors.New("project is not editable in current status")
	ErrProjectNotApproved  = errors.New("project is not approved")
	ErrQuotationConflict   = errors.New("quotation already decided")
	ErrQuotationInert      = errors.New("quotation no longer accepts submissions")
	ErrQuotationExpired    = errors.New("quotation deadline has passed")
	ErrAlreadySigned       = errors.New("contract already signed")
	ErrSignatureExpired    = errors.New("signature link expired")
	ErrSignatureInvalid    = errors.New("signature token invalid")
	ErrDuplicatedIdentity  = errors.New("identity fields duplicated")
	ErrSupplierInactive    = errors.New("supplier is not active")
	ErrRejectReasonMissing = errors.New("rejection reason is required")
)

type BizError interface {
	Respond() *BizErrorDetail
}

type BizErrorDetail struct {
	Status  int
	Code    string
	Message string

	Data  interface{}
	Cause error
}

type ErrBadParam struct {
	Cause error
}

func (e *ErrBadParam) Unwrap() error {
	return e.Cause
}
func (e *ErrBadParam) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "common.bad_param"
}
func (e *ErrBadParam) Respond() *BizErrorDetail {
	message := "common.bad_param"
	if e.Cause != nil {
		message = e.Cause.Error()
	}
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.bad_param", Message: message, Data: nil}
}

// FieldViolation names one failing input field, so callers can render
// per-field errors instead of a single generic message.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrInvalidArguments struct {
	Violations []FieldViolation
}

func (e *ErrInvalidArguments) Error() string {
	return "common.validation_failed"
}
func (e *ErrInvalidArguments) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.validation_failed",
		Message: "validation failed", Data: e.Violations}
}

// ErrConflict carries a machine-readable code for uniqueness and
// state-machine precondition violations, so callers can branch on it.
type ErrConflict struct {
	Code    string
	Message string
	Cause   error
}

func (e *ErrConflict) Unwrap() error {
	return e.Cause
}
func (e *ErrConflict) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}
func (e *ErrConflict) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusConflict, Code: e.Code, Message: e.Error(), Cause: e.Cause}
}
