package bizerror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"hrx/misc"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

func ErrorHandling() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handle(c)
		c.Next()
	}
}

func handle(c *gin.Context) {
	if ret := recover(); ret != nil {
		err, ok := ret.(error)
		if !ok {
			err = errors.New(fmt.Sprintf("%s", ret))
		}
		HandleError(c, err)
	} else {
		if err := c.Errors.Last(); err != nil {
			HandleError(c, err)
		}
	}
}

func HandleError(c *gin.Context, err error) {
	logrus.Error(err)

	genericErr := err
	var ginErr *gin.Error
	if errors.As(err, &ginErr) {
		genericErr = ginErr.Err
	}

	if bizErr, ok := genericErr.(BizError); ok {
		respond := bizErr.Respond()
		c.JSON(respond.Status, &misc.ErrorBody{Code: respond.Code, Message: respond.Message, Data: respond.Data})
		c.Abort()
		return
	}

	// bad request: io.EOF (no body)
	if errors.Is(genericErr, io.EOF) {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "bad_request.body_not_found", Message: "body not found"})
		c.Abort()
		return
	}
	// bad request: json syntax error
	if syntaxErr, ok := genericErr.(*json.SyntaxError); ok {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "bad_request.invalid_body_format", Message: "invalid body format", Data: syntaxErr.Error()})
		c.Abort()
		return
	}
	// binding validation failed: report every failing field
	if validationErr, ok := genericErr.(validator.ValidationErrors); ok {
		violations := make([]FieldViolation, 0, len(validationErr))
		for _, fieldErr := range validationErr {
			violations = append(violations, FieldViolation{Field: fieldErr.Field(), Message: fieldErr.Tag()})
		}
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.validation_failed", Message: "validation failed", Data: violations})
		c.Abort()
		return
	}

	if errors.Is(genericErr, ErrUnauthenticated) {
		c.JSON(http.StatusUnauthorized, &misc.ErrorBody{Code: "common.unauthenticated", Message: "unauthenticated"})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrForbidden) {
		c.JSON(http.StatusForbidden, &misc.ErrorBody{Code: "security.forbidden", Message: "access forbidden"})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrInvalidPassword) {
		c.JSON(http.StatusUnauthorized, &misc.ErrorBody{Code: "security.invalid_password", Message: "invalid password"})
		c.Abort()
		return
	}

	if errors.Is(genericErr, ErrUnknownState) || errors.Is(genericErr, ErrStateInvalid) {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "workflow.unknown_state", Message: genericErr.Error()})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrInvalidTransition) {
		c.JSON(http.StatusConflict, &misc.ErrorBody{Code: "workflow.transition_not_allowed", Message: genericErr.Error()})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrProjectNotEditable) {
		c.JSON(http.StatusConflict, &misc.ErrorBody{Code: "project.not_editable", Message: genericErr.Error()})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrProjectNotApproved) {
		c.JSON(http.StatusConflict, &misc.ErrorBody{Code: "PROJECT_NOT_APPROVED", Message: genericErr.Error()})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrQuotationConflict) {
		c.JSON(http.StatusConflict, &misc.ErrorBody{Code: "quotation.already_decided", Message: genericErr.Error()})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrQuotationInert) {
		c.JSON(http.StatusConflict, &misc.ErrorBody{Code: "quotation.inert_token", Message: genericErr.Error()})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrQuotationExpired) {
		c.JSON(http.StatusConflict, &misc.ErrorBody{Code: "quotation.expired", Message: genericErr.Error()})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrAlreadySigned) {
		c.JSON(http.StatusConflict, &misc.ErrorBody{Code: "ALREADY_SIGNED", Message: genericErr.Error()})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrSignatureExpired) {
		c.JSON(http.StatusForbidden, &misc.ErrorBody{Code: "contract.signature_expired", Message: genericErr.Error()})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrSignatureInvalid) {
		c.JSON(http.StatusForbidden, &misc.ErrorBody{Code: "contract.signature_invalid", Message: genericErr.Error()})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrDuplicatedIdentity) {
		c.JSON(http.StatusConflict, &misc.ErrorBody{Code: "identity.duplicated", Message: genericErr.Error()})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrSupplierInactive) {
		c.JSON(http.StatusConflict, &misc.ErrorBody{Code: "supplier.inactive", Message: genericErr.Error()})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrRejectReasonMissing) {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "professional.reject_reason_missing", Message: genericErr.Error()})
		c.Abort()
		return
	}
	if errors.Is(genericErr, gorm.ErrRecordNotFound) || errors.Is(genericErr, ErrNotFound) {
		c.JSON(http.StatusNotFound, &misc.ErrorBody{Code: "common.record_not_found", Message: "record not found"})
		c.Abort()
		return
	}

	c.JSON(http.StatusInternalServerError, &misc.ErrorBody{Code: "common.internal_server_error", Message: "internal server error"})
	c.Abort()
}
