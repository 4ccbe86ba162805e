package quotation

import (
	"errors"
	"net/http"

	"hrx/bizerror"
	"hrx/domain"
	"hrx/misc"
	"hrx/ratelimit"
	"hrx/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// RegisterQuotationsRestAPI registers the admin quotation workflow and the
// public token surface suppliers use to respond.
func RegisterQuotationsRestAPI(r *gin.Engine, adminFilters ...gin.HandlerFunc) {
	g := r.Group("/v1/projects/:id/quotations", adminFilters...)
	g.POST("", ratelimit.Middleware(ratelimit.PresetAPIWrite), handleDispatchQuotations)
	g.GET("", ratelimit.Middleware(ratelimit.PresetAPIRead), handleListQuotations)
	g.POST(":quotationId/accept", ratelimit.Middleware(ratelimit.PresetAPIWrite), handleAcceptQuotation)
	g.POST(":quotationId/reject", ratelimit.Middleware(ratelimit.PresetAPIWrite), handleRejectQuotation)

	p := r.Group("/v1/quotations/token/:token", ratelimit.Middleware(ratelimit.PresetPublicForm))
	p.GET("", handleFetchQuotationByToken)
	p.POST("", handleSubmitQuotation)
}

func handleDispatchQuotations(c *gin.Context) {
	dispatching := domain.QuotationDispatching{}
	if err := c.ShouldBindBodyWith(&dispatching, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	results, err := DispatchQuotationsFunc(parseIdParam(c, "id"), &dispatching, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, &misc.Body{Success: true, Data: results})
}

func handleListQuotations(c *gin.Context) {
	records, err := ListQuotationsFunc(parseIdParam(c, "id"), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: records})
}

func handleAcceptQuotation(c *gin.Context) {
	record, err := AcceptQuotationFunc(parseIdParam(c, "id"), parseIdParam(c, "quotationId"),
		session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: record})
}

func handleRejectQuotation(c *gin.Context) {
	record, err := RejectQuotationFunc(parseIdParam(c, "id"), parseIdParam(c, "quotationId"),
		session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: record})
}

func handleFetchQuotationByToken(c *gin.Context) {
	view, err := FetchQuotationByTokenFunc(c.Param("token"), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: view})
}

func handleSubmitQuotation(c *gin.Context) {
	submission := domain.QuotationSubmission{}
	if err := c.ShouldBindBodyWith(&submission, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := SubmitQuotationFunc(c.Param("token"), &submission, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: record})
}

func parseIdParam(c *gin.Context, name string) types.ID {
	id, err := types.ParseID(c.Param(name))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param(name) + "'")})
	}
	return id
}
