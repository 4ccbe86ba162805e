package contract

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

func RegisterContractsRestAPI(r *gin.Engine, adminFilters ...gin.HandlerFunc) {
	g := r.Group("/v1/projects/:id/contract", adminFilters...)
	g.POST("", ratelimit.Middleware(ratelimit.PresetAPIWrite), handleGenerateContract)
	g.GET("", ratelimit.Middleware(ratelimit.PresetAPIRead), handleDetailContract)
	g.POST("send", ratelimit.Middleware(ratelimit.PresetAPIWrite), handleSendForSignature)

	r.POST("/v1/contracts/:id/sign", ratelimit.Middleware(ratelimit.PresetPublicForm), handleSignContract)
}

func handleGenerateContract(c *gin.Context) {
	record, err := GenerateContractFunc(parseIdParam(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, &misc.Body{Success: true, Data: record})
}

func handleDetailContract(c *gin.Context) {
	record, err := DetailContractFunc(parseIdParam(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: record})
}

func handleSendForSignature(c *gin.Context) {
	record, err := SendForSignatureFunc(parseIdParam(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: record})
}

func handleSignContract(c *gin.Context) {
	signing := domain.ContractSigning{}
	if err := c.ShouldBindBodyWith(&signing, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := SignContractFunc(parseIdParam(c), &signing, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: record})
}

func parseIdParam(c *gin.Context) types.ID {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}
	return id
}
