package search

import (
	"net/http"

	"hrx/bizerror"
	"hrx/domain"
	"hrx/misc"
	"hrx/ratelimit"
	"hrx/session"

	"github.com/gin-gonic/gin"
)

func RegisterProfessionalSearchRestAPI(r *gin.Engine, adminFilters ...gin.HandlerFunc) {
	g := r.Group("/v1/professional-search", adminFilters...)
	g.GET("", ratelimit.Middleware(ratelimit.PresetAPIRead), handleSearchProfessionals)
}

func handleSearchProfessionals(c *gin.Context) {
	query := domain.ProfessionalSearch{}
	if err := c.ShouldBindQuery(&query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	docs, err := SearchProfessionalsFunc(query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: docs})
}
