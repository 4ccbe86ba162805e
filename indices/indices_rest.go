package indices

import (
	"net/http"

	"hrx/ratelimit"
	"hrx/session"

	"github.com/gin-gonic/gin"
)

var (
	PathIndexRequests = "/v1/index-request"
)

func RegisterIndicesRestAPI(r *gin.Engine, adminFilters ...gin.HandlerFunc) {
	g := r.Group(PathIndexRequests, adminFilters...)
	g.POST("", ratelimit.Middleware(ratelimit.PresetAPIWrite), handleIndexRequest)
}

func handleIndexRequest(c *gin.Context) {
	success, err := ScheduleNewSyncRunFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{"result": success})
}
