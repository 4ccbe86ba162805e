package professional

import (
	"errors"
	"net/http"
	"strconv"

	"hrx/bizerror"
	"hrx/domain"
	"hrx/geo"
	"hrx/misc"
	"hrx/ratelimit"
	"hrx/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// RegisterProfessionalsRestAPI registers the public registration surface
// and the admin review pipeline.
func RegisterProfessionalsRestAPI(r *gin.Engine, adminFilters ...gin.HandlerFunc) {
	r.POST("/v1/professionals", ratelimit.Middleware(ratelimit.PresetPublicForm), handleRegisterProfessional)
	r.POST("/v1/professionals/:id/documents/:type", ratelimit.Middleware(ratelimit.PresetPublicForm), handleUploadDocument)

	g := r.Group("/v1/professionals", adminFilters...)
	g.GET("", ratelimit.Middleware(ratelimit.PresetAPIRead), handleQueryProfessionals)
	g.GET(":id", ratelimit.Middleware(ratelimit.PresetAPIRead), handleDetailProfessional)
	g.PUT(":id", ratelimit.Middleware(ratelimit.PresetAPIWrite), handleUpdateProfessional)
	g.POST(":id/approve", ratelimit.Middleware(ratelimit.PresetAPIWrite), handleApproveProfessional)
	g.POST(":id/reject", ratelimit.Middleware(ratelimit.PresetAPIWrite), handleRejectProfessional)
	g.GET(":id/history", ratelimit.Middleware(ratelimit.PresetAPIRead), handleListHistory)
	g.GET(":id/documents", ratelimit.Middleware(ratelimit.PresetAPIRead), handleListDocuments)
	g.GET(":id/documents/:type", ratelimit.Middleware(ratelimit.PresetAPIRead), handleFetchDocument)

	s := r.Group("/v1/professional-search", adminFilters...)
	s.GET("nearby", ratelimit.Middleware(ratelimit.PresetAPIRead), handleNearbyProfessionals)
}

func handleRegisterProfessional(c *gin.Context) {
	registration := domain.ProfessionalRegistration{}
	if err := c.ShouldBindBodyWith(&registration, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := RegisterProfessionalFunc(&registration, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, &misc.Body{Success: true, Data: record})
}

func handleQueryProfessionals(c *gin.Context) {
	query := domain.ProfessionalQuery{}
	if err := c.ShouldBindQuery(&query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	page, err := QueryProfessionalsFunc(&query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: page})
}

func handleDetailProfessional(c *gin.Context) {
	record, err := DetailProfessionalFunc(parseIdParam(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: record})
}

func handleUpdateProfessional(c *gin.Context) {
	updating := domain.ProfessionalUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := UpdateProfessionalFunc(parseIdParam(c), &updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: record})
}

func handleApproveProfessional(c *gin.Context) {
	record, err := ApproveProfessionalFunc(parseIdParam(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: record})
}

func handleRejectProfessional(c *gin.Context) {
	rejection := domain.ProfessionalRejection{}
	if err := c.ShouldBindBodyWith(&rejection, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := RejectProfessionalFunc(parseIdParam(c), &rejection, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: record})
}

func handleListHistory(c *gin.Context) {
	records, err := ListHistoryFunc(parseIdParam(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: records})
}

func handleUploadDocument(c *gin.Context) {
	err := UploadDocumentFunc(parseIdParam(c), c.Param("type"), c.Request.Body,
		session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true})
}

func handleFetchDocument(c *gin.Context) {
	content, err := FetchDocumentFunc(parseIdParam(c), c.Param("type"),
		session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.Data(http.StatusOK, "application/octet-stream", content)
}

func handleListDocuments(c *gin.Context) {
	docTypes, err := ListDocumentsFunc(parseIdParam(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: docTypes})
}

func handleNearbyProfessionals(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("latitude"), 64)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid latitude '" + c.Query("latitude") + "'")})
	}
	lng, err := strconv.ParseFloat(c.Query("longitude"), 64)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid longitude '" + c.Query("longitude") + "'")})
	}
	radiusKm := 0.0
	if raw := c.Query("radiusKm"); raw != "" {
		if radiusKm, err = strconv.ParseFloat(raw, 64); err != nil {
			panic(&bizerror.ErrBadParam{Cause: errors.New("invalid radiusKm '" + raw + "'")})
		}
	}

	matches, err := NearbyProfessionalsFunc(geo.Coordinates{Latitude: lat, Longitude: lng},
		radiusKm, c.Query("category"), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: matches})
}

func parseIdParam(c *gin.Context) types.ID {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}
	return id
}
