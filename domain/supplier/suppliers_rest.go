package supplier

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

func RegisterSuppliersRestAPI(r *gin.Engine, adminFilters ...gin.HandlerFunc) {
	r.POST("/v1/suppliers", ratelimit.Middleware(ratelimit.PresetPublicForm), handleRegisterSupplier)

	g := r.Group("/v1/suppliers", adminFilters...)
	g.GET("", ratelimit.Middleware(ratelimit.PresetAPIRead), handleQuerySuppliers)
	g.GET(":id", ratelimit.Middleware(ratelimit.PresetAPIRead), handleDetailSupplier)
	g.PUT(":id", ratelimit.Middleware(ratelimit.PresetAPIWrite), handleUpdateSupplier)
	g.PUT(":id/status", ratelimit.Middleware(ratelimit.PresetAPIWrite), handleUpdateSupplierStatus)

	s := r.Group("/v1/supplier-search", adminFilters...)
	s.GET("nearby", ratelimit.Middleware(ratelimit.PresetAPIRead), handleNearbySuppliers)
}

func handleRegisterSupplier(c *gin.Context) {
	registration := domain.SupplierRegistration{}
	if err := c.ShouldBindBodyWith(&registration, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := RegisterSupplierFunc(&registration, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, &misc.Body{Success: true, Data: record})
}

func handleQuerySuppliers(c *gin.Context) {
	query := domain.SupplierQuery{}
	if err := c.ShouldBindQuery(&query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := QuerySuppliersFunc(&query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: records})
}

func handleDetailSupplier(c *gin.Context) {
	record, err := DetailSupplierFunc(parseIdParam(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: record})
}

func handleUpdateSupplier(c *gin.Context) {
	updating := domain.SupplierUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := UpdateSupplierFunc(parseIdParam(c), &updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: record})
}

func handleUpdateSupplierStatus(c *gin.Context) {
	updating := SupplierStatusUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := UpdateSupplierStatusFunc(parseIdParam(c), &updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: record})
}

func handleNearbySuppliers(c *gin.Context) {
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

	matches, err := NearbySuppliersFunc(geo.Coordinates{Latitude: lat, Longitude: lng},
		radiusKm, c.Query("equipmentType"), session.ExtractSessionFromGinContext(c))
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
