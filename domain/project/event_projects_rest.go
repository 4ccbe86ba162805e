package project

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

var PathProjects = "/v1/projects"

// RegisterProjectsRestAPI registers the public intake endpoint and the
// admin project workflow endpoints.
func RegisterProjectsRestAPI(r *gin.Engine, adminFilters ...gin.HandlerFunc) {
	r.POST(PathProjects, ratelimit.Middleware(ratelimit.PresetPublicForm), handleCreateProject)

	g := r.Group(PathProjects, adminFilters...)
	g.GET("", ratelimit.Middleware(ratelimit.PresetAPIRead), handleQueryProjects)
	g.GET(":id", ratelimit.Middleware(ratelimit.PresetAPIRead), handleDetailProject)
	g.PUT(":id", ratelimit.Middleware(ratelimit.PresetAPIWrite), handleUpdateProject)
	g.POST(":id/transitions", ratelimit.Middleware(ratelimit.PresetAPIWrite), handleTransitionProject)
	g.DELETE(":id", ratelimit.Middleware(ratelimit.PresetAPIWrite), handleDeleteProject)
}

func handleCreateProject(c *gin.Context) {
	creation := domain.EventProjectCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateProjectFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, &misc.Body{Success: true, Data: record})
}

func handleQueryProjects(c *gin.Context) {
	query := domain.EventProjectQuery{}
	if err := c.ShouldBindQuery(&query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	page, err := QueryProjectsFunc(&query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: page})
}

func handleDetailProject(c *gin.Context) {
	record, err := DetailProjectFunc(parseIdParam(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: record})
}

func handleUpdateProject(c *gin.Context) {
	updating := domain.EventProjectUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := UpdateProjectFunc(parseIdParam(c), &updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: record})
}

func handleTransitionProject(c *gin.Context) {
	updating := domain.ProjectStatusUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := TransitionProjectFunc(parseIdParam(c), &updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: record})
}

func handleDeleteProject(c *gin.Context) {
	if err := DeleteProjectFunc(parseIdParam(c), session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}

func parseIdParam(c *gin.Context) types.ID {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}
	return id
}
