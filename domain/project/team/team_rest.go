package team

import (
	"errors"
	"net/http"

	"hrx/bizerror"
	"hrx/domain"
	"hrx/misc"
	"hrx/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func RegisterTeamRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/projects/:id/team", middleWares...)
	g.GET("", handleListTeam)
	g.POST("", handleAddTeamMember)

	m := r.Group("/v1/team-members", middleWares...)
	m.PUT(":id", handleUpdateTeamMember)
	m.DELETE(":id", handleRemoveTeamMember)
}

func handleListTeam(c *gin.Context) {
	projectID := parseIdParam(c, "id")
	view, err := ListTeamMembersFunc(projectID, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: view})
}

func handleAddTeamMember(c *gin.Context) {
	projectID := parseIdParam(c, "id")
	creation := domain.TeamMemberCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	member, err := AddTeamMemberFunc(projectID, &creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, &misc.Body{Success: true, Data: member})
}

func handleUpdateTeamMember(c *gin.Context) {
	id := parseIdParam(c, "id")
	updating := domain.TeamMemberUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	member, err := UpdateTeamMemberFunc(id, &updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: member})
}

func handleRemoveTeamMember(c *gin.Context) {
	id := parseIdParam(c, "id")
	override := c.Query("overrideUnderstaffed") == "true"
	result, err := RemoveTeamMemberFunc(id, override, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.Body{Success: true, Data: result})
}

func parseIdParam(c *gin.Context, name string) types.ID {
	id, err := types.ParseID(c.Param(name))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param(name) + "'")})
	}
	return id
}
