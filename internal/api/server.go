package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"CharityFund/internal/fund"

	"github.com/gin-gonic/gin"
)

const userHeader = "X-User-ID"

// Server exposes the fund manager over HTTP.
type Server struct {
	fund       *fund.Manager
	adminToken string
}

// New builds the HTTP handler. An empty adminToken leaves admin routes open.
func New(m *fund.Manager, adminToken string) http.Handler {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.LoggerWithWriter(log.Writer()), gin.Recovery())

	s := &Server{fund: m, adminToken: adminToken}

	r.GET("/ping", s.ping)
	r.GET("/summary", s.summary)

	projects := r.Group("/charity_project")
	projects.GET("/", s.listProjects)
	projects.GET("/:id/transfers", s.projectTransfers)
	projects.POST("/", s.requireAdmin, s.createProject)
	projects.PATCH("/:id", s.requireAdmin, s.updateProject)
	projects.DELETE("/:id", s.requireAdmin, s.deleteProject)

	donations := r.Group("/donation")
	donations.POST("/", s.createDonation)
	donations.GET("/", s.requireAdmin, s.listDonations)
	donations.GET("/my", s.myDonations)

	return r
}

type projectCreateRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"required"`
	FullAmount  int64  `json:"full_amount" binding:"required,gt=0"`
}

type projectUpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,min=1"`
	FullAmount  *int64  `json:"full_amount" binding:"omitempty,gt=0"`
}

type donationCreateRequest struct {
	FullAmount int64  `json:"full_amount" binding:"required,gt=0"`
	Comment    string `json:"comment"`
}

func (s *Server) ping(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

func (s *Server) summary(c *gin.Context) {
	sum, err := s.fund.Summary(c.Request.Context())
	if err != nil {
		c.JSON(errorResponse(err))
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) listProjects(c *gin.Context) {
	projects, err := s.fund.ListProjects(c.Request.Context())
	if err != nil {
		c.JSON(errorResponse(err))
		return
	}
	c.JSON(http.StatusOK, emptyIfNil(projects))
}

func (s *Server) createProject(c *gin.Context) {
	var req projectCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(validationError(err))
		return
	}

	p, err := s.fund.CreateProject(c.Request.Context(), fund.ProjectCreate{
		Name:        req.Name,
		Description: req.Description,
		FullAmount:  req.FullAmount,
	})
	if err != nil {
		c.JSON(errorResponse(err))
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) updateProject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req projectUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(validationError(err))
		return
	}

	p, err := s.fund.UpdateProject(c.Request.Context(), id, fund.ProjectUpdate{
		Name:        req.Name,
		Description: req.Description,
		FullAmount:  req.FullAmount,
	})
	if err != nil {
		c.JSON(errorResponse(err))
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) deleteProject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := s.fund.DeleteProject(c.Request.Context(), id)
	if err != nil {
		c.JSON(errorResponse(err))
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) projectTransfers(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	transfers, err := s.fund.ProjectTransfers(c.Request.Context(), id)
	if err != nil {
		c.JSON(errorResponse(err))
		return
	}
	c.JSON(http.StatusOK, emptyIfNil(transfers))
}

func (s *Server) createDonation(c *gin.Context) {
	var req donationCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(validationError(err))
		return
	}

	d, err := s.fund.CreateDonation(c.Request.Context(), fund.DonationCreate{
		FullAmount: req.FullAmount,
		Comment:    req.Comment,
		UserID:     strings.TrimSpace(c.GetHeader(userHeader)),
	})
	if err != nil {
		c.JSON(errorResponse(err))
		return
	}
	c.JSON(http.StatusOK, d.View())
}

func (s *Server) listDonations(c *gin.Context) {
	donations, err := s.fund.ListDonations(c.Request.Context())
	if err != nil {
		c.JSON(errorResponse(err))
		return
	}
	c.JSON(http.StatusOK, emptyIfNil(donations))
}

func (s *Server) myDonations(c *gin.Context) {
	userID := strings.TrimSpace(c.GetHeader(userHeader))
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "missing " + userHeader + " header"})
		return
	}
	donations, err := s.fund.ListUserDonations(c.Request.Context(), userID)
	if err != nil {
		c.JSON(errorResponse(err))
		return
	}
	views := make([]any, 0, len(donations))
	for _, d := range donations {
		views = append(views, d.View())
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) requireAdmin(c *gin.Context) {
	if s.adminToken == "" {
		return
	}
	if c.GetHeader("Authorization") != "Bearer "+s.adminToken {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "admin token required"})
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "project not found"})
		return 0, false
	}
	return id, true
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func validationError(err error) (int, gin.H) {
	return http.StatusUnprocessableEntity, gin.H{"detail": err.Error()}
}

func errorResponse(err error) (int, gin.H) {
	switch {
	case errors.Is(err, fund.ErrNotFound):
		return http.StatusNotFound, gin.H{"detail": err.Error()}
	case errors.Is(err, fund.ErrDuplicateName), errors.Is(err, fund.ErrInvalidInput):
		return http.StatusUnprocessableEntity, gin.H{"detail": err.Error()}
	case errors.Is(err, fund.ErrProjectClosed),
		errors.Is(err, fund.ErrAmountBelowInvested),
		errors.Is(err, fund.ErrProjectFunded):
		return http.StatusBadRequest, gin.H{"detail": err.Error()}
	}
	log.Printf("[ERROR] request failed: %v", err)
	return http.StatusInternalServerError, gin.H{"detail": "internal error"}
}
