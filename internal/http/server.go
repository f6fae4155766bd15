package http

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/example/maintdesk/backend/internal/apperr"
	"github.com/example/maintdesk/backend/internal/auth"
	"github.com/example/maintdesk/backend/internal/models"
	"github.com/example/maintdesk/backend/internal/service"
)

const principalKey = "principal"

// Server wraps the gin engine and collaborators needed to handle API requests.
type Server struct {
	Engine     *gin.Engine
	complaints *service.ComplaintService
	reference  *service.ReferenceService
	tenants    *service.TenantService
	sessions   *service.AuthService
	tokens     *auth.JWTService
}

// NewServer constructs a new API server and registers routes.
func NewServer(complaints *service.ComplaintService, reference *service.ReferenceService, tenants *service.TenantService, sessions *service.AuthService, tokens *auth.JWTService, allowedOrigins []string) *Server {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	srv := &Server{
		Engine:     router,
		complaints: complaints,
		reference:  reference,
		tenants:    tenants,
		sessions:   sessions,
		tokens:     tokens,
	}
	srv.registerRoutes()
	return srv
}

func (s *Server) registerRoutes() {
	api := s.Engine.Group("/api")
	api.GET("/health", s.health)
	api.POST("/auth/signup", s.signup)
	api.POST("/auth/login", s.login)

	authed := api.Group("", s.requireSession())
	authed.POST("/complaints", s.createComplaint)
	authed.GET("/complaints", s.listComplaints)
	authed.GET("/complaints/:id", s.getComplaint)
	authed.POST("/complaints/:id/jobs", s.submitJob)
	authed.POST("/jobs/:id/approve", s.approveJob)
	authed.GET("/materials", s.listMaterials)
	authed.POST("/materials/import", s.importMaterials)
	authed.GET("/staff", s.listStaff)
}

// requireSession validates the bearer token and stores the caller's principal.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			fail(c, apperr.NewUnauthorized(""))
			return
		}
		p, err := s.tokens.Validate(strings.TrimSpace(token))
		if err != nil {
			fail(c, apperr.NewUnauthorized("invalid or expired session"))
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

func principal(c *gin.Context) auth.Principal {
	p, _ := c.MustGet(principalKey).(auth.Principal)
	return p
}

// fail renders err through the error taxonomy and aborts the chain.
func fail(c *gin.Context, err error) {
	status, body := apperr.ToHTTP(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s failed: %+v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, body)
}

func bindJSON(c *gin.Context, payload any) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		fail(c, apperr.NewValidation("body", err.Error()))
		return false
	}
	return true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperr.NewValidation("id", "invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) signup(c *gin.Context) {
	var payload struct {
		MobileNo     string `json:"mobile_no" binding:"required"`
		BuildingName string `json:"building_name" binding:"required"`
		RoomNo       string `json:"room_no" binding:"required"`
		Password     string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &payload) {
		return
	}
	tenant, err := s.tenants.CreateTenant(c.Request.Context(), service.NewTenant{
		MobileNo:     payload.MobileNo,
		BuildingName: models.BuildingName(payload.BuildingName),
		RoomNo:       payload.RoomNo,
	}, payload.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tenant)
}

func (s *Server) login(c *gin.Context) {
	var payload struct {
		Role       string `json:"role" binding:"required"`
		Identifier string `json:"identifier" binding:"required"`
		Password   string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &payload) {
		return
	}
	session, err := s.sessions.Login(c.Request.Context(), auth.Role(payload.Role), payload.Identifier, payload.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) createComplaint(c *gin.Context) {
	var payload struct {
		BldgName      string     `json:"bldg_name"`
		FlatNo        string     `json:"flat_no"`
		MobileNo      string     `json:"mobile_no"`
		PreferredTime string     `json:"preferred_time"`
		Category      string     `json:"category"`
		Description   string     `json:"description"`
		TenantID      *uuid.UUID `json:"tenant_id"`
		ImageURL      string     `json:"image_url"`
	}
	if !bindJSON(c, &payload) {
		return
	}
	complaint, err := s.complaints.CreateComplaint(c.Request.Context(), principal(c), service.NewComplaint{
		BldgName:      payload.BldgName,
		FlatNo:        payload.FlatNo,
		MobileNo:      payload.MobileNo,
		PreferredTime: payload.PreferredTime,
		Category:      models.ComplaintCategory(payload.Category),
		Description:   payload.Description,
		TenantID:      payload.TenantID,
		ImageURL:      payload.ImageURL,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, complaint)
}

func (s *Server) listComplaints(c *gin.Context) {
	var tenantID *uuid.UUID
	if raw := c.Query("tenant_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			fail(c, apperr.NewValidation("tenant_id", "invalid id"))
			return
		}
		tenantID = &id
	}
	complaints, err := s.complaints.ListComplaints(c.Request.Context(), principal(c), tenantID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, complaints)
}

func (s *Server) getComplaint(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	complaint, err := s.complaints.GetComplaint(c.Request.Context(), principal(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	if complaint == nil {
		fail(c, apperr.NewNotFound("complaint", id.String()))
		return
	}
	c.JSON(http.StatusOK, complaint)
}

func (s *Server) submitJob(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var payload struct {
		DateAttended  string                `json:"date_attended"`
		TimeAttended  string                `json:"time_attended"`
		StaffAttended []string              `json:"staff_attended"`
		JobCardNo     string                `json:"job_card_no"`
		MaterialsUsed []models.MaterialUsed `json:"materials_used"`
		TimeCompleted string                `json:"time_completed"`
		Status        string                `json:"status" binding:"required"`
		Reason        string                `json:"reason"`
	}
	if !bindJSON(c, &payload) {
		return
	}
	job, err := s.complaints.SubmitJobUpdate(c.Request.Context(), principal(c), service.JobFields{
		ComplaintID:   id,
		DateAttended:  payload.DateAttended,
		TimeAttended:  payload.TimeAttended,
		StaffAttended: payload.StaffAttended,
		JobCardNo:     payload.JobCardNo,
		MaterialsUsed: payload.MaterialsUsed,
		TimeCompleted: payload.TimeCompleted,
	}, models.ComplaintStatus(payload.Status), payload.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

func (s *Server) approveJob(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.complaints.ApproveJob(c.Request.Context(), principal(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listMaterials(c *gin.Context) {
	materials, err := s.reference.ListMaterials(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, materials)
}

func (s *Server) importMaterials(c *gin.Context) {
	var payload struct {
		Materials []models.Material `json:"materials" binding:"required"`
	}
	if !bindJSON(c, &payload) {
		return
	}
	n, err := s.reference.ImportMaterials(c.Request.Context(), principal(c), payload.Materials)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": n})
}

func (s *Server) listStaff(c *gin.Context) {
	staff, err := s.reference.ListActiveStaff(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, staff)
}
