package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"campus-hub-api/config"
	"campus-hub-api/models"
	"campus-hub-api/services"
	"campus-hub-api/utils"

	"github.com/gin-gonic/gin"
)

var workflowService *services.WorkflowService

// Workflow returns the shared workflow service, wiring it lazily against
// the global DB handle.
func Workflow() *services.WorkflowService {
	if workflowService == nil {
		workflowService = services.NewWorkflowService(
			services.NewApplicationStore(config.DB),
			services.NewReviewNotifier(config.DB),
		)
	}
	return workflowService
}

type submitApplicationRequest struct {
	ApplicationType      string `json:"application_type" binding:"required"`
	Subject              string `json:"subject" binding:"required"`
	Detail               string `json:"detail"`
	MentorID             int    `json:"mentor_id" binding:"required"`
	RequiresDeanApproval bool   `json:"requires_dean_approval"`
	DateFrom             string `json:"date_from"` // YYYY-MM-DD
	DateTo               string `json:"date_to"`   // YYYY-MM-DD
}

// SubmitApplication creates a new application in its initial state:
// pending, at the mentor level.
func SubmitApplication(c *gin.Context) {
	var req submitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return
	}

	var submitter models.User
	if err := config.DB.Where("user_id = ? AND delete_at IS NULL", userID).First(&submitter).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	var mentor models.User
	if err := config.DB.Where("user_id = ? AND role_id = ? AND delete_at IS NULL",
		req.MentorID, models.RoleFaculty).First(&mentor).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Mentor not found"})
		return
	}

	input := services.SubmitInput{
		ApplicationType:      utils.SanitizeInput(req.ApplicationType),
		Subject:              utils.SanitizeInput(req.Subject),
		Detail:               utils.SanitizeInput(req.Detail),
		SubmittedBy:          userID,
		DepartmentID:         submitter.DepartmentID,
		MentorID:             &req.MentorID,
		RequiresDeanApproval: req.RequiresDeanApproval,
	}
	if from, err := parseDate(req.DateFrom); err == nil {
		input.DateFrom = from
	} else {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date_from, expected YYYY-MM-DD"})
		return
	}
	if to, err := parseDate(req.DateTo); err == nil {
		input.DateTo = to
	} else {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date_to, expected YYYY-MM-DD"})
		return
	}

	app, err := Workflow().Submit(input, requestMeta(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"application": app,
	})
}

// GetApplications lists the caller's own applications, newest first.
// Reviewers and admins may pass ?all=1 to list every application they are
// allowed to see.
func GetApplications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return
	}
	roleID, _ := currentRoleID(c)

	query := config.DB.Preload("Submitter").Preload("Mentor").Preload("Department").
		Where("delete_at IS NULL")

	listAll := c.Query("all") == "1" && roleID != models.RoleStudent
	if !listAll {
		query = query.Where("submitted_by = ?", userID)
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		query = query.Where("status = ?", status)
	}

	var applications []models.Application
	if err := query.Order("submitted_at DESC").Find(&applications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch applications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"applications": applications,
		"total":        len(applications),
	})
}

// GetApplication returns one application with its review trail.
func GetApplication(c *gin.Context) {
	applicationID, ok := applicationIDParam(c)
	if !ok {
		return
	}
	userID, _ := currentUserID(c)
	roleID, _ := currentRoleID(c)

	var app models.Application
	if err := config.DB.Preload("Submitter").Preload("Mentor").Preload("Department").
		Where("application_id = ? AND delete_at IS NULL", applicationID).
		First(&app).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
		return
	}

	if !canSeeApplication(&app, userID, roleID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this application"})
		return
	}

	var reviews []models.ApplicationReview
	config.DB.Preload("Reviewer").
		Where("application_id = ?", applicationID).
		Order("review_round ASC").Find(&reviews)

	var history []models.ApplicationStatusHistory
	config.DB.Where("application_id = ?", applicationID).
		Order("created_at ASC").Find(&history)

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"application": app,
		"reviews":     reviews,
		"history":     history,
	})
}

// GetPendingReviewApplications lists the applications currently waiting
// for the caller's review stage.
func GetPendingReviewApplications(c *gin.Context) {
	userID, _ := currentUserID(c)
	roleID, _ := currentRoleID(c)

	level, ok := services.ReviewLevelForRole(roleID)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Your role has no review queue"})
		return
	}

	query := config.DB.Preload("Submitter").Preload("Mentor").Preload("Department").
		Where("delete_at IS NULL").
		Where("current_level = ?", level).
		Where("status NOT IN ?", []string{models.StatusApproved, models.StatusRejected})

	switch roleID {
	case models.RoleFaculty:
		query = query.Where("mentor_id = ?", userID)
	case models.RoleHOD:
		var hod models.User
		if err := config.DB.Where("user_id = ?", userID).First(&hod).Error; err == nil {
			query = query.Where("department_id = ?", hod.DepartmentID)
		}
	case models.RoleDean:
		query = query.Where("requires_dean_approval = ?", true)
	}

	var applications []models.Application
	if err := query.Order("submitted_at ASC").Find(&applications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch applications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"applications": applications,
		"total":        len(applications),
	})
}

// CanReviewApplication tells the UI whether the caller may act on the
// record right now. Advisory only: the same gate runs again inside the
// review call.
func CanReviewApplication(c *gin.Context) {
	applicationID, ok := applicationIDParam(c)
	if !ok {
		return
	}
	userID, _ := currentUserID(c)
	roleID, _ := currentRoleID(c)

	app, err := Workflow().GetByID(applicationID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
		return
	}

	actor := services.Actor{UserID: userID, RoleID: roleID}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"can_act": services.CanAct(app, actor),
	})
}

func canSeeApplication(app *models.Application, userID, roleID int) bool {
	if app.SubmittedBy == userID {
		return true
	}
	switch roleID {
	case models.RoleAdmin, models.RoleHOD, models.RoleDean:
		return true
	case models.RoleFaculty:
		return app.MentorID != nil && *app.MentorID == userID
	}
	return false
}

func applicationIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
		return 0, false
	}
	return id, true
}

func currentUserID(c *gin.Context) (int, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}
	id, ok := value.(int)
	return id, ok
}

func currentRoleID(c *gin.Context) (int, bool) {
	value, exists := c.Get("roleID")
	if !exists {
		return 0, false
	}
	id, ok := value.(int)
	return id, ok
}

func requestMeta(c *gin.Context) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}

func parseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
