package controllers

import (
	"errors"
	"net/http"

	"campus-hub-api/models"
	"campus-hub-api/services"

	"github.com/gin-gonic/gin"
)

type reviewRequest struct {
	Action           string `json:"action" binding:"required"` // approve|reject|hold
	Notes            string `json:"notes"`
	Escalate         bool   `json:"escalate"`
	EscalationReason string `json:"escalation_reason"`
}

// ReviewApplication runs one reviewer decision (approve/reject/hold)
// against an application and maps each workflow failure to its own
// response, so the frontend can tell stale state from missing
// authorization from a lost race.
func ReviewApplication(c *gin.Context) {
	applicationID, ok := applicationIDParam(c)
	if !ok {
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	userID, exists := currentUserID(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return
	}
	roleID, _ := currentRoleID(c)

	actor := services.Actor{UserID: userID, RoleID: roleID}
	input := services.ReviewInput{
		Action:           req.Action,
		Notes:            req.Notes,
		Escalate:         req.Escalate,
		EscalationReason: req.EscalationReason,
	}

	app, err := Workflow().Review(applicationID, actor, input, requestMeta(c))
	if err != nil {
		respondReviewError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     reviewResultMessage(app.Status),
		"application": app,
	})
}

func reviewResultMessage(status string) string {
	switch status {
	case models.StatusApproved:
		return "Application approved"
	case models.StatusRejected:
		return "Application rejected"
	case models.StatusEscalated:
		return "Application escalated to the Dean"
	}
	return "Review recorded"
}

// respondReviewError maps each workflow error kind to a distinct HTTP
// response. Conflict responses carry retryable=true: the client should
// reload before retrying because the action may already have been applied
// by a concurrent reviewer.
func respondReviewError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found", "code": "not_found"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not authorized to review this application", "code": "forbidden"})
	case errors.Is(err, services.ErrWrongLevel):
		c.JSON(http.StatusConflict, gin.H{"error": "Application is not at your review level", "code": "wrong_level"})
	case errors.Is(err, services.ErrAlreadyTerminal):
		c.JSON(http.StatusConflict, gin.H{"error": "Application review is already finalized", "code": "already_finalized"})
	case errors.Is(err, services.ErrMissingReason):
		c.JSON(http.StatusBadRequest, gin.H{"error": "A reason is required for this action", "code": "missing_reason"})
	case errors.Is(err, services.ErrInvalidAction):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Action must be approve, reject or hold", "code": "invalid_action"})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":     "Application was modified by another reviewer, reload and try again",
			"code":      "conflict",
			"retryable": true,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process review"})
	}
}
