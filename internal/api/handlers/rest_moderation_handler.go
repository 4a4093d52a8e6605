package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pakolx/market/internal/api/middleware"
	"pakolx/market/internal/models"
	"pakolx/market/internal/services"
)

// RestModerationHandler serves feature requests and reports: both are
// submitted by users and decided by admins.
type RestModerationHandler struct {
	featureRequestService services.IFeatureRequestService
	reportService         services.IReportService
}

// NewRestModerationHandler creates a new RestModerationHandler.
func NewRestModerationHandler(featureRequestService services.IFeatureRequestService, reportService services.IReportService) *RestModerationHandler {
	return &RestModerationHandler{
		featureRequestService: featureRequestService,
		reportService:         reportService,
	}
}

type featureRequestBody struct {
	ScreenshotURL string `json:"screenshot_url"`
}

// SubmitFeatureRequest handles POST /v1/ads/:id/feature-requests
func (h *RestModerationHandler) SubmitFeatureRequest(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	adID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body featureRequestBody
	if !bindJSON(c, &body) {
		return
	}
	fr, err := h.featureRequestService.Submit(c.Request.Context(), userID, adID, strings.TrimSpace(body.ScreenshotURL), middleware.Settings(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fr)
}

// ListMyFeatureRequests handles GET /v1/me/feature-requests
func (h *RestModerationHandler) ListMyFeatureRequests(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	requests, page, err := h.featureRequestService.ListByUser(c.Request.Context(), userID, pageQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, requests, page)
}

// ListFeatureRequests handles GET /v1/admin/feature-requests?status=
func (h *RestModerationHandler) ListFeatureRequests(c *gin.Context) {
	status := models.RequestStatus(strings.ToUpper(c.Query("status")))
	switch status {
	case "", models.RequestStatusPending, models.RequestStatusApproved, models.RequestStatusRejected:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}
	requests, page, err := h.featureRequestService.AdminList(c.Request.Context(), status, pageQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, requests, page)
}

// ApproveFeatureRequest handles POST /v1/admin/feature-requests/:id/approve
func (h *RestModerationHandler) ApproveFeatureRequest(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := paramID(c, "id")
	if !ok {
		return
	}
	fr, err := h.featureRequestService.Approve(c.Request.Context(), requestID, adminID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fr)
}

// RejectFeatureRequest handles POST /v1/admin/feature-requests/:id/reject.
// The service requires a reason.
func (h *RestModerationHandler) RejectFeatureRequest(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body reasonBody
	if !bindOptionalJSON(c, &body) {
		return
	}
	fr, err := h.featureRequestService.Reject(c.Request.Context(), requestID, adminID, strings.TrimSpace(body.Reason))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fr)
}

// CreateReport handles POST /v1/ads/:id/reports
func (h *RestModerationHandler) CreateReport(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	adID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.ReportInput
	if !bindJSON(c, &in) {
		return
	}
	report, err := h.reportService.Create(c.Request.Context(), userID, adID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// ListReports handles GET /v1/admin/reports?status=
func (h *RestModerationHandler) ListReports(c *gin.Context) {
	status := models.ReportStatus(strings.ToUpper(c.Query("status")))
	switch status {
	case "", models.ReportStatusPending, models.ReportStatusResolved, models.ReportStatusDismissed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}
	reports, page, err := h.reportService.List(c.Request.Context(), status, pageQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, reports, page)
}

// ResolveReport handles POST /v1/admin/reports/:id/resolve
func (h *RestModerationHandler) ResolveReport(c *gin.Context) {
	h.decideReport(c, h.reportService.Resolve)
}

// DismissReport handles POST /v1/admin/reports/:id/dismiss
func (h *RestModerationHandler) DismissReport(c *gin.Context) {
	h.decideReport(c, h.reportService.Dismiss)
}

func (h *RestModerationHandler) decideReport(c *gin.Context, decide func(ctx context.Context, reportID, adminID primitive.ObjectID, note string) (*models.Report, error)) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	reportID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body reasonBody
	if !bindOptionalJSON(c, &body) {
		return
	}
	report, err := decide(c.Request.Context(), reportID, adminID, strings.TrimSpace(body.Note))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
