package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pakolx/market/internal/api/handlers"
	"pakolx/market/internal/models"
	"pakolx/market/internal/services"
)

func newModerationRouter(frSvc *MockFeatureRequestService, reportSvc *MockReportService, userID primitive.ObjectID, isAdmin bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handlers.NewRestModerationHandler(frSvc, reportSvc)
	r := gin.New()
	r.Use(asUser(userID, isAdmin))
	r.POST("/v1/ads/:id/feature-requests", h.SubmitFeatureRequest)
	r.GET("/v1/me/feature-requests", h.ListMyFeatureRequests)
	r.GET("/v1/admin/feature-requests", h.ListFeatureRequests)
	r.POST("/v1/admin/feature-requests/:id/approve", h.ApproveFeatureRequest)
	r.POST("/v1/admin/feature-requests/:id/reject", h.RejectFeatureRequest)
	r.POST("/v1/ads/:id/reports", h.CreateReport)
	r.GET("/v1/admin/reports", h.ListReports)
	r.POST("/v1/admin/reports/:id/resolve", h.ResolveReport)
	r.POST("/v1/admin/reports/:id/dismiss", h.DismissReport)
	return r
}

func TestRestModerationHandler_SubmitFeatureRequest(t *testing.T) {
	userID := primitive.NewObjectID()
	adID := primitive.NewObjectID()
	frSvc := new(MockFeatureRequestService)
	r := newModerationRouter(frSvc, new(MockReportService), userID, false)

	frSvc.On("Submit", mock.Anything, userID, adID, "https://cdn.example/screenshots/x.png", mock.Anything).
		Return(&models.FeatureRequest{AdID: adID, Status: models.RequestStatusPending, Amount: 500, DurationDays: 7}, nil).Once()
	frSvc.On("Submit", mock.Anything, userID, adID, "https://cdn.example/screenshots/x.png", mock.Anything).
		Return(nil, services.ErrConflict).Once()

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/v1/ads/"+adID.Hex()+"/feature-requests",
			strings.NewReader(`{"screenshot_url":" https://cdn.example/screenshots/x.png "}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	w := send()
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"duration_days":7`)

	// A second pending request for the same ad is refused.
	w = send()
	assert.Equal(t, http.StatusConflict, w.Code)
	frSvc.AssertExpectations(t)
}

func TestRestModerationHandler_FeatureRequestDecisions(t *testing.T) {
	adminID := primitive.NewObjectID()
	requestID := primitive.NewObjectID()
	frSvc := new(MockFeatureRequestService)
	r := newModerationRouter(frSvc, new(MockReportService), adminID, true)

	frSvc.On("Approve", mock.Anything, requestID, adminID).
		Return(nil, services.ErrAlreadyProcessed)
	frSvc.On("Reject", mock.Anything, requestID, adminID, "Payment not received").
		Return(&models.FeatureRequest{Status: models.RequestStatusRejected, RejectionReason: "Payment not received"}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/admin/feature-requests/"+requestID.Hex()+"/approve", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/v1/admin/feature-requests/"+requestID.Hex()+"/reject",
		strings.NewReader(`{"reason":"Payment not received"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "REJECTED")
	frSvc.AssertExpectations(t)
}

func TestRestModerationHandler_ListFeatureRequests_Status(t *testing.T) {
	adminID := primitive.NewObjectID()
	frSvc := new(MockFeatureRequestService)
	r := newModerationRouter(frSvc, new(MockReportService), adminID, true)
	frSvc.On("AdminList", mock.Anything, models.RequestStatusPending, models.Page{}).
		Return([]models.FeatureRequest{}, models.Page{Page: 1, Limit: 20}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/admin/feature-requests?status=pending", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/v1/admin/feature-requests?status=paid", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	frSvc.AssertExpectations(t)
}

func TestRestModerationHandler_Reports(t *testing.T) {
	userID := primitive.NewObjectID()
	adID := primitive.NewObjectID()
	reportID := primitive.NewObjectID()
	reportSvc := new(MockReportService)
	r := newModerationRouter(new(MockFeatureRequestService), reportSvc, userID, true)

	reportSvc.On("Create", mock.Anything, userID, adID, services.ReportInput{Reason: "SPAM", Description: "Posted five times"}).
		Return(&models.Report{AdID: adID, Reason: models.ReportReasonSpam, Status: models.ReportStatusPending}, nil)
	reportSvc.On("Resolve", mock.Anything, reportID, userID, "Ad removed").
		Return(&models.Report{Status: models.ReportStatusResolved}, nil)
	reportSvc.On("Dismiss", mock.Anything, reportID, userID, "").
		Return(nil, services.ErrAlreadyProcessed)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/ads/"+adID.Hex()+"/reports",
		strings.NewReader(`{"reason":"SPAM","description":"Posted five times"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/v1/admin/reports/"+reportID.Hex()+"/resolve",
		strings.NewReader(`{"note":"Ad removed"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "RESOLVED")

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/v1/admin/reports/"+reportID.Hex()+"/dismiss", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
	reportSvc.AssertExpectations(t)
}
