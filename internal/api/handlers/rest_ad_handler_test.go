package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pakolx/market/internal/api/handlers"
	"pakolx/market/internal/models"
	"pakolx/market/internal/services"
)

func newAdRouter(adSvc *MockAdService, userID *primitive.ObjectID, isAdmin bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handlers.NewRestAdHandler(adSvc)
	r := gin.New()
	if userID != nil {
		r.Use(asUser(*userID, isAdmin))
	}
	r.GET("/v1/ads", h.Search)
	r.GET("/v1/ads/:id", h.GetByID)
	r.GET("/v1/ads/:id/related", h.Related)
	r.POST("/v1/ads", h.Create)
	r.PUT("/v1/ads/:id", h.Update)
	r.DELETE("/v1/ads/:id", h.Delete)
	r.GET("/v1/me/ads", h.ListMine)
	r.GET("/v1/admin/ads", h.AdminList)
	r.POST("/v1/admin/ads/:id/approve", h.Approve)
	r.POST("/v1/admin/ads/:id/reject", h.Reject)
	return r
}

func TestRestAdHandler_Search_ParsesFilters(t *testing.T) {
	adSvc := new(MockAdService)
	r := newAdRouter(adSvc, nil, false)

	categoryID := primitive.NewObjectID()
	adSvc.On("Search", mock.Anything, mock.MatchedBy(func(q models.AdSearch) bool {
		return q.Query == "iphone" &&
			q.CategoryID != nil && *q.CategoryID == categoryID &&
			q.City == "Lahore" &&
			q.Condition == models.ConditionUsed &&
			q.MinPrice != nil && *q.MinPrice == 1000 &&
			q.MaxPrice != nil && *q.MaxPrice == 50000 &&
			q.FeaturedOnly &&
			q.Page == 2 && q.Limit == 10
	})).Return([]models.Ad{{Title: "iPhone 12"}}, models.Page{Page: 2, Limit: 10, Total: 11}, nil)

	url := fmt.Sprintf("/v1/ads?q=iphone&category=%s&city=Lahore&condition=used&min_price=1000&max_price=50000&featured=true&page=2&limit=10", categoryID.Hex())
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", url, nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data       []models.Ad `json:"data"`
		Pagination models.Page `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
	assert.Equal(t, int64(11), body.Pagination.Total)
	adSvc.AssertExpectations(t)
}

func TestRestAdHandler_Search_CategorySlug(t *testing.T) {
	adSvc := new(MockAdService)
	r := newAdRouter(adSvc, nil, false)
	adSvc.On("Search", mock.Anything, mock.MatchedBy(func(q models.AdSearch) bool {
		return q.CategoryID == nil && q.CategorySlug == "mobiles"
	})).Return([]models.Ad{}, models.Page{Page: 1, Limit: 20}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/ads?category=mobiles", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	adSvc.AssertExpectations(t)
}

func TestRestAdHandler_Search_InvalidFilters(t *testing.T) {
	for _, query := range []string{"condition=broken", "min_price=abc", "max_price=-5"} {
		t.Run(query, func(t *testing.T) {
			adSvc := new(MockAdService)
			r := newAdRouter(adSvc, nil, false)
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/v1/ads?"+query, nil)
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			adSvc.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
		})
	}
}

func TestRestAdHandler_GetByID_RecordsViewPerViewer(t *testing.T) {
	adID := primitive.NewObjectID()
	ad := &models.Ad{Base: models.Base{ID: adID}, Title: "Bike"}

	t.Run("guest", func(t *testing.T) {
		adSvc := new(MockAdService)
		r := newAdRouter(adSvc, nil, false)
		adSvc.On("FindPublicByID", mock.Anything, adID).Return(ad, nil)
		adSvc.On("RecordView", mock.Anything, adID, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "ip:")
		}), mock.Anything).Return(nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/v1/ads/"+adID.Hex(), nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		adSvc.AssertExpectations(t)
	})

	t.Run("signed in", func(t *testing.T) {
		viewer := primitive.NewObjectID()
		adSvc := new(MockAdService)
		r := newAdRouter(adSvc, &viewer, false)
		adSvc.On("FindPublicByID", mock.Anything, adID).Return(ad, nil)
		adSvc.On("RecordView", mock.Anything, adID, "user:"+viewer.Hex(), mock.Anything).Return(assert.AnError)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/v1/ads/"+adID.Hex(), nil)
		r.ServeHTTP(w, req)
		// A failed view count does not fail the read.
		assert.Equal(t, http.StatusOK, w.Code)
		adSvc.AssertExpectations(t)
	})
}

func TestRestAdHandler_GetByID_Errors(t *testing.T) {
	adSvc := new(MockAdService)
	r := newAdRouter(adSvc, nil, false)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/ads/not-an-id", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	missing := primitive.NewObjectID()
	adSvc.On("FindPublicByID", mock.Anything, missing).Return(nil, services.ErrNotFound)
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/v1/ads/"+missing.Hex(), nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	adSvc.AssertNotCalled(t, "RecordView", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRestAdHandler_Related(t *testing.T) {
	adSvc := new(MockAdService)
	r := newAdRouter(adSvc, nil, false)
	adID := primitive.NewObjectID()
	ad := &models.Ad{Base: models.Base{ID: adID}}
	adSvc.On("FindPublicByID", mock.Anything, adID).Return(ad, nil)
	adSvc.On("Related", mock.Anything, ad, 8).Return([]models.Ad{{Title: "Other"}}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/ads/"+adID.Hex()+"/related", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Other")
	adSvc.AssertExpectations(t)
}

func TestRestAdHandler_Create(t *testing.T) {
	userID := primitive.NewObjectID()
	body := `{"title":"Honda CD 70 2019","description":"Well kept bike, single owner, all documents clear.","price":95000,"condition":"USED","images":["https://cdn.example/ads/a.jpg"],"city":"Karachi","category_id":"` + primitive.NewObjectID().Hex() + `"}`

	t.Run("success", func(t *testing.T) {
		adSvc := new(MockAdService)
		r := newAdRouter(adSvc, &userID, false)
		created := &models.Ad{Base: models.Base{ID: primitive.NewObjectID()}, Status: models.AdStatusPending}
		adSvc.On("Create", mock.Anything, userID, mock.MatchedBy(func(in services.AdInput) bool {
			return in.Title == "Honda CD 70 2019" && in.Price == 95000 && len(in.Images) == 1
		}), models.DefaultSiteSettings()).Return(created, nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/v1/ads", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"PENDING"`)
		adSvc.AssertExpectations(t)
	})

	t.Run("validation error", func(t *testing.T) {
		adSvc := new(MockAdService)
		r := newAdRouter(adSvc, &userID, false)
		adSvc.On("Create", mock.Anything, userID, mock.Anything, mock.Anything).
			Return(nil, &services.ValidationError{Fields: map[string]string{"title": "title is too short"}})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/v1/ads", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusBadRequest, w.Code)
		var resp struct {
			Fields map[string]string `json:"fields"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "title is too short", resp.Fields["title"])
	})

	t.Run("unauthenticated", func(t *testing.T) {
		adSvc := new(MockAdService)
		r := newAdRouter(adSvc, nil, false)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/v1/ads", strings.NewReader(body))
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRestAdHandler_ErrorMapping(t *testing.T) {
	userID := primitive.NewObjectID()
	adID := primitive.NewObjectID()
	tests := []struct {
		err  error
		code int
	}{
		{services.ErrNotFound, http.StatusNotFound},
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrUserBanned, http.StatusForbidden},
		{fmt.Errorf("approve: %w", services.ErrAlreadyProcessed), http.StatusConflict},
		{services.ErrConflict, http.StatusConflict},
		{services.ErrInvalidState, http.StatusUnprocessableEntity},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			adSvc := new(MockAdService)
			r := newAdRouter(adSvc, &userID, true)
			adSvc.On("Approve", mock.Anything, adID, userID).Return(nil, tt.err)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/v1/admin/ads/"+adID.Hex()+"/approve", nil)
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestRestAdHandler_Delete_PassesAdminFlag(t *testing.T) {
	adminID := primitive.NewObjectID()
	adID := primitive.NewObjectID()
	adSvc := new(MockAdService)
	r := newAdRouter(adSvc, &adminID, true)
	adSvc.On("Delete", mock.Anything, adID, adminID, true).Return(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/v1/ads/"+adID.Hex(), nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	adSvc.AssertExpectations(t)
}

func TestRestAdHandler_ListMine_StatusFilter(t *testing.T) {
	userID := primitive.NewObjectID()
	adSvc := new(MockAdService)
	r := newAdRouter(adSvc, &userID, false)
	adSvc.On("ListByUser", mock.Anything, userID, models.AdStatusRejected, models.Page{}).
		Return([]models.Ad{}, models.Page{Page: 1, Limit: 20}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/me/ads?status=rejected", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/v1/me/ads?status=unknown", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	adSvc.AssertExpectations(t)
}

func TestRestAdHandler_Reject_OptionalReason(t *testing.T) {
	adminID := primitive.NewObjectID()
	adID := primitive.NewObjectID()
	rejected := &models.Ad{Base: models.Base{ID: adID}, Status: models.AdStatusRejected}

	adSvc := new(MockAdService)
	r := newAdRouter(adSvc, &adminID, true)
	adSvc.On("Reject", mock.Anything, adID, adminID, "").Return(rejected, nil).Once()
	adSvc.On("Reject", mock.Anything, adID, adminID, "Blurry photos").Return(rejected, nil).Once()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/admin/ads/"+adID.Hex()+"/reject", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/v1/admin/ads/"+adID.Hex()+"/reject", strings.NewReader(`{"reason":"  Blurry photos "}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	adSvc.AssertExpectations(t)
}

func TestRestAdHandler_Reject_EmptyBodies(t *testing.T) {
	adminID := primitive.NewObjectID()
	adID := primitive.NewObjectID()
	rejected := &models.Ad{Base: models.Base{ID: adID}, Status: models.AdStatusRejected}

	adSvc := new(MockAdService)
	r := newAdRouter(adSvc, &adminID, true)
	adSvc.On("Reject", mock.Anything, adID, adminID, "").Return(rejected, nil).Times(4)

	path := "/v1/admin/ads/" + adID.Hex() + "/reject"
	nilBody, _ := http.NewRequest("POST", path, nil)
	noBody, _ := http.NewRequest("POST", path, http.NoBody)
	emptyJSON, _ := http.NewRequest("POST", path, strings.NewReader(""))
	emptyJSON.Header.Set("Content-Type", "application/json")
	for _, req := range []*http.Request{nilBody, noBody, emptyJSON, httptest.NewRequest("POST", path, nil)} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, strings.NewReader(`{"reason":`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	adSvc.AssertExpectations(t)
}
