package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pakolx/market/internal/api/handlers"
	"pakolx/market/internal/auth"
	"pakolx/market/internal/config"
	"pakolx/market/internal/models"
	"pakolx/market/internal/services"
)

// --- Test Setup ---

func setupTestRouter(userService services.IUserService) (*gin.Engine, *config.Config) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		JwtSecret: "testsecret",
		JwtTTL:    time.Hour,
		AppName:   "TestApp",
	}
	handler := handlers.NewJsonApiHandler(cfg, userService)
	r := gin.New()
	r.POST("/v1/api", handler.HandleRequest)
	return r, cfg
}

func callApi(t *testing.T, router *gin.Engine, method string, args interface{}, token string) handlers.JsonApiResponse {
	t.Helper()
	reqBody := map[string]interface{}{"method": method}
	if args != nil {
		reqBody["arguments"] = args
	}
	jsonBody, _ := json.Marshal(reqBody)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/api", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.JsonApiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func testToken(t *testing.T, cfg *config.Config, userID primitive.ObjectID, isAdmin bool) string {
	t.Helper()
	token, err := auth.GenerateJWT(userID, isAdmin, cfg.JwtSecret, cfg.JwtTTL)
	require.NoError(t, err)
	return token
}

// --- Tests ---

func TestJsonApiHandler_Ping(t *testing.T) {
	router, _ := setupTestRouter(new(MockUserService))
	resp := callApi(t, router, "ping", nil, "")
	assert.True(t, resp.Success)
	assert.Equal(t, "pong", resp.Data)
	assert.Empty(t, resp.Error)
}

func TestJsonApiHandler_UnknownMethodAndBadJSON(t *testing.T) {
	router, _ := setupTestRouter(new(MockUserService))
	resp := callApi(t, router, "dropDatabase", nil, "")
	assert.False(t, resp.Success)
	assert.Equal(t, "Unknown method: dropDatabase", resp.Error)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/api", bytes.NewBufferString("{not json"))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid JSON request format")
}

func TestJsonApiHandler_Register_Success(t *testing.T) {
	mockUserSvc := new(MockUserService)
	router, cfg := setupTestRouter(mockUserSvc)

	in := services.RegisterInput{Name: "Bilal", Email: "bilal@example.com", Password: "s3cretpass", City: "Multan"}
	user := &models.User{Base: models.Base{ID: primitive.NewObjectID()}, Name: "Bilal", Email: "bilal@example.com", Role: models.RoleUser}
	mockUserSvc.On("Register", mock.Anything, in).Return(user, nil)

	resp := callApi(t, router, "register", []interface{}{in}, "")
	require.True(t, resp.Success, resp.Error)

	data := resp.Data.(map[string]interface{})
	claims, err := auth.ValidateJWT(data["token"].(string), cfg.JwtSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.False(t, claims.IsAdmin)
	assert.NotContains(t, data["user"], "password_hash")
	mockUserSvc.AssertExpectations(t)
}

func TestJsonApiHandler_Register_Failures(t *testing.T) {
	mockUserSvc := new(MockUserService)
	router, _ := setupTestRouter(mockUserSvc)
	mockUserSvc.On("Register", mock.Anything, mock.MatchedBy(func(in services.RegisterInput) bool { return in.Email == "taken@example.com" })).
		Return(nil, services.ErrEmailExists)
	mockUserSvc.On("Register", mock.Anything, mock.MatchedBy(func(in services.RegisterInput) bool { return in.Email == "bad" })).
		Return(nil, &services.ValidationError{Fields: map[string]string{"email": "email is invalid"}})

	resp := callApi(t, router, "register", []interface{}{map[string]string{"email": "taken@example.com"}}, "")
	assert.False(t, resp.Success)
	assert.Equal(t, "email_taken", resp.Error)

	resp = callApi(t, router, "register", []interface{}{map[string]string{"email": "bad"}}, "")
	assert.False(t, resp.Success)
	assert.Equal(t, "validation_failed", resp.Error)
	assert.Equal(t, "email is invalid", resp.Fields["email"])

	resp = callApi(t, router, "register", []interface{}{}, "")
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "array is empty")
}

func TestJsonApiHandler_Login(t *testing.T) {
	mockUserSvc := new(MockUserService)
	router, cfg := setupTestRouter(mockUserSvc)

	admin := &models.User{Base: models.Base{ID: primitive.NewObjectID()}, Email: "admin@example.com", Role: models.RoleAdmin}
	mockUserSvc.On("Authenticate", mock.Anything, "admin@example.com", "correct-horse").Return(admin, nil)
	mockUserSvc.On("Authenticate", mock.Anything, "admin@example.com", "wrong").Return(nil, services.ErrInvalidCredentials)
	mockUserSvc.On("Authenticate", mock.Anything, "banned@example.com", "correct-horse").Return(nil, services.ErrUserBanned)

	resp := callApi(t, router, "login", []interface{}{handlers.LoginArgs{Email: "admin@example.com", Password: "correct-horse"}}, "")
	require.True(t, resp.Success, resp.Error)
	token := resp.Data.(map[string]interface{})["token"].(string)
	claims, err := auth.ValidateJWT(token, cfg.JwtSecret)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)

	resp = callApi(t, router, "login", []interface{}{handlers.LoginArgs{Email: "admin@example.com", Password: "wrong"}}, "")
	assert.False(t, resp.Success)
	assert.Equal(t, "invalid_credentials", resp.Error)

	resp = callApi(t, router, "login", []interface{}{handlers.LoginArgs{Email: "banned@example.com", Password: "correct-horse"}}, "")
	assert.False(t, resp.Success)
	assert.Equal(t, "account_banned", resp.Error)

	resp = callApi(t, router, "login", []interface{}{handlers.LoginArgs{}}, "")
	assert.Equal(t, "invalid_credentials", resp.Error)
	mockUserSvc.AssertExpectations(t)
}

func TestJsonApiHandler_RefreshToken(t *testing.T) {
	mockUserSvc := new(MockUserService)
	router, cfg := setupTestRouter(mockUserSvc)
	userID := primitive.NewObjectID()

	t.Run("success picks up role change", func(t *testing.T) {
		mockUserSvc.On("RequireActive", mock.Anything, userID).
			Return(&models.User{Base: models.Base{ID: userID}, Role: models.RoleAdmin}, nil).Once()
		resp := callApi(t, router, "refreshToken", nil, testToken(t, cfg, userID, false))
		require.True(t, resp.Success, resp.Error)
		claims, err := auth.ValidateJWT(resp.Data.(string), cfg.JwtSecret)
		require.NoError(t, err)
		assert.True(t, claims.IsAdmin)
	})

	t.Run("banned", func(t *testing.T) {
		mockUserSvc.On("RequireActive", mock.Anything, userID).Return(nil, services.ErrUserBanned).Once()
		resp := callApi(t, router, "refreshToken", nil, testToken(t, cfg, userID, false))
		assert.False(t, resp.Success)
		assert.Equal(t, "account_banned", resp.Error)
	})

	t.Run("no auth header", func(t *testing.T) {
		resp := callApi(t, router, "refreshToken", nil, "")
		assert.False(t, resp.Success)
		assert.Equal(t, "Authorization header required", resp.Error)
	})

	t.Run("invalid token", func(t *testing.T) {
		resp := callApi(t, router, "refreshToken", nil, "not.a.jwt")
		assert.False(t, resp.Success)
		assert.Equal(t, "Invalid or expired token", resp.Error)
	})
	mockUserSvc.AssertExpectations(t)
}

func TestJsonApiHandler_Me(t *testing.T) {
	mockUserSvc := new(MockUserService)
	router, cfg := setupTestRouter(mockUserSvc)
	userID := primitive.NewObjectID()
	mockUserSvc.On("FindByID", mock.Anything, userID).
		Return(&models.User{Base: models.Base{ID: userID}, Name: "Sana", PasswordHash: "hash"}, nil)

	resp := callApi(t, router, "me", nil, testToken(t, cfg, userID, false))
	require.True(t, resp.Success, resp.Error)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "Sana", data["name"])
	assert.NotContains(t, data, "password_hash")
	mockUserSvc.AssertExpectations(t)
}

func TestJsonApiHandler_ChangePassword(t *testing.T) {
	mockUserSvc := new(MockUserService)
	router, cfg := setupTestRouter(mockUserSvc)
	userID := primitive.NewObjectID()
	token := testToken(t, cfg, userID, false)

	mockUserSvc.On("ChangePassword", mock.Anything, userID, "old-password", "new-password").Return(nil)
	mockUserSvc.On("ChangePassword", mock.Anything, userID, "guess", "new-password").
		Return(&services.ValidationError{Fields: map[string]string{"current_password": "current password is incorrect"}})
	mockUserSvc.On("ChangePassword", mock.Anything, userID, "old-password", "x").
		Return(&services.ValidationError{Fields: map[string]string{"new_password": "password is too short"}})

	resp := callApi(t, router, "changePassword", []string{"old-password", "new-password"}, token)
	assert.True(t, resp.Success)
	assert.Equal(t, true, resp.Data)

	resp = callApi(t, router, "changePassword", []string{"guess", "new-password"}, token)
	assert.True(t, resp.Success)
	assert.Equal(t, false, resp.Data)

	resp = callApi(t, router, "changePassword", []string{"old-password", "x"}, token)
	assert.False(t, resp.Success)
	assert.Equal(t, "password is too short", resp.Fields["new_password"])

	resp = callApi(t, router, "changePassword", []string{"only-one"}, token)
	assert.False(t, resp.Success)
	mockUserSvc.AssertExpectations(t)
}

func TestJsonApiHandler_UpdateProfile(t *testing.T) {
	mockUserSvc := new(MockUserService)
	router, cfg := setupTestRouter(mockUserSvc)
	userID := primitive.NewObjectID()

	mockUserSvc.On("UpdateProfile", mock.Anything, userID, mock.MatchedBy(func(in services.ProfileInput) bool {
		return in.City != nil && *in.City == "Quetta" && in.Name == nil
	})).Return(&models.User{Base: models.Base{ID: userID}, City: "Quetta"}, nil)

	resp := callApi(t, router, "updateProfile", []interface{}{map[string]string{"city": "Quetta"}}, testToken(t, cfg, userID, false))
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "Quetta", resp.Data.(map[string]interface{})["city"])

	resp = callApi(t, router, "updateProfile", []interface{}{map[string]string{"city": "Quetta"}}, "")
	assert.False(t, resp.Success)
	mockUserSvc.AssertExpectations(t)
}
