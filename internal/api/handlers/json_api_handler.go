package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pakolx/market/internal/auth"
	"pakolx/market/internal/config"
	"pakolx/market/internal/models"
	"pakolx/market/internal/services"
)

type authContextKey string

const authResultKey authContextKey = "authResult"

func getAuthFromContext(ctx context.Context) (*AuthResult, bool) {
	val, ok := ctx.Value(authResultKey).(*AuthResult)
	return val, ok
}

// JsonApiRequest defines the expected structure for JSON API requests.
type JsonApiRequest struct {
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// JsonApiResponse defines the structure for JSON API responses.
type JsonApiResponse struct {
	Success bool              `json:"success"`
	Data    interface{}       `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type apiMethodFunc func(c *gin.Context, args json.RawMessage) (interface{}, *ApiError)

// ApiError is a method failure reported inside the response envelope.
type ApiError struct {
	Message string
	Fields  map[string]string
}

func (e *ApiError) Error() string {
	return e.Message
}

func NewApiError(message string) *ApiError {
	return &ApiError{Message: message}
}

// JsonApiHandler dispatches account methods posted to /v1/api.
type JsonApiHandler struct {
	cfg         *config.Config
	userService services.IUserService
	methods     map[string]apiMethodFunc
}

// NewJsonApiHandler creates a new handler for the JSON API endpoint.
func NewJsonApiHandler(cfg *config.Config, userService services.IUserService) *JsonApiHandler {
	h := &JsonApiHandler{cfg: cfg, userService: userService}
	h.methods = map[string]apiMethodFunc{
		"ping":           h.ping,
		"register":       h.register,
		"login":          h.login,
		"refreshToken":   h.refreshToken,
		"me":             h.me,
		"changePassword": h.changePassword,
		"updateProfile":  h.updateProfile,
	}
	return h
}

// HandleRequest is the main entry point for POST /v1/api
func (h *JsonApiHandler) HandleRequest(c *gin.Context) {
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.sendErrorResponse(c, NewApiError("Failed to read request body"))
		return
	}

	var req JsonApiRequest
	if err := json.Unmarshal(bodyBytes, &req); err != nil {
		h.sendErrorResponse(c, NewApiError("Invalid JSON request format"))
		return
	}

	handlerFunc, ok := h.methods[req.Method]
	if !ok {
		h.sendErrorResponse(c, NewApiError(fmt.Sprintf("Unknown method: %s", req.Method)))
		return
	}

	if authErr := h.checkAuthForMethod(c, req.Method); authErr != nil {
		h.sendErrorResponse(c, authErr)
		return
	}

	result, apiErr := handlerFunc(c, req.Arguments)
	if apiErr != nil {
		h.sendErrorResponse(c, apiErr)
		return
	}
	h.sendSuccessResponse(c, result)
}

// AuthResult holds the caller identity for the current request.
type AuthResult struct {
	UserID  *primitive.ObjectID
	IsAdmin bool
}

func (h *JsonApiHandler) checkAuthForMethod(c *gin.Context, method string) *ApiError {
	authRes := &AuthResult{}
	authHeader := c.GetHeader("Authorization")

	if !h.methodRequiresAuth(method) {
		// Public methods still pick up a valid token if one is sent.
		if strings.HasPrefix(authHeader, "Bearer ") {
			claims, err := auth.ValidateJWT(strings.TrimPrefix(authHeader, "Bearer "), h.cfg.JwtSecret)
			if err == nil {
				if userID, idErr := claims.ObjectID(); idErr == nil {
					authRes = &AuthResult{UserID: &userID, IsAdmin: claims.IsAdmin}
				}
			} else {
				log.Debugf("Ignoring invalid optional token for method %s: %v", method, err)
			}
		}
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), authResultKey, authRes))
		return nil
	}

	if authHeader == "" {
		return NewApiError("Authorization header required")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return NewApiError("Authorization header format must be Bearer {token}")
	}
	claims, err := auth.ValidateJWT(parts[1], h.cfg.JwtSecret)
	if err != nil {
		log.Debugf("Token validation failed for method %s: %v", method, err)
		return NewApiError("Invalid or expired token")
	}
	userID, err := claims.ObjectID()
	if err != nil {
		log.Errorf("Invalid user id %q in valid JWT for method %s", claims.UserID, method)
		return NewApiError("Internal error")
	}

	authRes = &AuthResult{UserID: &userID, IsAdmin: claims.IsAdmin}
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), authResultKey, authRes))
	return nil
}

func (h *JsonApiHandler) methodRequiresAuth(method string) bool {
	switch method {
	case "refreshToken", "me", "changePassword", "updateProfile":
		return true
	default:
		return false
	}
}

func (h *JsonApiHandler) sendSuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, JsonApiResponse{Success: true, Data: data})
}

func (h *JsonApiHandler) sendErrorResponse(c *gin.Context, apiErr *ApiError) {
	c.JSON(http.StatusOK, JsonApiResponse{Success: false, Error: apiErr.Message, Fields: apiErr.Fields})
}

// serviceError converts a service failure into an envelope error.
func serviceError(err error, fallback string) *ApiError {
	if ve, ok := services.IsValidationError(err); ok {
		return &ApiError{Message: "validation_failed", Fields: ve.Fields}
	}
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return NewApiError("invalid_credentials")
	case errors.Is(err, services.ErrUserBanned):
		return NewApiError("account_banned")
	case errors.Is(err, services.ErrEmailExists):
		return NewApiError("email_taken")
	case errors.Is(err, services.ErrNotFound):
		return NewApiError("not_found")
	}
	log.Errorf("%s: %v", fallback, err)
	return NewApiError(fallback)
}

func (h *JsonApiHandler) ping(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	return "pong", nil
}

// SessionResult is returned by register and login.
type SessionResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *JsonApiHandler) issueSession(user *models.User) (*SessionResult, *ApiError) {
	token, err := auth.GenerateJWT(user.ID, user.IsAdmin(), h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		log.Errorf("Failed to generate JWT for user %s: %v", user.ID.Hex(), err)
		return nil, NewApiError("Failed to create session token")
	}
	return &SessionResult{Token: token, User: user}, nil
}

func (h *JsonApiHandler) register(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var in services.RegisterInput
	if apiErr := h.parseRequiredSingleArgFromArray(args, &in); apiErr != nil {
		return nil, apiErr
	}
	user, err := h.userService.Register(c.Request.Context(), in)
	if err != nil {
		return nil, serviceError(err, "Failed to register")
	}
	log.Infof("Registered user %s", user.ID.Hex())
	return h.issueSession(user)
}

// LoginArgs are the arguments of the login method.
type LoginArgs struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *JsonApiHandler) login(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs LoginArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	if strings.TrimSpace(reqArgs.Email) == "" || reqArgs.Password == "" {
		return nil, NewApiError("invalid_credentials")
	}
	user, err := h.userService.Authenticate(c.Request.Context(), reqArgs.Email, reqArgs.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) || errors.Is(err, services.ErrUserBanned) {
			log.Infof("Login attempt failed for %s: %v", reqArgs.Email, err)
		}
		return nil, serviceError(err, "Failed to log in")
	}
	return h.issueSession(user)
}

func (h *JsonApiHandler) refreshToken(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	authInfo, ok := getAuthFromContext(c.Request.Context())
	if !ok || authInfo.UserID == nil {
		return nil, NewApiError("Authentication required for refreshToken")
	}
	// Reload so a ban or role change takes effect on refresh.
	user, err := h.userService.RequireActive(c.Request.Context(), *authInfo.UserID)
	if err != nil {
		return nil, serviceError(err, "Failed to refresh session token")
	}
	newToken, err := auth.GenerateJWT(user.ID, user.IsAdmin(), h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		log.Errorf("Failed to generate refreshed JWT for user %s: %v", user.ID.Hex(), err)
		return nil, NewApiError("Failed to refresh session token")
	}
	return newToken, nil
}

func (h *JsonApiHandler) me(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	authInfo, ok := getAuthFromContext(c.Request.Context())
	if !ok || authInfo.UserID == nil {
		return nil, NewApiError("Authentication required")
	}
	user, err := h.userService.FindByID(c.Request.Context(), *authInfo.UserID)
	if err != nil {
		return nil, serviceError(err, "Failed to retrieve user")
	}
	return user, nil
}

// changePassword takes ["current", "new"] and returns false when the
// current password does not match.
func (h *JsonApiHandler) changePassword(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	authInfo, ok := getAuthFromContext(c.Request.Context())
	if !ok || authInfo.UserID == nil {
		return nil, NewApiError("Authentication required to change password")
	}
	var passwords []string
	if err := json.Unmarshal(args, &passwords); err != nil {
		return nil, NewApiError("Invalid arguments: expected array of two strings [current_password, new_password]")
	}
	if len(passwords) != 2 {
		return nil, NewApiError("Expected array with exactly 2 elements: [current_password, new_password]")
	}

	err := h.userService.ChangePassword(c.Request.Context(), *authInfo.UserID, passwords[0], passwords[1])
	if err != nil {
		if ve, isVE := services.IsValidationError(err); isVE {
			if _, wrongCurrent := ve.Fields["current_password"]; wrongCurrent {
				return false, nil
			}
		}
		return nil, serviceError(err, "Failed to update password")
	}
	return true, nil
}

func (h *JsonApiHandler) updateProfile(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	authInfo, ok := getAuthFromContext(c.Request.Context())
	if !ok || authInfo.UserID == nil {
		return nil, NewApiError("Authentication required")
	}
	var in services.ProfileInput
	if apiErr := h.parseRequiredSingleArgFromArray(args, &in); apiErr != nil {
		return nil, apiErr
	}
	user, err := h.userService.UpdateProfile(c.Request.Context(), *authInfo.UserID, in)
	if err != nil {
		return nil, serviceError(err, "Failed to update profile")
	}
	return user, nil
}

// parseRequiredSingleArgFromArray expects 'arguments' to be a JSON array and
// unmarshals its first element into targetVarPtr.
func (h *JsonApiHandler) parseRequiredSingleArgFromArray(rawArgPayload json.RawMessage, targetVarPtr interface{}) *ApiError {
	if rawArgPayload == nil {
		return NewApiError("Missing 'arguments' field; expected a JSON array with one argument.")
	}
	var argArray []json.RawMessage
	if err := json.Unmarshal(rawArgPayload, &argArray); err != nil {
		return NewApiError("Invalid 'arguments': expected a JSON array.")
	}
	if len(argArray) == 0 {
		return NewApiError("Invalid 'arguments': array is empty, but one argument is expected.")
	}
	if err := json.Unmarshal(argArray[0], targetVarPtr); err != nil {
		return NewApiError("Invalid format for argument: the first element in 'arguments' array has unexpected structure.")
	}
	return nil
}
