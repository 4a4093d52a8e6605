package handlers_test

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pakolx/market/internal/api/middleware"
	"pakolx/market/internal/models"
	"pakolx/market/internal/services"
	"pakolx/market/internal/storage"
)

// asUser stands in for AuthMiddleware in handler tests.
func asUser(userID primitive.ObjectID, isAdmin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID.Hex())
		c.Set(middleware.ContextKeyIsAdmin, isAdmin)
		c.Next()
	}
}

// --- Mocks ---

// MockUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) userResult(args mock.Arguments) (*models.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	return m.userResult(m.Called(ctx, in))
}
func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	return m.userResult(m.Called(ctx, email, password))
}
func (m *MockUserService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return m.userResult(m.Called(ctx, userID))
}
func (m *MockUserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.userResult(m.Called(ctx, email))
}
func (m *MockUserService) RequireActive(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return m.userResult(m.Called(ctx, userID))
}
func (m *MockUserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, in services.ProfileInput) (*models.User, error) {
	return m.userResult(m.Called(ctx, userID, in))
}
func (m *MockUserService) ChangePassword(ctx context.Context, userID primitive.ObjectID, currentPassword, newPassword string) error {
	return m.Called(ctx, userID, currentPassword, newPassword).Error(0)
}
func (m *MockUserService) PublicProfile(ctx context.Context, userID primitive.ObjectID) (*models.PublicProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PublicProfile), args.Error(1)
}
func (m *MockUserService) List(ctx context.Context, query string, banned *bool, page models.Page) ([]models.User, models.Page, error) {
	args := m.Called(ctx, query, banned, page)
	users, _ := args.Get(0).([]models.User)
	return users, args.Get(1).(models.Page), args.Error(2)
}
func (m *MockUserService) Ban(ctx context.Context, userID, adminID primitive.ObjectID) error {
	return m.Called(ctx, userID, adminID).Error(0)
}
func (m *MockUserService) Unban(ctx context.Context, userID primitive.ObjectID) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *MockUserService) EnsureAdmin(ctx context.Context, email, password, name string) (*models.User, bool, error) {
	args := m.Called(ctx, email, password, name)
	user, _ := args.Get(0).(*models.User)
	return user, args.Bool(1), args.Error(2)
}

// MockAdService
type MockAdService struct {
	mock.Mock
}

func adResult(args mock.Arguments) (*models.Ad, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ad), args.Error(1)
}

func adsPageResult(args mock.Arguments) ([]models.Ad, models.Page, error) {
	ads, _ := args.Get(0).([]models.Ad)
	return ads, args.Get(1).(models.Page), args.Error(2)
}

func (m *MockAdService) Create(ctx context.Context, userID primitive.ObjectID, in services.AdInput, settings models.SiteSettings) (*models.Ad, error) {
	return adResult(m.Called(ctx, userID, in, settings))
}
func (m *MockAdService) FindByID(ctx context.Context, adID primitive.ObjectID) (*models.Ad, error) {
	return adResult(m.Called(ctx, adID))
}
func (m *MockAdService) FindPublicByID(ctx context.Context, adID primitive.ObjectID) (*models.Ad, error) {
	return adResult(m.Called(ctx, adID))
}
func (m *MockAdService) FindOwned(ctx context.Context, adID, userID primitive.ObjectID) (*models.Ad, error) {
	return adResult(m.Called(ctx, adID, userID))
}
func (m *MockAdService) Update(ctx context.Context, adID, userID primitive.ObjectID, patch services.AdPatch, settings models.SiteSettings) (*models.Ad, error) {
	return adResult(m.Called(ctx, adID, userID, patch, settings))
}
func (m *MockAdService) Delete(ctx context.Context, adID, actorID primitive.ObjectID, isAdmin bool) error {
	return m.Called(ctx, adID, actorID, isAdmin).Error(0)
}
func (m *MockAdService) Search(ctx context.Context, q models.AdSearch) ([]models.Ad, models.Page, error) {
	return adsPageResult(m.Called(ctx, q))
}
func (m *MockAdService) ListByUser(ctx context.Context, userID primitive.ObjectID, status models.AdStatus, page models.Page) ([]models.Ad, models.Page, error) {
	return adsPageResult(m.Called(ctx, userID, status, page))
}
func (m *MockAdService) AdminList(ctx context.Context, status models.AdStatus, page models.Page) ([]models.Ad, models.Page, error) {
	return adsPageResult(m.Called(ctx, status, page))
}
func (m *MockAdService) Approve(ctx context.Context, adID, adminID primitive.ObjectID) (*models.Ad, error) {
	return adResult(m.Called(ctx, adID, adminID))
}
func (m *MockAdService) Reject(ctx context.Context, adID, adminID primitive.ObjectID, reason string) (*models.Ad, error) {
	return adResult(m.Called(ctx, adID, adminID, reason))
}
func (m *MockAdService) RecordView(ctx context.Context, adID primitive.ObjectID, viewerKey string, settings models.SiteSettings) error {
	return m.Called(ctx, adID, viewerKey, settings).Error(0)
}
func (m *MockAdService) Related(ctx context.Context, ad *models.Ad, limit int) ([]models.Ad, error) {
	args := m.Called(ctx, ad, limit)
	ads, _ := args.Get(0).([]models.Ad)
	return ads, args.Error(1)
}

// MockFeatureRequestService
type MockFeatureRequestService struct {
	mock.Mock
}

func featureRequestResult(args mock.Arguments) (*models.FeatureRequest, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FeatureRequest), args.Error(1)
}

func (m *MockFeatureRequestService) Submit(ctx context.Context, userID, adID primitive.ObjectID, screenshotURL string, settings models.SiteSettings) (*models.FeatureRequest, error) {
	return featureRequestResult(m.Called(ctx, userID, adID, screenshotURL, settings))
}
func (m *MockFeatureRequestService) Approve(ctx context.Context, requestID, adminID primitive.ObjectID) (*models.FeatureRequest, error) {
	return featureRequestResult(m.Called(ctx, requestID, adminID))
}
func (m *MockFeatureRequestService) Reject(ctx context.Context, requestID, adminID primitive.ObjectID, reason string) (*models.FeatureRequest, error) {
	return featureRequestResult(m.Called(ctx, requestID, adminID, reason))
}
func (m *MockFeatureRequestService) AdminList(ctx context.Context, status models.RequestStatus, page models.Page) ([]models.FeatureRequest, models.Page, error) {
	args := m.Called(ctx, status, page)
	list, _ := args.Get(0).([]models.FeatureRequest)
	return list, args.Get(1).(models.Page), args.Error(2)
}
func (m *MockFeatureRequestService) ListByUser(ctx context.Context, userID primitive.ObjectID, page models.Page) ([]models.FeatureRequest, models.Page, error) {
	args := m.Called(ctx, userID, page)
	list, _ := args.Get(0).([]models.FeatureRequest)
	return list, args.Get(1).(models.Page), args.Error(2)
}

// MockReportService
type MockReportService struct {
	mock.Mock
}

func reportResult(args mock.Arguments) (*models.Report, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockReportService) Create(ctx context.Context, reporterID, adID primitive.ObjectID, in services.ReportInput) (*models.Report, error) {
	return reportResult(m.Called(ctx, reporterID, adID, in))
}
func (m *MockReportService) List(ctx context.Context, status models.ReportStatus, page models.Page) ([]models.Report, models.Page, error) {
	args := m.Called(ctx, status, page)
	list, _ := args.Get(0).([]models.Report)
	return list, args.Get(1).(models.Page), args.Error(2)
}
func (m *MockReportService) Resolve(ctx context.Context, reportID, adminID primitive.ObjectID, note string) (*models.Report, error) {
	return reportResult(m.Called(ctx, reportID, adminID, note))
}
func (m *MockReportService) Dismiss(ctx context.Context, reportID, adminID primitive.ObjectID, note string) (*models.Report, error) {
	return reportResult(m.Called(ctx, reportID, adminID, note))
}

// MockChatService
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Start(ctx context.Context, buyerID primitive.ObjectID, adID, storeID *primitive.ObjectID, firstMessage string) (*models.Conversation, error) {
	args := m.Called(ctx, buyerID, adID, storeID, firstMessage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}
func (m *MockChatService) Send(ctx context.Context, conversationID, senderID primitive.ObjectID, content string) (*models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}
func (m *MockChatService) ListMessages(ctx context.Context, conversationID, userID primitive.ObjectID, after *primitive.ObjectID) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, userID, after)
	msgs, _ := args.Get(0).([]models.Message)
	return msgs, args.Error(1)
}
func (m *MockChatService) ListConversations(ctx context.Context, userID primitive.ObjectID) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]models.ConversationSummary)
	return list, args.Error(1)
}
func (m *MockChatService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockChatService) MarkSeen(ctx context.Context, conversationID, userID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockStoreService
type MockStoreService struct {
	mock.Mock
}

func storeResult(args mock.Arguments) (*models.Store, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Store), args.Error(1)
}

func (m *MockStoreService) Create(ctx context.Context, ownerID primitive.ObjectID, in services.StoreInput) (*models.Store, error) {
	return storeResult(m.Called(ctx, ownerID, in))
}
func (m *MockStoreService) Update(ctx context.Context, storeID, ownerID primitive.ObjectID, in services.StoreInput) (*models.Store, error) {
	return storeResult(m.Called(ctx, storeID, ownerID, in))
}
func (m *MockStoreService) FindBySlug(ctx context.Context, slug string) (*models.Store, error) {
	return storeResult(m.Called(ctx, slug))
}
func (m *MockStoreService) FindByOwner(ctx context.Context, ownerID primitive.ObjectID) (*models.Store, error) {
	return storeResult(m.Called(ctx, ownerID))
}
func (m *MockStoreService) List(ctx context.Context, query, city string, page models.Page) ([]models.Store, models.Page, error) {
	args := m.Called(ctx, query, city, page)
	list, _ := args.Get(0).([]models.Store)
	return list, args.Get(1).(models.Page), args.Error(2)
}
func (m *MockStoreService) Delete(ctx context.Context, storeID, actorID primitive.ObjectID, isAdmin bool) error {
	return m.Called(ctx, storeID, actorID, isAdmin).Error(0)
}

// MockFavoriteService
type MockFavoriteService struct {
	mock.Mock
}

func (m *MockFavoriteService) Add(ctx context.Context, userID, adID primitive.ObjectID) error {
	return m.Called(ctx, userID, adID).Error(0)
}
func (m *MockFavoriteService) Remove(ctx context.Context, userID, adID primitive.ObjectID) error {
	return m.Called(ctx, userID, adID).Error(0)
}
func (m *MockFavoriteService) List(ctx context.Context, userID primitive.ObjectID) ([]models.Ad, error) {
	args := m.Called(ctx, userID)
	ads, _ := args.Get(0).([]models.Ad)
	return ads, args.Error(1)
}

// MockCategoryService
type MockCategoryService struct {
	mock.Mock
}

func categoryResult(args mock.Arguments) (*models.Category, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCategoryService) List(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]models.Category)
	return list, args.Error(1)
}
func (m *MockCategoryService) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return categoryResult(m.Called(ctx, slug))
}
func (m *MockCategoryService) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	return categoryResult(m.Called(ctx, id))
}
func (m *MockCategoryService) Create(ctx context.Context, in services.CategoryInput, subCategories []models.SubCategory) (*models.Category, error) {
	return categoryResult(m.Called(ctx, in, subCategories))
}
func (m *MockCategoryService) Update(ctx context.Context, id primitive.ObjectID, in services.CategoryInput) (*models.Category, error) {
	return categoryResult(m.Called(ctx, id, in))
}
func (m *MockCategoryService) Delete(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}
func (m *MockCategoryService) AddSubCategory(ctx context.Context, id primitive.ObjectID, name, slug string) (*models.Category, error) {
	return categoryResult(m.Called(ctx, id, name, slug))
}
func (m *MockCategoryService) RemoveSubCategory(ctx context.Context, id primitive.ObjectID, slug string) (*models.Category, error) {
	return categoryResult(m.Called(ctx, id, slug))
}
func (m *MockCategoryService) Ensure(ctx context.Context, category models.Category) (bool, error) {
	args := m.Called(ctx, category)
	return args.Bool(0), args.Error(1)
}

// MockStatsService
type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) Dashboard(ctx context.Context) (*services.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DashboardStats), args.Error(1)
}

// MockConfigService
type MockConfigService struct {
	mock.Mock
}

func (m *MockConfigService) Load(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
func (m *MockConfigService) SubscribeToChanges(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
func (m *MockConfigService) Get(ctx context.Context, key string) (interface{}, error) {
	args := m.Called(ctx, key)
	return args.Get(0), args.Error(1)
}
func (m *MockConfigService) GetInt(ctx context.Context, key string, defaultValue int) int {
	return m.Called(ctx, key, defaultValue).Int(0)
}
func (m *MockConfigService) GetString(ctx context.Context, key string, defaultValue string) string {
	return m.Called(ctx, key, defaultValue).String(0)
}
func (m *MockConfigService) GetBool(ctx context.Context, key string, defaultValue bool) bool {
	return m.Called(ctx, key, defaultValue).Bool(0)
}
func (m *MockConfigService) GetFloat64(ctx context.Context, key string, defaultValue float64) float64 {
	return m.Called(ctx, key, defaultValue).Get(0).(float64)
}
func (m *MockConfigService) Snapshot(ctx context.Context) models.SiteSettings {
	return m.Called(ctx).Get(0).(models.SiteSettings)
}
func (m *MockConfigService) GetAll(ctx context.Context) ([]models.ConfigEntry, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]models.ConfigEntry)
	return list, args.Error(1)
}
func (m *MockConfigService) GetAllPublic(ctx context.Context) (map[string]interface{}, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}
func (m *MockConfigService) SetConfigValue(ctx context.Context, key string, value interface{}, isPublic *bool) (*models.ConfigEntry, error) {
	args := m.Called(ctx, key, value, isPublic)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConfigEntry), args.Error(1)
}
func (m *MockConfigService) EnsureDefaults(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
func (m *MockConfigService) GetBankDetails(ctx context.Context) (*models.BankDetails, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BankDetails), args.Error(1)
}
func (m *MockConfigService) SetBankDetails(ctx context.Context, details *models.BankDetails) (*models.BankDetails, error) {
	args := m.Called(ctx, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BankDetails), args.Error(1)
}
func (m *MockConfigService) EnsureBankDetails(ctx context.Context, details *models.BankDetails) (bool, error) {
	args := m.Called(ctx, details)
	return args.Bool(0), args.Error(1)
}
func (m *MockConfigService) GetRateLimitRule(ctx context.Context, route string) *models.RateLimitRule {
	rule, _ := m.Called(ctx, route).Get(0).(*models.RateLimitRule)
	return rule
}
func (m *MockConfigService) SetRateLimitRule(ctx context.Context, rule *models.RateLimitRule) error {
	return m.Called(ctx, rule).Error(0)
}

// MockS3Storage
type MockS3Storage struct {
	mock.Mock
}

func (m *MockS3Storage) GetObject(ctx context.Context, key string) (io.ReadCloser, string, error) {
	args := m.Called(ctx, key)
	body, _ := args.Get(0).(io.ReadCloser)
	return body, args.String(1), args.Error(2)
}
func (m *MockS3Storage) PutObject(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	return m.Called(ctx, key, contentType, body, size).Error(0)
}
func (m *MockS3Storage) Upload(ctx context.Context, folder, userID, contentType string, body io.Reader, size int64) (*storage.UploadResult, error) {
	args := m.Called(ctx, folder, userID, contentType, body, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.UploadResult), args.Error(1)
}
func (m *MockS3Storage) GeneratePresignedPutURL(ctx context.Context, folder, userID, contentType string, size int64) (*storage.PresignResult, error) {
	args := m.Called(ctx, folder, userID, contentType, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.PresignResult), args.Error(1)
}
func (m *MockS3Storage) DeleteObject(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}
func (m *MockS3Storage) PublicURL(key string) string {
	return m.Called(key).String(0)
}

// MockImageEnqueuer
type MockImageEnqueuer struct {
	mock.Mock
}

func (m *MockImageEnqueuer) EnqueueImageProcess(ctx context.Context, key, contentType string) error {
	return m.Called(ctx, key, contentType).Error(0)
}

// MockEmailTemplateService
type MockEmailTemplateService struct {
	mock.Mock
}

func (m *MockEmailTemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	args := m.Called(ctx, templateID, locale)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailTemplate), args.Error(1)
}
func (m *MockEmailTemplateService) SaveTemplate(ctx context.Context, tmpl *models.EmailTemplate) error {
	return m.Called(ctx, tmpl).Error(0)
}
func (m *MockEmailTemplateService) DeleteTemplate(ctx context.Context, templateID, locale string) error {
	return m.Called(ctx, templateID, locale).Error(0)
}
