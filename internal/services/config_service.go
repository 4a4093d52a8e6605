package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pakolx/market/internal/config"
	"pakolx/market/internal/db"
	"pakolx/market/internal/models"
)

// IConfigService defines the interface for accessing runtime configuration.
type IConfigService interface {
	Load(ctx context.Context) error
	SubscribeToChanges(ctx context.Context) error
	Get(ctx context.Context, key string) (interface{}, error)
	GetInt(ctx context.Context, key string, defaultValue int) int
	GetString(ctx context.Context, key string, defaultValue string) string
	GetBool(ctx context.Context, key string, defaultValue bool) bool
	GetFloat64(ctx context.Context, key string, defaultValue float64) float64
	Snapshot(ctx context.Context) models.SiteSettings
	GetAll(ctx context.Context) ([]models.ConfigEntry, error)
	GetAllPublic(ctx context.Context) (map[string]interface{}, error)
	SetConfigValue(ctx context.Context, key string, value interface{}, isPublic *bool) (*models.ConfigEntry, error)
	EnsureDefaults(ctx context.Context) (int, error)
	GetBankDetails(ctx context.Context) (*models.BankDetails, error)
	SetBankDetails(ctx context.Context, details *models.BankDetails) (*models.BankDetails, error)
	EnsureBankDetails(ctx context.Context, details *models.BankDetails) (bool, error)
	GetRateLimitRule(ctx context.Context, route string) *models.RateLimitRule
	SetRateLimitRule(ctx context.Context, rule *models.RateLimitRule) error
}

const (
	configUpdateChannel = "config_updates"
	bankDetailsID       = "default"
)

type configKind int

const (
	kindFloat configKind = iota
	kindInt
	kindBool
	kindString
)

type configKeySpec struct {
	kind    configKind
	public  bool
	min     float64
	max     float64 // 0 means unbounded
	allowed []string
}

var knownConfigKeys = map[string]configKeySpec{
	models.ConfigFeaturedPrice:        {kind: kindFloat, public: true, min: 0},
	models.ConfigFeaturedDurationDays: {kind: kindInt, public: true, min: 1},
	models.ConfigCommissionPercent:    {kind: kindFloat, min: 0, max: 100},
	models.ConfigCommissionEnabled:    {kind: kindBool},
	models.ConfigSiteName:             {kind: kindString, public: true},
	models.ConfigSupportEmail:         {kind: kindString, public: true},
	models.ConfigSupportPhone:         {kind: kindString, public: true},
	models.ConfigMaxImagesPerAd:       {kind: kindInt, public: true, min: 1},
	models.ConfigViewCountPolicy:      {kind: kindString, allowed: []string{models.ViewPolicyEvery, models.ViewPolicyPerViewer}},
	models.ConfigRemoderateOnEdit:     {kind: kindBool},
}

// configService implements IConfigService.
type configService struct {
	db         *mongo.Database
	cfg        *config.Config
	rdb        *redis.Client
	cache      map[string]interface{}
	rulesCache map[string]*models.RateLimitRule
	mutex      sync.RWMutex
}

// NewConfigService creates a new ConfigService, loads the cache and, when
// Redis is available, starts the change listener.
func NewConfigService(db *mongo.Database, initialCfg *config.Config, rdb *redis.Client) IConfigService {
	s := &configService{
		db:         db,
		cfg:        initialCfg,
		rdb:        rdb,
		cache:      make(map[string]interface{}),
		rulesCache: make(map[string]*models.RateLimitRule),
	}
	if err := s.Load(context.Background()); err != nil {
		log.Warnf("Failed to load initial config from DB: %v. Using defaults", err)
	}
	if rdb != nil {
		go func() {
			if err := s.SubscribeToChanges(context.Background()); err != nil {
				log.Errorf("Config Pub/Sub listener stopped: %v", err)
			}
		}()
	}
	return s
}

// Load fetches all config entries and rate limit rules from DB and replaces the in-memory cache.
func (s *configService) Load(ctx context.Context) error {
	cursor, err := s.db.Collection(db.SiteConfigCollection).Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to query config collection: %w", err)
	}
	defer cursor.Close(ctx)

	newCache := make(map[string]interface{})
	for cursor.Next(ctx) {
		var entry models.ConfigEntry
		if err := cursor.Decode(&entry); err != nil {
			log.Warnf("Failed to decode config entry during load: %v", err)
			continue
		}
		newCache[entry.Key] = entry.Value
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("error iterating config cursor: %w", err)
	}

	newRules := make(map[string]*models.RateLimitRule)
	rulesCursor, err := s.db.Collection(db.RateLimitRulesCollection).Find(ctx, bson.M{})
	if err != nil {
		log.Errorf("Error querying rate limit rules: %v", err)
	} else {
		defer rulesCursor.Close(ctx)
		for rulesCursor.Next(ctx) {
			var rule models.RateLimitRule
			if err := rulesCursor.Decode(&rule); err != nil {
				log.Warnf("Failed to decode rate limit rule during load: %v", err)
				continue
			}
			newRules[rule.Route] = &rule
		}
		if err := rulesCursor.Err(); err != nil {
			log.Errorf("Error iterating rate limit rules cursor: %v", err)
		}
	}

	s.mutex.Lock()
	s.cache = newCache
	s.rulesCache = newRules
	s.mutex.Unlock()

	log.Infof("Loaded %d config entries and %d rate limit rules into cache", len(newCache), len(newRules))
	return nil
}

// SubscribeToChanges reloads the cache on every message on the config channel.
// It returns when ctx is cancelled or the subscription closes.
func (s *configService) SubscribeToChanges(ctx context.Context) error {
	if s.rdb == nil {
		log.Info("Redis client not configured, config changes will not be propagated")
		return nil
	}

	pubsub := s.rdb.Subscribe(ctx, configUpdateChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to receive confirmation from Redis Pub/Sub subscription: %w", err)
	}

	ch := pubsub.Channel()
	log.Infof("Subscribed to Redis channel for config updates: %s", configUpdateChannel)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				log.Info("Config Pub/Sub channel closed")
				return nil
			}
			log.WithField("key", msg.Payload).Debug("Received config update notification")
			if err := s.Load(context.Background()); err != nil {
				log.Errorf("Reloading config after notification failed: %v", err)
			}
		}
	}
}

func (s *configService) publish(ctx context.Context, key string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Publish(ctx, configUpdateChannel, key).Err(); err != nil {
		log.Warnf("Failed to publish config update notification for key '%s': %v", key, err)
	}
}

// Get returns a cached value, falling back to the built-in defaults for known keys.
func (s *configService) Get(ctx context.Context, key string) (interface{}, error) {
	s.mutex.RLock()
	val, exists := s.cache[key]
	s.mutex.RUnlock()
	if exists {
		return val, nil
	}
	if def, ok := s.defaults()[key]; ok {
		return def, nil
	}
	return nil, fmt.Errorf("config key '%s': %w", key, ErrNotFound)
}

func (s *configService) GetString(ctx context.Context, key string, defaultValue string) string {
	val, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	if strVal, ok := val.(string); ok {
		return strVal
	}
	log.Warnf("Config key '%s' is not a string, using default", key)
	return defaultValue
}

func (s *configService) GetInt(ctx context.Context, key string, defaultValue int) int {
	val, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	if f, ok := toFloat(val); ok {
		return int(f)
	}
	log.Warnf("Config key '%s' is not an integer type (%T), using default", key, val)
	return defaultValue
}

func (s *configService) GetBool(ctx context.Context, key string, defaultValue bool) bool {
	val, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	if boolVal, ok := val.(bool); ok {
		return boolVal
	}
	log.Warnf("Config key '%s' is not a boolean, using default", key)
	return defaultValue
}

func (s *configService) GetFloat64(ctx context.Context, key string, defaultValue float64) float64 {
	val, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	if f, ok := toFloat(val); ok {
		return f
	}
	log.Warnf("Config key '%s' is not a numeric type (%T), using default", key, val)
	return defaultValue
}

// Snapshot resolves every known key once. The result is a value and never
// changes under the caller.
func (s *configService) Snapshot(ctx context.Context) models.SiteSettings {
	def := models.DefaultSiteSettings()
	settings := models.SiteSettings{
		SiteName:             s.GetString(ctx, models.ConfigSiteName, s.cfg.AppName),
		SupportEmail:         s.GetString(ctx, models.ConfigSupportEmail, def.SupportEmail),
		SupportPhone:         s.GetString(ctx, models.ConfigSupportPhone, def.SupportPhone),
		FeaturedPrice:        s.GetFloat64(ctx, models.ConfigFeaturedPrice, def.FeaturedPrice),
		FeaturedDurationDays: s.GetInt(ctx, models.ConfigFeaturedDurationDays, def.FeaturedDurationDays),
		CommissionPercent:    s.GetFloat64(ctx, models.ConfigCommissionPercent, def.CommissionPercent),
		CommissionEnabled:    s.GetBool(ctx, models.ConfigCommissionEnabled, def.CommissionEnabled),
		MaxImagesPerAd:       s.GetInt(ctx, models.ConfigMaxImagesPerAd, def.MaxImagesPerAd),
		ViewCountPolicy:      s.GetString(ctx, models.ConfigViewCountPolicy, def.ViewCountPolicy),
		RemoderateOnEdit:     s.GetBool(ctx, models.ConfigRemoderateOnEdit, def.RemoderateOnEdit),
	}
	if settings.SiteName == "" {
		settings.SiteName = def.SiteName
	}
	return settings
}

// GetAll returns every stored entry, for the admin panel.
func (s *configService) GetAll(ctx context.Context) ([]models.ConfigEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "key", Value: 1}})
	cursor, err := s.db.Collection(db.SiteConfigCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query config: %w", err)
	}
	entries := []models.ConfigEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode config entries: %w", err)
	}
	return entries, nil
}

// GetAllPublic retrieves all configuration parameters marked as public.
// Known public keys missing from the DB are filled from defaults.
func (s *configService) GetAllPublic(ctx context.Context) (map[string]interface{}, error) {
	publicConfig := map[string]interface{}{}
	cursor, err := s.db.Collection(db.SiteConfigCollection).Find(ctx, bson.M{"public": true})
	if err != nil {
		return nil, fmt.Errorf("failed to query public config from DB: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var entry models.ConfigEntry
		if err := cursor.Decode(&entry); err != nil {
			log.Warnf("Failed to decode public config entry: %v", err)
			continue
		}
		publicConfig[entry.Key] = entry.Value
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating public config cursor: %w", err)
	}

	defaults := s.defaults()
	for key, spec := range knownConfigKeys {
		if _, exists := publicConfig[key]; !exists && spec.public {
			publicConfig[key] = defaults[key]
		}
	}
	if name, _ := publicConfig[models.ConfigSiteName].(string); name == "" {
		publicConfig[models.ConfigSiteName] = s.cfg.AppName
	}
	return publicConfig, nil
}

// SetConfigValue type-checks known keys, upserts the entry and publishes an update.
// isPublic nil keeps the key's default visibility.
func (s *configService) SetConfigValue(ctx context.Context, key string, value interface{}, isPublic *bool) (*models.ConfigEntry, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fieldError("key", "key is required")
	}
	normalized, err := normalizeConfigValue(key, value)
	if err != nil {
		return nil, err
	}
	public := knownConfigKeys[key].public
	if isPublic != nil {
		public = *isPublic
	}

	entry := &models.ConfigEntry{Key: key, Value: normalized, Public: public, UpdatedAt: time.Now().UTC()}
	_, err = s.db.Collection(db.SiteConfigCollection).UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": entry},
		options.Update().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert config key '%s' in DB: %w", key, err)
	}

	s.mutex.Lock()
	s.cache[key] = normalized
	s.mutex.Unlock()
	s.publish(ctx, key)

	log.WithField("key", key).Info("Updated config key")
	return entry, nil
}

// EnsureDefaults inserts the default value of every known key that is not stored yet.
func (s *configService) EnsureDefaults(ctx context.Context) (int, error) {
	collection := s.db.Collection(db.SiteConfigCollection)
	inserted := 0
	now := time.Now().UTC()
	for key, value := range s.defaults() {
		entry := models.ConfigEntry{Key: key, Value: value, Public: knownConfigKeys[key].public, UpdatedAt: now}
		result, err := collection.UpdateOne(ctx,
			bson.M{"key": key},
			bson.M{"$setOnInsert": entry},
			options.Update().SetUpsert(true))
		if err != nil {
			return inserted, fmt.Errorf("failed to seed config key '%s': %w", key, err)
		}
		if result.UpsertedCount > 0 {
			inserted++
		}
	}
	if inserted > 0 {
		if err := s.Load(ctx); err != nil {
			return inserted, err
		}
		s.publish(ctx, "*")
	}
	return inserted, nil
}

// GetBankDetails returns the bank transfer instructions.
func (s *configService) GetBankDetails(ctx context.Context) (*models.BankDetails, error) {
	var details models.BankDetails
	err := s.db.Collection(db.BankDetailsCollection).FindOne(ctx, bson.M{"_id": bankDetailsID}).Decode(&details)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load bank details: %w", err)
	}
	return &details, nil
}

func validateBankDetails(details *models.BankDetails) error {
	details.BankName = strings.TrimSpace(details.BankName)
	details.AccountTitle = strings.TrimSpace(details.AccountTitle)
	details.AccountNumber = strings.TrimSpace(details.AccountNumber)
	details.IBAN = strings.TrimSpace(details.IBAN)
	details.Branch = strings.TrimSpace(details.Branch)
	details.Instructions = strings.TrimSpace(details.Instructions)
	if fields := structErrors(details); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// SetBankDetails replaces the singleton.
func (s *configService) SetBankDetails(ctx context.Context, details *models.BankDetails) (*models.BankDetails, error) {
	if err := validateBankDetails(details); err != nil {
		return nil, err
	}
	details.UpdatedAt = time.Now().UTC()
	_, err := s.db.Collection(db.BankDetailsCollection).UpdateOne(ctx,
		bson.M{"_id": bankDetailsID},
		bson.M{"$set": details},
		options.Update().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("failed to save bank details: %w", err)
	}
	return details, nil
}

// EnsureBankDetails stores details only when none exist yet.
func (s *configService) EnsureBankDetails(ctx context.Context, details *models.BankDetails) (bool, error) {
	if err := validateBankDetails(details); err != nil {
		return false, err
	}
	details.UpdatedAt = time.Now().UTC()
	result, err := s.db.Collection(db.BankDetailsCollection).UpdateOne(ctx,
		bson.M{"_id": bankDetailsID},
		bson.M{"$setOnInsert": details},
		options.Update().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("failed to seed bank details: %w", err)
	}
	return result.UpsertedCount > 0, nil
}

// GetRateLimitRule returns the override for route, or nil when the defaults apply.
func (s *configService) GetRateLimitRule(ctx context.Context, route string) *models.RateLimitRule {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.rulesCache[route]
}

// SetRateLimitRule upserts a route override and publishes an update.
func (s *configService) SetRateLimitRule(ctx context.Context, rule *models.RateLimitRule) error {
	if strings.TrimSpace(rule.Route) == "" {
		return fieldError("route", "route is required")
	}
	_, err := s.db.Collection(db.RateLimitRulesCollection).UpdateOne(ctx,
		bson.M{"route": rule.Route},
		bson.M{"$set": rule},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert rate limit rule for %s: %w", rule.Route, err)
	}
	s.mutex.Lock()
	s.rulesCache[rule.Route] = rule
	s.mutex.Unlock()
	s.publish(ctx, "rate_limit:"+rule.Route)
	return nil
}

// defaults are the built-in values with the site name taken from the environment.
func (s *configService) defaults() map[string]interface{} {
	values := defaultConfigValues()
	if s.cfg != nil && s.cfg.AppName != "" {
		values[models.ConfigSiteName] = s.cfg.AppName
	}
	return values
}

func defaultConfigValues() map[string]interface{} {
	def := models.DefaultSiteSettings()
	return map[string]interface{}{
		models.ConfigFeaturedPrice:        def.FeaturedPrice,
		models.ConfigFeaturedDurationDays: int64(def.FeaturedDurationDays),
		models.ConfigCommissionPercent:    def.CommissionPercent,
		models.ConfigCommissionEnabled:    def.CommissionEnabled,
		models.ConfigSiteName:             def.SiteName,
		models.ConfigSupportEmail:         def.SupportEmail,
		models.ConfigSupportPhone:         def.SupportPhone,
		models.ConfigMaxImagesPerAd:       int64(def.MaxImagesPerAd),
		models.ConfigViewCountPolicy:      def.ViewCountPolicy,
		models.ConfigRemoderateOnEdit:     def.RemoderateOnEdit,
	}
}

// normalizeConfigValue checks the type of a known key and converts JSON numbers
// to the stored representation. Unknown keys are stored as given.
func normalizeConfigValue(key string, value interface{}) (interface{}, error) {
	spec, known := knownConfigKeys[key]
	if !known {
		if value == nil {
			return nil, fieldError("value", "value is required")
		}
		return value, nil
	}
	switch spec.kind {
	case kindFloat, kindInt:
		f, ok := toFloat(value)
		if !ok {
			return nil, fieldError("value", key+" must be a number")
		}
		if f < spec.min {
			return nil, fieldError("value", fmt.Sprintf("%s must be at least %v", key, spec.min))
		}
		if spec.max != 0 && f > spec.max {
			return nil, fieldError("value", fmt.Sprintf("%s must be at most %v", key, spec.max))
		}
		if spec.kind == kindInt {
			if f != math.Trunc(f) {
				return nil, fieldError("value", key+" must be a whole number")
			}
			return int64(f), nil
		}
		return f, nil
	case kindBool:
		b, ok := value.(bool)
		if !ok {
			return nil, fieldError("value", key+" must be a boolean")
		}
		return b, nil
	default:
		str, ok := value.(string)
		if !ok {
			return nil, fieldError("value", key+" must be a string")
		}
		str = strings.TrimSpace(str)
		if len(spec.allowed) > 0 {
			for _, a := range spec.allowed {
				if str == a {
					return str, nil
				}
			}
			return nil, fieldError("value", key+" must be one of "+strings.Join(spec.allowed, ", "))
		}
		return str, nil
	}
}

// toFloat accepts the numeric types produced by the BSON and JSON decoders.
func toFloat(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
