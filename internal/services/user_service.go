package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pakolx/market/internal/auth"
	"pakolx/market/internal/config"
	"pakolx/market/internal/db"
	"pakolx/market/internal/models"
)

// IUserService defines the interface for user-related operations.
// This allows for easier mocking in tests.
type IUserService interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	RequireActive(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, in ProfileInput) (*models.User, error)
	ChangePassword(ctx context.Context, userID primitive.ObjectID, currentPassword, newPassword string) error
	PublicProfile(ctx context.Context, userID primitive.ObjectID) (*models.PublicProfile, error)
	List(ctx context.Context, query string, banned *bool, page models.Page) ([]models.User, models.Page, error)
	Ban(ctx context.Context, userID, adminID primitive.ObjectID) error
	Unban(ctx context.Context, userID primitive.ObjectID) error
	EnsureAdmin(ctx context.Context, email, password, name string) (*models.User, bool, error)
}

// userService implements IUserService.
type userService struct {
	db       *mongo.Database
	cfg      *config.Config
	notifier Notifier
}

// NewUserService creates a new UserService. notifier may be nil.
func NewUserService(db *mongo.Database, cfg *config.Config, notifier Notifier) IUserService {
	return &userService{db: db, cfg: cfg, notifier: notifier}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) checkPassword(field, password string) error {
	if err := auth.CheckPasswordPolicy(password, s.cfg.PasswordMinLength); err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return fieldError(field, fmt.Sprintf("password must be at least %d characters", s.cfg.PasswordMinLength))
		}
		return fieldError(field, err.Error())
	}
	return nil
}

// Register creates a USER account.
func (s *userService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	fields := structErrors(&in)
	if _, exists := fields["password"]; !exists {
		if err := s.checkPassword("password", in.Password); err != nil {
			fields["password"] = err.(*ValidationError).Fields["password"]
		}
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		City:         strings.TrimSpace(in.City),
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	user.GenIDIfEmpty()
	user.Touch(now)

	if _, err := s.db.Collection(db.UsersCollection).InsertOne(ctx, user); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to insert user %s: %w", in.Email, err)
	}

	log.WithField("user_id", user.ID.Hex()).Info("Registered new user")
	notifyUser(ctx, s.db, s.notifier, user.ID, TemplateWelcome, nil)
	return user, nil
}

// Authenticate checks credentials. Banned users are refused with ErrUserBanned.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if user.IsBanned {
		return nil, ErrUserBanned
	}
	return user, nil
}

// FindByID finds a user by id, banned or not.
func (s *userService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.db.Collection(db.UsersCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding user by ID %s: %w", userID.Hex(), err)
	}
	return &user, nil
}

// FindByEmail finds a user by (case-insensitive) email address.
func (s *userService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	email = normalizeEmail(email)
	err := s.db.Collection(db.UsersCollection).FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding user by email %s: %w", email, err)
	}
	return &user, nil
}

// RequireActive loads the user and fails with ErrUserBanned when they are banned.
// Every write path goes through it.
func (s *userService) RequireActive(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return requireActiveUser(ctx, s.db, userID)
}

func requireActiveUser(ctx context.Context, database *mongo.Database, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := database.Collection(db.UsersCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error loading user %s: %w", userID.Hex(), err)
	}
	if user.IsBanned {
		return nil, ErrUserBanned
	}
	return &user, nil
}

// UpdateProfile sets the provided profile fields.
func (s *userService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, in ProfileInput) (*models.User, error) {
	if _, err := s.RequireActive(ctx, userID); err != nil {
		return nil, err
	}
	if fields := structErrors(&in); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if in.Name != nil {
		set["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		set["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.City != nil {
		set["city"] = strings.TrimSpace(*in.City)
	}
	if in.AvatarURL != nil {
		set["avatar_url"] = strings.TrimSpace(*in.AvatarURL)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.User
	err := s.db.Collection(db.UsersCollection).FindOneAndUpdate(ctx, bson.M{"_id": userID}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update profile of %s: %w", userID.Hex(), err)
	}
	return &updated, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *userService) ChangePassword(ctx context.Context, userID primitive.ObjectID, currentPassword, newPassword string) error {
	user, err := s.RequireActive(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return fieldError("current_password", "current password is incorrect")
	}
	if err := s.checkPassword("new_password", newPassword); err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	_, err = s.db.Collection(db.UsersCollection).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"password": hash, "updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to change password for %s: %w", userID.Hex(), err)
	}
	return nil
}

// PublicProfile returns the public view of a non-banned user.
func (s *userService) PublicProfile(ctx context.Context, userID primitive.ObjectID) (*models.PublicProfile, error) {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsBanned {
		return nil, ErrNotFound
	}
	count, err := s.db.Collection(db.AdsCollection).CountDocuments(ctx, bson.M{
		"user_id":     userID,
		"is_approved": true,
		"status":      models.AdStatusApproved,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count ads of %s: %w", userID.Hex(), err)
	}
	return &models.PublicProfile{
		ID:         user.ID.Hex(),
		Name:       user.Name,
		City:       user.City,
		AvatarURL:  user.AvatarURL,
		MemberFrom: user.CreatedAt,
		AdCount:    count,
	}, nil
}

// List returns users for the admin panel, newest first.
func (s *userService) List(ctx context.Context, query string, banned *bool, page models.Page) ([]models.User, models.Page, error) {
	page = normalizePage(page.Page, page.Limit)
	filter := bson.M{}
	if q := strings.TrimSpace(query); q != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
		filter["$or"] = bson.A{bson.M{"email": pattern}, bson.M{"name": pattern}}
	}
	if banned != nil {
		filter["is_banned"] = *banned
	}

	collection := s.db.Collection(db.UsersCollection)
	total, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, page, fmt.Errorf("failed to count users: %w", err)
	}
	page.Total = total

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, page, fmt.Errorf("failed to list users: %w", err)
	}
	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, page, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, page, nil
}

// Ban blocks a user. Admins cannot be banned, including by themselves.
func (s *userService) Ban(ctx context.Context, userID, adminID primitive.ObjectID) error {
	if userID == adminID {
		return fmt.Errorf("cannot ban yourself: %w", ErrForbidden)
	}
	now := time.Now().UTC()
	filter := bson.M{"_id": userID, "role": bson.M{"$ne": models.RoleAdmin}}
	update := bson.M{"$set": bson.M{"is_banned": true, "banned_at": now, "updated_at": now}}

	result, err := s.db.Collection(db.UsersCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error banning user %s: %w", userID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		user, errCheck := s.FindByID(ctx, userID)
		if errCheck != nil {
			return errCheck
		}
		if user.IsAdmin() {
			return fmt.Errorf("user %s is an admin: %w", userID.Hex(), ErrForbidden)
		}
		return fmt.Errorf("user %s could not be banned", userID.Hex())
	}
	log.WithFields(log.Fields{"user_id": userID.Hex(), "admin_id": adminID.Hex()}).Info("User banned")
	return nil
}

// Unban lifts a ban.
func (s *userService) Unban(ctx context.Context, userID primitive.ObjectID) error {
	update := bson.M{
		"$set":   bson.M{"is_banned": false, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"banned_at": ""},
	}
	result, err := s.db.Collection(db.UsersCollection).UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("db error unbanning user %s: %w", userID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureAdmin creates the admin account if no user holds the email yet.
// It reports whether the account was created; an existing account is left untouched.
func (s *userService) EnsureAdmin(ctx context.Context, email, password, name string) (*models.User, bool, error) {
	email = normalizeEmail(email)
	if existing, err := s.FindByEmail(ctx, email); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, false, err
	}
	now := time.Now().UTC()
	admin := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	admin.GenIDIfEmpty()
	admin.Touch(now)

	_, err = s.db.Collection(db.UsersCollection).UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$setOnInsert": admin},
		options.Update().SetUpsert(true))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create admin %s: %w", email, err)
	}
	created, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	return created, created.ID == admin.ID, nil
}

// bannedUserIDs lists the ids of banned users, used to hide their content.
func bannedUserIDs(ctx context.Context, database *mongo.Database) ([]primitive.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := database.Collection(db.UsersCollection).Find(ctx, bson.M{"is_banned": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query banned users: %w", err)
	}
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode banned users: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}
