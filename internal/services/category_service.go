package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pakolx/market/internal/db"
	"pakolx/market/internal/models"
	"pakolx/market/internal/utils"
)

// CategoryInput is the admin payload for a category.
type CategoryInput struct {
	Name  string `json:"name" validate:"min=2,max=60"`
	Slug  string `json:"slug" validate:"max=60"`
	Icon  string `json:"icon" validate:"max=60"`
	Order int    `json:"order"`
}

// ICategoryService manages the ad taxonomy.
type ICategoryService interface {
	List(ctx context.Context) ([]models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
	Create(ctx context.Context, in CategoryInput, subCategories []models.SubCategory) (*models.Category, error)
	Update(ctx context.Context, id primitive.ObjectID, in CategoryInput) (*models.Category, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddSubCategory(ctx context.Context, id primitive.ObjectID, name, slug string) (*models.Category, error)
	RemoveSubCategory(ctx context.Context, id primitive.ObjectID, slug string) (*models.Category, error)
	Ensure(ctx context.Context, category models.Category) (bool, error)
}

type categoryService struct {
	db *mongo.Database
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(db *mongo.Database) ICategoryService {
	return &categoryService{db: db}
}

func (s *categoryService) collection() *mongo.Collection {
	return s.db.Collection(db.CategoriesCollection)
}

func (s *categoryService) List(ctx context.Context) ([]models.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := s.collection().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	categories := []models.Category{}
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return categories, nil
}

func (s *categoryService) findOne(ctx context.Context, filter bson.M) (*models.Category, error) {
	var category models.Category
	if err := s.collection().FindOne(ctx, filter).Decode(&category); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding category: %w", err)
	}
	return &category, nil
}

func (s *categoryService) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return s.findOne(ctx, bson.M{"slug": strings.ToLower(strings.TrimSpace(slug))})
}

func (s *categoryService) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func normalizeCategoryInput(in *CategoryInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Icon = strings.TrimSpace(in.Icon)
	in.Slug = utils.Slugify(in.Slug)
	if in.Slug == "" {
		in.Slug = utils.Slugify(in.Name)
	}
	if fields := structErrors(in); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	if in.Slug == "" {
		return fieldError("slug", "slug is required")
	}
	return nil
}

// Create inserts a category. Duplicate slugs return ErrConflict.
func (s *categoryService) Create(ctx context.Context, in CategoryInput, subCategories []models.SubCategory) (*models.Category, error) {
	if err := normalizeCategoryInput(&in); err != nil {
		return nil, err
	}
	subs, err := normalizeSubCategories(subCategories)
	if err != nil {
		return nil, err
	}
	category := &models.Category{Name: in.Name, Slug: in.Slug, Icon: in.Icon, Order: in.Order, SubCategories: subs}
	category.GenIDIfEmpty()
	if _, err := s.collection().InsertOne(ctx, category); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, fmt.Errorf("category slug %s: %w", in.Slug, ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert category %s: %w", in.Slug, err)
	}
	return category, nil
}

func normalizeSubCategories(in []models.SubCategory) ([]models.SubCategory, error) {
	out := make([]models.SubCategory, 0, len(in))
	seen := map[string]bool{}
	for _, sc := range in {
		name := strings.TrimSpace(sc.Name)
		slug := utils.Slugify(sc.Slug)
		if slug == "" {
			slug = utils.Slugify(name)
		}
		if name == "" || slug == "" {
			return nil, fieldError("sub_categories", "subcategory name is required")
		}
		if seen[slug] {
			return nil, fieldError("sub_categories", "duplicate subcategory "+slug)
		}
		seen[slug] = true
		out = append(out, models.SubCategory{Name: name, Slug: slug})
	}
	return out, nil
}

func (s *categoryService) Update(ctx context.Context, id primitive.ObjectID, in CategoryInput) (*models.Category, error) {
	if err := normalizeCategoryInput(&in); err != nil {
		return nil, err
	}
	update := bson.M{"$set": bson.M{"name": in.Name, "slug": in.Slug, "icon": in.Icon, "order": in.Order}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Category
	err := s.collection().FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if db.IsMongoDuplicateKeyError(err) {
			return nil, fmt.Errorf("category slug %s: %w", in.Slug, ErrConflict)
		}
		return nil, fmt.Errorf("failed to update category %s: %w", id.Hex(), err)
	}
	return &updated, nil
}

// Delete removes a category that no ad references.
func (s *categoryService) Delete(ctx context.Context, id primitive.ObjectID) error {
	inUse, err := s.db.Collection(db.AdsCollection).CountDocuments(ctx, bson.M{"category_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check ads of category %s: %w", id.Hex(), err)
	}
	if inUse > 0 {
		return fmt.Errorf("category %s is used by ads: %w", id.Hex(), ErrConflict)
	}
	result, err := s.collection().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete category %s: %w", id.Hex(), err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddSubCategory appends a subcategory; the slug must be unique within the category.
func (s *categoryService) AddSubCategory(ctx context.Context, id primitive.ObjectID, name, slug string) (*models.Category, error) {
	subs, err := normalizeSubCategories([]models.SubCategory{{Name: name, Slug: slug}})
	if err != nil {
		return nil, err
	}
	sub := subs[0]
	filter := bson.M{"_id": id, "sub_categories.slug": bson.M{"$ne": sub.Slug}}
	update := bson.M{"$push": bson.M{"sub_categories": sub}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Category
	err = s.collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if _, errCheck := s.FindByID(ctx, id); errCheck != nil {
				return nil, errCheck
			}
			return nil, fmt.Errorf("subcategory %s: %w", sub.Slug, ErrConflict)
		}
		return nil, fmt.Errorf("failed to add subcategory to %s: %w", id.Hex(), err)
	}
	return &updated, nil
}

// RemoveSubCategory removes a subcategory no ad references.
func (s *categoryService) RemoveSubCategory(ctx context.Context, id primitive.ObjectID, slug string) (*models.Category, error) {
	inUse, err := s.db.Collection(db.AdsCollection).CountDocuments(ctx,
		bson.M{"category_id": id, "sub_category": slug}, options.Count().SetLimit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to check ads of subcategory %s: %w", slug, err)
	}
	if inUse > 0 {
		return nil, fmt.Errorf("subcategory %s is used by ads: %w", slug, ErrConflict)
	}

	filter := bson.M{"_id": id, "sub_categories.slug": slug}
	update := bson.M{"$pull": bson.M{"sub_categories": bson.M{"slug": slug}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Category
	if err := s.collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to remove subcategory %s: %w", slug, err)
	}
	return &updated, nil
}

// Ensure inserts the category when its slug is not taken. Used by the seed.
func (s *categoryService) Ensure(ctx context.Context, category models.Category) (bool, error) {
	category.GenIDIfEmpty()
	result, err := s.collection().UpdateOne(ctx,
		bson.M{"slug": category.Slug},
		bson.M{"$setOnInsert": category},
		options.Update().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("failed to seed category %s: %w", category.Slug, err)
	}
	if result.UpsertedCount > 0 {
		log.WithField("slug", category.Slug).Info("Seeded category")
		return true, nil
	}
	return false, nil
}
