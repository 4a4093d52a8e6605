package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pakolx/market/internal/db"
	"pakolx/market/internal/models"
)

// DefaultLocale is used when a template is requested without a locale.
const DefaultLocale = "en-US"

// Default email templates used as fallback when not found in database.
// Bodies are text/template sources; SiteName and BaseURL are always provided.
var defaultEmailTemplates = map[string]models.EmailTemplate{
	TemplateWelcome: {
		TemplateID: TemplateWelcome,
		Locale:     DefaultLocale,
		Subject:    "Welcome to {{.SiteName}}",
		Body:       "Hi {{.Name}},\n\nyour account is ready. Post your first ad at {{.BaseURL}}/post.\n",
	},
	TemplateAdApproved: {
		TemplateID: TemplateAdApproved,
		Locale:     DefaultLocale,
		Subject:    "Your ad \"{{.AdTitle}}\" is live",
		Body:       "Hi {{.Name}},\n\nyour ad \"{{.AdTitle}}\" was approved and is now visible: {{.BaseURL}}/ads/{{.AdID}}\n",
	},
	TemplateAdRejected: {
		TemplateID: TemplateAdRejected,
		Locale:     DefaultLocale,
		Subject:    "Your ad \"{{.AdTitle}}\" was not approved",
		Body:       "Hi {{.Name}},\n\nyour ad \"{{.AdTitle}}\" was not approved.{{if .Reason}}\nReason: {{.Reason}}{{end}}\n",
	},
	TemplateFeatureApproved: {
		TemplateID: TemplateFeatureApproved,
		Locale:     DefaultLocale,
		Subject:    "Your ad is now featured",
		Body:       "Hi {{.Name}},\n\nwe received your payment. Your ad is featured until {{.FeaturedUntil}}: {{.BaseURL}}/ads/{{.AdID}}\n",
	},
	TemplateFeatureRejected: {
		TemplateID: TemplateFeatureRejected,
		Locale:     DefaultLocale,
		Subject:    "Your feature request was rejected",
		Body:       "Hi {{.Name}},\n\nyour feature request for {{.BaseURL}}/ads/{{.AdID}} was rejected.\nReason: {{.Reason}}\n",
	},
	TemplateReportResolved: {
		TemplateID: TemplateReportResolved,
		Locale:     DefaultLocale,
		Subject:    "Your report was reviewed",
		Body:       "Hi {{.Name}},\n\nthank you for your report. Our team reviewed it and took action.{{if .Note}}\n{{.Note}}{{end}}\n",
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
	SaveTemplate(ctx context.Context, tmpl *models.EmailTemplate) error
	DeleteTemplate(ctx context.Context, templateID, locale string) error
}

// ErrTemplateNotFound is returned when neither the DB nor the defaults know a template.
var ErrTemplateNotFound = errors.New("email template not found")

// EmailTemplateService handles operations related to email templates
type EmailTemplateService struct {
	db *mongo.Database
}

// NewEmailTemplateService creates a new instance of EmailTemplateService
func NewEmailTemplateService(db *mongo.Database) *EmailTemplateService {
	return &EmailTemplateService{db: db}
}

// GetTemplate retrieves an email template by ID and locale, falling back to the built-in default.
func (s *EmailTemplateService) GetTemplate(ctx context.Context, templateID string, locale string) (*models.EmailTemplate, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	filter := bson.M{"template_id": templateID, "locale": locale}

	var tmpl models.EmailTemplate
	err := s.db.Collection(db.EmailTemplatesCollection).FindOne(ctx, filter).Decode(&tmpl)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if defaultTemplate, ok := defaultEmailTemplates[templateID]; ok {
				return &defaultTemplate, nil
			}
			return nil, fmt.Errorf("%s (locale: %s): %w", templateID, locale, ErrTemplateNotFound)
		}
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}
	return &tmpl, nil
}

// SaveTemplate stores an override for one of the built-in templates. Subject
// and body must parse as text/template.
func (s *EmailTemplateService) SaveTemplate(ctx context.Context, tmpl *models.EmailTemplate) error {
	if tmpl.Locale == "" {
		tmpl.Locale = DefaultLocale
	}
	fields := map[string]string{}
	if _, ok := defaultEmailTemplates[tmpl.TemplateID]; !ok {
		fields["template_id"] = "unknown template"
	}
	if strings.TrimSpace(tmpl.Subject) == "" {
		fields["subject"] = "subject is required"
	} else if _, err := template.New("subject").Parse(tmpl.Subject); err != nil {
		fields["subject"] = err.Error()
	}
	if strings.TrimSpace(tmpl.Body) == "" {
		fields["body"] = "body is required"
	} else if _, err := template.New("body").Parse(tmpl.Body); err != nil {
		fields["body"] = err.Error()
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	filter := bson.M{"template_id": tmpl.TemplateID, "locale": tmpl.Locale}
	update := bson.M{"$set": bson.M{
		"template_id": tmpl.TemplateID,
		"locale":      tmpl.Locale,
		"subject":     tmpl.Subject,
		"body":        tmpl.Body,
	}}
	_, err := s.db.Collection(db.EmailTemplatesCollection).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}
	return nil
}

// TemplateIDs lists the templates that can be overridden.
func TemplateIDs() []string {
	ids := make([]string, 0, len(defaultEmailTemplates))
	for id := range defaultEmailTemplates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DeleteTemplate deletes an email template from the database, restoring the default.
func (s *EmailTemplateService) DeleteTemplate(ctx context.Context, templateID string, locale string) error {
	if locale == "" {
		locale = DefaultLocale
	}
	filter := bson.M{"template_id": templateID, "locale": locale}
	if _, err := s.db.Collection(db.EmailTemplatesCollection).DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("error deleting template: %w", err)
	}
	return nil
}
