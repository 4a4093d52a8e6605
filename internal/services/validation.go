package services

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their JSON names so messages match the request body.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// AdInput is the editable part of an ad as submitted by its owner.
type AdInput struct {
	Title       string   `json:"title" validate:"min=10,max=120"`
	Description string   `json:"description" validate:"min=20,max=5000"`
	Price       float64  `json:"price" validate:"gt=0"`
	Condition   string   `json:"condition" validate:"oneof=NEW USED"`
	Images      []string `json:"images" validate:"min=1,dive,required"`
	City        string   `json:"city" validate:"required"`
	Area        string   `json:"area" validate:"max=100"`
	CategoryID  string   `json:"category_id" validate:"required"`
	SubCategory string   `json:"sub_category"`
	Phone       string   `json:"phone" validate:"max=30"`
}

// Normalize trims the free-text fields in place.
func (in *AdInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.City = strings.TrimSpace(in.City)
	in.Area = strings.TrimSpace(in.Area)
	in.SubCategory = strings.TrimSpace(in.SubCategory)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Condition = strings.ToUpper(strings.TrimSpace(in.Condition))
}

// ValidateAdInput checks the ad fields. maxImages <= 0 disables the image cap.
func ValidateAdInput(in *AdInput, maxImages int) error {
	in.Normalize()
	fields := structErrors(in)
	if maxImages > 0 && len(in.Images) > maxImages {
		if _, exists := fields["images"]; !exists {
			fields["images"] = fmt.Sprintf("at most %d images allowed", maxImages)
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// StoreInput is the editable part of a store.
type StoreInput struct {
	Name        string `json:"name" validate:"min=3,max=80"`
	Description string `json:"description" validate:"max=2000"`
	LogoURL     string `json:"logo_url" validate:"omitempty,url"`
	BannerURL   string `json:"banner_url" validate:"omitempty,url"`
	City        string `json:"city" validate:"max=100"`
	Phone       string `json:"phone" validate:"max=30"`
}

// ValidateStoreInput trims and checks store fields.
func ValidateStoreInput(in *StoreInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.City = strings.TrimSpace(in.City)
	in.Phone = strings.TrimSpace(in.Phone)
	if fields := structErrors(in); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ReportInput is a user's complaint about an ad.
type ReportInput struct {
	Reason      string `json:"reason" validate:"oneof=SPAM FRAUD INAPPROPRIATE DUPLICATE OTHER"`
	Description string `json:"description" validate:"max=1000"`
}

// ValidateReportInput checks the report reason and description.
func ValidateReportInput(in *ReportInput) error {
	in.Reason = strings.ToUpper(strings.TrimSpace(in.Reason))
	in.Description = strings.TrimSpace(in.Description)
	if fields := structErrors(in); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// RegisterInput is the payload of the register method.
type RegisterInput struct {
	Name     string `json:"name" validate:"min=2,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Phone    string `json:"phone" validate:"max=30"`
	City     string `json:"city" validate:"max=100"`
}

// ProfileInput holds the user-editable profile fields.
type ProfileInput struct {
	Name      *string `json:"name" validate:"omitempty,min=2,max=80"`
	Phone     *string `json:"phone" validate:"omitempty,max=30"`
	City      *string `json:"city" validate:"omitempty,max=100"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

const maxMessageLength = 2000

// ValidateMessageContent trims and checks a chat message body.
func ValidateMessageContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fieldError("content", "message is empty")
	}
	if len([]rune(content)) > maxMessageLength {
		return "", fieldError("content", "message too long")
	}
	return content, nil
}

// structErrors runs the struct validator and translates its errors to per-field messages.
func structErrors(s interface{}) map[string]string {
	fields := map[string]string{}
	err := getValidator().Struct(s)
	if err == nil {
		return fields
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		fields["_"] = err.Error()
		return fields
	}
	for _, fe := range validationErrors {
		name := topLevelField(fe)
		if _, exists := fields[name]; exists {
			continue
		}
		fields[name] = messageFor(name, fe)
	}
	return fields
}

// topLevelField maps "AdInput.images[2]" to "images".
func topLevelField(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	if i := strings.IndexAny(ns, ".["); i >= 0 {
		ns = ns[:i]
	}
	return ns
}

func messageFor(field string, fe validator.FieldError) string {
	isSlice := fe.Kind() == reflect.Slice
	switch fe.Tag() {
	case "required":
		if strings.Contains(fe.Namespace(), "[") {
			return field + " contains an empty entry"
		}
		return field + " is required"
	case "min":
		if isSlice {
			if fe.Param() == "1" {
				return "at least one image required"
			}
			return fmt.Sprintf("at least %s %s required", fe.Param(), field)
		}
		return field + " too short"
	case "max":
		if isSlice {
			return "too many " + field
		}
		return field + " too long"
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "oneof":
		return field + " must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "email":
		return "invalid email"
	case "url":
		return field + " must be a URL"
	default:
		return field + " is invalid"
	}
}
