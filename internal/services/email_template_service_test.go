package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pakolx/market/internal/models"
)

func TestEmailTemplateService_SaveTemplateValidation(t *testing.T) {
	svc := NewEmailTemplateService(nil)

	err := svc.SaveTemplate(context.Background(), &models.EmailTemplate{TemplateID: "newsletter", Subject: "Hi", Body: "Hi"})
	ve, ok := IsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "template_id")

	err = svc.SaveTemplate(context.Background(), &models.EmailTemplate{TemplateID: TemplateWelcome, Subject: "{{.Name", Body: ""})
	ve, ok = IsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "subject")
	assert.Equal(t, "body is required", ve.Fields["body"])
}

func TestEmailTemplateService_DefaultsAndOverrides(t *testing.T) {
	database := setupServiceDB(t, "market_test_email_templates")
	svc := NewEmailTemplateService(database)
	ctx := context.Background()

	def, err := svc.GetTemplate(ctx, TemplateAdApproved, "")
	require.NoError(t, err)
	assert.Contains(t, def.Subject, "is live")

	require.NoError(t, svc.SaveTemplate(ctx, &models.EmailTemplate{TemplateID: TemplateAdApproved, Subject: "Approved: {{.AdTitle}}", Body: "ok"}))
	got, err := svc.GetTemplate(ctx, TemplateAdApproved, DefaultLocale)
	require.NoError(t, err)
	assert.Equal(t, "Approved: {{.AdTitle}}", got.Subject)

	require.NoError(t, svc.DeleteTemplate(ctx, TemplateAdApproved, ""))
	got, err = svc.GetTemplate(ctx, TemplateAdApproved, "")
	require.NoError(t, err)
	assert.Equal(t, def.Subject, got.Subject)

	_, err = svc.GetTemplate(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	assert.Len(t, TemplateIDs(), 6)
}
