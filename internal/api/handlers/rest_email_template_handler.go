package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pakolx/market/internal/models"
	"pakolx/market/internal/services"
)

// RestEmailTemplateHandler lets admins override the notification emails.
type RestEmailTemplateHandler struct {
	templateService services.IEmailTemplateService
}

func NewRestEmailTemplateHandler(templateService services.IEmailTemplateService) *RestEmailTemplateHandler {
	return &RestEmailTemplateHandler{templateService: templateService}
}

type templateBody struct {
	Locale  string `json:"locale"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// List handles GET /v1/admin/email-templates
func (h *RestEmailTemplateHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": services.TemplateIDs()})
}

// Get handles GET /v1/admin/email-templates/:id?locale=
// Without a stored override the built-in default is returned.
func (h *RestEmailTemplateHandler) Get(c *gin.Context) {
	tmpl, err := h.templateService.GetTemplate(c.Request.Context(), c.Param("id"), c.Query("locale"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// Save handles PUT /v1/admin/email-templates/:id
func (h *RestEmailTemplateHandler) Save(c *gin.Context) {
	var body templateBody
	if !bindJSON(c, &body) {
		return
	}
	tmpl := &models.EmailTemplate{
		TemplateID: c.Param("id"),
		Locale:     body.Locale,
		Subject:    body.Subject,
		Body:       body.Body,
	}
	if err := h.templateService.SaveTemplate(c.Request.Context(), tmpl); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// Reset handles DELETE /v1/admin/email-templates/:id?locale=
func (h *RestEmailTemplateHandler) Reset(c *gin.Context) {
	if err := h.templateService.DeleteTemplate(c.Request.Context(), c.Param("id"), c.Query("locale")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
