package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"pakolx/market/internal/config"
	"pakolx/market/internal/metrics"
	"pakolx/market/internal/storage"
)

const sniffLen = 512

// ImageEnqueuer schedules normalisation of uploaded images.
type ImageEnqueuer interface {
	EnqueueImageProcess(ctx context.Context, key, contentType string) error
}

// RestUploadHandler stores user files in S3.
type RestUploadHandler struct {
	cfg      *config.Config
	storage  storage.IS3Storage
	enqueuer ImageEnqueuer
}

// NewRestUploadHandler creates a new RestUploadHandler.
func NewRestUploadHandler(cfg *config.Config, store storage.IS3Storage, enqueuer ImageEnqueuer) *RestUploadHandler {
	return &RestUploadHandler{cfg: cfg, storage: store, enqueuer: enqueuer}
}

// Upload handles POST /v1/upload (multipart: file, folder).
func (h *RestUploadHandler) Upload(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	maxBytes := h.cfg.ImageMaxSizeBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	folder := strings.ToLower(strings.TrimSpace(c.PostForm("folder")))
	if fileHeader.Size > maxBytes {
		respondError(c, storage.ErrFileTooLarge)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload"})
		return
	}
	defer file.Close()

	// Sniff the type from the leading bytes.
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload"})
		return
	}
	head = head[:n]
	contentType := http.DetectContentType(head)

	ctx := c.Request.Context()
	result, err := h.storage.Upload(ctx, folder, userID.Hex(), contentType, io.MultiReader(bytes.NewReader(head), file), fileHeader.Size)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.RecordUpload(folder)

	if h.enqueuer != nil && storage.IsRaster(contentType) {
		if err := h.enqueuer.EnqueueImageProcess(ctx, result.Key, contentType); err != nil {
			log.WithError(err).WithField("key", result.Key).Warn("Failed to enqueue image processing")
		}
	}
	c.JSON(http.StatusCreated, result)
}

type presignBody struct {
	Folder      string `json:"folder"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Presign handles POST /v1/upload/presign for direct browser uploads.
func (h *RestUploadHandler) Presign(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var body presignBody
	if !bindJSON(c, &body) {
		return
	}
	result, err := h.storage.GeneratePresignedPutURL(c.Request.Context(), body.Folder, userID.Hex(), body.ContentType, body.Size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
