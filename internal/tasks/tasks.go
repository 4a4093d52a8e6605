package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"pakolx/market/internal/config"
	"pakolx/market/internal/email"
	"pakolx/market/internal/metrics"
	"pakolx/market/internal/models"
	"pakolx/market/internal/services"
	"pakolx/market/internal/storage"
)

// Task types.
const (
	TypeEmailDelivery = "email:deliver"
	TypeImageProcess  = "image:process"
)

// Queues.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
	QueueImages   = "images"
)

const (
	emailMaxRetry = 5
	imageMaxRetry = 3
	jpegQuality   = 85
)

// RedisOpt converts a go-redis client into asynq connection options.
func RedisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(RedisOpt(rdb))
}

// IAsynqClient is the part of *asynq.Client used for enqueuing.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EmailTaskPayload is the payload of TypeEmailDelivery.
type EmailTaskPayload struct {
	To         string                 `json:"to"`
	TemplateID string                 `json:"template_id"`
	Locale     string                 `json:"locale,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// ImageTaskPayload is the payload of TypeImageProcess.
type ImageTaskPayload struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
}

// Enqueuer puts notification and image tasks on their queues.
// It satisfies services.Notifier.
type Enqueuer struct {
	client IAsynqClient
}

var _ services.Notifier = (*Enqueuer)(nil)

func NewEnqueuer(client IAsynqClient) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) Notify(ctx context.Context, to string, templateID string, data map[string]interface{}) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("notify %s: empty recipient", templateID)
	}
	payload, err := json.Marshal(EmailTaskPayload{
		To:         to,
		TemplateID: templateID,
		Locale:     services.DefaultLocale,
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}
	info, err := e.client.EnqueueContext(ctx, asynq.NewTask(TypeEmailDelivery, payload),
		asynq.Queue(QueueDefault), asynq.MaxRetry(emailMaxRetry))
	if err != nil {
		return fmt.Errorf("failed to enqueue %s email: %w", templateID, err)
	}
	log.WithFields(log.Fields{"task_id": info.ID, "template": templateID}).Debug("Email task enqueued")
	return nil
}

// EnqueueImageProcess schedules normalisation of an uploaded raster image.
func (e *Enqueuer) EnqueueImageProcess(ctx context.Context, key, contentType string) error {
	payload, err := json.Marshal(ImageTaskPayload{Key: key, ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to marshal image payload: %w", err)
	}
	info, err := e.client.EnqueueContext(ctx, asynq.NewTask(TypeImageProcess, payload),
		asynq.Queue(QueueImages), asynq.MaxRetry(imageMaxRetry), asynq.Timeout(2*time.Minute))
	if err != nil {
		return fmt.Errorf("failed to enqueue image task for %s: %w", key, err)
	}
	log.WithFields(log.Fields{"task_id": info.ID, "key": key}).Debug("Image task enqueued")
	return nil
}

// TemplateSource resolves e-mail templates.
type TemplateSource interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
}

// SettingsSource provides the current site settings.
type SettingsSource interface {
	Snapshot(ctx context.Context) models.SiteSettings
}

// TaskProcessor holds the dependencies of the task handlers.
type TaskProcessor struct {
	cfg         *config.Config
	emailSender email.Sender
	templates   TemplateSource
	settings    SettingsSource
	objects     storage.ObjectStore
}

func NewTaskProcessor(cfg *config.Config, emailSender email.Sender, templates TemplateSource, settings SettingsSource, objects storage.ObjectStore) *TaskProcessor {
	return &TaskProcessor{
		cfg:         cfg,
		emailSender: emailSender,
		templates:   templates,
		settings:    settings,
		objects:     objects,
	}
}

// SetupServer builds the asynq server and registers the handlers of the
// requested worker roles. It returns nil when no role is enabled.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, bgWorker, imageWorker bool) (*asynq.Server, *asynq.ServeMux) {
	if !bgWorker && !imageWorker {
		return nil, nil
	}

	queues := map[string]int{}
	if bgWorker {
		queues[QueueCritical] = 6
		queues[QueueDefault] = 3
		queues[QueueLow] = 1
	}
	if imageWorker {
		queues[QueueImages] = 5
	}

	srv := asynq.NewServer(RedisOpt(rdb), asynq.Config{
		Queues: queues,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			log.WithError(err).WithFields(log.Fields{
				"type":      task.Type(),
				"retried":   retried,
				"max_retry": maxRetry,
			}).Error("Task failed")
		}),
	})

	mux := asynq.NewServeMux()
	if bgWorker {
		mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
		log.Info("Registered background task handlers")
	}
	if imageWorker {
		mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
		log.Info("Registered image task handlers")
	}
	return srv, mux
}

// HandleEmailDeliveryTask renders a template and sends the message.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) (err error) {
	defer func() { metrics.RecordTask(TypeEmailDelivery, err) }()

	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" || payload.TemplateID == "" {
		return fmt.Errorf("email task without recipient or template: %w", asynq.SkipRetry)
	}

	tmpl, err := p.templates.GetTemplate(ctx, payload.TemplateID, payload.Locale)
	if err != nil {
		if errors.Is(err, services.ErrTemplateNotFound) {
			return fmt.Errorf("template %s/%s: %v: %w", payload.TemplateID, payload.Locale, err, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to load template %s: %w", payload.TemplateID, err)
	}

	data := p.templateData(ctx, payload.Data)
	subject, err := render(payload.TemplateID+":subject", tmpl.Subject, data)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	body, err := render(payload.TemplateID+":body", tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	to := []string{payload.To}
	raw := email.BuildMessage(p.cfg.SmtpFromAddress, to, subject, payload.TemplateID, body)
	if err := p.emailSender.Send(ctx, to, subject, raw); err != nil {
		return fmt.Errorf("failed to send %s email: %w", payload.TemplateID, err)
	}
	log.WithFields(log.Fields{"to": payload.To, "template": payload.TemplateID}).Info("Email sent")
	return nil
}

func (p *TaskProcessor) templateData(ctx context.Context, in map[string]interface{}) map[string]interface{} {
	data := make(map[string]interface{}, len(in)+2)
	for k, v := range in {
		data[k] = v
	}
	siteName := p.cfg.AppName
	if p.settings != nil {
		if name := p.settings.Snapshot(ctx).SiteName; name != "" {
			siteName = name
		}
	}
	data["SiteName"] = siteName
	data["BaseURL"] = p.cfg.PublicBaseURL
	return data
}

func render(name, source string, data map[string]interface{}) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(source)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}

// HandleImageProcessTask downsizes an uploaded image in place so that its
// longest side is at most IMAGE_MAX_DIMENSION. The key, and thus the public
// URL, stays the same.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) (err error) {
	defer func() { metrics.RecordTask(TypeImageProcess, err) }()

	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Key == "" {
		return fmt.Errorf("image task without key: %w", asynq.SkipRetry)
	}
	logger := log.WithField("key", payload.Key)

	reader, contentType, err := p.objects.GetObject(ctx, payload.Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrStorageUnavailable) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	defer reader.Close()

	limit := p.cfg.ImageMaxSizeBytes()
	raw, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return fmt.Errorf("failed to read object %s: %w", payload.Key, err)
	}
	if int64(len(raw)) > limit {
		return fmt.Errorf("object %s exceeds %d bytes: %w", payload.Key, limit, asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to decode image %s: %v: %w", payload.Key, err, asynq.SkipRetry)
	}

	maxDim := p.cfg.ImageMaxDimension
	bounds := img.Bounds()
	if maxDim <= 0 || (bounds.Dx() <= maxDim && bounds.Dy() <= maxDim) {
		logger.Debug("Image within limits, nothing to do")
		return nil
	}

	resized := resize.Thumbnail(uint(maxDim), uint(maxDim), img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := encode(&buf, resized, format); err != nil {
		return fmt.Errorf("failed to encode image %s: %v: %w", payload.Key, err, asynq.SkipRetry)
	}
	if contentType == "" {
		contentType = payload.ContentType
	}
	if err := p.objects.PutObject(ctx, payload.Key, contentType, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		return err
	}

	logger.WithFields(log.Fields{
		"from": fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()),
		"to":   fmt.Sprintf("%dx%d", resized.Bounds().Dx(), resized.Bounds().Dy()),
	}).Info("Image resized")
	return nil
}

// encode writes img in the format it was decoded from.
func encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "gif":
		return gif.Encode(w, img, nil)
	default:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	}
}
