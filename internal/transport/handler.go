package transport

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"time"

	"go-detection-viewer/internal/config"
	apperrors "go-detection-viewer/internal/errors"
	"go-detection-viewer/internal/logger"
	"go-detection-viewer/internal/service"
	"go-detection-viewer/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const version = "1.0.0"

// detectRoute is where the detection output root is served from
const detectRoute = "/runs/detect"

//go:embed templates/*.html
var templatesFS embed.FS

// MetricsSource exposes the counters reported by /health
type MetricsSource interface {
	GetMetrics() map[string]interface{}
}

func NewHandler(svc service.DetectionService, metrics MetricsSource, cfg *config.Config) http.Handler {
	r := gin.New()
	r.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	r.Use(
		requestID(),
		accessLogger(),
		recovery(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
	)

	r.GET("/hi", introPage)
	r.GET("/", uploadForm)
	r.POST("/", uploadImage(svc, cfg))
	r.GET("/uploads/:filename", displayResult(cfg))
	r.GET("/health", healthCheck(metrics))

	r.Static("/static", cfg.StaticDir)
	r.Static(detectRoute, cfg.DetectProject)

	return r
}

func introPage(c *gin.Context) {
	c.HTML(http.StatusOK, "intropage.html", nil)
}

func uploadForm(c *gin.Context) {
	c.HTML(http.StatusOK, "upload.html", nil)
}

func uploadImage(svc service.DetectionService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		fields := logrus.Fields{
			"request_id": c.GetString("request_id"),
			"ip":         c.ClientIP(),
		}

		upload, err := readUpload(c)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				logger.WithError(err).WithFields(fields).Warn("Upload too large")
				c.String(http.StatusRequestEntityTooLarge, "File too large")
				return
			}
			logger.WithError(err).WithFields(fields).Error("Failed to read upload")
			c.String(http.StatusInternalServerError, apperrors.UserMessage(err))
			return
		}
		// No file part: same view as GET
		if upload == nil {
			uploadForm(c)
			return
		}

		fields["original_filename"] = upload.OriginalFilename
		fields["size"] = upload.Size()
		logger.WithFields(fields).Info("Processing upload")

		result, err := svc.ProcessUpload(ctx, upload)
		if err != nil {
			status := apperrors.GetStatusCode(err)
			entry := logger.WithError(err).WithFields(fields).WithField("status_code", status)
			if status >= http.StatusInternalServerError {
				entry.Error("An error occurred during the detection process")
			} else {
				entry.Warn("Upload not processed")
			}
			c.String(status, apperrors.UserMessage(err))
			return
		}

		logger.WithFields(fields).WithFields(logrus.Fields{
			"output":             result.Output.Filename,
			"detections":         result.DetectionCount,
			"processing_time_ms": int64(result.ProcessingTimeSec * 1000),
		}).Info("Processed image found")

		c.Redirect(http.StatusFound, "/uploads/"+url.PathEscape(result.Output.Filename))
	}
}

// readUpload returns nil, nil when the request carries no usable file part
func readUpload(c *gin.Context) (*models.Upload, error) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, err
		}
		return nil, nil
	}
	defer file.Close()

	if header.Filename == "" {
		return nil, nil
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &models.Upload{
		OriginalFilename: header.Filename,
		Content:          content,
	}, nil
}

// displayResult renders the page for any filename; the file need not exist
func displayResult(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		filename := c.Param("filename")
		logger.WithField("filename", filename).Debug("Displaying image")

		c.HTML(http.StatusOK, "result.html", models.ResultPage{
			Filename: filename,
			ImageURL: resultImageURL(cfg.DetectName, filename),
		})
	}
}

func resultImageURL(name, filename string) string {
	return detectRoute + "/" + url.PathEscape(name) + "/" + url.PathEscape(filename)
}

func healthCheck(metrics MetricsSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.HealthResponse{
			Status:  "available",
			Version: version,
			Time:    time.Now().UTC().Format(time.RFC3339),
		}
		if metrics != nil {
			resp.Metrics = metrics.GetMetrics()
		}
		c.JSON(http.StatusOK, resp)
	}
}
