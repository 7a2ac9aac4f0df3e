package handlers

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/Brownie44l1/hairscan/internal/imageprep"
	"github.com/Brownie44l1/hairscan/internal/metrics"
	"github.com/Brownie44l1/hairscan/internal/model"
	"github.com/Brownie44l1/hairscan/internal/pipeline"
)

//go:embed templates/*.html
var templatesFS embed.FS

const formField = "file"

// Messages shown to the user. They never contain internal error details.
const (
	MsgNoFilePart       = "No file part in the request."
	MsgNoSelectedFile   = "No selected file."
	MsgEmptyFile        = "The uploaded file is empty."
	MsgTooLarge         = "The uploaded file is too large."
	MsgDecode           = "The uploaded file is not a valid image."
	MsgModelUnavailable = "Model is not loaded."
	MsgInference        = "An error occurred during prediction."
)

// UploadError is a problem with the request itself, before any image work.
type UploadError struct {
	Message string
}

func (e *UploadError) Error() string {
	return e.Message
}

type Handler struct {
	pipeline       *pipeline.Pipeline
	maxUploadBytes int64
}

func NewHandler(p *pipeline.Pipeline, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Handler{
		pipeline:       p,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) Register(r *gin.Engine) {
	r.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))
	r.Use(RequestID(), Logger())

	r.GET("/", h.Index)
	r.POST("/", h.Upload)
	r.POST("/predict", h.Upload)

	api := r.Group("/api", CORS())
	api.OPTIONS("/predict", func(c *gin.Context) { c.Status(http.StatusOK) })
	api.POST("/predict", h.PredictJSON)

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (h *Handler) Health(c *gin.Context) {
	status := "healthy"
	if !h.pipeline.Available() {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       status,
		"model_loaded": h.pipeline.Available(),
	})
}

func (h *Handler) Index(c *gin.Context) {
	h.render(c, nil, "")
}

// Upload handles the HTML form. Every outcome re-renders the page with 200.
func (h *Handler) Upload(c *gin.Context) {
	res, err := h.predict(c)
	if err != nil {
		msg, _ := h.describe(c, err)
		h.render(c, nil, msg)
		return
	}
	h.render(c, res, "")
}

func (h *Handler) PredictJSON(c *gin.Context) {
	res, err := h.predict(c)
	if err != nil {
		msg, status := h.describe(c, err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) render(c *gin.Context, res *pipeline.Result, errMsg string) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Result":         res,
		"Error":          errMsg,
		"ModelAvailable": h.pipeline.Available(),
		"Classes":        h.pipeline.Classes(),
	})
}

func (h *Handler) predict(c *gin.Context) (*pipeline.Result, error) {
	upload, err := h.readUpload(c)
	if err != nil {
		return nil, err
	}

	logger := requestLogger(c).WithFields(log.Fields{
		"filename": upload.Filename,
		"size":     len(upload.Data),
	})
	logger.Debug("received file")

	res, err := h.pipeline.Run(c.Request.Context(), upload)
	if err != nil {
		return nil, err
	}

	metrics.PredictionsTotal.WithLabelValues(res.ClassName).Inc()
	logger.WithFields(log.Fields{
		"class":      res.ClassName,
		"confidence": res.Confidence,
	}).Info("prediction complete")
	return res, nil
}

// describe maps an error from predict to the user-visible message and the
// status code used by the JSON API.
func (h *Handler) describe(c *gin.Context, err error) (string, int) {
	logger := requestLogger(c).WithError(err)

	var uploadErr *UploadError
	var inferenceErr *model.InferenceError
	switch {
	case errors.As(err, &uploadErr):
		metrics.PredictionErrorsTotal.WithLabelValues(metrics.KindUpload).Inc()
		logger.Debug("rejected upload")
		return uploadErr.Message, http.StatusBadRequest
	case errors.Is(err, imageprep.ErrDecode):
		metrics.PredictionErrorsTotal.WithLabelValues(metrics.KindDecode).Inc()
		logger.Info("could not decode upload")
		return MsgDecode, http.StatusBadRequest
	case errors.Is(err, model.ErrModelUnavailable):
		metrics.PredictionErrorsTotal.WithLabelValues(metrics.KindUnavailable).Inc()
		logger.Warn("prediction requested while model is not loaded")
		return MsgModelUnavailable, http.StatusServiceUnavailable
	case errors.As(err, &inferenceErr):
		metrics.PredictionErrorsTotal.WithLabelValues(metrics.KindInference).Inc()
		logger.Error("prediction failed")
		return MsgInference, http.StatusInternalServerError
	default:
		metrics.PredictionErrorsTotal.WithLabelValues(metrics.KindInference).Inc()
		logger.Error("unexpected prediction error")
		return MsgInference, http.StatusInternalServerError
	}
}

func (h *Handler) readUpload(c *gin.Context) (imageprep.Upload, error) {
	req := c.Request
	if req.ContentLength > h.maxUploadBytes {
		return imageprep.Upload{}, &UploadError{Message: MsgTooLarge}
	}
	req.Body = http.MaxBytesReader(c.Writer, req.Body, h.maxUploadBytes)

	if err := req.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return imageprep.Upload{}, &UploadError{Message: MsgTooLarge}
		}
		return imageprep.Upload{}, &UploadError{Message: MsgNoFilePart}
	}

	file, header, err := req.FormFile(formField)
	if err != nil {
		// A form field sent with an empty filename is parsed as a plain value.
		if _, ok := req.MultipartForm.Value[formField]; ok {
			return imageprep.Upload{}, &UploadError{Message: MsgNoSelectedFile}
		}
		return imageprep.Upload{}, &UploadError{Message: MsgNoFilePart}
	}
	defer file.Close()

	if header.Filename == "" {
		return imageprep.Upload{}, &UploadError{Message: MsgNoSelectedFile}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return imageprep.Upload{}, &UploadError{Message: MsgNoFilePart}
	}
	if len(data) == 0 {
		return imageprep.Upload{}, &UploadError{Message: MsgEmptyFile}
	}

	return imageprep.Upload{Filename: header.Filename, Data: data}, nil
}
