package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/animal-classify/internal/classifier"
	"github.com/example/animal-classify/internal/datauri"
	"github.com/example/animal-classify/internal/ui"
	"github.com/example/animal-classify/internal/usecase"
)

// DefaultMaxUploadSize bounds request bodies when no explicit limit is given.
const DefaultMaxUploadSize = 10 << 20

const (
	msgClassifyFailed = ui.FailureMessage
	msgInvalidBody    = "invalid request body"
	msgTooLarge       = "request body too large"
	msgNoImage        = "Please choose an image to upload."
)

// Classifier is the use case the routes delegate to.
type Classifier interface {
	Classify(ctx context.Context, req classifier.Request) (*usecase.Outcome, error)
}

// Options configures RegisterRoutes.
type Options struct {
	MaxUploadSize int64
	Metrics       http.Handler
	Logger        *zap.Logger
}

type routes struct {
	uc      Classifier
	maxBody int64
	logger  *zap.Logger
}

// RegisterRoutes wires the page, the classification proxy and the
// operational endpoints to the Gin router. The router must already carry the
// page templates (see ui.Templates).
func RegisterRoutes(router *gin.Engine, uc Classifier, opts Options) {
	r := &routes{uc: uc, maxBody: opts.MaxUploadSize, logger: opts.Logger}
	if r.maxBody <= 0 {
		r.maxBody = DefaultMaxUploadSize
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	r.logger = r.logger.Named("handlers")

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	router.StaticFS("/static", http.FS(ui.Static()))
	router.GET("/", r.page)
	router.POST("/", r.upload)
	router.POST("/api/classify", r.classify)
}

func (r *routes) page(c *gin.Context) {
	c.HTML(http.StatusOK, ui.PageTemplate, ui.NewView())
}

// classify relays {"image": ...} to the classification service. Any upstream
// failure becomes the same 500 body; the cause is only logged.
func (r *routes) classify(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, r.maxBody)

	var req classifier.Request
	if err := decodeJSONBody(c.Request.Body, &req); err != nil {
		if isBodyTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": msgTooLarge})
			return
		}
		r.logger.Debug("rejecting undecodable request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}

	out, err := r.uc.Classify(c.Request.Context(), req)
	if out != nil && out.RequestID != "" {
		c.Header("X-Request-ID", out.RequestID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgClassifyFailed})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", out.Body)
}

// upload is the no-script path: the form posts the file, the server encodes
// it as a data URI and renders the page with the outcome.
func (r *routes) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, r.maxBody)
	view := ui.NewView()

	file, err := c.FormFile("image")
	if err != nil {
		status := http.StatusBadRequest
		msg := msgNoImage
		if isBodyTooLarge(err) {
			status, msg = http.StatusRequestEntityTooLarge, msgTooLarge
		}
		view.Fail(view.Begin(""), msg)
		c.HTML(status, ui.PageTemplate, view)
		return
	}

	src, err := file.Open()
	if err != nil {
		view.Fail(view.Begin(""), msgNoImage)
		c.HTML(http.StatusBadRequest, ui.PageTemplate, view)
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		r.logger.Error("failed to read upload", zap.Error(err))
		view.Fail(view.Begin(""), msgClassifyFailed)
		c.HTML(http.StatusInternalServerError, ui.PageTemplate, view)
		return
	}

	image := datauri.Encode(file.Header.Get("Content-Type"), data)
	seq := view.Begin(image)

	out, err := r.uc.Classify(c.Request.Context(), classifier.NewRequest(image))
	if out != nil && out.RequestID != "" {
		c.Header("X-Request-ID", out.RequestID)
	}
	if err != nil {
		view.Fail(seq, msgClassifyFailed)
		c.HTML(http.StatusInternalServerError, ui.PageTemplate, view)
		return
	}

	res, err := classifier.DecodeResult(out.Body)
	if err != nil {
		r.logger.Warn("relayed body is not a classification result", zap.Error(err), zap.String("request_id", out.RequestID))
		view.Fail(seq, msgClassifyFailed)
		c.HTML(http.StatusInternalServerError, ui.PageTemplate, view)
		return
	}

	view.Resolve(seq, res)
	c.HTML(http.StatusOK, ui.PageTemplate, view)
}

// decodeJSONBody decodes exactly one JSON value; anything but whitespace after
// it is an error.
func decodeJSONBody(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after JSON value")
		}
		return err
	}
	return nil
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "request body too large")
}
