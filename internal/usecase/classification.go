package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/animal-classify/internal/classifier"
	"github.com/example/animal-classify/internal/datauri"
	"github.com/example/animal-classify/internal/logging"
)

// Recorder receives one observation per upstream call.
type Recorder interface {
	RecordClassification(outcome string, duration time.Duration, payloadBytes int)
}

// Outcome is a relayed classification answer.
type Outcome struct {
	RequestID string
	Body      json.RawMessage
}

// ClassificationUseCase relays a single classification request to the
// external service.
type ClassificationUseCase struct {
	client   classifier.Client
	recorder Recorder
	logger   *zap.Logger
	timeout  time.Duration
	newID    func() string
}

// NewClassificationUseCase constructs the use case. A zero timeout leaves the
// upstream call bounded only by the caller's context.
func NewClassificationUseCase(client classifier.Client, recorder Recorder, timeout time.Duration, logger *zap.Logger) *ClassificationUseCase {
	return &ClassificationUseCase{
		client:   client,
		recorder: recorder,
		logger:   logger.Named("classification_usecase"),
		timeout:  timeout,
		newID:    uuid.NewString,
	}
}

// Classify forwards req unchanged and returns the upstream body verbatim. Every
// failure is returned as a *logging.OperationError wrapping a classifier error;
// the Outcome still carries the request id in that case.
func (uc *ClassificationUseCase) Classify(ctx context.Context, req classifier.Request) (*Outcome, error) {
	requestID := uc.newID()
	opLogger := logging.WithOperation(uc.logger, "usecase.classify", requestID)

	payloadBytes := 0
	if image, ok := req.ImageString(); ok {
		if info, err := datauri.Parse(image); err == nil {
			payloadBytes = info.Size
			opLogger = opLogger.With(
				zap.String("declared_type", info.Declared),
				zap.String("detected_type", info.Detected),
				zap.Int("payload_bytes", info.Size))
			if !info.IsImage() {
				opLogger.Info("forwarding non-image payload")
			}
		} else {
			opLogger.Debug("image is not a data URI", zap.Error(err))
		}
	} else {
		opLogger.Debug("request has no string image member")
	}

	callCtx := ctx
	if uc.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	start := time.Now()
	body, err := uc.client.Classify(callCtx, req)
	elapsed := time.Since(start)
	outcome := classifier.Kind(err)
	if uc.recorder != nil {
		uc.recorder.RecordClassification(outcome, elapsed, payloadBytes)
	}

	if err != nil {
		wrapped := logging.NewOperationError("usecase.classify", requestID, err)
		opLogger.Error("classification failed",
			zap.Error(wrapped),
			zap.String("kind", outcome),
			zap.Duration("elapsed", elapsed))
		return &Outcome{RequestID: requestID}, wrapped
	}

	opLogger.Info("classification relayed", zap.Duration("elapsed", elapsed))
	return &Outcome{RequestID: requestID, Body: body}, nil
}
