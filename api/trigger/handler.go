// Package trigger adapts the propagation pipeline to the invocation contract:
// a raw webhook body in, a status code out.
package trigger

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/productsync/domain"
	"github.com/fastygo/productsync/internal/metrics"
	"github.com/fastygo/productsync/pkg/logger"
)

// DeliveryHandler runs one webhook delivery through the pipeline.
type DeliveryHandler interface {
	HandleDelivery(ctx context.Context, body []byte) (domain.Outcome, error)
}

type Request struct {
	Body string `json:"body"`
}

type Response struct {
	StatusCode int            `json:"statusCode"`
	Outcome    domain.Outcome `json:"-"`
	Err        error          `json:"-"`
}

type Handler struct {
	pipeline DeliveryHandler
	timeout  time.Duration
	logger   *zap.Logger
}

func NewHandler(pipeline DeliveryHandler, timeout time.Duration, logger *zap.Logger) *Handler {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{pipeline: pipeline, timeout: timeout, logger: logger}
}

// Handle processes one invocation under the configured deadline.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	started := time.Now()
	outcome, err := h.pipeline.HandleDelivery(ctx, []byte(req.Body))
	status := StatusCode(err)
	metrics.ObserveInvocation(status)

	logger.WithRequestID(ctx, h.logger).Info("invocation finished",
		zap.Int("status_code", status),
		zap.String("state", string(outcome.State)),
		zap.String("stage", string(outcome.Stage)),
		zap.Int("updated", outcome.Updated),
		zap.Bool("duplicate", outcome.Duplicate),
		zap.Duration("elapsed", time.Since(started)),
	)

	return Response{StatusCode: status, Outcome: outcome, Err: err}
}

// StatusCode maps a pipeline result to the status returned to the caller.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case domain.IsDomainError(err, domain.ErrCodeInvalidPayload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
