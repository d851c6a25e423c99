package handler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/productsync/api/transport"
	"github.com/fastygo/productsync/domain"
	"github.com/fastygo/productsync/pkg/httpcontext"
)

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	return context.WithCancel(context.Background())
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, transport.NewSuccess(data, httpcontext.RequestID(ctx)))
}

func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, status int, err error, data interface{}) {
	h.respondJSON(ctx, status, transport.NewError(errorCode(err), err.Error(), data, httpcontext.RequestID(ctx)))
}

func errorCode(err error) string {
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		return string(dErr.Code)
	}
	return "INTERNAL"
}
