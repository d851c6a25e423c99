package handler

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/productsync/api/transport"
	"github.com/fastygo/productsync/api/trigger"
	"github.com/fastygo/productsync/pkg/httpcontext"
)

// WebhookHandler exposes the trigger over HTTP for local runs.
type WebhookHandler struct {
	baseHandler
	trigger *trigger.Handler
}

func NewWebhookHandler(t *trigger.Handler, adapter *httpcontext.Adapter, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		baseHandler: newBaseHandler(adapter, logger),
		trigger:     t,
	}
}

// @Summary Product description change webhook
// @Tags webhook
// @Router / [post]
// @Router /webhooks/product [post]
func (h *WebhookHandler) Receive(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	resp := h.trigger.Handle(reqCtx, trigger.Request{Body: string(ctx.PostBody())})
	result := transport.NewWebhookResult(resp.Outcome)

	if resp.Err != nil {
		h.respondError(ctx, resp.StatusCode, resp.Err, result)
		return
	}
	h.respondSuccess(ctx, resp.StatusCode, result)
}
