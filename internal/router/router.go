package router

import (
	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	apiHandler "github.com/fastygo/productsync/api/handler"
)

type Handlers struct {
	Webhook *apiHandler.WebhookHandler
	Health  *apiHandler.HealthHandler
}

func New(handlers Handlers, signatureMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)
	r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))

	// Webhook delivery, at the root like the Lambda function URL
	r.POST("/", signatureMiddleware(handlers.Webhook.Receive))
	r.POST("/webhooks/product", signatureMiddleware(handlers.Webhook.Receive))

	return r
}
