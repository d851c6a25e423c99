package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/fastygo/productsync/api/transport"
	"github.com/fastygo/productsync/api/trigger"
	"github.com/fastygo/productsync/pkg/hubspot"
	"github.com/fastygo/productsync/pkg/logger"
)

// RequestVerifier is satisfied by middleware.SignatureVerifier.
type RequestVerifier interface {
	Enabled() bool
	Verify(method, requestURL string, body []byte, timestamp, signature string) error
}

// LambdaHandler serves API Gateway REST proxy events (payload 1.0) and
// Lambda function URL or HTTP API events (payload 2.0).
type LambdaHandler struct {
	trigger  *trigger.Handler
	verifier RequestVerifier
	logger   *zap.Logger
}

func NewLambdaHandler(t *trigger.Handler, verifier RequestVerifier, logger *zap.Logger) *LambdaHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LambdaHandler{trigger: t, verifier: verifier, logger: logger}
}

// proxyRequest is the part of either payload version the webhook needs.
type proxyRequest struct {
	method    string
	url       string
	headers   map[string]string
	body      string
	base64    bool
	requestID string
}

type proxyResponse struct {
	status int
	body   string
}

// Invoke accepts either payload version and answers in the matching shape.
func (h *LambdaHandler) Invoke(ctx context.Context, raw json.RawMessage) (any, error) {
	var probe struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode lambda event: %w", err)
	}

	if probe.Version == "2.0" {
		var req events.LambdaFunctionURLRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("decode function url event: %w", err)
		}
		return h.HandleFunctionURL(ctx, req)
	}

	var req events.APIGatewayProxyRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decode api gateway event: %w", err)
	}
	return h.Handle(ctx, req)
}

// Handle never returns an error; failures are reported through the status code
// so API Gateway relays them to HubSpot unchanged.
func (h *LambdaHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp := h.serve(ctx, proxyRequest{
		method:    req.HTTPMethod,
		url:       gatewayURL(req),
		headers:   req.Headers,
		body:      req.Body,
		base64:    req.IsBase64Encoded,
		requestID: req.RequestContext.RequestID,
	})
	return events.APIGatewayProxyResponse{
		StatusCode: resp.status,
		Headers:    jsonHeaders(),
		Body:       resp.body,
	}, nil
}

// HandleFunctionURL serves payload 2.0 events, where the method lives in the
// request context and the raw query string keeps HubSpot's parameter order.
func (h *LambdaHandler) HandleFunctionURL(ctx context.Context, req events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	resp := h.serve(ctx, proxyRequest{
		method:    req.RequestContext.HTTP.Method,
		url:       functionURL(req),
		headers:   req.Headers,
		body:      req.Body,
		base64:    req.IsBase64Encoded,
		requestID: req.RequestContext.RequestID,
	})
	return events.LambdaFunctionURLResponse{
		StatusCode: resp.status,
		Headers:    jsonHeaders(),
		Body:       resp.body,
	}, nil
}

func (h *LambdaHandler) serve(ctx context.Context, req proxyRequest) proxyResponse {
	requestID := req.requestID
	if requestID == "" {
		requestID = header(req.headers, "X-Request-ID")
	}
	if requestID != "" {
		ctx = logger.ContextWithRequestID(ctx, requestID)
	}

	body := []byte(req.body)
	if req.base64 {
		decoded, err := base64.StdEncoding.DecodeString(req.body)
		if err != nil {
			return newProxyResponse(http.StatusBadRequest, transport.NewError("INVALID_PAYLOAD", "body is not valid base64", nil, requestID))
		}
		body = decoded
	}

	if h.verifier != nil && h.verifier.Enabled() {
		err := h.verifier.Verify(
			req.method,
			req.url,
			body,
			header(req.headers, hubspot.HeaderTimestamp),
			header(req.headers, hubspot.HeaderSignatureV3),
		)
		if err != nil {
			logger.WithRequestID(ctx, h.logger).Warn("webhook signature rejected", zap.Error(err))
			return newProxyResponse(http.StatusUnauthorized, transport.NewError("UNAUTHORIZED", err.Error(), nil, requestID))
		}
	}

	resp := h.trigger.Handle(ctx, trigger.Request{Body: string(body)})
	result := transport.NewWebhookResult(resp.Outcome)
	if resp.Err != nil {
		return newProxyResponse(resp.StatusCode, transport.NewError(errorCode(resp.Err), resp.Err.Error(), result, requestID))
	}
	return newProxyResponse(resp.StatusCode, transport.NewSuccess(result, requestID))
}

func newProxyResponse(status int, payload transport.Envelope) proxyResponse {
	body, _ := json.Marshal(payload)
	return proxyResponse{status: status, body: string(body)}
}

func jsonHeaders() map[string]string {
	return map[string]string{"Content-Type": "application/json"}
}

// gatewayURL rebuilds the URL HubSpot called from the proxy event. The event does
// not keep query parameter order; set WEBHOOK_TARGET_URL when the target has a query.
func gatewayURL(req events.APIGatewayProxyRequest) string {
	scheme := header(req.Headers, "X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
	}
	url := scheme + "://" + header(req.Headers, "Host") + req.Path
	if len(req.QueryStringParameters) > 0 {
		pairs := make([]string, 0, len(req.QueryStringParameters))
		for k, v := range req.QueryStringParameters {
			pairs = append(pairs, k+"="+v)
		}
		slices.Sort(pairs)
		url += "?" + strings.Join(pairs, "&")
	}
	return url
}

func functionURL(req events.LambdaFunctionURLRequest) string {
	host := req.RequestContext.DomainName
	if host == "" {
		host = header(req.Headers, "Host")
	}
	url := "https://" + host + req.RawPath
	if req.RawQueryString != "" {
		url += "?" + req.RawQueryString
	}
	return url
}

func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
