package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/productsync/internal/config"
	"github.com/fastygo/productsync/pkg/hubspot"
)

// SignatureVerifier checks HubSpot v3 webhook signatures. A nil verifier accepts everything.
type SignatureVerifier struct {
	secret    string
	targetURL string
	maxAge    time.Duration
	now       func() time.Time
}

// NewSignatureVerifier returns nil when no client secret is configured.
func NewSignatureVerifier(cfg config.WebhookConfig) *SignatureVerifier {
	if cfg.ClientSecret == "" {
		return nil
	}
	return &SignatureVerifier{
		secret:    cfg.ClientSecret,
		targetURL: strings.TrimSpace(cfg.TargetURL),
		maxAge:    cfg.MaxSignatureAge,
		now:       time.Now,
	}
}

func (v *SignatureVerifier) Enabled() bool {
	return v != nil
}

// Verify checks one request. requestURL is ignored when a target URL is configured,
// since proxies in front of the handler rewrite the host and path HubSpot signed.
func (v *SignatureVerifier) Verify(method, requestURL string, body []byte, timestamp, signature string) error {
	if v == nil {
		return nil
	}
	uri := requestURL
	if v.targetURL != "" {
		uri = v.targetURL
	}
	return hubspot.VerifySignatureV3(v.secret, hubspot.SignatureRequest{
		Method:    method,
		URI:       uri,
		Body:      body,
		Timestamp: timestamp,
		Signature: signature,
	}, v.now(), v.maxAge)
}

// HubSpotSignature rejects requests whose signature does not verify with 401.
func HubSpotSignature(verifier *SignatureVerifier, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		if !verifier.Enabled() {
			return next
		}
		return func(ctx *fasthttp.RequestCtx) {
			err := verifier.Verify(
				string(ctx.Method()),
				requestURL(ctx),
				ctx.PostBody(),
				string(ctx.Request.Header.Peek(hubspot.HeaderTimestamp)),
				string(ctx.Request.Header.Peek(hubspot.HeaderSignatureV3)),
			)
			if err != nil {
				level := zap.WarnLevel
				if errors.Is(err, hubspot.ErrSignatureMissing) {
					level = zap.InfoLevel
				}
				logger.Log(level, "webhook signature rejected", zap.Error(err), zap.String("path", string(ctx.Path())))
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}
			next(ctx)
		}
	}
}

func requestURL(ctx *fasthttp.RequestCtx) string {
	scheme := string(ctx.Request.Header.Peek("X-Forwarded-Proto"))
	if scheme == "" {
		scheme = "http"
		if ctx.IsTLS() {
			scheme = "https"
		}
	}
	return scheme + "://" + string(ctx.Host()) + string(ctx.URI().RequestURI())
}
