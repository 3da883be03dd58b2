package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"

	"devopsdemo/internal/core"
)

// runLambda serves API Gateway HTTP API (payload v2) events through the
// server's router. lambda.Start does not return.
func runLambda(srv *core.Server, logger *slog.Logger) error {
	logger.Info("starting in Lambda mode")
	lambda.Start(newLambdaHandler(srv.Router()))
	return nil
}

// lambdaHandlerFunc is the signature lambda.Start expects for HTTP API events.
type lambdaHandlerFunc func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

// newLambdaHandler bridges HTTP API events to mux via chiadapter. The API
// Gateway request ID becomes X-Request-Id unless the caller sent one.
func newLambdaHandler(mux *chi.Mux) lambdaHandlerFunc {
	adapter := chiadapter.NewV2(mux)
	return func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		if id := req.RequestContext.RequestID; id != "" && !hasHeader(req.Headers, "X-Request-Id") {
			if req.Headers == nil {
				req.Headers = make(map[string]string, 1)
			}
			req.Headers["X-Request-Id"] = id
		}
		return adapter.ProxyWithContextV2(ctx, req)
	}
}

// hasHeader reports whether headers carries name. API Gateway lower-cases
// header names, so the lookup is case-insensitive.
func hasHeader(headers map[string]string, name string) bool {
	canonical := http.CanonicalHeaderKey(name)
	for k := range headers {
		if http.CanonicalHeaderKey(k) == canonical {
			return true
		}
	}
	return false
}
