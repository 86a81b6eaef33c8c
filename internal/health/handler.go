// Package health serves the liveness and dependency health endpoints.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"

	livenessBody = "Hello World!"
	checkTimeout = 2 * time.Second
)

// Checker defines the interface for checking a dependency.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Handler handles health check operations.
type Handler struct {
	checkers map[string]Checker
}

// NewHandler creates a health handler reporting on the named checkers.
func NewHandler(checkers map[string]Checker) *Handler {
	if checkers == nil {
		checkers = map[string]Checker{}
	}

	return &Handler{checkers: checkers}
}

// LivenessResponse is the plain text liveness reply.
type LivenessResponse struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// Liveness reports that the process is up.
func (h *Handler) Liveness(_ context.Context, _ *struct{}) (*LivenessResponse, error) {
	return &LivenessResponse{
		ContentType: "text/plain; charset=utf-8",
		Body:        []byte(livenessBody),
	}, nil
}

// Response is the response for health check endpoint.
type Response struct {
	Body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
}

// Check pings every dependency. A failing dependency degrades the status
// but the endpoint itself still answers 200.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	resp := &Response{}
	resp.Body.Status = StatusOK
	resp.Body.Checks = make(map[string]string, len(h.checkers))

	for name, checker := range h.checkers {
		if err := checker.Ping(ctx); err != nil {
			resp.Body.Checks[name] = "unhealthy"
			resp.Body.Status = StatusDegraded

			continue
		}

		resp.Body.Checks[name] = "healthy"
	}

	return resp, nil
}

// RegisterRoutes registers the liveness and health routes.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "liveness",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Liveness probe",
		Tags:        []string{"Health"},
	}, h.Liveness)

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Dependency health",
		Tags:        []string{"Health"},
	}, h.Check)
}
