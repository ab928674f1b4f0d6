//
//  Copyright © the Cedrus authors. All rights reserved.
//

// Package generic implements an HTTP/REST decision point on top of echo.
//
// The server exposes one decision endpoint:
//
//	POST /v1/authorize
//	{
//	  "principal": {"type": "User", "id": "alice"},
//	  "action":    {"type": "Action", "id": "view"},
//	  "resource":  {"type": "Photo", "id": "vacation.jpg"},
//	  "context":   {"mfa": true}
//	}
//
// and answers with the decision and its diagnostics:
//
//	{"decision": "allow", "reasons": ["policy0"], "errors": []}
//
// Context attribute values use the same escape forms as entity attributes:
// {"__entity": {...}} for entity references and {"__extn": {...}} for
// extension values.
package generic

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cedrus-authz/cedrus/internal/logging"
	"github.com/cedrus-authz/cedrus/pkg/core"
	"github.com/cedrus-authz/cedrus/pkg/core/entities"
	"github.com/cedrus-authz/cedrus/pkg/core/options"
	"github.com/cedrus-authz/cedrus/pkg/core/types"
	"github.com/cedrus-authz/cedrus/pkg/decisionpoint"

	"github.com/labstack/echo/v4"
)

var logger = logging.GetLogger("decisionpoint")

// Server represents a generic decision point server that serves the REST API.
type Server struct {
	echo *echo.Echo
}

type uidBody struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type authorizeBody struct {
	Principal uidBody                `json:"principal"`
	Action    uidBody                `json:"action"`
	Resource  uidBody                `json:"resource"`
	Context   map[string]interface{} `json:"context"`
	// Probe suppresses the audit record for this decision. See
	// options.SetProbeMode.
	Probe bool `json:"probe,omitempty"`
}

type authorizeResult struct {
	Decision string                  `json:"decision"`
	Reasons  []string                `json:"reasons"`
	Errors   []types.EvaluationError `json:"errors"`
}

type errorBody struct {
	Error string `json:"error"`
}

// handler adapts one Authorizer to the REST surface.
type handler struct {
	authz core.Authorizer
}

func (h *handler) authorize(c echo.Context) error {
	var body authorizeBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	}

	ctxRecord, err := entities.RecordFromDecoded(body.Context)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: fmt.Sprintf("context: %v", err)})
	}

	req := types.Request{
		Principal: types.NewEntityUID(body.Principal.Type, body.Principal.ID),
		Action:    types.NewEntityUID(body.Action.Type, body.Action.ID),
		Resource:  types.NewEntityUID(body.Resource.Type, body.Resource.ID),
		Context:   ctxRecord,
	}

	res, err := h.authz.Authorize(c.Request().Context(), req, options.SetProbeMode(body.Probe))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	}

	reasons := res.Diagnostics.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	errs := res.Diagnostics.Errors
	if errs == nil {
		errs = []types.EvaluationError{}
	}

	return c.JSON(http.StatusOK, authorizeResult{
		Decision: res.Decision.String(),
		Reasons:  reasons,
		Errors:   errs,
	})
}

func (h *handler) healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// newRouter builds the echo instance with all routes registered.
func newRouter(authz core.Authorizer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	h := &handler{authz: authz}
	e.POST("/v1/authorize", h.authorize)
	e.GET("/healthz", h.healthz)

	return e
}

// CreateServer creates and starts a new generic decision point server.
func CreateServer(authz core.Authorizer, port int) (decisionpoint.Server, error) {
	e := newRouter(authz)

	// Start server in goroutine since e.Start() blocks
	go func() {
		if err := e.Start(fmt.Sprintf(":%d", port)); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("decision point server failed: %v", err)
		}
	}()

	logger.Infof("decision point listening on :%d", port)

	return &Server{
		echo: e,
	}, nil
}

// Stop gracefully stops the Server by shutting down the echo HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
