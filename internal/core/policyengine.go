//
//  Copyright © the Cedrus authors. All rights reserved.
//

// Package core implements the authorization engine behind the public
// pkg/core facade: scope matching, per-policy condition evaluation, the
// forbid-overrides-permit combination rule, and decision audit records.
package core

import (
	"context"
	"sync"
	"time"

	"github.com/cedrus-authz/cedrus/internal/core/eval"
	"github.com/cedrus-authz/cedrus/internal/logging"
	"github.com/cedrus-authz/cedrus/pkg/common"
	"github.com/cedrus-authz/cedrus/pkg/core/accesslog"
	"github.com/cedrus-authz/cedrus/pkg/core/config"
	"github.com/cedrus-authz/cedrus/pkg/core/entities"
	"github.com/cedrus-authz/cedrus/pkg/core/model"
	"github.com/cedrus-authz/cedrus/pkg/core/options"
	"github.com/cedrus-authz/cedrus/pkg/core/types"
	"github.com/google/uuid"
)

var logger = logging.GetLogger("cedrus")

// PolicyEngine evaluates authorization requests against an immutable policy
// set and entity snapshot. It holds the audit stream and evaluation
// settings; the policies and entities themselves are supplied per call so
// one engine can serve many snapshots.
type PolicyEngine struct {
	audit    accesslog.Stream
	parallel bool
}

// NewPolicyEngine builds an engine from the resolved options.
func NewPolicyEngine(engineOptions *options.EngineOptions) (*PolicyEngine, error) {
	al, err := engineOptions.AccessLogFactory.NewStream()
	if err != nil {
		return nil, err
	}

	return &PolicyEngine{
		audit:    al,
		parallel: config.VConfig.GetBool(config.EvalParallel),
	}, nil
}

// Close releases the audit stream.
func (pe *PolicyEngine) Close() {
	if pe.audit != nil {
		pe.audit.Close()
	}
}

// groupOutcome is the fold over one effect group: the ids of the satisfied
// policies and the errors raised by policies in the group.
type groupOutcome struct {
	satisfied []string
	errors    []types.EvaluationError
}

// evalGroup evaluates every applicable policy of one effect group. A policy
// is satisfied when its scopes match and all of its conditions hold. A
// condition error marks the policy as not satisfied (fail closed) and is
// recorded; it never affects any other policy.
func evalGroup(group []*model.Policy, store *entities.Store, req types.Request) groupOutcome {
	var out groupOutcome
	ev := eval.New(store, req)

	for _, p := range group {
		if !policyApplies(p, req, store) {
			continue
		}

		satisfied := true
		for _, c := range p.Conditions {
			ok, err := ev.Condition(c)
			if err != nil {
				logger.Debugf("policy %s raised %v", p.ID, err)
				out.errors = append(out.errors, types.EvaluationError{PolicyID: p.ID, Message: err.Error()})
				satisfied = false
				break
			}
			if !ok {
				satisfied = false
				break
			}
		}

		if satisfied {
			out.satisfied = append(out.satisfied, p.ID)
		}
	}

	return out
}

// Authorize evaluates one request and returns the decision with
// diagnostics.
//
// Policies are partitioned by effect and the two groups are folded
// independently; with eval.parallel enabled the folds run concurrently.
// Both groups are always evaluated to completion so that the diagnostics
// carry every satisfied forbid and every evaluation error, regardless of
// which group determines the decision. The combination rule is fixed:
// any satisfied forbid denies, otherwise any satisfied permit allows,
// otherwise deny.
func (pe *PolicyEngine) Authorize(ctx context.Context, ps *model.PolicySet, store *entities.Store, req types.Request, authOptions *options.AuthzOptions) types.Response {
	start := time.Now()

	var permits, forbids []*model.Policy
	for _, p := range ps.Policies() {
		if p.Effect == model.Forbid {
			forbids = append(forbids, p)
		} else {
			permits = append(permits, p)
		}
	}

	var (
		permitOutcome groupOutcome
		forbidOutcome groupOutcome
	)

	if pe.parallel {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			forbidOutcome = evalGroup(forbids, store, req)
		}()
		go func() {
			defer wg.Done()
			permitOutcome = evalGroup(permits, store, req)
		}()
		wg.Wait()
	} else {
		forbidOutcome = evalGroup(forbids, store, req)
		permitOutcome = evalGroup(permits, store, req)
	}

	errs := append(append([]types.EvaluationError(nil), forbidOutcome.errors...), permitOutcome.errors...)

	var response types.Response
	switch {
	case len(forbidOutcome.satisfied) > 0:
		response = types.NewResponse(types.Deny, forbidOutcome.satisfied, errs)
	case len(permitOutcome.satisfied) > 0:
		response = types.NewResponse(types.Allow, permitOutcome.satisfied, errs)
	default:
		response = types.NewResponse(types.Deny, nil, errs)
	}

	if logger.IsDebugEnabled() {
		logger.Debugf("decision %s for %s / %s / %s: reasons=%v errors=%d",
			response.Decision, req.Principal, req.Action, req.Resource,
			response.Diagnostics.Reasons, len(response.Diagnostics.Errors))
	}

	pe.auditDecision(req, response, time.Since(start), authOptions)

	return response
}

// auditDecision emits one decision record unless probe mode suppresses it.
func (pe *PolicyEngine) auditDecision(req types.Request, response types.Response, elapsed time.Duration, authOptions *options.AuthzOptions) {
	if pe.audit == nil || (authOptions != nil && authOptions.Probe) {
		return
	}

	var ctxMap map[string]interface{}
	if len(req.Context) > 0 {
		ctxMap = make(map[string]interface{}, len(req.Context))
		for k, v := range req.Context {
			ctxMap[k] = v
		}
	}

	record := &accesslog.DecisionRecord{
		ID:            uuid.New().String(),
		Timestamp:     time.Now(),
		Principal:     req.Principal.String(),
		Action:        req.Action.String(),
		Resource:      req.Resource.String(),
		Context:       ctxMap,
		Decision:      response.Decision.String(),
		Reasons:       response.Diagnostics.Reasons,
		Errors:        response.Diagnostics.Errors,
		DurationNanos: uint64(elapsed.Nanoseconds()), // #nosec G115 -- durations are non-negative
		Metadata:      config.GetAuditEnv(),
	}

	if logger.IsDebugEnabled() {
		logger.Debug("decision record:")
		common.PrettyPrint(record)
	}

	if err := pe.audit.Send(record); err != nil {
		logger.Errorf("unable to send decision record to accesslog: %+v", err)
	}
}
