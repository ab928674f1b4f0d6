//
//  Copyright © the Cedrus authors. All rights reserved.
//

package types

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Request describes one access attempt: who is acting (principal), what
// they are doing (action), what is acted upon (resource), and free-form
// context attributes available to policy conditions.
//
// A Request is immutable for the duration of one authorization call.
type Request struct {
	Principal EntityUID `json:"principal"`
	Action    EntityUID `json:"action"`
	Resource  EntityUID `json:"resource"`
	Context   Record    `json:"context"`
}

// Validate rejects malformed requests before evaluation begins. A request
// is malformed if any uid slot is empty.
func (r Request) Validate() error {
	if r.Principal.IsZero() {
		return fmt.Errorf("request: principal is empty")
	}
	if r.Action.IsZero() {
		return fmt.Errorf("request: action is empty")
	}
	if r.Resource.IsZero() {
		return fmt.Errorf("request: resource is empty")
	}
	return nil
}

// Decision is the binary outcome of an authorization call.
type Decision int

// Authorization decisions.
const (
	// Deny is the default: it results from a satisfied forbid, from the
	// absence of a satisfied permit, or from nothing matching at all.
	Deny Decision = iota
	// Allow results from at least one satisfied permit with no satisfied
	// forbid.
	Allow
)

// String returns "allow" or "deny".
func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// MarshalJSON renders the decision as a JSON string.
func (d Decision) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// EvaluationError identifies a policy whose condition raised a runtime
// evaluation error during an authorization call.
type EvaluationError struct {
	// PolicyID is the id of the erroring policy.
	PolicyID string `json:"policy"`
	// Message describes the error, including its kind.
	Message string `json:"message"`
}

// Diagnostics explains a decision for audit purposes.
type Diagnostics struct {
	// Reasons lists the ids of the determining policies: the satisfied
	// forbids when the decision is Deny by forbid, or the satisfied
	// permits when the decision is Allow. Empty on a default deny.
	// Sorted for determinism.
	Reasons []string `json:"reasons"`
	// Errors lists the policies whose conditions raised evaluation errors,
	// sorted by policy id. Errors never escape the authorization call; an
	// erroring policy simply contributes "not satisfied" (fail closed).
	Errors []EvaluationError `json:"errors"`
}

// Response is the outcome of one authorization call.
//
// A denied decision is indistinguishable in shape from one caused by
// errors versus one caused by no matching permit; callers needing to
// distinguish the cases must inspect Diagnostics.Errors.
type Response struct {
	Decision    Decision    `json:"decision"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// NewResponse builds a Response with deterministically ordered diagnostics.
func NewResponse(decision Decision, reasons []string, errs []EvaluationError) Response {
	sorted := append([]string(nil), reasons...)
	sort.Strings(sorted)

	sortedErrs := append([]EvaluationError(nil), errs...)
	sort.Slice(sortedErrs, func(i, j int) bool {
		if sortedErrs[i].PolicyID != sortedErrs[j].PolicyID {
			return sortedErrs[i].PolicyID < sortedErrs[j].PolicyID
		}
		return sortedErrs[i].Message < sortedErrs[j].Message
	})

	return Response{
		Decision: decision,
		Diagnostics: Diagnostics{
			Reasons: sorted,
			Errors:  sortedErrs,
		},
	}
}

// ErroringPolicies returns the set of policy ids present in
// Diagnostics.Errors, sorted and deduplicated.
func (r Response) ErroringPolicies() []string {
	seen := map[string]bool{}
	var ids []string
	for _, e := range r.Diagnostics.Errors {
		if !seen[e.PolicyID] {
			seen[e.PolicyID] = true
			ids = append(ids, e.PolicyID)
		}
	}
	sort.Strings(ids)
	return ids
}
