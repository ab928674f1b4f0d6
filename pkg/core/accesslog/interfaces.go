//
//  Copyright © the Cedrus authors. All rights reserved.
//

// Package accesslog provides interfaces and implementations for audit
// logging of authorization decisions.
//
// Access logs record every decision made by the engine, creating an audit
// trail for compliance, debugging, and security monitoring. Each record
// includes the request uids, the decision, the determining policy ids, and
// any policy evaluation errors.
//
// # Built-in Implementations
//
// The package provides several stream implementations:
//   - [NewStdoutFactory]: Writes JSON records to stdout (default for development)
//   - [NewIoWriterFactory]: Writes JSON records to any io.Writer
//   - [NewNullFactory]: Discards all records (useful for testing or benchmarks)
//
// # Custom Implementations
//
// To implement a custom access log (e.g., for Kafka, database, or cloud
// logging), implement [Factory] to create stream instances and [Stream] to
// handle record delivery, then use options.WithAccessLog when creating the
// authorizer.
package accesslog

import (
	"time"

	"github.com/cedrus-authz/cedrus/pkg/core/types"
)

// DecisionRecord is one audit record describing an authorization decision.
type DecisionRecord struct {
	// ID uniquely identifies the record (UUID).
	ID string `json:"id"`
	// Timestamp is the moment the decision was made.
	Timestamp time.Time `json:"timestamp"`
	// Principal, Action and Resource identify the request in uid syntax,
	// e.g. User::"alice".
	Principal string `json:"principal"`
	Action    string `json:"action"`
	Resource  string `json:"resource"`
	// Context is the request context as supplied by the caller. Optional.
	Context map[string]interface{} `json:"context,omitempty"`
	// Decision is "allow" or "deny".
	Decision string `json:"decision"`
	// Reasons lists the determining policy ids.
	Reasons []string `json:"reasons"`
	// Errors lists policies whose conditions raised evaluation errors.
	Errors []types.EvaluationError `json:"errors,omitempty"`
	// DurationNanos is the evaluation latency in nanoseconds.
	DurationNanos uint64 `json:"duration_nanos"`
	// Metadata carries deployment metadata resolved from the audit.env
	// configuration, such as pod name or region.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Factory creates access log [Stream] instances.
//
// The factory pattern enables deferred initialization of streaming
// resources. Early initialization (validating configuration) should happen
// during factory construction; late initialization (opening connections,
// allocating buffers) belongs in [Factory.NewStream]. The engine guarantees
// that configuration is fully loaded before NewStream is called.
type Factory interface {
	// NewStream creates a new access log stream, ready to receive records.
	NewStream() (Stream, error)
}

// Stream is the interface for sending decision records to an audit
// destination.
//
// Implementations must be safe for concurrent use; the engine may call
// [Stream.Send] from multiple goroutines simultaneously.
type Stream interface {
	// Send delivers a record to the audit destination. Send must not
	// modify the record. The engine logs send errors but does not retry.
	Send(record *DecisionRecord) error

	// Close releases any resources held by the stream, flushing buffered
	// records first. The stream must not be used after Close.
	Close()
}
