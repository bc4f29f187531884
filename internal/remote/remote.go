// Package remote defines the authoritative document-store contract the sync
// engine writes against, and its failure taxonomy. The engine never talks to
// a concrete backend directly; everything goes through Store so tests can
// substitute a fake and the drain loop stays transport-agnostic.
package remote

import "context"

// Collection names used by the engine.
const (
	CollectionMessages = "messages"
	CollectionChats    = "chats"
	CollectionUsers    = "users"
)

// Predicate is the narrow query filter the engine needs: field equality.
type Predicate struct {
	Field  string
	Equals any
}

// Change is one document-level change delivered to a subscription callback.
type Change struct {
	Collection string
	ID         string
	Data       map[string]any
}

// Store is the remote document store. All calls may fail with a transport
// error the engine treats as retryable; see TransientError and RejectedError.
type Store interface {
	// Create inserts a document and returns its server-assigned id. If data
	// carries a "client_id" the backend must preserve it so lost acks can be
	// recovered by querying for it.
	Create(ctx context.Context, collection string, data map[string]any) (string, error)

	// Update applies a field patch to an existing document. Patching a
	// document that no longer exists is a rejection, not a transient failure.
	Update(ctx context.Context, collection, id string, patch map[string]any) error

	// Get returns a document by id, or nil if absent.
	Get(ctx context.Context, collection, id string) (map[string]any, error)

	// Query returns all documents matching the predicate.
	Query(ctx context.Context, collection string, pred Predicate) ([]map[string]any, error)

	// Subscribe invokes fn for every change to documents matching the
	// predicate until the returned cancel func is called. Cancel detaches
	// the listener synchronously.
	Subscribe(ctx context.Context, collection string, pred Predicate, fn func(Change)) (func(), error)
}
