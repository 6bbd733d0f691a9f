// Package facts retrieves relationship facts from an external knowledge
// graph and reranks them for recall: fresher facts outrank stale ones and
// near-duplicate relationships are deduplicated so a burst of activity on
// one entity pair cannot crowd out the rest of the result set.
package facts

import (
	"context"
	"time"
)

// Fact is a single relationship edge returned by the graph, annotated with
// the graph's own relevance score. ValidAt is the moment the fact became
// true; nil when the graph never learned it.
type Fact struct {
	UUID      string
	Subject   string
	Predicate string
	Object    string
	Text      string
	ValidAt   *time.Time
	Relevance float64
}

// EntityNode is an entity in the graph, used for focal resolution and
// curation.
type EntityNode struct {
	UUID     string
	Name     string
	Summary  string
	LastSeen *time.Time
}

// ResultKind discriminates the Result variant.
type ResultKind string

const (
	KindNode ResultKind = "node"
	KindEdge ResultKind = "edge"
)

// Result is a tagged union over graph search results. Exactly one of Node
// or Edge is set, according to Kind.
type Result struct {
	Kind ResultKind
	Node *EntityNode
	Edge *Fact
}

// GraphClient is the contract with the external knowledge graph. The
// adapter owns reranking; the client owns transport and query shape.
type GraphClient interface {
	// SearchEdges runs the graph's hybrid ranking (keyword + similarity,
	// plus proximity to focalUUID when non-empty) and returns up to limit
	// edges ordered by graph relevance.
	SearchEdges(ctx context.Context, query string, limit int, focalUUID string) ([]*Fact, error)

	// SearchNodes finds entity nodes by name.
	SearchNodes(ctx context.Context, name string, limit int) ([]*EntityNode, error)

	// MergeNodes folds the duplicate node into the canonical one,
	// re-pointing its edges.
	MergeNodes(ctx context.Context, canonicalUUID, dupUUID string) error

	// DeleteEdge removes an edge. Deleting an edge that is already gone
	// is not an error.
	DeleteEdge(ctx context.Context, uuid string) error

	// CreateFact records a new relationship edge.
	CreateFact(ctx context.Context, subject, predicate, object, text string) error

	Close(ctx context.Context) error
}
