// Package neograph implements the facts.GraphClient contract against a
// Neo4j knowledge graph. Entities are (:Entity {uuid, name, group_id,
// last_seen}) nodes and facts are [:RELATES_TO {uuid, predicate, text,
// valid_at}] relationships between them.
package neograph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/pkg/facts"
)

const fulltextIndex = "fact_text_index"

// Config holds Neo4j connection settings. GroupID, when set, scopes every
// read and write to one tenant's subgraph.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
	GroupID  string
}

// Client is a Neo4j-backed fact graph client.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
	groupID  string
	logger   *zap.Logger
}

// NewClient connects to Neo4j and verifies connectivity.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("connecting to neo4j at %s: %w", cfg.URI, err)
	}

	return &Client{
		driver:   driver,
		database: cfg.Database,
		groupID:  cfg.GroupID,
		logger:   logger,
	}, nil
}

func (c *Client) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: c.database,
	})
}

// SearchEdges runs a hybrid edge search: the fulltext relationship index
// when available, a CONTAINS scan otherwise. When focalUUID is non-empty,
// edges near the focal entity get a proximity boost added to their score.
func (c *Client) SearchEdges(ctx context.Context, query string, limit int, focalUUID string) ([]*facts.Fact, error) {
	session := c.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	params := map[string]interface{}{
		"query":     query,
		"limit":     limit,
		"focalUUID": focalUUID,
		"groupID":   c.groupID,
	}

	edges, err := c.runEdgeQuery(ctx, session, fulltextEdgeQuery, params)
	if err != nil {
		// Fulltext index may not exist on this deployment; fall back to
		// a CONTAINS scan.
		c.logger.Debug("fulltext edge search unavailable, using contains scan",
			zap.Error(err),
		)
		edges, err = c.runEdgeQuery(ctx, session, containsEdgeQuery, params)
		if err != nil {
			return nil, fmt.Errorf("searching edges: %w", err)
		}
	}

	return edges, nil
}

const fulltextEdgeQuery = `
CALL db.index.fulltext.queryRelationships('` + fulltextIndex + `', $query)
YIELD relationship AS r, score
MATCH (s:Entity)-[r]->(o:Entity)
WHERE $groupID = '' OR s.group_id = $groupID
OPTIONAL MATCH p = shortestPath((focal:Entity {uuid: $focalUUID})-[*..2]-(s))
WITH s, r, o, score + CASE WHEN p IS NULL THEN 0.0 ELSE 1.0 / (1 + length(p)) END AS relevance
RETURN r.uuid AS uuid, s.name AS subject, r.predicate AS predicate,
       o.name AS object, r.text AS text, r.valid_at AS valid_at,
       relevance
ORDER BY relevance DESC
LIMIT $limit
`

const containsEdgeQuery = `
MATCH (s:Entity)-[r:RELATES_TO]->(o:Entity)
WHERE ($groupID = '' OR s.group_id = $groupID)
  AND (toLower(r.text) CONTAINS toLower($query)
       OR toLower(s.name) CONTAINS toLower($query)
       OR toLower(o.name) CONTAINS toLower($query))
OPTIONAL MATCH p = shortestPath((focal:Entity {uuid: $focalUUID})-[*..2]-(s))
WITH s, r, o, 1.0 + CASE WHEN p IS NULL THEN 0.0 ELSE 1.0 / (1 + length(p)) END AS relevance
RETURN r.uuid AS uuid, s.name AS subject, r.predicate AS predicate,
       o.name AS object, r.text AS text, r.valid_at AS valid_at,
       relevance
ORDER BY relevance DESC
LIMIT $limit
`

func (c *Client) runEdgeQuery(ctx context.Context, session neo4j.SessionWithContext, query string, params map[string]interface{}) ([]*facts.Fact, error) {
	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}

	var edges []*facts.Fact
	for result.Next(ctx) {
		record := result.Record()
		edges = append(edges, &facts.Fact{
			UUID:      getString(record, "uuid"),
			Subject:   getString(record, "subject"),
			Predicate: getString(record, "predicate"),
			Object:    getString(record, "object"),
			Text:      getString(record, "text"),
			ValidAt:   getTime(record, "valid_at"),
			Relevance: getFloat(record, "relevance"),
		})
	}

	return edges, result.Err()
}

// SearchNodes finds entity nodes whose name matches, case-insensitively.
func (c *Client) SearchNodes(ctx context.Context, name string, limit int) ([]*facts.EntityNode, error) {
	session := c.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query := `
		MATCH (n:Entity)
		WHERE toLower(n.name) CONTAINS toLower($name)
		  AND ($groupID = '' OR n.group_id = $groupID)
		RETURN n.uuid AS uuid, n.name AS name, n.summary AS summary,
		       n.last_seen AS last_seen
		ORDER BY n.last_seen DESC
		LIMIT $limit
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"name":    name,
		"limit":   limit,
		"groupID": c.groupID,
	})
	if err != nil {
		return nil, fmt.Errorf("searching nodes: %w", err)
	}

	var nodes []*facts.EntityNode
	for result.Next(ctx) {
		record := result.Record()
		nodes = append(nodes, &facts.EntityNode{
			UUID:     getString(record, "uuid"),
			Name:     getString(record, "name"),
			Summary:  getString(record, "summary"),
			LastSeen: getTime(record, "last_seen"),
		})
	}

	return nodes, result.Err()
}

// MergeNodes folds dupUUID into canonicalUUID: every edge touching the
// duplicate is recreated on the canonical node, then the duplicate is
// removed.
func (c *Client) MergeNodes(ctx context.Context, canonicalUUID, dupUUID string) error {
	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	params := map[string]interface{}{
		"canonical": canonicalUUID,
		"dup":       dupUUID,
	}

	statements := []string{
		`MATCH (dup:Entity {uuid: $dup})-[r:RELATES_TO]->(t)
		 MATCH (canon:Entity {uuid: $canonical})
		 WHERE t.uuid <> $canonical
		 CREATE (canon)-[nr:RELATES_TO]->(t)
		 SET nr = properties(r)`,
		`MATCH (s)-[r:RELATES_TO]->(dup:Entity {uuid: $dup})
		 MATCH (canon:Entity {uuid: $canonical})
		 WHERE s.uuid <> $canonical
		 CREATE (s)-[nr:RELATES_TO]->(canon)
		 SET nr = properties(r)`,
		`MATCH (dup:Entity {uuid: $dup}) DETACH DELETE dup`,
	}

	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, params); err != nil {
			return fmt.Errorf("merging node %s into %s: %w", dupUUID, canonicalUUID, err)
		}
	}

	return nil
}

// DeleteEdge removes a fact edge. Already-deleted edges match nothing and
// the call succeeds, keeping curation idempotent.
func (c *Client) DeleteEdge(ctx context.Context, edgeUUID string) error {
	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	query := `MATCH ()-[r:RELATES_TO {uuid: $uuid}]->() DELETE r`

	if _, err := session.Run(ctx, query, map[string]interface{}{"uuid": edgeUUID}); err != nil {
		return fmt.Errorf("deleting edge %s: %w", edgeUUID, err)
	}

	return nil
}

// CreateFact records a new relationship, creating the subject and object
// entities when they do not exist yet.
func (c *Client) CreateFact(ctx context.Context, subject, predicate, object, text string) error {
	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	query := `
		MERGE (s:Entity {name: $subject, group_id: $groupID})
		ON CREATE SET s.uuid = $subjectUUID, s.last_seen = $now
		ON MATCH SET s.last_seen = $now
		MERGE (o:Entity {name: $object, group_id: $groupID})
		ON CREATE SET o.uuid = $objectUUID, o.last_seen = $now
		ON MATCH SET o.last_seen = $now
		CREATE (s)-[r:RELATES_TO {
			uuid: $edgeUUID,
			predicate: $predicate,
			text: $text,
			valid_at: $now
		}]->(o)
	`

	_, err := session.Run(ctx, query, map[string]interface{}{
		"subject":     subject,
		"predicate":   predicate,
		"object":      object,
		"text":        text,
		"groupID":     c.groupID,
		"subjectUUID": uuid.NewString(),
		"objectUUID":  uuid.NewString(),
		"edgeUUID":    uuid.NewString(),
		"now":         time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("creating fact: %w", err)
	}

	return nil
}

// Close shuts down the underlying driver.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func getString(record *neo4j.Record, key string) string {
	if v, ok := record.Get(key); ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getFloat(record *neo4j.Record, key string) float64 {
	if v, ok := record.Get(key); ok && v != nil {
		switch n := v.(type) {
		case float64:
			return n
		case int64:
			return float64(n)
		}
	}
	return 0
}

func getTime(record *neo4j.Record, key string) *time.Time {
	if v, ok := record.Get(key); ok && v != nil {
		if t, ok := v.(time.Time); ok {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

// Ensure Client implements facts.GraphClient.
var _ facts.GraphClient = (*Client)(nil)
