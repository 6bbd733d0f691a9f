// Package curation sweeps the fact graph for low-quality edges: facts
// anchored on vague entities and exact duplicate relationships. The sweep
// is deliberately conservative; anything it deletes must be safe to lose,
// and a dry run reports what would go without touching the graph.
package curation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/pkg/facts"
)

// candidatesPerQuery bounds how many edges one sample query pulls in.
const candidatesPerQuery = 50

// IssueKind classifies a flagged edge.
type IssueKind string

const (
	IssueVagueEntity IssueKind = "vague_entity"
	IssueDuplicate   IssueKind = "duplicate"
)

// Issue is one flagged edge.
type Issue struct {
	Kind     IssueKind
	EdgeUUID string
	Detail   string
}

// Report summarizes one sweep.
type Report struct {
	Examined    int
	IssuesFound int
	Deleted     int
	DryRun      bool
	Issues      []Issue
}

// Curator runs curation sweeps against a fact graph.
type Curator struct {
	graph  facts.GraphClient
	logger *zap.Logger
}

// NewCurator creates a curator over the given graph client.
func NewCurator(graph facts.GraphClient, logger *zap.Logger) *Curator {
	return &Curator{graph: graph, logger: logger}
}

// Curate samples the graph through the given queries, flags vague and
// duplicate edges, and deletes the flagged ones unless dryRun is set.
// Deleting an edge that is already gone is silently fine, so overlapping
// sweeps and re-runs stay idempotent.
func (c *Curator) Curate(ctx context.Context, sampleQueries []string, dryRun bool) (*Report, error) {
	report := &Report{DryRun: dryRun}

	edges, err := c.sample(ctx, sampleQueries)
	if err != nil {
		return nil, err
	}
	report.Examined = len(edges)

	for _, f := range edges {
		if detail, vague := vagueDetail(f); vague {
			report.Issues = append(report.Issues, Issue{
				Kind:     IssueVagueEntity,
				EdgeUUID: f.UUID,
				Detail:   detail,
			})
		}
	}

	report.Issues = append(report.Issues, duplicateIssues(edges)...)
	report.IssuesFound = len(report.Issues)

	if dryRun {
		return report, nil
	}

	for _, issue := range report.Issues {
		if err := c.graph.DeleteEdge(ctx, issue.EdgeUUID); err != nil {
			c.logger.Warn("curation delete failed",
				zap.String("edge", issue.EdgeUUID),
				zap.Error(err),
			)
			continue
		}
		report.Deleted++
	}

	c.logger.Info("curation sweep finished",
		zap.Int("examined", report.Examined),
		zap.Int("issues", report.IssuesFound),
		zap.Int("deleted", report.Deleted),
	)

	return report, nil
}

// sample gathers distinct edges across the sample queries.
func (c *Curator) sample(ctx context.Context, queries []string) ([]*facts.Fact, error) {
	seen := make(map[string]struct{})
	var edges []*facts.Fact

	for _, q := range queries {
		hits, err := c.graph.SearchEdges(ctx, q, candidatesPerQuery, "")
		if err != nil {
			return nil, fmt.Errorf("sampling edges for %q: %w", q, err)
		}
		for _, f := range hits {
			if _, dup := seen[f.UUID]; dup {
				continue
			}
			seen[f.UUID] = struct{}{}
			edges = append(edges, f)
		}
	}

	return edges, nil
}

// vagueWords are entity names that carry no identity on their own.
var vagueWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "it": {}, "this": {}, "that": {},
	"me": {}, "i": {}, "you": {}, "user": {}, "them": {}, "they": {},
	"someone": {}, "something": {}, "thing": {}, "stuff": {},
}

func vagueDetail(f *facts.Fact) (string, bool) {
	if vague, why := vagueEntity(f.Subject); vague {
		return fmt.Sprintf("subject %q is %s", f.Subject, why), true
	}
	if vague, why := vagueEntity(f.Object); vague {
		return fmt.Sprintf("object %q is %s", f.Object, why), true
	}
	return "", false
}

func vagueEntity(name string) (bool, string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return true, "empty"
	}
	if utf8.RuneCountInString(trimmed) == 1 {
		return true, "a single character"
	}
	if _, generic := vagueWords[strings.ToLower(trimmed)]; generic {
		return true, "a generic reference"
	}
	return false, ""
}

// duplicateIssues flags every edge in a duplicate signature group except
// the most recent. Undated edges always lose to dated ones.
func duplicateIssues(edges []*facts.Fact) []Issue {
	groups := make(map[string][]*facts.Fact)
	for _, f := range edges {
		groups[signature(f)] = append(groups[signature(f)], f)
	}

	var issues []Issue
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}

		sort.SliceStable(group, func(i, j int) bool {
			return newerThan(group[i], group[j])
		})

		for _, f := range group[1:] {
			issues = append(issues, Issue{
				Kind:     IssueDuplicate,
				EdgeUUID: f.UUID,
				Detail:   fmt.Sprintf("duplicate of %s %s %s", f.Subject, f.Predicate, f.Object),
			})
		}
	}

	return issues
}

func signature(f *facts.Fact) string {
	return strings.ToLower(strings.TrimSpace(f.Subject)) + "\x00" +
		strings.ToLower(strings.TrimSpace(f.Predicate)) + "\x00" +
		strings.ToLower(strings.TrimSpace(f.Object))
}

func newerThan(a, b *facts.Fact) bool {
	switch {
	case a.ValidAt == nil:
		return false
	case b.ValidAt == nil:
		return true
	default:
		return a.ValidAt.After(*b.ValidAt)
	}
}
