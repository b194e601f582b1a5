package store

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/rxnmap/internal/aggregate"
	"github.com/roach88/rxnmap/internal/ir"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("not found")

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const runColumns = `id, seq, source, mapping_digest, reactions, pending, issues, ir_version`

func scanRun(scan func(dest ...any) error) (RunInfo, error) {
	var info RunInfo
	err := scan(
		&info.ID,
		&info.Seq,
		&info.Source,
		&info.MappingDigest,
		&info.Reactions,
		&info.Pending,
		&info.Issues,
		&info.IRVersion,
	)
	return info, err
}

func (s *Store) getRun(ctx context.Context, q queryer, id string) (RunInfo, error) {
	row := q.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	info, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return RunInfo{}, fmt.Errorf("read run: %w", err)
	}
	return info, nil
}

// GetRun returns the summary of run id.
func (s *Store) GetRun(ctx context.Context, id string) (RunInfo, error) {
	return s.getRun(ctx, s.db, id)
}

// LatestRun returns the run with the highest seq.
func (s *Store) LatestRun(ctx context.Context) (RunInfo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq DESC LIMIT 1`)
	info, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, fmt.Errorf("latest run: %w", ErrNotFound)
	}
	if err != nil {
		return RunInfo{}, fmt.Errorf("latest run: %w", err)
	}
	return info, nil
}

// ListRuns returns every run ordered by seq.
// Returns an empty slice (not nil) when the store has no runs.
func (s *Store) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunInfo{}
	for rows.Next() {
		info, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadMapping returns the canonical mapping of a run.
func (s *Store) ReadMapping(ctx context.Context, runID string) (ir.RuleMap, error) {
	return s.readRules(ctx, `
		SELECT reaction, clause FROM mapping_rules
		WHERE run_id = ?
		ORDER BY reaction COLLATE BINARY ASC, clause COLLATE BINARY ASC
	`, runID)
}

// ReadTier returns the rules one tier contributed to a run.
func (s *Store) ReadTier(ctx context.Context, runID string, tier ir.Tier) (ir.RuleMap, error) {
	return s.readRules(ctx, `
		SELECT reaction, clause FROM tier_rules
		WHERE run_id = ? AND tier = ?
		ORDER BY reaction COLLATE BINARY ASC, clause COLLATE BINARY ASC
	`, runID, string(tier))
}

func (s *Store) readRules(ctx context.Context, query string, args ...any) (ir.RuleMap, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	rules := make(ir.RuleMap)
	for rows.Next() {
		var reaction, clauseJSON string
		if err := rows.Scan(&reaction, &clauseJSON); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		c, err := unmarshalClause(clauseJSON)
		if err != nil {
			return nil, err
		}
		rules.Add(ir.Identifier(reaction), c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return rules, nil
}

// ReadIssues returns the issues of a run in the order they were saved.
func (s *Store) ReadIssues(ctx context.Context, runID string) ([]ir.Issue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, subject, tier, message, detail FROM issues
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer rows.Close()

	issues := []ir.Issue{}
	for rows.Next() {
		var issue ir.Issue
		var kind, tier string
		if err := rows.Scan(&kind, &issue.Subject, &tier, &issue.Message, &issue.Detail); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issue.Kind = ir.IssueKind(kind)
		issue.Tier = ir.Tier(tier)
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issues: %w", err)
	}
	return issues, nil
}

// ReadPending returns the pending rows of a run, ordered by tier position,
// reaction and module.
func (s *Store) ReadPending(ctx context.Context, runID string) ([]aggregate.PendingReaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tier, reaction, module, orthologs, enzymes, keywords, suggested, reason
		FROM pending
		WHERE run_id = ?
		ORDER BY reaction COLLATE BINARY ASC, module COLLATE BINARY ASC, tier COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close()

	pending := []aggregate.PendingReaction{}
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending: %w", err)
	}
	slices.SortStableFunc(pending, func(a, b aggregate.PendingReaction) int {
		return cmp.Compare(a.Tier.Index(), b.Tier.Index())
	})
	return pending, nil
}

func scanPending(rows *sql.Rows) (aggregate.PendingReaction, error) {
	var p aggregate.PendingReaction
	var tier, reaction, module, orthologs, enzymes, keywords, suggested string
	if err := rows.Scan(&tier, &reaction, &module, &orthologs, &enzymes, &keywords, &suggested, &p.Reason); err != nil {
		return p, fmt.Errorf("scan pending: %w", err)
	}
	p.Tier = ir.Tier(tier)
	p.Reaction = ir.Identifier(reaction)
	p.Module = ir.Identifier(module)

	var err error
	if p.Orthologs, err = unmarshalIDs(orthologs); err != nil {
		return p, err
	}
	if p.Enzymes, err = unmarshalIDs(enzymes); err != nil {
		return p, err
	}
	if p.Keywords, err = unmarshalStrings(keywords); err != nil {
		return p, err
	}
	if p.Suggested, err = unmarshalRuleSet(suggested); err != nil {
		return p, err
	}
	return p, nil
}
