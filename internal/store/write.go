package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/rxnmap/internal/aggregate"
	"github.com/roach88/rxnmap/internal/ir"
)

// Run is one aggregation result to persist.
type Run struct {
	// ID identifies the run. A new UUID is generated when empty.
	ID string
	// Source describes the inputs, typically the pipeline config path.
	Source string
	Report *aggregate.Report
}

// RunInfo is the summary row of a saved run.
type RunInfo struct {
	ID            string `json:"id"`
	Seq           int64  `json:"seq"`
	Source        string `json:"source"`
	MappingDigest string `json:"mapping_digest"`
	Reactions     int    `json:"reactions"`
	Pending       int    `json:"pending"`
	Issues        int    `json:"issues"`
	IRVersion     string `json:"ir_version"`
}

// SaveRun writes the run row, tier rules, canonical rules, issues and
// pending rows in one transaction.
//
// Saving an ID that already exists writes nothing and returns the stored
// summary.
func (s *Store) SaveRun(ctx context.Context, run Run) (RunInfo, error) {
	if run.Report == nil {
		return RunInfo{}, errors.New("save run: nil report")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	digest, err := run.Report.Mapping.Digest()
	if err != nil {
		return RunInfo{}, fmt.Errorf("save run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RunInfo{}, fmt.Errorf("save run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return RunInfo{}, fmt.Errorf("save run: next seq: %w", err)
	}

	info := RunInfo{
		ID:            run.ID,
		Seq:           seq,
		Source:        run.Source,
		MappingDigest: digest,
		Reactions:     run.Report.Mapping.Len(),
		Pending:       len(run.Report.PendingReactions()),
		Issues:        len(run.Report.Issues),
		IRVersion:     ir.SchemaVersion,
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, source, mapping_digest, reactions, pending, issues, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		info.ID,
		info.Seq,
		info.Source,
		info.MappingDigest,
		info.Reactions,
		info.Pending,
		info.Issues,
		info.IRVersion,
	)
	if err != nil {
		return RunInfo{}, fmt.Errorf("save run: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return RunInfo{}, fmt.Errorf("save run: %w", err)
	} else if n == 0 {
		return s.getRun(ctx, tx, run.ID)
	}

	for _, tier := range ir.AllTiers {
		if err := writeRules(ctx, tx, run.ID, string(tier), run.Report.Tiers[tier]); err != nil {
			return RunInfo{}, fmt.Errorf("save run: tier %s: %w", tier, err)
		}
	}
	if err := writeRules(ctx, tx, run.ID, "", run.Report.Mapping.Rules()); err != nil {
		return RunInfo{}, fmt.Errorf("save run: mapping: %w", err)
	}
	if err := writeIssues(ctx, tx, run.ID, run.Report.Issues); err != nil {
		return RunInfo{}, fmt.Errorf("save run: %w", err)
	}
	if err := writePending(ctx, tx, run.ID, run.Report.Pending); err != nil {
		return RunInfo{}, fmt.Errorf("save run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return RunInfo{}, fmt.Errorf("save run: commit: %w", err)
	}
	return info, nil
}

// writeRules stores rules of one tier, or the canonical mapping when tier
// is empty.
func writeRules(ctx context.Context, tx *sql.Tx, runID, tier string, rules ir.RuleMap) error {
	query := `INSERT INTO tier_rules (run_id, tier, reaction, clause) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`
	if tier == "" {
		query = `INSERT INTO mapping_rules (run_id, reaction, clause) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rules.Reactions() {
		for _, c := range rules[r].Clauses() {
			clause, err := marshalClause(c)
			if err != nil {
				return err
			}
			args := []any{runID, tier, string(r), clause}
			if tier == "" {
				args = []any{runID, string(r), clause}
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeIssues(ctx context.Context, tx *sql.Tx, runID string, issues []ir.Issue) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO issues (run_id, seq, kind, subject, tier, message, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write issues: %w", err)
	}
	defer stmt.Close()

	for i, issue := range issues {
		if _, err := stmt.ExecContext(ctx,
			runID,
			i+1,
			string(issue.Kind),
			issue.Subject,
			string(issue.Tier),
			issue.Message,
			issue.Detail,
		); err != nil {
			return fmt.Errorf("write issues: %w", err)
		}
	}
	return nil
}

func writePending(ctx context.Context, tx *sql.Tx, runID string, rows []aggregate.PendingReaction) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pending
		(run_id, tier, reaction, module, orthologs, enzymes, keywords, suggested, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write pending: %w", err)
	}
	defer stmt.Close()

	for _, p := range rows {
		orthologs, err := marshalIDs(p.Orthologs)
		if err != nil {
			return fmt.Errorf("write pending: %w", err)
		}
		enzymes, err := marshalIDs(p.Enzymes)
		if err != nil {
			return fmt.Errorf("write pending: %w", err)
		}
		keywords, err := marshalStrings(p.Keywords)
		if err != nil {
			return fmt.Errorf("write pending: %w", err)
		}
		suggested, err := marshalRuleSet(p.Suggested)
		if err != nil {
			return fmt.Errorf("write pending: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			runID,
			string(p.Tier),
			string(p.Reaction),
			string(p.Module),
			orthologs,
			enzymes,
			keywords,
			suggested,
			p.Reason,
		); err != nil {
			return fmt.Errorf("write pending: %w", err)
		}
	}
	return nil
}
