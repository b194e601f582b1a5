package curation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/roach88/rxnmap/internal/ir"
)

// Default column names of a curated sheet.
const (
	DefaultReactionColumn = "Reaction"
	DefaultRuleColumn     = "Rule"
)

// Sheet describes one curated CSV file.
type Sheet struct {
	Tier           ir.Tier
	Path           string
	ReactionColumn string
	RuleColumn     string
	// Skip lists cell values that mark a row as not curated ("NA").
	Skip []string
	// SkipColumn is checked against Skip in addition to the rule column.
	SkipColumn string
}

func (s Sheet) reactionColumn() string {
	if s.ReactionColumn == "" {
		return DefaultReactionColumn
	}
	return s.ReactionColumn
}

func (s Sheet) ruleColumn() string {
	if s.RuleColumn == "" {
		return DefaultRuleColumn
	}
	return s.RuleColumn
}

func (s Sheet) skipped(cell string) bool {
	return cell == "" || slices.Contains(s.Skip, cell)
}

// SheetError reports a sheet that cannot be read at all.
type SheetError struct {
	Path    string
	Message string
	Err     error
}

func (e *SheetError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SheetError) Unwrap() error { return e.Err }

// ReadSheet reads curated rules from CSV. The first record is the header.
// Rows with an empty or skipped rule are ignored. Rows that cannot be
// parsed, including rows that are not valid CSV, are reported as
// UnresolvedCurationRow issues and the remaining rows are still read. The
// error is non-nil only when the sheet cannot be read or lacks a required
// column.
func ReadSheet(r io.Reader, sheet Sheet) (ir.RuleMap, []ir.Issue, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return make(ir.RuleMap), nil, nil
	}
	if err != nil {
		return nil, nil, &SheetError{Path: sheet.Path, Message: "cannot read header", Err: err}
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	var missing []string
	reactionIdx, ok := index[sheet.reactionColumn()]
	if !ok {
		missing = append(missing, sheet.reactionColumn())
	}
	ruleIdx, ok := index[sheet.ruleColumn()]
	if !ok {
		missing = append(missing, sheet.ruleColumn())
	}
	skipIdx := -1
	if sheet.SkipColumn != "" {
		if skipIdx, ok = index[sheet.SkipColumn]; !ok {
			missing = append(missing, sheet.SkipColumn)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &SheetError{
			Path:    sheet.Path,
			Message: fmt.Sprintf("missing column(s) %s", strings.Join(missing, ", ")),
		}
	}

	rules := make(ir.RuleMap)
	var issues []ir.Issue
	cell := func(record []string, i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			// The reader resumes on the next line.
			issues = append(issues, unresolvedRow(sheet, fmt.Sprintf("row %d", pe.StartLine), pe.StartLine,
				sheet.ruleColumn(), "", "malformed CSV row: "+pe.Err.Error()))
			continue
		}
		if err != nil {
			return nil, nil, &SheetError{Path: sheet.Path, Message: "cannot read rows", Err: err}
		}
		row, _ := cr.FieldPos(0)

		ruleText := cell(record, ruleIdx)
		if sheet.skipped(ruleText) || (skipIdx >= 0 && slices.Contains(sheet.Skip, cell(record, skipIdx))) {
			continue
		}

		reaction := cell(record, reactionIdx)
		if reaction == "" {
			issues = append(issues, unresolvedRow(sheet, fmt.Sprintf("row %d", row), row,
				sheet.reactionColumn(), ruleText, "row has a rule but no reaction"))
			continue
		}
		rs, err := ParseRule(ruleText)
		if err != nil {
			issues = append(issues, unresolvedRow(sheet, reaction, row, sheet.ruleColumn(), ruleText, err.Error()))
			continue
		}
		rules.Merge(ir.Identifier(reaction), rs)
	}
	return rules, issues, nil
}

func unresolvedRow(sheet Sheet, subject string, row int, column, content, msg string) ir.Issue {
	detail := fmt.Sprintf("row %d column %s: %q", row, column, content)
	if sheet.Path != "" {
		detail = sheet.Path + " " + detail
	}
	return ir.Issue{
		Kind:    ir.IssueUnresolvedCurationRow,
		Subject: subject,
		Tier:    sheet.Tier,
		Message: msg,
		Detail:  detail,
	}
}

// ReadSheetFile opens sheet.Path and reads it.
func ReadSheetFile(sheet Sheet) (ir.RuleMap, []ir.Issue, error) {
	f, err := os.Open(sheet.Path)
	if err != nil {
		return nil, nil, &SheetError{Path: sheet.Path, Message: "cannot open", Err: err}
	}
	defer f.Close()
	return ReadSheet(f, sheet)
}

// ReadSheets reads every sheet and groups the rules by tier. Sheets of the
// same tier are unioned.
func ReadSheets(sheets []Sheet) (map[ir.Tier]ir.RuleMap, []ir.Issue, error) {
	out := make(map[ir.Tier]ir.RuleMap)
	var issues []ir.Issue
	var errs []error
	for _, sheet := range sheets {
		if !sheet.Tier.Curated() {
			errs = append(errs, &SheetError{
				Path:    sheet.Path,
				Message: fmt.Sprintf("tier %q does not accept curated rules", sheet.Tier),
			})
			continue
		}
		rules, sheetIssues, err := ReadSheetFile(sheet)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if out[sheet.Tier] == nil {
			out[sheet.Tier] = make(ir.RuleMap)
		}
		out[sheet.Tier].MergeAll(rules)
		issues = append(issues, sheetIssues...)
	}
	return out, issues, errors.Join(errs...)
}
