package ir

import (
	"cmp"
	"fmt"
	"slices"
)

// IssueKind categorizes a scoped, non-fatal failure.
type IssueKind string

const (
	// IssueMalformedDefinition: a module definition does not parse. The module is
	// excluded from the automatic tiers and routed to curation.
	IssueMalformedDefinition IssueKind = "MALFORMED_DEFINITION"

	// IssueNestedModule: a definition embeds another module id.
	IssueNestedModule IssueKind = "NESTED_MODULE"

	// IssueMissingDefinitionField: a module entry has no definition.
	IssueMissingDefinitionField IssueKind = "MISSING_DEFINITION_FIELD"

	// IssueMissingOrthologyField: a module or reaction entry has no orthology field.
	IssueMissingOrthologyField IssueKind = "MISSING_ORTHOLOGY_FIELD"

	// IssueMissingCommentField: a reaction entry has no comment field.
	IssueMissingCommentField IssueKind = "MISSING_COMMENT_FIELD"

	// IssueUnresolvedCurationRow: a curated sheet row does not parse as a rule.
	IssueUnresolvedCurationRow IssueKind = "UNRESOLVED_CURATION_ROW"

	// IssueAmbiguousTierUnresolved: a reaction waits for curation.
	IssueAmbiguousTierUnresolved IssueKind = "AMBIGUOUS_TIER_UNRESOLVED"

	// IssueUnverifiedAddedModule: an added module could not be confirmed free of
	// complex operators, so its single-link shortcut was not trusted.
	IssueUnverifiedAddedModule IssueKind = "UNVERIFIED_ADDED_MODULE"

	// IssueUnlinkedReaction: a reaction of a complex module has no direct
	// ortholog link and the module's orthology table derives no rule for it.
	IssueUnlinkedReaction IssueKind = "UNLINKED_REACTION"
)

// Issue records one failure scoped to a module, reaction or curation row.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Subject string    `json:"subject"`        // module id, reaction id, or sheet path
	Tier    Tier      `json:"tier,omitempty"` // tier the subject was headed for
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"` // offending substring, row content, ...
}

// Error implements the error interface so issues can travel as errors.
func (i Issue) Error() string {
	if i.Tier != "" {
		return fmt.Sprintf("%s: %s [%s]: %s", i.Kind, i.Subject, i.Tier, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Kind, i.Subject, i.Message)
}

// SortIssues orders issues by kind, subject, tier, then message.
func SortIssues(issues []Issue) {
	slices.SortFunc(issues, func(a, b Issue) int {
		return cmp.Or(
			cmp.Compare(a.Kind, b.Kind),
			cmp.Compare(a.Subject, b.Subject),
			cmp.Compare(a.Tier, b.Tier),
			cmp.Compare(a.Message, b.Message),
		)
	})
}

// CountIssues returns the number of issues per kind.
func CountIssues(issues []Issue) map[IssueKind]int {
	out := make(map[IssueKind]int)
	for _, i := range issues {
		out[i.Kind]++
	}
	return out
}
