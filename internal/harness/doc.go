// Package harness runs aggregation scenarios.
//
// A scenario is a YAML fixture holding small module and reaction snapshots,
// link tables, curated rules and assertions about the resulting report.
// Scenarios double as golden tests: the canonical JSON snapshot of each
// report is compared with testdata/golden/{name}.golden.
//
// # Scenario Format
//
//	name: simple_module
//	description: "Reactions of a simple module map to single orthologs"
//	modules:
//	  M00001:
//	    definition: "K00001 K00002"
//	    orthologs: {K00001: "enzyme A"}
//	reactions:
//	  R00001: {comment: ""}
//	links:
//	  module_orthology: {M00001: [K00001, K00002]}
//	  module_reaction: {M00001: [R00001]}
//	  reaction_orthology: {R00001: [K00001]}
//	curated:
//	  "3": {R00002: "K00003+K00004"}
//	assertions:
//	  - type: mapping
//	    reaction: R00001
//	    rule: K00001
//
// reaction_module is derived from module_reaction; list it explicitly only
// for reactions of modules missing from the snapshot.
//
// # Assertion Types
//
//   - mapping: the canonical rule set of a reaction equals rule
//   - tier: a tier resolved the reaction, with rule when given
//   - pending: the reaction waits for curation, optionally in tier for module
//   - issue_count: exactly count issues of kind were raised
//   - absent: the reaction is missing from tier, or from the mapping
package harness
