// Package ir provides the canonical rule types shared by every rxnmap package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the rule model the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - A Clause is never empty and never holds duplicate identifiers
//   - RuleSets and RuleMaps are add-only; merging is set union, never replacement
//   - Every textual or JSON rendering is sorted, so equal sets serialize identically
//   - Canonical JSON (RFC 8785) is the only input to content digests
package ir
