// Package validation checks form values against format and business rules.
//
// Validators never modify their input and never return Go errors for bad
// input. Every check produces a Result whose Errors block submission and
// whose Warnings are advisory only. Values are expected to have been run
// through package sanitize first.
//
// Email checks are delegated to an EmailOracle so that reputation and
// disposable-domain lookups can be swapped out. When the oracle fails the
// validator falls back to a basic format check.
package validation
