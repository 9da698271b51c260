// Package condition evaluates stage run conditions.
//
// A condition is a pure predicate over the fact store and the run
// parameters. Conditions can be composed in Go with the combinators in this
// package, or written as HCL expressions (see Expr) such as
//
//	fact.isMaven && param.branch == "main"
//	has_fact("sonarConfigured")
//
// Referencing a fact that was never set, or a parameter that was never
// declared, is an evaluation error (ConditionError) and never evaluates to
// false. Combinators evaluate every operand, so a typo hidden behind an
// earlier operand is still reported.
package condition
