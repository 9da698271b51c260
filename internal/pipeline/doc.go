// Package pipeline composes stages into groups and runs them.
//
// A Pipeline is an ordered list of top-level groups. Each group is either a
// Sequence, whose members run in declared order and stop at the first
// blocking failure, or a Parallel, whose members all start concurrently and
// are joined before the group completes. Groups nest freely.
//
// A Runner executes one Pipeline per call to Run: it resolves parameters,
// runs the preparers that populate the fact store, drives the groups,
// derives the verdict, dispatches finalization hooks and hands the report to
// every reporter exactly once.
package pipeline
