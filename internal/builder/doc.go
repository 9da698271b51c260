/*
Package builder turns a static configuration model (defined in the 'config'
package) into a runnable *pipeline.Pipeline.

Construction happens in three passes:

 1. Binding: every prepare, stage and hook block is bound to the preparer or
    action registered under its type label. Unknown types are reported.

 2. Static checks: arguments are checked against the handler's input struct,
    and every expression (`when` conditions and arguments) is scanned for
    variable references. Only `fact.*` and `param.*` are in scope, plus
    `run.*` inside hooks, and every referenced parameter must be declared.
    Timeouts and hook events are parsed.

 3. Validation: the assembled pipeline is validated for unique names.

All problems found are reported together. Arguments themselves are evaluated
late, when the stage or hook runs, so they can read the facts gathered by the
prepare phase.
*/
package builder
