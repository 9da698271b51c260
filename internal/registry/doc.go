// Package registry provides the central "glue" for the module system.
//
// The Registry maps the type labels used in pipeline files (the "shell" in
// `stage "shell" "compile"`) to the compiled Go functions and input structs
// that implement them. Modules register actions, which stages and hooks
// invoke, and preparers, which populate the fact store before a run.
//
// During application startup the registry is populated and then validated,
// so that malformed input structs are reported before any pipeline is built.
package registry
