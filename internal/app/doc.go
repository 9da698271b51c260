// Package app contains the core application logic. It wires the HCL loader,
// the module registry and the pipeline runner together, decoupled from any
// specific entrypoint like a CLI or server.
package app
