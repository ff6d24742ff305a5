// Package app contains the core application logic. It wires the layout
// engine together, serves the operator HTTP surface and owns the process
// lifecycle, decoupled from any specific entrypoint like a CLI.
package app
