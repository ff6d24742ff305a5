// Package loader defines the contract between the activator and remote
// application code, and provides the loaders used per deployment
// environment.
//
// A Loader resolves a registry descriptor into a mountable Application. The
// Mux picks a concrete loader from the scheme of the descriptor's locator:
// `http`/`https` (and protocol-relative `//host/...`) bundles are fetched by
// the HTTP loader, `local:<name>` applications are built by compiled-in
// factories registered on a Local loader.
package loader
