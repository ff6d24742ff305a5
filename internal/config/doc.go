// Package config defines the format-agnostic configuration model for the
// composition host, along with the Loader interface for reading it from
// various sources.
//
// The `config.Model` is the single source of truth for the `registry` and
// `router` packages. Concrete loaders, such as the HCL one, are provided in
// separate packages.
package config
