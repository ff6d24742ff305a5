// Package registry holds the set of remote applications known to the
// composition host.
//
// The Registry maps the names used in the layout (e.g. "@org/navbar") to
// their descriptors. It is populated once during startup, before any route
// is built or evaluated, and is read-only afterwards. Populating it is where
// duplicate names are caught, so that a layout can never reference two
// different applications by the same name.
package registry
