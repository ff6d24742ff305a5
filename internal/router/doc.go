// Package router turns the typed layout tree into an ordered list of route
// rules and resolves a location to the applications that should be mounted
// for it.
//
// Element nodes are transparent to routing. Applications declared outside of
// every route are static: they belong to every rule. Nested routes join
// their paths with their parent's and inherit the parent's applications; the
// nested rule is emitted before its parent so the more specific one wins.
//
// Exactly one route must be marked default. It is chosen when no other rule
// matches, which makes resolution total.
package router
