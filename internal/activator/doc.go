// Package activator drives every registered application through its
// lifecycle as the location changes.
//
// Each application has one Instance whose status moves through
//
//	NOT_MOUNTED -> MOUNTING -> MOUNTED -> UNMOUNTING -> NOT_MOUNTED
//
// with BROKEN reachable from any transition. A location change produces a
// batch: the router's desired set is diffed against the mounted set, all
// unmounts run concurrently and are joined, then all mounts run concurrently
// and are joined. Applications that stay desired are not touched.
//
// Batches never overlap. Notifications received while a batch runs are
// queued and processed in arrival order by a single worker, so an instance
// never has two transitions in flight. Failures of one application mark it
// BROKEN and are reported to observers; they never abort the batch or
// affect siblings.
package activator
