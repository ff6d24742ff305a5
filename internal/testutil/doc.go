// Package testutil provides the end-to-end harness shared by the
// integration tests: layout files on disk, a live engine and fake remote
// bundle servers.
package testutil
