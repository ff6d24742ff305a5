// Package navigation is the host's navigation facility: an in-process
// history that publishes location changes on an event bus, and a socket.io
// relay that feeds locations from a remote navigation hub into it.
package navigation
