// Package http is the REST and websocket surface of the reference backend.
//
// Every collection route is authenticated with a bearer JWT whose subject
// partitions the records. Writes are answered with the stored record and
// fanned out to the change feed of the collection, which clients follow
// over a websocket.
package http
