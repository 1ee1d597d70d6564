// Package server exposes a bore arena over HTTP and WebSocket.
//
// A server owns one arena. POST /mount replaces the mounted root, and
// GET /query and GET /wait run queries against it. POST /diff compares two
// markup strings without touching the arena. GET /ws accepts the same
// operations as JSON frames, each answered by a Reply with the request's id.
//
//	bore serve --addr :7357
//	curl -d '<div><b>hi</b></div>' localhost:7357/mount
//	curl 'localhost:7357/query?q=b'
package server
