// Package websocket pushes extraction progress events to browser clients.
//
// The hub owns the client set and fans every event out over per-client
// buffered channels. A client that cannot drain its buffer is dropped rather
// than allowed to stall the broadcast loop.
package websocket
