// Package native binds librandomx through cgo.
//
// The binding is compiled only with the "randomx" build tag and cgo
// enabled, and links against an installed librandomx:
//
//	go build -tags randomx ./...
//
// Without the tag the package still compiles, New returns
// engine.ErrUnavailable and nothing is registered, so rxgo falls back to
// the pure-Go reference engine.
package native
