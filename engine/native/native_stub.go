//go:build !cgo || !randomx

package native

import "github.com/hupe1980/rxgo/engine"

// Available reports whether librandomx was compiled in.
const Available = false

// New reports that librandomx is not part of this build.
func New() (engine.Engine, error) {
	return nil, engine.ErrUnavailable
}
