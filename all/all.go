// Package all registers every registry backend via blank imports.
//
// Import it for side effects:
//
//	import _ "github.com/ghcr-tools/pkgsweep/all"
package all

import (
	_ "github.com/ghcr-tools/pkgsweep/internal/ghcr"
)
