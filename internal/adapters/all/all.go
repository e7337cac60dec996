// Package all imports all built-in source adapters for side-effect
// registration.
//
// Import this package from your main to ensure all adapters are registered:
//   import _ "github.com/oddspulse/oddspulse/internal/adapters/all"
package all

import (
	_ "github.com/oddspulse/oddspulse/internal/adapters/betika"
	_ "github.com/oddspulse/oddspulse/internal/adapters/betpawa"
	_ "github.com/oddspulse/oddspulse/internal/adapters/sporty"
)
