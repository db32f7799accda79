package oracle

import (
	"fmt"
	"strings"
)

// CursorPolicy decides how far the handle cursor moves after each pool.
type CursorPolicy int

const (
	// CursorAdvanceAll consumes a pool handle and all of its dependency
	// handles for every pool. The handle count must match the registry
	// exactly.
	CursorAdvanceAll CursorPolicy = iota
	// CursorLegacy reproduces the deployed program: a whirlpool slot
	// advances the cursor by one, a CLMM slot does not advance it, and
	// dependency handles are never consumed.
	CursorLegacy
)

func (p CursorPolicy) String() string {
	switch p {
	case CursorAdvanceAll:
		return "advance-all"
	case CursorLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("CursorPolicy(%d)", int(p))
	}
}

// ParseCursorPolicy accepts the names printed by String. The empty string
// selects CursorAdvanceAll.
func ParseCursorPolicy(s string) (CursorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "advance-all":
		return CursorAdvanceAll, nil
	case "legacy":
		return CursorLegacy, nil
	default:
		return 0, fmt.Errorf("unknown cursor policy %q", s)
	}
}
