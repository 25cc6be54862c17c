package types

import "github.com/holiman/uint256"

// Amount is a native-wei-denominated quantity. The gas package converts
// between this and Move's 8-decimal octa units (spec §4.6).
type Amount = uint256.Int
