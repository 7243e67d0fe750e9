package eth

// PoolFamily tags which AMM design a pool implements. It lives in this
// package (rather than internal/decode, where UserTradeParams lives)
// because the Chain View's DEX tables (KnownV2DEXes/KnownV3DEXes) are
// already indexed by it and every downstream package imports eth anyway.
type PoolFamily int

const (
	FamilyV2 PoolFamily = iota
	FamilyV3
)

// Other returns the opposite family — the involution the spec's data model
// requires (§3).
func (f PoolFamily) Other() PoolFamily {
	if f == FamilyV2 {
		return FamilyV3
	}
	return FamilyV2
}

func (f PoolFamily) String() string {
	if f == FamilyV2 {
		return "v2"
	}
	return "v3"
}
