package domain

// CurveState is a decoded pump.fun bonding curve account.
// Snapshot of one account read; never cached.
type CurveState struct {
	VirtualTokenReserves uint64 `json:"virtualTokenReserves"`
	VirtualSolReserves   uint64 `json:"virtualSolReserves"`
	RealTokenReserves    uint64 `json:"realTokenReserves"`
	RealSolReserves      uint64 `json:"realSolReserves"`
	TokenTotalSupply     uint64 `json:"tokenTotalSupply"`
	Complete             bool   `json:"complete"`
}

// CurveProgress describes how far a bonding curve is from completion.
// Integer fields are decimal strings to survive JSON consumers without 64-bit ints.
type CurveProgress struct {
	BondingCurveProgress     string  `json:"bondingCurveProgress"`
	RealTokenReserves        string  `json:"realTokenReserves"`
	TokenTotalSupply         string  `json:"tokenTotalSupply"`
	InitialRealTokenReserves string  `json:"initialRealTokenReserves"`
	PercentComplete          float64 `json:"percentComplete"`
}

// CurveInfo bundles the curve addresses with the decoded state.
type CurveInfo struct {
	Mint                   string     `json:"mint"`
	BondingCurve           string     `json:"bondingCurve"`
	AssociatedBondingCurve string     `json:"associatedBondingCurve"`
	State                  CurveState `json:"state"`
}
