package domain

// HolderRecord is one token holder.
type HolderRecord struct {
	Wallet     string  `json:"wallet"`     // owner address
	Amount     float64 `json:"amount"`     // scaled by decimals
	Percentage float64 `json:"percentage"` // of total supply
	IsWallet   bool    `json:"isWallet"`   // on-curve key, not a PDA
}

// HolderDistribution is the ranked holder list of a mint, largest first.
type HolderDistribution struct {
	Mint  string         `json:"mint"`
	Count int            `json:"count"`
	Data  []HolderRecord `json:"data"`
}

// Address types reported by the address classifier.
const (
	AddressTypeProgram      = "program"
	AddressTypeWallet       = "wallet"
	AddressTypeTokenMint    = "tokenMint"
	AddressTypeTokenAccount = "tokenAccount"
	AddressTypeUnknown      = "unknown"
	AddressTypeInvalid      = "invalid"
)

// AddressInfo describes what lives at an address.
type AddressInfo struct {
	Address     string  `json:"address"`
	Type        string  `json:"type"`
	Owner       string  `json:"owner,omitempty"`
	ProgramName string  `json:"programName,omitempty"`
	Mint        string  `json:"mint,omitempty"`     // token accounts
	Decimals    *int    `json:"decimals,omitempty"` // mints
	Lamports    uint64  `json:"lamports"`
	Executable  bool    `json:"executable"`
	Error       string  `json:"error,omitempty"`
	Balance     float64 `json:"balance"` // SOL
}
