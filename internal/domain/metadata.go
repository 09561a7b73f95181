package domain

// ExternalMetadata holds descriptive fields fetched off-chain.
type ExternalMetadata struct {
	Name        string `json:"name,omitempty"`
	Symbol      string `json:"symbol,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	ShowName    bool   `json:"showName,omitempty"`
	CreatedOn   string `json:"createdOn,omitempty"`
	Twitter     string `json:"twitter,omitempty"`
	Website     string `json:"website,omitempty"`
	Telegram    string `json:"telegram,omitempty"`
}

// TokenMetadata is the normalized token description, whichever source produced it.
type TokenMetadata struct {
	Mint             string            `json:"mint"`
	Name             string            `json:"name"`
	Symbol           string            `json:"symbol"`
	Decimals         int               `json:"decimals"`
	Supply           string            `json:"supply"`                    // raw units, decimal string
	MintAuthority    *string           `json:"mintAuthority"`             // nullable
	FreezeAuthority  *string           `json:"freezeAuthority"`           // nullable
	UpdateAuthority  string            `json:"updateAuthority"`
	Creator          *string           `json:"creator"`                   // nullable
	URI              string            `json:"uri"`
	IsPumpfun        bool              `json:"isPumpfun"`
	ExternalMetadata *ExternalMetadata `json:"externalMetadata,omitempty"` // nullable
}
