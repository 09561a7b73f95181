package solana

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte // decoded from base64
	Executable bool
	RentEpoch  uint64
}

// TokenAmount is the result of getTokenSupply.
type TokenAmount struct {
	Amount   string   // raw units
	Decimals int
	UIAmount *float64 // nil when the node omits it
}

// ProgramAccount is one entry of getProgramAccounts.
type ProgramAccount struct {
	Pubkey  string
	Account AccountInfo
}

// AccountFilter is a getProgramAccounts filter. Exactly one of DataSize or
// Memcmp should be set.
type AccountFilter struct {
	DataSize uint64
	Memcmp   *MemcmpFilter
}

// MemcmpFilter matches base58 bytes at an offset.
type MemcmpFilter struct {
	Offset uint64
	Bytes  string // base58
}

// DataSizeFilter returns a dataSize filter.
func DataSizeFilter(size uint64) AccountFilter {
	return AccountFilter{DataSize: size}
}

// MemcmpAt returns a memcmp filter.
func MemcmpAt(offset uint64, base58Bytes string) AccountFilter {
	return AccountFilter{Memcmp: &MemcmpFilter{Offset: offset, Bytes: base58Bytes}}
}

func (f AccountFilter) toParam() map[string]interface{} {
	if f.Memcmp != nil {
		return map[string]interface{}{
			"memcmp": map[string]interface{}{
				"offset": f.Memcmp.Offset,
				"bytes":  f.Memcmp.Bytes,
			},
		}
	}
	return map[string]interface{}{"dataSize": f.DataSize}
}
