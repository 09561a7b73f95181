package stub

import (
	"context"
	"errors"
	"sync"

	"token-intel/internal/solana"
)

// ErrNotFound is returned when a transaction is not found.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
// Err* fields, when set, are returned by the matching method.
type RPCClient struct {
	mu sync.Mutex

	Accounts        map[string]*solana.AccountInfo
	Supplies        map[string]*solana.TokenAmount
	ProgramAccounts map[string][]solana.ProgramAccount // by program ID
	Transactions    map[string]*solana.Transaction
	Signatures      map[string][]solana.SignatureInfo
	BlockHeight     uint64

	ErrBlockHeight     error
	ErrAccountInfo     error
	ErrTokenSupply     error
	ErrProgramAccounts error

	Calls map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts:        make(map[string]*solana.AccountInfo),
		Supplies:        make(map[string]*solana.TokenAmount),
		ProgramAccounts: make(map[string][]solana.ProgramAccount),
		Transactions:    make(map[string]*solana.Transaction),
		Signatures:      make(map[string][]solana.SignatureInfo),
		BlockHeight:     1,
		Calls:           make(map[string]int),
	}
}

func (c *RPCClient) record(method string) {
	c.mu.Lock()
	c.Calls[method]++
	c.mu.Unlock()
}

// CallCount returns how many times method was invoked.
func (c *RPCClient) CallCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls[method]
}

// GetBlockHeight returns the configured height or ErrBlockHeight.
func (c *RPCClient) GetBlockHeight(_ context.Context) (uint64, error) {
	c.record("getBlockHeight")
	if c.ErrBlockHeight != nil {
		return 0, c.ErrBlockHeight
	}
	return c.BlockHeight, nil
}

// GetAccountInfo returns a stored account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.record("getAccountInfo")
	if c.ErrAccountInfo != nil {
		return nil, c.ErrAccountInfo
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.Accounts[pubkey]
	if !ok {
		return nil, nil
	}
	cp := *info
	return &cp, nil
}

// GetTokenSupply returns a stored supply or nil.
func (c *RPCClient) GetTokenSupply(_ context.Context, mint string) (*solana.TokenAmount, error) {
	c.record("getTokenSupply")
	if c.ErrTokenSupply != nil {
		return nil, c.ErrTokenSupply
	}
	return c.Supplies[mint], nil
}

// GetProgramAccounts returns the accounts stored for programID. Filters are not applied.
func (c *RPCClient) GetProgramAccounts(_ context.Context, programID string, _ []solana.AccountFilter) ([]solana.ProgramAccount, error) {
	c.record("getProgramAccounts")
	if c.ErrProgramAccounts != nil {
		return nil, c.ErrProgramAccounts
	}
	return c.ProgramAccounts[programID], nil
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.record("getTransaction")
	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

// GetSignaturesForAddress pages through stored signatures honoring Before and Limit.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.record("getSignaturesForAddress")
	sigs := c.Signatures[address]

	if opts != nil && opts.Before != "" {
		for i, s := range sigs {
			if s.Signature == opts.Before {
				sigs = sigs[i+1:]
				break
			}
		}
	}

	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		return sigs[:opts.Limit], nil
	}

	return sigs, nil
}

// AddAccount stores account info under pubkey.
func (c *RPCClient) AddAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	c.Accounts[pubkey] = info
	c.mu.Unlock()
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.Transactions[tx.Signature] = tx
}

// AddSignatures adds signatures for an address to the stub store.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.Signatures[address] = sigs
}

var _ solana.RPCClient = (*RPCClient)(nil)
