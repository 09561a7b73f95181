package holders

import (
	"context"
	"fmt"

	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/remeh/sizedwaitgroup"
	"github.com/sirupsen/logrus"

	"token-intel/internal/domain"
	"token-intel/internal/logger"
	"token-intel/internal/solana"
)

// DefaultClassifyConcurrency bounds in-flight lookups in ClassifyAll.
const DefaultClassifyConcurrency = 8

const mintAccountSize = 82

var programNames = map[string]string{
	solana.SystemProgram:          "System",
	solana.TokenProgram:           "Token",
	solana.Token2022Program:       "Token-2022",
	solana.AssociatedTokenProgram: "AssociatedToken",
	solana.MetadataProgram:        "TokenMetadata",
	solana.PumpFunProgram:         "PumpFun",
}

// ProgramName returns the display name of a well-known program, or "unknown".
func ProgramName(programID string) string {
	if name, ok := programNames[programID]; ok {
		return name
	}
	return "unknown"
}

// Classifier resolves what kind of account lives at an address.
type Classifier struct {
	rpc         solana.RPCClient
	concurrency int
	log         *logrus.Entry
}

// NewClassifier creates a Classifier. concurrency <= 0 uses DefaultClassifyConcurrency.
func NewClassifier(rpc solana.RPCClient, concurrency int, log *logrus.Entry) *Classifier {
	if concurrency <= 0 {
		concurrency = DefaultClassifyConcurrency
	}
	return &Classifier{rpc: rpc, concurrency: concurrency, log: logger.OrDiscard(log, "classifier")}
}

// Classify reads the account at address and reports its type.
func (c *Classifier) Classify(ctx context.Context, address string) (domain.AddressInfo, error) {
	info := domain.AddressInfo{Address: address}
	if !solana.IsValidAddress(address) {
		info.Type = domain.AddressTypeInvalid
		return info, fmt.Errorf("%w: invalid address %q", domain.ErrValidation, address)
	}

	acc, err := c.rpc.GetAccountInfo(ctx, address)
	if err != nil {
		info.Type = domain.AddressTypeUnknown
		return info, fmt.Errorf("%w: account %s: %v", domain.ErrUpstream, address, err)
	}
	if acc == nil {
		// Unfunded keypairs have no account yet.
		if solana.IsOnCurveAddress(address) {
			info.Type = domain.AddressTypeWallet
		} else {
			info.Type = domain.AddressTypeUnknown
		}
		return info, nil
	}

	info.Owner = acc.Owner
	info.Lamports = acc.Lamports
	info.Executable = acc.Executable
	info.Balance = float64(acc.Lamports) / float64(solana.LamportsPerSOL)

	switch {
	case acc.Executable:
		info.Type = domain.AddressTypeProgram
		info.ProgramName = ProgramName(address)
	case acc.Owner == solana.SystemProgram:
		info.Type = domain.AddressTypeWallet
	case acc.Owner == solana.TokenProgram || acc.Owner == solana.Token2022Program:
		c.classifyTokenAccount(&info, acc.Data)
	default:
		info.Type = domain.AddressTypeProgram
		info.ProgramName = ProgramName(acc.Owner)
	}
	return info, nil
}

func (c *Classifier) classifyTokenAccount(info *domain.AddressInfo, data []byte) {
	info.ProgramName = ProgramName(info.Owner)
	switch {
	case len(data) == mintAccountSize:
		m, err := token.MintAccountFromData(data)
		if err != nil {
			break
		}
		d := int(m.Decimals)
		info.Type = domain.AddressTypeTokenMint
		info.Decimals = &d
		return
	case len(data) >= TokenAccountSize:
		ta, err := token.TokenAccountFromData(data[:TokenAccountSize])
		if err != nil {
			break
		}
		info.Type = domain.AddressTypeTokenAccount
		info.Mint = ta.Mint.ToBase58()
		return
	}
	info.Type = domain.AddressTypeUnknown
}

// ClassifyAll classifies every address concurrently. Each lookup settles on
// its own: a failure is recorded in that entry's Error and never cancels the
// others. Results keep the input order.
func (c *Classifier) ClassifyAll(ctx context.Context, addresses []string) []domain.AddressInfo {
	out := make([]domain.AddressInfo, len(addresses))
	swg := sizedwaitgroup.New(c.concurrency)

	for i, addr := range addresses {
		swg.Add()
		go func(i int, addr string) {
			defer swg.Done()
			info, err := c.Classify(ctx, addr)
			if err != nil {
				c.log.WithField("address", addr).WithError(err).Debug("classification failed")
				info.Error = err.Error()
			}
			out[i] = info
		}(i, addr)
	}

	swg.Wait()
	return out
}
