package metadata

import (
	"context"
	"fmt"
	"strings"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/sirupsen/logrus"

	"token-intel/internal/domain"
	"token-intel/internal/httpclient"
	"token-intel/internal/logger"
	"token-intel/internal/solana"
)

const mintAccountSize = 82

// MetaplexReader reads the token metadata program account of a mint.
type MetaplexReader struct {
	rpc  solana.RPCClient
	http *httpclient.Client // nil skips the off-chain JSON fetch
	log  *logrus.Entry
}

// NewMetaplexReader creates a reader. hc fetches the JSON document at the
// metadata URI; pass nil to skip it.
func NewMetaplexReader(rpc solana.RPCClient, hc *httpclient.Client, log *logrus.Entry) *MetaplexReader {
	return &MetaplexReader{rpc: rpc, http: hc, log: logger.OrDiscard(log, "metaplex")}
}

// MetadataAddress derives the metadata account of mint.
func MetadataAddress(mint string) (string, error) {
	if !solana.IsValidAddress(mint) {
		return "", fmt.Errorf("%w: invalid mint %q", domain.ErrValidation, mint)
	}
	pda, err := token_metadata.GetTokenMetaPubkey(common.PublicKeyFromString(mint))
	if err != nil {
		return "", fmt.Errorf("derive metadata address: %w", err)
	}
	return pda.ToBase58(), nil
}

// Fetch reads the metadata and mint accounts of mint.
func (r *MetaplexReader) Fetch(ctx context.Context, mint string) (*MetaplexRecord, error) {
	metaAddr, err := MetadataAddress(mint)
	if err != nil {
		return nil, err
	}

	metaAcc, err := r.rpc.GetAccountInfo(ctx, metaAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata account %s: %v", domain.ErrUpstream, metaAddr, err)
	}
	if metaAcc == nil {
		return nil, fmt.Errorf("%w: no metadata account for %s", domain.ErrNotFound, mint)
	}
	meta, err := token_metadata.MetadataDeserialize(metaAcc.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata account %s: %v", domain.ErrFormat, metaAddr, err)
	}

	mintAcc, err := r.rpc.GetAccountInfo(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("%w: mint account %s: %v", domain.ErrUpstream, mint, err)
	}
	if mintAcc == nil {
		return nil, fmt.Errorf("%w: mint %s", domain.ErrNotFound, mint)
	}
	if len(mintAcc.Data) < mintAccountSize {
		return nil, fmt.Errorf("%w: mint account %s is %d bytes", domain.ErrFormat, mint, len(mintAcc.Data))
	}
	mintInfo, err := token.MintAccountFromData(mintAcc.Data[:mintAccountSize])
	if err != nil {
		return nil, fmt.Errorf("%w: mint account %s: %v", domain.ErrFormat, mint, err)
	}

	rec := &MetaplexRecord{
		Mint:            mint,
		Name:            trimPadding(meta.Data.Name),
		Symbol:          trimPadding(meta.Data.Symbol),
		URI:             trimPadding(meta.Data.Uri),
		Decimals:        mintInfo.Decimals,
		Supply:          mintInfo.Supply,
		MintAuthority:   optionalKey(mintInfo.MintAuthority),
		FreezeAuthority: optionalKey(mintInfo.FreezeAuthority),
		UpdateAuthority: meta.UpdateAuthority.ToBase58(),
	}
	if meta.Data.Creators != nil {
		for _, c := range *meta.Data.Creators {
			rec.Creators = append(rec.Creators, c.Address.ToBase58())
		}
	}
	rec.External = r.external(ctx, rec.URI)
	return rec, nil
}

// external fetches the off-chain JSON document. Failures are logged and ignored.
func (r *MetaplexReader) external(ctx context.Context, uri string) *domain.ExternalMetadata {
	if r.http == nil || !strings.HasPrefix(uri, "http") {
		return nil
	}
	var ext domain.ExternalMetadata
	if err := r.http.GetJSON(ctx, uri, &ext); err != nil {
		r.log.WithField("uri", uri).WithError(err).Warn("failed to fetch external metadata")
		return nil
	}
	return &ext
}

func optionalKey(k *common.PublicKey) *string {
	if k == nil {
		return nil
	}
	s := k.ToBase58()
	return &s
}

func trimPadding(s string) string {
	return strings.TrimRight(s, "\x00")
}
