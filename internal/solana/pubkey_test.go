package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-intel/internal/domain"
)

const testMint = "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R"

func TestIsValidAddress(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{TokenProgram, true},
		{PumpFunProgram, true},
		{"", false},
		{"0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl", false},
		{"abc", false},
		{"1111111111111111111111111111111111111111111111", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidAddress(tt.addr), tt.addr)
	}
}

func TestDecodePubkey_Invalid(t *testing.T) {
	_, err := DecodePubkey("not-an-address")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestIsOnCurve(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	assert.True(t, IsOnCurve(pub))
	assert.True(t, IsOnCurveAddress(base58.Encode(pub)))

	pda, _, err := FindProgramAddress([][]byte{[]byte("bonding-curve")}, PumpFunProgram)
	require.NoError(t, err)
	assert.False(t, IsOnCurveAddress(pda))

	assert.False(t, IsOnCurve([]byte{1, 2, 3}))
}

func TestFindProgramAddress_MatchesSDK(t *testing.T) {
	mint, err := DecodePubkey(testMint)
	require.NoError(t, err)

	seeds := [][]byte{[]byte("bonding-curve"), mint}
	got, bump, err := FindProgramAddress(seeds, PumpFunProgram)
	require.NoError(t, err)

	want, wantBump, err := common.FindProgramAddress(seeds, common.PublicKeyFromString(PumpFunProgram))
	require.NoError(t, err)

	assert.Equal(t, want.ToBase58(), got)
	assert.Equal(t, wantBump, bump)
}

func TestFindProgramAddress_AssociatedTokenAccount(t *testing.T) {
	owner, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	mint, err := DecodePubkey(testMint)
	require.NoError(t, err)
	tokenProgram, err := DecodePubkey(TokenProgram)
	require.NoError(t, err)

	got, _, err := FindProgramAddress([][]byte{owner, tokenProgram, mint}, AssociatedTokenProgram)
	require.NoError(t, err)

	want, _, err := common.FindAssociatedTokenAddress(common.PublicKeyFromBytes(owner), common.PublicKeyFromString(testMint))
	require.NoError(t, err)
	assert.Equal(t, want.ToBase58(), got)
}

func TestFindProgramAddress_SeedTooLong(t *testing.T) {
	_, _, err := FindProgramAddress([][]byte{make([]byte, 33)}, PumpFunProgram)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestAnchorDiscriminator(t *testing.T) {
	d := AnchorDiscriminator("account:BondingCurve")
	assert.Equal(t, [8]byte{0x17, 0xb7, 0xf8, 0x37, 0x60, 0xd8, 0xac, 0x60}, d)
}
