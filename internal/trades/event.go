package trades

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"

	"token-intel/internal/domain"
	"token-intel/internal/solana"
)

// tradeEventDiscriminator prefixes pump.fun TradeEvent payloads.
var tradeEventDiscriminator = solana.AnchorDiscriminator("event:TradeEvent")

// tradeEventSize covers discriminator, mint, sol amount, token amount,
// is_buy, user and timestamp. Later fields vary between program versions.
const tradeEventSize = 8 + 32 + 8 + 8 + 1 + 32 + 8

// DecodeTradeEvent decodes a pump.fun TradeEvent payload.
func DecodeTradeEvent(data []byte) (domain.Trade, error) {
	if len(data) < tradeEventSize {
		return domain.Trade{}, fmt.Errorf("%w: trade event is %d bytes", domain.ErrFormat, len(data))
	}
	if !bytes.Equal(data[:8], tradeEventDiscriminator[:]) {
		return domain.Trade{}, fmt.Errorf("%w: not a trade event", domain.ErrFormat)
	}

	le := binary.LittleEndian
	off := 8
	mint := base58.Encode(data[off : off+32])
	off += 32
	solAmount := le.Uint64(data[off:])
	off += 8
	tokenAmount := le.Uint64(data[off:])
	off += 8
	isBuy := data[off] != 0
	off++
	user := base58.Encode(data[off : off+32])
	off += 32
	ts := int64(le.Uint64(data[off:]))

	return domain.Trade{
		Mint:        mint,
		SolAmount:   solAmount,
		TokenAmount: tokenAmount,
		IsBuy:       isBuy,
		User:        user,
		Timestamp:   ts,
	}, nil
}

// EncodeTradeEvent builds a TradeEvent payload. Used by fixtures.
func EncodeTradeEvent(t domain.Trade) ([]byte, error) {
	mint, err := solana.DecodePubkey(t.Mint)
	if err != nil {
		return nil, err
	}
	user, err := solana.DecodePubkey(t.User)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, tradeEventSize)
	buf = append(buf, tradeEventDiscriminator[:]...)
	buf = append(buf, mint...)
	buf = binary.LittleEndian.AppendUint64(buf, t.SolAmount)
	buf = binary.LittleEndian.AppendUint64(buf, t.TokenAmount)
	if t.IsBuy {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, user...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(t.Timestamp))
	return buf, nil
}
