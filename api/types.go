package api

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// Block is a typed view of a GetBlock payload.
type Block struct {
	Slot         uint64   `json:"slot"`
	Blockhash    string   `json:"blockhash"`
	ParentSlot   uint64   `json:"parentSlot"`
	BlockTime    int64    `json:"blockTime"` // unix seconds
	Height       uint64   `json:"blockHeight"`
	Transactions []string `json:"transactions,omitempty"`
}

// Time returns the block time in UTC, or the zero time when unknown.
func (b *Block) Time() time.Time {
	if b.BlockTime == 0 {
		return time.Time{}
	}
	return time.Unix(b.BlockTime, 0).UTC()
}

// Transaction is a typed view of a GetTransaction payload.
type Transaction struct {
	Signature    string `json:"signature"`
	Slot         uint64 `json:"slot"`
	BlockTime    int64  `json:"blockTime"`
	Signer       string `json:"signer"` // first signer
	Fee          uint64 `json:"fee"`    // lamports
	ComputeUnits uint64 `json:"computeConsumed"`
	Err          any    `json:"err,omitempty"`
}

// Time returns the block time in UTC, or the zero time when unknown.
func (t *Transaction) Time() time.Time {
	if t.BlockTime == 0 {
		return time.Time{}
	}
	return time.Unix(t.BlockTime, 0).UTC()
}

// Failed reports whether the transaction carried an error.
func (t *Transaction) Failed() bool {
	return t.Err != nil
}

// FeeSOL returns the fee converted from lamports.
func (t *Transaction) FeeSOL() decimal.Decimal {
	return LamportsToSOL(t.Fee)
}

// SignatureInfo is one record of a signature-history page.
type SignatureInfo struct {
	Signature string    `json:"signature"`
	Slot      uint64    `json:"slot"`
	Err       any       `json:"err,omitempty"`
	Memo      *string   `json:"memo,omitempty"`
	BlockTime time.Time `json:"blockTime"`
}

// Failed reports whether the transaction behind the signature carried an error.
func (s *SignatureInfo) Failed() bool {
	return s.Err != nil
}

// DecodeBlock converts a raw block payload into a Block.
func DecodeBlock(raw Object) (*Block, error) {
	block := new(Block)
	if err := decodeInto(raw, block); err != nil {
		return nil, fmt.Errorf("failed to decode block: %w", err)
	}
	return block, nil
}

// DecodeTransaction converts a raw transaction payload into a Transaction.
func DecodeTransaction(raw Object) (*Transaction, error) {
	tx := new(Transaction)
	if err := decodeInto(raw, tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return tx, nil
}

// DecodeSignatures converts a raw signature page, preserving its order.
func DecodeSignatures(raw []Object) ([]SignatureInfo, error) {
	sigs := make([]SignatureInfo, 0, len(raw))
	for i, record := range raw {
		var info SignatureInfo
		if err := decodeInto(record, &info); err != nil {
			return nil, fmt.Errorf("failed to decode signature record %d: %w", i, err)
		}
		sigs = append(sigs, info)
	}
	return sigs, nil
}

// LamportsToSOL converts lamports to SOL without going through float64.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -9)
}

func decodeInto(input, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			unixNumberToTimeHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
		Result: out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

var timeType = reflect.TypeOf(time.Time{})

// unixNumberToTimeHook accepts block times sent as unix seconds.
func unixNumberToTimeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType {
		return data, nil
	}
	number, ok := data.(json.Number)
	if !ok {
		return data, nil
	}
	seconds, err := number.Int64()
	if err != nil {
		return nil, fmt.Errorf("invalid unix time %q: %w", number, err)
	}
	return time.Unix(seconds, 0).UTC(), nil
}
