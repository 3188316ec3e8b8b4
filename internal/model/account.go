package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ChainID identifies a sovereign chain in the mesh.
type ChainID string

// Owner is the cryptographic account owner identity, a secp256k1 address.
type Owner = common.Address

// PoolOwner is the chain's own pool account, source of mints and sink of
// withdrawals.
var PoolOwner = Owner{}

// Account addresses an owner on a specific chain.
type Account struct {
	ChainID ChainID `json:"chain_id"`
	Owner   Owner   `json:"owner"`
}

// Amounts are opaque fixed-point quantities owned by the external ledger;
// they are carried around as big integers and never interpreted.
type Amount = *big.Int

func NewAmount(v int64) Amount {
	return big.NewInt(v)
}
