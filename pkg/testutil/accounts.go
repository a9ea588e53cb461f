// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"rwaledger/pkg/domain"
)

// Account returns a deterministic non-zero test address for n >= 1.
func Account(n int64) domain.Address {
	return domain.Address(common.BigToAddress(big.NewInt(n)))
}

// Accounts returns n distinct test addresses starting at offset.
func Accounts(offset int64, n int) []domain.Address {
	out := make([]domain.Address, n)
	for i := range out {
		out[i] = Account(offset + int64(i))
	}
	return out
}
