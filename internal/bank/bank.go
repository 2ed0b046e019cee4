// Package bank custodies the pooled entrance fees. Deposits accumulate in
// an escrow balance; a payout moves the whole pot from escrow to the
// winner. Implementations satisfy raffle.Bank.
package bank

import "errors"

// ErrInsufficientEscrow signals a payout larger than the escrowed funds,
// which would mean the ledger and the custody balance have drifted apart.
var ErrInsufficientEscrow = errors.New("bank: payout exceeds escrowed funds")

// escrowAccount is the reserved account name holding undistributed fees.
const escrowAccount = "escrow"
