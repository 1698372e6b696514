package governance

import (
	"errors"
	"fmt"
)

// Failure classes surfaced by the governance core. Handlers map these to
// HTTP statuses; none of them is retried internally.
var (
	ErrNotFound     = errors.New("not found")
	ErrNotMember    = errors.New("not a member of this community")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
	ErrVotingClosed = errors.New("voting closed")
	ErrInvalidState = errors.New("invalid proposal state")
)

// InsufficientFundsError reports both balances so an operator can see the
// shortfall without digging through the ledger.
type InsufficientFundsError struct {
	TreasuryLamports uint64
	FallbackLamports uint64
	NeedLamports     uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: treasury has %d lamports, fallback has %d, need %d",
		e.TreasuryLamports, e.FallbackLamports, e.NeedLamports)
}

// SettlementError wraps a ledger failure during execution. The proposal is
// left in succeeded state, so the caller may retry the execution call.
type SettlementError struct {
	Err error
}

func (e *SettlementError) Error() string { return fmt.Sprintf("settlement failed: %v", e.Err) }
func (e *SettlementError) Unwrap() error { return e.Err }
