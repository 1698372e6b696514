package governance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/0xSardius/dalaran/src/api/types"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"gorm.io/gorm"
)

const (
	// LamportsPerToken converts stored decimal amounts to ledger units.
	LamportsPerToken = 1_000_000_000
	// feeReserve is the margin the fallback account must keep above the
	// transfer amount to cover the network fee.
	feeReserve = 5_000

	execLockTTL = 2 * time.Minute
)

// Ledger is the external settlement service. Balances are read-only from
// this core's perspective; Transfer is the one side effect with external
// cost and is never auto-retried.
type Ledger interface {
	GetBalance(ctx context.Context, address string) (uint64, error)
	Transfer(ctx context.Context, from, to string, lamports uint64) (string, error)
	ExplorerURL(signature string) string
}

// Locker guards a proposal against overlapping execution attempts while a
// ledger submission is in flight.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// ExecutionResult is returned to the caller after a confirmed settlement.
type ExecutionResult struct {
	Signature string `json:"signature"`
	Explorer  string `json:"explorer"`
}

// Executor moves treasury funds for passed funding proposals. Execution is
// two-phase and deliberately not atomic: the ledger submission settles
// first, then the local state flips to completed. A ledger failure leaves
// the proposal in succeeded state so the caller can retry; once a retry
// lands, the state-machine precondition rejects every later attempt.
type Executor struct {
	db      *gorm.DB
	members Members
	ledger  Ledger
	locker  Locker

	// fallbackAddress is an operator-controlled account used when the
	// treasury is underfunded. Empty disables the fallback and turns an
	// underfunded treasury into a hard failure.
	fallbackAddress string
}

func NewExecutor(db *gorm.DB, ledger Ledger, locker Locker, fallbackAddress string) Executor {
	return Executor{
		db:              db,
		members:         NewMembers(db),
		ledger:          ledger,
		locker:          locker,
		fallbackAddress: fallbackAddress,
	}
}

// Execute settles a passed funding proposal and marks it completed.
// Preconditions: the acting member holds an admin or councilor role, the
// proposal is a funding proposal in succeeded state, and the recipient
// address is well formed. The in-flight lock rejects a second call while a
// submission is unconfirmed, closing the double-transfer window that
// caller-initiated retries would otherwise open.
func (e Executor) Execute(ctx context.Context, proposalID, address string) (*ExecutionResult, error) {
	var proposal types.Proposal
	err := e.db.WithContext(ctx).First(&proposal, "id = ?", proposalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: proposal %s", ErrNotFound, proposalID)
	}
	if err != nil {
		return nil, err
	}

	if proposal.State != types.StateSucceeded {
		return nil, fmt.Errorf("%w: only passed proposals can be executed, state is %s",
			ErrInvalidState, proposal.State)
	}
	if proposal.Kind != types.KindFunding {
		return nil, fmt.Errorf("%w: only funding proposals can be executed", ErrInvalidState)
	}

	member, err := e.members.ResolveMember(ctx, proposal.CommunityID, address)
	if err != nil {
		return nil, err
	}
	if member.Role != types.RoleAdmin && member.Role != types.RoleCouncilor {
		return nil, fmt.Errorf("%w: only admins and councilors can execute proposals", ErrUnauthorized)
	}

	if proposal.Amount <= 0 || proposal.RecipientAddress == "" {
		return nil, fmt.Errorf("%w: proposal missing amount or recipient", ErrInvalidInput)
	}
	if err := ValidateAddress(proposal.RecipientAddress); err != nil {
		return nil, err
	}

	var community types.Community
	if err := e.db.WithContext(ctx).First(&community, "id = ?", proposal.CommunityID).Error; err != nil {
		return nil, err
	}
	if community.TreasuryAddress == "" {
		return nil, fmt.Errorf("%w: community has no treasury", ErrInvalidState)
	}

	lockKey := "exec:" + proposalID
	ok, err := e.locker.Acquire(ctx, lockKey, execLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: execution already in progress", ErrInvalidState)
	}
	defer func() {
		if err := e.locker.Release(context.Background(), lockKey); err != nil {
			log.Printf("execute: release lock %s: %v", lockKey, err)
		}
	}()

	lamports := uint64(math.Round(proposal.Amount * LamportsPerToken))

	source, err := e.pickSource(ctx, community.TreasuryAddress, lamports)
	if err != nil {
		return nil, err
	}

	signature, err := e.ledger.Transfer(ctx, source, proposal.RecipientAddress, lamports)
	if err != nil {
		// Proposal stays succeeded; nothing is logged. Safe to retry.
		return nil, &SettlementError{Err: err}
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&types.Proposal{}).
			Where("id = ? AND state = ?", proposalID, types.StateSucceeded).
			Update("state", types.StateCompleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: proposal no longer in succeeded state", ErrInvalidState)
		}
		return tx.Create(&types.Transaction{
			ID:          uuid.NewString(),
			CommunityID: proposal.CommunityID,
			ProposalID:  &proposal.ID,
			Kind:        types.TxWithdrawal,
			Amount:      proposal.Amount,
			Signature:   signature,
			Description: fmt.Sprintf("Executed proposal %q: %g to %s",
				proposal.Title, proposal.Amount, proposal.RecipientAddress),
			CreatedAt:   time.Now(),
		}).Error
	})
	if err != nil {
		// Funds moved but the local commit failed. Surface the signature in
		// the log; the operator reconciles from the ledger's record.
		log.Printf("execute: settled %s but local commit failed: %v", signature, err)
		return nil, err
	}

	return &ExecutionResult{
		Signature: signature,
		Explorer:  e.ledger.ExplorerURL(signature),
	}, nil
}

// pickSource chooses the paying account: the treasury when it covers the
// amount, otherwise the fallback account when configured and funded. The
// fallback is an operational shortcut for underfunded demo treasuries, not
// a production guarantee.
func (e Executor) pickSource(ctx context.Context, treasury string, lamports uint64) (string, error) {
	treasuryBal, err := e.ledger.GetBalance(ctx, treasury)
	if err != nil {
		return "", &SettlementError{Err: err}
	}
	if treasuryBal >= lamports {
		return treasury, nil
	}

	if e.fallbackAddress == "" {
		return "", &InsufficientFundsError{
			TreasuryLamports: treasuryBal,
			NeedLamports:     lamports,
		}
	}

	fallbackBal, err := e.ledger.GetBalance(ctx, e.fallbackAddress)
	if err != nil {
		return "", &SettlementError{Err: err}
	}
	if fallbackBal < lamports+feeReserve {
		return "", &InsufficientFundsError{
			TreasuryLamports: treasuryBal,
			FallbackLamports: fallbackBal,
			NeedLamports:     lamports + feeReserve,
		}
	}
	log.Printf("execute: treasury %s underfunded (%d < %d), paying from fallback account",
		treasury, treasuryBal, lamports)
	return e.fallbackAddress, nil
}

// ValidateAddress checks that an address is a base58-encoded 32-byte key.
func ValidateAddress(address string) error {
	raw, err := base58.Decode(address)
	if err != nil || len(raw) != 32 {
		return fmt.Errorf("%w: invalid address %q", ErrInvalidInput, address)
	}
	return nil
}
