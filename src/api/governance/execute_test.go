package governance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xSardius/dalaran/src/api/types"
)

type transferCall struct {
	From, To string
	Lamports uint64
}

type fakeLedger struct {
	balances    map[string]uint64
	transferErr error
	transfers   []transferCall
}

func (f *fakeLedger) GetBalance(_ context.Context, address string) (uint64, error) {
	return f.balances[address], nil
}

func (f *fakeLedger) Transfer(_ context.Context, from, to string, lamports uint64) (string, error) {
	if f.transferErr != nil {
		return "", f.transferErr
	}
	f.transfers = append(f.transfers, transferCall{From: from, To: to, Lamports: lamports})
	return fmt.Sprintf("sig-%d", len(f.transfers)), nil
}

func (f *fakeLedger) ExplorerURL(sig string) string { return "https://explorer.test/tx/" + sig }

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocker() *memLocker { return &memLocker{held: make(map[string]bool)} }

func (l *memLocker) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *memLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, treasuryLamports uint64) (*fakeLedger, Executor, types.Community, []types.Member, types.Proposal) {
		db := newTestDB(t)
		community, members := seedCommunity(t, db, 60, 3)
		proposal := seedProposal(t, db, community, members[0],
			types.KindFunding, types.StateSucceeded, time.Time{})

		ledger := &fakeLedger{balances: map[string]uint64{
			community.TreasuryAddress: treasuryLamports,
		}}
		exec := NewExecutor(db, ledger, newMemLocker(), "")
		return ledger, exec, community, members, proposal
	}

	t.Run("pays from treasury when funded", func(t *testing.T) {
		ledger, exec, community, members, proposal := setup(t, 5*LamportsPerToken)

		result, err := exec.Execute(ctx, proposal.ID, members[0].Address)
		require.NoError(t, err)
		assert.Equal(t, "sig-1", result.Signature)
		assert.Contains(t, result.Explorer, "sig-1")

		require.Len(t, ledger.transfers, 1)
		assert.Equal(t, community.TreasuryAddress, ledger.transfers[0].From)
		assert.Equal(t, proposal.RecipientAddress, ledger.transfers[0].To)
		assert.EqualValues(t, 2*LamportsPerToken, ledger.transfers[0].Lamports)

		var stored types.Proposal
		require.NoError(t, exec.db.First(&stored, "id = ?", proposal.ID).Error)
		assert.Equal(t, types.StateCompleted, stored.State)

		var entry types.Transaction
		require.NoError(t, exec.db.First(&entry, "proposal_id = ?", proposal.ID).Error)
		assert.Equal(t, types.TxWithdrawal, entry.Kind)
		assert.Equal(t, 2.0, entry.Amount)
		assert.Equal(t, "sig-1", entry.Signature)
	})

	t.Run("falls back to the operator account when treasury is short", func(t *testing.T) {
		// amount=2.0, treasury=1.0, fallback=5.0
		db := newTestDB(t)
		community, members := seedCommunity(t, db, 60, 3)
		proposal := seedProposal(t, db, community, members[0],
			types.KindFunding, types.StateSucceeded, time.Time{})

		fallback := testAddr(201)
		ledger := &fakeLedger{balances: map[string]uint64{
			community.TreasuryAddress: 1 * LamportsPerToken,
			fallback:                  5 * LamportsPerToken,
		}}
		exec := NewExecutor(db, ledger, newMemLocker(), fallback)

		_, err := exec.Execute(ctx, proposal.ID, members[0].Address)
		require.NoError(t, err)

		require.Len(t, ledger.transfers, 1)
		assert.Equal(t, fallback, ledger.transfers[0].From)

		var stored types.Proposal
		require.NoError(t, db.First(&stored, "id = ?", proposal.ID).Error)
		assert.Equal(t, types.StateCompleted, stored.State)

		var count int64
		db.Model(&types.Transaction{}).Where("proposal_id = ?", proposal.ID).Count(&count)
		assert.EqualValues(t, 1, count)
	})

	t.Run("insufficient funds reports both balances", func(t *testing.T) {
		db := newTestDB(t)
		community, members := seedCommunity(t, db, 60, 3)
		proposal := seedProposal(t, db, community, members[0],
			types.KindFunding, types.StateSucceeded, time.Time{})

		fallback := testAddr(201)
		ledger := &fakeLedger{balances: map[string]uint64{
			community.TreasuryAddress: 1 * LamportsPerToken,
			fallback:                  1 * LamportsPerToken,
		}}
		exec := NewExecutor(db, ledger, newMemLocker(), fallback)

		_, err := exec.Execute(ctx, proposal.ID, members[0].Address)
		var insufficient *InsufficientFundsError
		require.ErrorAs(t, err, &insufficient)
		assert.EqualValues(t, 1*LamportsPerToken, insufficient.TreasuryLamports)
		assert.EqualValues(t, 1*LamportsPerToken, insufficient.FallbackLamports)

		assert.Empty(t, ledger.transfers, "no transfer submitted")
		var stored types.Proposal
		require.NoError(t, db.First(&stored, "id = ?", proposal.ID).Error)
		assert.Equal(t, types.StateSucceeded, stored.State, "state unchanged, retriable")
	})

	t.Run("no fallback configured means hard failure", func(t *testing.T) {
		_, exec, _, members, proposal := setup(t, 1*LamportsPerToken)

		_, err := exec.Execute(ctx, proposal.ID, members[0].Address)
		var insufficient *InsufficientFundsError
		require.ErrorAs(t, err, &insufficient)
		assert.Zero(t, insufficient.FallbackLamports)
	})

	t.Run("settlement failure leaves proposal retriable", func(t *testing.T) {
		ledger, exec, _, members, proposal := setup(t, 5*LamportsPerToken)
		ledger.transferErr = errors.New("node timeout")

		_, err := exec.Execute(ctx, proposal.ID, members[0].Address)
		var settlement *SettlementError
		require.ErrorAs(t, err, &settlement)

		var stored types.Proposal
		require.NoError(t, exec.db.First(&stored, "id = ?", proposal.ID).Error)
		assert.Equal(t, types.StateSucceeded, stored.State)

		var count int64
		exec.db.Model(&types.Transaction{}).Where("proposal_id = ?", proposal.ID).Count(&count)
		assert.Zero(t, count, "no log entry on failure")

		// Retry after the ledger recovers.
		ledger.transferErr = nil
		result, err := exec.Execute(ctx, proposal.ID, members[0].Address)
		require.NoError(t, err)
		assert.Equal(t, "sig-1", result.Signature)
	})

	t.Run("second execution is rejected", func(t *testing.T) {
		ledger, exec, _, members, proposal := setup(t, 5*LamportsPerToken)

		_, err := exec.Execute(ctx, proposal.ID, members[0].Address)
		require.NoError(t, err)

		_, err = exec.Execute(ctx, proposal.ID, members[0].Address)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Len(t, ledger.transfers, 1, "funds move exactly once")
	})

	t.Run("councilor may execute, citizen may not", func(t *testing.T) {
		db := newTestDB(t)
		community, members := seedCommunity(t, db, 60, 3)
		require.NoError(t, db.Model(&members[1]).Update("role", types.RoleCouncilor).Error)
		proposal := seedProposal(t, db, community, members[0],
			types.KindFunding, types.StateSucceeded, time.Time{})

		ledger := &fakeLedger{balances: map[string]uint64{
			community.TreasuryAddress: 5 * LamportsPerToken,
		}}
		exec := NewExecutor(db, ledger, newMemLocker(), "")

		_, err := exec.Execute(ctx, proposal.ID, members[2].Address)
		assert.ErrorIs(t, err, ErrUnauthorized)

		_, err = exec.Execute(ctx, proposal.ID, members[1].Address)
		require.NoError(t, err)
	})

	t.Run("non-funding proposal cannot be executed", func(t *testing.T) {
		db := newTestDB(t)
		community, members := seedCommunity(t, db, 60, 3)
		proposal := seedProposal(t, db, community, members[0],
			types.KindPolicy, types.StateSucceeded, time.Time{})

		exec := NewExecutor(db, &fakeLedger{balances: map[string]uint64{}}, newMemLocker(), "")
		_, err := exec.Execute(ctx, proposal.ID, members[0].Address)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("voting proposal cannot be executed", func(t *testing.T) {
		db := newTestDB(t)
		community, members := seedCommunity(t, db, 60, 3)
		proposal := seedProposal(t, db, community, members[0],
			types.KindFunding, types.StateVoting, time.Now().Add(time.Hour))

		exec := NewExecutor(db, &fakeLedger{balances: map[string]uint64{}}, newMemLocker(), "")
		_, err := exec.Execute(ctx, proposal.ID, members[0].Address)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("in-flight lock rejects a concurrent attempt", func(t *testing.T) {
		db := newTestDB(t)
		community, members := seedCommunity(t, db, 60, 3)
		proposal := seedProposal(t, db, community, members[0],
			types.KindFunding, types.StateSucceeded, time.Time{})

		locker := newMemLocker()
		held, err := locker.Acquire(ctx, "exec:"+proposal.ID, time.Minute)
		require.NoError(t, err)
		require.True(t, held)

		ledger := &fakeLedger{balances: map[string]uint64{
			community.TreasuryAddress: 5 * LamportsPerToken,
		}}
		exec := NewExecutor(db, ledger, locker, "")
		_, err = exec.Execute(ctx, proposal.ID, members[0].Address)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Empty(t, ledger.transfers)
	})
}

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress(testAddr(7)))
	assert.ErrorIs(t, ValidateAddress("not-an-address"), ErrInvalidInput)
	assert.ErrorIs(t, ValidateAddress(""), ErrInvalidInput)
}
