package ledger

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"ledger_system/internal/domain"
	"ledger_system/internal/store"
)

var errInjected = errors.New("injected storage failure")

// fakeStore is an in-memory AccountStore. Begin takes the store mutex and
// Commit/Rollback release it, so every transaction is fully serialized, which
// is the strongest isolation the real store may provide. Account IDs equal
// user IDs for simplicity.
type fakeStore struct {
	mu        sync.Mutex
	accounts  map[uint]*domain.Account
	transfers []domain.Transfer

	begins      int
	beginErr    error
	adjustCalls int
	adjustErrAt int     // fail the nth AdjustBalance call, 0 = never
	commitErrs  []error // consumed one per Commit
}

func newFakeStore(balances map[uint]int64) *fakeStore {
	s := &fakeStore{accounts: make(map[uint]*domain.Account)}
	for userID, bal := range balances {
		s.accounts[userID] = &domain.Account{ID: userID, UserID: userID, Balance: bal}
	}
	return s
}

func (s *fakeStore) GetAccount(_ context.Context, userID uint) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *fakeStore) Begin(_ context.Context) (store.AccountTx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	s.mu.Lock()
	s.begins++
	return &fakeTx{s: s, pending: make(map[uint]int64)}, nil
}

type fakeTx struct {
	s       *fakeStore
	pending map[uint]int64
	records []domain.Transfer
	done    bool
}

func (t *fakeTx) Account(userID uint) (*domain.Account, error) {
	a, ok := t.s.accounts[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	cp.Balance += t.pending[userID] // reads observe the transaction's own writes
	return &cp, nil
}

func (t *fakeTx) AdjustBalance(userID uint, delta int64) error {
	t.s.adjustCalls++
	if t.s.adjustErrAt != 0 && t.s.adjustCalls == t.s.adjustErrAt {
		return errInjected
	}
	if _, ok := t.s.accounts[userID]; !ok {
		return store.ErrNotFound
	}
	t.pending[userID] += delta
	return nil
}

func (t *fakeTx) RecordTransfer(tr *domain.Transfer) error {
	t.records = append(t.records, *tr)
	return nil
}

func (t *fakeTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.s.mu.Unlock()
	if len(t.s.commitErrs) > 0 {
		err := t.s.commitErrs[0]
		t.s.commitErrs = t.s.commitErrs[1:]
		if err != nil {
			return err
		}
	}
	for userID, delta := range t.pending {
		t.s.accounts[userID].Balance += delta
	}
	t.s.transfers = append(t.s.transfers, t.records...)
	return nil
}

func (t *fakeTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.mu.Unlock()
	return nil
}

func (s *fakeStore) balance(t *testing.T, userID uint) int64 {
	t.Helper()
	a, err := s.GetAccount(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance(%d): %v", userID, err)
	}
	return a.Balance
}

func (s *fakeStore) total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, a := range s.accounts {
		sum += a.Balance
	}
	return sum
}

func TestTransferMovesFundsEndToEnd(t *testing.T) {
	s := newFakeStore(map[uint]int64{1: 500, 2: 200})
	e := NewEngine(s)

	if err := e.Transfer(context.Background(), 1, 2, 150); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if got := s.balance(t, 1); got != 350 {
		t.Fatalf("source balance=%d want 350", got)
	}
	if got := s.balance(t, 2); got != 350 {
		t.Fatalf("destination balance=%d want 350", got)
	}

	// The reverse transfer exceeds the new balance and must change nothing.
	if err := e.Transfer(context.Background(), 2, 1, 500); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
	if a, b := s.balance(t, 1), s.balance(t, 2); a != 350 || b != 350 {
		t.Fatalf("balances changed after rejected transfer: %d/%d", a, b)
	}
}

func TestTransferRejectsNonPositiveAmounts(t *testing.T) {
	s := newFakeStore(map[uint]int64{1: 100, 2: 100})
	e := NewEngine(s)

	for _, amount := range []int64{0, -5} {
		if err := e.Transfer(context.Background(), 1, 2, amount); !errors.Is(err, ErrInvalidOperation) {
			t.Fatalf("amount=%d want ErrInvalidOperation, got %v", amount, err)
		}
	}
	// Rejection happens before any store access.
	if s.begins != 0 {
		t.Fatalf("begins=%d want 0", s.begins)
	}
}

func TestTransferRejectsSelfTransfer(t *testing.T) {
	s := newFakeStore(map[uint]int64{1: 100})
	e := NewEngine(s)

	if err := e.Transfer(context.Background(), 1, 1, 50); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("want ErrInvalidOperation, got %v", err)
	}
	if got := s.balance(t, 1); got != 100 {
		t.Fatalf("balance=%d want 100", got)
	}
}

func TestTransferUnknownSource(t *testing.T) {
	s := newFakeStore(map[uint]int64{2: 100})
	e := NewEngine(s)

	if err := e.Transfer(context.Background(), 1, 2, 50); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("want ErrAccountNotFound, got %v", err)
	}
	if got := s.balance(t, 2); got != 100 {
		t.Fatalf("destination balance=%d want 100", got)
	}
}

func TestTransferUnknownDestination(t *testing.T) {
	s := newFakeStore(map[uint]int64{1: 100})
	e := NewEngine(s)

	if err := e.Transfer(context.Background(), 1, 2, 50); !errors.Is(err, ErrInvalidDestination) {
		t.Fatalf("want ErrInvalidDestination, got %v", err)
	}
	if got := s.balance(t, 1); got != 100 {
		t.Fatalf("source balance=%d want 100", got)
	}
	if len(s.transfers) != 0 {
		t.Fatalf("transfer log not empty: %+v", s.transfers)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	s := newFakeStore(map[uint]int64{1: 100, 2: 0})
	e := NewEngine(s)

	if err := e.Transfer(context.Background(), 1, 2, 150); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
	if a, b := s.balance(t, 1), s.balance(t, 2); a != 100 || b != 0 {
		t.Fatalf("balances changed: %d/%d", a, b)
	}
}

func TestTransferAtomicUnderInjectedFailure(t *testing.T) {
	s := newFakeStore(map[uint]int64{1: 500, 2: 200})
	s.adjustErrAt = 2 // debit succeeds, credit fails
	e := NewEngine(s)

	if err := e.Transfer(context.Background(), 1, 2, 150); !errors.Is(err, errInjected) {
		t.Fatalf("want injected failure, got %v", err)
	}
	// Re-reading both accounts must show neither side applied.
	if a, b := s.balance(t, 1), s.balance(t, 2); a != 500 || b != 200 {
		t.Fatalf("partial transfer visible: %d/%d", a, b)
	}
	if len(s.transfers) != 0 {
		t.Fatalf("transfer log not empty after failed transfer")
	}
}

func TestTransferConflictSurfacesAsTransient(t *testing.T) {
	s := newFakeStore(map[uint]int64{1: 500, 2: 200})
	s.commitErrs = []error{store.ErrConflict}
	e := NewEngine(s)

	if err := e.Transfer(context.Background(), 1, 2, 150); !errors.Is(err, ErrTransient) {
		t.Fatalf("want ErrTransient, got %v", err)
	}
	if a, b := s.balance(t, 1), s.balance(t, 2); a != 500 || b != 200 {
		t.Fatalf("balances changed after failed commit: %d/%d", a, b)
	}
}

func TestTransferRecordsAuditRow(t *testing.T) {
	s := newFakeStore(map[uint]int64{1: 500, 2: 200})
	e := NewEngine(s)

	if err := e.Transfer(context.Background(), 1, 2, 150); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if len(s.transfers) != 1 {
		t.Fatalf("transfer log len=%d want 1", len(s.transfers))
	}
	tr := s.transfers[0]
	if tr.FromAccountID != 1 || tr.ToAccountID != 2 || tr.Amount != 150 {
		t.Fatalf("audit row unexpected: %+v", tr)
	}
}

func TestConcurrentDisjointTransfers(t *testing.T) {
	s := newFakeStore(map[uint]int64{1: 100, 2: 0, 3: 100, 4: 0})
	e := NewEngine(s)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := e.Transfer(context.Background(), 1, 2, 10); err != nil {
			t.Errorf("1->2: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := e.Transfer(context.Background(), 3, 4, 20); err != nil {
			t.Errorf("3->4: %v", err)
		}
	}()
	wg.Wait()

	want := map[uint]int64{1: 90, 2: 10, 3: 80, 4: 20}
	for userID, bal := range want {
		if got := s.balance(t, userID); got != bal {
			t.Fatalf("account %d balance=%d want %d", userID, got, bal)
		}
	}
}

func TestConcurrentContendedDebits(t *testing.T) {
	// Two transfers both debiting account 1 (balance 100, 60 each): exactly
	// one may succeed, and total debits from it can never exceed 100.
	s := newFakeStore(map[uint]int64{1: 100, 2: 0, 3: 0})
	e := NewEngine(s)

	results := make(chan error, 2)
	go func() { results <- e.Transfer(context.Background(), 1, 2, 60) }()
	go func() { results <- e.Transfer(context.Background(), 1, 3, 60) }()

	var succeeded, rejected int
	for i := 0; i < 2; i++ {
		err := <-results
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientFunds):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || rejected != 1 {
		t.Fatalf("succeeded=%d rejected=%d want 1/1", succeeded, rejected)
	}
	if got := s.balance(t, 1); got != 40 {
		t.Fatalf("contended account balance=%d want 40", got)
	}
	if got := s.total(); got != 100 {
		t.Fatalf("total=%d want 100", got)
	}
}

func TestConcurrentTransfersConserveTotal(t *testing.T) {
	accounts := map[uint]int64{1: 1000, 2: 1000, 3: 1000, 4: 1000}
	s := newFakeStore(accounts)
	e := NewEngine(s)

	const workers = 8
	const transfersPerWorker = 50

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < transfersPerWorker; i++ {
				from := uint(rng.Intn(4) + 1)
				to := uint(rng.Intn(4) + 1)
				amount := int64(rng.Intn(20) + 1)
				err := e.Transfer(context.Background(), from, to, amount)
				if err != nil && !errors.Is(err, ErrInvalidOperation) && !errors.Is(err, ErrInsufficientFunds) {
					t.Errorf("transfer %d->%d: %v", from, to, err)
				}
			}
		}(int64(w))
	}
	wg.Wait()

	// Conservation: committed transfers only move value around.
	if got := s.total(); got != 4000 {
		t.Fatalf("total=%d want 4000", got)
	}
	// No account may ever end up negative.
	for userID := uint(1); userID <= 4; userID++ {
		if got := s.balance(t, userID); got < 0 {
			t.Fatalf("account %d negative: %d", userID, got)
		}
	}
}
