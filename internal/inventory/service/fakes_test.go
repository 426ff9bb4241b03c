package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/saraiyakush/scalableshop-monorepo/internal/inventory/domain"
	"github.com/saraiyakush/scalableshop-monorepo/internal/inventory/repository"
	outboxDomain "github.com/saraiyakush/scalableshop-monorepo/pkg/outbox/domain"
)

// fakeTx satisfies pgx.Tx for the Commit/Rollback calls the services make;
// everything else panics via the embedded nil interface. Fake repositories
// register undo hooks so a rollback actually reverts their state, which is
// what the failed-reservation path depends on.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	onRollback []func()
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	if !t.rolledBack {
		t.rolledBack = true
		for i := len(t.onRollback) - 1; i >= 0; i-- {
			t.onRollback[i]()
		}
	}
	return nil
}

func undoOnRollback(tx pgx.Tx, undo func()) {
	if ftx, ok := tx.(*fakeTx); ok {
		ftx.onRollback = append(ftx.onRollback, undo)
	}
}

type fakeDB struct {
	txs []*fakeTx
}

func (db *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	tx := &fakeTx{}
	db.txs = append(db.txs, tx)
	return tx, nil
}

func (db *fakeDB) lastTx() *fakeTx {
	return db.txs[len(db.txs)-1]
}

type fakeInventoryRepo struct {
	stock map[int64]domain.InventoryItem
}

func newFakeInventoryRepo(items ...domain.InventoryItem) *fakeInventoryRepo {
	r := &fakeInventoryRepo{stock: make(map[int64]domain.InventoryItem)}
	for _, item := range items {
		r.stock[item.ProductID] = item
	}
	return r
}

func (r *fakeInventoryRepo) GetByProductID(_ context.Context, productID int64) (*domain.InventoryItem, error) {
	item, ok := r.stock[productID]
	if !ok {
		return nil, repository.ErrInventoryItemNotFound
	}
	copied := item
	return &copied, nil
}

func (r *fakeInventoryRepo) GetForUpdate(_ context.Context, _ pgx.Tx, productIDs []int64) (map[int64]domain.InventoryItem, error) {
	out := make(map[int64]domain.InventoryItem, len(productIDs))
	for _, id := range productIDs {
		if item, ok := r.stock[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}

func (r *fakeInventoryRepo) ApplyReservation(_ context.Context, tx pgx.Tx, productID int64, quantity int32) error {
	item, ok := r.stock[productID]
	if !ok || item.QuantityAvailable < quantity {
		return repository.ErrInsufficientStock
	}

	before := item
	undoOnRollback(tx, func() { r.stock[productID] = before })

	item.QuantityAvailable -= quantity
	item.QuantityReserved += quantity
	r.stock[productID] = item
	return nil
}

func (r *fakeInventoryRepo) UpsertStock(_ context.Context, productID int64, quantity int32) (*domain.InventoryItem, error) {
	item := domain.InventoryItem{ProductID: productID, QuantityAvailable: quantity}
	r.stock[productID] = item
	return &item, nil
}

func (r *fakeInventoryRepo) AdjustStock(_ context.Context, tx pgx.Tx, productID int64, delta int32) (*domain.InventoryItem, error) {
	item, ok := r.stock[productID]
	if !ok {
		return nil, repository.ErrInventoryItemNotFound
	}
	if item.QuantityAvailable+delta < 0 {
		return nil, repository.ErrInsufficientStock
	}

	before := item
	undoOnRollback(tx, func() { r.stock[productID] = before })

	item.QuantityAvailable += delta
	r.stock[productID] = item
	copied := item
	return &copied, nil
}

type fakeProcessedRepo struct {
	claimed map[int64]bool
}

func newFakeProcessedRepo() *fakeProcessedRepo {
	return &fakeProcessedRepo{claimed: make(map[int64]bool)}
}

func (r *fakeProcessedRepo) Claim(_ context.Context, tx pgx.Tx, orderID int64) (bool, error) {
	if r.claimed[orderID] {
		return false, nil
	}
	r.claimed[orderID] = true
	undoOnRollback(tx, func() { delete(r.claimed, orderID) })
	return true, nil
}

type fakeOutboxRepo struct {
	saved   []*outboxDomain.Message
	saveErr error
}

func (r *fakeOutboxRepo) Save(_ context.Context, tx pgx.Tx, msg *outboxDomain.Message) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, msg)
	undoOnRollback(tx, func() { r.saved = r.saved[:len(r.saved)-1] })
	return nil
}

func (r *fakeOutboxRepo) FetchBatch(context.Context, int) ([]outboxDomain.Message, error) {
	var out []outboxDomain.Message
	for _, msg := range r.saved {
		out = append(out, *msg)
	}
	return out, nil
}

func (r *fakeOutboxRepo) Delete(context.Context, int64) error {
	return nil
}
