package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/saraiyakush/scalableshop-monorepo/internal/order/catalog"
	"github.com/saraiyakush/scalableshop-monorepo/internal/order/domain"
	"github.com/saraiyakush/scalableshop-monorepo/internal/order/repository"
	outboxDomain "github.com/saraiyakush/scalableshop-monorepo/pkg/outbox/domain"
)

// fakeTx satisfies pgx.Tx for the Commit/Rollback calls the service makes;
// everything else panics via the embedded nil interface.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
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

type fakeOrderRepo struct {
	nextID    int64
	orders    map[int64]*domain.Order
	createErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[int64]*domain.Order)}
}

func (r *fakeOrderRepo) CreateOrder(_ context.Context, _ pgx.Tx, order *domain.Order) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	order.ID = r.nextID
	stored := *order
	r.orders[order.ID] = &stored
	return nil
}

func (r *fakeOrderRepo) GetOrderByID(_ context.Context, orderID int64) (*domain.Order, error) {
	order, ok := r.orders[orderID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *fakeOrderRepo) GetOrderStatusForUpdate(_ context.Context, _ pgx.Tx, orderID int64) (domain.OrderStatus, error) {
	order, ok := r.orders[orderID]
	if !ok {
		return "", repository.ErrOrderNotFound
	}
	return order.Status, nil
}

func (r *fakeOrderRepo) UpdateOrderStatus(_ context.Context, _ pgx.Tx, orderID int64, status domain.OrderStatus) error {
	order, ok := r.orders[orderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	order.Status = status
	return nil
}

type fakeProcessedRepo struct {
	claimed map[string]bool
}

func newFakeProcessedRepo() *fakeProcessedRepo {
	return &fakeProcessedRepo{claimed: make(map[string]bool)}
}

func (r *fakeProcessedRepo) Claim(_ context.Context, _ pgx.Tx, orderID int64, eventType string) (bool, error) {
	key := fmt.Sprintf("%d/%s", orderID, eventType)
	if r.claimed[key] {
		return false, nil
	}
	r.claimed[key] = true
	return true, nil
}

type fakeOutboxRepo struct {
	saved   []*outboxDomain.Message
	saveErr error
}

func (r *fakeOutboxRepo) Save(_ context.Context, _ pgx.Tx, msg *outboxDomain.Message) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, msg)
	return nil
}

func (r *fakeOutboxRepo) FetchBatch(context.Context, int) ([]outboxDomain.Message, error) {
	var out []outboxDomain.Message
	for _, msg := range r.saved {
		out = append(out, *msg)
	}
	return out, nil
}

func (r *fakeOutboxRepo) Delete(_ context.Context, id int64) error {
	return nil
}

type fakeCatalog struct {
	fallback bool
	calls    []int64
}

func (c *fakeCatalog) GetProductDetails(_ context.Context, productID int64) (catalog.ProductDetails, error) {
	c.calls = append(c.calls, productID)
	return catalog.ProductDetails{ProductID: productID, FallbackUsed: c.fallback}, nil
}
