package service

import (
	"context"
	"sync"
	"time"

	"checkout-service/internal/entity"
	"checkout-service/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) GetProduct(ctx context.Context, productID string) (*entity.Product, error) {
	args := m.Called(ctx, productID)
	product, _ := args.Get(0).(*entity.Product)
	return product, args.Error(1)
}

func (m *MockCatalogRepository) GetVariant(ctx context.Context, productID string, variantID int64) (*entity.ProductVariant, error) {
	args := m.Called(ctx, productID, variantID)
	variant, _ := args.Get(0).(*entity.ProductVariant)
	return variant, args.Error(1)
}

func (m *MockCatalogRepository) HasAvailableVariantStock(ctx context.Context, productID string) (bool, error) {
	args := m.Called(ctx, productID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalogRepository) DecrementProductStock(ctx context.Context, tx repository.Tx, productID string, quantity int) (bool, error) {
	args := m.Called(ctx, tx, productID, quantity)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalogRepository) DecrementVariantStock(ctx context.Context, tx repository.Tx, variantID int64, quantity int) (bool, error) {
	args := m.Called(ctx, tx, variantID, quantity)
	return args.Bool(0), args.Error(1)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (repository.Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(repository.Tx)
	return tx, args.Error(1)
}

func (m *MockOrderRepository) GetOrderByID(ctx context.Context, id string) (*entity.Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*entity.Order)
	return order, args.Error(1)
}

func (m *MockOrderRepository) GetOrderByPaymentReference(ctx context.Context, paymentReference string) (*entity.Order, error) {
	args := m.Called(ctx, paymentReference)
	order, _ := args.Get(0).(*entity.Order)
	return order, args.Error(1)
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, tx repository.Tx, order *entity.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateOrderStatus(ctx context.Context, id string, from, to entity.OrderStatus, trackingNumber string) error {
	args := m.Called(ctx, id, from, to, trackingNumber)
	return args.Error(0)
}

type MockPromoCodeRepository struct {
	mock.Mock
}

func (m *MockPromoCodeRepository) GetPromoCodeByCode(ctx context.Context, code string) (*entity.PromoCode, error) {
	args := m.Called(ctx, code)
	promo, _ := args.Get(0).(*entity.PromoCode)
	return promo, args.Error(1)
}

func (m *MockPromoCodeRepository) IncrementUsage(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	args := m.Called(ctx, tx, code)
	return args.Bool(0), args.Error(1)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Send(ctx context.Context, kind entity.NotificationKind, order *entity.Order, payload map[string]interface{}) error {
	args := m.Called(ctx, kind, order, payload)
	return args.Error(0)
}

type MockRateCache struct {
	mock.Mock
}

func (m *MockRateCache) GetRate(ctx context.Context, base, quote string) (*repository.CachedRate, error) {
	args := m.Called(ctx, base, quote)
	cached, _ := args.Get(0).(*repository.CachedRate)
	return cached, args.Error(1)
}

func (m *MockRateCache) SetRate(ctx context.Context, base, quote string, rate repository.CachedRate, ttl time.Duration) error {
	args := m.Called(ctx, base, quote, rate, ttl)
	return args.Error(0)
}

type MockRateSource struct {
	mock.Mock
	name string
}

func (m *MockRateSource) Name() string { return m.name }

func (m *MockRateSource) FetchRate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	args := m.Called(ctx, base, quote)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit() error {
	return m.Called().Error(0)
}

func (m *MockTx) Rollback() error {
	return m.Called().Error(0)
}

// memTx records the outcome of one unit of work on the in-memory stores.
type memTx struct {
	undo []func()
}

func (t *memTx) Commit() error { return nil }
func (t *memTx) Rollback() error {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	return nil
}

// memStore is an in-memory catalog and order store with the same conditional
// decrement semantics as the SQL repositories.
type memStore struct {
	mu       sync.Mutex
	products map[string]*entity.Product
	variants map[int64]*entity.ProductVariant
	orders   map[string]*entity.Order
	byRef    map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		products: map[string]*entity.Product{},
		variants: map[int64]*entity.ProductVariant{},
		orders:   map[string]*entity.Order{},
		byRef:    map[string]string{},
	}
}

func (s *memStore) GetProduct(ctx context.Context, productID string) (*entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) GetVariant(ctx context.Context, productID string, variantID int64) (*entity.ProductVariant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variants[variantID]
	if !ok || v.ProductID != productID {
		return nil, repository.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *memStore) HasAvailableVariantStock(ctx context.Context, productID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.variants {
		if v.ProductID == productID && v.InStock() {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) DecrementProductStock(ctx context.Context, tx repository.Tx, productID string, quantity int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok || p.StockQuantity < quantity {
		return false, nil
	}
	p.StockQuantity -= quantity
	tx.(*memTx).undo = append(tx.(*memTx).undo, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		p.StockQuantity += quantity
	})
	return true, nil
}

func (s *memStore) DecrementVariantStock(ctx context.Context, tx repository.Tx, variantID int64, quantity int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variants[variantID]
	if !ok || v.StockQuantity < quantity {
		return false, nil
	}
	v.StockQuantity -= quantity
	tx.(*memTx).undo = append(tx.(*memTx).undo, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		v.StockQuantity += quantity
	})
	return true, nil
}

func (s *memStore) BeginTx(ctx context.Context) (repository.Tx, error) {
	return &memTx{}, nil
}

func (s *memStore) GetOrderByID(ctx context.Context, id string) (*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return o, nil
}

func (s *memStore) GetOrderByPaymentReference(ctx context.Context, paymentReference string) (*entity.Order, error) {
	s.mu.Lock()
	id, ok := s.byRef[paymentReference]
	s.mu.Unlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.GetOrderByID(ctx, id)
}

func (s *memStore) CreateOrder(ctx context.Context, tx repository.Tx, order *entity.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byRef[order.PaymentReference]; exists && order.PaymentReference != "" {
		return repository.ErrDuplicatePaymentReference
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		order.Items[i].RecomputeTotal()
	}
	s.orders[order.ID] = order
	if order.PaymentReference != "" {
		s.byRef[order.PaymentReference] = order.ID
	}
	tx.(*memTx).undo = append(tx.(*memTx).undo, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.orders, order.ID)
		if s.byRef[order.PaymentReference] == order.ID {
			delete(s.byRef, order.PaymentReference)
		}
	})
	return nil
}

func (s *memStore) UpdateOrderStatus(ctx context.Context, id string, from, to entity.OrderStatus, trackingNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Status != from {
		return repository.ErrStatusConflict
	}
	o.Status = to
	o.TrackingNumber = trackingNumber
	return nil
}

// countingDispatcher counts notifications per kind.
type countingDispatcher struct {
	mu    sync.Mutex
	kinds []entity.NotificationKind
}

func (d *countingDispatcher) Send(ctx context.Context, kind entity.NotificationKind, order *entity.Order, payload map[string]interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kinds = append(d.kinds, kind)
	return nil
}

func (d *countingDispatcher) count(kind entity.NotificationKind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, k := range d.kinds {
		if k == kind {
			n++
		}
	}
	return n
}
