package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"storefront/internal/entity"
	"storefront/internal/repository"
)

var errStorage = errors.New("storage fault")

// memStore is an in-memory database. An open unit of work holds mu until it
// ends, which serializes placements the way row locks do.
type memStore struct {
	mu          sync.Mutex
	products    map[int]entity.Product
	orders      map[int]*entity.Order
	nextOrderID int
	nextItemID  int
	failOn      map[string]bool

	begins  int
	commits int
	rolls   int
}

func newMemStore(products ...entity.Product) *memStore {
	s := &memStore{
		products: map[int]entity.Product{},
		orders:   map[int]*entity.Order{},
		failOn:   map[string]bool{},
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *memStore) Begin(ctx context.Context) (repository.UnitOfWork, error) {
	if s.failOn["Begin"] {
		return nil, errStorage
	}
	s.mu.Lock()
	s.begins++

	working := make(map[int]entity.Product, len(s.products))
	for id, p := range s.products {
		working[id] = p
	}
	return &memUnitOfWork{store: s, products: working, orders: map[int]*entity.Order{}}, nil
}

func (s *memStore) stock(id int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *memStore) setPrice(id int, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	p.Price = price
	s.products[id] = p
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) snapshot() (map[int]entity.Product, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	products := make(map[int]entity.Product, len(s.products))
	for id, p := range s.products {
		products[id] = p
	}
	return products, len(s.orders)
}

func (s *memStore) withProducts(order *entity.Order) *entity.Order {
	out := *order
	out.Items = make([]entity.LineItem, len(order.Items))
	for i, item := range order.Items {
		p := s.products[item.ProductID]
		item.Product = &p
		out.Items[i] = item
	}
	return &out
}

func (s *memStore) sortedOrders(keep func(*entity.Order) bool) []*entity.Order {
	orders := []*entity.Order{}
	for _, o := range s.orders {
		if keep(o) {
			orders = append(orders, s.withProducts(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
	return orders
}

func (s *memStore) GetOrderByID(ctx context.Context, id int) (*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.withProducts(o), nil
}

func (s *memStore) FindByUser(ctx context.Context, userID int) ([]*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedOrders(func(o *entity.Order) bool { return o.UserID == userID }), nil
}

func (s *memStore) FindLatestByUser(ctx context.Context, userID int) (*entity.Order, error) {
	orders, _ := s.FindByUser(ctx, userID)
	if len(orders) == 0 {
		return nil, repository.ErrNotFound
	}
	return orders[0], nil
}

func (s *memStore) ListAll(ctx context.Context) ([]*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn["ListAll"] {
		return nil, errStorage
	}
	return s.sortedOrders(func(*entity.Order) bool { return true }), nil
}

func (s *memStore) UpdateOrderStatus(ctx context.Context, id int, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = status
	return nil
}

type memUnitOfWork struct {
	store    *memStore
	products map[int]entity.Product
	orders   map[int]*entity.Order
	ended    bool
}

func (u *memUnitOfWork) LockProduct(ctx context.Context, productID int) (*entity.Product, error) {
	if u.store.failOn["LockProduct"] {
		return nil, errStorage
	}
	p, ok := u.products[productID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (u *memUnitOfWork) DecrementStock(ctx context.Context, productID int, quantity int) error {
	p := u.products[productID]
	if p.Stock < quantity {
		return repository.ErrInsufficientStock
	}
	p.Stock -= quantity
	u.products[productID] = p
	return nil
}

func (u *memUnitOfWork) InsertOrder(ctx context.Context, order *entity.Order) error {
	if u.store.failOn["InsertOrder"] {
		return errStorage
	}
	u.store.nextOrderID++
	order.ID = u.store.nextOrderID
	stored := *order
	u.orders[order.ID] = &stored
	return nil
}

func (u *memUnitOfWork) InsertLineItems(ctx context.Context, orderID int, items []entity.LineItem) error {
	if u.store.failOn["InsertLineItems"] {
		return errStorage
	}
	for i := range items {
		u.store.nextItemID++
		items[i].ID = u.store.nextItemID
		items[i].OrderID = orderID
	}
	u.orders[orderID].Items = append([]entity.LineItem{}, items...)
	return nil
}

func (u *memUnitOfWork) UpdateOrderTotal(ctx context.Context, orderID int, total decimal.Decimal) error {
	u.orders[orderID].Total = total
	return nil
}

func (u *memUnitOfWork) Commit() error {
	if u.ended {
		return errors.New("unit of work already ended")
	}
	u.ended = true
	defer u.store.mu.Unlock()
	u.store.commits++
	if u.store.failOn["Commit"] {
		return errStorage
	}
	u.store.products = u.products
	for id, o := range u.orders {
		u.store.orders[id] = o
	}
	return nil
}

func (u *memUnitOfWork) Rollback() error {
	if u.ended {
		return errors.New("unit of work already ended")
	}
	u.ended = true
	defer u.store.mu.Unlock()
	u.store.rolls++
	return nil
}

type publishedEvent struct {
	eventType string
	id        int
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType string, id int, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{eventType: eventType, id: id})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.eventType)
	}
	return out
}

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memIdempotency) Claim(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memIdempotency) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}
