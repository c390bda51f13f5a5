package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/store"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory OrderStore. Transactions are serialized and roll back
// to a snapshot when fn fails.
type memStore struct {
	mu       sync.Mutex
	products map[int64]models.Product
	users    []models.User
	orders   map[int64]models.Order
	items    []models.OrderItem
	nextID   int64
	txCount  int

	failDecrement error
}

func newMemStore(products ...models.Product) *memStore {
	m := &memStore{
		products: make(map[int64]models.Product),
		orders:   make(map[int64]models.Order),
		nextID:   100,
	}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

type memSnapshot struct {
	products map[int64]models.Product
	users    []models.User
	orders   map[int64]models.Order
	items    []models.OrderItem
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		products: make(map[int64]models.Product, len(m.products)),
		users:    append([]models.User(nil), m.users...),
		orders:   make(map[int64]models.Order, len(m.orders)),
		items:    append([]models.OrderItem(nil), m.items...),
	}
	for k, v := range m.products {
		s.products[k] = v
	}
	for k, v := range m.orders {
		s.orders[k] = v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.products = s.products
	m.users = s.users
	m.orders = s.orders
	m.items = s.items
}

func (m *memStore) WithOrderTx(ctx context.Context, fn func(store.OrderTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.txCount++
	snap := m.snapshot()
	if err := fn(&memTx{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) stock(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

func (m *memStore) counts() (users, orders, items int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), len(m.orders), len(m.items)
}

func (m *memStore) order(id int64) (models.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	return o, ok
}

func (m *memStore) user(id int64) (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

func (m *memStore) addUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, u)
}

type memTx struct {
	m *memStore
}

func (t *memTx) id() int64 {
	t.m.nextID++
	return t.m.nextID
}

func (t *memTx) FindCustomers(ctx context.Context, normalizedPhone, email string) ([]models.User, error) {
	var byPhone, byEmail []models.User
	for _, u := range t.m.users {
		switch {
		case u.NormalizedPhone == normalizedPhone:
			byPhone = append(byPhone, u)
		case u.Email == email:
			byEmail = append(byEmail, u)
		}
	}
	matches := append(byPhone, byEmail...)
	if len(matches) > 2 {
		matches = matches[:2]
	}
	return matches, nil
}

func (t *memTx) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = t.id()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	t.m.users = append(t.m.users, *user)
	return nil
}

func (t *memTx) UpdateUserContact(ctx context.Context, user *models.User) error {
	for i := range t.m.users {
		if t.m.users[i].ID == user.ID {
			t.m.users[i].FullName = user.FullName
			t.m.users[i].Phone = user.Phone
			t.m.users[i].NormalizedPhone = user.NormalizedPhone
			return nil
		}
	}
	return errors.New("user vanished")
}

func (t *memTx) CreateOrder(ctx context.Context, order *models.Order) error {
	order.ID = t.id()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	t.m.orders[order.ID] = *order
	return nil
}

func (t *memTx) LockProduct(ctx context.Context, productID int64) (*models.Product, error) {
	p, ok := t.m.products[productID]
	if !ok {
		return nil, store.ErrProductNotFound
	}
	return &p, nil
}

func (t *memTx) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	item.ID = t.id()
	t.m.items = append(t.m.items, *item)
	return nil
}

func (t *memTx) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	if t.m.failDecrement != nil {
		return t.m.failDecrement
	}
	p := t.m.products[productID]
	p.Stock -= quantity
	t.m.products[productID] = p
	return nil
}

func (t *memTx) SetOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	o := t.m.orders[orderID]
	o.TotalAmount = total
	t.m.orders[orderID] = o
	return nil
}

// recordingNotifier captures notifications and optionally fails or blocks.
type recordingNotifier struct {
	mu     sync.Mutex
	got    []*models.OrderNotification
	err    error
	block  bool
	ctxErr error
}

func (n *recordingNotifier) NotifyOrderPlaced(ctx context.Context, notification *models.OrderNotification) error {
	if n.block {
		<-ctx.Done()
		n.mu.Lock()
		n.ctxErr = ctx.Err()
		n.mu.Unlock()
		return ctx.Err()
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, notification)
	return n.err
}

func (n *recordingNotifier) notifications() []*models.OrderNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*models.OrderNotification(nil), n.got...)
}

type memIdempotency struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memIdempotency) GetOrderResult(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memIdempotency) SaveOrderResult(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = payload
	return nil
}

type memCache struct {
	products    []models.Product
	cached      bool
	err         error
	invalidated int
}

func (c *memCache) GetInStock(ctx context.Context) ([]models.Product, bool, error) {
	if c.err != nil {
		return nil, false, c.err
	}
	return c.products, c.cached, nil
}

func (c *memCache) SetInStock(ctx context.Context, products []models.Product, ttl time.Duration) error {
	c.products = products
	c.cached = true
	return nil
}

func (c *memCache) Invalidate(ctx context.Context) error {
	c.invalidated++
	c.cached = false
	c.products = nil
	return nil
}
