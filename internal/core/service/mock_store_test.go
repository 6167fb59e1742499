package service

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/rl1809/basket-checkout/internal/core/domain"
	"github.com/rl1809/basket-checkout/internal/port"
)

// mockStore is a map backed TxStore. Transactions snapshot the maps and
// restore them on error. Write counters only count committed work.
type mockStore struct {
	mu       sync.Mutex
	users    map[int64]domain.User
	items    map[int64]domain.Item
	baskets  map[int64]domain.Basket
	contents map[int64]domain.BasketContent
	lastID   int64

	decrements  int
	basketSaves int

	// beforeDecrease runs inside a transaction right before a stock
	// decrement, with the store already locked.
	beforeDecrease func(itemID int64)
	contentsErr    error

	// interleaved lets transactions run side by side: every call locks on
	// its own and nothing is rolled back. Only callers serialize.
	interleaved bool
	// afterBasketRead runs unlocked right after GetBasketForUpdate.
	afterBasketRead func()
}

func newMockStore() *mockStore {
	return &mockStore{
		users:    make(map[int64]domain.User),
		items:    make(map[int64]domain.Item),
		baskets:  make(map[int64]domain.Basket),
		contents: make(map[int64]domain.BasketContent),
	}
}

func (m *mockStore) addUser() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID++
	m.users[m.lastID] = domain.User{ID: m.lastID, FirstName: "Ada", LastName: "L", Username: "ada", Email: "ada@example.com"}
	return m.lastID
}

func (m *mockStore) addItem(name string, price float64, stock int) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID++
	m.items[m.lastID] = domain.Item{ID: m.lastID, Name: name, Price: price, Stock: stock}
	return m.lastID
}

func (m *mockStore) addBasket(userID int64, checkedOut bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID++
	m.baskets[m.lastID] = domain.Basket{ID: m.lastID, UserID: userID, CheckedOut: checkedOut}
	return m.lastID
}

func (m *mockStore) addContent(basketID, itemID int64, qty int) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID++
	m.contents[m.lastID] = domain.BasketContent{ID: m.lastID, BasketID: basketID, ItemID: itemID, Quantity: qty}
	return m.lastID
}

func (m *mockStore) stock(itemID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[itemID].Stock
}

func (m *mockStore) checkedOut(basketID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baskets[basketID].CheckedOut
}

func (m *mockStore) writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decrements + m.basketSaves
}

func (m *mockStore) Users() port.UserRepository                   { return mockRepos{m: m, lock: true} }
func (m *mockStore) Items() port.ItemRepository                   { return mockRepos{m: m, lock: true} }
func (m *mockStore) Baskets() port.BasketRepository               { return mockRepos{m: m, lock: true} }
func (m *mockStore) BasketContents() port.BasketContentRepository { return mockRepos{m: m, lock: true} }

type mockTx struct{ r mockRepos }

func (t mockTx) Users() port.UserRepository                   { return t.r }
func (t mockTx) Items() port.ItemRepository                   { return t.r }
func (t mockTx) Baskets() port.BasketRepository               { return t.r }
func (t mockTx) BasketContents() port.BasketContentRepository { return t.r }

func (m *mockStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx port.Store) error) error {
	if m.interleaved {
		return fn(ctx, mockTx{mockRepos{m: m, lock: true}})
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	users, items, baskets, contents := maps.Clone(m.users), maps.Clone(m.items), maps.Clone(m.baskets), maps.Clone(m.contents)
	lastID, decrements, saves := m.lastID, m.decrements, m.basketSaves

	if err := fn(ctx, mockTx{mockRepos{m: m}}); err != nil {
		m.users, m.items, m.baskets, m.contents = users, items, baskets, contents
		m.lastID, m.decrements, m.basketSaves = lastID, decrements, saves
		return err
	}
	return nil
}

// mockRepos locks the store unless it runs inside WithinTx.
type mockRepos struct {
	m    *mockStore
	lock bool
}

func (r mockRepos) do(fn func(m *mockStore) error) error {
	if r.lock {
		r.m.mu.Lock()
		defer r.m.mu.Unlock()
	}
	return fn(r.m)
}

func values[V any](src map[int64]V) []V {
	out := []V{}
	for _, k := range slices.Sorted(maps.Keys(src)) {
		out = append(out, src[k])
	}
	return out
}

func (r mockRepos) ListUsers(ctx context.Context) (out []domain.User, err error) {
	err = r.do(func(m *mockStore) error { out = values(m.users); return nil })
	return
}

func (r mockRepos) GetUser(ctx context.Context, id int64) (out *domain.User, err error) {
	err = r.do(func(m *mockStore) error {
		u, ok := m.users[id]
		if !ok {
			return domain.UserNotFound(id)
		}
		out = &u
		return nil
	})
	return
}

func (r mockRepos) CreateUser(ctx context.Context, user *domain.User) error {
	return r.do(func(m *mockStore) error {
		m.lastID++
		user.ID = m.lastID
		m.users[user.ID] = *user
		return nil
	})
}

func (r mockRepos) UpdateUser(ctx context.Context, user domain.User) error {
	return r.do(func(m *mockStore) error {
		if _, ok := m.users[user.ID]; !ok {
			return domain.UserNotFound(user.ID)
		}
		m.users[user.ID] = user
		return nil
	})
}

func (r mockRepos) DeleteUser(ctx context.Context, id int64) error {
	return r.do(func(m *mockStore) error {
		if _, ok := m.users[id]; !ok {
			return domain.UserNotFound(id)
		}
		delete(m.users, id)
		return nil
	})
}

func (r mockRepos) ListItems(ctx context.Context) (out []domain.Item, err error) {
	err = r.do(func(m *mockStore) error { out = values(m.items); return nil })
	return
}

func (r mockRepos) GetItem(ctx context.Context, id int64) (out *domain.Item, err error) {
	err = r.do(func(m *mockStore) error {
		it, ok := m.items[id]
		if !ok {
			return domain.ItemNotFound(id)
		}
		out = &it
		return nil
	})
	return
}

func (r mockRepos) CreateItem(ctx context.Context, item *domain.Item) error {
	return r.do(func(m *mockStore) error {
		m.lastID++
		item.ID = m.lastID
		m.items[item.ID] = *item
		return nil
	})
}

func (r mockRepos) UpdateItem(ctx context.Context, item domain.Item) error {
	return r.do(func(m *mockStore) error {
		if _, ok := m.items[item.ID]; !ok {
			return domain.ItemNotFound(item.ID)
		}
		m.items[item.ID] = item
		return nil
	})
}

func (r mockRepos) DeleteItem(ctx context.Context, id int64) error {
	return r.do(func(m *mockStore) error {
		if _, ok := m.items[id]; !ok {
			return domain.ItemNotFound(id)
		}
		for _, c := range values(m.contents) {
			if c.ItemID == id && m.baskets[c.BasketID].CheckedOut {
				return domain.AlreadyCheckedOut(c.BasketID)
			}
		}
		for cid, c := range m.contents {
			if c.ItemID == id {
				delete(m.contents, cid)
			}
		}
		delete(m.items, id)
		return nil
	})
}

func (r mockRepos) DecreaseStock(ctx context.Context, id int64, amount int) (out *domain.Item, err error) {
	err = r.do(func(m *mockStore) error {
		if m.beforeDecrease != nil {
			m.beforeDecrease(id)
		}
		it, ok := m.items[id]
		if !ok {
			return domain.ItemNotFound(id)
		}
		if amount > it.Stock {
			return domain.InsufficientQuantity(it.Name)
		}
		it.Stock -= amount
		m.items[id] = it
		m.decrements++
		out = &it
		return nil
	})
	return
}

func (r mockRepos) ListBaskets(ctx context.Context) (out []domain.Basket, err error) {
	err = r.do(func(m *mockStore) error { out = values(m.baskets); return nil })
	return
}

func (r mockRepos) GetBasket(ctx context.Context, id int64) (out *domain.Basket, err error) {
	err = r.do(func(m *mockStore) error {
		b, ok := m.baskets[id]
		if !ok {
			return domain.BasketNotFound(id)
		}
		out = &b
		return nil
	})
	return
}

func (r mockRepos) GetBasketForUpdate(ctx context.Context, id int64) (*domain.Basket, error) {
	b, err := r.GetBasket(ctx, id)
	if err == nil && r.m.afterBasketRead != nil {
		r.m.afterBasketRead()
	}
	return b, err
}

func (r mockRepos) CreateBasket(ctx context.Context, basket *domain.Basket) error {
	return r.do(func(m *mockStore) error {
		m.lastID++
		basket.ID = m.lastID
		m.baskets[basket.ID] = *basket
		return nil
	})
}

func (r mockRepos) SaveBasket(ctx context.Context, basket domain.Basket) error {
	return r.do(func(m *mockStore) error {
		if _, ok := m.baskets[basket.ID]; !ok {
			return domain.BasketNotFound(basket.ID)
		}
		m.baskets[basket.ID] = basket
		m.basketSaves++
		return nil
	})
}

func (r mockRepos) DeleteBasket(ctx context.Context, id int64) error {
	return r.do(func(m *mockStore) error {
		if _, ok := m.baskets[id]; !ok {
			return domain.BasketNotFound(id)
		}
		delete(m.baskets, id)
		return nil
	})
}

func (r mockRepos) ListBasketContents(ctx context.Context) (out []domain.BasketContent, err error) {
	err = r.do(func(m *mockStore) error { out = values(m.contents); return nil })
	return
}

func (r mockRepos) GetBasketContent(ctx context.Context, id int64) (out *domain.BasketContent, err error) {
	err = r.do(func(m *mockStore) error {
		c, ok := m.contents[id]
		if !ok {
			return domain.BasketContentNotFound(id)
		}
		out = &c
		return nil
	})
	return
}

func (r mockRepos) FindByBasketID(ctx context.Context, basketID int64) (out []domain.BasketContent, err error) {
	err = r.do(func(m *mockStore) error {
		if m.contentsErr != nil {
			return m.contentsErr
		}
		for _, c := range values(m.contents) {
			if c.BasketID == basketID {
				out = append(out, c)
			}
		}
		return nil
	})
	return
}

func (r mockRepos) CreateBasketContent(ctx context.Context, content *domain.BasketContent) error {
	return r.do(func(m *mockStore) error {
		m.lastID++
		content.ID = m.lastID
		m.contents[content.ID] = *content
		return nil
	})
}

func (r mockRepos) UpdateBasketContent(ctx context.Context, content domain.BasketContent) error {
	return r.do(func(m *mockStore) error {
		if _, ok := m.contents[content.ID]; !ok {
			return domain.BasketContentNotFound(content.ID)
		}
		m.contents[content.ID] = content
		return nil
	})
}

func (r mockRepos) DeleteBasketContent(ctx context.Context, id int64) error {
	return r.do(func(m *mockStore) error {
		if _, ok := m.contents[id]; !ok {
			return domain.BasketContentNotFound(id)
		}
		delete(m.contents, id)
		return nil
	})
}

// mockLocker hands out one mutex per basket and can be told to fail.
type mockLocker struct {
	mu       sync.Mutex
	locks    map[int64]*sync.Mutex
	acquired int
	err      error
}

func newMockLocker() *mockLocker {
	return &mockLocker{locks: make(map[int64]*sync.Mutex)}
}

func (l *mockLocker) Lock(ctx context.Context, basketID int64) (func(), error) {
	l.mu.Lock()
	if l.err != nil {
		l.mu.Unlock()
		return nil, l.err
	}
	bl, ok := l.locks[basketID]
	if !ok {
		bl = &sync.Mutex{}
		l.locks[basketID] = bl
	}
	l.acquired++
	l.mu.Unlock()

	bl.Lock()
	return bl.Unlock, nil
}

type recordingSettlement struct {
	mu       sync.Mutex
	receipts []domain.CheckoutReceipt
}

func (r *recordingSettlement) Settle(ctx context.Context, receipt domain.CheckoutReceipt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts = append(r.receipts, receipt)
}
