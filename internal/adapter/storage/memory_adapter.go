package storage

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/rl1809/basket-checkout/internal/core/domain"
	"github.com/rl1809/basket-checkout/internal/port"
)

type memoryData struct {
	users    map[int64]domain.User
	items    map[int64]domain.Item
	baskets  map[int64]domain.Basket
	contents map[int64]domain.BasketContent
	lastID   int64
}

func (d *memoryData) clone() *memoryData {
	return &memoryData{
		users:    maps.Clone(d.users),
		items:    maps.Clone(d.items),
		baskets:  maps.Clone(d.baskets),
		contents: maps.Clone(d.contents),
		lastID:   d.lastID,
	}
}

func (d *memoryData) nextID() int64 {
	d.lastID++
	return d.lastID
}

// MemoryAdapter keeps everything in process. A single mutex serializes all
// access, so a transaction holds every row lock at once; it works on a copy
// that replaces the live data only on commit.
type MemoryAdapter struct {
	mu   sync.Mutex
	data *memoryData
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{data: &memoryData{
		users:    make(map[int64]domain.User),
		items:    make(map[int64]domain.Item),
		baskets:  make(map[int64]domain.Basket),
		contents: make(map[int64]domain.BasketContent),
	}}
}

func (m *MemoryAdapter) locked(fn func(*memoryData) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.data)
}

func (m *MemoryAdapter) repos() memoryRepos { return memoryRepos{run: m.locked} }

func (m *MemoryAdapter) Users() port.UserRepository                   { return m.repos() }
func (m *MemoryAdapter) Items() port.ItemRepository                   { return m.repos() }
func (m *MemoryAdapter) Baskets() port.BasketRepository               { return m.repos() }
func (m *MemoryAdapter) BasketContents() port.BasketContentRepository { return m.repos() }

func (m *MemoryAdapter) WithinTx(ctx context.Context, fn func(ctx context.Context, tx port.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.data.clone()
	tx := memoryTx{memoryRepos{run: func(f func(*memoryData) error) error { return f(work) }}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.data = work
	return nil
}

type memoryTx struct{ r memoryRepos }

func (t memoryTx) Users() port.UserRepository                   { return t.r }
func (t memoryTx) Items() port.ItemRepository                   { return t.r }
func (t memoryTx) Baskets() port.BasketRepository               { return t.r }
func (t memoryTx) BasketContents() port.BasketContentRepository { return t.r }

// memoryRepos implements every repository over whichever data run hands it.
type memoryRepos struct {
	run func(func(*memoryData) error) error
}

func sortedValues[V any](m map[int64]V) []V {
	out := make([]V, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		out = append(out, m[k])
	}
	return out
}

func (r memoryRepos) ListUsers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := r.run(func(d *memoryData) error {
		out = sortedValues(d.users)
		return nil
	})
	return out, err
}

func (r memoryRepos) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var out domain.User
	err := r.run(func(d *memoryData) error {
		u, ok := d.users[id]
		if !ok {
			return domain.UserNotFound(id)
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r memoryRepos) CreateUser(ctx context.Context, user *domain.User) error {
	return r.run(func(d *memoryData) error {
		user.ID = d.nextID()
		d.users[user.ID] = *user
		return nil
	})
}

func (r memoryRepos) UpdateUser(ctx context.Context, user domain.User) error {
	return r.run(func(d *memoryData) error {
		if _, ok := d.users[user.ID]; !ok {
			return domain.UserNotFound(user.ID)
		}
		d.users[user.ID] = user
		return nil
	})
}

func (r memoryRepos) DeleteUser(ctx context.Context, id int64) error {
	return r.run(func(d *memoryData) error {
		if _, ok := d.users[id]; !ok {
			return domain.UserNotFound(id)
		}
		for _, b := range d.baskets {
			if b.UserID == id {
				deleteBasket(d, b.ID)
			}
		}
		delete(d.users, id)
		return nil
	})
}

func (r memoryRepos) ListItems(ctx context.Context) ([]domain.Item, error) {
	var out []domain.Item
	err := r.run(func(d *memoryData) error {
		out = sortedValues(d.items)
		return nil
	})
	return out, err
}

func (r memoryRepos) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	var out domain.Item
	err := r.run(func(d *memoryData) error {
		it, ok := d.items[id]
		if !ok {
			return domain.ItemNotFound(id)
		}
		out = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r memoryRepos) CreateItem(ctx context.Context, item *domain.Item) error {
	return r.run(func(d *memoryData) error {
		item.ID = d.nextID()
		d.items[item.ID] = *item
		return nil
	})
}

func (r memoryRepos) UpdateItem(ctx context.Context, item domain.Item) error {
	return r.run(func(d *memoryData) error {
		if _, ok := d.items[item.ID]; !ok {
			return domain.ItemNotFound(item.ID)
		}
		d.items[item.ID] = item
		return nil
	})
}

func (r memoryRepos) DeleteItem(ctx context.Context, id int64) error {
	return r.run(func(d *memoryData) error {
		if _, ok := d.items[id]; !ok {
			return domain.ItemNotFound(id)
		}
		for _, c := range sortedValues(d.contents) {
			if c.ItemID == id && d.baskets[c.BasketID].CheckedOut {
				return domain.AlreadyCheckedOut(c.BasketID)
			}
		}
		for cid, c := range d.contents {
			if c.ItemID == id {
				delete(d.contents, cid)
			}
		}
		delete(d.items, id)
		return nil
	})
}

func (r memoryRepos) DecreaseStock(ctx context.Context, id int64, amount int) (*domain.Item, error) {
	var out domain.Item
	err := r.run(func(d *memoryData) error {
		it, ok := d.items[id]
		if !ok {
			return domain.ItemNotFound(id)
		}
		if amount > it.Stock {
			return domain.InsufficientQuantity(it.Name)
		}
		it.Stock -= amount
		d.items[id] = it
		out = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r memoryRepos) ListBaskets(ctx context.Context) ([]domain.Basket, error) {
	var out []domain.Basket
	err := r.run(func(d *memoryData) error {
		out = sortedValues(d.baskets)
		return nil
	})
	return out, err
}

func (r memoryRepos) GetBasket(ctx context.Context, id int64) (*domain.Basket, error) {
	var out domain.Basket
	err := r.run(func(d *memoryData) error {
		b, ok := d.baskets[id]
		if !ok {
			return domain.BasketNotFound(id)
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBasketForUpdate needs no extra locking: every access already holds the
// adapter mutex.
func (r memoryRepos) GetBasketForUpdate(ctx context.Context, id int64) (*domain.Basket, error) {
	return r.GetBasket(ctx, id)
}

func (r memoryRepos) CreateBasket(ctx context.Context, basket *domain.Basket) error {
	return r.run(func(d *memoryData) error {
		if _, ok := d.users[basket.UserID]; !ok {
			return domain.UserNotFound(basket.UserID)
		}
		basket.ID = d.nextID()
		d.baskets[basket.ID] = *basket
		return nil
	})
}

func (r memoryRepos) SaveBasket(ctx context.Context, basket domain.Basket) error {
	return r.run(func(d *memoryData) error {
		if _, ok := d.baskets[basket.ID]; !ok {
			return domain.BasketNotFound(basket.ID)
		}
		d.baskets[basket.ID] = basket
		return nil
	})
}

func (r memoryRepos) DeleteBasket(ctx context.Context, id int64) error {
	return r.run(func(d *memoryData) error {
		if _, ok := d.baskets[id]; !ok {
			return domain.BasketNotFound(id)
		}
		deleteBasket(d, id)
		return nil
	})
}

func deleteBasket(d *memoryData, id int64) {
	for cid, c := range d.contents {
		if c.BasketID == id {
			delete(d.contents, cid)
		}
	}
	delete(d.baskets, id)
}

func (r memoryRepos) ListBasketContents(ctx context.Context) ([]domain.BasketContent, error) {
	var out []domain.BasketContent
	err := r.run(func(d *memoryData) error {
		out = sortedValues(d.contents)
		return nil
	})
	return out, err
}

func (r memoryRepos) GetBasketContent(ctx context.Context, id int64) (*domain.BasketContent, error) {
	var out domain.BasketContent
	err := r.run(func(d *memoryData) error {
		c, ok := d.contents[id]
		if !ok {
			return domain.BasketContentNotFound(id)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r memoryRepos) FindByBasketID(ctx context.Context, basketID int64) ([]domain.BasketContent, error) {
	var out []domain.BasketContent
	err := r.run(func(d *memoryData) error {
		for _, c := range sortedValues(d.contents) {
			if c.BasketID == basketID {
				out = append(out, c)
			}
		}
		return nil
	})
	return out, err
}

func (r memoryRepos) CreateBasketContent(ctx context.Context, content *domain.BasketContent) error {
	return r.run(func(d *memoryData) error {
		if err := checkContentRefs(d, *content); err != nil {
			return err
		}
		content.ID = d.nextID()
		d.contents[content.ID] = *content
		return nil
	})
}

func (r memoryRepos) UpdateBasketContent(ctx context.Context, content domain.BasketContent) error {
	return r.run(func(d *memoryData) error {
		if _, ok := d.contents[content.ID]; !ok {
			return domain.BasketContentNotFound(content.ID)
		}
		if err := checkContentRefs(d, content); err != nil {
			return err
		}
		d.contents[content.ID] = content
		return nil
	})
}

func (r memoryRepos) DeleteBasketContent(ctx context.Context, id int64) error {
	return r.run(func(d *memoryData) error {
		if _, ok := d.contents[id]; !ok {
			return domain.BasketContentNotFound(id)
		}
		delete(d.contents, id)
		return nil
	})
}

// checkContentRefs mirrors the foreign keys of the SQL schema.
func checkContentRefs(d *memoryData, c domain.BasketContent) error {
	if _, ok := d.baskets[c.BasketID]; !ok {
		return domain.BasketNotFound(c.BasketID)
	}
	if _, ok := d.items[c.ItemID]; !ok {
		return domain.ItemNotFound(c.ItemID)
	}
	return nil
}

var _ port.TxStore = (*MemoryAdapter)(nil)
