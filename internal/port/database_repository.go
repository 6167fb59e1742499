package port

import (
	"context"

	"github.com/rl1809/basket-checkout/internal/core/domain"
)

// Repositories report missing rows with a domain not-found error.

type UserRepository interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUser(ctx context.Context, user domain.User) error
	DeleteUser(ctx context.Context, id int64) error
}

type ItemRepository interface {
	ListItems(ctx context.Context) ([]domain.Item, error)
	GetItem(ctx context.Context, id int64) (*domain.Item, error)
	CreateItem(ctx context.Context, item *domain.Item) error
	UpdateItem(ctx context.Context, item domain.Item) error
	// DeleteItem removes the item and its lines in open baskets. It fails
	// with AlreadyCheckedOut while a checked out basket holds the item.
	DeleteItem(ctx context.Context, id int64) error

	// DecreaseStock atomically takes amount off the item's current stock and
	// returns the updated item. It fails with InsufficientQuantity when the
	// stock at decrement time is lower than amount.
	DecreaseStock(ctx context.Context, id int64, amount int) (*domain.Item, error)
}

type BasketRepository interface {
	ListBaskets(ctx context.Context) ([]domain.Basket, error)
	GetBasket(ctx context.Context, id int64) (*domain.Basket, error)

	// GetBasketForUpdate loads the basket and holds a row lock on it until the
	// surrounding transaction ends.
	GetBasketForUpdate(ctx context.Context, id int64) (*domain.Basket, error)
	CreateBasket(ctx context.Context, basket *domain.Basket) error
	SaveBasket(ctx context.Context, basket domain.Basket) error
	DeleteBasket(ctx context.Context, id int64) error
}

type BasketContentRepository interface {
	ListBasketContents(ctx context.Context) ([]domain.BasketContent, error)
	GetBasketContent(ctx context.Context, id int64) (*domain.BasketContent, error)

	// FindByBasketID returns the basket's lines in ascending line id order.
	FindByBasketID(ctx context.Context, basketID int64) ([]domain.BasketContent, error)
	CreateBasketContent(ctx context.Context, content *domain.BasketContent) error
	UpdateBasketContent(ctx context.Context, content domain.BasketContent) error
	DeleteBasketContent(ctx context.Context, id int64) error
}

type Store interface {
	Users() UserRepository
	Items() ItemRepository
	Baskets() BasketRepository
	BasketContents() BasketContentRepository
}

// TxStore runs fn in a single transaction. Everything fn writes through tx is
// committed together when fn returns nil and discarded otherwise.
type TxStore interface {
	Store
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
