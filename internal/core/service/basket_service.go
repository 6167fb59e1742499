package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rl1809/basket-checkout/internal/core/domain"
	"github.com/rl1809/basket-checkout/internal/port"
)

type BasketService struct {
	store  port.TxStore
	logger zerolog.Logger
	now    func() time.Time
}

func NewBasketService(store port.TxStore, logger zerolog.Logger) *BasketService {
	return &BasketService{store: store, logger: logger, now: time.Now}
}

func (s *BasketService) GetAll(ctx context.Context) ([]domain.Basket, error) {
	return s.store.Baskets().ListBaskets(ctx)
}

func (s *BasketService) Get(ctx context.Context, id int64) (*domain.Basket, error) {
	if id <= 0 {
		return nil, domain.InvalidInput(domain.MsgIDNotProvided)
	}
	return s.store.Baskets().GetBasket(ctx, id)
}

// Contents lists the raw lines of a basket in retrieval order.
func (s *BasketService) Contents(ctx context.Context, id int64) ([]domain.BasketContent, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.BasketContents().FindByBasketID(ctx, id)
}

func (s *BasketService) Add(ctx context.Context, in domain.BasketInput) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	if _, err := s.store.Users().GetUser(ctx, in.UserID); err != nil {
		return 0, err
	}

	basket := domain.Basket{CreatedAt: s.now().UTC()}
	in.Apply(&basket)
	if err := s.store.Baskets().CreateBasket(ctx, &basket); err != nil {
		return 0, err
	}
	s.logger.Info().Int64("basket_id", basket.ID).Int64("user_id", basket.UserID).Msg("basket created")
	return basket.ID, nil
}

// Update reassigns the basket owner. Checked out baskets are frozen.
func (s *BasketService) Update(ctx context.Context, id int64, in domain.BasketInput) error {
	if id <= 0 {
		return domain.InvalidInput(domain.MsgIDNotProvided)
	}
	if err := in.Validate(); err != nil {
		return err
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		basket, err := openBasket(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.Users().GetUser(ctx, in.UserID); err != nil {
			return err
		}
		in.Apply(basket)
		return tx.Baskets().SaveBasket(ctx, *basket)
	})
	if err != nil {
		return err
	}
	s.logger.Info().Int64("basket_id", id).Msg("basket updated")
	return nil
}

func (s *BasketService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.InvalidInput(domain.MsgIDNotProvided)
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		if _, err := tx.Baskets().GetBasketForUpdate(ctx, id); err != nil {
			return err
		}
		return tx.Baskets().DeleteBasket(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info().Int64("basket_id", id).Msg("basket deleted")
	return nil
}

// openBasket locks a basket that is still open for changes.
func openBasket(ctx context.Context, tx port.Store, id int64) (*domain.Basket, error) {
	basket, err := tx.Baskets().GetBasketForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if basket.CheckedOut {
		return nil, domain.AlreadyCheckedOut(id)
	}
	return basket, nil
}

var _ port.CrudService[domain.Basket, domain.BasketInput] = (*BasketService)(nil)
