package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rl1809/basket-checkout/internal/core/domain"
	"github.com/rl1809/basket-checkout/internal/port"
)

// BasketContentService manages basket lines. Lines of a checked out basket
// can no longer be added, changed or removed.
type BasketContentService struct {
	store  port.TxStore
	logger zerolog.Logger
}

func NewBasketContentService(store port.TxStore, logger zerolog.Logger) *BasketContentService {
	return &BasketContentService{store: store, logger: logger}
}

func (s *BasketContentService) GetAll(ctx context.Context) ([]domain.BasketContent, error) {
	return s.store.BasketContents().ListBasketContents(ctx)
}

func (s *BasketContentService) Get(ctx context.Context, id int64) (*domain.BasketContent, error) {
	if id <= 0 {
		return nil, domain.InvalidInput(domain.MsgIDNotProvided)
	}
	return s.store.BasketContents().GetBasketContent(ctx, id)
}

func (s *BasketContentService) Add(ctx context.Context, in domain.BasketContentInput) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}

	var content domain.BasketContent
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		if _, err := openBasket(ctx, tx, in.BasketID); err != nil {
			return err
		}
		if _, err := tx.Items().GetItem(ctx, in.ItemID); err != nil {
			return err
		}
		in.Apply(&content)
		return tx.BasketContents().CreateBasketContent(ctx, &content)
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info().
		Int64("content_id", content.ID).
		Int64("basket_id", content.BasketID).
		Int64("item_id", content.ItemID).
		Msg("basket content created")
	return content.ID, nil
}

func (s *BasketContentService) Update(ctx context.Context, id int64, in domain.BasketContentInput) error {
	if id <= 0 {
		return domain.InvalidInput(domain.MsgIDNotProvided)
	}
	if err := in.Validate(); err != nil {
		return err
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		content, err := tx.BasketContents().GetBasketContent(ctx, id)
		if err != nil {
			return err
		}
		if _, err := openBasket(ctx, tx, content.BasketID); err != nil {
			return err
		}
		if in.BasketID != content.BasketID {
			if _, err := openBasket(ctx, tx, in.BasketID); err != nil {
				return err
			}
		}
		if _, err := tx.Items().GetItem(ctx, in.ItemID); err != nil {
			return err
		}
		in.Apply(content)
		return tx.BasketContents().UpdateBasketContent(ctx, *content)
	})
	if err != nil {
		return err
	}
	s.logger.Info().Int64("content_id", id).Msg("basket content updated")
	return nil
}

func (s *BasketContentService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.InvalidInput(domain.MsgIDNotProvided)
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		content, err := tx.BasketContents().GetBasketContent(ctx, id)
		if err != nil {
			return err
		}
		if _, err := openBasket(ctx, tx, content.BasketID); err != nil {
			return err
		}
		return tx.BasketContents().DeleteBasketContent(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info().Int64("content_id", id).Msg("basket content deleted")
	return nil
}

var _ port.CrudService[domain.BasketContent, domain.BasketContentInput] = (*BasketContentService)(nil)
