package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rl1809/basket-checkout/internal/core/domain"
	"github.com/rl1809/basket-checkout/internal/port"
)

type ItemService struct {
	store  port.TxStore
	items  port.ItemRepository
	logger zerolog.Logger
}

func NewItemService(store port.TxStore, logger zerolog.Logger) *ItemService {
	return &ItemService{store: store, items: store.Items(), logger: logger}
}

func (s *ItemService) GetAll(ctx context.Context) ([]domain.Item, error) {
	return s.items.ListItems(ctx)
}

func (s *ItemService) Get(ctx context.Context, id int64) (*domain.Item, error) {
	if id <= 0 {
		return nil, domain.InvalidInput(domain.MsgIDNotProvided)
	}
	return s.items.GetItem(ctx, id)
}

func (s *ItemService) Add(ctx context.Context, in domain.ItemInput) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	var item domain.Item
	in.Apply(&item)
	if err := s.items.CreateItem(ctx, &item); err != nil {
		return 0, err
	}
	s.logger.Info().Int64("item_id", item.ID).Msg("item created")
	return item.ID, nil
}

func (s *ItemService) Update(ctx context.Context, id int64, in domain.ItemInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	in.Apply(item)
	if err := s.items.UpdateItem(ctx, *item); err != nil {
		return err
	}
	s.logger.Info().Int64("item_id", id).Msg("item updated")
	return nil
}

func (s *ItemService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.InvalidInput(domain.MsgIDNotProvided)
	}
	// lines of open baskets go with the item; a checked out basket pins it
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		return tx.Items().DeleteItem(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info().Int64("item_id", id).Msg("item deleted")
	return nil
}

var _ port.CrudService[domain.Item, domain.ItemInput] = (*ItemService)(nil)
