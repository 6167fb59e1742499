package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rl1809/basket-checkout/internal/core/domain"
	"github.com/rl1809/basket-checkout/internal/port"
)

type UserService struct {
	users  port.UserRepository
	logger zerolog.Logger
}

func NewUserService(users port.UserRepository, logger zerolog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

func (s *UserService) GetAll(ctx context.Context) ([]domain.User, error) {
	return s.users.ListUsers(ctx)
}

func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	if id <= 0 {
		return nil, domain.InvalidInput(domain.MsgIDNotProvided)
	}
	return s.users.GetUser(ctx, id)
}

func (s *UserService) Add(ctx context.Context, in domain.UserInput) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	var user domain.User
	in.Apply(&user)
	if err := s.users.CreateUser(ctx, &user); err != nil {
		return 0, err
	}
	s.logger.Info().Int64("user_id", user.ID).Msg("user created")
	return user.ID, nil
}

func (s *UserService) Update(ctx context.Context, id int64, in domain.UserInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	in.Apply(user)
	if err := s.users.UpdateUser(ctx, *user); err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", id).Msg("user updated")
	return nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.InvalidInput(domain.MsgIDNotProvided)
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}

var _ port.CrudService[domain.User, domain.UserInput] = (*UserService)(nil)
