package handler

import (
	"time"

	"github.com/rl1809/basket-checkout/internal/core/domain"
)

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type UserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}

func (r UserRequest) input() domain.UserInput {
	return domain.UserInput{FirstName: r.FirstName, LastName: r.LastName, Username: r.Username, Email: r.Email}
}

type UserResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}

func userResponse(u domain.User) UserResponse {
	return UserResponse{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Username: u.Username, Email: u.Email}
}

type ItemRequest struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

func (r ItemRequest) input() domain.ItemInput {
	return domain.ItemInput{Name: r.Name, Price: r.Price, Stock: r.Stock}
}

type ItemResponse struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

func itemResponse(it domain.Item) ItemResponse {
	return ItemResponse{ID: it.ID, Name: it.Name, Price: it.Price, Stock: it.Stock}
}

type BasketRequest struct {
	UserID int64 `json:"user_id"`
}

func (r BasketRequest) input() domain.BasketInput {
	return domain.BasketInput{UserID: r.UserID}
}

type BasketResponse struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
	CheckedOut bool      `json:"checked_out"`
}

func basketResponse(b domain.Basket) BasketResponse {
	return BasketResponse{ID: b.ID, UserID: b.UserID, CreatedAt: b.CreatedAt, CheckedOut: b.CheckedOut}
}

type BasketContentRequest struct {
	BasketID int64 `json:"basket_id"`
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

func (r BasketContentRequest) input() domain.BasketContentInput {
	return domain.BasketContentInput{BasketID: r.BasketID, ItemID: r.ItemID, Quantity: r.Quantity}
}

type BasketContentResponse struct {
	ID       int64 `json:"id"`
	BasketID int64 `json:"basket_id"`
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

func basketContentResponse(c domain.BasketContent) BasketContentResponse {
	return BasketContentResponse{ID: c.ID, BasketID: c.BasketID, ItemID: c.ItemID, Quantity: c.Quantity}
}
