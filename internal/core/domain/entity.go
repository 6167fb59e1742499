package domain

import (
	"net/mail"
	"strings"
	"time"
)

type User struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	Email     string
}

type Item struct {
	ID    int64
	Name  string
	Price float64
	Stock int
}

type Basket struct {
	ID         int64
	UserID     int64
	CreatedAt  time.Time
	CheckedOut bool // only ever flips false -> true, during checkout
}

// BasketContent is one line of a basket. A basket may hold several lines for
// the same item.
type BasketContent struct {
	ID       int64
	BasketID int64
	ItemID   int64
	Quantity int
}

// Input shapes accepted by the CRUD layer. Each carries only the fields a
// client may write; identities, timestamps and the checkout flag are never
// taken from input.

type UserInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
}

func (in UserInput) Validate() error {
	switch {
	case strings.TrimSpace(in.FirstName) == "":
		return InvalidInput(MsgFirstNameBlank)
	case strings.TrimSpace(in.LastName) == "":
		return InvalidInput(MsgLastNameBlank)
	case strings.TrimSpace(in.Username) == "":
		return InvalidInput(MsgUsernameBlank)
	case strings.TrimSpace(in.Email) == "":
		return InvalidInput(MsgEmailBlank)
	}
	addr, err := mail.ParseAddress(in.Email)
	if err != nil || addr.Address != strings.TrimSpace(in.Email) {
		return InvalidInput(MsgEmailInvalid)
	}
	return nil
}

// Apply copies the writable fields onto u.
func (in UserInput) Apply(u *User) {
	u.FirstName = in.FirstName
	u.LastName = in.LastName
	u.Username = in.Username
	u.Email = in.Email
}

type ItemInput struct {
	Name  string
	Price float64
	Stock int
}

func (in ItemInput) Validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return InvalidInput(MsgNameBlank)
	case in.Price <= 0:
		return InvalidInput(MsgPriceNegative)
	case in.Stock < 0:
		return InvalidInput(MsgStockNegative)
	}
	return nil
}

func (in ItemInput) Apply(it *Item) {
	it.Name = in.Name
	it.Price = in.Price
	it.Stock = in.Stock
}

type BasketInput struct {
	UserID int64
}

func (in BasketInput) Validate() error {
	if in.UserID <= 0 {
		return InvalidInput(MsgIDNotProvided)
	}
	return nil
}

func (in BasketInput) Apply(b *Basket) {
	b.UserID = in.UserID
}

type BasketContentInput struct {
	BasketID int64
	ItemID   int64
	Quantity int
}

func (in BasketContentInput) Validate() error {
	if in.BasketID <= 0 || in.ItemID <= 0 {
		return InvalidInput(MsgIDNotProvided)
	}
	if in.Quantity <= 0 {
		return InvalidInput(MsgQuantityNegative)
	}
	return nil
}

func (in BasketContentInput) Apply(c *BasketContent) {
	c.BasketID = in.BasketID
	c.ItemID = in.ItemID
	c.Quantity = in.Quantity
}
