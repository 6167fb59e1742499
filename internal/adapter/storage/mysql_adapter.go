package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/basket-checkout/internal/core/domain"
	"github.com/rl1809/basket-checkout/internal/port"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) repos() mysqlRepos { return mysqlRepos{q: m.db} }

func (m *MySQLAdapter) Users() port.UserRepository                   { return m.repos() }
func (m *MySQLAdapter) Items() port.ItemRepository                   { return m.repos() }
func (m *MySQLAdapter) Baskets() port.BasketRepository               { return m.repos() }
func (m *MySQLAdapter) BasketContents() port.BasketContentRepository { return m.repos() }

func (m *MySQLAdapter) WithinTx(ctx context.Context, fn func(ctx context.Context, tx port.Store) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, mysqlTx{mysqlRepos{q: tx}}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type mysqlTx struct{ r mysqlRepos }

func (t mysqlTx) Users() port.UserRepository                   { return t.r }
func (t mysqlTx) Items() port.ItemRepository                   { return t.r }
func (t mysqlTx) Baskets() port.BasketRepository               { return t.r }
func (t mysqlTx) BasketContents() port.BasketContentRepository { return t.r }

type mysqlRepos struct {
	q querier
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (r mysqlRepos) exists(ctx context.Context, table string, id int64) (bool, error) {
	var one int
	err := r.q.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query %s: %w", table, err)
	}
	return true, nil
}

// checkAffected turns a zero-row write into notFound. MySQL reports zero
// affected rows for an UPDATE that changes nothing, so existence is
// re-checked before giving up.
func (r mysqlRepos) checkAffected(ctx context.Context, res sql.Result, table string, id int64, notFound func(int64) error) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}
	ok, err := r.exists(ctx, table, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound(id)
	}
	return nil
}

func insertID(res sql.Result) (int64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// users

const userColumns = `id, first_name, last_name, username, email`

func scanUser(s scanner) (domain.User, error) {
	var u domain.User
	err := s.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email)
	return u, err
}

func (r mysqlRepos) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r mysqlRepos) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.UserNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func (r mysqlRepos) CreateUser(ctx context.Context, user *domain.User) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO users (first_name, last_name, username, email)
		VALUES (?, ?, ?, ?)`,
		user.FirstName, user.LastName, user.Username, user.Email,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID, err = insertID(res)
	return err
}

func (r mysqlRepos) UpdateUser(ctx context.Context, user domain.User) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET first_name = ?, last_name = ?, username = ?, email = ?
		WHERE id = ?`,
		user.FirstName, user.LastName, user.Username, user.Email, user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return r.checkAffected(ctx, res, "users", user.ID, domain.UserNotFound)
}

func (r mysqlRepos) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return r.checkAffected(ctx, res, "users", id, domain.UserNotFound)
}

// items

const itemColumns = `id, name, price, stock`

func scanItem(s scanner) (domain.Item, error) {
	var it domain.Item
	err := s.Scan(&it.ID, &it.Name, &it.Price, &it.Stock)
	return it, err
}

func (r mysqlRepos) ListItems(ctx context.Context) ([]domain.Item, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+itemColumns+` FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r mysqlRepos) getItem(ctx context.Context, id int64, forUpdate bool) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	it, err := scanItem(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ItemNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return &it, nil
}

func (r mysqlRepos) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	return r.getItem(ctx, id, false)
}

func (r mysqlRepos) CreateItem(ctx context.Context, item *domain.Item) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO items (name, price, stock) VALUES (?, ?, ?)`,
		item.Name, item.Price, item.Stock,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	item.ID, err = insertID(res)
	return err
}

func (r mysqlRepos) UpdateItem(ctx context.Context, item domain.Item) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE items SET name = ?, price = ?, stock = ? WHERE id = ?`,
		item.Name, item.Price, item.Stock, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return r.checkAffected(ctx, res, "items", item.ID, domain.ItemNotFound)
}

// DeleteItem locks the item row first. Any checkout that decremented it has
// committed by then, and the plain read below takes its snapshot after the
// lock is granted, so it sees those baskets as checked out.
func (r mysqlRepos) DeleteItem(ctx context.Context, id int64) error {
	if _, err := r.getItem(ctx, id, true); err != nil {
		return err
	}

	var basketID int64
	err := r.q.QueryRowContext(ctx, `
		SELECT b.id
		FROM basket_contents c
		JOIN baskets b ON b.id = c.basket_id
		WHERE c.item_id = ? AND b.checked_out
		ORDER BY b.id
		LIMIT 1`,
		id,
	).Scan(&basketID)
	switch {
	case err == nil:
		return domain.AlreadyCheckedOut(basketID)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("query checked out baskets of item %d: %w", id, err)
	}

	res, err := r.q.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return r.checkAffected(ctx, res, "items", id, domain.ItemNotFound)
}

// DecreaseStock locks the item row, then applies a guarded decrement so a
// concurrent writer can never push stock below zero.
func (r mysqlRepos) DecreaseStock(ctx context.Context, id int64, amount int) (*domain.Item, error) {
	item, err := r.getItem(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if amount > item.Stock {
		return nil, domain.InsufficientQuantity(item.Name)
	}

	res, err := r.q.ExecContext(ctx, `
		UPDATE items
		SET stock = stock - ?
		WHERE id = ? AND stock >= ?`,
		amount, id, amount,
	)
	if err != nil {
		return nil, fmt.Errorf("decrease stock: %w", err)
	}

	ok, err := decremented(res)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.InsufficientQuantity(item.Name)
	}

	item.Stock -= amount
	return item, nil
}

func decremented(res sql.Result) (bool, error) {
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows > 0, nil
}

// baskets

const basketColumns = `id, user_id, created_at, checked_out`

func scanBasket(s scanner) (domain.Basket, error) {
	var b domain.Basket
	err := s.Scan(&b.ID, &b.UserID, &b.CreatedAt, &b.CheckedOut)
	return b, err
}

func (r mysqlRepos) ListBaskets(ctx context.Context) ([]domain.Basket, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+basketColumns+` FROM baskets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query baskets: %w", err)
	}
	defer rows.Close()

	baskets := []domain.Basket{}
	for rows.Next() {
		b, err := scanBasket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan basket: %w", err)
		}
		baskets = append(baskets, b)
	}
	return baskets, rows.Err()
}

func (r mysqlRepos) getBasket(ctx context.Context, id int64, forUpdate bool) (*domain.Basket, error) {
	query := `SELECT ` + basketColumns + ` FROM baskets WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	b, err := scanBasket(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.BasketNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("query basket: %w", err)
	}
	return &b, nil
}

func (r mysqlRepos) GetBasket(ctx context.Context, id int64) (*domain.Basket, error) {
	return r.getBasket(ctx, id, false)
}

func (r mysqlRepos) GetBasketForUpdate(ctx context.Context, id int64) (*domain.Basket, error) {
	return r.getBasket(ctx, id, true)
}

func (r mysqlRepos) CreateBasket(ctx context.Context, basket *domain.Basket) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO baskets (user_id, created_at, checked_out) VALUES (?, ?, ?)`,
		basket.UserID, basket.CreatedAt, basket.CheckedOut,
	)
	if err != nil {
		return fmt.Errorf("insert basket: %w", err)
	}
	basket.ID, err = insertID(res)
	return err
}

func (r mysqlRepos) SaveBasket(ctx context.Context, basket domain.Basket) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE baskets SET user_id = ?, checked_out = ? WHERE id = ?`,
		basket.UserID, basket.CheckedOut, basket.ID,
	)
	if err != nil {
		return fmt.Errorf("update basket: %w", err)
	}
	return r.checkAffected(ctx, res, "baskets", basket.ID, domain.BasketNotFound)
}

func (r mysqlRepos) DeleteBasket(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM baskets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete basket: %w", err)
	}
	return r.checkAffected(ctx, res, "baskets", id, domain.BasketNotFound)
}

// basket contents

const contentColumns = `id, basket_id, item_id, quantity`

func scanContent(s scanner) (domain.BasketContent, error) {
	var c domain.BasketContent
	err := s.Scan(&c.ID, &c.BasketID, &c.ItemID, &c.Quantity)
	return c, err
}

func (r mysqlRepos) queryContents(ctx context.Context, query string, args ...any) ([]domain.BasketContent, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query basket contents: %w", err)
	}
	defer rows.Close()

	contents := []domain.BasketContent{}
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan basket content: %w", err)
		}
		contents = append(contents, c)
	}
	return contents, rows.Err()
}

func (r mysqlRepos) ListBasketContents(ctx context.Context) ([]domain.BasketContent, error) {
	return r.queryContents(ctx, `SELECT `+contentColumns+` FROM basket_contents ORDER BY id`)
}

func (r mysqlRepos) FindByBasketID(ctx context.Context, basketID int64) ([]domain.BasketContent, error) {
	return r.queryContents(ctx,
		`SELECT `+contentColumns+` FROM basket_contents WHERE basket_id = ? ORDER BY id`, basketID)
}

func (r mysqlRepos) GetBasketContent(ctx context.Context, id int64) (*domain.BasketContent, error) {
	c, err := scanContent(r.q.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM basket_contents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.BasketContentNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("query basket content: %w", err)
	}
	return &c, nil
}

func (r mysqlRepos) CreateBasketContent(ctx context.Context, content *domain.BasketContent) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO basket_contents (basket_id, item_id, quantity) VALUES (?, ?, ?)`,
		content.BasketID, content.ItemID, content.Quantity,
	)
	if err != nil {
		return fmt.Errorf("insert basket content: %w", err)
	}
	content.ID, err = insertID(res)
	return err
}

func (r mysqlRepos) UpdateBasketContent(ctx context.Context, content domain.BasketContent) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE basket_contents SET basket_id = ?, item_id = ?, quantity = ? WHERE id = ?`,
		content.BasketID, content.ItemID, content.Quantity, content.ID,
	)
	if err != nil {
		return fmt.Errorf("update basket content: %w", err)
	}
	return r.checkAffected(ctx, res, "basket_contents", content.ID, domain.BasketContentNotFound)
}

func (r mysqlRepos) DeleteBasketContent(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM basket_contents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete basket content: %w", err)
	}
	return r.checkAffected(ctx, res, "basket_contents", id, domain.BasketContentNotFound)
}

var _ port.TxStore = (*MySQLAdapter)(nil)
