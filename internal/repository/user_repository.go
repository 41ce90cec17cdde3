package repository

import (
	"context"
	"database/sql"
	"errors"

	"storefront/internal/entity"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db}
}

const userColumns = `id, phone, name, email, password_hash, is_admin, created_at, postal_code, street, number, complement, district, city, state`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*entity.User, error) {
	user := &entity.User{}
	a := &user.Address
	err := row.Scan(&user.ID, &user.Phone, &user.Name, &user.Email, &user.PasswordHash, &user.IsAdmin, &user.CreatedAt,
		&a.PostalCode, &a.Street, &a.Number, &a.Complement, &a.District, &a.City, &a.State)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}) (*entity.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepository) GetUserByPhone(ctx context.Context, phone string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE phone = ?`, phone)
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *UserRepository) CreateUser(ctx context.Context, user *entity.User) (*entity.User, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = nowUTC()
	}
	a := user.Address

	query := `INSERT INTO users (phone, name, email, password_hash, is_admin, created_at, postal_code, street, number, complement, district, city, state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, user.Phone, user.Name, user.Email, user.PasswordHash, user.IsAdmin, user.CreatedAt,
		a.PostalCode, a.Street, a.Number, a.Complement, a.District, a.City, a.State)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	user.ID = int(id)
	return user, nil
}

func (r *UserRepository) GetUsers(ctx context.Context) ([]*entity.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*entity.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// SetAdmin grants the administrator flag. The DSN must use clientFoundRows so that
// promoting an existing admin still counts as a match.
func (r *UserRepository) SetAdmin(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_admin = TRUE WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
