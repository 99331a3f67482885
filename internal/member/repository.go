package member

import (
	"context"
	"database/sql"
	"errors"

	"chatserver/internal/apperror"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateMember(ctx context.Context, m *Member) (*Member, error) {
	query := `INSERT INTO members (email, name, password, role) VALUES ($1, $2, $3, $4) RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, m.Email, m.Name, m.Password, m.Role).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*Member, error) {
	m := &Member{}
	query := `SELECT id, email, name, password, role, created_at FROM members WHERE email = $1`

	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&m.ID, &m.Email, &m.Name, &m.Password, &m.Role, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("member cannot be found")
		}
		return nil, err
	}
	return m, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Member, error) {
	m := &Member{}
	query := `SELECT id, email, name, password, role, created_at FROM members WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&m.ID, &m.Email, &m.Name, &m.Password, &m.Role, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("member cannot be found")
		}
		return nil, err
	}
	return m, nil
}

func (r *Repository) ListMembers(ctx context.Context) ([]ListItem, error) {
	query := `SELECT id, email, name FROM members ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []ListItem
	for rows.Next() {
		var m ListItem
		if err := rows.Scan(&m.ID, &m.Email, &m.Name); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
