package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drshelkeabhijeet/Studentattendance/internal/model"
)

var (
	// ErrNotFound signals that no profile exists for the identity id.
	ErrNotFound = errors.New("profile: not found")
	// ErrDuplicate signals that a profile already exists for the identity id
	// or email.
	ErrDuplicate = errors.New("profile: already exists")
)

// Repository is the keyed record store holding one profile per identity.
type Repository interface {
	GetByIdentityID(ctx context.Context, id string) (model.Profile, error)
	Insert(ctx context.Context, record model.Profile) error
}

// PGRepository implements Repository against the identity service's Postgres
// database, which the gateway reaches with a service-role connection.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) GetByIdentityID(ctx context.Context, id string) (model.Profile, error) {
	var p model.Profile
	var role string
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, full_name, role, employee_id, student_id, department, phone, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`, id)
	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&role,
		&p.EmployeeID,
		&p.StudentID,
		&p.Department,
		&p.Phone,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("profile: get %s: %w", id, err)
	}
	p.Role = model.Role(role)
	return p, nil
}

func (r *PGRepository) Insert(ctx context.Context, record model.Profile) error {
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (id, email, full_name, role, employee_id, student_id, department, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, record.ID, record.Email, record.FullName, string(record.Role), record.EmployeeID, record.StudentID, record.Department, record.Phone, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("profile: insert %s: %w", record.ID, err)
	}
	return nil
}
