package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository"
)

const userColumns = `id, email, phone, password_hash, first_name, last_name, role,
	is_active, is_verified, date_of_birth, created_at, updated_at`

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Phone,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		string(user.Role),
		user.IsActive,
		user.IsVerified,
		user.DateOfBirth,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return nil, pgErr(err)
	}

	return user, nil
}

func (r *UserRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) GetUserByEmailOrPhone(
	ctx context.Context,
	email string,
	phone *string,
) (*model.User, error) {
	if phone == nil || *phone == "" {
		return r.GetUserByEmail(ctx, email)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 OR phone = $2 LIMIT 1`
	return r.queryOne(ctx, query, email, *phone)
}

func (r *UserRepository) UpdateUser(
	ctx context.Context,
	id string,
	params repository.UpdateUserParams,
) (*model.User, error) {
	if params.IsEmpty() {
		return r.GetUser(ctx, id)
	}

	sets := []string{}
	args := []any{}
	argCounter := 1

	if params.PasswordHash != nil {
		sets = append(sets, fmt.Sprintf("password_hash = $%d", argCounter))
		args = append(args, *params.PasswordHash)
		argCounter++
	}
	if params.IsVerified != nil {
		sets = append(sets, fmt.Sprintf("is_verified = $%d", argCounter))
		args = append(args, *params.IsVerified)
		argCounter++
	}
	if params.IsActive != nil {
		sets = append(sets, fmt.Sprintf("is_active = $%d", argCounter))
		args = append(args, *params.IsActive)
		argCounter++
	}

	sets = append(sets, fmt.Sprintf("updated_at = $%d", argCounter))
	args = append(args, time.Now().UTC())
	argCounter++

	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "),
		argCounter,
		userColumns,
	)
	args = append(args, id)

	return r.queryOne(ctx, query, args...)
}

func (r *UserRepository) queryOne(ctx context.Context, query string, args ...any) (*model.User, error) {
	var user model.User
	var role string

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&role,
		&user.IsActive,
		&user.IsVerified,
		&user.DateOfBirth,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, pgErr(err)
	}
	user.Role = model.Role(role)

	return &user, nil
}
