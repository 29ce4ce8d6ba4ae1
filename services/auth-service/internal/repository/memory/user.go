package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]model.User)}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return nil, fmt.Errorf("%w: email", repository.ErrDuplicateKey)
		}
		if samePhone(existing.Phone, user.Phone) {
			return nil, fmt.Errorf("%w: phone", repository.ErrDuplicateKey)
		}
	}

	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = cloneUser(*user)

	return user, nil
}

func (r *UserRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	return r.find(ctx, func(u *model.User) bool { return u.ID == id })
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.find(ctx, func(u *model.User) bool { return u.Email == email })
}

func (r *UserRepository) GetUserByEmailOrPhone(
	ctx context.Context,
	email string,
	phone *string,
) (*model.User, error) {
	return r.find(ctx, func(u *model.User) bool {
		return u.Email == email || samePhone(u.Phone, phone)
	})
}

func (r *UserRepository) UpdateUser(
	ctx context.Context,
	id string,
	params repository.UpdateUserParams,
) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	if params.IsEmpty() {
		out := cloneUser(user)
		return &out, nil
	}

	if params.PasswordHash != nil {
		user.PasswordHash = *params.PasswordHash
	}
	if params.IsVerified != nil {
		user.IsVerified = *params.IsVerified
	}
	if params.IsActive != nil {
		user.IsActive = *params.IsActive
	}
	user.UpdatedAt = time.Now().UTC()
	r.users[id] = user

	out := cloneUser(user)
	return &out, nil
}

func (r *UserRepository) find(ctx context.Context, match func(*model.User) bool) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(&u) {
			out := cloneUser(u)
			return &out, nil
		}
	}

	return nil, repository.ErrNotFound
}

func samePhone(a, b *string) bool {
	return a != nil && b != nil && *a != "" && *a == *b
}

func cloneUser(u model.User) model.User {
	if u.Phone != nil {
		phone := *u.Phone
		u.Phone = &phone
	}
	if u.DateOfBirth != nil {
		dob := *u.DateOfBirth
		u.DateOfBirth = &dob
	}
	return u
}
