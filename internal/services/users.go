package services

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/SergeSyntax/mock-server/internal/auth"
	"github.com/SergeSyntax/mock-server/internal/models"
	"github.com/SergeSyntax/mock-server/internal/store"
)

// UserRepository reads and writes the users collection of the document.
type UserRepository struct {
	store store.Store
}

func NewUserRepository(s store.Store) *UserRepository {
	return &UserRepository{store: s}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	rec, err := r.store.Get(ctx, models.CollectionUsers, id)
	return r.decode(rec, err)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	rec, err := r.store.Find(ctx, models.CollectionUsers, "email", email)
	return r.decode(rec, err)
}

// Create inserts rec into users. The store rejects a second record with the
// same email, which makes registration safe against concurrent duplicates.
func (r *UserRepository) Create(ctx context.Context, rec store.Record) (store.Record, error) {
	created, err := r.store.Insert(ctx, models.CollectionUsers, rec)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return created, nil
}

func (r *UserRepository) decode(rec store.Record, err error) (*models.User, error) {
	if errors.Is(err, store.ErrNotFound) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return userFromRecord(rec), nil
}

// userFromRecord reads the typed user fields. A field holding the wrong
// JSON type is left zero so the rest of the record stays usable.
func userFromRecord(rec store.Record) *models.User {
	str := func(key string) string {
		s, _ := rec[key].(string)
		return s
	}
	user := &models.User{
		ID:                rec.ID(),
		Email:             str("email"),
		Password:          str("password"),
		Role:              str("role"),
		ResetToken:        str("resetToken"),
		ResetTokenExpires: str("resetTokenExpires"),
	}
	if name, ok := rec["name"].(string); ok {
		user.Name = &name
	}
	return user
}

// ValidateUserFields checks that the typed fields of a users record hold
// strings. Absent and null fields pass.
func ValidateUserFields(rec store.Record) error {
	return asValidationError(userFieldErrors(rec).Filter(), "Invalid user record")
}

func userFieldErrors(rec store.Record) validation.Errors {
	errs := validation.Errors{}
	for _, field := range []string{"email", "password", "name", "role", "resetToken", "resetTokenExpires"} {
		errs[field] = validation.Validate(rec[field], isString)
	}
	return errs
}

var isString = validation.By(func(value interface{}) error {
	if value == nil {
		return nil
	}
	if _, ok := value.(string); !ok {
		return errors.New("must be a string")
	}
	return nil
})

