package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/SergeSyntax/mock-server/internal/auth"
	"github.com/SergeSyntax/mock-server/internal/dto"
	"github.com/SergeSyntax/mock-server/internal/models"
	"github.com/SergeSyntax/mock-server/internal/store"
	"github.com/google/uuid"
)

var ErrEmailTaken = errors.New("the email address already in use")

// ValidationError lists request fields that failed validation.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	_, email := e.Fields["email"]
	_, password := e.Fields["password"]
	if email || password {
		return "You must provide email and password"
	}
	return "Invalid registration request"
}

type AuthService struct {
	users  *UserRepository
	tokens *auth.TokenService
	hasher auth.Hasher
}

func NewAuthService(users *UserRepository, tokens *auth.TokenService, hasher auth.Hasher) *AuthService {
	return &AuthService{users: users, tokens: tokens, hasher: hasher}
}

// Register stores a new user built from body and returns it without the
// password hash, together with a fresh token. Fields other than id and
// password are kept as sent.
func (s *AuthService) Register(ctx context.Context, body store.Record) (store.Record, string, error) {
	req := dto.RegisterRequest{}
	req.Email, _ = body["email"].(string)
	req.Password, _ = body["password"].(string)
	req.Email = strings.TrimSpace(req.Email)

	if err := validateRegister(&req, body); err != nil {
		return nil, "", err
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, "", ErrEmailTaken
	} else if !errors.Is(err, auth.ErrUserNotFound) {
		return nil, "", fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	rec := body.Clone()
	rec["id"] = uuid.NewString()
	rec["email"] = req.Email
	rec["password"] = hash
	if _, ok := rec["name"]; !ok {
		rec["name"] = nil
	}
	if role, _ := rec["role"].(string); role == "" {
		rec["role"] = models.RoleUser
	}

	created, err := s.users.Create(ctx, rec)
	if err != nil {
		return nil, "", err
	}

	var user models.User
	if err := store.Decode(created, &user); err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(&user)
	if err != nil {
		return nil, "", err
	}

	delete(created, "password")
	return created, token, nil
}

// IssueToken signs a token for an already authenticated user.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	return s.tokens.Issue(user)
}

func validateRegister(req *dto.RegisterRequest, body store.Record) error {
	errs := userFieldErrors(body)
	if errs["email"] == nil {
		errs["email"] = validation.Validate(req.Email, validation.Required)
	}
	if errs["password"] == nil {
		errs["password"] = validation.Validate(req.Password, validation.Required)
	}
	if errs["role"] == nil {
		role, _ := body["role"].(string)
		errs["role"] = validation.Validate(role, validation.In(rolesAsAny()...))
	}
	return asValidationError(errs.Filter(), "")
}

func asValidationError(err error, message string) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	fields := make(map[string]string, len(errs))
	for field, e := range errs {
		fields[field] = e.Error()
	}
	return &ValidationError{Message: message, Fields: fields}
}

func rolesAsAny() []interface{} {
	out := make([]interface{}, len(models.Roles))
	for i, r := range models.Roles {
		out[i] = r
	}
	return out
}
