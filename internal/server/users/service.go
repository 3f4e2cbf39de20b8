package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophbook/internal/common"
	"github.com/dmitrijs2005/gophbook/internal/cryptox"
	"github.com/dmitrijs2005/gophbook/internal/logging"
	"github.com/dmitrijs2005/gophbook/internal/server/models"
)

type Service struct {
	repo   Repository
	params cryptox.Params
	logger logging.Logger

	// dummyHash is verified against when the email is unknown so that the
	// response time does not tell registered and unregistered emails apart.
	dummyHash string
}

func NewService(repo Repository, params cryptox.Params, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		repo:      repo,
		params:    params,
		logger:    logger,
		dummyHash: cryptox.HashPassword(common.GenerateRandByteArray(16), params),
	}
}

// Register creates a user. The email is canonicalized and must not exist in
// any casing.
func (s *Service) Register(ctx context.Context, displayName, rawEmail, rawPassword string) (*models.User, error) {
	name := strings.TrimSpace(displayName)
	email := models.CanonicalEmail(rawEmail)

	if name == "" || email == "" || rawPassword == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", common.ErrorValidation)
	}
	if err := models.ValidateName(name); err != nil {
		return nil, err
	}
	if err := models.ValidateEmail(email); err != nil {
		return nil, err
	}

	password := []byte(rawPassword)
	defer common.WipeByteArray(password)

	user := models.User{DisplayName: name, Email: email}

	_, err := s.repo.Transact(ctx, func(users []models.User) ([]models.User, error) {
		if findByEmail(users, email) >= 0 {
			return nil, fmt.Errorf("%w: email %s is already registered", common.ErrorAlreadyExists, email)
		}
		// hashed under the lock so a rejected duplicate costs nothing
		user.PasswordHash = cryptox.HashPassword(password, s.params)
		return append(users, user), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "email", email)

	u := user.Public()
	return &u, nil
}

// Authenticate returns the user whose email and password match. Unknown
// emails and wrong passwords are reported identically.
func (s *Service) Authenticate(ctx context.Context, rawEmail, rawPassword string) (*models.User, error) {
	email := models.CanonicalEmail(rawEmail)
	if email == "" || rawPassword == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrorValidation)
	}

	password := []byte(rawPassword)
	defer common.WipeByteArray(password)

	users, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	i := findByEmail(users, email)
	if i < 0 {
		_, _, _ = cryptox.VerifyPassword(s.dummyHash, password, s.params)
		return nil, common.ErrorInvalidCredentials
	}
	user := users[i]

	ok, needsRehash, err := cryptox.VerifyPassword(user.PasswordHash, password, s.params)
	if err != nil {
		s.logger.Warn(ctx, "stored password hash not usable", "email", email, "error", err)
		return nil, common.ErrorInvalidCredentials
	}
	if !ok {
		return nil, common.ErrorInvalidCredentials
	}

	if needsRehash {
		s.upgradeHash(ctx, user, cryptox.HashPassword(password, s.params))
	}

	u := user.Public()
	return &u, nil
}

// upgradeHash replaces a legacy or outdated hash. Failure leaves the old
// hash in place and is only logged.
func (s *Service) upgradeHash(ctx context.Context, user models.User, newHash string) {
	_, err := s.repo.Transact(ctx, func(users []models.User) ([]models.User, error) {
		i := findByEmail(users, user.Email)
		if i < 0 || users[i].PasswordHash != user.PasswordHash {
			return nil, errHashChanged
		}
		users[i].PasswordHash = newHash
		return users, nil
	})

	switch {
	case err == nil:
		s.logger.Info(ctx, "password hash upgraded", "email", user.Email)
	case errors.Is(err, errHashChanged):
	default:
		s.logger.Warn(ctx, "password hash upgrade failed", "email", user.Email, "error", err)
	}
}

var errHashChanged = errors.New("stored hash changed concurrently")

// List returns all users without their password hashes.
func (s *Service) List(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

func findByEmail(users []models.User, email string) int {
	for i, u := range users {
		if models.CanonicalEmail(u.Email) == email {
			return i
		}
	}
	return -1
}
