package core

import (
	"context"
	"errors"
	"log"
	"strings"
)

const loginRedirectURL = "/mainPage"

// fallbackDummyHash is a default-cost hash used only if generating the
// per-service dummy hash fails.
const fallbackDummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

var (
	// ErrEmailTaken is returned when registering with an email already in use.
	ErrEmailTaken = errors.New("email already in use")
	// ErrPasswordMismatch is returned when registration passwords differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// RepositoryAuthService implements AuthService on top of the user repository,
// bcrypt hashing, and the token codec.
type RepositoryAuthService struct {
	users      UserRepository
	codec      *TokenCodec
	bcryptCost int
	dummyHash  string
}

func NewRepositoryAuthService(users UserRepository, codec *TokenCodec, bcryptCost int) *RepositoryAuthService {
	// The dummy hash compared against on a lookup miss must carry the same
	// cost as the hashes this service writes, or the miss path would be
	// cheaper than a wrong-password compare and timing would reveal which
	// emails exist.
	dummyHash, err := HashPassword("timing-equalizer", bcryptCost)
	if err != nil {
		dummyHash = fallbackDummyHash
	}
	return &RepositoryAuthService{users: users, codec: codec, bcryptCost: bcryptCost, dummyHash: dummyHash}
}

// Login verifies the credential and issues a token. Unknown email and wrong
// password both come back as ErrInvalidCredentials; the two paths do the same
// amount of hashing work so they are not distinguishable from outside.
func (s *RepositoryAuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		CheckPassword(password, s.dummyHash)
		return LoginResult{}, ErrInvalidCredentials
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.Printf("login: user lookup failed: %v", err)
		}
		CheckPassword(password, s.dummyHash)
		return LoginResult{}, ErrInvalidCredentials
	}

	if !CheckPassword(password, u.PasswordHash) {
		return LoginResult{}, ErrInvalidCredentials
	}

	role, err := ParseRole(u.Role)
	if err != nil {
		log.Printf("login: rejecting credential %q: %v", u.Email, err)
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.codec.Issue(u.Email)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, Role: role, RedirectURL: loginRedirectURL}, nil
}

// Register creates a new USER credential after checking that the email is free
// and the password confirmation matches.
func (s *RepositoryAuthService) Register(ctx context.Context, name, email, password, confirm string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return errors.New("name, email and password are required")
	}
	if password != confirm {
		return ErrPasswordMismatch
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	if _, err := s.users.Create(ctx, name, email, hash, string(RoleUser)); err != nil {
		return err
	}
	return nil
}
