package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/foodle-app/foodle/app/models"
	"github.com/foodle-app/foodle/app/repositories"
	"github.com/foodle-app/foodle/pkg/auth"
	"github.com/foodle-app/foodle/pkg/logger"
)

// Experience is where a signed-in user belongs. It is either
// StudentExperience or VendorExperience; use Dispatch to branch on it.
type Experience interface {
	experience()
}

type StudentExperience struct{}

type VendorExperience struct {
	StallID string
}

func (StudentExperience) experience() {}
func (VendorExperience) experience()  {}

// ExperienceFor picks the experience for user. stall is the vendor's stall
// and may be nil.
func ExperienceFor(user models.User, stall *models.Stall) Experience {
	if user.Role == models.RoleVendor {
		v := VendorExperience{}
		if stall != nil {
			v.StallID = stall.ID
		}
		return v
	}
	return StudentExperience{}
}

// Dispatch calls the handler for e's variant.
func Dispatch[R any](e Experience, student func(StudentExperience) R, vendor func(VendorExperience) R) R {
	switch v := e.(type) {
	case VendorExperience:
		return vendor(v)
	case StudentExperience:
		return student(v)
	}
	panic(fmt.Sprintf("services: unknown experience %T", e))
}

// Landing is the first page for e.
func Landing(e Experience) string {
	return Dispatch(e,
		func(StudentExperience) string { return "/home" },
		func(VendorExperience) string { return "/vendor/dashboard" },
	)
}

// Session is a signed-in user as the client sees it.
type Session struct {
	Token      string      `json:"token,omitempty"`
	ExpiresAt  time.Time   `json:"expires_at,omitzero"`
	User       models.User `json:"user"`
	Experience Experience  `json:"-"`
	Kind       string      `json:"experience"`
	StallID    string      `json:"stall_id,omitempty"`
	Redirect   string      `json:"redirect"`
}

func newSession(user models.User, e Experience) Session {
	s := Session{User: user, Experience: e, Redirect: Landing(e)}
	s.Kind = Dispatch(e,
		func(StudentExperience) string { return string(models.RoleStudent) },
		func(v VendorExperience) string {
			s.StallID = v.StallID
			return string(models.RoleVendor)
		},
	)
	return s
}

// AuthService signs users up, in and out.
type AuthService struct {
	users  *repositories.UserRepository
	stalls *repositories.StallRepository
	denied *auth.DenyList
}

func NewAuthService(users *repositories.UserRepository, stalls *repositories.StallRepository, denied *auth.DenyList) *AuthService {
	return &AuthService{users: users, stalls: stalls, denied: denied}
}

// Signup creates credentials, then a student profile. A profile that
// already exists is kept as is.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) (Session, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, err
	}
	acct := models.Account{ID: uuid.NewString(), Email: email, PasswordHash: hash, Provider: "password"}
	if err := s.users.CreateAccount(ctx, &acct); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return Session{}, ErrEmailTaken
		}
		return Session{}, err
	}

	user, err := s.ensureProfile(ctx, acct, strings.TrimSpace(name), "")
	if err != nil {
		return Session{}, err
	}
	return s.issue(ctx, user)
}

// Login checks a password and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	return s.issue(ctx, user)
}

// VendorLogin is Login restricted to vendors. Students get ErrNotVendor and
// no token.
func (s *AuthService) VendorLogin(ctx context.Context, email, password string) (Session, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	if user.Role != models.RoleVendor {
		logger.WithCtx(ctx).Info("auth: vendor portal refused", "user_id", user.ID)
		return Session{}, ErrNotVendor
	}
	return s.issue(ctx, user)
}

// ExternalLogin signs in through an OAuth provider. The first sign-in
// creates the account and a student profile. An existing account with the
// same email is linked to the provider identity, once; an account already
// linked to another identity is refused.
func (s *AuthService) ExternalLogin(ctx context.Context, ext auth.ExternalUser) (Session, error) {
	if ext.Email == "" {
		return Session{}, newError(ErrUnauthorized, "provider did not share an email address")
	}
	if ext.UserID == "" {
		return Session{}, newError(ErrUnauthorized, "provider did not share a user id")
	}
	acct, err := s.users.FindAccountByProvider(ctx, ext.Provider, ext.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		acct, err = s.linkOrCreate(ctx, ext)
	}
	if err != nil {
		return Session{}, err
	}

	user, err := s.ensureProfile(ctx, acct, ext.Name, ext.AvatarURL)
	if err != nil {
		return Session{}, err
	}
	return s.issue(ctx, user)
}

func (s *AuthService) linkOrCreate(ctx context.Context, ext auth.ExternalUser) (models.Account, error) {
	acct, err := s.users.FindAccountByEmail(ctx, ext.Email)
	if errors.Is(err, repositories.ErrNotFound) {
		acct = models.Account{
			ID:             uuid.NewString(),
			Email:          ext.Email,
			Provider:       ext.Provider,
			ProviderUserID: ext.UserID,
		}
		return acct, s.users.CreateAccount(ctx, &acct)
	}
	if err != nil {
		return models.Account{}, err
	}

	err = s.users.LinkProvider(ctx, acct.ID, ext.Provider, ext.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		logger.WithCtx(ctx).Warn("auth: external sign-in refused, account linked elsewhere",
			"account_id", acct.ID, "provider", ext.Provider)
		return models.Account{}, ErrLinkedElsewhere
	}
	if err != nil {
		return models.Account{}, err
	}
	logger.WithCtx(ctx).Info("auth: account linked", "account_id", acct.ID, "provider", ext.Provider)
	acct.Provider, acct.ProviderUserID = ext.Provider, ext.UserID
	return acct, nil
}

// Current rebuilds the session of a signed-in user, without a new token.
func (s *AuthService) Current(ctx context.Context, userID string) (Session, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return Session{}, missing(err, "user")
	}
	e, err := s.experience(ctx, user)
	if err != nil {
		return Session{}, err
	}
	return newSession(user, e), nil
}

// Logout revokes the token until it expires.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	return s.denied.Revoke(ctx, claims)
}

// Revoked reports whether a token id was signed out.
func (s *AuthService) Revoked(ctx context.Context, jti string) bool {
	return s.denied.Revoked(ctx, jti)
}

func (s *AuthService) authenticate(ctx context.Context, email, password string) (models.User, error) {
	acct, err := s.users.FindAccountByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}
	if acct.PasswordHash == "" || !auth.CheckPassword(acct.PasswordHash, password) {
		return models.User{}, ErrInvalidCredentials
	}
	return s.ensureProfile(ctx, acct, "", "")
}

// ensureProfile returns the profile for acct, creating a student one if it
// is missing.
func (s *AuthService) ensureProfile(ctx context.Context, acct models.Account, name, avatar string) (models.User, error) {
	user, err := s.users.FindByID(ctx, acct.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return models.User{}, err
	}

	if name == "" {
		name, _, _ = strings.Cut(acct.Email, "@")
	}
	user = models.User{ID: acct.ID, Email: acct.Email, Name: name, Role: models.RoleStudent, AvatarURL: avatar}
	err = s.users.CreateProfile(ctx, &user)
	if errors.Is(err, repositories.ErrDuplicate) {
		return s.users.FindByID(ctx, acct.ID)
	}
	return user, err
}

func (s *AuthService) experience(ctx context.Context, user models.User) (Experience, error) {
	if user.Role != models.RoleVendor {
		return ExperienceFor(user, nil), nil
	}
	stall, err := s.stalls.FindByVendor(ctx, user.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ExperienceFor(user, nil), nil
	}
	if err != nil {
		return nil, err
	}
	return ExperienceFor(user, &stall), nil
}

func (s *AuthService) issue(ctx context.Context, user models.User) (Session, error) {
	e, err := s.experience(ctx, user)
	if err != nil {
		return Session{}, err
	}
	token, claims, err := auth.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return Session{}, err
	}
	sess := newSession(user, e)
	sess.Token = token
	sess.ExpiresAt = claims.ExpiresAt.Time
	return sess, nil
}
