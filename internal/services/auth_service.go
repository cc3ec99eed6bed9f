package services

import (
	"context"
	"log/slog"
	"net/http"

	"parkingapp/internal/backend"
	apierrors "parkingapp/internal/errors"
	"parkingapp/internal/sanitize"
	"parkingapp/internal/security"
	"parkingapp/internal/store"
	"parkingapp/internal/validation"
	"parkingapp/pkg/contracts/domain"
)

// MsgSignInRequired is returned when an action needs a session and there is none
const MsgSignInRequired = "Please sign in to continue."

// AuthService signs users in and out
type AuthService struct {
	base
}

// NewAuthService creates an auth service
func NewAuthService(d Deps) *AuthService {
	return &AuthService{base: newBase(d, "auth_service")}
}

func passwordRule(opts validation.PasswordOptions) validation.Rule {
	return validation.StringRule(func(s string) validation.Result {
		return validation.Password(s, opts)
	})
}

func phoneRule(required bool) validation.Rule {
	opts := validation.DefaultPhoneOptions()
	opts.Required = required
	return validation.StringRule(func(s string) validation.Result {
		return validation.Phone(s, opts)
	})
}

func signedIn(_ store.AuthData, sess domain.Session) store.AuthData {
	user := sess.User
	return store.AuthData{User: &user, Token: sess.Token, IsAuthenticated: true}
}

// Login exchanges credentials for a session
func (s *AuthService) Login(ctx context.Context, creds domain.Credentials) Response[domain.Session] {
	creds.Email = sanitize.Email(creds.Email)
	creds.Password = sanitize.Password(creds.Password)

	st := store.New()
	resp := dispatch(ctx, s.base, "login", st.Auth, func(ctx context.Context) (domain.Session, error) {
		var sess domain.Session
		data := map[string]any{"email": creds.Email, "password": creds.Password}
		err := s.guard(ctx, security.CategoryLogin, data, map[string]validation.Rule{
			"email":    s.Validator.EmailRule(validation.DefaultEmailOptions()),
			"password": validation.RequiredRule("Password"),
		})
		if err != nil {
			return sess, err
		}
		err = s.Backend.Do(ctx, http.MethodPost, "/auth/login", creds, &sess)
		return sess, err
	}, signedIn, "Signed in")
	s.open(resp, st)
	return resp
}

// Signup registers a new account and signs it in
func (s *AuthService) Signup(ctx context.Context, reg domain.Registration) Response[domain.Session] {
	reg.Email = sanitize.Email(reg.Email)
	reg.Password = sanitize.Password(reg.Password)
	reg.FirstName = sanitize.Name(reg.FirstName)
	reg.LastName = sanitize.Name(reg.LastName)
	reg.Phone = sanitize.Phone(reg.Phone)

	st := store.New()
	resp := dispatch(ctx, s.base, "signup", st.Auth, func(ctx context.Context) (domain.Session, error) {
		var sess domain.Session
		data := map[string]any{
			"email":      reg.Email,
			"password":   reg.Password,
			"first_name": reg.FirstName,
			"last_name":  reg.LastName,
			"phone":      reg.Phone,
		}
		err := s.guard(ctx, security.CategoryRegistration, data, map[string]validation.Rule{
			"email":      s.Validator.EmailRule(validation.DefaultEmailOptions()),
			"password":   passwordRule(validation.DefaultPasswordOptions()),
			"first_name": validation.RequiredRule("First name"),
			"last_name":  validation.RequiredRule("Last name"),
			"phone":      phoneRule(false),
		})
		if err != nil {
			return sess, err
		}
		err = s.Backend.Do(ctx, http.MethodPost, "/auth/register", reg, &sess)
		return sess, err
	}, signedIn, "Account created")
	s.open(resp, st)
	return resp
}

// open registers st as the store of a session the backend just issued
func (s *AuthService) open(resp Response[domain.Session], st *store.Store) {
	if resp.Success && resp.Data != nil && resp.Data.Token != "" {
		s.Sessions.Open(resp.Data.Token, st)
	}
}

// PasswordReset is the acknowledgement for a reset request
type PasswordReset struct {
	Email string `json:"email"`
}

// RequestPasswordReset asks the backend to email a reset link. The response
// does not reveal whether the address has an account.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) Response[PasswordReset] {
	email = sanitize.Email(email)

	// Anonymous callers have no session; the request state is not kept
	return dispatch(ctx, s.base, "password_reset", store.New().Auth, func(ctx context.Context) (PasswordReset, error) {
		data := map[string]any{"email": email}
		err := s.guard(ctx, security.CategoryPasswordReset, data, map[string]validation.Rule{
			"email": s.Validator.EmailRule(validation.DefaultEmailOptions()),
		})
		if err != nil {
			return PasswordReset{}, err
		}
		err = s.Backend.Do(ctx, http.MethodPost, "/auth/password-reset", data, nil)
		if apierrors.IsType(err, apierrors.ErrTypeNotFound) {
			err = nil
		}
		return PasswordReset{Email: email}, err
	}, nil, "If an account exists for that email, a reset link has been sent")
}

// Logout ends the caller's session and clears its state. State is cleared
// even when the backend cannot be reached. Other sessions are untouched.
func (s *AuthService) Logout(ctx context.Context) Response[struct{}] {
	st, err := s.session(ctx)
	if err != nil {
		s.logFailure(ctx, "logout", err)
		return fail[struct{}](err)
	}

	token := backend.TokenFrom(ctx)
	if err := s.Backend.Do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		s.logger.WarnContext(ctx, "backend logout failed, clearing local session",
			slog.String("error", err.Error()))
	}
	s.Sessions.Close(token)
	st.Reset()
	return ok(struct{}{}, "Signed out")
}

// CurrentSession reports the caller's signed-in user
func (s *AuthService) CurrentSession(ctx context.Context) Response[store.AuthData] {
	st, err := s.session(ctx)
	if err != nil {
		return fail[store.AuthData](err)
	}
	auth := st.Auth.Snapshot().Data
	if !auth.IsAuthenticated {
		return fail[store.AuthData](apierrors.NewUnauthorizedError(MsgSignInRequired))
	}
	return ok(auth, "")
}
