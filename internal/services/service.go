package services

import (
	"context"
	"log/slog"
	"time"

	"parkingapp/internal/backend"
	apierrors "parkingapp/internal/errors"
	"parkingapp/internal/security"
	"parkingapp/internal/store"
	"parkingapp/internal/validation"
)

// Backend is the subset of backend.Client the services call
type Backend interface {
	Do(ctx context.Context, method, path string, body, out any) error
	Upload(ctx context.Context, path, fieldName, fileName string, content []byte, out any) error
}

// Deps are the collaborators shared by every service
type Deps struct {
	Backend   Backend
	Gate      *security.Gate
	Validator *validation.Validator
	Files     *validation.FileValidator
	// Sessions receives the store of every session that signs in
	Sessions *store.Sessions
	Logger   *slog.Logger

	// MaxPaymentCents caps a single payment. Zero disables the cap.
	MaxPaymentCents int64
	// Now is the clock used for card expiry checks
	Now func() time.Time
}

type base struct {
	Deps
	logger *slog.Logger
}

func newBase(d Deps, component string) base {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Sessions == nil {
		d.Sessions = store.NewSessions(0)
	}
	if d.Gate == nil {
		d.Gate = security.NewGate(nil, d.Logger, nil, 0)
	}
	if d.Validator == nil {
		d.Validator = validation.NewValidator(nil, d.Logger)
	}
	if d.Files == nil {
		d.Files = validation.NewFileValidator(d.Logger, 0)
	}
	return base{
		Deps:   d,
		logger: d.Logger.With(slog.String("component", component)),
	}
}

// guard validates data against rules and runs the security gate with data as
// the payload. data must already be sanitized.
func (b base) guard(ctx context.Context, category security.Category, data map[string]any, rules map[string]validation.Rule) error {
	return b.Gate.Guard(ctx, category, data, func(ctx context.Context) validation.FormResult {
		return b.Validator.Form(ctx, data, rules)
	})
}

// run dispatches op against the caller's slice of the session store on ctx
// and wraps the outcome in a Response. Without a session nothing is sent.
func run[T, R any](ctx context.Context, b base, action string, slice func(*store.Store) *store.Slice[T], op func(context.Context) (R, error), merge func(T, R) T, message string) Response[R] {
	st, err := b.session(ctx)
	if err != nil {
		b.logFailure(ctx, action, err)
		return fail[R](err)
	}
	return dispatch(ctx, b, action, slice(st), op, merge, message)
}

// dispatch runs op through slice. Network failures are logged with their
// cause; the response only carries the user-facing message.
func dispatch[T, R any](ctx context.Context, b base, action string, slice *store.Slice[T], op func(context.Context) (R, error), merge func(T, R) T, message string) Response[R] {
	res, err := store.Dispatch(ctx, slice, op, merge)
	if err != nil {
		b.logFailure(ctx, action, err)
		return fail[R](err)
	}
	return ok(res, message)
}

func ticketSlice(st *store.Store) *store.Slice[store.TicketsData]   { return st.Tickets }
func vehicleSlice(st *store.Store) *store.Slice[store.VehiclesData] { return st.Vehicles }
func profileSlice(st *store.Store) *store.Slice[store.ProfileData]  { return st.Profile }

func (b base) logFailure(ctx context.Context, action string, err error) {
	attrs := []any{
		slog.String("action", action),
		slog.String("kind", string(apierrors.TypeOf(err))),
		slog.String("error", err.Error()),
	}
	switch apierrors.TypeOf(err) {
	case apierrors.ErrTypeValidation, apierrors.ErrTypeSecurityRejection, apierrors.ErrTypeCancelled:
		b.logger.InfoContext(ctx, "action not completed", attrs...)
	case apierrors.ErrTypeNotFound, apierrors.ErrTypeUnauthorized:
		b.logger.WarnContext(ctx, "action refused by backend", attrs...)
	default:
		b.logger.ErrorContext(ctx, "action failed", attrs...)
	}
}

// session returns the caller's store. The transport attaches it together
// with the bearer token the backend calls carry.
func (b base) session(ctx context.Context) (*store.Store, error) {
	st, ok := store.FromContext(ctx)
	if !ok || backend.TokenFrom(ctx) == "" {
		return nil, apierrors.NewUnauthorizedError(MsgSignInRequired)
	}
	return st, nil
}

// invalid reports a single-field validation failure outside a form
func invalid(field string, res validation.Result) error {
	return apierrors.NewAppValidationError(res.Message(), map[string][]string{field: res.Errors})
}
