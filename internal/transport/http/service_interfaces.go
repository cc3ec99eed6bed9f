package http

import (
	"context"

	"parkingapp/internal/security"
	"parkingapp/internal/services"
	"parkingapp/internal/store"
	"parkingapp/internal/validation"
	"parkingapp/pkg/contracts/domain"
)

// AuthService is the subset of services.AuthService used by AuthHandler
type AuthService interface {
	Login(ctx context.Context, creds domain.Credentials) services.Response[domain.Session]
	Signup(ctx context.Context, reg domain.Registration) services.Response[domain.Session]
	RequestPasswordReset(ctx context.Context, email string) services.Response[services.PasswordReset]
	Logout(ctx context.Context) services.Response[struct{}]
	CurrentSession(ctx context.Context) services.Response[store.AuthData]
}

// TicketService is the subset of services.TicketService used by TicketHandler
type TicketService interface {
	List(ctx context.Context, filter domain.TicketFilter) services.Response[[]domain.Ticket]
	Get(ctx context.Context, id string) services.Response[domain.Ticket]
	Search(ctx context.Context, query string) services.Response[[]domain.Ticket]
	Create(ctx context.Context, in domain.TicketInput) services.Response[domain.Ticket]
	Update(ctx context.Context, id string, in domain.TicketInput) services.Response[domain.Ticket]
	Delete(ctx context.Context, id string) services.Response[string]
	Pay(ctx context.Context, id string, req domain.PaymentRequest) services.Response[domain.Payment]
	Dispute(ctx context.Context, id string, req domain.DisputeRequest) services.Response[domain.Dispute]
}

// VehicleService is the subset of services.VehicleService used by VehicleHandler
type VehicleService interface {
	List(ctx context.Context) services.Response[[]domain.Vehicle]
	Create(ctx context.Context, in domain.VehicleInput) services.Response[domain.Vehicle]
	Update(ctx context.Context, id string, in domain.VehicleInput) services.Response[domain.Vehicle]
	Delete(ctx context.Context, id string) services.Response[string]
}

// UserService is the subset of services.UserService used by ProfileHandler
type UserService interface {
	Profile(ctx context.Context) services.Response[domain.User]
	UpdateProfile(ctx context.Context, in domain.ProfileUpdate) services.Response[domain.User]
	UploadDocument(ctx context.Context, fileName string, content []byte) services.Response[domain.Document]
}

// FormValidator runs field rules for live form feedback
type FormValidator interface {
	Form(ctx context.Context, data map[string]any, rules map[string]validation.Rule) validation.FormResult
	RuleFor(kind string, opts validation.FieldOptions) (validation.Rule, error)
}

// SecurityChecker screens actions through the security gate
type SecurityChecker interface {
	Check(ctx context.Context, category security.Category, payload map[string]any) security.CheckResult
	BotContext(ctx context.Context) security.BotContext
}

// HealthService is the subset of services.HealthService used by HealthHandler
type HealthService interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}

var (
	_ AuthService     = (*services.AuthService)(nil)
	_ TicketService   = (*services.TicketService)(nil)
	_ VehicleService  = (*services.VehicleService)(nil)
	_ UserService     = (*services.UserService)(nil)
	_ HealthService   = (*services.HealthService)(nil)
	_ FormValidator   = (*validation.Validator)(nil)
	_ SecurityChecker = (*security.Gate)(nil)
)
