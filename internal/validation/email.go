package validation

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Email validation messages
const (
	MsgEmailRequired   = "Email is required"
	MsgEmailInvalid    = "Please enter a valid email address"
	MsgEmailDisposable = "Disposable email addresses are not allowed"
	MsgEmailReputation = "This email address cannot be used. Please use a different one"
)

var basicEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// EmailOptions controls Validator.Email
type EmailOptions struct {
	Required        bool
	AllowDisposable bool
	// MinScore rejects addresses whose reputation score is below it. Zero disables the check.
	MinScore float64
}

// DefaultEmailOptions returns the options used by sign-up and login forms
func DefaultEmailOptions() EmailOptions {
	return EmailOptions{Required: true}
}

// EmailVerdict is what an EmailOracle knows about an address
type EmailVerdict struct {
	FormatValid bool    `json:"format_valid"`
	Disposable  bool    `json:"disposable"`
	Score       float64 `json:"score"`
}

// EmailOracle inspects an email address for format, disposable domains and reputation
type EmailOracle interface {
	Inspect(ctx context.Context, email string) (EmailVerdict, error)
}

// FormatOracle is the built-in EmailOracle. It checks RFC 5322 syntax with
// go-playground/validator and scores the address with local heuristics.
type FormatOracle struct {
	validate            *validator.Validate
	disposableDomains   map[string]struct{}
	roleAccountPrefixes []string
}

// NewFormatOracle creates the built-in email oracle
func NewFormatOracle() *FormatOracle {
	domains := make(map[string]struct{}, len(defaultDisposableDomains))
	for _, d := range defaultDisposableDomains {
		domains[d] = struct{}{}
	}
	return &FormatOracle{
		validate:            validator.New(),
		disposableDomains:   domains,
		roleAccountPrefixes: []string{"admin@", "noreply@", "no-reply@", "postmaster@", "abuse@", "root@"},
	}
}

var defaultDisposableDomains = []string{
	"mailinator.com",
	"guerrillamail.com",
	"10minutemail.com",
	"tempmail.com",
	"temp-mail.org",
	"trashmail.com",
	"yopmail.com",
	"throwawaymail.com",
	"getnada.com",
	"sharklasers.com",
	"dispostable.com",
	"maildrop.cc",
}

// Inspect implements EmailOracle
func (o *FormatOracle) Inspect(ctx context.Context, email string) (EmailVerdict, error) {
	if err := ctx.Err(); err != nil {
		return EmailVerdict{}, err
	}

	verdict := EmailVerdict{Score: 1}
	if err := o.validate.Var(email, "email"); err != nil {
		verdict.Score = 0
		return verdict, nil
	}
	verdict.FormatValid = true

	domain := strings.ToLower(email[strings.LastIndex(email, "@")+1:])
	if _, ok := o.disposableDomains[domain]; ok {
		verdict.Disposable = true
		verdict.Score -= 0.5
	}

	lower := strings.ToLower(email)
	for _, prefix := range o.roleAccountPrefixes {
		if strings.HasPrefix(lower, prefix) {
			verdict.Score -= 0.2
			break
		}
	}

	local := lower[:strings.LastIndex(lower, "@")]
	digits := 0
	for _, r := range local {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if len(local) > 0 && digits*2 > len(local) {
		verdict.Score -= 0.1
	}

	if verdict.Score < 0 {
		verdict.Score = 0
	}
	return verdict, nil
}

// Validator runs validators that depend on external collaborators
type Validator struct {
	emailOracle EmailOracle
	logger      *slog.Logger
}

// NewValidator creates a validator. A nil oracle selects the built-in FormatOracle.
func NewValidator(oracle EmailOracle, logger *slog.Logger) *Validator {
	if oracle == nil {
		oracle = NewFormatOracle()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		emailOracle: oracle,
		logger:      logger.With(slog.String("component", "validator")),
	}
}

// Email validates an address. An empty required address fails without
// consulting the oracle. If the oracle errors, only the basic format is checked.
func (v *Validator) Email(ctx context.Context, email string, opts EmailOptions) Result {
	email = strings.TrimSpace(email)
	if email == "" {
		if opts.Required {
			return Invalid(MsgEmailRequired)
		}
		return Valid()
	}

	verdict, err := v.emailOracle.Inspect(ctx, email)
	if err != nil {
		v.logger.WarnContext(ctx, "email oracle unavailable, using basic format check",
			slog.String("error", err.Error()))
		if basicEmailPattern.MatchString(email) {
			return Valid()
		}
		return Invalid(MsgEmailInvalid)
	}

	result := Valid()
	if !verdict.FormatValid {
		result.addError(MsgEmailInvalid)
		return result
	}
	if verdict.Disposable && !opts.AllowDisposable {
		result.addError(MsgEmailDisposable)
	}
	if opts.MinScore > 0 && verdict.Score < opts.MinScore {
		v.logger.DebugContext(ctx, "email below reputation threshold",
			slog.Float64("score", verdict.Score),
			slog.Float64("min_score", opts.MinScore))
		result.addError(MsgEmailReputation)
	}
	return result
}

// EmailRule adapts Email into a form Rule
func (v *Validator) EmailRule(opts EmailOptions) Rule {
	return func(ctx context.Context, value any) (Result, error) {
		s, ok := value.(string)
		if !ok && value != nil {
			return Result{}, fmt.Errorf("email field has type %T", value)
		}
		return v.Email(ctx, s, opts), nil
	}
}
