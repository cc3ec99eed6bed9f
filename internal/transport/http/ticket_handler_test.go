package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "parkingapp/internal/errors"
	"parkingapp/internal/middleware"
	"parkingapp/internal/services"
	"parkingapp/internal/shared/testutil"
	"parkingapp/pkg/contracts/domain"
)

type mockTicketService struct {
	mock.Mock
}

func (m *mockTicketService) List(ctx context.Context, filter domain.TicketFilter) services.Response[[]domain.Ticket] {
	return m.Called(ctx, filter).Get(0).(services.Response[[]domain.Ticket])
}

func (m *mockTicketService) Get(ctx context.Context, id string) services.Response[domain.Ticket] {
	return m.Called(ctx, id).Get(0).(services.Response[domain.Ticket])
}

func (m *mockTicketService) Search(ctx context.Context, query string) services.Response[[]domain.Ticket] {
	return m.Called(ctx, query).Get(0).(services.Response[[]domain.Ticket])
}

func (m *mockTicketService) Create(ctx context.Context, in domain.TicketInput) services.Response[domain.Ticket] {
	return m.Called(ctx, in).Get(0).(services.Response[domain.Ticket])
}

func (m *mockTicketService) Update(ctx context.Context, id string, in domain.TicketInput) services.Response[domain.Ticket] {
	return m.Called(ctx, id, in).Get(0).(services.Response[domain.Ticket])
}

func (m *mockTicketService) Delete(ctx context.Context, id string) services.Response[string] {
	return m.Called(ctx, id).Get(0).(services.Response[string])
}

func (m *mockTicketService) Pay(ctx context.Context, id string, req domain.PaymentRequest) services.Response[domain.Payment] {
	return m.Called(ctx, id, req).Get(0).(services.Response[domain.Payment])
}

func (m *mockTicketService) Dispute(ctx context.Context, id string, req domain.DisputeRequest) services.Response[domain.Dispute] {
	return m.Called(ctx, id, req).Get(0).(services.Response[domain.Dispute])
}

func newTicketHandlerUnderTest(t *testing.T, svc TicketService) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	h := NewTicketHandler(svc, middleware.NewRequestValidator(logger), apierrors.NewErrorHandler(logger, false))
	return h.Routes()
}

func TestTicketHandler_ListFilter(t *testing.T) {
	svc := new(mockTicketService)
	want := domain.TicketFilter{
		Status:       domain.TicketStatusUnpaid,
		LicensePlate: "ABC1234",
		Page:         2,
		PageSize:     25,
	}
	tickets := []domain.Ticket{testutil.NewFixtures().UnpaidTicket()}
	svc.On("List", mock.Anything, want).Return(services.Response[[]domain.Ticket]{Success: true, Data: &tickets})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/?status=unpaid&license_plate=ABC1234&page=2&page_size=25", nil)
	newTicketHandlerUnderTest(t, svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tkt-1001")
	svc.AssertExpectations(t)
}

func TestTicketHandler_ServiceFailureStatus(t *testing.T) {
	tests := []struct {
		name string
		kind apierrors.ErrorType
		want int
	}{
		{"validation", apierrors.ErrTypeValidation, http.StatusUnprocessableEntity},
		{"security rejection", apierrors.ErrTypeSecurityRejection, http.StatusTooManyRequests},
		{"network", apierrors.ErrTypeNetwork, http.StatusBadGateway},
		{"unavailable", apierrors.ErrTypeDependencyUnavailable, http.StatusServiceUnavailable},
		{"not found", apierrors.ErrTypeNotFound, http.StatusNotFound},
		{"unauthorized", apierrors.ErrTypeUnauthorized, http.StatusUnauthorized},
		{"cancelled", apierrors.ErrTypeCancelled, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockTicketService)
			svc.On("Get", mock.Anything, "tkt-1").Return(services.Response[domain.Ticket]{
				Error: "something went wrong",
				Kind:  tt.kind,
			})

			rec := httptest.NewRecorder()
			newTicketHandlerUnderTest(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tkt-1", nil))

			assert.Equal(t, tt.want, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestTicketHandler_CreateDecodesBody(t *testing.T) {
	svc := new(mockTicketService)
	svc.On("Create", mock.Anything, mock.MatchedBy(func(in domain.TicketInput) bool {
		return in.LicensePlate == "ABC1234" && in.AmountCents == 6500
	})).Return(services.Response[domain.Ticket]{Success: true, Data: &domain.Ticket{ID: "tkt-5001"}})

	body := `{"ticket_number":"SF-1","license_plate":"ABC1234","violation":"Expired meter","location":"Main St","amount_cents":6500}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	newTicketHandlerUnderTest(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	svc.AssertExpectations(t)

	bad := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount_cents":-5}`))
	rec = httptest.NewRecorder()
	newTicketHandlerUnderTest(t, svc).ServeHTTP(rec, bad)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	svc.AssertNumberOfCalls(t, "Create", 1)
}
