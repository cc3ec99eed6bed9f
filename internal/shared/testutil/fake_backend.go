package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"parkingapp/pkg/contracts/domain"
)

// FakePassword is the password FakeBackend accepts for the fixture user
const FakePassword = "Str0ng!Pass"

// FakeBackend is an in-memory parking REST backend served over httptest.
// It records every request so tests can assert that rejected actions never
// reached the network.
type FakeBackend struct {
	Server   *httptest.Server
	Fixtures *Fixtures

	mu        sync.Mutex
	tickets   map[string]domain.Ticket
	vehicles  map[string]domain.Vehicle
	user      domain.User
	documents []domain.Document
	requests  []string
	failures  map[string]int
	delay     time.Duration
	seq       int
	lastAuth  string
}

// NewFakeBackend starts a backend seeded with one unpaid ticket, one paid
// ticket, one vehicle and the fixture user. It is closed with the test.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()

	f := NewFixtures()
	b := &FakeBackend{
		Fixtures: f,
		tickets:  map[string]domain.Ticket{},
		vehicles: map[string]domain.Vehicle{},
		user:     f.User(),
		failures: map[string]int{},
	}
	for _, tk := range []domain.Ticket{f.UnpaidTicket(), f.PaidTicket()} {
		b.tickets[tk.ID] = tk
	}
	v := f.Vehicle()
	b.vehicles[v.ID] = v

	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the backend base URL
func (b *FakeBackend) URL() string {
	return b.Server.URL
}

// Fail makes every request to method and path answer with status
func (b *FakeBackend) Fail(method, path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = status
}

// SetDelay delays every response, returning early if the client goes away
func (b *FakeBackend) SetDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = d
}

// Requests returns "METHOD /path" for every request received
func (b *FakeBackend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

// RequestCount returns how many requests were received
func (b *FakeBackend) RequestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// LastAuthorization returns the Authorization header of the latest request
func (b *FakeBackend) LastAuthorization() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAuth
}

// Ticket returns the stored ticket with id
func (b *FakeBackend) Ticket(id string) (domain.Ticket, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tickets[id]
	return t, ok
}

func (b *FakeBackend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", b.login)
		r.Post("/register", b.register)
		r.Post("/password-reset", func(w http.ResponseWriter, r *http.Request) {
			render.Status(r, http.StatusAccepted)
			render.JSON(w, r, map[string]string{"status": "sent"})
		})
		r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})

	r.Route("/tickets", func(r chi.Router) {
		r.Get("/", b.listTickets)
		r.Post("/", b.createTicket)
		r.Get("/search", b.searchTickets)
		r.Get("/{id}", b.getTicket)
		r.Put("/{id}", b.updateTicket)
		r.Delete("/{id}", b.deleteTicket)
		r.Post("/{id}/payments", b.payTicket)
		r.Post("/{id}/disputes", b.disputeTicket)
	})

	r.Route("/vehicles", func(r chi.Router) {
		r.Get("/", b.listVehicles)
		r.Post("/", b.createVehicle)
		r.Put("/{id}", b.updateVehicle)
		r.Delete("/{id}", b.deleteVehicle)
	})

	r.Route("/users/me", func(r chi.Router) {
		r.Get("/", b.getProfile)
		r.Put("/", b.updateProfile)
		r.Post("/documents", b.uploadDocument)
	})

	return r
}

func (b *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		b.mu.Lock()
		b.requests = append(b.requests, key)
		b.lastAuth = r.Header.Get("Authorization")
		status, fail := b.failures[key]
		delay := b.delay
		b.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if fail {
			writeMessage(w, r, status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"message": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "malformed JSON")
		return false
	}
	return true
}

func (b *FakeBackend) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s-%d", prefix, 5000+b.seq)
}

func (b *FakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if !decode(w, r, &creds) {
		return
	}

	b.mu.Lock()
	user := b.user
	b.mu.Unlock()

	if creds.Email != user.Email || creds.Password != FakePassword {
		writeMessage(w, r, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	render.JSON(w, r, b.Fixtures.Session())
}

func (b *FakeBackend) register(w http.ResponseWriter, r *http.Request) {
	var reg domain.Registration
	if !decode(w, r, &reg) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if reg.Email == b.user.Email {
		writeMessage(w, r, http.StatusConflict, "Email already registered")
		return
	}

	user := domain.User{
		ID:        b.nextID("usr"),
		Email:     reg.Email,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Phone:     reg.Phone,
		CreatedAt: b.Fixtures.Now,
		UpdatedAt: b.Fixtures.Now,
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, domain.Session{Token: "session-" + user.ID, ExpiresAt: b.Fixtures.Now.Add(24 * time.Hour), User: user})
}

func (b *FakeBackend) sortedTickets(keep func(domain.Ticket) bool) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(b.tickets))
	for _, t := range b.tickets {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *FakeBackend) listTickets(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	plate := r.URL.Query().Get("license_plate")

	b.mu.Lock()
	out := b.sortedTickets(func(t domain.Ticket) bool {
		return (status == "" || string(t.Status) == status) && (plate == "" || t.LicensePlate == plate)
	})
	b.mu.Unlock()

	render.JSON(w, r, out)
}

func (b *FakeBackend) searchTickets(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))

	b.mu.Lock()
	out := b.sortedTickets(func(t domain.Ticket) bool {
		return strings.Contains(strings.ToLower(t.TicketNumber), q) ||
			strings.Contains(strings.ToLower(t.LicensePlate), q)
	})
	b.mu.Unlock()

	render.JSON(w, r, out)
}

func (b *FakeBackend) getTicket(w http.ResponseWriter, r *http.Request) {
	t, ok := b.Ticket(chi.URLParam(r, "id"))
	if !ok {
		writeMessage(w, r, http.StatusNotFound, "ticket not found")
		return
	}
	render.JSON(w, r, t)
}

func (b *FakeBackend) createTicket(w http.ResponseWriter, r *http.Request) {
	var in domain.TicketInput
	if !decode(w, r, &in) {
		return
	}

	b.mu.Lock()
	t := domain.Ticket{
		ID:           b.nextID("tkt"),
		TicketNumber: in.TicketNumber,
		LicensePlate: in.LicensePlate,
		State:        in.State,
		Violation:    in.Violation,
		Location:     in.Location,
		IssuedAt:     in.IssuedAt,
		DueDate:      in.IssuedAt.Add(21 * 24 * time.Hour),
		AmountCents:  in.AmountCents,
		Status:       domain.TicketStatusUnpaid,
		Notes:        in.Notes,
		VehicleID:    in.VehicleID,
		CreatedAt:    b.Fixtures.Now,
		UpdatedAt:    b.Fixtures.Now,
	}
	b.tickets[t.ID] = t
	b.mu.Unlock()

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, t)
}

func (b *FakeBackend) updateTicket(w http.ResponseWriter, r *http.Request) {
	var in domain.TicketInput
	if !decode(w, r, &in) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tickets[chi.URLParam(r, "id")]
	if !ok {
		writeMessage(w, r, http.StatusNotFound, "ticket not found")
		return
	}
	t.LicensePlate = in.LicensePlate
	t.State = in.State
	t.Violation = in.Violation
	t.Location = in.Location
	t.Notes = in.Notes
	t.UpdatedAt = b.Fixtures.Now
	b.tickets[t.ID] = t

	render.JSON(w, r, t)
}

func (b *FakeBackend) deleteTicket(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := chi.URLParam(r, "id")
	if _, ok := b.tickets[id]; !ok {
		writeMessage(w, r, http.StatusNotFound, "ticket not found")
		return
	}
	delete(b.tickets, id)
	w.WriteHeader(http.StatusNoContent)
}

func (b *FakeBackend) payTicket(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentRequest
	if !decode(w, r, &req) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tickets[chi.URLParam(r, "id")]
	if !ok {
		writeMessage(w, r, http.StatusNotFound, "ticket not found")
		return
	}
	if !t.IsPayable() {
		writeMessage(w, r, http.StatusConflict, "Ticket is not payable")
		return
	}

	t.Status = domain.TicketStatusPaid
	t.UpdatedAt = b.Fixtures.Now
	b.tickets[t.ID] = t

	digits := strings.NewReplacer(" ", "", "-", "").Replace(req.CardNumber)
	last4 := digits
	if len(digits) > 4 {
		last4 = digits[len(digits)-4:]
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, domain.Payment{
		ID:          b.nextID("pay"),
		TicketID:    t.ID,
		AmountCents: req.AmountCents,
		Status:      domain.PaymentStatusSucceeded,
		CardLast4:   last4,
		PaidAt:      b.Fixtures.Now,
	})
}

func (b *FakeBackend) disputeTicket(w http.ResponseWriter, r *http.Request) {
	var req domain.DisputeRequest
	if !decode(w, r, &req) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tickets[chi.URLParam(r, "id")]
	if !ok {
		writeMessage(w, r, http.StatusNotFound, "ticket not found")
		return
	}
	t.Status = domain.TicketStatusDisputed
	b.tickets[t.ID] = t

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, domain.Dispute{
		ID:          b.nextID("dsp"),
		TicketID:    t.ID,
		Reason:      req.Reason,
		Status:      domain.DisputeStatusSubmitted,
		SubmittedAt: b.Fixtures.Now,
	})
}

func (b *FakeBackend) listVehicles(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := make([]domain.Vehicle, 0, len(b.vehicles))
	for _, v := range b.vehicles {
		out = append(out, v)
	}
	b.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	render.JSON(w, r, out)
}

func (b *FakeBackend) createVehicle(w http.ResponseWriter, r *http.Request) {
	var in domain.VehicleInput
	if !decode(w, r, &in) {
		return
	}

	b.mu.Lock()
	v := domain.Vehicle{
		ID:           b.nextID("veh"),
		LicensePlate: in.LicensePlate,
		State:        in.State,
		Make:         in.Make,
		Model:        in.Model,
		Color:        in.Color,
		Nickname:     in.Nickname,
		CreatedAt:    b.Fixtures.Now,
		UpdatedAt:    b.Fixtures.Now,
	}
	b.vehicles[v.ID] = v
	b.mu.Unlock()

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, v)
}

func (b *FakeBackend) updateVehicle(w http.ResponseWriter, r *http.Request) {
	var in domain.VehicleInput
	if !decode(w, r, &in) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.vehicles[chi.URLParam(r, "id")]
	if !ok {
		writeMessage(w, r, http.StatusNotFound, "vehicle not found")
		return
	}
	v.LicensePlate = in.LicensePlate
	v.State = in.State
	v.Make = in.Make
	v.Model = in.Model
	v.Color = in.Color
	v.Nickname = in.Nickname
	v.UpdatedAt = b.Fixtures.Now
	b.vehicles[v.ID] = v

	render.JSON(w, r, v)
}

func (b *FakeBackend) deleteVehicle(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := chi.URLParam(r, "id")
	if _, ok := b.vehicles[id]; !ok {
		writeMessage(w, r, http.StatusNotFound, "vehicle not found")
		return
	}
	delete(b.vehicles, id)
	w.WriteHeader(http.StatusNoContent)
}

func (b *FakeBackend) getProfile(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	user := b.user
	b.mu.Unlock()
	render.JSON(w, r, user)
}

func (b *FakeBackend) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in domain.ProfileUpdate
	if !decode(w, r, &in) {
		return
	}

	b.mu.Lock()
	b.user.FirstName = in.FirstName
	b.user.LastName = in.LastName
	b.user.Phone = in.Phone
	b.user.Address = in.Address
	b.user.UpdatedAt = b.Fixtures.Now
	user := b.user
	b.mu.Unlock()

	render.JSON(w, r, user)
}

func (b *FakeBackend) uploadDocument(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, r, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	size, err := io.Copy(io.Discard, file)
	if err != nil {
		writeMessage(w, r, http.StatusBadRequest, "unreadable file")
		return
	}

	b.mu.Lock()
	doc := domain.Document{
		ID:         b.nextID("doc"),
		FileName:   header.Filename,
		SizeBytes:  size,
		UploadedAt: b.Fixtures.Now,
	}
	b.documents = append(b.documents, doc)
	b.mu.Unlock()

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, doc)
}
