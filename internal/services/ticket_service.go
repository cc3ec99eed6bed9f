package services

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"parkingapp/internal/sanitize"
	"parkingapp/internal/security"
	"parkingapp/internal/store"
	"parkingapp/internal/validation"
	"parkingapp/pkg/contracts/domain"
)

// TicketService manages parking tickets, their payments and disputes
type TicketService struct {
	base
}

// NewTicketService creates a ticket service
func NewTicketService(d Deps) *TicketService {
	return &TicketService{base: newBase(d, "ticket_service")}
}

func ticketPath(id string, rest ...string) string {
	return "/tickets/" + url.PathEscape(id) + strings.Join(rest, "")
}

func upsertTicket(items []domain.Ticket, t domain.Ticket) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(items)+1)
	found := false
	for _, it := range items {
		if it.ID == t.ID {
			it = t
			found = true
		}
		out = append(out, it)
	}
	if !found {
		out = append(out, t)
	}
	return out
}

func setTicketStatus(d store.TicketsData, id string, status domain.TicketStatus) store.TicketsData {
	items := make([]domain.Ticket, len(d.Items))
	for i, t := range d.Items {
		if t.ID == id {
			t.Status = status
		}
		items[i] = t
	}
	d.Items = items
	if d.Selected != nil && d.Selected.ID == id {
		sel := *d.Selected
		sel.Status = status
		d.Selected = &sel
	}
	return d
}

func sanitizeTicketInput(in domain.TicketInput) domain.TicketInput {
	in.TicketNumber = sanitize.UserContent(in.TicketNumber)
	in.LicensePlate = sanitize.LicensePlate(in.LicensePlate)
	in.State = sanitize.LicensePlate(in.State)
	in.Violation = sanitize.UserContent(in.Violation)
	in.Location = sanitize.Address(in.Location)
	in.Notes = sanitize.UserContent(in.Notes)
	in.VehicleID = sanitize.UserContent(in.VehicleID)
	return in
}

func (s *TicketService) ticketRules(in domain.TicketInput) map[string]validation.Rule {
	return map[string]validation.Rule{
		"ticket_number": validation.RequiredRule("Ticket number"),
		"license_plate": validation.StringRule(func(p string) validation.Result {
			return validation.LicensePlate(p, in.State)
		}),
		"violation": validation.RequiredRule("Violation"),
		"location":  validation.RequiredRule("Location"),
		"amount_cents": func(context.Context, any) (validation.Result, error) {
			return validation.Amount(in.AmountCents, s.MaxPaymentCents), nil
		},
	}
}

func ticketData(in domain.TicketInput) map[string]any {
	return map[string]any{
		"ticket_number": in.TicketNumber,
		"license_plate": in.LicensePlate,
		"state":         in.State,
		"violation":     in.Violation,
		"location":      in.Location,
		"amount_cents":  in.AmountCents,
		"notes":         in.Notes,
	}
}

// List returns the user's tickets, optionally filtered
func (s *TicketService) List(ctx context.Context, filter domain.TicketFilter) Response[[]domain.Ticket] {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if plate := sanitize.LicensePlate(filter.LicensePlate); plate != "" {
		q.Set("license_plate", plate)
	}
	if filter.Page > 0 {
		q.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(filter.PageSize))
	}
	path := "/tickets"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	return run(ctx, s.base, "list_tickets", ticketSlice, func(ctx context.Context) ([]domain.Ticket, error) {
		var out []domain.Ticket
		err := s.Backend.Do(ctx, http.MethodGet, path, nil, &out)
		return out, err
	}, func(d store.TicketsData, items []domain.Ticket) store.TicketsData {
		if items == nil {
			items = []domain.Ticket{}
		}
		d.Items = items
		return d
	}, "")
}

// Get loads one ticket and selects it
func (s *TicketService) Get(ctx context.Context, id string) Response[domain.Ticket] {
	id = sanitize.UserContent(id)

	return run(ctx, s.base, "get_ticket", ticketSlice, func(ctx context.Context) (domain.Ticket, error) {
		var t domain.Ticket
		if res := validation.Required(id, "Ticket ID"); !res.IsValid {
			return t, invalid("id", res)
		}
		err := s.Backend.Do(ctx, http.MethodGet, ticketPath(id), nil, &t)
		return t, err
	}, func(d store.TicketsData, t domain.Ticket) store.TicketsData {
		d.Items = upsertTicket(d.Items, t)
		d.Selected = &t
		return d
	}, "")
}

// Search finds tickets by ticket number or plate
func (s *TicketService) Search(ctx context.Context, query string) Response[[]domain.Ticket] {
	query = sanitize.SearchQuery(query)

	return run(ctx, s.base, "search_tickets", ticketSlice, func(ctx context.Context) ([]domain.Ticket, error) {
		var out []domain.Ticket
		data := map[string]any{"query": query}
		err := s.guard(ctx, security.CategorySearchQuery, data, map[string]validation.Rule{
			"query": validation.RequiredRule("Search query"),
		})
		if err != nil {
			return out, err
		}
		err = s.Backend.Do(ctx, http.MethodGet, "/tickets/search?q="+url.QueryEscape(query), nil, &out)
		return out, err
	}, func(d store.TicketsData, items []domain.Ticket) store.TicketsData {
		if items == nil {
			items = []domain.Ticket{}
		}
		d.Items = items
		return d
	}, "")
}

// Create records a ticket the user received
func (s *TicketService) Create(ctx context.Context, in domain.TicketInput) Response[domain.Ticket] {
	in = sanitizeTicketInput(in)

	return run(ctx, s.base, "create_ticket", ticketSlice, func(ctx context.Context) (domain.Ticket, error) {
		var t domain.Ticket
		if err := s.guard(ctx, security.CategoryTicketCreate, ticketData(in), s.ticketRules(in)); err != nil {
			return t, err
		}
		err := s.Backend.Do(ctx, http.MethodPost, "/tickets", in, &t)
		return t, err
	}, func(d store.TicketsData, t domain.Ticket) store.TicketsData {
		d.Items = upsertTicket(d.Items, t)
		return d
	}, "Ticket added")
}

// Update edits a ticket's details
func (s *TicketService) Update(ctx context.Context, id string, in domain.TicketInput) Response[domain.Ticket] {
	id = sanitize.UserContent(id)
	in = sanitizeTicketInput(in)

	return run(ctx, s.base, "update_ticket", ticketSlice, func(ctx context.Context) (domain.Ticket, error) {
		var t domain.Ticket
		data := ticketData(in)
		data["id"] = id
		rules := s.ticketRules(in)
		rules["id"] = validation.RequiredRule("Ticket ID")
		if err := s.guard(ctx, security.CategoryTicketUpdate, data, rules); err != nil {
			return t, err
		}
		err := s.Backend.Do(ctx, http.MethodPut, ticketPath(id), in, &t)
		return t, err
	}, func(d store.TicketsData, t domain.Ticket) store.TicketsData {
		d.Items = upsertTicket(d.Items, t)
		if d.Selected != nil && d.Selected.ID == t.ID {
			d.Selected = &t
		}
		return d
	}, "Ticket updated")
}

// Delete removes a ticket
func (s *TicketService) Delete(ctx context.Context, id string) Response[string] {
	id = sanitize.UserContent(id)

	return run(ctx, s.base, "delete_ticket", ticketSlice, func(ctx context.Context) (string, error) {
		data := map[string]any{"id": id}
		err := s.guard(ctx, security.CategoryTicketUpdate, data, map[string]validation.Rule{
			"id": validation.RequiredRule("Ticket ID"),
		})
		if err != nil {
			return "", err
		}
		return id, s.Backend.Do(ctx, http.MethodDelete, ticketPath(id), nil, nil)
	}, func(d store.TicketsData, id string) store.TicketsData {
		items := make([]domain.Ticket, 0, len(d.Items))
		for _, t := range d.Items {
			if t.ID != id {
				items = append(items, t)
			}
		}
		d.Items = items
		if d.Selected != nil && d.Selected.ID == id {
			d.Selected = nil
		}
		return d
	}, "Ticket deleted")
}

// Pay submits a card payment for a ticket. Card data goes to the backend
// only and is redacted from logs and oracle payloads.
func (s *TicketService) Pay(ctx context.Context, id string, req domain.PaymentRequest) Response[domain.Payment] {
	id = sanitize.UserContent(id)
	req.CardNumber = strings.TrimSpace(req.CardNumber)
	req.CVV = strings.TrimSpace(req.CVV)
	req.CardholderName = sanitize.Name(req.CardholderName)
	req.BillingZip = sanitize.UserContent(req.BillingZip)

	return run(ctx, s.base, "pay_ticket", ticketSlice, func(ctx context.Context) (domain.Payment, error) {
		var p domain.Payment
		data := map[string]any{
			"id":              id,
			"card_number":     req.CardNumber,
			"cvv":             req.CVV,
			"cardholder_name": req.CardholderName,
			"expiry":          req.ExpiryMonth,
			"amount_cents":    req.AmountCents,
		}
		err := s.guard(ctx, security.CategoryPaymentSubmit, data, map[string]validation.Rule{
			"id":          validation.RequiredRule("Ticket ID"),
			"card_number": validation.StringRule(validation.CreditCard),
			"cvv": validation.StringRule(func(cvv string) validation.Result {
				return validation.CVV(cvv, validation.CardType(req.CardNumber))
			}),
			"cardholder_name": validation.RequiredRule("Cardholder name"),
			"expiry": func(context.Context, any) (validation.Result, error) {
				return validation.CardExpiry(req.ExpiryMonth, req.ExpiryYear, s.Now()), nil
			},
			"amount_cents": func(context.Context, any) (validation.Result, error) {
				return validation.Amount(req.AmountCents, s.MaxPaymentCents), nil
			},
		})
		if err != nil {
			return p, err
		}
		err = s.Backend.Do(ctx, http.MethodPost, ticketPath(id, "/payments"), req, &p)
		return p, err
	}, func(d store.TicketsData, p domain.Payment) store.TicketsData {
		d = setTicketStatus(d, id, domain.TicketStatusPaid)
		d.LastPayment = &p
		return d
	}, "Payment successful")
}

// Dispute contests a ticket
func (s *TicketService) Dispute(ctx context.Context, id string, req domain.DisputeRequest) Response[domain.Dispute] {
	id = sanitize.UserContent(id)
	req.Reason = sanitize.UserContent(req.Reason)
	req.ContactEmail = sanitize.Email(req.ContactEmail)
	for i, doc := range req.DocumentIDs {
		req.DocumentIDs[i] = sanitize.UserContent(doc)
	}

	return run(ctx, s.base, "dispute_ticket", ticketSlice, func(ctx context.Context) (domain.Dispute, error) {
		var dsp domain.Dispute
		data := map[string]any{
			"id":            id,
			"reason":        req.Reason,
			"contact_email": req.ContactEmail,
		}
		err := s.guard(ctx, security.CategoryDisputeSubmit, data, map[string]validation.Rule{
			"id":            validation.RequiredRule("Ticket ID"),
			"reason":        validation.StringRule(validation.DisputeReason),
			"contact_email": s.Validator.EmailRule(validation.EmailOptions{}),
		})
		if err != nil {
			return dsp, err
		}
		err = s.Backend.Do(ctx, http.MethodPost, ticketPath(id, "/disputes"), req, &dsp)
		return dsp, err
	}, func(d store.TicketsData, dsp domain.Dispute) store.TicketsData {
		d = setTicketStatus(d, id, domain.TicketStatusDisputed)
		d.LastDispute = &dsp
		return d
	}, "Dispute submitted")
}
