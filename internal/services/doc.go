// Package services wraps every backend resource action behind the same
// pipeline: sanitize the input, validate it, ask the security gate, and
// only then call the backend.
//
// # Service Pattern
//
//	func (s *TicketService) Create(ctx context.Context, in domain.TicketInput) Response[domain.Ticket] {
//	    in = sanitizeTicketInput(in)
//	    return run(ctx, s.base, "create_ticket", ticketSlice, func(ctx context.Context) (domain.Ticket, error) {
//	        if err := s.guard(ctx, security.CategoryTicketCreate, ticketData(in), s.ticketRules(in)); err != nil {
//	            return domain.Ticket{}, err
//	        }
//	        ...
//	    }, merge, "Ticket added")
//	}
//
// Each call is dispatched through the matching slice of the caller's session
// store, found on the context, so that store mirrors the loading and error
// state of every operation. Calls without a session fail with UNAUTHORIZED
// before anything is sent. Login and signup build a fresh store and register
// it in Sessions once the backend issues a token.
//
// # Error Handling
//
// Methods never return Go errors. They return a Response whose Kind tells
// the caller what went wrong:
//
//   - VALIDATION: the input was rejected; Fields holds per-field messages
//   - SECURITY_REJECTION: the gate declined; Error joins the oracle's reasons
//   - NETWORK: transport or backend failure; the cause is logged, not returned
//   - NOT_FOUND, UNAUTHORIZED: the backend refused the request
//   - CANCELLED: the caller went away; no state was merged
//
// A rejected action never reaches the backend.
package services
