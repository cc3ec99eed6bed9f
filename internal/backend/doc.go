// Package backend is the HTTP client for the parking REST backend.
//
// Every call goes through an OpenTelemetry-instrumented transport and,
// when enabled, a circuit breaker. Responses are mapped onto the
// application error taxonomy: 4xx answers become user-correctable errors
// carrying the backend's message, while transport failures and 5xx answers
// become network errors whose cause is logged but never shown. Requests are
// not retried.
package backend
