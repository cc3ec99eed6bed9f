// Package security gates state-changing operations behind a bot-detection
// and rate-limit oracle.
//
// The oracle is chosen at start-up from configuration (none, http, redis or
// local) and injected into a Gate. The gate never blocks on oracle failure:
// errors and panics from the oracle allow the action and are logged as
// warnings. Payloads are redacted before they are logged or sent.
package security
