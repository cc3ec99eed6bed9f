// Package shared holds helpers used across the gateway that belong to no
// single layer.
//
// # Structure
//
//   - redact: strips credentials and payment data from values before they are logged
//   - testutil: log capture, fixtures and hand-written fakes for tests
//
// # Usage Guidelines
//
// Subpackages here must not import services, transport or app packages, so
// that any layer can depend on them without cycles.
package shared
