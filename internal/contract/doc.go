// Package contract validates the payloads handed between pipeline stages.
//
// Every stage boundary has a named, versioned JSON Schema compiled once at
// startup. Validation is structural and total: payload shapes that are not
// explicitly allow-listed are rejected, missing fields are never defaulted,
// and a payload carrying the wrong contract version is itself a violation.
// No payload reaches a later stage without passing this gate.
package contract
