// Package session defines the import session entity and its finite state
// set.
//
// A Session is the root record for one import attempt. It is exclusively
// owned and mutated by the orchestrator that created it; every other
// component only ever sees an immutable Snapshot. The allowed-successor
// table here is explicit, not inferred, and Apply rejects any transition
// outside it. Stage data only ever holds payloads that already passed
// contract validation.
package session
