// Package daemon hosts the long-running import service: the pipeline
// manager, the session journal, and the local HTTP API. A file lock
// enforces a single instance per data directory.
package daemon
