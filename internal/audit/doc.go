// Package audit records every intent issued to the cloud service (arm,
// disarm, motion toggles, thumbnail and clip captures) in the
// command_journal table, and lists them for the HTTP API.
//
// The journal is write-mostly history. It is never read back into domain
// state.
package audit
