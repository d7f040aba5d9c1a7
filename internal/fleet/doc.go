// Package fleet is the sync orchestrator. It owns the refresh cycle that
// pulls the account snapshot into the device registry and exposes the
// intents consumers act through: arm/disarm, motion sensor toggles,
// thumbnail and clip captures, and the last-motion lookup.
//
// Every intent runs through the command coordinator, is recorded in the
// command journal, and ends with a forced refresh so the registry reflects
// what the cloud now reports. Failures inside a fan-out over cameras are
// logged and swallowed so one bad camera does not abort the batch.
package fleet
