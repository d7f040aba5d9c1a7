// Package cloud is the authenticated request layer for the video-security
// cloud API.
//
// A Client owns:
//   - the Session (bearer token, account/client identifiers, region)
//   - the Transport Cache for JSON GET responses, with stale-serving
//   - retry classification for 401, 429, 5xx and transport failures
//
// All network I/O goes through a single resty client whose transport is
// capped at one connection per host, so requests reach the API in the order
// they were issued even when callers run concurrently.
//
// Paths may carry {accountID} and {clientID} placeholders. They are
// substituted from the active Session, which is why every call logs in first
// unless the caller opts out with Call.SkipAuth.
//
// Usage:
//
//	client := cloud.New(cloud.OptionsFromConfig(cfg.Account, cfg.Cloud))
//	home, err := client.Homescreen(ctx, 30*time.Second)
package cloud
