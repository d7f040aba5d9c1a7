package cloud

import (
	"strconv"
	"strings"
	"sync"
)

// SessionInfo is a point-in-time copy of the Session.
type SessionInfo struct {
	Token     string
	AccountID int64
	ClientID  int64
	Region    string
}

// Authenticated reports whether a bearer token is held.
func (i SessionInfo) Authenticated() bool {
	return i.Token != ""
}

// Session is the single active login of a Client. The token is cleared on
// 401, 5xx and transport failures, forcing a login before the next call.
// Identifiers survive a token clear so that paths still resolve.
type Session struct {
	mu   sync.RWMutex
	info SessionInfo
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

func (s *Session) set(info SessionInfo) {
	s.mu.Lock()
	s.info = info
	s.mu.Unlock()
}

// ClearToken drops the bearer token and keeps identifiers.
func (s *Session) ClearToken() {
	s.mu.Lock()
	s.info.Token = ""
	s.mu.Unlock()
}

func (s *Session) reset() {
	s.set(SessionInfo{})
}

// expandPath substitutes {accountID} and {clientID} from the session.
func expandPath(path string, info SessionInfo) string {
	if !strings.Contains(path, "{") {
		return path
	}
	return strings.NewReplacer(
		"{accountID}", strconv.FormatInt(info.AccountID, 10),
		"{clientID}", strconv.FormatInt(info.ClientID, 10),
	).Replace(path)
}
