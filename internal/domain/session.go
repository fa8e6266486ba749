package domain

import "time"

// Session is a connected wallet identity.
type Session struct {
	ID             string    `json:"id"`
	AccountAddress string    `json:"accountAddress"`
	ConnectedAt    time.Time `json:"connectedAt"`
}

// Connected reports whether the session carries an account address.
// A nil session is the logged-out state.
func (s *Session) Connected() bool {
	return s != nil && s.AccountAddress != ""
}

// Address returns the account address, or "" when logged out.
func (s *Session) Address() string {
	if s == nil {
		return ""
	}
	return s.AccountAddress
}

// ShortAddress formats an address for display: first 10 and last 6 characters.
// Addresses shorter than 15 characters are returned unchanged.
func ShortAddress(addr string) string {
	if len(addr) < 15 {
		return addr
	}
	return addr[:10] + "..." + addr[len(addr)-6:]
}
