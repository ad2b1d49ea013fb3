package domain

// DefaultUsername is attributed to requests that carry no identity.
const DefaultUsername = "system"

// UserContext identifies the caller of a query or action. The allowed
// sets exist for the access-policy hook; the current policy is a
// pass-through and ignores them.
type UserContext struct {
	Username        string
	AllowedAccounts []string
	AllowedClients  []string
}
