package domain

// NbaFilter defines parameters for listing active recommendations.
// Identifier filters are exact-match; nil means "no filter".
type NbaFilter struct {
	AccountID        *string
	EnterpriseNumber *string
	Status           *Status

	// Limit is the page size. Default: 50, max: 200.
	Limit int

	// Offset is the number of records to skip.
	Offset int
}

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Normalize applies defaults and clamps values.
func (f *NbaFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// Matches reports whether a record passes the identifier and status
// filters. Activity and ordering are the store's concern.
func (f *NbaFilter) Matches(n *NbaRecord) bool {
	if f.AccountID != nil && !ptrEqual(n.AccountID, f.AccountID) {
		return false
	}
	if f.EnterpriseNumber != nil && !ptrEqual(n.EnterpriseNumber, f.EnterpriseNumber) {
		return false
	}
	if f.Status != nil && n.Status != *f.Status {
		return false
	}
	return true
}
