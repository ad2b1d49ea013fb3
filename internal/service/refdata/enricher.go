// Package refdata holds the reference-data enrichment hook used by the
// calculation processor to resolve client identifiers before they are
// stored. Resolution against the real reference-data system lives outside
// this service; the default enricher returns identifiers unchanged.
package refdata

import "context"

// Enricher resolves/enriches the (account_id, enterprise_number) pair.
type Enricher interface {
	Enrich(ctx context.Context, accountID, enterpriseNumber *string) (*string, *string, error)
}

// Noop returns identifiers unchanged.
type Noop struct{}

// NewNoop creates the identity enricher.
func NewNoop() Noop { return Noop{} }

func (Noop) Enrich(ctx context.Context, accountID, enterpriseNumber *string) (*string, *string, error) {
	return accountID, enterpriseNumber, nil
}
