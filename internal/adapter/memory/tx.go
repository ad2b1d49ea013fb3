package memory

import "context"

// TxRunner is the memory-mode stand-in for the postgres TxManager. Store
// operations here are individually atomic and the event consumer is
// serial, so a pass-through is sufficient.
type TxRunner struct{}

// NewTxRunner creates a pass-through transaction runner.
func NewTxRunner() *TxRunner { return &TxRunner{} }

// RunInTx invokes fn with the unchanged context.
func (TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
