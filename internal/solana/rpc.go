package solana

import (
	"context"
	"errors"
)

// ErrAccountNotFound is returned when a queried account does not exist on chain.
var ErrAccountNotFound = errors.New("account not found")

// RPCClient defines the Solana RPC HTTP methods used for token accounting.
type RPCClient interface {
	// GetTokenSupply returns the total supply of an SPL token mint.
	GetTokenSupply(ctx context.Context, mint string) (*TokenAmount, error)

	// GetTokenAccountBalance returns the balance of an SPL token account.
	// Returns ErrAccountNotFound if the account does not exist.
	GetTokenAccountBalance(ctx context.Context, account string) (*TokenAmount, error)

	// GetTokenLargestAccounts returns the largest accounts of a mint, descending by balance.
	GetTokenLargestAccounts(ctx context.Context, mint string) ([]TokenAccountBalance, error)
}
