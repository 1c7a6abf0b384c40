package stub

import (
	"context"
	"sync"

	"tokenomics-api/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
// A non-nil error field makes the corresponding method fail.
type RPCClient struct {
	mu sync.Mutex

	Supplies map[string]*solana.TokenAmount
	Balances map[string]*solana.TokenAmount
	Largest  map[string][]solana.TokenAccountBalance

	SupplyErr  error
	BalanceErr error
	LargestErr error

	Calls map[string]int
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Supplies: make(map[string]*solana.TokenAmount),
		Balances: make(map[string]*solana.TokenAmount),
		Largest:  make(map[string][]solana.TokenAccountBalance),
		Calls:    make(map[string]int),
	}
}

// GetTokenSupply returns the stored supply of mint.
func (c *RPCClient) GetTokenSupply(_ context.Context, mint string) (*solana.TokenAmount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls["getTokenSupply"]++

	if c.SupplyErr != nil {
		return nil, c.SupplyErr
	}
	supply, ok := c.Supplies[mint]
	if !ok {
		return nil, solana.ErrAccountNotFound
	}
	return supply, nil
}

// GetTokenAccountBalance returns the stored balance of account.
func (c *RPCClient) GetTokenAccountBalance(_ context.Context, account string) (*solana.TokenAmount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls["getTokenAccountBalance"]++

	if c.BalanceErr != nil {
		return nil, c.BalanceErr
	}
	balance, ok := c.Balances[account]
	if !ok {
		return nil, solana.ErrAccountNotFound
	}
	return balance, nil
}

// GetTokenLargestAccounts returns the stored largest accounts of mint.
func (c *RPCClient) GetTokenLargestAccounts(_ context.Context, mint string) ([]solana.TokenAccountBalance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls["getTokenLargestAccounts"]++

	if c.LargestErr != nil {
		return nil, c.LargestErr
	}
	return c.Largest[mint], nil
}

// SetSupply stores the supply of mint as a human-scaled amount.
func (c *RPCClient) SetSupply(mint, uiAmount string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Supplies[mint] = &solana.TokenAmount{UIAmountString: uiAmount}
}

// SetBalance stores the balance of a token account as a human-scaled amount.
func (c *RPCClient) SetBalance(account, uiAmount string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[account] = &solana.TokenAmount{UIAmountString: uiAmount}
}

// SetLargest stores the largest accounts of mint.
func (c *RPCClient) SetLargest(mint string, accounts []solana.TokenAccountBalance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Largest[mint] = accounts
}

// CallCount returns how many times method was invoked.
func (c *RPCClient) CallCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls[method]
}
