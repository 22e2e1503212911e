// Package account defines the domain records the presentation engine binds:
// accounts and the balance records that reference them.
package account

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Account is a named item with stable identity.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (a Account) String() string {
	return fmt.Sprintf("%s (%s)", a.Name, a.ID)
}

// Balance is a monetary record associated with exactly one Account.
type Balance struct {
	ID        string          `json:"id"`
	AccountID string          `json:"accountId"`
	Amount    decimal.Decimal `json:"amount"`
}

func (b Balance) String() string {
	return fmt.Sprintf("%s: %s -> %s", b.ID, b.Amount.String(), b.AccountID)
}

// NewBalance builds a balance from a decimal literal. It panics on malformed
// input and is meant for fixtures and tests.
func NewBalance(id, accountID, amount string) Balance {
	return Balance{ID: id, AccountID: accountID, Amount: decimal.RequireFromString(amount)}
}

// CloneAccounts returns a copy of list so snapshots never share backing
// arrays with callers.
func CloneAccounts(list []Account) []Account {
	if list == nil {
		return nil
	}
	return append(make([]Account, 0, len(list)), list...)
}

// CloneBalances returns a copy of list.
func CloneBalances(list []Balance) []Balance {
	if list == nil {
		return nil
	}
	return append(make([]Balance, 0, len(list)), list...)
}

// MarshalAccounts serialises an account slice.
func MarshalAccounts(list []Account) ([]byte, error) {
	return json.MarshalIndent(list, "", "  ")
}

// UnmarshalAccounts deserialises an account slice. A single object is
// accepted as a one-element list.
func UnmarshalAccounts(data []byte) ([]Account, error) {
	if len(data) == 0 {
		return []Account{}, nil
	}
	var list []Account
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var single Account
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, err
	}
	return []Account{single}, nil
}
