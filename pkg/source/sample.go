package source

import (
	"tableflip.dev/acctview/pkg/account"
)

// SampleAccounts is the seed account set.
func SampleAccounts() []account.Account {
	return []account.Account{
		{ID: "acc-001", Name: "Everyday Checking"},
		{ID: "acc-002", Name: "Rainy Day Savings"},
		{ID: "acc-003", Name: "Travel Card"},
		{ID: "acc-004", Name: "Joint Brokerage"},
		{ID: "acc-005", Name: "Old Student Loan"},
	}
}

// SampleBalances is the seed balance set. acc-002 has two balances so only
// the first counts, and acc-005 has none.
func SampleBalances() []account.Balance {
	return []account.Balance{
		account.NewBalance("bal-001", "acc-001", "1234.5"),
		account.NewBalance("bal-002", "acc-002", "10"),
		account.NewBalance("bal-003", "acc-002", "99.99"),
		account.NewBalance("bal-004", "acc-003", "-42.17"),
		account.NewBalance("bal-005", "acc-004", "250000"),
	}
}

// Seed writes the sample records. With reset it first erases everything.
func (d *Disk) Seed(reset bool) error {
	if reset {
		if err := d.Reset(); err != nil {
			return err
		}
	}
	for _, a := range SampleAccounts() {
		if err := d.StoreAccount(a); err != nil {
			return err
		}
	}
	for _, b := range SampleBalances() {
		if err := d.StoreBalance(b); err != nil {
			return err
		}
	}
	return nil
}
