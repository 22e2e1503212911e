package viewmodel

import (
	"tableflip.dev/acctview/pkg/account"
	"tableflip.dev/acctview/pkg/events"
)

// Unknown is the amount shown for an account without a balance record.
const Unknown = "UNKNOWN"

// Item is one displayable row derived from an account and its balance.
type Item struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Amount string `json:"amount"`

	// Tap is the gesture the row emits when the user activates it.
	Tap events.ItemTapped `json:"-"`
}

// State is the current renderable snapshot: Empty or Items.
type State interface {
	Len() int
	isState()
}

// Empty means no data has been received yet.
type Empty struct{}

func (Empty) isState() {}

// Len implements State.
func (Empty) Len() int { return 0 }

// Items is an ordered list of rows. A zero-length Items is a loaded list
// with nothing to show and is distinct from Empty.
type Items []Item

func (Items) isState() {}

// Len implements State.
func (s Items) Len() int { return len(s) }

// Index returns the position of id in the list or -1.
func (s Items) Index(id string) int {
	for i := range s {
		if s[i].ID == id {
			return i
		}
	}
	return -1
}

// Reduce maps accounts and balances into rows, preserving account order. For
// each account only the first balance that references it is used. A nil
// formatter falls back to DefaultFormatter.
func Reduce(accounts []account.Account, balances []account.Balance, f Formatter) []Item {
	if f == nil {
		f = DefaultFormatter()
	}
	items := make([]Item, 0, len(accounts))
	for _, acct := range accounts {
		items = append(items, Item{
			ID:     acct.ID,
			Name:   acct.Name,
			Amount: amountFor(acct.ID, balances, f),
			Tap:    events.ItemTapped{ID: acct.ID},
		})
	}
	return items
}

func amountFor(accountID string, balances []account.Balance, f Formatter) string {
	for _, b := range balances {
		if b.AccountID != accountID {
			continue
		}
		text, err := f.Format(b.Amount)
		if err != nil {
			return b.Amount.String()
		}
		return text
	}
	return Unknown
}

// Remove returns state without the row for id. It reports false, returning
// state untouched, when state is Empty or holds no such row.
func Remove(state State, id string) (State, bool) {
	items, ok := state.(Items)
	if !ok {
		return state, false
	}
	idx := items.Index(id)
	if idx < 0 {
		return state, false
	}
	out := make(Items, 0, len(items)-1)
	out = append(out, items[:idx]...)
	out = append(out, items[idx+1:]...)
	return out, true
}
