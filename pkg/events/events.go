// Package events declares the typed messages that travel between the view
// layer, the action bus and the command channel. Each family is a closed
// union: only the types in this package satisfy the marker interfaces.
package events

import (
	"fmt"
)

// Gesture is a user-originated event.
type Gesture interface {
	Describe() string
	isGesture()
}

// ItemTapped is emitted when the user taps the row for an account.
type ItemTapped struct {
	ID string
}

func (ItemTapped) isGesture() {}

// Describe renders the tap for logs.
func (m ItemTapped) Describe() string {
	return fmt.Sprintf(`tap id:%q`, m.ID)
}

// Command is a domain command exchanged with the command channel.
type Command interface {
	Describe() string
	isCommand()
}

// BlockRequest asks the command channel to block an account.
type BlockRequest struct {
	AccountID string
	RequestID string
}

func (BlockRequest) isCommand() {}

// Describe renders the request for logs.
func (m BlockRequest) Describe() string {
	return fmt.Sprintf(`block-request account:%q request:%q`, m.AccountID, m.RequestID)
}

// BlockResult reports the outcome of a BlockRequest. Results are correlated by
// AccountID; RequestID is carried for diagnostics only.
type BlockResult struct {
	AccountID string
	RequestID string
	Outcome   Outcome
}

func (BlockResult) isCommand() {}

// Describe renders the result for logs.
func (m BlockResult) Describe() string {
	return fmt.Sprintf(`block-result account:%q request:%q outcome:%s`, m.AccountID, m.RequestID, DescribeOutcome(m.Outcome))
}

// Outcome is either Success or Failure.
type Outcome interface {
	isOutcome()
}

// Success means the channel answered. Blocked reports whether the account
// was actually blocked.
type Success struct {
	Blocked bool
}

func (Success) isOutcome() {}

// Failure means the command did not complete.
type Failure struct {
	Cause error
}

func (Failure) isOutcome() {}

// Blocked is shorthand for a successful, applied block.
func Blocked(accountID, requestID string) BlockResult {
	return BlockResult{AccountID: accountID, RequestID: requestID, Outcome: Success{Blocked: true}}
}

// Declined is shorthand for a successful answer that did not block.
func Declined(accountID, requestID string) BlockResult {
	return BlockResult{AccountID: accountID, RequestID: requestID, Outcome: Success{Blocked: false}}
}

// Failed is shorthand for a failed command.
func Failed(accountID, requestID string, cause error) BlockResult {
	return BlockResult{AccountID: accountID, RequestID: requestID, Outcome: Failure{Cause: cause}}
}

// DescribeOutcome renders an outcome for logs.
func DescribeOutcome(o Outcome) string {
	switch v := o.(type) {
	case Success:
		return fmt.Sprintf("success(%t)", v.Blocked)
	case Failure:
		if v.Cause == nil {
			return "failure"
		}
		return fmt.Sprintf("failure(%q)", v.Cause.Error())
	default:
		return "none"
	}
}
