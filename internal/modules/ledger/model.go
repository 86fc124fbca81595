// README: Ledger entries: immutable records of single monetary movements.
package ledger

import (
	"time"

	"feast/internal/types"
)

type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSettled Status = "SETTLED"
)

type Entry struct {
	ID           types.ID    `json:"id"`
	AccountEmail string      `json:"accountEmail"`
	Type         EntryType   `json:"type"`
	Amount       types.Money `json:"amount"`
	Description  string      `json:"description"`
	Reference    string      `json:"reference"`
	Status       Status      `json:"status"`
	CreatedAt    time.Time   `json:"createdAt"`
}
