// Package sheets defines the spreadsheet mirror that payment events are
// replayed into.
package sheets

import (
	"context"
	"time"

	"feeledger/internal/core"
)

// PaymentRow is one mirrored payment. PaymentDate is already in the
// ledger's configured location.
type PaymentRow struct {
	PaymentID   string
	PaymentDate time.Time
	StudentID   string
	StudentName string
	Months      []core.MonthKey
	Amount      core.Money
	Remarks     string
}

// Ports for outbound adapters.
type (
	PaymentAppender interface {
		// AppendPayment adds the row unless a row with the same payment id exists.
		AppendPayment(ctx context.Context, row PaymentRow) (rowRef string, err error)
	}

	PaymentRemover interface {
		// RemovePayment deletes the row for paymentID. Missing rows are not an error.
		RemovePayment(ctx context.Context, paymentID string) error
	}

	PaymentLister interface {
		// PaymentIDs returns the payment ids currently mirrored.
		PaymentIDs(ctx context.Context) ([]string, error)
	}

	PaymentMirror interface {
		PaymentAppender
		PaymentRemover
		PaymentLister
	}
)
