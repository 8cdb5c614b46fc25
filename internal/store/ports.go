// Package store defines the Data Access Port the ledger reads snapshots
// from and writes mutations to. Adapters live in the subpackages.
package store

import (
	"context"

	"feeledger/internal/core"
)

// Ports for outbound adapters.
type (
	StudentStore interface {
		ListStudents(ctx context.Context) ([]core.Student, error)
		CreateStudent(ctx context.Context, s core.NewStudent) (core.Student, error)
		// UpdateStudent merges patch over the stored record. Unknown ids
		// return core.ErrStudentNotFound.
		UpdateStudent(ctx context.Context, id string, patch core.StudentPatch) (core.Student, error)
		// DeleteStudent removes the student only; payments that reference
		// it are kept.
		DeleteStudent(ctx context.Context, id string) error
	}

	PaymentStore interface {
		ListPayments(ctx context.Context) ([]core.Payment, error)
		CreatePayment(ctx context.Context, p core.NewPayment) (core.Payment, error)
		DeletePayment(ctx context.Context, id string) error
		// DeletePayments removes every listed payment that exists and
		// reports how many were removed. Unknown ids are skipped.
		DeletePayments(ctx context.Context, ids []string) (int, error)
	}

	// Repository is the full port a backend provides.
	Repository interface {
		StudentStore
		PaymentStore
		Close() error
	}
)
