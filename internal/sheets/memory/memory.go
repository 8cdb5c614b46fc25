// Package memory is an in-process PaymentMirror used when no spreadsheet
// is configured and by tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"feeledger/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows []sheets.PaymentRow
}

var _ sheets.PaymentMirror = (*Mirror)(nil)

func New() *Mirror { return &Mirror{} }

func (m *Mirror) AppendPayment(_ context.Context, row sheets.PaymentRow) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.PaymentID == row.PaymentID {
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	m.rows = append(m.rows, row)
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

func (m *Mirror) RemovePayment(_ context.Context, paymentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.PaymentID == paymentID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Mirror) PaymentIDs(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.rows))
	for i, r := range m.rows {
		ids[i] = r.PaymentID
	}
	return ids, nil
}

// Rows returns a copy of the mirrored rows in insertion order.
func (m *Mirror) Rows() []sheets.PaymentRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sheets.PaymentRow(nil), m.rows...)
}
