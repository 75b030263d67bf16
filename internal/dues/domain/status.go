package domain

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPaid    Status = "PAID"
	StatusPartial Status = "PARTIAL"
	StatusPending Status = "PENDING"
	StatusOverdue Status = "OVERDUE"
)

// Statuses lists every status in dashboard display order.
var Statuses = []Status{StatusOverdue, StatusPartial, StatusPending, StatusPaid}

var statusWire = map[Status]string{
	StatusPaid:    "PAGADO",
	StatusPartial: "PARCIAL",
	StatusPending: "PENDIENTE",
	StatusOverdue: "VENCIDO",
}

// Wire returns the status string used by the backend and the dashboard.
func (s Status) Wire() string {
	if v, ok := statusWire[s]; ok {
		return v
	}
	return string(s)
}

// ParseStatus accepts both the internal names and the wire vocabulary,
// case-insensitively.
func ParseStatus(raw string) (Status, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	for status, wire := range statusWire {
		if value == string(status) || value == wire {
			return status, nil
		}
	}
	return "", NewValidationError("status", ErrCodeInvalidStatus, "unknown status "+raw)
}

// Resolve derives the status of due as of the given calendar day.
//
// Precedence: a settled balance is PAID even when paid late; an unsettled
// due past its due date is OVERDUE; otherwise any payment makes it PARTIAL.
func Resolve(due Due, asOf time.Time) Status {
	if !due.Balance().IsPositive() {
		return StatusPaid
	}
	if due.DueDate != nil && DateOf(*due.DueDate).Before(DateOf(asOf)) {
		return StatusOverdue
	}
	if due.AmountPaid.IsPositive() {
		return StatusPartial
	}
	return StatusPending
}
