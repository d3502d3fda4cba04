// Package jobs holds the background task definitions and the asynq worker
// that runs them.
package jobs

import "github.com/hibiken/asynq"

// Task type names, namespaced by module.
const (
	TaskTypeOverdueSweep    = "billing:overdue_sweep"
	TaskTypeQuotationExpiry = "billing:quotation_expiry"
)

// NewOverdueSweepTask flags issued invoices past their due date.
func NewOverdueSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeOverdueSweep, nil)
}

// NewQuotationExpiryTask expires sent quotations past their validity date.
func NewQuotationExpiryTask() *asynq.Task {
	return asynq.NewTask(TaskTypeQuotationExpiry, nil)
}
