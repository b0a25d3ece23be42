package domain

// BulkOperationKind names the single mutation a bulk call applies.
type BulkOperationKind string

const (
	BulkStatusChange   BulkOperationKind = "STATUS_CHANGE"
	BulkAssign         BulkOperationKind = "ASSIGN"
	BulkPriorityChange BulkOperationKind = "PRIORITY_CHANGE"
)

// BulkOperationResult accounts for every requested id of a bulk call.
type BulkOperationResult struct {
	SuccessCount int
	FailedIDs    []int64
	Errors       map[int64]string
}

// NewBulkOperationResult returns an empty result.
func NewBulkOperationResult() *BulkOperationResult {
	return &BulkOperationResult{
		FailedIDs: []int64{},
		Errors:    map[int64]string{},
	}
}

// RecordSuccess counts one processed item.
func (r *BulkOperationResult) RecordSuccess() {
	r.SuccessCount++
}

// RecordFailure appends id in encounter order. A repeated id keeps the latest reason.
func (r *BulkOperationResult) RecordFailure(id int64, reason string) {
	r.FailedIDs = append(r.FailedIDs, id)
	r.Errors[id] = reason
}

// FailureCount returns the number of failed entries.
func (r *BulkOperationResult) FailureCount() int {
	return len(r.FailedIDs)
}
