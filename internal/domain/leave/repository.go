package leave

import (
	"context"
	"time"
)

// LeaveRequestRepository reads leave requests.
type LeaveRequestRepository interface {
	// ListApprovedOverlapping returns approved requests of the employee whose
	// date range intersects [from, to], joined with the leave type's paid flag.
	ListApprovedOverlapping(ctx context.Context, employeeID string, companyID string, from, to time.Time) ([]LeaveRequest, error)
}
