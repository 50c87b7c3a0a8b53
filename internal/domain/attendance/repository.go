package attendance

import (
	"context"
	"time"
)

// AttendanceRepository defines data access methods for attendance records.
// All methods include companyID parameter to prevent cross-company data access attacks.
type AttendanceRepository interface {
	// CountPresentDays counts attendance rows with a present status dated in [from, to].
	CountPresentDays(ctx context.Context, employeeID string, companyID string, from, to time.Time) (int, error)
}
