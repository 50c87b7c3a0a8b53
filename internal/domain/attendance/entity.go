package attendance

import (
	"time"
)

// Attendance status values stored on the attendances table.
const (
	StatusPresent         = "present"
	StatusOnTime          = "on_time"
	StatusLate            = "late"
	StatusAbsent          = "absent"
	StatusOnLeave         = "on_leave"
	StatusHoliday         = "holiday"
	StatusWaitingApproval = "waiting_approval"
)

// PresentStatuses are the statuses that count as a day worked.
var PresentStatuses = []string{StatusPresent, StatusOnTime, StatusLate}

type Attendance struct {
	ID         string
	EmployeeID string
	CompanyID  string
	Date       time.Time
	ClockIn    *time.Time
	ClockOut   *time.Time
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
