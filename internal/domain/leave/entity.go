package leave

import (
	"time"
)

// LeaveType entity
type LeaveType struct {
	ID        string
	CompanyID string
	Name      string
	Code      *string
	IsActive  *bool
	// IsPaid decides whether approved days of this type are paid. Nil is unpaid.
	IsPaid    *bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type LeaveRequestStatus string

const (
	LeaveRequestStatusWaitingApproval LeaveRequestStatus = "waiting_approval"
	LeaveRequestStatusApproved        LeaveRequestStatus = "approved"
	LeaveRequestStatusRejected        LeaveRequestStatus = "rejected"
	LeaveRequestStatusCancelled       LeaveRequestStatus = "cancelled"
)

type LeaveRequest struct {
	ID          string
	EmployeeID  string
	LeaveTypeID string

	StartDate time.Time
	EndDate   time.Time
	TotalDays float64

	Status     LeaveRequestStatus
	ApprovedBy *string
	ApprovedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// Relationships (for responses)
	LeaveTypeName   *string
	LeaveTypeIsPaid *bool
}
