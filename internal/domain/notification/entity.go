package notification

import (
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	TypePayrollGenerated NotificationType = "payroll_generated"
	TypePayrollApproved  NotificationType = "payroll_approved"
	TypePayrollPaid      NotificationType = "payroll_paid"
	TypePayslipReady     NotificationType = "payslip_ready"
)

// AllNotificationTypes returns all available notification types
func AllNotificationTypes() []NotificationType {
	return []NotificationType{
		TypePayrollGenerated,
		TypePayrollApproved,
		TypePayrollPaid,
		TypePayslipReady,
	}
}

func (t NotificationType) IsValid() bool {
	for _, known := range AllNotificationTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Notification represents a notification entity
type Notification struct {
	ID          string
	CompanyID   string
	RecipientID string
	SenderID    *string
	Type        NotificationType
	Title       string
	Message     string
	Data        map[string]interface{}
	IsRead      bool
	ReadAt      *time.Time
	CreatedAt   time.Time
}
