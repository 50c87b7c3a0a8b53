package employee

import (
	"time"
)

type Employee struct {
	ID               string
	UserID           *string
	CompanyID        string
	PositionID       *string
	DepartmentID     *string
	EmployeeCode     string
	FullName         string
	HireDate         time.Time
	ResignationDate  *time.Time
	EmploymentStatus EmploymentStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time

	// Joined fields
	PositionName   *string
	DepartmentName *string
}

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)
