package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/leave"
	"github.com/cmlabs-hris/hris-payroll/internal/pkg/database"
)

type leaveRequestRepositoryImpl struct {
	db *database.DB
}

func NewLeaveRequestRepository(db *database.DB) leave.LeaveRequestRepository {
	return &leaveRequestRepositoryImpl{db: db}
}

func (r *leaveRequestRepositoryImpl) ListApprovedOverlapping(ctx context.Context, employeeID string, companyID string, from, to time.Time) ([]leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT lr.id, lr.employee_id, lr.leave_type_id, lr.start_date, lr.end_date,
			COALESCE(lr.total_days, 0), lr.status, lr.approved_by, lr.approved_at,
			lr.created_at, lr.updated_at, lt.name, lt.is_paid
		FROM leave_requests lr
		JOIN leave_types lt ON lr.leave_type_id = lt.id
		JOIN employees e ON lr.employee_id = e.id
		WHERE lr.employee_id = $1 AND e.company_id = $2
			AND lr.status = $3
			AND lr.start_date <= $5 AND lr.end_date >= $4
		ORDER BY lr.start_date
	`

	rows, err := q.Query(ctx, query, employeeID, companyID, string(leave.LeaveRequestStatusApproved), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved leave requests: %w", err)
	}
	defer rows.Close()

	var requests []leave.LeaveRequest
	for rows.Next() {
		var lr leave.LeaveRequest
		var status string
		if err := rows.Scan(
			&lr.ID, &lr.EmployeeID, &lr.LeaveTypeID, &lr.StartDate, &lr.EndDate,
			&lr.TotalDays, &status, &lr.ApprovedBy, &lr.ApprovedAt,
			&lr.CreatedAt, &lr.UpdatedAt, &lr.LeaveTypeName, &lr.LeaveTypeIsPaid,
		); err != nil {
			return nil, fmt.Errorf("failed to scan leave request: %w", err)
		}
		lr.Status = leave.LeaveRequestStatus(status)
		requests = append(requests, lr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leave requests: %w", err)
	}

	return requests, nil
}
