package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll/internal/pkg/database"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

// CountPresentDays counts distinct dates, so a split session on one day
// counts once.
func (a *attendanceRepository) CountPresentDays(ctx context.Context, employeeID string, companyID string, from, to time.Time) (int, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT COUNT(DISTINCT date)
		FROM attendances
		WHERE employee_id = $1 AND company_id = $2
			AND date BETWEEN $3 AND $4
			AND status = ANY($5)
	`

	var count int
	err := q.QueryRow(ctx, query, employeeID, companyID, from, to, attendance.PresentStatuses).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count present days for employee %s: %w", employeeID, err)
	}

	return count, nil
}
