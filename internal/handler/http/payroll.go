package http

import (
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payroll/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-payroll/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
)

type PayrollHandler interface {
	// Salary structures
	UpsertSalaryStructure(w http.ResponseWriter, r *http.Request)
	GetActiveSalaryStructure(w http.ResponseWriter, r *http.Request)
	ListSalaryStructures(w http.ResponseWriter, r *http.Request)

	// Payroll records
	GeneratePayroll(w http.ResponseWriter, r *http.Request)
	ListPayrollRecords(w http.ResponseWriter, r *http.Request)
	GetPayrollRecord(w http.ResponseWriter, r *http.Request)
	UpdatePayrollStatus(w http.ResponseWriter, r *http.Request)

	// Summary
	GetPayrollSummary(w http.ResponseWriter, r *http.Request)

	// Payslips
	GeneratePayslips(w http.ResponseWriter, r *http.Request)
	ListPayslips(w http.ResponseWriter, r *http.Request)
	GetPayslip(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

// pathID reads a UUID path parameter, writing a 400 when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := chi.URLParam(r, name)
	if !validator.IsValidUUID(id) {
		response.BadRequest(w, "Invalid "+name, nil)
		return "", false
	}
	return id, true
}

func queryInt(r *http.Request, key string) (*int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	return &v, true
}

// ========== SALARY STRUCTURES ==========

func (h *payrollHandlerImpl) UpsertSalaryStructure(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.CallerFromContext(r.Context())
	employeeID, ok := pathID(w, r, "employeeId")
	if !ok {
		return
	}

	var req payroll.UpsertSalaryStructureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.EmployeeID = employeeID
	req.CompanyID = caller.CompanyID
	req.ActorID = caller.UserID

	result, err := h.payrollService.UpsertSalaryStructure(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Salary structure saved", toSalaryStructureResponse(result))
}

func (h *payrollHandlerImpl) GetActiveSalaryStructure(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.CallerFromContext(r.Context())
	employeeID, ok := pathID(w, r, "employeeId")
	if !ok {
		return
	}

	result, err := h.payrollService.GetActiveSalaryStructure(r.Context(), caller.CompanyID, employeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, toSalaryStructureResponse(result))
}

func (h *payrollHandlerImpl) ListSalaryStructures(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.CallerFromContext(r.Context())
	employeeID, ok := pathID(w, r, "employeeId")
	if !ok {
		return
	}

	result, err := h.payrollService.ListSalaryStructures(r.Context(), caller.CompanyID, employeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	out := make([]payroll.SalaryStructureResponse, len(result))
	for i, s := range result {
		out[i] = toSalaryStructureResponse(s)
	}
	response.Success(w, out)
}

// ========== PAYROLL RECORDS ==========

func (h *payrollHandlerImpl) GeneratePayroll(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.CallerFromContext(r.Context())

	var req payroll.GeneratePayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.CompanyID = caller.CompanyID
	req.ActorID = caller.UserID

	result, err := h.payrollService.GeneratePayroll(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	records := make([]payroll.PayrollRecordResponse, len(result.Records))
	for i, rec := range result.Records {
		records[i] = toPayrollRecordResponse(rec)
	}
	response.Created(w, "Payroll generated", payroll.GeneratePayrollResponse{
		Records:            records,
		SkippedEmployeeIDs: result.SkippedEmployeeIDs,
		ReplacedCount:      result.ReplacedCount,
	})
}

func (h *payrollHandlerImpl) ListPayrollRecords(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.CallerFromContext(r.Context())

	filter := payroll.PayrollFilter{
		CompanyID: caller.CompanyID,
		Page:      1,
		Limit:     20,
		SortBy:    "created_at",
		SortOrder: "desc",
	}

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			filter.Page = page
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		}
	}
	month, ok := queryInt(r, "period_month")
	if !ok {
		response.BadRequest(w, "Invalid period_month", nil)
		return
	}
	year, ok := queryInt(r, "period_year")
	if !ok {
		response.BadRequest(w, "Invalid period_year", nil)
		return
	}
	filter.PeriodMonth = month
	filter.PeriodYear = year
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = &status
	}
	if employeeID := r.URL.Query().Get("employee_id"); employeeID != "" {
		filter.EmployeeID = &employeeID
	}
	if sortBy := r.URL.Query().Get("sort_by"); sortBy != "" {
		filter.SortBy = sortBy
	}
	if sortOrder := r.URL.Query().Get("sort_order"); sortOrder != "" {
		filter.SortOrder = sortOrder
	}

	records, total, err := h.payrollService.GetPayrolls(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	data := make([]payroll.PayrollRecordResponse, len(records))
	for i, rec := range records {
		data[i] = toPayrollRecordResponse(rec)
	}

	totalPages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	response.SuccessWithMeta(w, data, &response.Meta{
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalItems: total,
		TotalPages: totalPages,
	})
}

func (h *payrollHandlerImpl) GetPayrollRecord(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.CallerFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	result, err := h.payrollService.GetPayrollRecord(r.Context(), caller.CompanyID, id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, toPayrollRecordResponse(result))
}

func (h *payrollHandlerImpl) UpdatePayrollStatus(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.CallerFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req payroll.UpdatePayrollStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = id
	req.CompanyID = caller.CompanyID
	req.ActorID = caller.UserID

	result, err := h.payrollService.UpdatePayrollStatus(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll status updated", toPayrollRecordResponse(result))
}

// ========== SUMMARY ==========

func (h *payrollHandlerImpl) GetPayrollSummary(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.CallerFromContext(r.Context())

	monthStr := r.URL.Query().Get("period_month")
	yearStr := r.URL.Query().Get("period_year")
	if monthStr == "" || yearStr == "" {
		response.BadRequest(w, "period_month and period_year are required", nil)
		return
	}

	month, err := strconv.Atoi(monthStr)
	if err != nil {
		response.BadRequest(w, "Invalid period_month", nil)
		return
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		response.BadRequest(w, "Invalid period_year", nil)
		return
	}

	result, err := h.payrollService.GetPayrollSummary(r.Context(), caller.CompanyID, month, year)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== PAYSLIPS ==========

func (h *payrollHandlerImpl) GeneratePayslips(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.CallerFromContext(r.Context())

	var req payroll.GeneratePayslipsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.CompanyID = caller.CompanyID
	req.ActorID = caller.UserID

	result, err := h.payrollService.GeneratePayslips(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	out := make([]payroll.PayslipResponse, len(result))
	for i, ps := range result {
		out[i] = toPayslipResponse(ps)
	}
	response.Created(w, "Payslips generated", out)
}

func (h *payrollHandlerImpl) ListPayslips(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.CallerFromContext(r.Context())

	var filter payroll.PayslipFilter
	month, ok := queryInt(r, "period_month")
	if !ok {
		response.BadRequest(w, "Invalid period_month", nil)
		return
	}
	year, ok := queryInt(r, "period_year")
	if !ok {
		response.BadRequest(w, "Invalid period_year", nil)
		return
	}
	filter.PeriodMonth = month
	filter.PeriodYear = year
	if employeeID := r.URL.Query().Get("employee_id"); employeeID != "" {
		filter.EmployeeID = &employeeID
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = &status
	}

	result, err := h.payrollService.ListPayslips(r.Context(), caller.CompanyID, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	out := make([]payroll.PayslipResponse, len(result))
	for i, ps := range result {
		out[i] = toPayslipResponse(ps)
	}
	response.Success(w, out)
}

func (h *payrollHandlerImpl) GetPayslip(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.CallerFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	result, err := h.payrollService.GetPayslip(r.Context(), caller.CompanyID, id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, toPayslipResponse(result))
}
