/*
handlers.go - HTTP API handlers for the hostel billing engine

PURPOSE:
  Exposes the billing engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Students:
    GET    /api/students                       List all students
    POST   /api/students                       Enroll student
    GET    /api/students/{id}                  Get student profile
    GET    /api/students/{id}/balance          Get derived balance
    GET    /api/students/{id}/ledger           Full ledger statement
    POST   /api/students/{id}/payments         Record payment

  Invoices:
    POST   /api/invoices/generate              Run monthly batch
    GET    /api/invoices?year=Y&month=M        List invoices for a period
    GET    /api/students/{id}/invoices         List a student's invoices

  Checkout:
    GET    /api/students/{id}/checkout/preview Settlement preview
    POST   /api/students/{id}/checkout         Process checkout

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (engine, ledger)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Student not found
  - 409: Conflict (already billed, already checked out, duplicate key)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hostelhq/ledger-engine/billing"
	"github.com/hostelhq/ledger-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *billing.Engine
}

// NewHandler creates a new handler around the billing engine.
func NewHandler(engine *billing.Engine) *Handler {
	return &Handler{Engine: engine}
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// ListStudents returns all student profiles.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Engine.Store().ListProfiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list students", err)
		return
	}

	dtos := make([]StudentDTO, len(profiles))
	for i, p := range profiles {
		dtos[i] = toStudentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStudent returns one student profile.
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id := ledger.StudentID(chi.URLParam(r, "id"))

	profile, err := h.Engine.Store().GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get student", err)
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "Student not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(*profile))
}

// EnrollStudent creates a billing profile and the prorated first-month
// charge in one transaction.
func (h *Handler) EnrollStudent(w http.ResponseWriter, r *http.Request) {
	var req EnrollStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	configurationDate, err := time.Parse(dateLayout, req.ConfigurationDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid configuration_date format (use YYYY-MM-DD)", err)
		return
	}

	in := billing.EnrollmentInput{
		StudentID:         ledger.StudentID(req.ID),
		Name:              req.Name,
		ConfigurationDate: configurationDate,
	}
	if in.BaseMonthlyFee, err = parseAmount(req.BaseMonthlyFee, "base_monthly_fee"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if in.LaundryFee, err = parseOptionalAmount(req.LaundryFee, "laundry_fee"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if in.FoodFee, err = parseOptionalAmount(req.FoodFee, "food_fee"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if in.AdvancePayment, err = parseOptionalAmount(req.AdvancePayment, "advance_payment"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	profile, proration, err := h.Engine.Enroll(r.Context(), in)
	if err != nil {
		writeDomainError(w, "Failed to enroll student", err)
		return
	}

	writeJSON(w, http.StatusCreated, EnrollStudentResponse{
		Student:   toStudentDTO(*profile),
		Proration: toProrationDTO(proration),
	})
}

// GetBalance returns the balance derived from the full ledger.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := ledger.StudentID(chi.URLParam(r, "id"))

	if err := h.requireStudent(w, r, id); err != nil {
		return
	}

	balance, err := h.Engine.Balance(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to compute balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(balance))
}

// GetLedger returns the full statement: every entry plus the oldest-first
// allocation of credits across invoices. Optional from/to query parameters
// (YYYY-MM-DD, inclusive) scope the entry list to a date window; the
// allocation totals always cover the full history.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	id := ledger.StudentID(chi.URLParam(r, "id"))

	if err := h.requireStudent(w, r, id); err != nil {
		return
	}

	from, err := parseAsOf(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := parseAsOf(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}

	var entries []ledger.Entry
	var allocation ledger.Allocation
	if from.IsZero() && to.IsZero() {
		entries, allocation, err = h.Engine.Statement(r.Context(), id)
	} else {
		if to.IsZero() {
			to = time.Now().UTC()
		}
		entries, allocation, err = h.Engine.StatementRange(r.Context(), id, from, to)
	}
	if err != nil {
		writeDomainError(w, "Failed to load ledger", err)
		return
	}

	writeJSON(w, http.StatusOK, StatementResponse{
		StudentID:           string(id),
		Entries:             toEntryDTOs(entries),
		OutstandingInvoices: toStandingDTOs(allocation.Outstanding()),
		TotalOutstanding:    allocation.TotalOutstanding.StringFixed(2),
		AdvanceBalance:      allocation.AdvanceBalance.StringFixed(2),
	})
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// RecordPayment appends a payment entry and returns the new balance.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := ledger.StudentID(chi.URLParam(r, "id"))

	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := parseAmount(req.Amount, "amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	in := billing.PaymentInput{
		Amount:    amount,
		Method:    req.Method,
		Reference: req.Reference,
		Notes:     req.Notes,
	}
	if req.Date != "" {
		if in.Date, err = time.Parse(dateLayout, req.Date); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
	}

	entry, balance, err := h.Engine.RecordPayment(r.Context(), id, in)
	if err != nil {
		writeDomainError(w, "Failed to record payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, RecordPaymentResponse{
		Entry:   toEntryDTO(*entry),
		Balance: toBalanceDTO(balance),
	})
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// GenerateInvoices runs the monthly batch for the requested period.
func (h *Handler) GenerateInvoices(w http.ResponseWriter, r *http.Request) {
	var req GenerateInvoicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := billing.GenerateInput{
		Period: ledger.Period{Year: req.Year, Month: time.Month(req.Month)},
	}
	if req.DueDate != "" {
		due, err := time.Parse(dateLayout, req.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid due_date format (use YYYY-MM-DD)", err)
			return
		}
		in.DueDate = due
	}

	result, err := h.Engine.GenerateMonthlyInvoices(r.Context(), in)
	if err != nil {
		writeDomainError(w, "Failed to generate invoices", err)
		return
	}

	writeJSON(w, http.StatusOK, toGenerateResponse(result))
}

// ListInvoices returns the invoices generated for one period.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or missing year parameter", err)
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or missing month parameter", err)
		return
	}

	period := ledger.Period{Year: year, Month: time.Month(month)}
	if !period.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid period %d-%d", year, month), nil)
		return
	}

	invoices, err := h.Engine.Store().ListInvoices(r.Context(), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list invoices", err)
		return
	}

	dtos := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListStudentInvoices returns one student's invoices, newest first.
func (h *Handler) ListStudentInvoices(w http.ResponseWriter, r *http.Request) {
	id := ledger.StudentID(chi.URLParam(r, "id"))

	if err := h.requireStudent(w, r, id); err != nil {
		return
	}

	invoices, err := h.Engine.Store().ListInvoicesByStudent(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list invoices", err)
		return
	}

	dtos := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CHECKOUT HANDLERS
// =============================================================================

// PreviewCheckout computes the settlement without writing anything.
func (h *Handler) PreviewCheckout(w http.ResponseWriter, r *http.Request) {
	id := ledger.StudentID(chi.URLParam(r, "id"))

	asOf, err := parseAsOf(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	settlement, err := h.Engine.CheckoutPreview(r.Context(), id, asOf)
	if err != nil {
		writeDomainError(w, "Failed to preview checkout", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementDTO(*settlement))
}

// ProcessCheckout settles the account, zeroes the ledger, and releases the
// bed in one transaction.
func (h *Handler) ProcessCheckout(w http.ResponseWriter, r *http.Request) {
	id := ledger.StudentID(chi.URLParam(r, "id"))

	var req CheckoutRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	asOf, err := parseAsOf(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	settlement, err := h.Engine.ProcessCheckout(r.Context(), id, asOf)
	if err != nil {
		writeDomainError(w, "Failed to process checkout", err)
		return
	}

	entries, _, err := h.Engine.Statement(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load ledger after checkout", err)
		return
	}

	writeJSON(w, http.StatusOK, CheckoutResponse{
		Settlement: toSettlementDTO(*settlement),
		Ledger:     toEntryDTOs(entries),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// requireStudent writes a 404 (or 500) and returns the error when the
// student does not exist.
func (h *Handler) requireStudent(w http.ResponseWriter, r *http.Request, id ledger.StudentID) error {
	profile, err := h.Engine.Store().GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get student", err)
		return err
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "Student not found", nil)
		return ledger.ErrStudentNotFound
	}
	return nil
}

func toGenerateResponse(result *billing.GenerateResult) GenerateInvoicesResponse {
	resp := GenerateInvoicesResponse{
		Period:      result.Period.String(),
		DueDate:     result.DueDate.Format(dateLayout),
		Generated:   result.Generated,
		Skipped:     result.Skipped,
		Failed:      result.Failed,
		TotalAmount: result.TotalAmount.StringFixed(2),
		Invoices:    make([]InvoiceDTO, len(result.Invoices)),
	}
	for i, inv := range result.Invoices {
		resp.Invoices[i] = toInvoiceDTO(inv)
	}
	for _, s := range result.Skips {
		resp.Skips = append(resp.Skips, SkipDTO{
			StudentID: string(s.StudentID),
			Name:      s.Name,
			Reason:    s.Reason,
		})
	}
	for _, f := range result.Failures {
		resp.Failures = append(resp.Failures, FailureDTO{
			StudentID: string(f.StudentID),
			Name:      f.Name,
			Error:     f.Err,
		})
	}
	return resp
}

func parseAmount(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("%s is required", field)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s is not a valid amount", field)
	}
	return d, nil
}

// parseOptionalAmount treats an empty string as zero.
func parseOptionalAmount(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return parseAmount(s, field)
}

// parseAsOf treats an empty string as "now".
func parseAsOf(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

func statusForError(err error) int {
	switch {
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	case ledger.IsConflict(err):
		return http.StatusConflict
	case ledger.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusForError(err), message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
