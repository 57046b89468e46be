/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY FORMAT:
  All monetary fields are JSON strings with two decimal places
  ("8225.81"), never floats. Clients parse them with a decimal library.

DATE FORMAT:
  Calendar dates are "YYYY-MM-DD"; timestamps are RFC3339.

SEE ALSO:
  - handlers.go: Uses these types
  - billing/types.go: Domain model these map from
*/
package api

import (
	"time"

	"github.com/hostelhq/ledger-engine/billing"
	"github.com/hostelhq/ledger-engine/ledger"
)

const dateLayout = "2006-01-02"

// =============================================================================
// STUDENT TYPES
// =============================================================================

// StudentDTO represents a student billing profile in API responses.
type StudentDTO struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	BaseMonthlyFee    string `json:"base_monthly_fee"`
	LaundryFee        string `json:"laundry_fee"`
	FoodFee           string `json:"food_fee"`
	MonthlyFee        string `json:"monthly_fee"`
	ConfigurationDate string `json:"configuration_date"`
	Status            string `json:"status"`
	IsCheckedOut      bool   `json:"is_checked_out"`
	CheckoutDate      string `json:"checkout_date,omitempty"`
	CreatedAt         string `json:"created_at,omitempty"`
}

// EnrollStudentRequest is the request to enroll a student.
type EnrollStudentRequest struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	BaseMonthlyFee    string `json:"base_monthly_fee"`
	LaundryFee        string `json:"laundry_fee"`
	FoodFee           string `json:"food_fee"`
	ConfigurationDate string `json:"configuration_date"`
	AdvancePayment    string `json:"advance_payment,omitempty"`
}

// EnrollStudentResponse returns the created profile and the prorated
// first-month charge.
type EnrollStudentResponse struct {
	Student   StudentDTO   `json:"student"`
	Proration ProrationDTO `json:"proration"`
}

// ProrationDTO describes a prorated charge or refund calculation.
type ProrationDTO struct {
	Date        string `json:"date"`
	DaysInMonth int    `json:"days_in_month"`
	Days        int    `json:"days"`
	DailyRate   string `json:"daily_rate"`
	Amount      string `json:"amount"`
	Refund      string `json:"refund,omitempty"`
	Note        string `json:"note,omitempty"`
}

// =============================================================================
// BALANCE AND LEDGER TYPES
// =============================================================================

// BalanceDTO represents a derived balance in API responses.
type BalanceDTO struct {
	StudentID    string `json:"student_id"`
	Amount       string `json:"amount"`
	Type         string `json:"type"`
	TotalDebits  string `json:"total_debits"`
	TotalCredits string `json:"total_credits"`
}

// LedgerEntryDTO represents one ledger row in API responses.
type LedgerEntryDTO struct {
	ID          string `json:"id"`
	StudentID   string `json:"student_id"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	ReferenceID string `json:"reference_id,omitempty"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Balance     string `json:"balance"`
	BalanceType string `json:"balance_type"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// InvoiceStandingDTO shows how much of one invoice remains unpaid after
// oldest-first allocation of all credits.
type InvoiceStandingDTO struct {
	EntryID     string `json:"entry_id"`
	Type        string `json:"type"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
	Amount      string `json:"amount"`
	Paid        string `json:"paid"`
	Outstanding string `json:"outstanding"`
	Settled     bool   `json:"settled"`
}

// StatementResponse is the full ledger view for one student.
type StatementResponse struct {
	StudentID           string               `json:"student_id"`
	Entries             []LedgerEntryDTO     `json:"entries"`
	OutstandingInvoices []InvoiceStandingDTO `json:"outstanding_invoices"`
	TotalOutstanding    string               `json:"total_outstanding"`
	AdvanceBalance      string               `json:"advance_balance"`
}

// =============================================================================
// PAYMENT TYPES
// =============================================================================

// RecordPaymentRequest is the request to record a payment.
type RecordPaymentRequest struct {
	Amount    string `json:"amount"`
	Method    string `json:"method,omitempty"`
	Reference string `json:"reference,omitempty"`
	Notes     string `json:"notes,omitempty"`
	Date      string `json:"date,omitempty"`
}

// RecordPaymentResponse returns the appended entry and the new balance.
type RecordPaymentResponse struct {
	Entry   LedgerEntryDTO `json:"entry"`
	Balance BalanceDTO     `json:"balance"`
}

// =============================================================================
// INVOICE TYPES
// =============================================================================

// GenerateInvoicesRequest selects the billing period for a batch run.
type GenerateInvoicesRequest struct {
	Year    int    `json:"year"`
	Month   int    `json:"month"`
	DueDate string `json:"due_date,omitempty"`
}

// InvoiceDTO represents a generated monthly invoice.
type InvoiceDTO struct {
	ID          string `json:"id"`
	StudentID   string `json:"student_id"`
	Period      string `json:"period"`
	Amount      string `json:"amount"`
	DueDate     string `json:"due_date"`
	GeneratedAt string `json:"generated_at,omitempty"`
}

// SkipDTO records one student skipped during a batch run.
type SkipDTO struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Reason    string `json:"reason"`
}

// FailureDTO records one student whose invoice failed during a batch run.
type FailureDTO struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Error     string `json:"error"`
}

// GenerateInvoicesResponse summarizes a batch run.
type GenerateInvoicesResponse struct {
	Period      string       `json:"period"`
	DueDate     string       `json:"due_date"`
	Generated   int          `json:"generated"`
	Skipped     int          `json:"skipped"`
	Failed      int          `json:"failed"`
	TotalAmount string       `json:"total_amount"`
	Invoices    []InvoiceDTO `json:"invoices"`
	Skips       []SkipDTO    `json:"skips,omitempty"`
	Failures    []FailureDTO `json:"failures,omitempty"`
}

// =============================================================================
// CHECKOUT TYPES
// =============================================================================

// SettlementDTO is the checkout settlement calculation.
type SettlementDTO struct {
	StudentID           string               `json:"student_id"`
	AsOf                string               `json:"as_of"`
	OutstandingInvoices []InvoiceStandingDTO `json:"outstanding_invoices"`
	TotalDues           string               `json:"total_dues"`
	AdvanceBalance      string               `json:"advance_balance"`
	ProratedRefund      string               `json:"prorated_refund"`
	ProratedCharge      string               `json:"prorated_charge"`
	ProrationNote       string               `json:"proration_note,omitempty"`
	NetAmount           string               `json:"net_amount"`
	Status              string               `json:"status"`
}

// CheckoutRequest is the request to process a checkout.
type CheckoutRequest struct {
	Date string `json:"date,omitempty"`
}

// CheckoutResponse returns the final settlement and the student's full
// ledger after the closing entries.
type CheckoutResponse struct {
	Settlement SettlementDTO    `json:"settlement"`
	Ledger     []LedgerEntryDTO `json:"ledger"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toStudentDTO(p billing.Profile) StudentDTO {
	dto := StudentDTO{
		ID:                string(p.StudentID),
		Name:              p.Name,
		BaseMonthlyFee:    p.BaseMonthlyFee.StringFixed(2),
		LaundryFee:        p.LaundryFee.StringFixed(2),
		FoodFee:           p.FoodFee.StringFixed(2),
		MonthlyFee:        p.MonthlyFee().StringFixed(2),
		ConfigurationDate: p.ConfigurationDate.Format(dateLayout),
		Status:            string(p.Status),
		IsCheckedOut:      p.IsCheckedOut,
	}
	if p.CheckoutDate != nil {
		dto.CheckoutDate = p.CheckoutDate.Format(dateLayout)
	}
	if !p.CreatedAt.IsZero() {
		dto.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toProrationDTO(pr billing.Proration) ProrationDTO {
	return ProrationDTO{
		Date:        pr.Date.Format(dateLayout),
		DaysInMonth: pr.DaysInMonth,
		Days:        pr.Days,
		DailyRate:   pr.DailyRate.StringFixed(2),
		Amount:      pr.Amount.StringFixed(2),
		Refund:      pr.Refund.StringFixed(2),
		Note:        pr.Note,
	}
}

func toBalanceDTO(b ledger.Balance) BalanceDTO {
	return BalanceDTO{
		StudentID:    string(b.StudentID),
		Amount:       b.Amount.StringFixed(2),
		Type:         string(b.Type),
		TotalDebits:  b.TotalDebits.StringFixed(2),
		TotalCredits: b.TotalCredits.StringFixed(2),
	}
}

func toEntryDTO(e ledger.Entry) LedgerEntryDTO {
	dto := LedgerEntryDTO{
		ID:          string(e.ID),
		StudentID:   string(e.StudentID),
		Date:        e.Date.Format(dateLayout),
		Type:        string(e.Type),
		Description: e.Description,
		ReferenceID: e.ReferenceID,
		Debit:       e.Debit.StringFixed(2),
		Credit:      e.Credit.StringFixed(2),
		Balance:     e.Balance.StringFixed(2),
		BalanceType: string(e.BalanceType),
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toEntryDTOs(entries []ledger.Entry) []LedgerEntryDTO {
	dtos := make([]LedgerEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	return dtos
}

func toStandingDTOs(standings []ledger.InvoiceStanding) []InvoiceStandingDTO {
	dtos := make([]InvoiceStandingDTO, len(standings))
	for i, s := range standings {
		dtos[i] = InvoiceStandingDTO{
			EntryID:     string(s.EntryID),
			Type:        string(s.Type),
			Date:        s.Date.Format(dateLayout),
			Description: s.Description,
			Amount:      s.Amount.StringFixed(2),
			Paid:        s.Paid.StringFixed(2),
			Outstanding: s.Outstanding.StringFixed(2),
			Settled:     s.Settled,
		}
	}
	return dtos
}

func toInvoiceDTO(inv billing.Invoice) InvoiceDTO {
	dto := InvoiceDTO{
		ID:        inv.ID,
		StudentID: string(inv.StudentID),
		Period:    inv.Period.String(),
		Amount:    inv.Amount.StringFixed(2),
		DueDate:   inv.DueDate.Format(dateLayout),
	}
	if !inv.GeneratedAt.IsZero() {
		dto.GeneratedAt = inv.GeneratedAt.Format(time.RFC3339)
	}
	return dto
}

func toSettlementDTO(s billing.Settlement) SettlementDTO {
	return SettlementDTO{
		StudentID:           string(s.StudentID),
		AsOf:                s.AsOf.Format(dateLayout),
		OutstandingInvoices: toStandingDTOs(s.OutstandingInvoices),
		TotalDues:           s.TotalDues.StringFixed(2),
		AdvanceBalance:      s.AdvanceBalance.StringFixed(2),
		ProratedRefund:      s.ProratedRefund.StringFixed(2),
		ProratedCharge:      s.ProratedCharge.StringFixed(2),
		ProrationNote:       s.ProrationNote,
		NetAmount:           s.NetAmount.StringFixed(2),
		Status:              string(s.Status),
	}
}
