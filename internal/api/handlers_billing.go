package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rentledger/rentledger/internal/models"
)

// ========== Billing Handlers ==========

// HandleListBilling lists billing records newest first, ?room= narrows to
// one room.
func (s *RESTServer) HandleListBilling(w http.ResponseWriter, r *http.Request) {
	records, err := s.data.BillingHistory(r.Context(), r.URL.Query().Get("room"))
	if err != nil {
		s.respondDataError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"total":   len(records),
	})
}

// HandleCreateBilling stores a manually assembled billing record
func (s *RESTServer) HandleCreateBilling(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID   string  `json:"roomId" validate:"required"`
		Month    string  `json:"month" validate:"required"`
		Year     string  `json:"year" validate:"required,len=4"`
		Rent     float64 `json:"rent" validate:"min=0"`
		Water    float64 `json:"water" validate:"min=0"`
		WiFi     float64 `json:"wifi" validate:"min=0"`
		Electric float64 `json:"electric" validate:"min=0"`
		Total    float64 `json:"total" validate:"min=0"`
		DueDate  string  `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
		Notes    string  `json:"notes" validate:"max=500"`
	}
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	record := models.BillingRecord{
		RoomID:   req.RoomID,
		Month:    req.Month,
		Year:     req.Year,
		Rent:     req.Rent,
		Water:    req.Water,
		WiFi:     req.WiFi,
		Electric: req.Electric,
		Total:    req.Total,
		DueDate:  req.DueDate,
		Notes:    req.Notes,
	}

	id, err := s.data.SaveBillingRecord(r.Context(), record)
	if err != nil {
		s.respondDataError(w, err)
		return
	}
	record.ID = id

	s.respondJSON(w, http.StatusCreated, record)
}

// HandleGenerateBilling generates a bill for a room and month from a
// metered electricity consumption.
func (s *RESTServer) HandleGenerateBilling(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID              string  `json:"roomId" validate:"required"`
		Month               string  `json:"month" validate:"required"`
		Year                string  `json:"year" validate:"required,len=4"`
		ElectricConsumption float64 `json:"electricConsumption" validate:"min=0"`
	}
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	record, err := s.data.GenerateBillingRecord(r.Context(), req.RoomID, req.Month, req.Year, req.ElectricConsumption)
	if err != nil {
		s.respondDataError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, record)
}

// HandleMarkBillingPaid settles a bill
func (s *RESTServer) HandleMarkBillingPaid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentMethod string `json:"paymentMethod" validate:"omitempty,oneof=cash bank_transfer check online card"`
	}
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.data.MarkBillingPaid(r.Context(), id, models.PaymentMethod(req.PaymentMethod)); err != nil {
		s.respondDataError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}

// ========== Dashboard Handlers ==========

// HandleDashboardSummary returns the portfolio summary
func (s *RESTServer) HandleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.data.DashboardSummary(r.Context())
	if err != nil {
		s.respondDataError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, summary)
}

// HandleInitializeDefaults seeds the starter portfolio for a fresh account
func (s *RESTServer) HandleInitializeDefaults(w http.ResponseWriter, r *http.Request) {
	if err := s.data.InitializeDefaultData(r.Context()); err != nil {
		s.respondDataError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "initialized"})
}
