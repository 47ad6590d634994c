package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rentledger/rentledger/internal/models"
)

// ========== Contract Handlers ==========

// contractRequest is the write payload shared by create and update
type contractRequest struct {
	RoomID           string  `json:"roomId" validate:"required"`
	Tenant           string  `json:"tenant" validate:"required,max=200"`
	Email            string  `json:"email" validate:"omitempty,email"`
	Phone            string  `json:"phone" validate:"max=50"`
	EmergencyContact string  `json:"emergencyContact" validate:"max=200"`
	StartDate        string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate          string  `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	Rent             float64 `json:"rent" validate:"min=0"`
	Deposit          float64 `json:"deposit" validate:"min=0"`
	Status           string  `json:"status" validate:"omitempty,oneof=active terminated expired pending"`
	Type             string  `json:"type" validate:"omitempty,oneof=fixed-term open-ended month-to-month"`
	DurationMonths   int     `json:"duration" validate:"min=0"`
	TerminationDays  int     `json:"terminationNotice" validate:"min=0"`

	LandlordInfo    *models.LandlordInfo `json:"landlordInfo"`
	AdditionalTerms []string             `json:"additionalTerms"`
}

func (req contractRequest) toModel() models.Contract {
	return models.Contract{
		RoomID:                req.RoomID,
		Tenant:                req.Tenant,
		Email:                 req.Email,
		Phone:                 req.Phone,
		EmergencyContact:      req.EmergencyContact,
		StartDate:             req.StartDate,
		EndDate:               req.EndDate,
		Rent:                  req.Rent,
		Deposit:               req.Deposit,
		Status:                models.ContractStatus(req.Status),
		Type:                  models.ContractType(req.Type),
		DurationMonths:        req.DurationMonths,
		TerminationNoticeDays: req.TerminationDays,
		LandlordInfo:          req.LandlordInfo,
		AdditionalTerms:       req.AdditionalTerms,
	}
}

// HandleListContracts lists contracts newest first. ?status=active narrows
// to active contracts; ?room= narrows to one room.
func (s *RESTServer) HandleListContracts(w http.ResponseWriter, r *http.Request) {
	var contracts []models.Contract
	var err error

	if r.URL.Query().Get("status") == "active" {
		contracts, err = s.data.ActiveContracts(r.Context())
	} else {
		contracts, err = s.data.Contracts(r.Context())
	}
	if err != nil {
		s.respondDataError(w, err)
		return
	}

	if roomID := r.URL.Query().Get("room"); roomID != "" {
		filtered := contracts[:0]
		for _, c := range contracts {
			if c.RoomID == roomID {
				filtered = append(filtered, c)
			}
		}
		contracts = filtered
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"contracts": contracts,
		"total":     len(contracts),
	})
}

// HandleGetContract gets one contract
func (s *RESTServer) HandleGetContract(w http.ResponseWriter, r *http.Request) {
	contract, err := s.data.GetContract(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondDataError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, contract)
}

// HandleCreateContract creates a contract
func (s *RESTServer) HandleCreateContract(w http.ResponseWriter, r *http.Request) {
	var req contractRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	id, err := s.data.SaveContract(r.Context(), req.toModel())
	if err != nil {
		s.respondDataError(w, err)
		return
	}

	contract, err := s.data.GetContract(r.Context(), id)
	if err != nil {
		s.respondDataError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, contract)
}

// HandleUpdateContract updates a contract
func (s *RESTServer) HandleUpdateContract(w http.ResponseWriter, r *http.Request) {
	var req contractRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.data.UpdateContract(r.Context(), id, req.toModel()); err != nil {
		s.respondDataError(w, err)
		return
	}

	contract, err := s.data.GetContract(r.Context(), id)
	if err != nil {
		s.respondDataError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, contract)
}

// HandleTerminateContract terminates a contract
func (s *RESTServer) HandleTerminateContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.data.TerminateContract(r.Context(), id); err != nil {
		s.respondDataError(w, err)
		return
	}

	contract, err := s.data.GetContract(r.Context(), id)
	if err != nil {
		s.respondDataError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, contract)
}

// HandleRenewContract renews a contract to a new end date
func (s *RESTServer) HandleRenewContract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EndDate string `json:"endDate" validate:"required,datetime=2006-01-02"`
	}
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.data.RenewContract(r.Context(), id, req.EndDate); err != nil {
		s.respondDataError(w, err)
		return
	}

	contract, err := s.data.GetContract(r.Context(), id)
	if err != nil {
		s.respondDataError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, contract)
}
