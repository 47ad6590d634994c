package models

// ContractStatus represents the lifecycle state of a contract
type ContractStatus string

const (
	ContractStatusActive     ContractStatus = "active"
	ContractStatusTerminated ContractStatus = "terminated"
	ContractStatusExpired    ContractStatus = "expired"
	ContractStatusPending    ContractStatus = "pending"
)

// ContractType represents the lease type
type ContractType string

const (
	ContractTypeFixedTerm    ContractType = "fixed-term"
	ContractTypeOpenEnded    ContractType = "open-ended"
	ContractTypeMonthToMonth ContractType = "month-to-month"
)

// LandlordInfo holds the landlord details printed on a contract
type LandlordInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Contract represents a tenancy contract for a room
type Contract struct {
	ID     string `json:"id"`
	RoomID string `json:"roomId"`

	Tenant           string `json:"tenant"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	EmergencyContact string `json:"emergencyContact,omitempty"`

	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate,omitempty"` // empty for open-ended leases

	Rent    float64 `json:"rent"`
	Deposit float64 `json:"deposit"`

	Status ContractStatus `json:"status"`
	Type   ContractType   `json:"type"`

	// DurationMonths applies to fixed-term contracts
	DurationMonths int `json:"duration,omitempty"`
	// TerminationNoticeDays is the notice period in days
	TerminationNoticeDays int `json:"terminationNotice,omitempty"`

	LandlordInfo    *LandlordInfo `json:"landlordInfo,omitempty"`
	AdditionalTerms []string      `json:"additionalTerms,omitempty"`

	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// IsOpen reports whether the contract currently occupies its room.
// Pending contracts count as open for conflict checks: a second active
// contract must not be created while one is waiting to start.
func (c *Contract) IsOpen() bool {
	return c.Status == ContractStatusActive || c.Status == ContractStatusPending
}
