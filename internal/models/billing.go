package models

// BillingStatus represents the payment state of a billing record
type BillingStatus string

const (
	BillingStatusPending   BillingStatus = "pending"
	BillingStatusPaid      BillingStatus = "paid"
	BillingStatusOverdue   BillingStatus = "overdue"
	BillingStatusCancelled BillingStatus = "cancelled"
)

// PaymentMethod represents how a bill was settled
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodOnline       PaymentMethod = "online"
	PaymentMethodCard         PaymentMethod = "card"
)

// BillingDiscount is a discount line applied to a billing record
type BillingDiscount struct {
	Type        string  `json:"type"` // "percentage" or "fixed"
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// BillingRecord represents one month's bill for a room. Total is the
// arithmetic sum of the four components at creation time and is never
// recomputed from stored state.
type BillingRecord struct {
	ID     string `json:"id"`
	RoomID string `json:"roomId"`

	Month string `json:"month"`
	Year  string `json:"year"`

	Rent     float64 `json:"rent"`
	Water    float64 `json:"water"`
	WiFi     float64 `json:"wifi"`
	Electric float64 `json:"electric"`
	Total    float64 `json:"total"`

	Date    string `json:"date"` // ISO timestamp when the bill was generated
	DueDate string `json:"dueDate,omitempty"`

	Status        BillingStatus `json:"status"`
	PaidDate      string        `json:"paidDate,omitempty"`
	PaymentMethod PaymentMethod `json:"paymentMethod,omitempty"`

	Discounts []BillingDiscount `json:"discounts,omitempty"`
	LateFees  float64           `json:"lateFees,omitempty"`
	Notes     string            `json:"notes,omitempty"`

	CreatedAt string `json:"createdAt,omitempty"`
}
