package domain

import (
	"github.com/shopspring/decimal"
)

// ClientStatus is the lifecycle state of a tenant record. Any value may be
// set at any time; archived and blacklisted are terminal only by convention.
type ClientStatus string

const (
	ClientActive      ClientStatus = "active"
	ClientArchived    ClientStatus = "archived"
	ClientBlacklisted ClientStatus = "blacklisted"
)

// PropertyType classifies the leased property.
type PropertyType string

const (
	PropertyStudio    PropertyType = "studio"
	PropertyRoom      PropertyType = "room"
	PropertyApartment PropertyType = "apartment"
	PropertyVilla     PropertyType = "villa"
	PropertyOther     PropertyType = "other"
)

// PaymentStatus is derived from amounts and dates, see DeriveStatus.
type PaymentStatus string

const (
	StatusPaid    PaymentStatus = "paid"
	StatusPartial PaymentStatus = "partial"
	StatusUnpaid  PaymentStatus = "unpaid"
	StatusLate    PaymentStatus = "late"
)

// DocumentType classifies a stored file reference.
type DocumentType string

const (
	DocumentContract DocumentType = "contract"
	DocumentReceipt  DocumentType = "receipt"
	DocumentOther    DocumentType = "other"
)

// Client is a tenant. Rentals are embedded inline.
type Client struct {
	ID            string        `json:"id" validate:"required"`
	FirstName     string        `json:"firstName"`
	LastName      string        `json:"lastName"`
	Phone         string        `json:"phone"`
	Email         string        `json:"email,omitempty"`
	CNI           string        `json:"cni"`
	Status        ClientStatus  `json:"status" validate:"oneof=active archived blacklisted"`
	CreatedAt     Timestamp     `json:"createdAt"`
	AdminID       string        `json:"adminId,omitempty"`
	Rentals       []Rental      `json:"rentals" validate:"dive"`
	PaymentStatus PaymentStatus `json:"paymentStatus,omitempty"`
}

// FullName returns "First Last".
func (c *Client) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// FindRental returns a pointer into c.Rentals, or nil.
func (c *Client) FindRental(id string) *Rental {
	for i := range c.Rentals {
		if c.Rentals[i].ID == id {
			return &c.Rentals[i]
		}
	}
	return nil
}

// Rental is the lease of one property to one client.
type Rental struct {
	ID           string           `json:"id" validate:"required"`
	ClientID     string           `json:"clientId"`
	PropertyType PropertyType     `json:"propertyType" validate:"omitempty,oneof=studio room apartment villa other"`
	PropertyName string           `json:"propertyName"`
	MonthlyRent  decimal.Decimal  `json:"monthlyRent"`
	StartDate    Timestamp        `json:"startDate"`
	Deposit      *Deposit         `json:"deposit,omitempty"`
	Payments     []MonthlyPayment `json:"payments" validate:"dive"`
	Documents    []Document       `json:"documents" validate:"dive"`
}

// FindPayment returns a pointer into r.Payments, or nil.
func (r *Rental) FindPayment(id string) *MonthlyPayment {
	for i := range r.Payments {
		if r.Payments[i].ID == id {
			return &r.Payments[i]
		}
	}
	return nil
}

// Deposit is the security-deposit ledger of a rental.
// Paid is always the sum of Payments[].Amount.
type Deposit struct {
	Total    decimal.Decimal `json:"total"`
	Paid     decimal.Decimal `json:"paid"`
	Payments []PaymentRecord `json:"payments" validate:"dive"`
	Status   PaymentStatus   `json:"status,omitempty"`
}

// MonthlyPayment is one billing period of a rental.
type MonthlyPayment struct {
	ID          string          `json:"id" validate:"required"`
	RentalID    string          `json:"rentalId"`
	PeriodStart Timestamp       `json:"periodStart"`
	PeriodEnd   Timestamp       `json:"periodEnd"`
	DueDate     Timestamp       `json:"dueDate"`
	Amount      decimal.Decimal `json:"amount"`
	PaidAmount  decimal.Decimal `json:"paidAmount"`
	Status      PaymentStatus   `json:"status" validate:"omitempty,oneof=paid partial unpaid late"`
	Payments    []PaymentRecord `json:"payments" validate:"dive"`
}

// PaymentRecord is the immutable receipt of one payment event, used for both
// rent periods and deposits. Records are only ever appended.
type PaymentRecord struct {
	ID            string          `json:"id" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Date          Timestamp       `json:"date"`
	ReceiptNumber string          `json:"receiptNumber" validate:"required"`
}

// Document is a file reference attached to a rental.
type Document struct {
	ID         string       `json:"id" validate:"required"`
	RentalID   string       `json:"rentalId,omitempty"`
	ClientID   string       `json:"clientId,omitempty"`
	Name       string       `json:"name" validate:"required"`
	Type       DocumentType `json:"type" validate:"oneof=contract receipt other"`
	URL        string       `json:"url" validate:"required"`
	UploadedAt Timestamp    `json:"uploadedAt"`
	Signed     bool         `json:"signed"`
}
