package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type Company struct {
	ID        uuid.UUID
	Name      string
	StateCode string
	GSTIN     string
	CreatedAt time.Time
}

type APIClient struct {
	ID         uuid.UUID
	CompanyID  uuid.UUID
	ClientID   string
	Name       string
	SecretHash string
	Role       string
	Active     bool
	LastUsedAt pgtype.Timestamptz
	CreatedAt  time.Time
}

type Trip struct {
	ID                uuid.UUID
	CompanyID         uuid.UUID
	TripDate          time.Time
	CompanyRate       decimal.Decimal
	VendorRate        decimal.Decimal
	CompanyGuardPrice decimal.Decimal
	VendorGuardPrice  decimal.Decimal
	CompanyPenalty    decimal.Decimal
	VendorPenalty     decimal.Decimal
	AddOnRate         decimal.Decimal
	MCDCharge         decimal.Decimal
	TollCharge        decimal.Decimal
	ZoneID            pgtype.Text
	ZoneName          pgtype.Text
	ZoneTypeID        pgtype.Text
	ZoneTypeName      pgtype.Text
	VehicleTypeID     pgtype.Text
	VehicleTypeName   pgtype.Text
	CreatedAt         time.Time
	// InvoiceID is set when the trip is already linked to an invoice.
	InvoiceID pgtype.UUID
}

type InvoiceSettings struct {
	CompanyID         uuid.UUID
	TaxMode           string
	DiscountMode      string
	DiscountBasis     string
	RoundOff          bool
	AdditionalCharges bool
	NumberPrefix      string
	NextNumber        int64
	NumberPadding     int32
	UpdatedAt         time.Time
}

type Invoice struct {
	ID                uuid.UUID
	CompanyID         uuid.UUID
	InvoiceNumber     string
	Status            string
	Perspective       string
	GroupBy           string
	InvoiceDate       time.Time
	DueDate           pgtype.Date
	ServicePeriod     string
	BilledTo          []byte
	BilledBy          []byte
	BankDetails       []byte
	Notes             string
	Terms             string
	Settings          []byte
	SameState         bool
	GroupTax          decimal.Decimal
	GroupDiscount     decimal.Decimal
	Total             decimal.Decimal
	TotalTax          decimal.Decimal
	TotalDiscount     decimal.Decimal
	SubTotal          decimal.Decimal
	MCDCharges        decimal.Decimal
	TollCharges       decimal.Decimal
	AdditionalCharges decimal.Decimal
	Penalty           decimal.Decimal
	GrandTotal        decimal.Decimal
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type InvoiceLineItem struct {
	InvoiceID   uuid.UUID
	ID          uuid.UUID
	Position    int32
	Kind        string
	Name        string
	Description string
	Rate        decimal.Decimal
	Quantity    decimal.Decimal
	Tax         decimal.Decimal
	Discount    decimal.Decimal
	Amount      decimal.Decimal
	TripIDs     []string
}

type InvoiceDocument struct {
	InvoiceID   uuid.UUID
	Filename    string
	ContentType string
	Content     []byte
	RenderedAt  time.Time
}

type DomainEvent struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	Topic       string
	AggregateID uuid.UUID
	Payload     []byte
	OccurredAt  time.Time
}

type WebhookEndpoint struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	URL       string
	Secret    string
	Topics    []string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID           int64
	CompanyID    pgtype.UUID
	ActorKind    string
	ActorID      pgtype.Text
	Action       string
	ResourceType string
	ResourceID   pgtype.Text
	Method       string
	Path         string
	Route        pgtype.Text
	Status       int32
	IP           pgtype.Text
	UserAgent    pgtype.Text
	RequestID    pgtype.Text
	Metadata     []byte
	CreatedAt    time.Time
}
