package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// Role values for User.Role
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a storefront customer account.
// ProviderSubject links the account to the external auth provider's identity.
type User struct {
	BaseModel
	Email           string    `json:"email" gorm:"unique;not null"`
	PasswordHash    string    `json:"-" gorm:"not null"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Role            string    `json:"role" gorm:"not null;default:user"`
	EmailConfirmed  bool      `json:"email_confirmed" gorm:"not null;default:false"`
	ProviderSubject string    `json:"-" gorm:"index"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Category groups products and courses
type Category struct {
	BaseModel
	Name        string `json:"name" gorm:"not null;unique"`
	Slug        string `json:"slug" gorm:"unique"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active" gorm:"not null;default:true"`
}

// Product represents a purchasable trading strategy
type Product struct {
	BaseModel
	Title       string  `json:"title" gorm:"not null"`
	Description string  `json:"description" gorm:"type:text"`
	Price       int64   `json:"price" gorm:"not null"` // smallest currency unit
	Winrate     float64 `json:"winrate"`
	IsActive    bool    `json:"is_active" gorm:"not null;default:true"`
	SortOrder   int     `json:"sort_order" gorm:"not null;default:0"`
	CategoryID  string  `json:"category_id" gorm:"type:varchar(26);index"`

	// Relationships
	Category *Category     `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Courses  []Course      `json:"courses,omitempty" gorm:"foreignKey:ProductID"`
	Files    []ProductFile `json:"files,omitempty" gorm:"foreignKey:ProductID"`
}

// Course is learning material delivered with a product
type Course struct {
	BaseModel
	ProductID       string `json:"product_id" gorm:"type:varchar(26);index;not null"`
	Title           string `json:"title" gorm:"not null"`
	Description     string `json:"description" gorm:"type:text"`
	DurationMinutes int    `json:"duration_minutes"`
	SortOrder       int    `json:"sort_order" gorm:"not null;default:0"`
	IsActive        bool   `json:"is_active" gorm:"not null;default:true"`
}

// ProductFile is a downloadable artifact of a product (indicator, EA, PDF, video)
type ProductFile struct {
	BaseModel
	ProductID string `json:"product_id" gorm:"type:varchar(26);index;not null"`
	Name      string `json:"name" gorm:"not null"`
	MimeType  string `json:"mime_type"`
	Size      int64  `json:"size"`
	Path      string `json:"-" gorm:"not null"` // location on disk, never exposed
	IsFree    bool   `json:"is_free" gorm:"not null;default:false"`
}

// BankAccount is a destination for manual bank-transfer payments
type BankAccount struct {
	BaseModel
	BankName   string `json:"bank_name" gorm:"not null"`
	CardNumber string `json:"card_number"`
	IBAN       string `json:"iban"`
	HolderName string `json:"holder_name"`
	IsActive   bool   `json:"is_active" gorm:"not null;default:true"`
}

// Discount code types
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// DiscountCode represents a redeemable discount
type DiscountCode struct {
	BaseModel
	Code          string     `json:"code" gorm:"unique;not null"`
	Type          string     `json:"type" gorm:"not null;default:percentage"`
	Amount        int64      `json:"amount" gorm:"not null"` // percent (0-100) or fixed amount
	IsActive      bool       `json:"is_active" gorm:"not null;default:true"`
	MaxUses       int        `json:"max_uses" gorm:"not null;default:0"` // 0 = unlimited
	CurrentUses   int        `json:"current_uses" gorm:"not null;default:0"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
	MinimumAmount int64      `json:"minimum_amount" gorm:"not null;default:0"`
}

// Transaction statuses
const (
	TxPending   = "pending"
	TxCompleted = "completed"
	TxFailed    = "failed"
	TxCancelled = "cancelled"
)

// Payment gateways
const (
	GatewayManual = "manual"
	GatewayCrypto = "crypto"
)

// Transaction records a purchase attempt and its outcome.
// A completed transaction is what grants file/course entitlements.
type Transaction struct {
	BaseModel
	UserID         string     `json:"user_id" gorm:"type:varchar(26);index;not null"`
	ProductID      string     `json:"product_id" gorm:"type:varchar(26);index;not null"`
	Amount         int64      `json:"amount" gorm:"not null"`
	DiscountAmount int64      `json:"discount_amount" gorm:"not null;default:0"`
	DiscountCodeID *string    `json:"discount_code_id" gorm:"type:varchar(26)"`
	RefID          string     `json:"ref_id" gorm:"unique;not null"`
	Status         string     `json:"status" gorm:"not null;default:pending;index"`
	Gateway        string     `json:"gateway" gorm:"not null;default:manual"`
	BankAccountID  *string    `json:"bank_account_id" gorm:"type:varchar(26)"`
	CryptoAddress  string     `json:"crypto_address,omitempty"`
	CryptoAmount   float64    `json:"crypto_amount,omitempty"`
	CryptoCurrency string     `json:"crypto_currency,omitempty"`
	TxHash         string     `json:"tx_hash,omitempty"`
	PaidAt         *time.Time `json:"paid_at"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Product      *Product      `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	BankAccount  *BankAccount  `json:"bank_account,omitempty" gorm:"foreignKey:BankAccountID"`
	DiscountCode *DiscountCode `json:"discount_code,omitempty" gorm:"foreignKey:DiscountCodeID"`
}

// Ticket statuses
const (
	TicketOpen           = "open"
	TicketInProgress     = "in_progress"
	TicketWaitingForUser = "waiting_for_user"
	TicketResolved       = "resolved"
	TicketClosed         = "closed"
)

// Ticket priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Ticket types
const (
	TypeTechnical      = "technical"
	TypeBilling        = "billing"
	TypeGeneral        = "general"
	TypeFeatureRequest = "feature_request"
	TypeBugReport      = "bug_report"
)

// Ticket is a customer support request
type Ticket struct {
	BaseModel
	UserID          string     `json:"user_id" gorm:"type:varchar(26);index;not null"`
	Subject         string     `json:"subject" gorm:"not null"`
	Description     string     `json:"description" gorm:"type:text;not null"`
	Status          string     `json:"status" gorm:"not null;default:open;index"`
	Priority        string     `json:"priority" gorm:"not null;default:medium"`
	Type            string     `json:"type" gorm:"not null;default:general"`
	ReferenceNumber string     `json:"reference_number" gorm:"unique;not null"`
	AssignedToID    *string    `json:"assigned_to_id" gorm:"type:varchar(26)"`
	ResolvedAt      *time.Time `json:"resolved_at"`
	ClosedAt        *time.Time `json:"closed_at"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	User       *User           `json:"user,omitempty" gorm:"foreignKey:UserID"`
	AssignedTo *User           `json:"assigned_to,omitempty" gorm:"foreignKey:AssignedToID"`
	Messages   []TicketMessage `json:"messages,omitempty" gorm:"foreignKey:TicketID"`
}

// Message types
const (
	MessageUser    = "user"
	MessageSupport = "support"
	MessageSystem  = "system"
)

// TicketMessage is one entry in a ticket conversation
type TicketMessage struct {
	BaseModel
	TicketID    string    `json:"ticket_id" gorm:"type:varchar(26);index;not null"`
	UserID      *string   `json:"user_id" gorm:"type:varchar(26)"`
	Content     string    `json:"content" gorm:"type:text;not null"`
	Type        string    `json:"type" gorm:"not null;default:user"`
	IsInternal  bool      `json:"is_internal" gorm:"not null;default:false"`
	Attachments string    `json:"attachments" gorm:"type:text"` // JSON array of uploaded image URLs
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{}, &Category{}, &Product{}, &Course{}, &ProductFile{},
		&BankAccount{}, &DiscountCode{}, &Transaction{},
		&Ticket{}, &TicketMessage{},
	)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}

// FindByIDWithPreload finds a record by ID with preloading
func FindByIDWithPreload[T any](db *gorm.DB, id string, model *T, preloads ...string) error {
	query := db
	for _, preload := range preloads {
		query = query.Preload(preload)
	}
	return query.Where("id = ?", id).First(model).Error
}
