package models

import (
	"strings"
	"time"
)

// Currency is the ISO-ish code a payment was made in
type Currency string

// Supported currencies
const (
	CurrencyGHS  Currency = "GHS"
	CurrencyBTC  Currency = "BTC"
	CurrencyETH  Currency = "ETH"
	CurrencySOL  Currency = "SOL"
	CurrencyUSDT Currency = "USDT"
	CurrencyUSD  Currency = "USD"
)

// Currencies lists the accepted currencies in display order
var Currencies = []Currency{CurrencyGHS, CurrencyBTC, CurrencyETH, CurrencySOL, CurrencyUSDT, CurrencyUSD}

// Valid reports whether c is an accepted currency
func (c Currency) Valid() bool {
	for _, v := range Currencies {
		if c == v {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of a payment record. Any status may be
// written over any other.
type Status string

// Payment statuses
const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists the accepted statuses
var Statuses = []Status{StatusPending, StatusCompleted, StatusFailed, StatusCancelled}

// Valid reports whether s is an accepted status
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Exchange is the crypto exchange a crypto payment went through
type Exchange string

// Supported exchanges
const (
	ExchangeBinance Exchange = "Binance"
	ExchangeOKX     Exchange = "OKX"
)

// Exchanges lists the accepted exchanges
var Exchanges = []Exchange{ExchangeBinance, ExchangeOKX}

// Valid reports whether e is an accepted exchange
func (e Exchange) Valid() bool {
	for _, v := range Exchanges {
		if e == v {
			return true
		}
	}
	return false
}

// Method is how the donor paid
type Method string

// Payment methods
const (
	MethodMobileMoney   Method = "Mobile Money"
	MethodBankTransfer  Method = "Bank Transfer"
	MethodCryptoBinance Method = "Crypto (Binance)"
	MethodCryptoOKX     Method = "Crypto (OKX)"
)

// Methods lists the accepted payment methods
var Methods = []Method{MethodMobileMoney, MethodBankTransfer, MethodCryptoBinance, MethodCryptoOKX}

// Field names a payment attribute by its JSON key
type Field string

// Fields that a method variant can make mandatory
const (
	FieldExchange      Field = "exchange"
	FieldCryptoSymbol  Field = "cryptoSymbol"
	FieldWalletAddress Field = "walletAddress"
)

// MethodVariant is the set of extra fields a payment method demands
type MethodVariant struct {
	Method   Method
	Crypto   bool
	Required []Field
}

var cryptoFields = []Field{FieldExchange, FieldCryptoSymbol, FieldWalletAddress}

var methodVariants = map[Method]MethodVariant{
	MethodMobileMoney:   {Method: MethodMobileMoney},
	MethodBankTransfer:  {Method: MethodBankTransfer},
	MethodCryptoBinance: {Method: MethodCryptoBinance, Crypto: true, Required: cryptoFields},
	MethodCryptoOKX:     {Method: MethodCryptoOKX, Crypto: true, Required: cryptoFields},
}

// Variant resolves the method to its variant
func (m Method) Variant() (MethodVariant, bool) {
	v, ok := methodVariants[m]
	return v, ok
}

// Valid reports whether m is an accepted payment method
func (m Method) Valid() bool {
	_, ok := methodVariants[m]
	return ok
}

// IsCrypto reports whether m is one of the crypto variants
func (m Method) IsCrypto() bool {
	v, ok := methodVariants[m]
	return ok && v.Crypto
}

// Payment is a single donation record
type Payment struct {
	ID            string    `gorm:"primaryKey;type:char(24);column:id" json:"_id"`
	Name          string    `gorm:"type:varchar(100);not null;column:name" json:"name"`
	Email         string    `gorm:"type:varchar(320);not null;index:idx_payments_email;column:email" json:"email"`
	Amount        float64   `gorm:"type:double precision;not null;column:amount" json:"amount"`
	Currency      Currency  `gorm:"type:varchar(8);not null;column:currency" json:"currency"`
	Method        Method    `gorm:"type:varchar(32);not null;column:method" json:"method"`
	Message       string    `gorm:"type:varchar(500);column:message" json:"message,omitempty"`
	Reference     *string   `gorm:"type:varchar(255);uniqueIndex:idx_payments_reference;column:reference" json:"reference,omitempty"`
	Status        Status    `gorm:"type:varchar(16);not null;index:idx_payments_status;column:status" json:"status"`
	Exchange      Exchange  `gorm:"type:varchar(16);column:exchange" json:"exchange,omitempty"`
	CryptoSymbol  string    `gorm:"type:varchar(32);column:crypto_symbol" json:"cryptoSymbol,omitempty"`
	WalletAddress string    `gorm:"type:varchar(255);column:wallet_address" json:"walletAddress,omitempty"`
	TxHash        string    `gorm:"type:varchar(255);column:tx_hash" json:"txHash,omitempty"`
	CreatedAt     time.Time `gorm:"not null;index:idx_payments_created_at,sort:desc;autoCreateTime:false;column:created_at" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"not null;autoUpdateTime:false;column:updated_at" json:"updatedAt"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// FieldValue returns the string value of a variant-controlled field
func (p *Payment) FieldValue(f Field) string {
	switch f {
	case FieldExchange:
		return string(p.Exchange)
	case FieldCryptoSymbol:
		return p.CryptoSymbol
	case FieldWalletAddress:
		return p.WalletAddress
	}
	return ""
}

// ReferenceValue returns the reference or "" when absent
func (p *Payment) ReferenceValue() string {
	if p.Reference == nil {
		return ""
	}
	return *p.Reference
}

// Normalize trims and lowercases text fields and applies defaults.
// An empty reference is treated as absent so it never takes part in
// uniqueness checks.
func (p *Payment) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Message = strings.TrimSpace(p.Message)
	p.TxHash = strings.TrimSpace(p.TxHash)

	if p.Reference != nil {
		ref := strings.TrimSpace(*p.Reference)
		if ref == "" {
			p.Reference = nil
		} else {
			p.Reference = &ref
		}
	}
	if p.Currency == "" {
		p.Currency = CurrencyGHS
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
}

// Stamp assigns identity and creation time to a new record
func (p *Payment) Stamp(id string, now time.Time) {
	now = storeTime(now)
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
}

// Touch records a mutation. UpdatedAt always moves forward, even when the
// clock has not advanced past the previous stamp at store precision.
func (p *Payment) Touch(now time.Time) {
	now = storeTime(now)
	if !now.After(p.UpdatedAt) {
		now = p.UpdatedAt.Add(time.Millisecond)
	}
	p.UpdatedAt = now
}

// storeTime reduces t to the millisecond UTC precision every store keeps
func storeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
