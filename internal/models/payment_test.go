package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMethodVariant(t *testing.T) {
	tests := []struct {
		method   Method
		valid    bool
		crypto   bool
		required []Field
	}{
		{MethodMobileMoney, true, false, nil},
		{MethodBankTransfer, true, false, nil},
		{MethodCryptoBinance, true, true, []Field{FieldExchange, FieldCryptoSymbol, FieldWalletAddress}},
		{MethodCryptoOKX, true, true, []Field{FieldExchange, FieldCryptoSymbol, FieldWalletAddress}},
		{"Crypto (Kraken)", false, false, nil},
		{"", false, false, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.method.Valid())
			assert.Equal(t, tt.crypto, tt.method.IsCrypto())

			variant, ok := tt.method.Variant()
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.required, variant.Required)
		})
	}
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, CurrencyUSDT.Valid())
	assert.False(t, Currency("EUR").Valid())
	assert.True(t, StatusCancelled.Valid())
	assert.False(t, Status("refunded").Valid())
	assert.True(t, ExchangeOKX.Valid())
	assert.False(t, Exchange("Coinbase").Valid())
}

func TestNormalize(t *testing.T) {
	blank := "   "
	ref := "  REF-1 "
	p := &Payment{
		Name:      "  Ama Mensah ",
		Email:     "  Ama@Example.COM ",
		Message:   " Happy birthday! ",
		TxHash:    " 0xabc ",
		Reference: &ref,
	}
	p.Normalize()

	assert.Equal(t, "Ama Mensah", p.Name)
	assert.Equal(t, "ama@example.com", p.Email)
	assert.Equal(t, "Happy birthday!", p.Message)
	assert.Equal(t, "0xabc", p.TxHash)
	assert.Equal(t, "REF-1", p.ReferenceValue())
	assert.Equal(t, CurrencyGHS, p.Currency)
	assert.Equal(t, StatusPending, p.Status)

	p.Reference = &blank
	p.Normalize()
	assert.Nil(t, p.Reference)
	assert.Equal(t, "", p.ReferenceValue())
}

func TestStampAndTouch(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 123456789, time.FixedZone("GMT+1", 3600))

	p := &Payment{}
	p.Stamp("64b7f0c2a1b2c3d4e5f60718", now)

	assert.Equal(t, "64b7f0c2a1b2c3d4e5f60718", p.ID)
	assert.Equal(t, time.UTC, p.CreatedAt.Location())
	assert.Equal(t, 123000000, p.CreatedAt.Nanosecond())
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)

	// clock did not move
	p.Touch(now)
	assert.True(t, p.UpdatedAt.After(p.CreatedAt))

	later := now.Add(time.Minute)
	p.Touch(later)
	assert.Equal(t, later.UTC().Truncate(time.Millisecond), p.UpdatedAt)
	assert.Equal(t, now.UTC().Truncate(time.Millisecond), p.CreatedAt)
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name               string
		page, limit        int
		total              int64
		wantPages          int
		wantNext, wantPrev bool
	}{
		{"empty", 1, 20, 0, 0, false, false},
		{"single partial page", 1, 20, 5, 1, false, false},
		{"exact pages", 1, 10, 20, 2, true, false},
		{"middle page", 2, 10, 25, 3, true, true},
		{"last page", 3, 10, 25, 3, false, true},
		{"beyond last page", 5, 10, 25, 3, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.limit, tt.total)
			assert.Equal(t, tt.page, p.CurrentPage)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.total, p.TotalPayments)
			assert.Equal(t, tt.wantNext, p.HasNext)
			assert.Equal(t, tt.wantPrev, p.HasPrev)
		})
	}
}
