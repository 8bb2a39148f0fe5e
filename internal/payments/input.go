package payments

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/steemit/birthday-payments/internal/models"
)

// CreateInput is the payload accepted when recording a payment
type CreateInput struct {
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Amount        json.RawMessage `json:"amount"`
	Currency      string          `json:"currency"`
	Method        string          `json:"method"`
	Message       string          `json:"message"`
	Reference     string          `json:"reference"`
	Status        string          `json:"status"`
	Exchange      string          `json:"exchange"`
	CryptoSymbol  string          `json:"cryptoSymbol"`
	WalletAddress string          `json:"walletAddress"`
	TxHash        string          `json:"txHash"`
}

// UpdateInput is a partial payload; nil fields are left untouched.
// Reference and the crypto fields cannot be changed after creation.
type UpdateInput struct {
	Name     *string         `json:"name"`
	Email    *string         `json:"email"`
	Amount   json.RawMessage `json:"amount"`
	Currency *string         `json:"currency"`
	Method   *string         `json:"method"`
	Message  *string         `json:"message"`
	Status   *string         `json:"status"`
	TxHash   *string         `json:"txHash"`
}

// fieldIssues holds problems found before rule validation, keyed by field
type fieldIssues map[string]string

// toPayment builds an unsaved record from the payload
func (in CreateInput) toPayment() (*models.Payment, fieldIssues) {
	issues := fieldIssues{}

	amount, issue := parseAmount(in.Amount)
	if issue != "" {
		issues[fieldAmount] = issue
	}

	p := &models.Payment{
		Name:          in.Name,
		Email:         in.Email,
		Amount:        amount,
		Currency:      models.Currency(strings.TrimSpace(in.Currency)),
		Method:        models.Method(strings.TrimSpace(in.Method)),
		Message:       in.Message,
		Status:        models.Status(strings.TrimSpace(in.Status)),
		Exchange:      models.Exchange(strings.TrimSpace(in.Exchange)),
		CryptoSymbol:  in.CryptoSymbol,
		WalletAddress: in.WalletAddress,
		TxHash:        in.TxHash,
	}
	if in.Reference != "" {
		ref := in.Reference
		p.Reference = &ref
	}

	return p, issues
}

// apply merges the present fields into p
func (in UpdateInput) apply(p *models.Payment) fieldIssues {
	issues := fieldIssues{}

	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Email != nil {
		p.Email = *in.Email
	}
	if len(in.Amount) > 0 {
		amount, issue := parseAmount(in.Amount)
		if issue != "" {
			issues[fieldAmount] = issue
		} else {
			p.Amount = amount
		}
	}
	if in.Currency != nil {
		p.Currency = models.Currency(strings.TrimSpace(*in.Currency))
		if p.Currency == "" {
			issues[fieldCurrency] = msgCurrencyInvalid
		}
	}
	if in.Method != nil {
		p.Method = models.Method(strings.TrimSpace(*in.Method))
	}
	if in.Message != nil {
		p.Message = *in.Message
	}
	if in.Status != nil {
		p.Status = models.Status(strings.TrimSpace(*in.Status))
		if p.Status == "" {
			issues[fieldStatus] = msgStatusInvalid
		}
	}
	if in.TxHash != nil {
		p.TxHash = *in.TxHash
	}

	return issues
}

// parseAmount coerces a JSON number or numeric string to a float
func parseAmount(raw json.RawMessage) (float64, string) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, msgAmountRequired
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return 0, msgAmountNumber
	}

	var text string
	switch v := value.(type) {
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
		if text == "" {
			return 0, msgAmountRequired
		}
	default:
		return 0, msgAmountNumber
	}

	amount, err := cast.ToFloat64E(text)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, msgAmountNumber
	}
	return amount, ""
}
