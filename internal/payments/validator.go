package payments

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/steemit/birthday-payments/internal/models"
)

const (
	fieldName          = "name"
	fieldEmail         = "email"
	fieldAmount        = "amount"
	fieldCurrency      = "currency"
	fieldMethod        = "method"
	fieldMessage       = "message"
	fieldStatus        = "status"
	fieldExchange      = string(models.FieldExchange)
	fieldCryptoSymbol  = string(models.FieldCryptoSymbol)
	fieldWalletAddress = string(models.FieldWalletAddress)
)

// fieldOrder fixes the order messages are reported in
var fieldOrder = []string{
	fieldName, fieldEmail, fieldAmount, fieldCurrency, fieldMethod,
	fieldMessage, fieldStatus, fieldExchange, fieldCryptoSymbol, fieldWalletAddress,
}

const (
	msgNameRequired    = "Name is required"
	msgNameTooLong     = "Name cannot exceed 100 characters"
	msgEmailRequired   = "Email is required"
	msgEmailInvalid    = "Please provide a valid email"
	msgAmountRequired  = "Amount is required"
	msgAmountNumber    = "Amount must be a number"
	msgAmountNegative  = "Amount must be positive"
	msgMethodRequired  = "Payment method is required"
	msgMessageTooLong  = "Message cannot exceed 500 characters"
	msgReferenceExists = "Reference already exists"
)

var (
	msgCurrencyInvalid = "Currency must be one of: " + joinValues(models.Currencies)
	msgMethodInvalid   = "Payment method must be one of: " + joinValues(models.Methods)
	msgStatusInvalid   = "Status must be one of: " + joinValues(models.Statuses)
	msgExchangeInvalid = "Exchange must be one of: " + joinValues(models.Exchanges)
)

// variantRequiredMessages is reported when a method variant's field is missing
var variantRequiredMessages = map[models.Field]string{
	models.FieldExchange:      "Exchange is required for crypto payments",
	models.FieldCryptoSymbol:  "Crypto symbol is required for crypto payments",
	models.FieldWalletAddress: "Wallet address is required for crypto payments",
}

// ruleMessages maps field and failed tag to the reported message
var ruleMessages = map[string]string{
	fieldName + ".required":          msgNameRequired,
	fieldName + ".max":               msgNameTooLong,
	fieldEmail + ".required":         msgEmailRequired,
	fieldEmail + ".payment_email":    msgEmailInvalid,
	fieldAmount + ".gte":             msgAmountNegative,
	fieldCurrency + ".currency":      msgCurrencyInvalid,
	fieldMethod + ".required":        msgMethodRequired,
	fieldMethod + ".payment_method":  msgMethodInvalid,
	fieldMessage + ".max":            msgMessageTooLong,
	fieldStatus + ".payment_status":  msgStatusInvalid,
	fieldExchange + ".exchange":      msgExchangeInvalid,
}

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// paymentRules is the rule view of a normalized payment
type paymentRules struct {
	Name     string  `json:"name" validate:"required,max=100"`
	Email    string  `json:"email" validate:"required,payment_email"`
	Amount   float64 `json:"amount" validate:"gte=0"`
	Currency string  `json:"currency" validate:"currency"`
	Method   string  `json:"method" validate:"required,payment_method"`
	Message  string  `json:"message" validate:"max=500"`
	Status   string  `json:"status" validate:"payment_status"`
	Exchange string  `json:"exchange" validate:"omitempty,exchange"`
}

// Validator checks payment records against the field rules
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the payment rules
func NewValidator() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "payment_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "currency", func(fl validator.FieldLevel) bool {
		return models.Currency(fl.Field().String()).Valid()
	})
	mustRegister(v, "payment_method", func(fl validator.FieldLevel) bool {
		return models.Method(fl.Field().String()).Valid()
	})
	mustRegister(v, "payment_status", func(fl validator.FieldLevel) bool {
		return models.Status(fl.Field().String()).Valid()
	})
	mustRegister(v, "exchange", func(fl validator.FieldLevel) bool {
		return models.Exchange(fl.Field().String()).Valid()
	})

	return &Validator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Validate returns nil when p satisfies every rule, or a ValidationError
// listing each violation. issues are problems found while decoding the
// payload and take precedence over rule results for their field.
func (v *Validator) Validate(p *models.Payment, issues fieldIssues) error {
	byField := make(map[string][]string)

	rules := paymentRules{
		Name:     p.Name,
		Email:    p.Email,
		Amount:   p.Amount,
		Currency: string(p.Currency),
		Method:   string(p.Method),
		Message:  p.Message,
		Status:   string(p.Status),
		Exchange: string(p.Exchange),
	}

	if err := v.validate.Struct(rules); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			msg, ok := ruleMessages[fe.Field()+"."+fe.Tag()]
			if !ok {
				msg = fmt.Sprintf("%s is invalid", fe.Field())
			}
			byField[fe.Field()] = append(byField[fe.Field()], msg)
		}
	}

	if variant, ok := p.Method.Variant(); ok {
		for _, f := range variant.Required {
			if strings.TrimSpace(p.FieldValue(f)) == "" {
				// a missing field replaces any format complaint about it
				byField[string(f)] = []string{variantRequiredMessages[f]}
			}
		}
	}

	for field, issue := range issues {
		byField[field] = []string{issue}
	}

	var messages []string
	for _, field := range fieldOrder {
		messages = append(messages, byField[field]...)
	}
	if len(messages) == 0 {
		return nil
	}
	return &ValidationError{Errors: messages}
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
