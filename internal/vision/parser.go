package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-core/internal/domain"
	"github.com/dvloznov/statement-core/internal/logger"
	"github.com/dvloznov/statement-core/internal/merchant"
	"github.com/dvloznov/statement-core/internal/statement"
)

// Parser reads statement images through a vision model.
type Parser struct {
	gen        Generator
	categories *CategoryValidator
}

// NewParser creates a parser over the given generator.
func NewParser(gen Generator) *Parser {
	return &Parser{gen: gen, categories: NewCategoryValidator(Categories)}
}

// ParseImage sends a statement image to the model and validates the reply.
// Any reply that breaks the response contract yields a ModelResponseError.
func (p *Parser) ParseImage(ctx context.Context, mimeType string, image []byte) (*domain.Statement, error) {
	raw, err := p.gen.Generate(ctx, Prompt(), mimeType, image)
	if err != nil {
		return nil, fmt.Errorf("ParseImage: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, &statement.ModelResponseError{Reason: "empty response from model"}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(cleanModelJSON(raw))))
	dec.UseNumber()
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, &statement.ModelResponseError{Reason: "reply is not a JSON object", Err: err}
	}

	return p.transform(ctx, obj)
}

func (p *Parser) transform(ctx context.Context, obj map[string]interface{}) (*domain.Statement, error) {
	invalid := func(err error) error {
		return &statement.ModelResponseError{Reason: "reply does not match the statement shape", Err: err}
	}

	if msg, err := getOptionalStringField(obj, "error"); err != nil {
		return nil, invalid(err)
	} else if msg != nil {
		return nil, &statement.ModelResponseError{Reason: "model reported: " + *msg}
	}

	bankName, err := getOptionalStringField(obj, "bankName")
	if err != nil {
		return nil, invalid(err)
	}
	holder, err := getOptionalStringField(obj, "accountHolder")
	if err != nil {
		return nil, invalid(err)
	}

	txAny, ok := obj["transactions"]
	if !ok {
		return nil, invalid(fmt.Errorf("missing 'transactions' key"))
	}
	txSlice, ok := txAny.([]interface{})
	if !ok {
		return nil, invalid(fmt.Errorf("'transactions' is %T, want array", txAny))
	}

	st := &domain.Statement{Account: domain.AccountInfo{Bank: domain.UnknownBank}}
	if bankName != nil {
		st.Account.Bank = domain.ParseBank(*bankName)
	}
	if holder != nil {
		st.Account.AccountName = *holder
	}

	log := logger.FromContext(ctx)
	for i, item := range txSlice {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, invalid(fmt.Errorf("transaction %d is %T, want object", i, item))
		}
		tx, err := p.transformTransaction(m)
		if err != nil {
			return nil, invalid(fmt.Errorf("transaction %d: %w", i, err))
		}
		if !p.categories.Valid(tx.Category) {
			log.Warn().Str("category", tx.Category).Int("index", i).Msg("Model returned unknown category, using fallback")
			tx.Category = FallbackCategory
		}
		tx.Category = p.categories.Canonical(tx.Category)
		if tx.Balance != nil {
			st.Account.CurrentBalance = *tx.Balance
		}
		st.Transactions = append(st.Transactions, tx)
	}
	return st, nil
}

func (p *Parser) transformTransaction(m map[string]interface{}) (*domain.Transaction, error) {
	dateStr, err := getStringField(m, "date", true)
	if err != nil {
		return nil, err
	}
	if _, err := time.Parse(domain.DateLayout, dateStr); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", dateStr, err)
	}
	desc, err := getStringField(m, "description", true)
	if err != nil {
		return nil, err
	}
	amount, err := getDecimalField(m, "amount")
	if err != nil {
		return nil, err
	}
	category, err := getStringField(m, "category", false)
	if err != nil {
		return nil, err
	}
	balance, err := getOptionalDecimalField(m, "balance_after")
	if err != nil {
		return nil, err
	}

	desc = strings.Join(strings.Fields(desc), " ")
	return &domain.Transaction{
		Date:         dateStr,
		Description:  desc,
		Amount:       amount,
		Balance:      balance,
		Category:     category,
		Type:         domain.DirectionOf(amount),
		MerchantCore: merchant.ExtractCore(desc),
		Reference:    merchant.ExtractReference(desc),
	}, nil
}

// cleanModelJSON strips Markdown fences and any text around the JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = strings.TrimSpace(s[idx+1:])
		} else {
			return s
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	val, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
	if required && strings.TrimSpace(val) == "" {
		return "", fmt.Errorf("required field %q is empty", key)
	}
	return strings.TrimSpace(val), nil
}

func getOptionalStringField(m map[string]interface{}, key string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	val, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("field %q has type %T, want string or null", key, v)
	}
	s := strings.TrimSpace(val)
	if s == "" {
		return nil, nil
	}
	return &s, nil
}

func getDecimalField(m map[string]interface{}, key string) (decimal.Decimal, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return decimal.Zero, fmt.Errorf("missing required field %q", key)
	}
	n, ok := v.(json.Number)
	if !ok {
		return decimal.Zero, fmt.Errorf("field %q has type %T, want number", key, v)
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("field %q: %w", key, err)
	}
	return d, nil
}

func getOptionalDecimalField(m map[string]interface{}, key string) (*decimal.Decimal, error) {
	if v, ok := m[key]; !ok || v == nil {
		return nil, nil
	}
	d, err := getDecimalField(m, key)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
