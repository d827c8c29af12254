package handlers

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-core/internal/domain"
	"github.com/dvloznov/statement-core/internal/recurring"
)

// IngestRequest is the body of POST /api/statements/ingest.
// FileContent is base64 encoded.
type IngestRequest struct {
	FileContent string `json:"fileContent"`
	FileName    string `json:"fileName"`
	FileType    string `json:"fileType"`
}

// IngestResponse is the successful ingestion body.
type IngestResponse struct {
	Success      bool                  `json:"success"`
	AccountInfo  AccountInfoResponse   `json:"accountInfo"`
	Transactions []TransactionResponse `json:"transactions"`
	Summary      SummaryResponse       `json:"summary"`
	Persisted    *PersistedResponse    `json:"persisted,omitempty"`
}

type AccountInfoResponse struct {
	AccountNumber  string      `json:"accountNumber"`
	BankName       string      `json:"bankName"`
	AccountType    string      `json:"accountType"`
	AccountName    string      `json:"accountName"`
	CurrentBalance json.Number `json:"currentBalance"`
	Currency       string      `json:"currency"`
}

// TransactionResponse carries a non-negative amount; Type holds the direction.
type TransactionResponse struct {
	Date         string       `json:"date"`
	Description  string       `json:"description"`
	Amount       json.Number  `json:"amount"`
	Balance      *json.Number `json:"balance"`
	Reference    string       `json:"reference"`
	MerchantName string       `json:"merchantName"`
	Category     string       `json:"category,omitempty"`
	Type         string       `json:"type"`
}

type SummaryResponse struct {
	TotalTransactions int               `json:"totalTransactions"`
	DateRange         DateRangeResponse `json:"dateRange"`
}

type DateRangeResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// PersistedResponse reports duplicate suppression for persisted uploads.
type PersistedResponse struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// DetectRequest is the body of the recurring detection endpoints.
type DetectRequest struct {
	LookbackMonths int `json:"lookbackMonths,omitempty"`
}

type DetectResponse struct {
	Success bool                   `json:"success"`
	Added   int                    `json:"added"`
	Skipped int                    `json:"skipped"`
	Items   []DetectedItemResponse `json:"items"`
}

type DetectedItemResponse struct {
	Name   string      `json:"name"`
	Amount json.Number `json:"amount"`
	Type   string      `json:"type"`
}

type RecurringItemResponse struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Frequency     string      `json:"frequency"`
	Amount        json.Number `json:"amount"`
	SourcePattern string      `json:"sourcePattern"`
	AutoDetected  bool        `json:"autoDetected"`
}

// MatchRequest is the body of POST /api/merchants/match. Without
// candidates the user's stored merchant records are searched.
type MatchRequest struct {
	Target     string   `json:"target"`
	Candidates []string `json:"candidates,omitempty"`
	Threshold  float64  `json:"threshold,omitempty"`
}

type MatchResponse struct {
	Success     bool    `json:"success"`
	Matched     bool    `json:"matched"`
	Merchant    string  `json:"merchant,omitempty"`
	DisplayName string  `json:"displayName,omitempty"`
	Category    string  `json:"category,omitempty"`
	Score       float64 `json:"score"`
}

// MerchantRequest creates or updates a known merchant record. Pattern
// defaults to the merchant core of Name.
type MerchantRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	Category    string `json:"category,omitempty"`
}

type MerchantResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	Category    string `json:"category,omitempty"`
}

func newMerchantResponse(m *domain.MerchantRecord) MerchantResponse {
	return MerchantResponse{
		ID:          m.ID,
		Name:        m.Name,
		DisplayName: m.DisplayName,
		Pattern:     m.Pattern,
		Category:    m.Category,
	}
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// NewIngestResponse renders an extracted statement as the ingestion response.
func NewIngestResponse(st *domain.Statement) IngestResponse {
	resp := IngestResponse{
		Success: true,
		AccountInfo: AccountInfoResponse{
			AccountNumber:  st.Account.AccountNumber,
			BankName:       st.Account.Bank.DisplayName(),
			AccountType:    string(st.Account.AccountType),
			AccountName:    st.Account.AccountName,
			CurrentBalance: money(st.Account.CurrentBalance),
			Currency:       domain.Currency,
		},
		Transactions: make([]TransactionResponse, 0, len(st.Transactions)),
	}

	for _, tx := range st.Transactions {
		t := TransactionResponse{
			Date:         tx.Date,
			Description:  tx.Description,
			Amount:       money(tx.Amount.Abs()),
			Reference:    tx.Reference,
			MerchantName: tx.MerchantName,
			Category:     tx.Category,
			Type:         string(tx.Type),
		}
		if t.Type == "" {
			t.Type = string(domain.DirectionOf(tx.Amount))
		}
		if tx.Balance != nil {
			b := money(*tx.Balance)
			t.Balance = &b
		}
		resp.Transactions = append(resp.Transactions, t)
	}

	from, to := st.DateRange()
	resp.Summary = SummaryResponse{
		TotalTransactions: len(st.Transactions),
		DateRange:         DateRangeResponse{From: from, To: to},
	}
	return resp
}

// NewDetectResponse renders a detector run.
func NewDetectResponse(res *recurring.Result) DetectResponse {
	resp := DetectResponse{
		Success: true,
		Added:   res.Added,
		Skipped: res.Skipped,
		Items:   make([]DetectedItemResponse, 0, len(res.Items)),
	}
	for _, d := range res.Items {
		resp.Items = append(resp.Items, DetectedItemResponse{
			Name:   d.Item.Name,
			Amount: money(d.Item.Amount),
			Type:   string(d.DetectionType),
		})
	}
	return resp
}

func newRecurringItemResponse(item *domain.RecurringItem) RecurringItemResponse {
	return RecurringItemResponse{
		ID:            item.ID,
		Name:          item.Name,
		Frequency:     string(item.Frequency),
		Amount:        money(item.Amount),
		SourcePattern: item.SourcePattern,
		AutoDetected:  item.AutoDetected,
	}
}
