package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kamaundungu/soko_events/models"
)

// Payd has shipped at least two callback shapes across API versions:
// the older one carries transaction_reference / result_code, the newer
// one correlator_id / status. All field-name guessing lives in this
// file; everything downstream sees one CallbackResult.

var (
	ErrNoReference = errors.New("callback payload has no detectable reference")
	ErrWrongKind   = errors.New("callback reference does not match this endpoint")
)

const (
	invoicePrefix    = "REF-"
	withdrawalPrefix = "WDR-"
)

type CallbackResult struct {
	Kind          string
	InvoiceRef    string
	ProviderRef   string
	Status        string
	Amount        float64
	Phone         string
	FailureReason string
}

type rawCallback struct {
	TransactionReference string          `json:"transaction_reference"`
	Reference            string          `json:"reference"`
	CorrelatorID         string          `json:"correlator_id"`
	PaymentReference     string          `json:"payment_reference"`
	MerchantReference    string          `json:"merchant_reference"`
	ResultCode           json.RawMessage `json:"result_code"`
	Status               string          `json:"status"`
	ResultDescription    string          `json:"result_description"`
	Message              string          `json:"message"`
	Amount               json.RawMessage `json:"amount"`
	PhoneNumber          string          `json:"phone_number"`
}

func ParsePaymentCallback(body []byte) (*CallbackResult, error) {
	res, err := parseCallback(body)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(res.InvoiceRef, withdrawalPrefix) {
		return nil, fmt.Errorf("%w: got withdrawal reference %s on payment endpoint", ErrWrongKind, res.InvoiceRef)
	}
	res.Kind = models.WebhookKindPayment
	return res, nil
}

func ParsePayoutCallback(body []byte) (*CallbackResult, error) {
	res, err := parseCallback(body)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(res.InvoiceRef, invoicePrefix) {
		return nil, fmt.Errorf("%w: got payment reference %s on payout endpoint", ErrWrongKind, res.InvoiceRef)
	}
	res.Kind = models.WebhookKindPayout
	return res, nil
}

func parseCallback(body []byte) (*CallbackResult, error) {
	var raw rawCallback
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("cannot parse callback payload: %v", err)
	}

	invoiceRef := firstNonEmpty(raw.PaymentReference, raw.MerchantReference, raw.CorrelatorID, raw.Reference)
	providerRef := raw.TransactionReference

	// Some payloads put our reference in transaction_reference and
	// carry no separate field; recognise it by prefix.
	if invoiceRef == "" && (strings.HasPrefix(providerRef, invoicePrefix) || strings.HasPrefix(providerRef, withdrawalPrefix)) {
		invoiceRef = providerRef
		providerRef = ""
	}
	if invoiceRef == "" {
		return nil, ErrNoReference
	}

	status, reason := resolveOutcome(raw)

	return &CallbackResult{
		InvoiceRef:    invoiceRef,
		ProviderRef:   providerRef,
		Status:        status,
		Amount:        parseAmount(raw.Amount),
		Phone:         raw.PhoneNumber,
		FailureReason: reason,
	}, nil
}

// resolveOutcome maps the payload's success signal to a terminal
// payment status. A numeric result code, when present, takes precedence
// over the status string: 0 and 200 mean success, 1032 is the payer
// cancelling the STK prompt, anything else is a failure. The status
// string is consulted only when no result code came through.
func resolveOutcome(raw rawCallback) (string, string) {
	reason := firstNonEmpty(raw.ResultDescription, raw.Message, raw.Status)

	if code, ok := parseResultCode(raw.ResultCode); ok {
		switch code {
		case 0, 200:
			return models.PaymentCompleted, ""
		case 1032:
			return models.PaymentCancelled, reason
		default:
			return models.PaymentFailed, reason
		}
	}

	switch strings.ToUpper(strings.TrimSpace(raw.Status)) {
	case "SUCCESS", "SETTLED", "COMPLETED", "PAID":
		return models.PaymentCompleted, ""
	case "CANCELLED", "CANCELED":
		return models.PaymentCancelled, reason
	default:
		return models.PaymentFailed, reason
	}
}

// parseResultCode tolerates both numeric and quoted result codes.
func parseResultCode(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, false
	}
	code, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return code, true
}

func parseAmount(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return amount
}

// ResultFromStatus converts a status-query response into the same
// canonical result a webhook would have produced, so the reconciliation
// sweep follows identical transition rules. ok is false while the
// provider still reports the transaction in flight.
func ResultFromStatus(resp *StatusResponse, kind, invoiceRef string) (*CallbackResult, bool) {
	s := strings.ToUpper(strings.TrimSpace(resp.Status))
	stillPending := s == "" || s == "PENDING" || s == "PROCESSING" || s == "QUEUED"
	if resp.ResultCode == nil && stillPending {
		return nil, false
	}

	raw := rawCallback{Status: resp.Status, Message: resp.Message}
	if resp.ResultCode != nil {
		raw.ResultCode = json.RawMessage(strconv.Itoa(*resp.ResultCode))
	}
	status, reason := resolveOutcome(raw)

	return &CallbackResult{
		Kind:          kind,
		InvoiceRef:    invoiceRef,
		ProviderRef:   resp.TransactionRef,
		Status:        status,
		Amount:        resp.Amount,
		FailureReason: reason,
	}, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
