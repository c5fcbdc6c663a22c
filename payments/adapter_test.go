package payments

import (
	"errors"
	"testing"

	"github.com/kamaundungu/soko_events/models"
)

func TestParsePaymentCallback(t *testing.T) {
	t.Run("v1 shape with numeric result code", func(t *testing.T) {
		body := []byte(`{
			"transaction_reference": "SFC123XYZ",
			"merchant_reference": "REF-1717243000-A1B2C3",
			"result_code": 0,
			"result_description": "The service request is processed successfully.",
			"amount": 1500,
			"phone_number": "254712345678"
		}`)

		res, err := ParsePaymentCallback(body)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.InvoiceRef != "REF-1717243000-A1B2C3" {
			t.Errorf("wrong invoice ref: %s", res.InvoiceRef)
		}
		if res.ProviderRef != "SFC123XYZ" {
			t.Errorf("wrong provider ref: %s", res.ProviderRef)
		}
		if res.Status != models.PaymentCompleted {
			t.Errorf("expected completed, got %s", res.Status)
		}
		if res.Amount != 1500 {
			t.Errorf("expected amount 1500, got %v", res.Amount)
		}
		if res.Kind != models.WebhookKindPayment {
			t.Errorf("expected payment kind, got %s", res.Kind)
		}
	})

	t.Run("v2 shape with correlator_id and status string", func(t *testing.T) {
		body := []byte(`{
			"correlator_id": "REF-1717243000-A1B2C3",
			"transaction_reference": "SFC123XYZ",
			"status": "SUCCESS",
			"amount": "1500.00"
		}`)

		res, err := ParsePaymentCallback(body)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.InvoiceRef != "REF-1717243000-A1B2C3" {
			t.Errorf("wrong invoice ref: %s", res.InvoiceRef)
		}
		if res.Status != models.PaymentCompleted {
			t.Errorf("expected completed, got %s", res.Status)
		}
		if res.Amount != 1500 {
			t.Errorf("expected string amount parsed to 1500, got %v", res.Amount)
		}
	})

	t.Run("result code wins over contradicting status string", func(t *testing.T) {
		body := []byte(`{
			"merchant_reference": "REF-1-AAAAAA",
			"result_code": 1,
			"result_description": "Insufficient funds",
			"status": "SUCCESS"
		}`)

		res, err := ParsePaymentCallback(body)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != models.PaymentFailed {
			t.Errorf("expected failed (code precedence), got %s", res.Status)
		}
		if res.FailureReason != "Insufficient funds" {
			t.Errorf("expected provider reason threaded through, got %q", res.FailureReason)
		}
	})

	t.Run("quoted result code is tolerated", func(t *testing.T) {
		body := []byte(`{"merchant_reference": "REF-1-AAAAAA", "result_code": "200"}`)

		res, err := ParsePaymentCallback(body)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != models.PaymentCompleted {
			t.Errorf("expected completed, got %s", res.Status)
		}
	})

	t.Run("payer cancelling the prompt maps to cancelled", func(t *testing.T) {
		body := []byte(`{"merchant_reference": "REF-1-AAAAAA", "result_code": 1032, "result_description": "Request cancelled by user"}`)

		res, err := ParsePaymentCallback(body)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != models.PaymentCancelled {
			t.Errorf("expected cancelled, got %s", res.Status)
		}
	})

	t.Run("our reference riding in transaction_reference", func(t *testing.T) {
		body := []byte(`{"transaction_reference": "REF-1-AAAAAA", "result_code": 0}`)

		res, err := ParsePaymentCallback(body)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.InvoiceRef != "REF-1-AAAAAA" {
			t.Errorf("wrong invoice ref: %s", res.InvoiceRef)
		}
		if res.ProviderRef != "" {
			t.Errorf("expected empty provider ref, got %s", res.ProviderRef)
		}
	})

	t.Run("no detectable reference", func(t *testing.T) {
		body := []byte(`{"result_code": 0, "amount": 100}`)

		_, err := ParsePaymentCallback(body)
		if !errors.Is(err, ErrNoReference) {
			t.Errorf("expected ErrNoReference, got %v", err)
		}
	})

	t.Run("withdrawal reference rejected on payment endpoint", func(t *testing.T) {
		body := []byte(`{"merchant_reference": "WDR-1-AAAAAA", "result_code": 0}`)

		_, err := ParsePaymentCallback(body)
		if !errors.Is(err, ErrWrongKind) {
			t.Errorf("expected ErrWrongKind, got %v", err)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		if _, err := ParsePaymentCallback([]byte(`{not json`)); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestParsePayoutCallback(t *testing.T) {
	t.Run("payout success with result code zero", func(t *testing.T) {
		body := []byte(`{
			"transaction_reference": "PAYOUT987",
			"payment_reference": "WDR-1717243000-Z9Y8X7",
			"result_code": 0,
			"amount": 1000
		}`)

		res, err := ParsePayoutCallback(body)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Kind != models.WebhookKindPayout {
			t.Errorf("expected payout kind, got %s", res.Kind)
		}
		if res.InvoiceRef != "WDR-1717243000-Z9Y8X7" {
			t.Errorf("wrong invoice ref: %s", res.InvoiceRef)
		}
		if res.Status != models.PaymentCompleted {
			t.Errorf("expected completed, got %s", res.Status)
		}
	})

	t.Run("payout failure with status string only", func(t *testing.T) {
		body := []byte(`{
			"payment_reference": "WDR-1-AAAAAA",
			"status": "FAILED",
			"message": "Recipient account unreachable"
		}`)

		res, err := ParsePayoutCallback(body)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != models.PaymentFailed {
			t.Errorf("expected failed, got %s", res.Status)
		}
		if res.FailureReason != "Recipient account unreachable" {
			t.Errorf("expected provider reason, got %q", res.FailureReason)
		}
	})

	t.Run("payment reference rejected on payout endpoint", func(t *testing.T) {
		body := []byte(`{"payment_reference": "REF-1-AAAAAA", "result_code": 0}`)

		_, err := ParsePayoutCallback(body)
		if !errors.Is(err, ErrWrongKind) {
			t.Errorf("expected ErrWrongKind, got %v", err)
		}
	})
}
