package payments

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	config "github.com/kamaundungu/soko_events/configs"
)

const paydBaseURL = "https://api.mypayd.app/api/v2"

// ErrProviderUnavailable covers timeouts and connection failures; these
// are retried at initiation. ErrProviderRejected is a business rejection
// from Payd and is never retried.
var (
	ErrProviderUnavailable = errors.New("payment provider unreachable")
	ErrProviderRejected    = errors.New("payment provider rejected the request")
)

const initiateAttempts = 3

type StkPushRequest struct {
	Username    string  `json:"username"`
	NetworkCode string  `json:"network_code"`
	Amount      float64 `json:"amount"`
	PhoneNumber string  `json:"phone_number"`
	Currency    string  `json:"currency"`
	Narration   string  `json:"narration"`
	Reference   string  `json:"payment_reference"`
	CallbackURL string  `json:"callback_url"`
}

type StkPushResponse struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	TransactionRef string `json:"transaction_reference"`
	MerchantRef    string `json:"merchant_reference"`
}

type PayoutRequest struct {
	Username    string  `json:"username"`
	Amount      float64 `json:"amount"`
	PhoneNumber string  `json:"phone_number"`
	AccountName string  `json:"account_name"`
	Narration   string  `json:"narration"`
	Reference   string  `json:"payment_reference"`
	Channel     string  `json:"channel"`
	CallbackURL string  `json:"callback_url"`
}

type PayoutResponse struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	TransactionRef string `json:"transaction_reference"`
}

type StatusResponse struct {
	Status         string  `json:"status"`
	TransactionRef string  `json:"transaction_reference"`
	Amount         float64 `json:"amount"`
	ResultCode     *int    `json:"result_code"`
	Message        string  `json:"message"`
}

var nonNumericRegex = regexp.MustCompile(`[^0-9]`)

func SanitizeMpesaNumber(phone string) (string, error) {
	sanitized := nonNumericRegex.ReplaceAllString(phone, "")

	if (strings.HasPrefix(sanitized, "07") || strings.HasPrefix(sanitized, "01")) && len(sanitized) == 10 {
		return "254" + sanitized[1:], nil
	}
	if (strings.HasPrefix(sanitized, "7") || strings.HasPrefix(sanitized, "1")) && len(sanitized) == 9 {
		return "254" + sanitized, nil
	}
	if strings.HasPrefix(sanitized, "254") && len(sanitized) == 12 {
		return sanitized, nil
	}

	return "", errors.New("invalid M-Pesa phone number format")
}

// InitiateStkPush asks Payd to push an M-Pesa prompt to the payer. The
// call is retried with exponential backoff on transport failures only;
// a non-2xx business rejection is surfaced immediately.
func InitiateStkPush(amount float64, phoneNumber, currency, invoiceRef string) (*StkPushResponse, error) {
	accessToken, err := GetPaydAccessToken()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get Payd access token: %v", ErrProviderUnavailable, err)
	}

	sanitizedPhone, err := SanitizeMpesaNumber(phoneNumber)
	if err != nil {
		return nil, err
	}

	payload := StkPushRequest{
		Username:    config.Config("PAYD_USERNAME"),
		NetworkCode: config.ConfigOr("PAYD_NETWORK_CODE", "63902"),
		Amount:      amount,
		PhoneNumber: sanitizedPhone,
		Currency:    currency,
		Narration:   config.ConfigOr("PAYD_NARRATION", "Ticket purchase"),
		Reference:   invoiceRef,
		CallbackURL: config.Config("WEBHOOK_BASE_URL") + "/api/v1/payments/webhook",
	}

	var resp StkPushResponse
	if err := postWithRetry(paydBaseURL+"/payments", accessToken, payload, &resp); err != nil {
		return nil, err
	}

	log.Println("✅ STK Push initiated successfully for invoice:", invoiceRef)
	return &resp, nil
}

// InitiatePayout sends money out to a seller's mobile number. Payouts
// are not retried on transport failure: a retry after an ambiguous
// timeout could double-send money, so the caller reverses and reports.
func InitiatePayout(amount float64, phoneNumber, accountName, withdrawalRef string) (*PayoutResponse, error) {
	accessToken, err := GetPaydAccessToken()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get Payd access token: %v", ErrProviderUnavailable, err)
	}

	sanitizedPhone, err := SanitizeMpesaNumber(phoneNumber)
	if err != nil {
		return nil, err
	}

	payload := PayoutRequest{
		Username:    config.Config("PAYD_USERNAME"),
		Amount:      amount,
		PhoneNumber: sanitizedPhone,
		AccountName: accountName,
		Narration:   "Seller payout",
		Reference:   withdrawalRef,
		Channel:     config.ConfigOr("PAYD_PAYOUT_CHANNEL", "mpesa"),
		CallbackURL: config.Config("WEBHOOK_BASE_URL") + "/api/v1/withdrawals/webhook",
	}

	var resp PayoutResponse
	if err := post(paydBaseURL+"/withdrawal", accessToken, payload, &resp); err != nil {
		return nil, err
	}

	log.Println("✅ Payout initiated successfully for withdrawal:", withdrawalRef)
	return &resp, nil
}

// QueryTransactionStatus asks Payd for the current state of a
// transaction by its provider reference. Used by the reconciliation
// sweep when a callback never arrived.
func QueryTransactionStatus(providerRef string) (*StatusResponse, error) {
	accessToken, err := GetPaydAccessToken()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get Payd access token: %v", ErrProviderUnavailable, err)
	}

	req, err := http.NewRequest("GET", paydBaseURL+"/transactions/"+providerRef, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status query returned %d: %s", ErrProviderRejected, resp.StatusCode, string(respBody))
	}

	var status StatusResponse
	if err := json.Unmarshal(respBody, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status response: %v", err)
	}
	return &status, nil
}

func post(url, accessToken string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Payd payload: %v", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create Payd request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read Payd response body: %v", ErrProviderUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("Payd API error (%d): %s", resp.StatusCode, string(respBody))
		return fmt.Errorf("%w: status %d: %s", ErrProviderRejected, resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal Payd response: %v", err)
	}
	return nil
}

func postWithRetry(url, accessToken string, payload interface{}, out interface{}) error {
	var lastErr error
	backoff := time.Second

	for attempt := 1; attempt <= initiateAttempts; attempt++ {
		lastErr = post(url, accessToken, payload, out)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, ErrProviderUnavailable) {
			return lastErr
		}
		if attempt < initiateAttempts {
			log.Printf("Payd call failed (attempt %d/%d), retrying in %s: %v", attempt, initiateAttempts, backoff, lastErr)
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return lastErr
}
