package payments

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	config "github.com/kamaundungu/soko_events/configs"
)

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

var (
	paydToken       string
	paydTokenExpiry time.Time
	tokenMutex      sync.RWMutex
)

const paydTokenURL = "https://api.mypayd.app/api/v2/token?grant_type=client_credentials"

func GetPaydAccessToken() (string, error) {
	tokenMutex.RLock()
	if paydToken != "" && time.Now().Before(paydTokenExpiry) {
		token := paydToken
		tokenMutex.RUnlock()
		return token, nil
	}
	tokenMutex.RUnlock()

	tokenMutex.Lock()
	defer tokenMutex.Unlock()

	if paydToken != "" && time.Now().Before(paydTokenExpiry) {
		return paydToken, nil
	}

	log.Println("Fetching new Payd access token...")
	username := config.Config("PAYD_USERNAME")
	password := config.Config("PAYD_PASSWORD")

	reqBody := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequest("POST", paydTokenURL, reqBody)
	if err != nil {
		return "", err
	}

	req.SetBasicAuth(username, password)
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Payd token API returned non-200 status: %s", resp.Status)
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}

	paydToken = tokenResp.AccessToken
	paydTokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-300) * time.Second)
	log.Println("Successfully fetched and cached Payd access token.")

	return paydToken, nil
}
