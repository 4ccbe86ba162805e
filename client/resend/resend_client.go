package resend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"hrx/common"
)

const apiEndpoint = "https://api.resend.com/emails"

var (
	SendFunc = Send

	apiKey      string
	senderEmail string
)

// Bootstrap fails fast when the mail provider env is missing.
func Bootstrap() error {
	apiKey = os.Getenv("RESEND_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("environment variable RESEND_API_KEY is not set")
	}
	senderEmail = os.Getenv("RESEND_FROM_EMAIL")
	if senderEmail == "" {
		return fmt.Errorf("environment variable RESEND_FROM_EMAIL is not set")
	}
	return nil
}

type Mail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Html    string   `json:"html"`
}

type sendResponse struct {
	Id string `json:"id"`
}

// Send posts one mail to the provider and returns its message id.
func Send(m Mail) (string, error) {
	if m.From == "" {
		m.From = senderEmail
	}
	reqBody, err := json.Marshal(&m)
	if err != nil {
		return "", err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+apiKey)
	respBody, err := common.HttpInvokeJson(http.MethodPost, apiEndpoint, headers, string(reqBody))
	if err != nil {
		return "", err
	}

	resp := sendResponse{}
	if err := json.Unmarshal([]byte(respBody), &resp); err != nil {
		return "", err
	}
	return resp.Id, nil
}
