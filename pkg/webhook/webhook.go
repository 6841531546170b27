package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wazend/go-whatsapp-instance-api/pkg/log"
	"github.com/wazend/go-whatsapp-instance-api/pkg/whatsapp"
)

// Relay posts instance events to HTTP consumers. The primary endpoint is
// process-wide, the secondary endpoint is the per-instance URL that opted in
// through its webhook configuration. Delivery is fire-and-forget: failures
// are logged and dropped, there are no retries.
type Relay struct {
	primaryURL string
	secret     string
	disabled   bool
	client     *http.Client
}

func NewRelay(primaryURL string, secret string, disabled bool) *Relay {
	return &Relay{
		primaryURL: primaryURL,
		secret:     secret,
		disabled:   disabled,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (r *Relay) Send(cfg whatsapp.WebhookConfig, payload map[string]any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Errorln("Error Encoding Webhook Payload:", err.Error())
		return
	}

	if cfg.SendMessage && cfg.URL != "" {
		go r.post(cfg.URL, body)
	}

	if r.disabled || cfg.Disabled || r.primaryURL == "" {
		return
	}
	go r.post(r.primaryURL, body)
}

func (r *Relay) post(url string, body []byte) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Warnln("Error Building Webhook Request:", err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if r.secret != "" {
		req.Header.Set("X-Webhook-Signature", sign(r.secret, body))
	}

	res, err := r.client.Do(req)
	if err != nil {
		log.Warnln("Error Delivering Webhook:", err.Error())
		return
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		log.Warnln("Webhook Endpoint Returned Status", res.Status)
	}
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
