package types

import "encoding/json"

type RequestInitInstance struct {
	Key                string `json:"key" form:"key"`
	WebhookURL         string `json:"webhookUrl" form:"webhookUrl"`
	SendWebhookMessage bool   `json:"sendWebhookMessage" form:"sendWebhookMessage"`
	DisableWebhook     bool   `json:"disableWebhook" form:"disableWebhook"`
}

type RequestUpdateWebhook struct {
	WebhookURL         string `json:"webhookUrl" form:"webhookUrl"`
	SendWebhookMessage bool   `json:"sendWebhookMessage" form:"sendWebhookMessage"`
	DisableWebhook     bool   `json:"disableWebhook" form:"disableWebhook"`
}

type RequestSendText struct {
	To   string `json:"to" form:"to"`
	Text string `json:"text" form:"text"`
}

type RequestSendTextMany struct {
	To   []string `json:"to" form:"to"`
	Text string   `json:"text" form:"text"`
}

type RequestSendMediaURL struct {
	To       string `json:"to" form:"to"`
	URL      string `json:"url" form:"url"`
	MimeType string `json:"mimetype" form:"mimetype"`
	FileName string `json:"filename" form:"filename"`
	Caption  string `json:"caption" form:"caption"`
}

type RequestButton struct {
	ID   string `json:"buttonId" form:"buttonId"`
	Text string `json:"buttonText" form:"buttonText"`
}

type RequestSendButtons struct {
	To      string          `json:"to" form:"to"`
	Title   string          `json:"title" form:"title"`
	Text    string          `json:"text" form:"text"`
	Footer  string          `json:"footer" form:"footer"`
	Buttons []RequestButton `json:"buttons" form:"buttons"`
}

type RequestSendLocation struct {
	To        string  `json:"to" form:"to"`
	Latitude  float64 `json:"latitude" form:"latitude"`
	Longitude float64 `json:"longitude" form:"longitude"`
	Caption   string  `json:"caption" form:"caption"`
}

type RequestSendContact struct {
	To       string `json:"to" form:"to"`
	FullName string `json:"fullName" form:"fullName"`
	Phone    string `json:"phone" form:"phone"`
}

type RequestListRow struct {
	ID          string `json:"rowId" form:"rowId"`
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
}

type RequestListSection struct {
	Title string           `json:"title" form:"title"`
	Rows  []RequestListRow `json:"rows" form:"rows"`
}

type RequestSendList struct {
	To         string               `json:"to" form:"to"`
	Title      string               `json:"title" form:"title"`
	Text       string               `json:"text" form:"text"`
	Footer     string               `json:"footer" form:"footer"`
	ButtonText string               `json:"buttonText" form:"buttonText"`
	Sections   []RequestListSection `json:"sections" form:"sections"`
}

type RequestReact struct {
	To        string `json:"to" form:"to"`
	MessageID string `json:"messageId" form:"messageId"`
	FromMe    bool   `json:"fromMe" form:"fromMe"`
	Emoji     string `json:"emoji" form:"emoji"`
}

type RequestRevoke struct {
	To        string `json:"to" form:"to"`
	MessageID string `json:"messageId" form:"messageId"`
}

// RequestDownload carries a previously relayed message payload so the media
// it references can be fetched again.
type RequestDownload struct {
	RemoteJID string          `json:"remoteJid" form:"remoteJid"`
	FromMe    bool            `json:"fromMe" form:"fromMe"`
	MessageID string          `json:"messageId" form:"messageId"`
	Message   json.RawMessage `json:"message"`
}

type RequestCreateGroup struct {
	Subject      string   `json:"subject" form:"subject"`
	Participants []string `json:"participants" form:"participants"`
}

type RequestGroupParticipants struct {
	Participants []string `json:"participants" form:"participants"`
	Action       string   `json:"action" form:"action"`
}

type RequestGroupSettings struct {
	Setting string `json:"setting" form:"setting"`
}
