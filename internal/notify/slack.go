package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

const slackFooter = "se-arch"

// SlackNotifier posts run summaries to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// SlackMessage is the webhook payload
type SlackMessage struct {
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment carries the colored body of a message
type SlackAttachment struct {
	Fallback string       `json:"fallback,omitempty"`
	Color    string       `json:"color"`
	Title    string       `json:"title,omitempty"`
	Text     string       `json:"text,omitempty"`
	Fields   []SlackField `json:"fields,omitempty"`
	Footer   string       `json:"footer,omitempty"`
	Ts       int64        `json:"ts,omitempty"`
}

// SlackField is one short key/value cell of an attachment
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ToJSON converts the message to JSON
func (m *SlackMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SlackColor returns the Slack color for a notification type
func SlackColor(t NotificationType) string {
	switch t {
	case NotifySuccess:
		return "good"
	case NotifyWarning:
		return "warning"
	case NotifyError:
		return "danger"
	default:
		return "#439FE0"
	}
}

// BuildSlackMessage renders a notification. Run summaries get one field per
// counter so the channel shows mode, action and totals at a glance.
func BuildSlackMessage(n Notification) SlackMessage {
	att := SlackAttachment{
		Fallback: n.Title + ": " + n.Message,
		Color:    SlackColor(n.Type),
		Title:    n.RunID,
		Footer:   slackFooter,
	}

	if n.Run == nil {
		att.Text = n.Message
		return SlackMessage{Text: n.Title, Attachments: []SlackAttachment{att}}
	}

	run := n.Run
	att.Fields = []SlackField{
		{Title: "Mode", Value: string(run.Mode), Short: true},
		{Title: "Action", Value: string(run.Action), Short: true},
		{Title: "Processed", Value: strconv.Itoa(run.Processed), Short: true},
		{Title: "Skipped", Value: strconv.Itoa(run.Skipped), Short: true},
		{Title: "Failed", Value: strconv.Itoa(run.Failed), Short: true},
		{Title: "Deleted", Value: strconv.Itoa(run.Deleted), Short: true},
		{Title: "Volume", Value: humanize.Bytes(uint64(run.Bytes)), Short: true},
		{Title: "Duration", Value: run.Duration().Round(time.Millisecond).String(), Short: true},
	}
	if run.FinishedAt != nil {
		att.Ts = run.FinishedAt.Unix()
	}
	if run.Failed > 0 {
		att.Text = "Failed entries: `se-arch history show " + run.ID + "`"
	}
	return SlackMessage{Text: n.Title, Attachments: []SlackAttachment{att}}
}

// Send posts the notification. An empty webhook URL disables it.
func (s *SlackNotifier) Send(n Notification) error {
	if s.webhookURL == "" {
		return nil
	}

	msg := BuildSlackMessage(n)
	payload, err := msg.ToJSON()
	if err != nil {
		return err
	}

	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	return nil
}
