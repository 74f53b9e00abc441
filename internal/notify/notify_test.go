package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hochfrequenz/se-arch/internal/domain"
)

func TestBuildSlackMessage_RunSummary(t *testing.T) {
	start := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)
	run := domain.Run{
		ID: "run-42", StartedAt: start, FinishedAt: &end,
		Mode: domain.ModeArchive, Action: domain.ActionMove,
		Summary: domain.Summary{Processed: 3, Skipped: 1, Failed: 2, Deleted: 1, Bytes: 2048},
	}

	msg := BuildSlackMessage(RunSummary(run))
	if len(msg.Attachments) != 1 {
		t.Fatalf("got %d attachments, want 1", len(msg.Attachments))
	}
	att := msg.Attachments[0]
	if att.Color != "danger" {
		t.Errorf("Color = %q, want danger", att.Color)
	}
	if att.Title != "run-42" {
		t.Errorf("Title = %q, want run-42", att.Title)
	}
	if att.Ts != end.Unix() {
		t.Errorf("Ts = %d, want %d", att.Ts, end.Unix())
	}
	if !strings.Contains(att.Text, "se-arch history show run-42") {
		t.Errorf("Text %q should point at the run history", att.Text)
	}

	fields := make(map[string]string)
	for _, f := range att.Fields {
		fields[f.Title] = f.Value
	}
	want := map[string]string{
		"Mode":      "archive",
		"Action":    "move",
		"Processed": "3",
		"Skipped":   "1",
		"Failed":    "2",
		"Deleted":   "1",
		"Volume":    "2.0 kB",
		"Duration":  "1.5s",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("field %s = %q, want %q", k, fields[k], v)
		}
	}
}

func TestBuildSlackMessage_PlainNotification(t *testing.T) {
	msg := BuildSlackMessage(Notification{Title: "Watcher stopped", Message: "source gone", Type: NotifyWarning})
	att := msg.Attachments[0]
	if msg.Text != "Watcher stopped" || att.Text != "source gone" {
		t.Errorf("unexpected message %+v", msg)
	}
	if len(att.Fields) != 0 {
		t.Errorf("plain notification should have no fields, got %d", len(att.Fields))
	}
	if att.Footer != "se-arch" {
		t.Errorf("Footer = %q", att.Footer)
	}
}

func TestSlackNotifier_Send(t *testing.T) {
	var got SlackMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	err := notifier.Send(Notification{
		Title:   "Test",
		Message: "Test message",
		Type:    NotifyInfo,
	})
	if err != nil {
		t.Errorf("Send failed: %v", err)
	}
	if got.Text != "Test" {
		t.Errorf("posted text = %q, want Test", got.Text)
	}
}

func TestSlackNotifier_SendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	if err := NewSlackNotifier(server.URL).Send(Notification{Title: "x"}); err == nil {
		t.Error("expected error for non-200 response")
	}
	if err := NewSlackNotifier("").Send(Notification{Title: "x"}); err != nil {
		t.Errorf("empty webhook should be a no-op, got %v", err)
	}
}

func TestNotificationTypeColors(t *testing.T) {
	tests := []struct {
		typ  NotificationType
		want string
	}{
		{NotifySuccess, "good"},
		{NotifyWarning, "warning"},
		{NotifyError, "danger"},
		{NotifyInfo, "#439FE0"},
	}

	for _, tt := range tests {
		got := SlackColor(tt.typ)
		if got != tt.want {
			t.Errorf("SlackColor(%v) = %s, want %s", tt.typ, got, tt.want)
		}
	}
}

func TestMultiNotifier(t *testing.T) {
	var called []string

	mock1 := &mockNotifier{name: "mock1", calls: &called}
	mock2 := &mockNotifier{name: "mock2", calls: &called}

	multi := NewMultiNotifier(mock1, mock2)
	multi.Send(Notification{Title: "Test"})

	if len(called) != 2 {
		t.Errorf("Expected 2 calls, got %d", len(called))
	}
}

type mockNotifier struct {
	name  string
	calls *[]string
}

func (m *mockNotifier) Send(n Notification) error {
	*m.calls = append(*m.calls, m.name)
	return nil
}

func TestThrottled(t *testing.T) {
	var called []string
	mock := &mockNotifier{name: "mock", calls: &called}

	th := NewThrottled(mock, time.Hour)
	th.Send(Notification{Title: "first", Type: NotifySuccess})
	th.Send(Notification{Title: "second", Type: NotifySuccess})
	th.Send(Notification{Title: "third", Type: NotifyError})

	if len(called) != 2 {
		t.Errorf("Expected 2 calls (first + error), got %d", len(called))
	}
	if th.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", th.Dropped())
	}
}

func TestThrottled_ZeroIntervalPassesAll(t *testing.T) {
	var called []string
	th := NewThrottled(&mockNotifier{name: "mock", calls: &called}, 0)
	for i := 0; i < 5; i++ {
		th.Send(Notification{Type: NotifyInfo})
	}
	if len(called) != 5 {
		t.Errorf("Expected 5 calls, got %d", len(called))
	}
}

func TestRunSummary(t *testing.T) {
	start := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Second)

	tests := []struct {
		name string
		sum  domain.Summary
		want NotificationType
	}{
		{"success", domain.Summary{Processed: 3, Bytes: 2048}, NotifySuccess},
		{"nothing to do", domain.Summary{Skipped: 2}, NotifyInfo},
		{"failures", domain.Summary{Processed: 1, Failed: 2}, NotifyError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := domain.Run{
				ID: "run-1", StartedAt: start, FinishedAt: &end,
				Mode: domain.ModeArchive, Action: domain.ActionMove, Summary: tt.sum,
			}
			n := RunSummary(run)
			if n.Type != tt.want {
				t.Errorf("Type = %v, want %v", n.Type, tt.want)
			}
			if n.RunID != "run-1" {
				t.Errorf("RunID = %q", n.RunID)
			}
			if !strings.Contains(n.Message, "3s") {
				t.Errorf("Message %q should contain duration", n.Message)
			}
		})
	}
}

func TestAppleScriptString(t *testing.T) {
	got := appleScriptString(`say "hi" \ bye`)
	want := `"say \"hi\" \\ bye"`
	if got != want {
		t.Errorf("appleScriptString = %s, want %s", got, want)
	}
}
