package email

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRender(t *testing.T) {
	to := Recipient{Email: "owner@uni.test", Name: "Ada"}

	tests := []struct {
		name        string
		n           Notification
		wantSubject string
		wantBody    []string
	}{
		{
			name:        "rsvp",
			n:           Notification{Template: TemplateRSVP, ActorName: "Bob", EventName: "Hack Night", CommunityName: "Go Club", Status: "Accepted"},
			wantSubject: "New RSVP for Hack Night",
			wantBody:    []string{"Hello Ada", "<strong>Bob</strong>", "Accepted", "Hack Night"},
		},
		{
			name:        "announcement escapes content",
			n:           Notification{Template: TemplateAnnouncement, ActorName: "Bob", CommunityName: "Go Club", Title: "Meetup", Content: "<script>x</script>"},
			wantSubject: "[Go Club] Meetup",
			wantBody:    []string{"<h3>Meetup</h3>", "&lt;script&gt;"},
		},
		{
			name:        "join approved",
			n:           Notification{Template: TemplateJoinApproved, CommunityName: "Chess"},
			wantSubject: "You have joined Chess",
			wantBody:    []string{"<strong>Chess</strong>", "The UniHub Team"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body, err := Render(to, tt.n)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if subject != tt.wantSubject {
				t.Errorf("subject = %q, want %q", subject, tt.wantSubject)
			}
			for _, want := range tt.wantBody {
				if !strings.Contains(body, want) {
					t.Errorf("body missing %q:\n%s", want, body)
				}
			}
		})
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, _, err := Render(Recipient{}, Notification{Template: "nope"}); err == nil {
		t.Fatal("expected error for unknown template")
	}
}

func TestSendNotificationWithoutCredentialsOnlyLogs(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{Host: "127.0.0.1", Port: 1}, zerolog.Nop())
	err := n.SendNotification(context.Background(), Recipient{Email: "a@uni.test"}, Notification{Template: TemplateJoinApproved})
	if err != nil {
		t.Fatalf("expected nil in development mode, got %v", err)
	}
}

func TestBuildMessageHeaders(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{FromName: "UniHub", FromEmail: "no-reply@uni.test"}, zerolog.Nop())
	msg := n.buildMessage("a@uni.test", "Hi", "<p>body</p>")

	for _, want := range []string{
		"From: UniHub <no-reply@uni.test>\r\n",
		"To: a@uni.test\r\n",
		"Subject: Hi\r\n",
		"Content-Type: text/html; charset=UTF-8\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing header %q", want)
		}
	}
	if !strings.HasSuffix(msg, "\r\n\r\n<p>body</p>") {
		t.Errorf("body not separated from headers: %q", msg)
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Recipient
	err  error
	done chan struct{}
}

func (r *recordingNotifier) SendNotification(_ context.Context, to Recipient, _ Notification) error {
	r.mu.Lock()
	r.sent = append(r.sent, to)
	r.mu.Unlock()
	r.done <- struct{}{}
	return r.err
}

func TestDispatcherDeliversAndSurvivesFailures(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("smtp down"), done: make(chan struct{}, 10)}
	d := NewDispatcher(rec, DispatcherConfig{QueueSize: 10, Workers: 2}, zerolog.Nop())
	d.Start()
	defer d.Stop()

	for _, email := range []string{"a@uni.test", "b@uni.test", "c@uni.test"} {
		if !d.Enqueue(Recipient{Email: email}, Notification{Template: TemplateJoinApproved}) {
			t.Fatalf("Enqueue(%s) rejected", email)
		}
	}

	for i := 0; i < 3; i++ {
		select {
		case <-rec.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of 3 notifications delivered", i)
		}
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	rec := &recordingNotifier{done: make(chan struct{}, 10)}
	// not started: nothing drains the queue
	d := NewDispatcher(rec, DispatcherConfig{QueueSize: 1, Workers: 1}, zerolog.Nop())

	if !d.Enqueue(Recipient{Email: "a@uni.test"}, Notification{}) {
		t.Fatal("first Enqueue rejected")
	}
	if d.Enqueue(Recipient{Email: "b@uni.test"}, Notification{}) {
		t.Fatal("Enqueue on a full queue should report false")
	}
}

func TestDispatcherRejectsAfterStop(t *testing.T) {
	d := NewDispatcher(&recordingNotifier{done: make(chan struct{}, 1)}, DispatcherConfig{}, zerolog.Nop())
	d.Start()
	d.Stop()
	d.Stop()

	if d.Enqueue(Recipient{Email: "a@uni.test"}, Notification{}) {
		t.Fatal("Enqueue after Stop should report false")
	}
}
