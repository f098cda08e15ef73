package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/pkg/apperrors"
	jwtauth "github.com/unihub/unihub/internal/pkg/auth"
	"github.com/unihub/unihub/internal/pkg/email"
)

var errInjected = errors.New("injected store failure")

// recordingQueue captures notifications instead of sending them
type recordingQueue struct {
	mu   sync.Mutex
	sent []queued
}

type queued struct {
	to email.Recipient
	n  email.Notification
}

func (q *recordingQueue) Enqueue(to email.Recipient, n email.Notification) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, queued{to: to, n: n})
	return true
}

func (q *recordingQueue) recipients() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.sent))
	for _, s := range q.sent {
		out = append(out, s.to.Email)
	}
	return out
}

// recordingFeed captures live updates and evictions
type recordingFeed struct {
	mu        sync.Mutex
	events    []feedEvent
	evictions [][2]int64
}

type feedEvent struct {
	communityID int64
	kind        string
	payload     any
}

func (f *recordingFeed) Publish(communityID int64, kind string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, feedEvent{communityID: communityID, kind: kind, payload: payload})
}

func (f *recordingFeed) Evict(communityID, userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evictions = append(f.evictions, [2]int64{communityID, userID})
}

func (f *recordingFeed) evicted() [][2]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]int64(nil), f.evictions...)
}

func (f *recordingFeed) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.kind)
	}
	return out
}

// fakeScheduler returns a fixed join URL or error
type fakeScheduler struct {
	url   string
	err   error
	calls int
}

func (f *fakeScheduler) CreateMeeting(_ context.Context, _ string, _ time.Time) (string, error) {
	f.calls++
	return f.url, f.err
}

// memBlobStorage keeps objects in a map
type memBlobStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newMemBlobStorage() *memBlobStorage {
	return &memBlobStorage{objects: map[string][]byte{}}
}

func (m *memBlobStorage) Store(_ context.Context, objectPath string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.objects[objectPath] = data
	return m.URLFor(objectPath), nil
}

func (m *memBlobStorage) URLFor(objectPath string) string {
	return "https://cdn.test/" + objectPath
}

func (m *memBlobStorage) Delete(_ context.Context, objectPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectPath)
	return nil
}

func (m *memBlobStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func assertKind(t *testing.T, err error, want apperrors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := apperrors.KindOf(err); got != want {
		t.Fatalf("error kind = %s, want %s (err: %v)", got, want, err)
	}
}

func testJWT() *jwtauth.JWTService {
	return jwtauth.NewJWTService(jwtauth.JWTConfig{SecretKey: "test-secret", AccessTokenExp: time.Hour, TokenIssuer: "unihub.test"})
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func pinOrders(t *testing.T, pins []models.PinnedPost) map[int64]int {
	t.Helper()
	out := make(map[int64]int, len(pins))
	for _, p := range pins {
		out[p.PostID] = p.Order
	}
	return out
}
