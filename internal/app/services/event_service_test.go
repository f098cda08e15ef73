package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/pkg/apperrors"
	"github.com/unihub/unihub/internal/pkg/email"
	"github.com/unihub/unihub/internal/testutil"
)

func TestSetRSVPCapacity(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	queue := &recordingQueue{}
	svc := NewEventService(f.Store, nil, nil, queue, testutil.Logger(t))

	owner := f.CreateUser("owner")
	c := f.CreateCommunity(owner.ID, "Hiking", models.PrivacyPublic)
	a, b, late := f.CreateUser("a"), f.CreateUser("b"), f.CreateUser("late")
	for _, u := range []models.User{a, b, late} {
		f.AddMember(c.ID, u.ID, models.RoleMember)
	}
	event := f.CreateEvent(c.ID, "Peak day", 2)

	for _, u := range []models.User{a, b} {
		rsvp, created, err := svc.SetRSVP(ctx, event.ID, u.ID, "Accepted")
		if err != nil {
			t.Fatalf("SetRSVP(%s) error = %v", u.FirstName, err)
		}
		if !created || rsvp.Status != models.RSVPAccepted {
			t.Errorf("SetRSVP(%s) = %+v created=%v", u.FirstName, rsvp, created)
		}
	}

	_, _, err := svc.SetRSVP(ctx, event.ID, late.ID, "Accepted")
	assertKind(t, err, apperrors.KindConflict)
	if !apperrors.Is(err, apperrors.ErrEventAtCapacity) {
		t.Errorf("expected ErrEventAtCapacity, got %v", err)
	}

	// confirming an existing acceptance never trips the cap
	if _, created, err := svc.SetRSVP(ctx, event.ID, a.ID, "Accepted"); err != nil || created {
		t.Fatalf("re-accept: created=%v err=%v", created, err)
	}

	// tentative answers are not capacity-gated
	if _, _, err := svc.SetRSVP(ctx, event.ID, late.ID, "Tentative"); err != nil {
		t.Fatalf("tentative: %v", err)
	}

	if _, _, err := svc.SetRSVP(ctx, event.ID, b.ID, "Declined"); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if _, created, err := svc.SetRSVP(ctx, event.ID, late.ID, "Accepted"); err != nil || created {
		t.Fatalf("accept after a seat freed: created=%v err=%v", created, err)
	}

	count, err := f.Repos().RSVPs.CountAccepted(ctx, event.ID)
	if err != nil {
		t.Fatalf("CountAccepted() error = %v", err)
	}
	if count != 2 {
		t.Errorf("accepted = %d, want 2", count)
	}

	for _, to := range queue.recipients() {
		if to != owner.Email {
			t.Errorf("RSVP notification sent to %s, want owner", to)
		}
	}
	if len(queue.sent) == 0 || queue.sent[0].n.Template != email.TemplateRSVP {
		t.Errorf("expected RSVP notifications, got %+v", queue.sent)
	}
}

func TestSetRSVPRejections(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := NewEventService(f.Store, nil, nil, nil, testutil.Logger(t))

	owner := f.CreateUser("owner")
	outsider := f.CreateUser("outsider")
	c := f.CreateCommunity(owner.ID, "Hiking", models.PrivacyPublic)
	event := f.CreateEvent(c.ID, "Peak day", -1)

	tests := []struct {
		name    string
		eventID int64
		actorID int64
		status  string
		want    apperrors.Kind
	}{
		{"anonymous", event.ID, 0, "Accepted", apperrors.KindUnauthenticated},
		{"missing event", 9999, owner.ID, "Accepted", apperrors.KindNotFound},
		{"not a member", event.ID, outsider.ID, "Accepted", apperrors.KindForbidden},
		{"unknown status", event.ID, owner.ID, "Maybe", apperrors.KindInvalidArgument},
		{"wrong case", event.ID, owner.ID, "accepted", apperrors.KindInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.SetRSVP(ctx, tt.eventID, tt.actorID, tt.status)
			assertKind(t, err, tt.want)
		})
	}

	if n := f.Store.Count("rsvps"); n != 0 {
		t.Errorf("rejected RSVPs stored %d rows", n)
	}
}

func TestSetRSVPUnboundedEvent(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := NewEventService(f.Store, nil, nil, nil, testutil.Logger(t))

	owner := f.CreateUser("owner")
	c := f.CreateCommunity(owner.ID, "Film", models.PrivacyPublic)
	event := f.CreateEvent(c.ID, "Screening", -1)
	for i := 0; i < 5; i++ {
		u := f.CreateUser("fan")
		f.AddMember(c.ID, u.ID, models.RoleMember)
		if _, _, err := svc.SetRSVP(ctx, event.ID, u.ID, "Accepted"); err != nil {
			t.Fatalf("SetRSVP() error = %v", err)
		}
	}

	summary, err := svc.EventSummary(ctx, event.ID, owner.ID)
	if err != nil {
		t.Fatalf("EventSummary() error = %v", err)
	}
	if summary.AcceptedCount != 5 || summary.ViewerStatus != nil {
		t.Errorf("summary = %+v", summary)
	}
}

func TestListUserRSVPsOrderedByDate(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := NewEventService(f.Store, nil, nil, nil, testutil.Logger(t))

	owner := f.CreateUser("owner")
	c := f.CreateCommunity(owner.ID, "Choir", models.PrivacyPublic)

	base := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	var ids []int64
	for _, offset := range []int{3, 1, 2} {
		e := models.Event{CommunityID: c.ID, Name: "Rehearsal", Date: base.AddDate(0, 0, offset)}
		if _, err := f.Repos().Events.Create(ctx, &e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		ids = append(ids, e.ID)
		if _, _, err := svc.SetRSVP(ctx, e.ID, owner.ID, "Tentative"); err != nil {
			t.Fatalf("SetRSVP() error = %v", err)
		}
	}

	rsvps, err := svc.ListUserRSVPs(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListUserRSVPs() error = %v", err)
	}
	want := []int64{ids[1], ids[2], ids[0]}
	if len(rsvps) != len(want) {
		t.Fatalf("got %d RSVPs, want %d", len(rsvps), len(want))
	}
	for i, r := range rsvps {
		if r.EventID != want[i] {
			t.Errorf("rsvps[%d] = event %d, want %d", i, r.EventID, want[i])
		}
	}

	summaries, err := svc.ListCommunityEvents(ctx, c.ID, owner.ID)
	if err != nil {
		t.Fatalf("ListCommunityEvents() error = %v", err)
	}
	for _, s := range summaries {
		if s.ViewerStatus == nil || *s.ViewerStatus != models.RSVPTentative {
			t.Errorf("event %d viewer status = %v", s.ID, s.ViewerStatus)
		}
	}
}

func TestCreateEvent(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()

	owner := f.CreateUser("owner")
	manager := f.CreateUser("manager")
	member := f.CreateUser("member")
	c := f.CreateCommunity(owner.ID, "Debate", models.PrivacyPublic)
	f.AddMember(c.ID, manager.ID, models.RoleEventManager)
	f.AddMember(c.ID, member.ID, models.RoleMember)
	date := time.Date(2026, 6, 1, 17, 0, 0, 0, time.UTC)

	t.Run("meeting link appended", func(t *testing.T) {
		sched := &fakeScheduler{url: "https://zoom.test/j/1"}
		svc := NewEventService(f.Store, sched, []string{"meeting", "webinar"}, nil, testutil.Logger(t))

		event, err := svc.CreateEvent(ctx, c.ID, manager.ID, CreateEventParams{
			Name:      "Finals",
			Date:      date,
			EventType: strPtr("Meeting"),
			Capacity:  intPtr(30),
		})
		if err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}
		if event.Location == nil || *event.Location != "Online | Zoom Link: https://zoom.test/j/1" {
			t.Errorf("location = %v", event.Location)
		}
		if sched.calls != 1 {
			t.Errorf("scheduler calls = %d, want 1", sched.calls)
		}
	})

	t.Run("meeting failure keeps location", func(t *testing.T) {
		sched := &fakeScheduler{err: errors.New("zoom down")}
		svc := NewEventService(f.Store, sched, []string{"webinar"}, nil, testutil.Logger(t))

		event, err := svc.CreateEvent(ctx, c.ID, owner.ID, CreateEventParams{
			Name:      "Workshop",
			Date:      date,
			Location:  strPtr("Room 4"),
			EventType: strPtr("webinar"),
		})
		if err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}
		if event.Location == nil || *event.Location != "Room 4" {
			t.Errorf("location = %v", event.Location)
		}
	})

	t.Run("other types skip the scheduler", func(t *testing.T) {
		sched := &fakeScheduler{url: "https://zoom.test/j/2"}
		svc := NewEventService(f.Store, sched, []string{"meeting"}, nil, testutil.Logger(t))

		event, err := svc.CreateEvent(ctx, c.ID, owner.ID, CreateEventParams{
			Name:      "Social",
			Date:      date,
			Location:  strPtr("Union bar"),
			EventType: strPtr("social"),
		})
		if err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}
		if sched.calls != 0 || strings.Contains(*event.Location, "Zoom") {
			t.Errorf("scheduler used for a social event: %v", *event.Location)
		}
	})

	svc := NewEventService(f.Store, nil, nil, nil, testutil.Logger(t))
	bad := []struct {
		name    string
		actorID int64
		params  CreateEventParams
		want    apperrors.Kind
	}{
		{"plain member", member.ID, CreateEventParams{Name: "x", Date: date}, apperrors.KindForbidden},
		{"blank name", owner.ID, CreateEventParams{Name: "  ", Date: date}, apperrors.KindInvalidArgument},
		{"no date", owner.ID, CreateEventParams{Name: "x"}, apperrors.KindInvalidArgument},
		{"zero capacity", owner.ID, CreateEventParams{Name: "x", Date: date, Capacity: intPtr(0)}, apperrors.KindInvalidArgument},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateEvent(ctx, c.ID, tt.actorID, tt.params)
			assertKind(t, err, tt.want)
		})
	}
}

func TestCreateAnnouncementNotifiesOtherMembers(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	queue := &recordingQueue{}
	feed := &recordingFeed{}
	svc := NewAnnouncementService(f.Store, queue, feed, testutil.Logger(t))

	owner := f.CreateUser("owner")
	a, b := f.CreateUser("a"), f.CreateUser("b")
	c := f.CreateCommunity(owner.ID, "Astro", models.PrivacyPublic)
	f.AddMember(c.ID, a.ID, models.RoleMember)
	f.AddMember(c.ID, b.ID, models.RoleEventManager)

	_, err := svc.CreateAnnouncement(ctx, c.ID, a.ID, "Hi", "there")
	assertKind(t, err, apperrors.KindForbidden)

	ann, err := svc.CreateAnnouncement(ctx, c.ID, b.ID, " Eclipse ", "Meet on the roof")
	if err != nil {
		t.Fatalf("CreateAnnouncement() error = %v", err)
	}
	if ann.Title != "Eclipse" {
		t.Errorf("title = %q", ann.Title)
	}
	if kinds := feed.kinds(); len(kinds) != 1 || kinds[0] != FeedAnnouncementCreated {
		t.Errorf("feed events = %v", kinds)
	}

	got := map[string]bool{}
	for _, to := range queue.recipients() {
		got[to] = true
	}
	if len(got) != 2 || !got[owner.Email] || !got[a.Email] || got[b.Email] {
		t.Errorf("recipients = %v, want owner and a", queue.recipients())
	}
	for _, s := range queue.sent {
		if s.n.Template != email.TemplateAnnouncement || s.n.ActorName != b.FullName() {
			t.Errorf("notification = %+v", s.n)
		}
	}

	list, err := svc.ListAnnouncements(ctx, c.ID)
	if err != nil {
		t.Fatalf("ListAnnouncements() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != ann.ID {
		t.Errorf("ListAnnouncements() = %+v", list)
	}
}

func TestSearchEvents(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := NewEventService(f.Store, nil, nil, &recordingQueue{}, testutil.Logger(t))
	svc.(*eventServiceImpl).now = func() time.Time { return time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC) }

	owner, viewer := f.CreateUser("owner"), f.CreateUser("viewer")
	public := f.CreateCommunity(owner.ID, "Open club", models.PrivacyPublic)
	hidden := f.CreateCommunity(owner.ID, "Hidden club", models.PrivacyPrivate)
	joined := f.CreateCommunity(owner.ID, "Inner club", models.PrivacyPrivate)
	f.AddMember(joined.ID, viewer.ID, models.RoleMember)

	at := func(m time.Month, d, h int) time.Time { return time.Date(2026, m, d, h, 0, 0, 0, time.UTC) }
	create := func(communityID int64, name string, date time.Time, eventType, description string) int64 {
		t.Helper()
		e := models.Event{CommunityID: communityID, Name: name, Date: date}
		if eventType != "" {
			e.EventType = &eventType
		}
		if description != "" {
			e.Description = &description
		}
		if _, err := f.Repos().Events.Create(ctx, &e); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		return e.ID
	}
	chess := create(public.ID, "Chess night", at(10, 14, 18), "Social", "")
	hack := create(public.ID, "Hackathon", at(10, 20, 10), "Workshop", "Bring laptops")
	dinner := create(public.ID, "Alumni dinner", at(10, 10, 19), "", "")
	create(hidden.ID, "Secret meetup", at(10, 15, 18), "Social", "")
	chat := create(joined.ID, "Members chat", at(11, 2, 17), "social", "")

	day := func(m time.Month, d int) *time.Time { v := at(m, d, 0); return &v }

	tests := []struct {
		name     string
		params   EventSearchParams
		want     []int64
		wantKind apperrors.Kind
	}{
		{"visible events by date", EventSearchParams{}, []int64{dinner, chess, hack, chat}, ""},
		{"upcoming", EventSearchParams{DateFilter: "upcoming"}, []int64{chess, hack, chat}, ""},
		{"past", EventSearchParams{DateFilter: "past"}, []int64{dinner}, ""},
		{"today", EventSearchParams{DateFilter: "today"}, []int64{chess}, ""},
		{"this week", EventSearchParams{DateFilter: "this_week"}, []int64{chess}, ""},
		{"next week", EventSearchParams{DateFilter: "next_week"}, []int64{hack}, ""},
		{"this month", EventSearchParams{DateFilter: "this_month"}, []int64{dinner, chess, hack}, ""},
		{"custom range includes the end day", EventSearchParams{DateFilter: "custom", StartDate: day(10, 10), EndDate: day(10, 14)}, []int64{dinner, chess}, ""},
		{"custom range open ended", EventSearchParams{DateFilter: "custom", StartDate: day(10, 15)}, []int64{hack, chat}, ""},
		{"type ignores case", EventSearchParams{EventType: "SOCIAL"}, []int64{chess, chat}, ""},
		{"type all", EventSearchParams{EventType: "all"}, []int64{dinner, chess, hack, chat}, ""},
		{"text matches description", EventSearchParams{Text: "laptop"}, []int64{hack}, ""},
		{"name descending", EventSearchParams{Ordering: "-event_name"}, []int64{chat, hack, chess, dinner}, ""},
		{"unknown date filter", EventSearchParams{DateFilter: "someday"}, nil, apperrors.KindInvalidArgument},
		{"start after end", EventSearchParams{DateFilter: "custom", StartDate: day(10, 20), EndDate: day(10, 14)}, nil, apperrors.KindInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := svc.SearchEvents(ctx, viewer.ID, tt.params, 1, 20)
			if tt.wantKind != "" {
				assertKind(t, err, tt.wantKind)
				return
			}
			if err != nil {
				t.Fatalf("SearchEvents() error = %v", err)
			}
			got := make([]int64, 0, len(events))
			for _, e := range events {
				got = append(got, e.ID)
			}
			if !equalIDs(got, tt.want) {
				t.Errorf("SearchEvents() = %v, want %v", got, tt.want)
			}
		})
	}

	_, err := svc.SearchEvents(ctx, 0, EventSearchParams{}, 1, 20)
	assertKind(t, err, apperrors.KindUnauthenticated)
}

func TestEventWindowWeeksStartOnMonday(t *testing.T) {
	monday := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		now    time.Time
		filter string
		from   time.Time
	}{
		{"monday", time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC), "this_week", monday},
		{"sunday", time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC), "this_week", monday},
		{"next week from sunday", time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC), "next_week", monday.AddDate(0, 0, 7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, until, err := eventWindow(tt.filter, tt.now, nil, nil)
			if err != nil {
				t.Fatalf("eventWindow() error = %v", err)
			}
			if !from.Equal(tt.from) || !until.Equal(tt.from.AddDate(0, 0, 7)) {
				t.Errorf("eventWindow() = [%v, %v), want a week from %v", from, until, tt.from)
			}
		})
	}
}
