package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campfirehq/intake-service/internal/chat"
	"github.com/campfirehq/intake-service/internal/domain"
	"github.com/campfirehq/intake-service/internal/observability"
)

func TestAssessActivity(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	created := base.Add(-72 * time.Hour)

	human := func(at time.Time) chat.Message {
		return chat.Message{AuthorID: "user-1", Content: "hello", Timestamp: at}
	}
	bot := func(content string, at time.Time) chat.Message {
		return chat.Message{AuthorID: "bot", Automated: true, Content: content, Timestamp: at}
	}

	tests := []struct {
		name    string
		history []chat.Message // newest first
		want    ActivitySnapshot
	}{
		{
			name:    "empty history falls back to creation time",
			history: nil,
			want:    ActivitySnapshot{LastActivity: created},
		},
		{
			name:    "newest human message sets the idle clock",
			history: []chat.Message{human(base.Add(-2 * time.Hour)), bot("welcome", created)},
			want:    ActivitySnapshot{LastActivity: base.Add(-2 * time.Hour)},
		},
		{
			name: "reminder does not reset the idle clock",
			history: []chat.Message{
				bot("still there? "+domain.TagReminder, base.Add(-time.Hour)),
				human(base.Add(-30 * time.Hour)),
			},
			want: ActivitySnapshot{LastActivity: base.Add(-30 * time.Hour), Reminded: true},
		},
		{
			name: "human reply after a reminder clears the reminded flag",
			history: []chat.Message{
				human(base.Add(-time.Hour)),
				bot("still there? "+domain.TagReminder, base.Add(-20 * time.Hour)),
			},
			want: ActivitySnapshot{LastActivity: base.Add(-time.Hour)},
		},
		{
			name: "newest automated await-confirm marks the grace window",
			history: []chat.Message{
				bot("press confirm "+domain.TagAwaitConfirm, base.Add(-2 * time.Hour)),
				human(base.Add(-4 * time.Hour)),
			},
			want: ActivitySnapshot{
				LastActivity:    base.Add(-4 * time.Hour),
				AwaitingConfirm: true,
				AwaitingSince:   base.Add(-2 * time.Hour),
			},
		},
		{
			name: "lock notice is detected anywhere in the window",
			history: []chat.Message{
				human(base.Add(-time.Hour)),
				bot("Workspace locked. "+domain.TagLocked, base.Add(-10 * time.Hour)),
			},
			want: ActivitySnapshot{LastActivity: base.Add(-time.Hour), Locked: true},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := AssessActivity(tc.history, created)
			require.Equal(t, tc.want, got)
		})
	}
}

type sweepFixture struct {
	chat      *fakeChat
	audit     *memAuditRepo
	exports   *memExportRepo
	scanner   *Scanner
	lifecycle *LifecycleService
	now       time.Time
}

func newSweepFixture() *sweepFixture {
	f := &sweepFixture{
		chat:    newFakeChat(),
		audit:   &memAuditRepo{},
		exports: &memExportRepo{},
		now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	chatCfg := testChatCfg()
	intake := testIntakeCfg()
	registry := NewTicketRegistry(f.chat, chatCfg)
	f.lifecycle = NewLifecycleService(LifecycleDependencies{
		Chat:       f.chat,
		Registry:   registry,
		AuditRepo:  f.audit,
		ExportRepo: f.exports,
	}, chatCfg, intake, nil)
	f.scanner = NewScanner(registry, f.lifecycle, f.chat, observability.NewMetrics(), nil,
		intake.RemindAfter, intake.ArchiveAfter, intake.ConfirmGrace,
		intake.HistoryLimit, intake.WorkspaceOpTimeout)
	f.scanner.now = func() time.Time { return f.now }
	return f
}

func (f *sweepFixture) seedTicket(parentID string, state domain.TicketState, id int64, createdAt time.Time) *chat.Workspace {
	return f.chat.addWorkspace(parentID,
		domain.WorkspaceName(state, id),
		domain.RenderDescriptor(id, "user-1", createdAt))
}

func countContaining(msgs []chat.Message, tag string) int {
	n := 0
	for _, m := range msgs {
		if strings.Contains(m.Content, tag) {
			n++
		}
	}
	return n
}

func TestSweepRemindsIdleTicket(t *testing.T) {
	f := newSweepFixture()
	ws := f.seedTicket("cat-first", domain.StateFirstReview, 11111111, f.now.Add(-30*time.Hour))

	f.scanner.Sweep(context.Background())

	msgs := f.chat.messagesIn(ws.ID)
	require.Equal(t, 1, countContaining(msgs, domain.TagReminder))
	require.Len(t, f.chat.dms["user-1"], 1)
	// still a first-review workspace
	require.Equal(t, domain.WorkspaceName(domain.StateFirstReview, 11111111), f.chat.workspace(ws.ID).Name)
}

func TestSweepDoesNotRemindTwice(t *testing.T) {
	f := newSweepFixture()
	ws := f.seedTicket("cat-first", domain.StateFirstReview, 11111111, f.now.Add(-30*time.Hour))
	f.chat.seedMessage(ws.ID, chat.Message{
		AuthorID: "bot", Automated: true,
		Content:   "still there? " + domain.TagReminder,
		Timestamp: f.now.Add(-time.Hour),
	})

	f.scanner.Sweep(context.Background())

	require.Equal(t, 1, countContaining(f.chat.messagesIn(ws.ID), domain.TagReminder))
}

func TestSweepArchivesAfterThreshold(t *testing.T) {
	f := newSweepFixture()
	ws := f.seedTicket("cat-first", domain.StateFirstReview, 11111111, f.now.Add(-50*time.Hour))

	f.scanner.Sweep(context.Background())

	got := f.chat.workspace(ws.ID)
	require.Equal(t, domain.WorkspaceName(domain.StateArchived, 11111111), got.Name)
	require.Equal(t, "cat-archive", got.ParentID)
	require.Equal(t, 1, f.chat.access[ws.ID], "workspace must be locked on archive")
	require.Equal(t, 1, countContaining(f.chat.messagesIn(ws.ID), domain.TagLocked))
}

func TestSweepFreshTicketUntouched(t *testing.T) {
	f := newSweepFixture()
	ws := f.seedTicket("cat-first", domain.StateFirstReview, 11111111, f.now.Add(-2*time.Hour))

	f.scanner.Sweep(context.Background())

	require.Empty(t, f.chat.messagesIn(ws.ID))
}

func TestSweepFinalizesApprovedAfterGrace(t *testing.T) {
	f := newSweepFixture()
	ws := f.seedTicket("cat-second", domain.StateApproved, 11111111, f.now.Add(-10*time.Hour))
	f.chat.seedMessage(ws.ID, chat.Message{
		AuthorID: "bot", Automated: true,
		Content:   "press confirm " + domain.TagAwaitConfirm,
		Timestamp: f.now.Add(-2 * time.Hour), // grace is one hour
	})

	f.scanner.Sweep(context.Background())

	got := f.chat.workspace(ws.ID)
	require.Equal(t, domain.WorkspaceName(domain.StateArchived, 11111111), got.Name)
	require.Equal(t, "cat-archive", got.ParentID)
}

// An applicant reply that is not an explicit confirmation does not put the
// workspace back on the review-stage idle path: once past the grace period
// it finalizes quietly, with no reminder and no idle-timeout notice.
func TestSweepApprovedHumanReplySkipsIdlePath(t *testing.T) {
	f := newSweepFixture()
	ws := f.seedTicket("cat-second", domain.StateApproved, 11111111, f.now.Add(-40*time.Hour))
	f.chat.seedMessage(ws.ID, chat.Message{
		AuthorID: "bot", Automated: true,
		Content:   "press confirm " + domain.TagAwaitConfirm,
		Timestamp: f.now.Add(-32 * time.Hour),
	})
	f.chat.seedMessage(ws.ID, chat.Message{
		AuthorID:  "user-1",
		Content:   "thanks, looking now",
		Timestamp: f.now.Add(-30 * time.Hour), // past remind threshold, past grace
	})

	f.scanner.Sweep(context.Background())

	got := f.chat.workspace(ws.ID)
	require.Equal(t, domain.WorkspaceName(domain.StateArchived, 11111111), got.Name)
	require.Equal(t, "cat-archive", got.ParentID)
	msgs := f.chat.messagesIn(ws.ID)
	require.Equal(t, 0, countContaining(msgs, domain.TagReminder))
	require.Equal(t, 0, countContaining(msgs, "idle timeout"))
}

func TestSweepLeavesApprovedInsideGrace(t *testing.T) {
	f := newSweepFixture()
	ws := f.seedTicket("cat-second", domain.StateApproved, 11111111, f.now.Add(-10*time.Hour))
	f.chat.seedMessage(ws.ID, chat.Message{
		AuthorID: "bot", Automated: true,
		Content:   "press confirm " + domain.TagAwaitConfirm,
		Timestamp: f.now.Add(-10 * time.Minute),
	})

	f.scanner.Sweep(context.Background())

	require.Equal(t, domain.WorkspaceName(domain.StateApproved, 11111111), f.chat.workspace(ws.ID).Name)
}
