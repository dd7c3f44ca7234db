package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campfirehq/intake-service/internal/chat"
	"github.com/campfirehq/intake-service/internal/domain"
	apperrors "github.com/campfirehq/intake-service/pkg/util/errorutil"
)

func requireDomainErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, apperrors.ToDomainError(err).Code)
}

func TestApproveFirstReviewMovesToSecond(t *testing.T) {
	f := newSweepFixture()
	ws := f.seedTicket("cat-first", domain.StateFirstReview, 11111111, f.now.Add(-time.Hour))

	ticket, err := f.lifecycle.Approve(context.Background(), 11111111, "admin")
	require.NoError(t, err)
	require.Equal(t, domain.StateSecondReview, ticket.State)

	got := f.chat.workspace(ws.ID)
	require.Equal(t, domain.WorkspaceName(domain.StateSecondReview, 11111111), got.Name)
	require.Equal(t, "cat-second", got.ParentID)
	require.Empty(t, f.chat.grants, "no role grant before final approval")
}

func TestApproveSecondReviewGrantsRoleAndPrompts(t *testing.T) {
	f := newSweepFixture()
	ws := f.seedTicket("cat-second", domain.StateSecondReview, 11111111, f.now.Add(-time.Hour))

	ticket, err := f.lifecycle.Approve(context.Background(), 11111111, "admin")
	require.NoError(t, err)
	require.Equal(t, domain.StateApproved, ticket.State)
	require.Equal(t, []string{"user-1:role-approved"}, f.chat.grants)

	got := f.chat.workspace(ws.ID)
	require.Equal(t, domain.WorkspaceName(domain.StateApproved, 11111111), got.Name)
	require.Equal(t, "cat-second", got.ParentID, "approved tickets stay in the second-review partition")

	msgs := f.chat.messagesIn(ws.ID)
	require.Equal(t, 1, countContaining(msgs, domain.TagAwaitConfirm))
}

func TestApproveArchivedTicketRejected(t *testing.T) {
	f := newSweepFixture()
	f.seedTicket("cat-archive", domain.StateArchived, 11111111, f.now.Add(-time.Hour))

	_, err := f.lifecycle.Approve(context.Background(), 11111111, "admin")
	requireDomainErrorCode(t, err, "VALIDATION_FAILED")
}

func TestConfirmOnlyByApplicant(t *testing.T) {
	f := newSweepFixture()
	f.seedTicket("cat-second", domain.StateApproved, 11111111, f.now.Add(-time.Hour))

	err := f.lifecycle.Confirm(context.Background(), 11111111, "someone-else")
	requireDomainErrorCode(t, err, "FORBIDDEN")
}

func TestConfirmFinalizesApprovedTicket(t *testing.T) {
	f := newSweepFixture()
	ws := f.seedTicket("cat-second", domain.StateApproved, 11111111, f.now.Add(-time.Hour))

	require.NoError(t, f.lifecycle.Confirm(context.Background(), 11111111, "user-1"))

	got := f.chat.workspace(ws.ID)
	require.Equal(t, domain.WorkspaceName(domain.StateArchived, 11111111), got.Name)
	require.Equal(t, "cat-archive", got.ParentID)
	require.Equal(t, 1, f.chat.access[ws.ID])
}

func TestConfirmRequiresApprovedState(t *testing.T) {
	f := newSweepFixture()
	f.seedTicket("cat-first", domain.StateFirstReview, 11111111, f.now.Add(-time.Hour))

	err := f.lifecycle.Confirm(context.Background(), 11111111, "user-1")
	requireDomainErrorCode(t, err, "VALIDATION_FAILED")
}

func TestAdvanceStateHonorsPipeline(t *testing.T) {
	f := newSweepFixture()
	f.seedTicket("cat-first", domain.StateFirstReview, 11111111, f.now.Add(-time.Hour))
	ctx := context.Background()

	_, err := f.lifecycle.AdvanceState(ctx, 11111111, domain.StateApproved, "admin", "", false)
	requireDomainErrorCode(t, err, "VALIDATION_FAILED")

	ticket, err := f.lifecycle.AdvanceState(ctx, 11111111, domain.StateApproved, "admin", "manual fixup", true)
	require.NoError(t, err)
	require.Equal(t, domain.StateApproved, ticket.State)
}

func TestAdvanceStateUnknownTicket(t *testing.T) {
	f := newSweepFixture()

	_, err := f.lifecycle.AdvanceState(context.Background(), 99999999, domain.StateArchived, "admin", "", false)
	requireDomainErrorCode(t, err, "NOT_FOUND")
}

func TestForceArchivePostsNote(t *testing.T) {
	f := newSweepFixture()
	ws := f.seedTicket("cat-first", domain.StateFirstReview, 11111111, f.now.Add(-time.Hour))

	require.NoError(t, f.lifecycle.ForceArchive(context.Background(), 11111111, "admin", "spam application"))

	got := f.chat.workspace(ws.ID)
	require.Equal(t, "cat-archive", got.ParentID)
	msgs := f.chat.messagesIn(ws.ID)
	found := false
	for _, m := range msgs {
		if strings.Contains(m.Content, "spam application") {
			found = true
		}
	}
	require.True(t, found)
}

func TestBulkDeduplicateKeepsNewest(t *testing.T) {
	f := newSweepFixture()
	oldWS := f.seedTicket("cat-archive", domain.StateArchived, 11111111, f.now.Add(-96*time.Hour))
	newWS := f.seedTicket("cat-first", domain.StateFirstReview, 22222222, f.now.Add(-time.Hour))
	f.chat.seedMessage(oldWS.ID, chat.Message{
		AuthorID:  "user-1",
		Content:   "my application",
		Timestamp: f.now.Add(-95 * time.Hour),
	})
	ctx := context.Background()

	// dry run reports without deleting
	removed, err := f.lifecycle.BulkDeduplicate(ctx, "user-1", true)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	require.Equal(t, int64(11111111), removed[0].ID)
	require.NotEmpty(t, f.chat.workspace(oldWS.ID).ID)

	removed, err = f.lifecycle.BulkDeduplicate(ctx, "user-1", false)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	require.Empty(t, f.chat.workspace(oldWS.ID).ID, "older duplicate is deleted")
	require.NotEmpty(t, f.chat.workspace(newWS.ID).ID, "newest workspace survives")

	require.Len(t, f.exports.exports, 1)
	export := f.exports.exports[0]
	require.Equal(t, int64(11111111), export.TicketID)
	require.Len(t, export.Transcript, 1)
	require.Equal(t, "my application", export.Transcript[0].Content)
}

func TestExportAndPurgeCategory(t *testing.T) {
	f := newSweepFixture()
	a := f.seedTicket("cat-archive", domain.StateArchived, 11111111, f.now.Add(-96*time.Hour))
	b := f.seedTicket("cat-archive", domain.StateArchived, 22222222, f.now.Add(-90*time.Hour))

	purged, err := f.lifecycle.ExportAndPurge(context.Background(), domain.CategoryArchive)
	require.NoError(t, err)
	require.Equal(t, 2, purged)
	require.Empty(t, f.chat.workspace(a.ID).ID)
	require.Empty(t, f.chat.workspace(b.ID).ID)
	require.Len(t, f.exports.exports, 2)
}
