package tagihan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVisibleInVerifierQueue(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	me := int64(301)
	other := int64(302)
	fresh := now.Add(-5 * time.Minute)
	stale := now.Add(-LockTimeout - time.Minute)
	verNumber := "VER-20250310-0001"

	cases := []struct {
		name string
		doc  Tagihan
		want bool
	}{
		{
			name: "unlocked in pool",
			doc:  Tagihan{Status: StatusAwaitingVerification},
			want: true,
		},
		{
			name: "locked by me",
			doc:  Tagihan{Status: StatusAwaitingVerification, LockedBy: &me, LockedAt: &fresh},
			want: true,
		},
		{
			name: "locked by someone else",
			doc:  Tagihan{Status: StatusAwaitingVerification, LockedBy: &other, LockedAt: &fresh},
			want: false,
		},
		{
			name: "stale lock is ignored",
			doc:  Tagihan{Status: StatusAwaitingVerification, LockedBy: &other, LockedAt: &stale},
			want: true,
		},
		{
			name: "already verified",
			doc:  Tagihan{Status: StatusAwaitingVerification, VerificationNumber: &verNumber},
			want: false,
		},
		{
			name: "not yet registered",
			doc:  Tagihan{Status: StatusAwaitingRegistration},
			want: false,
		},
		{
			name: "forwarded",
			doc:  Tagihan{Status: StatusForwarded},
			want: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, VisibleInVerifierQueue(&tc.doc, me, now))
		})
	}
}

func TestLockHelpers(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	me := int64(301)
	fresh := now.Add(-LockTimeout)
	stale := now.Add(-LockTimeout - time.Second)

	doc := Tagihan{Status: StatusAwaitingVerification, LockedBy: &me, LockedAt: &fresh}
	require.True(t, doc.LockHeldBy(me, now))
	require.False(t, doc.LockHeldBy(302, now))
	require.False(t, doc.LockExpired(now))

	doc.LockedAt = &stale
	require.False(t, doc.LockHeldBy(me, now))
	require.True(t, doc.LockExpired(now))
}

func TestEditableBy(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	ownerID := int64(101)
	open := now.Add(time.Hour)
	closed := now.Add(-time.Minute)

	doc := Tagihan{SubmittingUserID: ownerID, Status: StatusAwaitingRegistration}
	require.True(t, doc.EditableBy(ownerID, now))
	require.False(t, doc.EditableBy(102, now))

	doc.Status = StatusReturned
	doc.EditableByOwner = true
	require.True(t, doc.EditableBy(ownerID, now), "no deadline keeps the window open")

	doc.RevisionDeadline = &open
	require.True(t, doc.EditableBy(ownerID, now))

	doc.RevisionDeadline = &closed
	require.False(t, doc.EditableBy(ownerID, now))

	doc.RevisionDeadline = nil
	doc.EditableByOwner = false
	require.False(t, doc.EditableBy(ownerID, now))

	doc.Status = StatusForwarded
	require.False(t, doc.EditableBy(ownerID, now))
}
