package uploads

import (
	"testing"
	"time"

	"storyshare-app/internal/domain/actors"
	"storyshare-app/internal/domain/apperr"
	"storyshare-app/internal/domain/media"
	"storyshare-app/internal/infra/storage"
	"storyshare-app/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testApp = "storytime"

func makeActor(t *testing.T, db *gorm.DB, owner string) *actors.Actor {
	t.Helper()
	a := actors.Actor{AccountID: owner, AppID: testApp, Name: "Milo", Type: actors.TypeChild}
	require.NoError(t, db.Create(&a).Error)
	return &a
}

func specs(n int) []FileSpec {
	out := make([]FileSpec, n)
	for i := range out {
		out[i] = FileSpec{FileName: "photo.png", ContentType: "image/png"}
	}
	return out
}

func committedCount(t *testing.T, db *gorm.DB, ownerType, ownerID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&media.Media{}).
		Where("owner_type = ? AND owner_id = ? AND status = ?", ownerType, ownerID, media.StatusCommitted).
		Count(&n).Error)
	return n
}

func TestOpenSession(t *testing.T) {
	db := testutil.OpenDB(t)
	store := storage.NewKeyed("https://media.test/upload")

	res, err := OpenSession(db, store, "acct-1", specs(3))
	require.NoError(t, err)
	assert.NotEmpty(t, res.SessionID)
	require.Len(t, res.Targets, 3)
	for _, tgt := range res.Targets {
		assert.NotEmpty(t, tgt.MediaID)
		assert.NotEmpty(t, tgt.StorageKey)
		assert.Contains(t, tgt.UploadURL, tgt.StorageKey)
	}

	var rows []media.Media
	require.NoError(t, db.Where("upload_session_id = ?", res.SessionID).Find(&rows).Error)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, media.StatusPending, r.Status)
		assert.Equal(t, "acct-1", r.UploadedBy)
		assert.NotNil(t, r.ExpiresAt)
		assert.Nil(t, r.OwnerType)
	}
}

func TestOpenSessionBatchLimits(t *testing.T) {
	db := testutil.OpenDB(t)
	store := storage.NewKeyed("https://media.test/upload")

	_, err := OpenSession(db, store, "acct-1", nil)
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))

	_, err = OpenSession(db, store, "acct-1", specs(media.MaxPerOwner+1))
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))
}

func TestCommitSession(t *testing.T) {
	db := testutil.OpenDB(t)
	store := storage.NewKeyed("https://media.test/upload")
	actor := makeActor(t, db, "acct-1")

	res, err := OpenSession(db, store, "acct-1", specs(2))
	require.NoError(t, err)

	committed, err := CommitSession(db, res.SessionID, media.OwnerActor, actor.ID, "acct-1")
	require.NoError(t, err)
	require.Len(t, committed, 2)
	for _, m := range committed {
		assert.Equal(t, media.StatusCommitted, m.Status)
		require.NotNil(t, m.OwnerType)
		assert.Equal(t, media.OwnerActor, *m.OwnerType)
		require.NotNil(t, m.OwnerID)
		assert.Equal(t, actor.ID, *m.OwnerID)
		assert.Nil(t, m.UploadSessionID)
		assert.Nil(t, m.ExpiresAt)
	}

	// The session is spent.
	_, err = CommitSession(db, res.SessionID, media.OwnerActor, actor.ID, "acct-1")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestCommitSessionGuards(t *testing.T) {
	db := testutil.OpenDB(t)
	store := storage.NewKeyed("https://media.test/upload")
	actor := makeActor(t, db, "acct-1")
	rivalActor := makeActor(t, db, "acct-2")

	res, err := OpenSession(db, store, "acct-1", specs(1))
	require.NoError(t, err)

	_, err = CommitSession(db, res.SessionID, "story", actor.ID, "acct-1")
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))

	_, err = CommitSession(db, res.SessionID, media.OwnerActor, actor.ID, "acct-2")
	assert.True(t, apperr.Is(err, apperr.Forbidden), "foreign uploader cannot commit")

	_, err = CommitSession(db, res.SessionID, media.OwnerActor, rivalActor.ID, "acct-1")
	assert.True(t, apperr.Is(err, apperr.Forbidden), "cannot attach to another account's actor")

	_, err = CommitSession(db, res.SessionID, media.OwnerActor, "missing-actor", "acct-1")
	assert.True(t, apperr.Is(err, apperr.NotFound))

	_, err = CommitSession(db, res.SessionID, media.OwnerAccount, "acct-2", "acct-1")
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	_, err = CommitSession(db, "no-such-session", media.OwnerActor, actor.ID, "acct-1")
	assert.True(t, apperr.Is(err, apperr.NotFound))

	// None of the failed commits touched the rows.
	var pending int64
	require.NoError(t, db.Model(&media.Media{}).
		Where("upload_session_id = ? AND status = ?", res.SessionID, media.StatusPending).
		Count(&pending).Error)
	assert.EqualValues(t, 1, pending)
}

func TestCommitSessionExpired(t *testing.T) {
	db := testutil.OpenDB(t)
	store := storage.NewKeyed("https://media.test/upload")
	actor := makeActor(t, db, "acct-1")

	res, err := OpenSession(db, store, "acct-1", specs(1))
	require.NoError(t, err)

	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.Model(&media.Media{}).
		Where("upload_session_id = ?", res.SessionID).
		Update("expires_at", past).Error)

	_, err = CommitSession(db, res.SessionID, media.OwnerActor, actor.ID, "acct-1")
	assert.True(t, apperr.Is(err, apperr.NotFound), "stale session cannot be committed")

	var rows []media.Media
	require.NoError(t, db.Where("upload_session_id = ?", res.SessionID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, media.StatusPending, rows[0].Status, "left for expiry cleanup, not committed")
}

func TestCommitSessionCapacityIsAllOrNothing(t *testing.T) {
	db := testutil.OpenDB(t)
	store := storage.NewKeyed("https://media.test/upload")
	actor := makeActor(t, db, "acct-1")

	first, err := OpenSession(db, store, "acct-1", specs(9))
	require.NoError(t, err)
	_, err = CommitSession(db, first.SessionID, media.OwnerActor, actor.ID, "acct-1")
	require.NoError(t, err)

	// 9 committed + 2 staged would cross the cap: nothing commits.
	second, err := OpenSession(db, store, "acct-1", specs(2))
	require.NoError(t, err)
	_, err = CommitSession(db, second.SessionID, media.OwnerActor, actor.ID, "acct-1")
	assert.True(t, apperr.Is(err, apperr.CapacityExceeded))
	assert.EqualValues(t, 9, committedCount(t, db, media.OwnerActor, actor.ID))

	var pending int64
	require.NoError(t, db.Model(&media.Media{}).
		Where("upload_session_id = ? AND status = ?", second.SessionID, media.StatusPending).
		Count(&pending).Error)
	assert.EqualValues(t, 2, pending, "rejected batch stays staged")

	// A batch that lands exactly on the cap still commits.
	third, err := OpenSession(db, store, "acct-1", specs(1))
	require.NoError(t, err)
	_, err = CommitSession(db, third.SessionID, media.OwnerActor, actor.ID, "acct-1")
	require.NoError(t, err)
	assert.EqualValues(t, 10, committedCount(t, db, media.OwnerActor, actor.ID))
}

func TestCancelSession(t *testing.T) {
	db := testutil.OpenDB(t)
	store := storage.NewKeyed("https://media.test/upload")

	res, err := OpenSession(db, store, "acct-1", specs(2))
	require.NoError(t, err)

	require.NoError(t, CancelSession(db, store, res.SessionID, "acct-1"))

	var n int64
	require.NoError(t, db.Model(&media.Media{}).
		Where("upload_session_id = ?", res.SessionID).
		Count(&n).Error)
	assert.Zero(t, n)

	require.Len(t, store.Deleted, 2)
	assert.ElementsMatch(t, []string{res.Targets[0].StorageKey, res.Targets[1].StorageKey}, store.Deleted)

	// Cancelling again, or cancelling a session that never existed, is fine.
	require.NoError(t, CancelSession(db, store, res.SessionID, "acct-1"))
	require.NoError(t, CancelSession(db, store, "no-such-session", "acct-1"))
	assert.Len(t, store.Deleted, 2)
}

func TestCancelSessionOnlyTouchesRequesterRows(t *testing.T) {
	db := testutil.OpenDB(t)
	store := storage.NewKeyed("https://media.test/upload")

	res, err := OpenSession(db, store, "acct-1", specs(1))
	require.NoError(t, err)

	require.NoError(t, CancelSession(db, store, res.SessionID, "acct-2"))

	var n int64
	require.NoError(t, db.Model(&media.Media{}).
		Where("upload_session_id = ?", res.SessionID).
		Count(&n).Error)
	assert.EqualValues(t, 1, n, "another account's cancel is a no-op")
	assert.Empty(t, store.Deleted)
}
