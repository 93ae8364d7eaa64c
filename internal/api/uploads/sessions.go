package uploads

import (
	"errors"
	"time"

	"storyshare-app/internal/domain/actors"
	"storyshare-app/internal/domain/apperr"
	"storyshare-app/internal/domain/media"
	"storyshare-app/internal/domain/stories"
	"storyshare-app/internal/infra/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FileSpec struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type" binding:"required"`
}

type FileTarget struct {
	MediaID    string `json:"media_id"`
	FileName   string `json:"file_name"`
	UploadURL  string `json:"upload_url"`
	StorageKey string `json:"storage_key"`
}

type OpenResult struct {
	SessionID string       `json:"session_id"`
	ExpiresAt time.Time    `json:"expires_at"`
	Targets   []FileTarget `json:"targets"`
}

// OpenSession stages up to 10 pending media rows under a fresh session and
// issues an upload target per file. Rows expire after 24h unless committed.
func OpenSession(db *gorm.DB, store storage.Store, requesterID string, files []FileSpec) (*OpenResult, error) {
	if len(files) == 0 {
		return nil, apperr.New(apperr.InvalidArgument, "no files in upload batch")
	}
	if len(files) > media.MaxPerOwner {
		return nil, apperr.New(apperr.InvalidArgument, "upload batch exceeds %d files", media.MaxPerOwner)
	}

	sessionID := uuid.NewString()
	expires := time.Now().UTC().Add(media.SessionTTL)
	out := &OpenResult{SessionID: sessionID, ExpiresAt: expires}

	// Targets are issued before the transaction opens so no external call
	// happens while holding it.
	rows := make([]media.Media, 0, len(files))
	for _, f := range files {
		target, err := store.IssueUploadTarget(f.ContentType)
		if err != nil {
			return nil, err
		}
		rows = append(rows, media.Media{
			UploadSessionID: &sessionID,
			UploadedBy:      requesterID,
			Status:          media.StatusPending,
			FileName:        f.FileName,
			ContentType:     f.ContentType,
			StorageKey:      target.StorageKey,
			ExpiresAt:       &expires,
		})
		out.Targets = append(out.Targets, FileTarget{
			FileName:   f.FileName,
			UploadURL:  target.UploadURL,
			StorageKey: target.StorageKey,
		})
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			if err := tx.Create(&rows[i]).Error; err != nil {
				return err
			}
			out.Targets[i].MediaID = rows[i].ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CommitSession atomically flips every pending row in the session to
// committed under the given owner. The whole commit is rejected if the owner
// is not the requester's or would exceed its media capacity.
func CommitSession(db *gorm.DB, sessionID, ownerType, ownerID, requesterID string) ([]media.Media, error) {
	if !media.ValidOwnerType(ownerType) {
		return nil, apperr.New(apperr.InvalidArgument, "unknown owner type %q", ownerType)
	}

	now := time.Now().UTC()
	var committed []media.Media
	err := db.Transaction(func(tx *gorm.DB) error {
		// Expired rows are dead weight for the cleanup job; a stale session
		// cannot be committed.
		var rows []media.Media
		if err := tx.
			Where("upload_session_id = ? AND status = ? AND (expires_at IS NULL OR expires_at > ?)",
				sessionID, media.StatusPending, now).
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return apperr.New(apperr.NotFound, "upload session not found")
		}
		for _, r := range rows {
			if r.UploadedBy != requesterID {
				return apperr.New(apperr.Forbidden, "session contains uploads from another account")
			}
		}

		if err := verifyOwner(tx, ownerType, ownerID, requesterID); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&media.Media{}).
			Where("owner_type = ? AND owner_id = ? AND status = ?", ownerType, ownerID, media.StatusCommitted).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing+int64(len(rows)) > media.MaxPerOwner {
			return apperr.New(apperr.CapacityExceeded, "owner would exceed %d media items", media.MaxPerOwner)
		}

		if err := tx.Model(&media.Media{}).
			Where("upload_session_id = ? AND status = ? AND (expires_at IS NULL OR expires_at > ?)",
				sessionID, media.StatusPending, now).
			Updates(map[string]interface{}{
				"status":            media.StatusCommitted,
				"owner_type":        ownerType,
				"owner_id":          ownerID,
				"upload_session_id": nil,
				"expires_at":        nil,
			}).Error; err != nil {
			return err
		}

		ids := make([]string, len(rows))
		for i, r := range rows {
			ids[i] = r.ID
		}
		return tx.Where("id IN ?", ids).Find(&committed).Error
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// CancelSession deletes the requester's pending rows in the session, then
// best-effort deletes the staged objects. Cancelling an already-gone session
// is not an error.
func CancelSession(db *gorm.DB, store storage.Store, sessionID, requesterID string) error {
	var keys []string
	err := db.Transaction(func(tx *gorm.DB) error {
		var rows []media.Media
		if err := tx.
			Where("upload_session_id = ? AND status = ? AND uploaded_by = ?",
				sessionID, media.StatusPending, requesterID).
			Find(&rows).Error; err != nil {
			return err
		}
		for _, r := range rows {
			keys = append(keys, r.StorageKey)
		}
		return tx.
			Where("upload_session_id = ? AND status = ? AND uploaded_by = ?",
				sessionID, media.StatusPending, requesterID).
			Delete(&media.Media{}).Error
	})
	if err != nil {
		return err
	}

	// Object deletion happens after commit; a leftover blob is reclaimed by
	// storage lifecycle rules, a resurrected row would not be.
	for _, key := range keys {
		_ = store.DeleteObject(key)
	}
	return nil
}

func verifyOwner(tx *gorm.DB, ownerType, ownerID, requesterID string) error {
	switch ownerType {
	case media.OwnerAccount:
		if ownerID != requesterID {
			return apperr.New(apperr.Forbidden, "cannot attach media to another account")
		}
		return nil
	case media.OwnerActor:
		var a actors.Actor
		if err := tx.First(&a, "id = ?", ownerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.NotFound, "actor not found")
			}
			return err
		}
		if a.AccountID != requesterID {
			return apperr.New(apperr.Forbidden, "actor belongs to another account")
		}
		return nil
	case media.OwnerInput:
		var in stories.StoryInput
		if err := tx.First(&in, "id = ?", ownerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.NotFound, "input not found")
			}
			return err
		}
		if in.AccountID != requesterID {
			return apperr.New(apperr.Forbidden, "input belongs to another account")
		}
		return nil
	}
	return apperr.New(apperr.InvalidArgument, "unknown owner type %q", ownerType)
}
