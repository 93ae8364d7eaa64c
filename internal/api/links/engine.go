package links

import (
	"errors"

	"storyshare-app/internal/domain/accounts"
	"storyshare-app/internal/domain/actors"
	"storyshare-app/internal/domain/apperr"
	"storyshare-app/internal/domain/links"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DecisionAccept = "accept"
	DecisionReject = "reject"
)

// RequestLink creates a pending link from fromAccountID to a target resolved
// by id or, failing that, by the email stored in account metadata. A revoked
// row between the pair does not block a new request.
func RequestLink(db *gorm.DB, fromAccountID, targetAccountID, targetEmail, appID string, meta datatypes.JSONMap) (*links.AccountLink, error) {
	var created links.AccountLink
	err := db.Transaction(func(tx *gorm.DB) error {
		target, err := resolveTarget(tx, targetAccountID, targetEmail, appID)
		if err != nil {
			return err
		}
		if target.ID == fromAccountID {
			return apperr.New(apperr.InvalidArgument, "cannot link an account to itself")
		}

		var n int64
		if err := activePairQuery(tx, fromAccountID, target.ID, appID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.New(apperr.Conflict, "accounts are already linked or have a pending request")
		}

		created = links.AccountLink{
			AccountID:       fromAccountID,
			LinkedAccountID: target.ID,
			AppID:           appID,
			Status:          links.StatusPending,
			CreatedBy:       fromAccountID,
			Metadata:        meta,
		}
		return tx.Create(&created).Error
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// RespondToLink lets the recipient of a pending request accept or reject it.
// Accepting writes the reciprocal accepted row so both directions always
// exist for an accepted relationship.
func RespondToLink(db *gorm.DB, linkID, respondingAccountID, decision string) (*links.AccountLink, error) {
	if decision != DecisionAccept && decision != DecisionReject {
		return nil, apperr.New(apperr.InvalidArgument, "decision must be accept or reject")
	}

	var row links.AccountLink
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, "id = ?", linkID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.NotFound, "link not found")
			}
			return err
		}
		if row.LinkedAccountID != respondingAccountID {
			return apperr.New(apperr.Forbidden, "only the link recipient may respond")
		}
		if row.Status != links.StatusPending {
			return apperr.New(apperr.InvalidState, "link is not pending")
		}

		if decision == DecisionReject {
			row.Status = links.StatusRevoked
			return tx.Model(&links.AccountLink{}).
				Where("id = ?", row.ID).
				Update("status", links.StatusRevoked).Error
		}

		row.Status = links.StatusAccepted
		if err := tx.Model(&links.AccountLink{}).
			Where("id = ?", row.ID).
			Update("status", links.StatusAccepted).Error; err != nil {
			return err
		}
		return ensureDirectedAccepted(tx, row.LinkedAccountID, row.AccountID, row.AppID, respondingAccountID, nil)
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Unlink removes the relationship the given row belongs to. Both directed
// rows are deleted in one transaction; partial deletion is never observable.
func Unlink(db *gorm.DB, linkID, requestingAccountID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var row links.AccountLink
		if err := tx.First(&row, "id = ?", linkID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.NotFound, "link not found")
			}
			return err
		}
		if row.AccountID != requestingAccountID && row.LinkedAccountID != requestingAccountID {
			return apperr.New(apperr.Forbidden, "not a party to this link")
		}

		return tx.Where(
			"app_id = ? AND ((account_id = ? AND linked_account_id = ?) OR (account_id = ? AND linked_account_id = ?))",
			row.AppID,
			row.AccountID, row.LinkedAccountID,
			row.LinkedAccountID, row.AccountID,
		).Delete(&links.AccountLink{}).Error
	})
}

// ListLinks returns every non-revoked row the account is a party to.
func ListLinks(db *gorm.DB, accountID, appID string) ([]links.AccountLink, error) {
	var out []links.AccountLink
	err := db.
		Where("app_id = ? AND status <> ?", appID, links.StatusRevoked).
		Where(db.Where("account_id = ?", accountID).Or("linked_account_id = ?", accountID)).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// AccessibleActorQuery scopes actors to what accountID may see: its own
// actors unconditionally, and non-claimable actors of accepted-linked
// accounts. Claimable foreign actors are reachable only through a SharedView.
func AccessibleActorQuery(db *gorm.DB, accountID, appID string) *gorm.DB {
	linked := db.Model(&links.AccountLink{}).
		Select("linked_account_id").
		Where("account_id = ? AND app_id = ? AND status = ?", accountID, appID, links.StatusAccepted)

	return db.Model(&actors.Actor{}).
		Where("app_id = ?", appID).
		Where(
			db.Where("account_id = ?", accountID).
				Or(db.Where("account_id IN (?)", linked).Where("is_claimable = ?", false)),
		)
}

// ListAccessibleActors runs AccessibleActorQuery ordered by creation time.
func ListAccessibleActors(db *gorm.DB, accountID, appID string) ([]actors.Actor, error) {
	var out []actors.Actor
	err := AccessibleActorQuery(db, accountID, appID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// EnsureAcceptedPair guarantees both directed accepted rows exist between a
// and b, upgrading pending rows in place. Idempotent; called by the accept
// flow and by the claim engine inside their transactions.
func EnsureAcceptedPair(tx *gorm.DB, a, b, appID, createdBy string, meta datatypes.JSONMap) error {
	if err := ensureDirectedAccepted(tx, a, b, appID, createdBy, meta); err != nil {
		return err
	}
	return ensureDirectedAccepted(tx, b, a, appID, createdBy, meta)
}

func ensureDirectedAccepted(tx *gorm.DB, from, to, appID, createdBy string, meta datatypes.JSONMap) error {
	var row links.AccountLink
	err := tx.
		Where("account_id = ? AND linked_account_id = ? AND app_id = ? AND status <> ?",
			from, to, appID, links.StatusRevoked).
		First(&row).Error
	if err == nil {
		if row.Status == links.StatusAccepted {
			return nil
		}
		return tx.Model(&links.AccountLink{}).
			Where("id = ?", row.ID).
			Update("status", links.StatusAccepted).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return tx.Create(&links.AccountLink{
		AccountID:       from,
		LinkedAccountID: to,
		AppID:           appID,
		Status:          links.StatusAccepted,
		CreatedBy:       createdBy,
		Metadata:        meta,
	}).Error
}

// activePairQuery matches pending or accepted rows between the pair in either
// direction.
func activePairQuery(tx *gorm.DB, a, b, appID string) *gorm.DB {
	return tx.Model(&links.AccountLink{}).
		Where("app_id = ? AND status IN ?", appID, []string{links.StatusPending, links.StatusAccepted}).
		Where(
			tx.Where("account_id = ? AND linked_account_id = ?", a, b).
				Or("account_id = ? AND linked_account_id = ?", b, a),
		)
}

func resolveTarget(tx *gorm.DB, targetAccountID, targetEmail, appID string) (*accounts.Account, error) {
	var acct accounts.Account
	var err error
	switch {
	case targetAccountID != "":
		err = tx.First(&acct, "id = ? AND app_id = ?", targetAccountID, appID).Error
	case targetEmail != "":
		err = tx.
			Where("app_id = ?", appID).
			Where(datatypes.JSONQuery("metadata").Equals(targetEmail, "email")).
			First(&acct).Error
	default:
		return nil, apperr.New(apperr.InvalidArgument, "target account or email required")
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "target account not found")
		}
		return nil, err
	}
	if acct.IsDeleted() {
		return nil, apperr.New(apperr.NotFound, "target account not found")
	}
	return &acct, nil
}
