package claims

import (
	"errors"
	"time"

	linksapi "storyshare-app/internal/api/links"
	"storyshare-app/internal/domain/actors"
	"storyshare-app/internal/domain/apperr"
	"storyshare-app/internal/domain/links"
	"storyshare-app/internal/domain/shares"
	"storyshare-app/internal/domain/stories"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ClaimActors transfers ownership of every listed actor to the claimant
// through a shared-view token. The whole call is atomic: all actors claim or
// none do. A concurrent claim of the same actor loses the conditional update
// and aborts with Conflict.
func ClaimActors(db *gorm.DB, token string, actorIDs []string, claimantID string) ([]actors.Actor, error) {
	var claimed []actors.Actor
	err := db.Transaction(func(tx *gorm.DB) error {
		sv, err := resolveClaimToken(tx, token)
		if err != nil {
			return err
		}
		claimed, err = claimActorsTx(tx, sv, actorIDs, claimantID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func claimActorsTx(tx *gorm.DB, sv *shares.SharedView, actorIDs []string, claimantID string) ([]actors.Actor, error) {
	if len(actorIDs) == 0 {
		return nil, apperr.New(apperr.InvalidArgument, "no actors to claim")
	}

	now := time.Now().UTC()
	claimed := make([]actors.Actor, 0, len(actorIDs))
	prevOwners := map[string]struct{}{}

	for _, id := range actorIDs {
		// The token grants claim rights over one story only: the actor must
		// live in the token's app and appear in the shared story's cast.
		var a actors.Actor
		if err := tx.First(&a, "id = ? AND app_id = ?", id, sv.AppID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.New(apperr.NotFound, "actor %s not found", id)
			}
			return nil, err
		}
		var inCast int64
		if err := tx.Model(&stories.StoryActor{}).
			Where("story_id = ? AND actor_id = ?", sv.StoryID, id).
			Count(&inCast).Error; err != nil {
			return nil, err
		}
		if inCast == 0 {
			return nil, apperr.New(apperr.Forbidden, "actor %s is not part of the shared story", id)
		}
		if !a.IsClaimable || a.AccountID == claimantID {
			return nil, apperr.New(apperr.InvalidState, "actor %s is not claimable", id)
		}

		meta := a.Metadata
		if meta == nil {
			meta = datatypes.JSONMap{}
		}
		meta[actors.MetaPreviousOwner] = a.AccountID
		meta[actors.MetaClaimedFromToken] = sv.Token
		meta[actors.MetaClaimedAt] = now.Format(time.RFC3339)

		// The ownership flip is conditioned on is_claimable in the same
		// statement. Zero affected rows means a concurrent claimer won.
		res := tx.Model(&actors.Actor{}).
			Where("id = ? AND app_id = ? AND is_claimable = ?", a.ID, sv.AppID, true).
			Updates(map[string]interface{}{
				"account_id":   claimantID,
				"is_claimable": false,
				"metadata":     meta,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, apperr.New(apperr.Conflict, "actor %s was claimed concurrently", id)
		}

		prevOwners[a.AccountID] = struct{}{}
		a.AccountID = claimantID
		a.IsClaimable = false
		a.Metadata = meta
		claimed = append(claimed, a)
	}

	linkMeta := datatypes.JSONMap{
		links.MetaAutoCreatedBy: "claim",
		links.MetaClaimToken:    sv.Token,
	}
	for owner := range prevOwners {
		if err := linksapi.EnsureAcceptedPair(tx, owner, claimantID, sv.AppID, claimantID, linkMeta); err != nil {
			return nil, err
		}
	}

	return claimed, nil
}

func resolveClaimToken(tx *gorm.DB, token string) (*shares.SharedView, error) {
	sv, err := resolveToken(tx, token)
	if err != nil {
		return nil, err
	}
	if !sv.CanClaimCharacters {
		return nil, apperr.New(apperr.Forbidden, "token does not permit claiming characters")
	}
	return sv, nil
}

func resolveToken(tx *gorm.DB, token string) (*shares.SharedView, error) {
	var sv shares.SharedView
	if err := tx.First(&sv, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "shared view not found")
		}
		return nil, err
	}
	if sv.Expired(time.Now()) {
		return nil, apperr.New(apperr.NotFound, "shared view has expired")
	}
	return &sv, nil
}
