package claims

import (
	"testing"

	"storyshare-app/internal/domain/apperr"
	"storyshare-app/internal/domain/stories"
	"storyshare-app/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func castOf(t *testing.T, db *gorm.DB, storyID string) []stories.StoryActor {
	t.Helper()
	var rows []stories.StoryActor
	require.NoError(t, db.Where("story_id = ?", storyID).Find(&rows).Error)
	return rows
}

func TestClaimAndPersonalize(t *testing.T) {
	db := testutil.OpenDB(t)
	ownerA := makeAccount(t, db)
	claimerB := makeAccount(t, db)

	kyle := makeActor(t, db, ownerA.ID, "Kyle", true)
	stan := makeActor(t, db, ownerA.ID, "Stan", true)
	narrator := makeActor(t, db, ownerA.ID, "Narrator", false)
	ownPet := makeActor(t, db, claimerB.ID, "Rex", false)
	makeActor(t, db, claimerB.ID, "Spare", false)

	src := makeStory(t, db, ownerA.ID, kyle, stan, narrator)
	require.NoError(t, db.Model(&stories.StoryInput{}).
		Where("id = ?", src.InputID).
		Update("prompt", "dragons at bedtime").Error)
	sv := makeShare(t, db, src.ID, ownerA.ID, true)

	result, err := ClaimAndPersonalize(db, sv.Token, claimerB.ID, 3)
	require.NoError(t, err)
	require.Len(t, result.Claimed, 2, "both claimable cast members claimed")

	// New story belongs to the claimer and is generating.
	assert.Equal(t, claimerB.ID, result.Story.AccountID)
	assert.Equal(t, stories.StatusGenerating, result.Story.Status)
	assert.Equal(t, 1, result.Story.GenerationCount)
	assert.NotEqual(t, src.ID, result.Story.ID)

	// Input copied with provenance.
	var input stories.StoryInput
	require.NoError(t, db.First(&input, "id = ?", result.Story.InputID).Error)
	assert.Equal(t, "dragons at bedtime", input.Prompt)
	assert.Equal(t, claimerB.ID, input.AccountID)
	assert.Equal(t, src.ID, input.Metadata[stories.MetaPersonalizedFrom])
	assert.Equal(t, sv.Token, input.Metadata[stories.MetaSharedViewToken])

	// Cast = 2 claimed + 1 own filler, all main characters.
	cast := castOf(t, db, result.Story.ID)
	require.Len(t, cast, 3)
	ids := map[string]bool{}
	for _, m := range cast {
		assert.True(t, m.IsMainCharacter)
		ids[m.ActorID] = true
	}
	assert.True(t, ids[kyle.ID])
	assert.True(t, ids[stan.ID])
	assert.True(t, ids[ownPet.ID], "oldest own actor fills the remaining slot")

	// The non-claimable narrator stays with the original owner.
	assert.False(t, ids[narrator.ID])
}

func TestClaimAndPersonalizeClaimedAlwaysIncluded(t *testing.T) {
	db := testutil.OpenDB(t)
	ownerA := makeAccount(t, db)
	claimerB := makeAccount(t, db)

	a1 := makeActor(t, db, ownerA.ID, "A1", true)
	a2 := makeActor(t, db, ownerA.ID, "A2", true)
	a3 := makeActor(t, db, ownerA.ID, "A3", true)
	a4 := makeActor(t, db, ownerA.ID, "A4", true)
	makeActor(t, db, claimerB.ID, "Own", false)

	src := makeStory(t, db, ownerA.ID, a1, a2, a3, a4)
	sv := makeShare(t, db, src.ID, ownerA.ID, true)

	result, err := ClaimAndPersonalize(db, sv.Token, claimerB.ID, 3)
	require.NoError(t, err)
	assert.Len(t, result.Claimed, 4)

	// More claimables than maxCastSize: every claimed actor is still cast,
	// and no own filler is added.
	cast := castOf(t, db, result.Story.ID)
	assert.Len(t, cast, 4)
}

func TestClaimAndPersonalizeNoClaimables(t *testing.T) {
	db := testutil.OpenDB(t)
	ownerA := makeAccount(t, db)
	claimerB := makeAccount(t, db)

	narrator := makeActor(t, db, ownerA.ID, "Narrator", false)
	src := makeStory(t, db, ownerA.ID, narrator)
	sv := makeShare(t, db, src.ID, ownerA.ID, true)

	_, err := ClaimAndPersonalize(db, sv.Token, claimerB.ID, 3)
	assert.True(t, apperr.Is(err, apperr.InvalidState))

	// Nothing committed.
	var count int64
	require.NoError(t, db.Model(&stories.Story{}).
		Where("account_id = ?", claimerB.ID).
		Count(&count).Error)
	assert.Zero(t, count)
}
