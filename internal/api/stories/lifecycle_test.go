package stories

import (
	"testing"

	"storyshare-app/internal/domain/apperr"
	"storyshare-app/internal/domain/stories"
	"storyshare-app/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testApp = "storytime"

func makeInput(t *testing.T, db *gorm.DB, owner string) *stories.StoryInput {
	t.Helper()
	input := stories.StoryInput{AccountID: owner, AppID: testApp, Prompt: "a bedtime story"}
	require.NoError(t, db.Create(&input).Error)
	return &input
}

func pageCount(t *testing.T, db *gorm.DB, storyID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&stories.StoryPage{}).
		Where("story_id = ?", storyID).
		Count(&n).Error)
	return n
}

func twoPages() CompletionResult {
	return CompletionResult{
		Pages: []PageResult{
			{PageNumber: 1, Text: "Once upon a time"},
			{PageNumber: 2, Text: "The end", ImageKey: "pages/2.png"},
		},
		TokensUsed: 420,
		CostCents:  7,
	}
}

func TestStartGeneration(t *testing.T) {
	db := testutil.OpenDB(t)
	input := makeInput(t, db, "acct-1")

	story, err := StartGeneration(db, input.ID, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, stories.StatusGenerating, story.Status)
	assert.Equal(t, 1, story.GenerationCount)
	assert.NotNil(t, story.StartedAt)
	assert.Equal(t, input.ID, story.InputID)

	_, err = StartGeneration(db, "missing-input", "acct-1")
	assert.True(t, apperr.Is(err, apperr.NotFound))

	_, err = StartGeneration(db, input.ID, "someone-else")
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestMarkCompleted(t *testing.T) {
	db := testutil.OpenDB(t)
	input := makeInput(t, db, "acct-1")
	story, err := StartGeneration(db, input.ID, "acct-1")
	require.NoError(t, err)

	got, err := MarkCompleted(db, story.ID, 1, twoPages())
	require.NoError(t, err)
	assert.Equal(t, stories.StatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.EqualValues(t, 420, got.TokensUsed)
	assert.EqualValues(t, 7, got.CostCents)
	assert.EqualValues(t, 2, pageCount(t, db, story.ID))

	_, err = MarkCompleted(db, "missing-story", 1, twoPages())
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestCompletionSignalsRequireGenerationCounter(t *testing.T) {
	db := testutil.OpenDB(t)
	input := makeInput(t, db, "acct-1")
	story, err := StartGeneration(db, input.ID, "acct-1")
	require.NoError(t, err)

	// A callback that omits the counter cannot ride past the stale guard.
	_, err = MarkCompleted(db, story.ID, 0, twoPages())
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))

	_, err = MarkFailed(db, story.ID, 0, "timeout")
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))

	var got stories.Story
	require.NoError(t, db.First(&got, "id = ?", story.ID).Error)
	assert.Equal(t, stories.StatusGenerating, got.Status)
	assert.Zero(t, pageCount(t, db, story.ID))
}

func TestMarkCompletedDuplicateIsNoop(t *testing.T) {
	db := testutil.OpenDB(t)
	input := makeInput(t, db, "acct-1")
	story, err := StartGeneration(db, input.ID, "acct-1")
	require.NoError(t, err)

	_, err = MarkCompleted(db, story.ID, 1, twoPages())
	require.NoError(t, err)

	// A duplicate completion signal must not double the pages.
	got, err := MarkCompleted(db, story.ID, 1, twoPages())
	require.NoError(t, err)
	assert.Equal(t, stories.StatusCompleted, got.Status)
	assert.EqualValues(t, 2, pageCount(t, db, story.ID))
}

func TestMarkFailed(t *testing.T) {
	db := testutil.OpenDB(t)
	input := makeInput(t, db, "acct-1")
	story, err := StartGeneration(db, input.ID, "acct-1")
	require.NoError(t, err)

	got, err := MarkFailed(db, story.ID, 1, "model overloaded")
	require.NoError(t, err)
	assert.Equal(t, stories.StatusFailed, got.Status)
	require.NotNil(t, got.FailReason)
	assert.Equal(t, "model overloaded", *got.FailReason)

	// Failure after completion is a stale signal, not a transition.
	got, err = MarkCompleted(db, story.ID, 1, twoPages())
	require.NoError(t, err)
	assert.Equal(t, stories.StatusFailed, got.Status)
}

func TestRegenerateReopensTerminalStory(t *testing.T) {
	db := testutil.OpenDB(t)
	input := makeInput(t, db, "acct-1")
	story, err := StartGeneration(db, input.ID, "acct-1")
	require.NoError(t, err)
	_, err = MarkCompleted(db, story.ID, 1, twoPages())
	require.NoError(t, err)

	got, err := Regenerate(db, story.ID, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, stories.StatusGenerating, got.Status)
	assert.Equal(t, 2, got.GenerationCount)
	assert.Nil(t, got.CompletedAt)
	assert.Nil(t, got.FailReason)
	assert.Zero(t, got.TokensUsed)
	assert.Zero(t, got.CostCents)
	assert.Zero(t, pageCount(t, db, story.ID), "derived pages emptied")
}

func TestRegenerateGuards(t *testing.T) {
	db := testutil.OpenDB(t)
	input := makeInput(t, db, "acct-1")
	story, err := StartGeneration(db, input.ID, "acct-1")
	require.NoError(t, err)

	_, err = Regenerate(db, story.ID, "acct-1")
	assert.True(t, apperr.Is(err, apperr.InvalidState), "cannot regenerate while generating")

	_, err = Regenerate(db, story.ID, "someone-else")
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	_, err = Regenerate(db, "missing-story", "acct-1")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestStaleCompletionAfterRegenerate(t *testing.T) {
	db := testutil.OpenDB(t)
	input := makeInput(t, db, "acct-1")
	story, err := StartGeneration(db, input.ID, "acct-1")
	require.NoError(t, err)
	_, err = MarkFailed(db, story.ID, 1, "timeout")
	require.NoError(t, err)
	_, err = Regenerate(db, story.ID, "acct-1")
	require.NoError(t, err)

	// The first attempt's completion arrives late: counter moved on, no-op.
	got, err := MarkCompleted(db, story.ID, 1, twoPages())
	require.NoError(t, err)
	assert.Equal(t, stories.StatusGenerating, got.Status)
	assert.Zero(t, pageCount(t, db, story.ID))

	// The current attempt's completion lands normally.
	got, err = MarkCompleted(db, story.ID, 2, twoPages())
	require.NoError(t, err)
	assert.Equal(t, stories.StatusCompleted, got.Status)
	assert.EqualValues(t, 2, pageCount(t, db, story.ID))
}
