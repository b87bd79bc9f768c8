package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedbackInput(rating float64) FeedbackInput {
	return FeedbackInput{
		ProductID:    "OGC-0001",
		ProductName:  "Chocolate Fudge",
		CustomerName: "Sam",
		Email:        "sam@example.com",
		Address:      "42 Cake Lane",
		Rating:       ptr(rating),
		CakeGrade:    "high",
	}
}

func TestRatingLabels(t *testing.T) {
	env := newTestEnv(t)
	want := map[float64]string{1: "Poor", 2: "Fair", 3: "Good", 4: "Very Good", 5: "Excellent"}

	for rating, label := range want {
		fb, err := env.feedback.Create(context.Background(), feedbackInput(rating))
		require.NoError(t, err)
		assert.Equal(t, label, fb.RatingLabel)
	}

	for _, bad := range []float64{0, 6, -1, 3.5} {
		_, err := env.feedback.Create(context.Background(), feedbackInput(bad))
		requireKind(t, err, KindValidation)
	}
}

func TestFeedbackValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in := feedbackInput(4)
	in.Email = "not-an-email"
	_, err := env.feedback.Create(ctx, in)
	requireKind(t, err, KindValidation)

	in = feedbackInput(4)
	in.Address = "abc"
	_, err = env.feedback.Create(ctx, in)
	requireKind(t, err, KindValidation)

	in = feedbackInput(4)
	in.CakeGrade = "medium"
	_, err = env.feedback.Create(ctx, in)
	requireKind(t, err, KindValidation)

	in = feedbackInput(4)
	in.Email = ""
	fb, err := env.feedback.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "FDB-0001", fb.ID)
	require.Len(t, env.publisher.feedback, 1)
	assert.Equal(t, "Very Good", env.publisher.feedback[0].RatingLabel)
}

func TestAverageRating(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	empty, err := env.feedback.AverageRating(ctx, "OGC-0001")
	require.NoError(t, err)
	assert.Equal(t, 0.0, empty.AverageRating)
	assert.Equal(t, 0, empty.Count)

	for _, r := range []float64{5, 4, 4} {
		_, err := env.feedback.Create(ctx, feedbackInput(r))
		require.NoError(t, err)
	}
	other := feedbackInput(1)
	other.ProductID = "OGC-0002"
	_, err = env.feedback.Create(ctx, other)
	require.NoError(t, err)

	summary, err := env.feedback.AverageRating(ctx, "OGC-0001")
	require.NoError(t, err)
	assert.Equal(t, 4.3, summary.AverageRating)
	assert.Equal(t, 3, summary.Count)

	byProduct, err := env.feedback.ListByProduct(ctx, "OGC-0002")
	require.NoError(t, err)
	assert.Len(t, byProduct, 1)
}

func TestFeedbackUpdateRecomputesLabel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fb, err := env.feedback.Create(ctx, feedbackInput(2))
	require.NoError(t, err)

	updated, err := env.feedback.Update(ctx, fb.ID, FeedbackUpdate{Rating: ptr(5.0), Comment: ptr("better second time")})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, "Excellent", updated.RatingLabel)
	assert.Equal(t, "better second time", updated.Comment)

	_, err = env.feedback.Update(ctx, fb.ID, FeedbackUpdate{Rating: ptr(9.0)})
	requireKind(t, err, KindValidation)

	_, err = env.feedback.Update(ctx, "FDB-0404", FeedbackUpdate{})
	requireKind(t, err, KindNotFound)

	require.NoError(t, env.feedback.Delete(ctx, fb.ID))
	requireKind(t, env.feedback.Delete(ctx, fb.ID), KindNotFound)

	list, err := env.feedback.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
