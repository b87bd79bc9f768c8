package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/dewmini3/CakeCustomizing/internal/models"
	"github.com/dewmini3/CakeCustomizing/internal/store"
	"github.com/dewmini3/CakeCustomizing/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const minAddressLength = 5

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	ratingLabels = map[int]string{
		1: "Poor",
		2: "Fair",
		3: "Good",
		4: "Very Good",
		5: "Excellent",
	}
)

// RatingLabel returns the label for a rating, or false when the rating is out of range
func RatingLabel(rating int) (string, bool) {
	label, ok := ratingLabels[rating]
	return label, ok
}

// FeedbackService stores customer reviews
type FeedbackService struct {
	store     store.DocumentStore
	seq       *SequenceGenerator
	publisher EventPublisher
	logger    *zap.Logger
}

// NewFeedbackService creates a new feedback service
func NewFeedbackService(s store.DocumentStore, seq *SequenceGenerator, publisher EventPublisher) *FeedbackService {
	return &FeedbackService{
		store:     s,
		seq:       seq,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// FeedbackInput is a new review. Rating is a float so fractional values can be rejected.
type FeedbackInput struct {
	ProductID    string   `json:"product_id"`
	ProductName  string   `json:"product_name"`
	CustomerName string   `json:"customer_name"`
	Email        string   `json:"email"`
	Address      string   `json:"address"`
	Rating       *float64 `json:"rating"`
	Comment      string   `json:"comment"`
	CakeGrade    string   `json:"cake_grade"`
}

// FeedbackUpdate holds the fields a review update may change
type FeedbackUpdate struct {
	Rating  *float64 `json:"rating"`
	Comment *string  `json:"comment"`
	Address *string  `json:"address"`
}

func rejectFeedback(err error) error {
	util.ValidationFailuresTotal.WithLabelValues("feedback").Inc()
	return err
}

func parseRating(v float64) (int, string, error) {
	rating := int(v)
	label, ok := RatingLabel(rating)
	if float64(rating) != v || !ok {
		return 0, "", validationError("Rating must be an integer between 1 and 5")
	}
	return rating, label, nil
}

func parseGrade(v string) (models.CakeGrade, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "high":
		return models.CakeGradeHigh, true
	case "low":
		return models.CakeGradeLow, true
	}
	return "", false
}

// Create validates and stores a review, then announces it for the thank-you notification
func (s *FeedbackService) Create(ctx context.Context, in FeedbackInput) (*models.Feedback, error) {
	ctx, span := util.StartSpan(ctx, "FeedbackService.Create", "product_id", in.ProductID)
	defer span.End()

	if strings.TrimSpace(in.ProductID) == "" || strings.TrimSpace(in.ProductName) == "" ||
		strings.TrimSpace(in.CustomerName) == "" || strings.TrimSpace(in.Address) == "" ||
		in.Rating == nil || strings.TrimSpace(in.CakeGrade) == "" {
		return nil, rejectFeedback(validationError("Missing required fields"))
	}
	rating, label, err := parseRating(*in.Rating)
	if err != nil {
		return nil, rejectFeedback(err)
	}
	grade, ok := parseGrade(in.CakeGrade)
	if !ok {
		return nil, rejectFeedback(validationError("Cake grade must be High or Low"))
	}
	address := strings.TrimSpace(in.Address)
	if len(address) < minAddressLength {
		return nil, rejectFeedback(validationError("Address must be at least %d characters", minAddressLength))
	}
	email := strings.TrimSpace(in.Email)
	if email != "" && !emailPattern.MatchString(email) {
		return nil, rejectFeedback(validationError("Please enter a valid email address"))
	}

	id, err := s.seq.Next(ctx, models.PrefixFeedback, models.CounterFeedback)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	now := time.Now().UTC()
	fb := &models.Feedback{
		ID:           id,
		ProductID:    strings.TrimSpace(in.ProductID),
		ProductName:  strings.TrimSpace(in.ProductName),
		CustomerName: strings.TrimSpace(in.CustomerName),
		Email:        email,
		Address:      address,
		Rating:       rating,
		RatingLabel:  label,
		Comment:      in.Comment,
		CakeGrade:    grade,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Insert(ctx, models.CollectionFeedback, id, fb); err != nil {
		return nil, util.RecordError(span, storeError("failed to create feedback", err))
	}

	s.logger.Info("Feedback submitted",
		zap.String("feedback_id", id),
		zap.String("product_id", fb.ProductID),
		zap.Int("rating", rating))

	event := &models.FeedbackSubmittedEvent{
		BaseEvent:    newBaseEvent(models.EventTypeFeedbackSubmitted),
		FeedbackID:   fb.ID,
		ProductID:    fb.ProductID,
		ProductName:  fb.ProductName,
		CustomerName: fb.CustomerName,
		Email:        fb.Email,
		Address:      fb.Address,
		Rating:       fb.Rating,
		RatingLabel:  fb.RatingLabel,
		Comment:      fb.Comment,
		CakeGrade:    fb.CakeGrade,
	}
	if err := s.publisher.PublishFeedbackSubmitted(ctx, event); err != nil {
		s.logger.Error("Failed to publish FeedbackSubmitted event", zap.Error(err))
	}

	return fb, nil
}

// List returns every review, newest first
func (s *FeedbackService) List(ctx context.Context) ([]models.Feedback, error) {
	return s.find(ctx, nil)
}

// ListByProduct returns the reviews of one product, newest first
func (s *FeedbackService) ListByProduct(ctx context.Context, productID string) ([]models.Feedback, error) {
	return s.find(ctx, store.Filter{"product_id": productID})
}

func (s *FeedbackService) find(ctx context.Context, filter store.Filter) ([]models.Feedback, error) {
	ctx, span := util.StartSpan(ctx, "FeedbackService.Find")
	defer span.End()

	out := []models.Feedback{}
	if err := s.store.Find(ctx, models.CollectionFeedback, filter, store.FindOptions{NewestFirst: true}, &out); err != nil {
		return nil, util.RecordError(span, storeError("failed to list feedback", err))
	}
	return out, nil
}

// AverageRating returns the mean rating of a product rounded to one decimal
func (s *FeedbackService) AverageRating(ctx context.Context, productID string) (*models.RatingSummary, error) {
	reviews, err := s.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(reviews) == 0 {
		return &models.RatingSummary{}, nil
	}

	sum := decimal.Zero
	for _, r := range reviews {
		sum = sum.Add(decimal.NewFromInt(int64(r.Rating)))
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(reviews)))).Round(1)

	return &models.RatingSummary{AverageRating: avg.InexactFloat64(), Count: len(reviews)}, nil
}

// Update changes rating, comment or address. The label follows the rating.
func (s *FeedbackService) Update(ctx context.Context, id string, in FeedbackUpdate) (*models.Feedback, error) {
	ctx, span := util.StartSpan(ctx, "FeedbackService.Update", "feedback_id", id)
	defer span.End()

	var fb models.Feedback
	if err := s.store.FindByID(ctx, models.CollectionFeedback, id, &fb); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("Feedback not found")
		}
		return nil, util.RecordError(span, storeError("failed to get feedback", err))
	}

	if in.Rating != nil {
		rating, label, err := parseRating(*in.Rating)
		if err != nil {
			return nil, rejectFeedback(err)
		}
		fb.Rating, fb.RatingLabel = rating, label
	}
	if in.Comment != nil {
		fb.Comment = *in.Comment
	}
	if in.Address != nil {
		address := strings.TrimSpace(*in.Address)
		if len(address) < minAddressLength {
			return nil, rejectFeedback(validationError("Address must be at least %d characters", minAddressLength))
		}
		fb.Address = address
	}
	fb.UpdatedAt = time.Now().UTC()

	if err := s.store.Replace(ctx, models.CollectionFeedback, id, &fb); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("Feedback not found")
		}
		return nil, util.RecordError(span, storeError("failed to update feedback", err))
	}
	return &fb, nil
}

// Delete removes a review
func (s *FeedbackService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, models.CollectionFeedback, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("Feedback not found")
		}
		return storeError("failed to delete feedback", err)
	}
	s.logger.Info("Feedback deleted", zap.String("feedback_id", id))
	return nil
}
