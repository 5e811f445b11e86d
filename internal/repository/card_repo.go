package repository

import (
	"context"
	"math/rand"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"conectaplus/internal/model"
)

// CardRepo is the read-only card content catalog. Lookups return
// (nil, nil) when no card matches; an empty category pile is a
// recoverable condition, not an error.
type CardRepo interface {
	RandomUnused(ctx context.Context, category model.CardCategory, excludeIDs []string, allowed []model.CardCategory) (*model.Card, error)
	ExplanationCard(ctx context.Context, category model.CardCategory) (*model.Card, error)
}

type cardRepo struct {
	cards *mongo.Collection
}

// NewCardRepo creates a Mongo-backed card catalog.
func NewCardRepo(db *mongo.Database) CardRepo {
	return &cardRepo{cards: db.Collection("cards")}
}

func (r *cardRepo) RandomUnused(ctx context.Context, category model.CardCategory, excludeIDs []string, allowed []model.CardCategory) (*model.Card, error) {
	if len(allowed) > 0 && !containsCategory(allowed, category) {
		return nil, nil
	}

	filter := bson.M{"type": category, "isExplanation": false}
	if len(excludeIDs) > 0 {
		filter["_id"] = bson.M{"$nin": excludeIDs}
	}

	cursor, err := r.cards.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var cards []model.Card
	if err := cursor.All(ctx, &cards); err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, nil
	}

	card := cards[rand.Intn(len(cards))]
	return &card, nil
}

func (r *cardRepo) ExplanationCard(ctx context.Context, category model.CardCategory) (*model.Card, error) {
	var card model.Card
	err := r.cards.FindOne(ctx, bson.M{"type": category, "isExplanation": true}).Decode(&card)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

func containsCategory(categories []model.CardCategory, c model.CardCategory) bool {
	for _, candidate := range categories {
		if candidate == c {
			return true
		}
	}
	return false
}
