package repository

import (
	"context"
	"math/rand"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"conectaplus/internal/model"
)

// GameRepo is the persistence store for durable game records. Lookups
// return (nil, nil) when no document matches.
type GameRepo interface {
	FindByRoomCode(ctx context.Context, code string) (*model.Game, error)
	FindByID(ctx context.Context, id string) (*model.Game, error)
	UpdatePhase(ctx context.Context, gameID string, phase model.Phase) error
	UpdatePlayerScore(ctx context.Context, gameID, playerName string, score int) error
	SetVideoRoom(ctx context.Context, gameID, url, name string) error
	CreateInitialCardPiles(ctx context.Context, gameID string) error
}

type gameRepo struct {
	games *mongo.Collection
	cards *mongo.Collection
	piles *mongo.Collection
}

// NewGameRepo creates a Mongo-backed game repository.
func NewGameRepo(db *mongo.Database) GameRepo {
	return &gameRepo{
		games: db.Collection("games"),
		cards: db.Collection("cards"),
		piles: db.Collection("card_piles"),
	}
}

func (r *gameRepo) FindByRoomCode(ctx context.Context, code string) (*model.Game, error) {
	return r.findOne(ctx, bson.M{"roomCode": code})
}

func (r *gameRepo) FindByID(ctx context.Context, id string) (*model.Game, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *gameRepo) findOne(ctx context.Context, filter bson.M) (*model.Game, error) {
	var game model.Game
	err := r.games.FindOne(ctx, filter).Decode(&game)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &game, nil
}

func (r *gameRepo) UpdatePhase(ctx context.Context, gameID string, phase model.Phase) error {
	_, err := r.games.UpdateOne(ctx,
		bson.M{"_id": gameID},
		bson.M{"$set": bson.M{"phase": phase}},
	)
	return err
}

func (r *gameRepo) UpdatePlayerScore(ctx context.Context, gameID, playerName string, score int) error {
	_, err := r.games.UpdateOne(ctx,
		bson.M{"_id": gameID, "players.name": playerName},
		bson.M{"$set": bson.M{"players.$.score": score}},
	)
	return err
}

func (r *gameRepo) SetVideoRoom(ctx context.Context, gameID, url, name string) error {
	_, err := r.games.UpdateOne(ctx,
		bson.M{"_id": gameID},
		bson.M{"$set": bson.M{"videoRoomUrl": url, "videoRoomName": name}},
	)
	return err
}

// cardPile is one shuffled entry of a game's per-category draw pile.
type cardPile struct {
	GameID   string             `bson:"gameId"`
	CardID   string             `bson:"cardId"`
	CardType model.CardCategory `bson:"cardType"`
	Position int                `bson:"position"`
	IsUsed   bool               `bson:"isUsed"`
}

func (r *gameRepo) CreateInitialCardPiles(ctx context.Context, gameID string) error {
	// Idempotent: skip if this game already has piles.
	n, err := r.piles.CountDocuments(ctx, bson.M{"gameId": gameID})
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	cursor, err := r.cards.Find(ctx, bson.M{"isExplanation": false})
	if err != nil {
		return err
	}
	var cards []model.Card
	if err := cursor.All(ctx, &cards); err != nil {
		return err
	}
	if len(cards) == 0 {
		return nil
	}

	byCategory := make(map[model.CardCategory][]model.Card)
	for _, c := range cards {
		byCategory[c.Category] = append(byCategory[c.Category], c)
	}

	docs := make([]interface{}, 0, len(cards))
	for category, pile := range byCategory {
		rand.Shuffle(len(pile), func(i, j int) {
			pile[i], pile[j] = pile[j], pile[i]
		})
		for pos, c := range pile {
			docs = append(docs, cardPile{
				GameID:   gameID,
				CardID:   c.ID,
				CardType: category,
				Position: pos,
				IsUsed:   false,
			})
		}
	}

	_, err = r.piles.InsertMany(ctx, docs)
	return err
}
