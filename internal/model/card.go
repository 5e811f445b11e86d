package model

// CardCategory identifies one of the question card piles.
type CardCategory string

const (
	CategoryRC CardCategory = "RC"
	CategoryAC CardCategory = "AC"
	CategoryE  CardCategory = "E"
	CategoryCE CardCategory = "CE"
)

// DeckSize is the total number of playable cards in the reference
// content set. Drawing this many cards ends the game.
const DeckSize = 56

// DefaultCategories returns every card category, the default when a game
// record does not restrict the allowed piles.
func DefaultCategories() []CardCategory {
	return []CardCategory{CategoryRC, CategoryAC, CategoryE, CategoryCE}
}

// Valid reports whether c is a known category.
func (c CardCategory) Valid() bool {
	switch c {
	case CategoryRC, CategoryAC, CategoryE, CategoryCE:
		return true
	}
	return false
}

// Card is a question card from the content catalog.
type Card struct {
	ID            string                 `json:"id" bson:"_id,omitempty"`
	Category      CardCategory           `json:"type" bson:"type"`
	Question      string                 `json:"question" bson:"question"`
	Options       map[string]interface{} `json:"options,omitempty" bson:"options,omitempty"`
	Points        int                    `json:"points" bson:"points"`
	Difficulty    string                 `json:"difficulty,omitempty" bson:"difficulty,omitempty"`
	ImageURL      string                 `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	CardNumber    int                    `json:"cardNumber,omitempty" bson:"cardNumber,omitempty"`
	IsExplanation bool                   `json:"isExplanation" bson:"isExplanation"`
}
