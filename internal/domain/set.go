package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Set validation errors
var (
	ErrEmptySetTitle  = fmt.Errorf("%w: set title cannot be empty", ErrValidation)
	ErrSetTitleLength = fmt.Errorf("%w: set title must be at most 200 characters", ErrValidation)
	ErrEmptySetUserID = fmt.Errorf("%w: set user ID cannot be empty", ErrValidation)
	ErrEmptyCardTerm  = fmt.Errorf("%w: card term cannot be empty", ErrValidation)
	ErrEmptyCardDef   = fmt.Errorf("%w: card definition cannot be empty", ErrValidation)
)

// MaxSetTitleLength bounds Set.Title.
const MaxSetTitleLength = 200

// PreviewTermsCount is how many cards a set summary carries.
const PreviewTermsCount = 4

// Card is a single term/definition pair inside a set.
type Card struct {
	ID         uuid.UUID `json:"id"`
	SetID      uuid.UUID `json:"-"`
	Position   int       `json:"position"`
	Term       string    `json:"term"`
	Definition string    `json:"definition"`
	ImageURL   string    `json:"image_url,omitempty"`
}

// Set is a titled, ordered collection of cards owned by one user.
type Set struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsPublic    bool      `json:"is_public"`
	Cards       []Card    `json:"cards"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SetSummary is the listing view of a set.
type SetSummary struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	IsPublic     bool      `json:"is_public"`
	Author       Author    `json:"user"`
	TermsCount   int       `json:"terms_count"`
	PreviewTerms []Card    `json:"preview_terms"`
	CreatedAt    time.Time `json:"created_at"`
}

// Author identifies the owner of a set in listings.
type Author struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	ProfileImage string    `json:"profile_image"`
}

// NewSet creates a set owned by userID. Card positions follow slice order.
func NewSet(userID uuid.UUID, title, description string, isPublic bool, cards []Card) (*Set, error) {
	now := time.Now().UTC()
	set := &Set{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		IsPublic:    isPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	set.SetCards(cards)

	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// SetCards replaces the set's cards, assigning ids and positions.
func (s *Set) SetCards(cards []Card) {
	s.Cards = make([]Card, len(cards))
	for i, c := range cards {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.SetID = s.ID
		c.Position = i
		c.Term = strings.TrimSpace(c.Term)
		c.Definition = strings.TrimSpace(c.Definition)
		s.Cards[i] = c
	}
}

// Validate checks if the Set has valid data.
func (s *Set) Validate() error {
	if s.UserID == uuid.Nil {
		return NewValidationError("user_id", "cannot be empty", ErrEmptySetUserID)
	}
	if s.Title == "" {
		return NewValidationError("title", "cannot be empty", ErrEmptySetTitle)
	}
	if len(s.Title) > MaxSetTitleLength {
		return NewValidationError("title", "too long", ErrSetTitleLength)
	}
	for i, c := range s.Cards {
		if c.Term == "" {
			return NewValidationError(fmt.Sprintf("cards[%d].term", i), "cannot be empty", ErrEmptyCardTerm)
		}
		if c.Definition == "" {
			return NewValidationError(
				fmt.Sprintf("cards[%d].definition", i),
				"cannot be empty",
				ErrEmptyCardDef,
			)
		}
	}
	return nil
}

// VisibleTo reports whether userID may read the set.
func (s *Set) VisibleTo(userID uuid.UUID) bool {
	return s.IsPublic || s.UserID == userID
}
