package store

import "context"

// Persona is the plant a user talks to, plus how the user wants to be addressed.
type Persona struct {
	ID      int64
	UserID  int64
	PlantID int64

	// Nickname is how the plant addresses the user.
	Nickname    string
	PlantName   string
	Species     string
	Personality string

	CreatedTs int64
	UpdatedTs int64
}

// UpsertPersona creates or replaces the persona of a (user, plant) pair.
type UpsertPersona struct {
	UserID      int64
	PlantID     int64
	Nickname    string
	PlantName   string
	Species     string
	Personality string
}

// FindPersona specifies the conditions for finding personas.
type FindPersona struct {
	UserID  *int64
	PlantID *int64
}

func (s *Store) UpsertPersona(ctx context.Context, upsert *UpsertPersona) (*Persona, error) {
	return s.driver.UpsertPersona(ctx, upsert)
}

func (s *Store) ListPersonas(ctx context.Context, find *FindPersona) ([]*Persona, error) {
	return s.driver.ListPersonas(ctx, find)
}

// GetPersona returns the persona of a (user, plant) pair, or nil if none is set.
func (s *Store) GetPersona(ctx context.Context, userID, plantID int64) (*Persona, error) {
	list, err := s.driver.ListPersonas(ctx, &FindPersona{UserID: &userID, PlantID: &plantID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
