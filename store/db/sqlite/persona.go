package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/verdant/store"
)

// UpsertPersona inserts or updates the persona of a (user, plant) pair.
func (d *DB) UpsertPersona(ctx context.Context, upsert *store.UpsertPersona) (*store.Persona, error) {
	stmt := `
		INSERT INTO persona (user_id, plant_id, nickname, plant_name, species, personality)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, plant_id) DO UPDATE SET
			nickname = excluded.nickname,
			plant_name = excluded.plant_name,
			species = excluded.species,
			personality = excluded.personality,
			updated_ts = strftime('%s', 'now')
		RETURNING id, user_id, plant_id, nickname, plant_name, species, personality, created_ts, updated_ts
	`
	var p store.Persona
	err := d.db.QueryRowContext(ctx, stmt,
		upsert.UserID,
		upsert.PlantID,
		upsert.Nickname,
		upsert.PlantName,
		upsert.Species,
		upsert.Personality,
	).Scan(
		&p.ID,
		&p.UserID,
		&p.PlantID,
		&p.Nickname,
		&p.PlantName,
		&p.Species,
		&p.Personality,
		&p.CreatedTs,
		&p.UpdatedTs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert persona")
	}
	return &p, nil
}

// ListPersonas lists personas.
func (d *DB) ListPersonas(ctx context.Context, find *store.FindPersona) ([]*store.Persona, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.PlantID != nil {
		where, args = append(where, "plant_id = ?"), append(args, *find.PlantID)
	}

	query := `SELECT id, user_id, plant_id, nickname, plant_name, species, personality, created_ts, updated_ts
		FROM persona
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list personas")
	}
	defer rows.Close()

	list := []*store.Persona{}
	for rows.Next() {
		var p store.Persona
		if err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.PlantID,
			&p.Nickname,
			&p.PlantName,
			&p.Species,
			&p.Personality,
			&p.CreatedTs,
			&p.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan persona")
		}
		list = append(list, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}
