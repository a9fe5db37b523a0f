package repo

import (
	"context"
	"database/sql"
	"time"

	"teleconsult/internal/domain"
)

func (r Repo) InsertSpeciality(ctx context.Context, name string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO specialities(name,created_at) VALUES (?,?)`,
		name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetSpeciality(ctx context.Context, id int64) (domain.Speciality, error) {
	var s domain.Speciality
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,created_at FROM specialities WHERE id=?`, id).Scan(&s.ID, &s.Name, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

func (r Repo) GetSpecialityByName(ctx context.Context, name string) (domain.Speciality, error) {
	var s domain.Speciality
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,created_at FROM specialities WHERE name=?`, name).Scan(&s.ID, &s.Name, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

func (r Repo) ListSpecialities(ctx context.Context) ([]domain.Speciality, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,created_at FROM specialities ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Speciality
	for rows.Next() {
		var s domain.Speciality
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// SeedSpecialities inserts any catalog names not already present.
func (r Repo) SeedSpecialities(ctx context.Context, names []string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, name := range names {
		if _, err := r.DB.ExecContext(ctx, `INSERT OR IGNORE INTO specialities(name,created_at) VALUES (?,?)`, name, now); err != nil {
			return err
		}
	}
	return nil
}
