package repo

import (
	"context"
	"database/sql"

	"teleconsult/internal/domain"
)

func (r Repo) InsertResponse(ctx context.Context, tx *sql.Tx, resp domain.Response) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO responses(content,consultation_id,doctor_id,rating,created_at)
VALUES (?,?,?,?,?)`,
		resp.Content, resp.ConsultationID, resp.DoctorID, nullableIntPtr(resp.Rating), resp.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const responseColumns = `id,content,consultation_id,doctor_id,rating,created_at`

func scanResponse(scan func(...any) error) (domain.Response, error) {
	var resp domain.Response
	var rating sql.NullInt64
	err := scan(&resp.ID, &resp.Content, &resp.ConsultationID, &resp.DoctorID, &rating, &resp.CreatedAt)
	if err == sql.ErrNoRows {
		return resp, ErrNotFound
	}
	if err != nil {
		return resp, err
	}
	if rating.Valid {
		n := int(rating.Int64)
		resp.Rating = &n
	}
	return resp, nil
}

func (r Repo) GetResponse(ctx context.Context, id int64) (domain.Response, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+responseColumns+` FROM responses WHERE id=?`, id)
	return scanResponse(row.Scan)
}

func (r Repo) GetResponseTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Response, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+responseColumns+` FROM responses WHERE id=?`, id)
	return scanResponse(row.Scan)
}

// GetResponseByConsultation returns the first response recorded for a
// consultation.
func (r Repo) GetResponseByConsultation(ctx context.Context, consultationID int64) (domain.Response, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+responseColumns+` FROM responses WHERE consultation_id=? ORDER BY id ASC LIMIT 1`, consultationID)
	return scanResponse(row.Scan)
}

func (r Repo) SetResponseRating(ctx context.Context, tx *sql.Tx, id int64, rating int) error {
	res, err := tx.ExecContext(ctx, `UPDATE responses SET rating=? WHERE id=?`, rating, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListResponsesForConsultation(ctx context.Context, consultationID int64) ([]domain.Response, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+responseColumns+` FROM responses WHERE consultation_id=? ORDER BY id ASC`, consultationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Response
	for rows.Next() {
		resp, err := scanResponse(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, resp)
	}
	return res, rows.Err()
}
