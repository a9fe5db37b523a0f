package repo

import (
	"context"
	"database/sql"

	"teleconsult/internal/domain"
)

func (r Repo) InsertConsultationFile(ctx context.Context, tx *sql.Tx, f domain.ConsultationFile) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO files_consultations(file_name,file_path,consultation_id,created_at) VALUES (?,?,?,?)`,
		f.FileName, f.FilePath, f.ConsultationID, f.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) InsertResponseFile(ctx context.Context, tx *sql.Tx, f domain.ResponseFile) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO files_responses(file_name,file_path,response_id,created_at) VALUES (?,?,?,?)`,
		f.FileName, f.FilePath, f.ResponseID, f.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) ListConsultationFiles(ctx context.Context, consultationID int64) ([]domain.ConsultationFile, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,file_name,file_path,consultation_id,created_at FROM files_consultations WHERE consultation_id=? ORDER BY id ASC`, consultationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ConsultationFile
	for rows.Next() {
		var f domain.ConsultationFile
		if err := rows.Scan(&f.ID, &f.FileName, &f.FilePath, &f.ConsultationID, &f.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

func (r Repo) ListResponseFiles(ctx context.Context, responseID int64) ([]domain.ResponseFile, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,file_name,file_path,response_id,created_at FROM files_responses WHERE response_id=? ORDER BY id ASC`, responseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ResponseFile
	for rows.Next() {
		var f domain.ResponseFile
		if err := rows.Scan(&f.ID, &f.FileName, &f.FilePath, &f.ResponseID, &f.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

func (r Repo) DeleteConsultationFile(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM files_consultations WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteConsultationFileByName removes an attachment addressed by its
// consultation and file name.
func (r Repo) DeleteConsultationFileByName(ctx context.Context, tx *sql.Tx, consultationID int64, fileName string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM files_consultations WHERE consultation_id=? AND file_name=?`, consultationID, fileName)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetConsultationFile(ctx context.Context, id int64) (domain.ConsultationFile, error) {
	var f domain.ConsultationFile
	err := r.DB.QueryRowContext(ctx, `SELECT id,file_name,file_path,consultation_id,created_at FROM files_consultations WHERE id=?`, id).
		Scan(&f.ID, &f.FileName, &f.FilePath, &f.ConsultationID, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return f, ErrNotFound
	}
	return f, err
}
