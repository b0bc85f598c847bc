package repo

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"contentplanner/internal/domain"
)

func (r Repo) InsertEquipment(ctx context.Context, tx *sql.Tx, e domain.Equipment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO equipments(id,name,category,created_at) VALUES (?,?,?,?)`,
		e.ID, e.Name, nullable(e.Category), formatTime(e.CreatedAt))
	return err
}

func (r Repo) GetEquipmentTx(ctx context.Context, tx *sql.Tx, id string) (domain.Equipment, error) {
	return scanEquipment(tx.QueryRowContext(ctx, `SELECT id,name,category,created_at FROM equipments WHERE id=?`, id))
}

func (r Repo) ListEquipments(ctx context.Context) ([]domain.Equipment, error) {
	query, args, err := toSQL("list equipments", sq.Select("id", "name", "category", "created_at").From("equipments").OrderBy("name ASC", "id ASC"))
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Equipment{}
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func scanEquipment(row scanner) (domain.Equipment, error) {
	var e domain.Equipment
	var category sql.NullString
	var createdAt string
	err := row.Scan(&e.ID, &e.Name, &category, &createdAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	if category.Valid {
		e.Category = category.String
	}
	e.CreatedAt, err = parseTime(createdAt)
	return e, err
}

func (r Repo) InsertResponsible(ctx context.Context, tx *sql.Tx, p domain.Responsible) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO responsibles(id,name,role,created_at) VALUES (?,?,?,?)`,
		p.ID, p.Name, nullable(p.Role), formatTime(p.CreatedAt))
	return err
}

func (r Repo) GetResponsibleTx(ctx context.Context, tx *sql.Tx, id string) (domain.Responsible, error) {
	return scanResponsible(tx.QueryRowContext(ctx, `SELECT id,name,role,created_at FROM responsibles WHERE id=?`, id))
}

func (r Repo) ListResponsibles(ctx context.Context) ([]domain.Responsible, error) {
	query, args, err := toSQL("list responsibles", sq.Select("id", "name", "role", "created_at").From("responsibles").OrderBy("name ASC", "id ASC"))
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Responsible{}
	for rows.Next() {
		p, err := scanResponsible(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func scanResponsible(row scanner) (domain.Responsible, error) {
	var p domain.Responsible
	var role sql.NullString
	var createdAt string
	err := row.Scan(&p.ID, &p.Name, &role, &createdAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if role.Valid {
		p.Role = role.String
	}
	p.CreatedAt, err = parseTime(createdAt)
	return p, err
}
