package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AddPoints inserts a batch of points of interest in one transaction so a
// partial failure leaves no orphan rows behind.
func (s *Store) AddPoints(ctx context.Context, points []PointOfInterest) error {
	if len(points) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add points: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(
		ctx,
		`INSERT INTO points_of_interest (
            id, package_id, name, description, description_text, value,
            file_json, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare add points: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, point := range points {
		fileJSON, encodeErr := encodeJSON(point.File)
		if encodeErr != nil {
			return fmt.Errorf("encode point file: %w", encodeErr)
		}
		if _, execErr := stmt.ExecContext(
			ctx,
			point.ID,
			point.PackageID,
			nullableString(point.Name),
			nullableString(point.Description),
			nullableString(point.DescriptionText),
			point.Value,
			fileJSON,
			now,
		); execErr != nil {
			return fmt.Errorf("insert point %s: %w", point.ID, execErr)
		}
	}
	return tx.Commit()
}

// PointsForPackage returns the points of interest attached to a package,
// ordered by timecode.
func (s *Store) PointsForPackage(ctx context.Context, packageID int64) ([]PointOfInterest, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, package_id, name, description, description_text, value, file_json
         FROM points_of_interest WHERE package_id = ? ORDER BY value, id`,
		packageID,
	)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	var points []PointOfInterest
	for rows.Next() {
		point, scanErr := scanPoint(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		points = append(points, point)
	}
	return points, rows.Err()
}

// GetPoint fetches one point of interest by identifier. Returns false when
// the record does not exist.
func (s *Store) GetPoint(ctx context.Context, id string) (PointOfInterest, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, package_id, name, description, description_text, value, file_json
         FROM points_of_interest WHERE id = ?`,
		id,
	)
	point, err := scanPoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PointOfInterest{}, false, nil
	}
	if err != nil {
		return PointOfInterest{}, false, fmt.Errorf("get point: %w", err)
	}
	return point, true, nil
}

// ReassignPoints moves every point from one package to another. Used when
// a merge adopts the losing package's markers.
func (s *Store) ReassignPoints(ctx context.Context, fromPackageID, toPackageID int64) error {
	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE points_of_interest SET package_id = ? WHERE package_id = ?`,
		toPackageID,
		fromPackageID,
	); err != nil {
		return fmt.Errorf("reassign points: %w", err)
	}
	return nil
}

// RemovePointsForPackage deletes every point attached to a package.
func (s *Store) RemovePointsForPackage(ctx context.Context, packageID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM points_of_interest WHERE package_id = ?`, packageID); err != nil {
		return fmt.Errorf("remove points: %w", err)
	}
	return nil
}

func scanPoint(scanner interface{ Scan(dest ...any) error }) (PointOfInterest, error) {
	var (
		point    PointOfInterest
		name     sql.NullString
		desc     sql.NullString
		descText sql.NullString
		fileJSON sql.NullString
	)
	if err := scanner.Scan(&point.ID, &point.PackageID, &name, &desc, &descText, &point.Value, &fileJSON); err != nil {
		return PointOfInterest{}, err
	}
	point.Name = name.String
	point.Description = desc.String
	point.DescriptionText = descText.String
	if fileJSON.Valid && fileJSON.String != "" {
		var file FileInfo
		if err := decodeJSON(fileJSON.String, &file); err != nil {
			return PointOfInterest{}, fmt.Errorf("decode point file: %w", err)
		}
		point.File = &file
	}
	return point, nil
}
