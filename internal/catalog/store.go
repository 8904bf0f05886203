package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"packflow/internal/config"
	"packflow/internal/services"
)

// Store manages package persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database and applies the
// schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "catalog.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Insert persists a new package record and assigns its identifier.
func (s *Store) Insert(ctx context.Context, pkg *Package) error {
	if pkg == nil {
		return errors.New("package is nil")
	}
	now := time.Now().UTC()
	if pkg.CreatedAt.IsZero() {
		pkg.CreatedAt = now
	}
	pkg.UpdatedAt = now

	mediaIDs, err := encodeJSON(pkg.MediaIDs)
	if err != nil {
		return fmt.Errorf("encode media ids: %w", err)
	}
	metadata, err := encodeJSON(pkg.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	timecodes, err := encodeJSON(pkg.Timecodes)
	if err != nil {
		return fmt.Errorf("encode timecodes: %w", err)
	}
	tags, err := encodeJSON(pkg.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO packages (
            state, last_state, last_transition, error_code,
            original_file_name, original_package_path, package_type,
            platform_type, title, date, media_ids, metadata_json, link,
            thumbnail, timecodes_json, tags_json, locked_by, merge_required,
            removed, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(pkg.State),
		nullableString(string(pkg.LastState)),
		nullableString(string(pkg.LastTransition)),
		int(pkg.ErrorCode),
		pkg.OriginalFileName,
		nullableString(pkg.OriginalPackagePath),
		nullableString(pkg.PackageType),
		nullableString(pkg.Type),
		nullableString(pkg.Title),
		nullableTime(pkg.Date),
		mediaIDs,
		metadata,
		nullableString(pkg.Link),
		nullableString(pkg.Thumbnail),
		timecodes,
		tags,
		pkg.LockedByID,
		boolToInt(pkg.MergeRequired),
		boolToInt(pkg.Removed),
		pkg.CreatedAt.Format(time.RFC3339Nano),
		pkg.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert package: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	pkg.ID = id
	return nil
}

// GetByID fetches a package record by identifier. Returns nil when the
// record does not exist.
func (s *Store) GetByID(ctx context.Context, id int64) (*Package, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+packageColumns+` FROM packages WHERE id = ?`, id)
	pkg, err := scanPackage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get package: %w", err)
	}
	return pkg, nil
}

// SameName returns live packages sharing an original file name, excluding
// the given identifier, ordered oldest first.
func (s *Store) SameName(ctx context.Context, name string, excludeID int64) ([]*Package, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+packageColumns+` FROM packages
         WHERE original_file_name = ? AND id != ? AND removed = 0
         ORDER BY created_at, id`,
		name,
		excludeID,
	)
	if err != nil {
		return nil, fmt.Errorf("query same name: %w", err)
	}
	defer rows.Close()
	return collectPackages(rows)
}

// LockedBy returns the package locked by the given package, or nil when
// none exists. Ownership is decided by the lock field alone so a target
// that moved state after being locked is still found.
func (s *Store) LockedBy(ctx context.Context, name string, lockerID int64) (*Package, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+packageColumns+` FROM packages
         WHERE original_file_name = ? AND locked_by = ? AND removed = 0
         ORDER BY id LIMIT 1`,
		name,
		lockerID,
	)
	pkg, err := scanPackage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query locked package: %w", err)
	}
	return pkg, nil
}

// HasPackageForPath reports whether an in-flight package still owns the
// given original file path. The ingest scanner uses this to avoid
// re-ingesting a file across daemon restarts. Finished packages have
// consumed their file, so a same-named re-deposit ingests as a new
// package and merges.
func (s *Store) HasPackageForPath(ctx context.Context, path string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM packages
         WHERE original_package_path = ? AND removed = 0 AND state NOT IN (?, ?)`,
		path,
		string(StateReady),
		string(StateWaitingForUpload),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query package for path: %w", err)
	}
	return count > 0, nil
}

// List returns packages filtered by state set, or all when no state is
// provided, ordered by creation time.
func (s *Store) List(ctx context.Context, states ...State) ([]*Package, error) {
	baseQuery := `SELECT ` + packageColumns + ` FROM packages`
	orderClause := ` ORDER BY created_at, id`

	var (
		rows *sql.Rows
		err  error
	)
	if len(states) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(states))
		args := make([]any, len(states))
		for i, state := range states {
			args[i] = string(state)
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE state IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()
	return collectPackages(rows)
}

// Resumable returns live packages that still need pipeline advancement:
// anything not terminal and not parked waiting for a merge lock release.
func (s *Store) Resumable(ctx context.Context) ([]*Package, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+packageColumns+` FROM packages
         WHERE removed = 0 AND state NOT IN (?, ?, ?, ?)
         ORDER BY created_at, id`,
		string(StateReady),
		string(StateWaitingForUpload),
		string(StateWaitingForMerge),
		string(StateError),
	)
	if err != nil {
		return nil, fmt.Errorf("query resumable packages: %w", err)
	}
	defer rows.Close()
	return collectPackages(rows)
}

// Update persists all mutable fields of an existing package record.
func (s *Store) Update(ctx context.Context, pkg *Package) error {
	if pkg == nil {
		return errors.New("package is nil")
	}
	pkg.UpdatedAt = time.Now().UTC()

	mediaIDs, err := encodeJSON(pkg.MediaIDs)
	if err != nil {
		return fmt.Errorf("encode media ids: %w", err)
	}
	metadata, err := encodeJSON(pkg.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	timecodes, err := encodeJSON(pkg.Timecodes)
	if err != nil {
		return fmt.Errorf("encode timecodes: %w", err)
	}
	tags, err := encodeJSON(pkg.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`UPDATE packages SET
            state = ?, last_state = ?, last_transition = ?, error_code = ?,
            original_file_name = ?, original_package_path = ?, package_type = ?,
            platform_type = ?, title = ?, date = ?, media_ids = ?,
            metadata_json = ?, link = ?, thumbnail = ?, timecodes_json = ?,
            tags_json = ?, locked_by = ?, merge_required = ?, removed = ?,
            updated_at = ?
         WHERE id = ?`,
		string(pkg.State),
		nullableString(string(pkg.LastState)),
		nullableString(string(pkg.LastTransition)),
		int(pkg.ErrorCode),
		pkg.OriginalFileName,
		nullableString(pkg.OriginalPackagePath),
		nullableString(pkg.PackageType),
		nullableString(pkg.Type),
		nullableString(pkg.Title),
		nullableTime(pkg.Date),
		mediaIDs,
		metadata,
		nullableString(pkg.Link),
		nullableString(pkg.Thumbnail),
		timecodes,
		tags,
		pkg.LockedByID,
		boolToInt(pkg.MergeRequired),
		boolToInt(pkg.Removed),
		pkg.UpdatedAt.Format(time.RFC3339Nano),
		pkg.ID,
	)
	if err != nil {
		return fmt.Errorf("update package: %w", err)
	}
	return nil
}

// UpdateState persists the current display state.
func (s *Store) UpdateState(ctx context.Context, id int64, state State) error {
	return s.setField(ctx, id, "state", string(state))
}

// UpdateLastState persists the crash-recovery resume state.
func (s *Store) UpdateLastState(ctx context.Context, id int64, state State) error {
	return s.setField(ctx, id, "last_state", string(state))
}

// UpdateLastTransition persists the next scheduled transition.
func (s *Store) UpdateLastTransition(ctx context.Context, id int64, transition Transition) error {
	return s.setField(ctx, id, "last_transition", string(transition))
}

// UpdateErrorCode persists the last fatal error classification.
func (s *Store) UpdateErrorCode(ctx context.Context, id int64, code services.Code) error {
	return s.setField(ctx, id, "error_code", int(code))
}

// UpdateLink persists the public playback URL.
func (s *Store) UpdateLink(ctx context.Context, id int64, link string) error {
	return s.setField(ctx, id, "link", nullableString(link))
}

// UpdateThumbnail persists the thumbnail URL.
func (s *Store) UpdateThumbnail(ctx context.Context, id int64, thumbnail string) error {
	return s.setField(ctx, id, "thumbnail", nullableString(thumbnail))
}

// UpdateTitle persists the display title.
func (s *Store) UpdateTitle(ctx context.Context, id int64, title string) error {
	return s.setField(ctx, id, "title", nullableString(title))
}

// UpdateDate persists the media date.
func (s *Store) UpdateDate(ctx context.Context, id int64, date time.Time) error {
	return s.setField(ctx, id, "date", nullableTime(date))
}

// UpdateType persists the target platform type.
func (s *Store) UpdateType(ctx context.Context, id int64, platformType string) error {
	return s.setField(ctx, id, "platform_type", nullableString(platformType))
}

// UpdateMediaIDs persists the ordered remote media identifier list.
func (s *Store) UpdateMediaIDs(ctx context.Context, id int64, mediaIDs []string) error {
	encoded, err := encodeJSON(mediaIDs)
	if err != nil {
		return fmt.Errorf("encode media ids: %w", err)
	}
	return s.setField(ctx, id, "media_ids", encoded)
}

// UpdateMetadata persists the package metadata descriptor.
func (s *Store) UpdateMetadata(ctx context.Context, id int64, metadata *Metadata) error {
	encoded, err := encodeJSON(metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return s.setField(ctx, id, "metadata_json", encoded)
}

// UpdateUploadResult persists the remote media id list and the playback
// link in one update so a failure leaves both untouched.
func (s *Store) UpdateUploadResult(ctx context.Context, id int64, mediaIDs []string, link string) error {
	encoded, err := encodeJSON(mediaIDs)
	if err != nil {
		return fmt.Errorf("encode media ids: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE packages SET media_ids = ?, link = ?, updated_at = ? WHERE id = ?`,
		encoded,
		nullableString(link),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("update upload result: %w", err)
	}
	return nil
}

// UpdateMergeRequired persists the merge bookkeeping flag.
func (s *Store) UpdateMergeRequired(ctx context.Context, id int64, required bool) error {
	return s.setField(ctx, id, "merge_required", boolToInt(required))
}

// UpdatePoints persists tag references and timecodes in one update so a
// failure leaves both untouched.
func (s *Store) UpdatePoints(ctx context.Context, id int64, tags []string, timecodes []Timecode) error {
	encodedTags, err := encodeJSON(tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	encodedTimecodes, err := encodeJSON(timecodes)
	if err != nil {
		return fmt.Errorf("encode timecodes: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE packages SET tags_json = ?, timecodes_json = ?, updated_at = ? WHERE id = ?`,
		encodedTags,
		encodedTimecodes,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("update points: %w", err)
	}
	return nil
}

// Lock atomically marks a package as waiting for a merge driven by lockerID.
// Returns false when another package already holds the lock.
func (s *Store) Lock(ctx context.Context, id, lockerID int64) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE packages SET locked_by = ?, state = ?, updated_at = ?
         WHERE id = ? AND (locked_by = 0 OR locked_by = ?)`,
		lockerID,
		string(StateWaitingForMerge),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		lockerID,
	)
	if err != nil {
		return false, fmt.Errorf("lock package: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ReleaseLock clears the merge lock and restores the package state.
func (s *Store) ReleaseLock(ctx context.Context, id int64, restored State) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE packages SET locked_by = 0, state = ?, updated_at = ? WHERE id = ?`,
		string(restored),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("release package: %w", err)
	}
	return nil
}

// Remove tombstones a package record and deletes it together with its
// points of interest.
func (s *Store) Remove(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM points_of_interest WHERE package_id = ?`, id); err != nil {
		return fmt.Errorf("remove points: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM packages WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove package: %w", err)
	}
	return tx.Commit()
}

// RetryErrored moves errored packages back to their last good state so the
// workflow re-enters the pipeline at the persisted resume point. With no
// ids, every errored package is retried.
func (s *Store) RetryErrored(ctx context.Context, ids ...int64) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE packages SET state = last_state, error_code = 0, updated_at = ? WHERE state = ?`,
			timestamp,
			string(StateError),
		)
		if err != nil {
			return 0, fmt.Errorf("retry errored packages: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, timestamp, string(StateError))
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE packages SET state = last_state, error_code = 0, updated_at = ?
         WHERE state = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("retry selected packages: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of packages grouped by state.
func (s *Store) Stats(ctx context.Context) (map[State]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(1) FROM packages GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("package stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[State]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		stats[State(state)] = count
	}
	return stats, rows.Err()
}

func (s *Store) setField(ctx context.Context, id int64, column string, value any) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE packages SET `+column+` = ?, updated_at = ? WHERE id = ?`,
		value,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	return nil
}

const packageColumns = "id, state, last_state, last_transition, error_code, original_file_name, original_package_path, package_type, platform_type, title, date, media_ids, metadata_json, link, thumbnail, timecodes_json, tags_json, locked_by, merge_required, removed, created_at, updated_at"

func collectPackages(rows *sql.Rows) ([]*Package, error) {
	var packages []*Package
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}
	return packages, rows.Err()
}

func scanPackage(scanner interface{ Scan(dest ...any) error }) (*Package, error) {
	var (
		id            int64
		state         string
		lastState     sql.NullString
		lastTrans     sql.NullString
		errorCode     int64
		name          string
		path          sql.NullString
		packageType   sql.NullString
		platformType  sql.NullString
		title         sql.NullString
		dateRaw       sql.NullString
		mediaIDs      sql.NullString
		metadata      sql.NullString
		link          sql.NullString
		thumbnail     sql.NullString
		timecodes     sql.NullString
		tags          sql.NullString
		lockedBy      int64
		mergeRequired int64
		removed       int64
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id, &state, &lastState, &lastTrans, &errorCode, &name, &path,
		&packageType, &platformType, &title, &dateRaw, &mediaIDs, &metadata,
		&link, &thumbnail, &timecodes, &tags, &lockedBy, &mergeRequired,
		&removed, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}

	pkg := &Package{
		ID:                  id,
		State:               State(state),
		LastState:           State(lastState.String),
		LastTransition:      Transition(lastTrans.String),
		ErrorCode:           services.Code(errorCode),
		OriginalFileName:    name,
		OriginalPackagePath: path.String,
		PackageType:         packageType.String,
		Type:                platformType.String,
		Title:               title.String,
		Link:                link.String,
		Thumbnail:           thumbnail.String,
		LockedByID:          lockedBy,
		MergeRequired:       mergeRequired != 0,
		Removed:             removed != 0,
	}

	if err := decodeJSON(mediaIDs.String, &pkg.MediaIDs); err != nil {
		return nil, fmt.Errorf("decode media ids: %w", err)
	}
	if err := decodeJSON(metadata.String, &pkg.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if err := decodeJSON(timecodes.String, &pkg.Timecodes); err != nil {
		return nil, fmt.Errorf("decode timecodes: %w", err)
	}
	if err := decodeJSON(tags.String, &pkg.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}

	if date, err := parseTimeString(dateRaw.String); err == nil {
		pkg.Date = date
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		pkg.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		pkg.UpdatedAt = updated
	}
	return pkg, nil
}

func encodeJSON(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string:
		if v == nil {
			return nil, nil
		}
	case []Timecode:
		if v == nil {
			return nil, nil
		}
	case *Metadata:
		if v == nil {
			return nil, nil
		}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func decodeJSON(raw string, target any) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), target)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
