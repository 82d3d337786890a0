package preset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for channel preset persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	GetByID(ctx context.Context, id string) (*ChannelPreset, error)
	GetByChannel(ctx context.Context, deviceType DeviceType, channel string) (*ChannelPreset, error)
	List(ctx context.Context) ([]ChannelPreset, error)
	ListByDeviceType(ctx context.Context, deviceType DeviceType) ([]ChannelPreset, error)
	Create(ctx context.Context, p *ChannelPreset) error
	Update(ctx context.Context, p *ChannelPreset) error
	Delete(ctx context.Context, id string) error

	// RecordUse atomically increments the preset's usage count and
	// stamps the use time.
	RecordUse(ctx context.Context, id string, usedAt time.Time) error
}

// presetColumns is the SELECT column list for preset queries.
const presetColumns = `id, name, channel, device_type, network,
			usage_count, last_used_at, position, created_at, updated_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a preset by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*ChannelPreset, error) {
	query := `SELECT ` + presetColumns + ` FROM channel_presets WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	p, err := scanPresetRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPresetNotFound
		}
		return nil, fmt.Errorf("querying preset by id: %w", err)
	}
	return p, nil
}

// GetByChannel retrieves the preset vetting a channel number for a
// tuner family. Used by the allocator's round-trip check.
func (r *SQLiteRepository) GetByChannel(ctx context.Context, deviceType DeviceType, channel string) (*ChannelPreset, error) {
	query := `SELECT ` + presetColumns + ` FROM channel_presets WHERE device_type = ? AND channel = ?`

	row := r.db.QueryRowContext(ctx, query, string(deviceType), channel)
	p, err := scanPresetRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPresetNotFound
		}
		return nil, fmt.Errorf("querying preset by channel: %w", err)
	}
	return p, nil
}

// List retrieves all presets in operator display order.
func (r *SQLiteRepository) List(ctx context.Context) ([]ChannelPreset, error) {
	query := `SELECT ` + presetColumns + ` FROM channel_presets ORDER BY position, name`
	return r.queryPresets(ctx, query)
}

// ListByDeviceType retrieves all presets for one tuner family.
func (r *SQLiteRepository) ListByDeviceType(ctx context.Context, deviceType DeviceType) ([]ChannelPreset, error) {
	query := `SELECT ` + presetColumns + ` FROM channel_presets WHERE device_type = ? ORDER BY position, name`
	return r.queryPresets(ctx, query, string(deviceType))
}

// Create inserts a new preset.
func (r *SQLiteRepository) Create(ctx context.Context, p *ChannelPreset) error {
	if err := p.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := `
		INSERT INTO channel_presets (
			id, name, channel, device_type, network,
			usage_count, last_used_at, position, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.Channel,
		string(p.DeviceType),
		nullableString(p.Network),
		p.UsageCount,
		nullableTime(p.LastUsedAt),
		p.Position,
		p.CreatedAt.Format(time.RFC3339),
		p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrPresetExists
		}
		return fmt.Errorf("inserting preset: %w", err)
	}
	return nil
}

// Update modifies an existing preset's descriptive fields. Usage
// counters are owned by RecordUse and deliberately not written here,
// so a stale API payload cannot roll the ranking backwards.
func (r *SQLiteRepository) Update(ctx context.Context, p *ChannelPreset) error {
	if err := p.Validate(); err != nil {
		return err
	}

	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE channel_presets SET
			name = ?, channel = ?, device_type = ?, network = ?,
			position = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		p.Name,
		p.Channel,
		string(p.DeviceType),
		nullableString(p.Network),
		p.Position,
		p.UpdatedAt.Format(time.RFC3339),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating preset: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPresetNotFound
	}
	return nil
}

// Delete removes a preset by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM channel_presets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting preset: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPresetNotFound
	}
	return nil
}

// RecordUse atomically increments usage_count and stamps last_used_at.
// The increment happens inside the database so concurrent tune events
// cannot lose updates to a read-modify-write race.
func (r *SQLiteRepository) RecordUse(ctx context.Context, id string, usedAt time.Time) error {
	query := `
		UPDATE channel_presets SET
			usage_count = usage_count + 1,
			last_used_at = ?,
			updated_at = ?
		WHERE id = ?`

	stamp := usedAt.UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx, query, stamp, stamp, id)
	if err != nil {
		return fmt.Errorf("recording preset use: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPresetNotFound
	}
	return nil
}

// queryPresets executes a query and returns a slice of presets.
func (r *SQLiteRepository) queryPresets(ctx context.Context, query string, args ...any) ([]ChannelPreset, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying presets: %w", err)
	}
	defer rows.Close()

	var presets []ChannelPreset
	for rows.Next() {
		p, scanErr := scanPresetRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning preset: %w", scanErr)
		}
		presets = append(presets, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating presets: %w", err)
	}
	return presets, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPresetRow(scanner rowScanner) (*ChannelPreset, error) {
	var p ChannelPreset
	var deviceType string
	var network, lastUsedAt sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&p.ID,
		&p.Name,
		&p.Channel,
		&deviceType,
		&network,
		&p.UsageCount,
		&lastUsedAt,
		&p.Position,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.DeviceType = DeviceType(deviceType)
	if network.Valid {
		p.Network = network.String
	}
	if lastUsedAt.Valid {
		if t, parseErr := time.Parse(time.RFC3339, lastUsedAt.String); parseErr == nil {
			p.LastUsedAt = &t
		}
	}
	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		p.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		p.UpdatedAt = t
	}

	return &p, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
