// Package ledger implements an append-only, content-addressed record
// store with typed links between records. Records are immutable and keyed
// by the hash of their content; links and deletions are appended and never
// rewritten. Every mutation is submitted to a Validator first.
package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/monorkin/living-power/internal/clock"
	"github.com/monorkin/living-power/internal/codec"
)

type Store struct {
	db        *gorm.DB
	validator Validator
	clock     clock.Clock
	logger    *slog.Logger
}

type Option func(*Store)

func WithClock(c clock.Clock) Option {
	return func(store *Store) {
		store.clock = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(store *Store) {
		store.logger = logger
	}
}

// NewStore wraps a migrated database. The validator is consulted before
// every mutation.
func NewStore(db *gorm.DB, validator Validator, options ...Option) *Store {
	store := &Store{
		db:        db,
		validator: validator,
		clock:     clock.Real(),
		logger:    slog.Default(),
	}

	for _, option := range options {
		option(store)
	}

	return store
}

func (store *Store) now() Timestamp {
	return FromTime(store.clock.Now())
}

func (store *Store) validate(ctx context.Context, op Op) error {
	verdict, err := store.validator.Validate(ctx, op, store)
	if err != nil {
		return fmt.Errorf("validating %s: %w", op.opName(), err)
	}

	if !verdict.IsValid() {
		return &ValidationError{Op: op.opName(), Reason: verdict.Reason()}
	}

	return nil
}

func encodeEntry(entryType EntryType, value any) (Record, error) {
	body, err := codec.Marshal(value)
	if err != nil {
		return Record{}, fmt.Errorf("encoding %s entry: %w", entryType, err)
	}

	if len(body) > MaxRecordBytes {
		return Record{}, fmt.Errorf("%w: %s entry is %d bytes, limit is %d", ErrRecordTooLarge, entryType, len(body), MaxRecordBytes)
	}

	return Record{
		Hash:      HashEntry(entryType, body),
		EntryType: entryType,
		Body:      body,
	}, nil
}

// Create validates and persists a new record, returning its reference.
// Creating a record whose content already exists is a no-op that returns
// the existing reference.
func (store *Store) Create(ctx context.Context, entryType EntryType, value any) (Hash, error) {
	record, err := encodeEntry(entryType, value)
	if err != nil {
		return Hash{}, err
	}

	record.CreatedAt = store.now()

	if err := store.validate(ctx, CreateEntry{Record: record}); err != nil {
		return Hash{}, err
	}

	if err := store.insertRecord(store.db.WithContext(ctx), record); err != nil {
		return Hash{}, err
	}

	store.logger.Debug("Record created", "hash", record.Hash, "entry_type", entryType, "size", len(record.Body))

	return record.Hash, nil
}

func (store *Store) insertRecord(db *gorm.DB, record Record) error {
	stored, compression := compressBody(record.Body)

	row := recordRow{
		Hash:        record.Hash.String(),
		EntryType:   string(record.EntryType),
		Body:        stored,
		Compression: compression,
		Size:        len(record.Body),
		Created:     int64(record.CreatedAt),
	}

	err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to store record %s: %w", record.Hash, err)
	}

	return nil
}

// EnsurePath persists the anchor record for path if it is not yet
// present and returns its hash.
func (store *Store) EnsurePath(ctx context.Context, path Path) (Hash, error) {
	hash := path.Hash()

	exists, err := store.Has(ctx, hash)
	if err != nil {
		return Hash{}, err
	}
	if exists {
		return hash, nil
	}

	created, err := store.Create(ctx, EntryTypePath, []string(path))
	if err != nil {
		return Hash{}, fmt.Errorf("failed to create path %s: %w", path, err)
	}

	return created, nil
}

// Get returns the record with the given hash, or nil when it has never
// been created. Deleted records are still returned.
func (store *Store) Get(ctx context.Context, hash Hash) (*Record, error) {
	var rows []recordRow

	err := store.db.WithContext(ctx).
		Where("hash = ?", hash.String()).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch record %s: %w", hash, err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	return rows[0].record()
}

func (store *Store) Has(ctx context.Context, hash Hash) (bool, error) {
	var count int64

	err := store.db.WithContext(ctx).
		Model(&recordRow{}).
		Where("hash = ?", hash.String()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up record %s: %w", hash, err)
	}

	return count > 0, nil
}

// Update records a new version of original. The original stays as it is;
// the new version is a separate record linked from it with an update link.
// The current validation policy rejects updates of every entry type; the
// write path serves entry types that allow versioning.
func (store *Store) Update(ctx context.Context, original Hash, entryType EntryType, value any) (Hash, error) {
	originalRecord, err := store.Get(ctx, original)
	if err != nil {
		return Hash{}, err
	}
	if originalRecord == nil {
		return Hash{}, fmt.Errorf("record %s: %w", original, ErrNotFound)
	}

	updated, err := encodeEntry(entryType, value)
	if err != nil {
		return Hash{}, err
	}
	updated.CreatedAt = store.now()

	err = store.validate(ctx, UpdateEntry{Original: *originalRecord, Updated: updated})
	if err != nil {
		return Hash{}, err
	}

	err = store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := store.insertRecord(tx, updated); err != nil {
			return err
		}

		_, err := store.insertLink(tx, original, updated.Hash, LinkTypeUpdate, nil)
		return err
	})
	if err != nil {
		return Hash{}, err
	}

	return updated.Hash, nil
}

// Delete marks the record as deleted and returns the id of the deletion.
// The record body is kept.
func (store *Store) Delete(ctx context.Context, hash Hash) (uuid.UUID, error) {
	record, err := store.Get(ctx, hash)
	if err != nil {
		return uuid.Nil, err
	}
	if record == nil {
		return uuid.Nil, fmt.Errorf("record %s: %w", hash, ErrNotFound)
	}

	if err := store.validate(ctx, DeleteEntry{Original: *record}); err != nil {
		return uuid.Nil, err
	}

	deletionID := uuid.New()
	row := recordDeletionRow{
		ID:        deletionID.String(),
		Target:    hash.String(),
		Timestamp: int64(store.now()),
	}

	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return uuid.Nil, fmt.Errorf("failed to delete record %s: %w", hash, err)
	}

	store.logger.Debug("Record deleted", "hash", hash, "deletion", deletionID)

	return deletionID, nil
}

// Deletions returns every deletion of the record, oldest first.
func (store *Store) Deletions(ctx context.Context, hash Hash) ([]Deletion, error) {
	var rows []recordDeletionRow

	err := store.db.WithContext(ctx).
		Where("target = ?", hash.String()).
		Order("timestamp ASC, seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deletions of %s: %w", hash, err)
	}

	deletions := make([]Deletion, 0, len(rows))
	for i := range rows {
		deletion, err := rows[i].deletion()
		if err != nil {
			return nil, err
		}
		deletions = append(deletions, deletion)
	}

	return deletions, nil
}

// CreateLink appends a typed link from base to target. Links are not
// content-addressed: creating the same link twice yields two links.
func (store *Store) CreateLink(ctx context.Context, base, target Hash, linkType LinkType, tag []byte) (uuid.UUID, error) {
	op := CreateLink{Base: base, Target: target, Type: linkType, Tag: tag}
	if err := store.validate(ctx, op); err != nil {
		return uuid.Nil, err
	}

	id, err := store.insertLink(store.db.WithContext(ctx), base, target, linkType, tag)
	if err != nil {
		return uuid.Nil, err
	}

	store.logger.Debug("Link created", "id", id, "type", linkType, "base", base, "target", target)

	return id, nil
}

func (store *Store) insertLink(db *gorm.DB, base, target Hash, linkType LinkType, tag []byte) (uuid.UUID, error) {
	id := uuid.New()

	row := linkRow{
		ID:        id.String(),
		Base:      base.String(),
		Target:    target.String(),
		LinkType:  string(linkType),
		Tag:       tag,
		Timestamp: int64(store.now()),
	}

	if err := db.Create(&row).Error; err != nil {
		return uuid.Nil, fmt.Errorf("failed to create %s link: %w", linkType, err)
	}

	return id, nil
}

func (store *Store) getLink(ctx context.Context, id uuid.UUID) (*Link, error) {
	var rows []linkRow

	err := store.db.WithContext(ctx).
		Where("id = ?", id.String()).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch link %s: %w", id, err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	link, err := rows[0].link()
	if err != nil {
		return nil, err
	}

	return &link, nil
}

// DeleteLink appends a deletion for the link with the given id.
func (store *Store) DeleteLink(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	link, err := store.getLink(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	if link == nil {
		return uuid.Nil, fmt.Errorf("link %s: %w", id, ErrNotFound)
	}

	if err := store.validate(ctx, DeleteLink{Link: *link}); err != nil {
		return uuid.Nil, err
	}

	deletionID := uuid.New()
	row := linkDeletionRow{
		ID:        deletionID.String(),
		LinkID:    id.String(),
		Timestamp: int64(store.now()),
	}

	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return uuid.Nil, fmt.Errorf("failed to delete link %s: %w", id, err)
	}

	store.logger.Debug("Link deleted", "id", id, "type", link.Type, "deletion", deletionID)

	return deletionID, nil
}

// Links returns the links of the given type from base that have not been
// deleted, in creation order.
func (store *Store) Links(ctx context.Context, base Hash, linkType LinkType) ([]Link, error) {
	var rows []linkRow

	err := store.db.WithContext(ctx).
		Where("base = ? AND link_type = ?", base.String(), string(linkType)).
		Where("NOT EXISTS (SELECT 1 FROM link_deletions WHERE link_deletions.link_id = links.id)").
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s links of %s: %w", linkType, base, err)
	}

	links := make([]Link, 0, len(rows))
	for i := range rows {
		link, err := rows[i].link()
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}

	return links, nil
}

// LinkDetails returns every link of the given type from base, deleted or
// not, each with the deletions recorded against it.
func (store *Store) LinkDetails(ctx context.Context, base Hash, linkType LinkType) ([]LinkDetails, error) {
	var rows []linkRow

	err := store.db.WithContext(ctx).
		Where("base = ? AND link_type = ?", base.String(), string(linkType)).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s links of %s: %w", linkType, base, err)
	}

	if len(rows) == 0 {
		return []LinkDetails{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	var deletionRows []linkDeletionRow
	err = store.db.WithContext(ctx).
		Where("link_id IN ?", ids).
		Order("timestamp ASC, seq ASC").
		Find(&deletionRows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch link deletions of %s: %w", base, err)
	}

	deletionsByLink := make(map[string][]LinkDeletion, len(deletionRows))
	for i := range deletionRows {
		deletion, err := deletionRows[i].linkDeletion()
		if err != nil {
			return nil, err
		}
		deletionsByLink[deletionRows[i].LinkID] = append(deletionsByLink[deletionRows[i].LinkID], deletion)
	}

	details := make([]LinkDetails, 0, len(rows))
	for i := range rows {
		link, err := rows[i].link()
		if err != nil {
			return nil, err
		}

		details = append(details, LinkDetails{
			Link:      link,
			Deletions: deletionsByLink[rows[i].ID],
		})
	}

	return details, nil
}
