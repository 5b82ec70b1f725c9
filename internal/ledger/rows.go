package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

type recordRow struct {
	Hash        string `gorm:"primaryKey"`
	EntryType   string
	Body        []byte
	Compression string
	Size        int
	Created     int64 `gorm:"column:created_at"`
}

func (recordRow) TableName() string { return "records" }

type recordDeletionRow struct {
	Seq       uint64 `gorm:"primaryKey;autoIncrement"`
	ID        string
	Target    string
	Timestamp int64
}

func (recordDeletionRow) TableName() string { return "record_deletions" }

type linkRow struct {
	Seq       uint64 `gorm:"primaryKey;autoIncrement"`
	ID        string
	Base      string
	Target    string
	LinkType  string
	Tag       []byte
	Timestamp int64
}

func (linkRow) TableName() string { return "links" }

type linkDeletionRow struct {
	Seq       uint64 `gorm:"primaryKey;autoIncrement"`
	ID        string
	LinkID    string
	Timestamp int64
}

func (linkDeletionRow) TableName() string { return "link_deletions" }

func (row *recordRow) record() (*Record, error) {
	hash, err := ParseHash(row.Hash)
	if err != nil {
		return nil, err
	}

	body, err := decompressBody(row.Body, row.Compression, row.Size)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", row.Hash, err)
	}

	return &Record{
		Hash:      hash,
		EntryType: EntryType(row.EntryType),
		Body:      body,
		CreatedAt: Timestamp(row.Created),
	}, nil
}

func (row *recordDeletionRow) deletion() (Deletion, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return Deletion{}, fmt.Errorf("parsing deletion id %q: %w", row.ID, err)
	}
	target, err := ParseHash(row.Target)
	if err != nil {
		return Deletion{}, err
	}

	return Deletion{ID: id, Target: target, Timestamp: Timestamp(row.Timestamp)}, nil
}

func (row *linkRow) link() (Link, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return Link{}, fmt.Errorf("parsing link id %q: %w", row.ID, err)
	}
	base, err := ParseHash(row.Base)
	if err != nil {
		return Link{}, err
	}
	target, err := ParseHash(row.Target)
	if err != nil {
		return Link{}, err
	}

	return Link{
		ID:        id,
		Base:      base,
		Target:    target,
		Type:      LinkType(row.LinkType),
		Tag:       row.Tag,
		Timestamp: Timestamp(row.Timestamp),
	}, nil
}

func (row *linkDeletionRow) linkDeletion() (LinkDeletion, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return LinkDeletion{}, fmt.Errorf("parsing link deletion id %q: %w", row.ID, err)
	}
	linkID, err := uuid.Parse(row.LinkID)
	if err != nil {
		return LinkDeletion{}, fmt.Errorf("parsing link id %q: %w", row.LinkID, err)
	}

	return LinkDeletion{ID: id, LinkID: linkID, Timestamp: Timestamp(row.Timestamp)}, nil
}
