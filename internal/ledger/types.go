package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/monorkin/living-power/internal/codec"
)

// MaxRecordBytes is the hard ceiling on a record's encoded body. The
// store refuses anything larger.
const MaxRecordBytes = 4_000_000

type EntryType string

type LinkType string

// EntryTypePath is the entry type of path anchors. Paths are owned by
// the store so every caller derives identical anchor hashes.
const EntryTypePath EntryType = "path"

// LinkTypeUpdate links an original record to each record that
// supersedes it.
const LinkTypeUpdate LinkType = "update"

// Timestamp is a signed count of microseconds since the Unix epoch.
type Timestamp int64

func FromTime(t time.Time) Timestamp {
	return Timestamp(t.UnixMicro())
}

func (timestamp Timestamp) Time() time.Time {
	return time.UnixMicro(int64(timestamp)).UTC()
}

type Record struct {
	Hash      Hash
	EntryType EntryType
	Body      []byte
	CreatedAt Timestamp
}

// Decode unmarshals the record body into v.
func (record *Record) Decode(v any) error {
	return codec.Unmarshal(record.Body, v)
}

type Link struct {
	ID        uuid.UUID
	Base      Hash
	Target    Hash
	Type      LinkType
	Tag       []byte
	Timestamp Timestamp
}

// Deletion marks a record as deleted. The record itself stays readable.
type Deletion struct {
	ID        uuid.UUID
	Target    Hash
	Timestamp Timestamp
}

type LinkDeletion struct {
	ID        uuid.UUID
	LinkID    uuid.UUID
	Timestamp Timestamp
}

// LinkDetails pairs a link with every deletion recorded against it.
type LinkDetails struct {
	Link      Link
	Deletions []LinkDeletion
}

func (details LinkDetails) Deleted() bool {
	return len(details.Deletions) > 0
}

// Path is a deterministic anchor built from string components. Its hash
// is known without touching the store, which is what makes lookups by
// external identifiers possible.
type Path []string

func NewPath(components ...string) Path {
	return Path(components)
}

func (path Path) String() string {
	return strings.Join(path, ".")
}

func (path Path) body() []byte {
	body, err := codec.Marshal([]string(path))
	if err != nil {
		panic("ledger: encoding path: " + err.Error())
	}
	return body
}

func (path Path) Hash() Hash {
	return HashEntry(EntryTypePath, path.body())
}
