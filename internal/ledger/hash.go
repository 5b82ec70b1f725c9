package ledger

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// HashBytes is the width of every record reference.
const HashBytes = 32

// Hash is the content-derived reference of a record: a keyed BLAKE3
// digest of the record's entry type and its encoded body.
type Hash [HashBytes]byte

// recordDomainKey separates record hashes from any other BLAKE3 use. The
// value is fixed: changing it changes every existing reference.
var recordDomainKey = [32]byte{
	'l', 'i', 'v', 'i', 'n', 'g', '-', 'p', 'o', 'w', 'e', 'r', '.', 'r', 'e', 'c',
	'o', 'r', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// HashEntry computes the reference of a record with the given type and
// encoded body.
func HashEntry(entryType EntryType, body []byte) Hash {
	hasher, err := blake3.NewKeyed(recordDomainKey[:])
	if err != nil {
		// Only fails for keys that are not 32 bytes long.
		panic("ledger: blake3 keyed hasher: " + err.Error())
	}

	hasher.Write([]byte(entryType))
	hasher.Write([]byte{0})
	hasher.Write(body)

	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}

func (hash Hash) String() string {
	return hex.EncodeToString(hash[:])
}

func (hash Hash) IsZero() bool {
	return hash == Hash{}
}

func (hash Hash) MarshalText() ([]byte, error) {
	return []byte(hash.String()), nil
}

func (hash *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*hash = parsed
	return nil
}

// ParseHash parses the 64-character hex form produced by Hash.String.
func ParseHash(hexString string) (Hash, error) {
	var hash Hash
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return hash, fmt.Errorf("parsing record hash: %w", err)
	}
	if len(decoded) != HashBytes {
		return hash, fmt.Errorf("record hash is %d bytes, want %d", len(decoded), HashBytes)
	}
	copy(hash[:], decoded)
	return hash, nil
}
