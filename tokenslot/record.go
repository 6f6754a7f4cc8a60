package tokenslot

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/apolloAuth/internal/codec"
)

const recordSchemaVersionCurrent = 1

var (
	// ErrUnavailable is returned when the backing medium cannot be read or written.
	ErrUnavailable = errors.New("token slot unavailable")
	// ErrCorruptRecord is returned when a persisted record cannot be decoded.
	ErrCorruptRecord = errors.New("token slot record corrupt")
)

// Record is the persisted form of a slot value.
type Record struct {
	Version uint8  `cbor:"1,keyasint"`
	Token   string `cbor:"2,keyasint"`
	SavedAt int64  `cbor:"3,keyasint"`
}

// EncodeRecord builds a current-version record for token and encodes it.
func EncodeRecord(token string, now time.Time) ([]byte, error) {
	return codec.Marshal(Record{
		Version: recordSchemaVersionCurrent,
		Token:   token,
		SavedAt: now.UnixMilli(),
	})
}

// DecodeRecord decodes data produced by [EncodeRecord].
func DecodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := codec.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if rec.Version == 0 || rec.Version > recordSchemaVersionCurrent {
		return Record{}, fmt.Errorf("%w: unsupported schema version %d", ErrCorruptRecord, rec.Version)
	}
	return rec, nil
}
