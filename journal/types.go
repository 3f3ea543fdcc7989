package journal

import (
	"encoding/json"
	"time"
)

// Record is one successful scan: the decoded payload plus where and
// when it was captured. Offset is assigned by the journal on append.
type Record struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"device_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Offset    uint64    `json:"offset"`
}

func (r Record) Bytes() []byte {
	data, _ := json.Marshal(r)
	return data
}

// Journal is an append-only log of scan records.
type Journal interface {
	Append(record Record) (Record, error)
	Records(offset uint64) ([]Record, error)
	Close() error
}

// Sink publishes records to an external consumer, e.g. a broker topic.
// Publishing is best-effort from the scanner's point of view: a failed
// publish must never fail the scan.
type Sink interface {
	Publish(records ...Record) error
	Close() error
}
