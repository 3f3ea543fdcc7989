package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
)

var _ Journal = (*LevelDBJournal)(nil)

const (
	countKey        = "count"
	recordKeyPrefix = "record"
)

// LevelDBJournal keeps scan records in a LevelDB database. Records
// live under composite keys derived from their offset; a little-endian
// counter tracks the next offset.
type LevelDBJournal struct {
	sync.Mutex
	journalDb *leveldb.DB
	topic     string
}

// NewLevelDBJournal opens (or creates) the database at dbPath. The
// topic prefixes every key so that several journals can share one
// database.
func NewLevelDBJournal(dbPath string, topic string) (*LevelDBJournal, error) {
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal DB: %w", err)
	}

	j := &LevelDBJournal{
		journalDb: db,
		topic:     topic,
	}

	// Init the record counter on first open.
	key := makeCompositeKey(topic, countKey)
	if _, err := db.Get(key, nil); err != nil {
		if !errors.Is(err, leveldb.ErrNotFound) {
			return nil, fmt.Errorf("failed to read record counter: %w", err)
		}
		bz := make([]byte, 8)
		binary.LittleEndian.PutUint64(bz, 0)
		if err := db.Put(key, bz, nil); err != nil {
			return nil, fmt.Errorf("failed to init %s key: %w", string(key), err)
		}
	}

	return j, nil
}

func (j *LevelDBJournal) Append(record Record) (Record, error) {
	j.Lock()
	defer j.Unlock()

	count, err := j.count()
	if err != nil {
		return record, err
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.Offset = count

	data, err := json.Marshal(record)
	if err != nil {
		return record, fmt.Errorf("failed to marshal a record %v: %w", record, err)
	}

	if err := j.journalDb.Put(recordKey(j.topic, record.Offset), data, nil); err != nil {
		return record, fmt.Errorf("failed to save a record: %w", err)
	}

	bz := make([]byte, 8)
	binary.LittleEndian.PutUint64(bz, count+1)
	if err := j.journalDb.Put(makeCompositeKey(j.topic, countKey), bz, nil); err != nil {
		return record, fmt.Errorf("failed to advance record counter: %w", err)
	}

	return record, nil
}

func (j *LevelDBJournal) Records(offset uint64) ([]Record, error) {
	j.Lock()
	defer j.Unlock()

	count, err := j.count()
	if err != nil {
		return nil, err
	}

	var records []Record
	for ; offset < count; offset++ {
		data, err := j.journalDb.Get(recordKey(j.topic, offset), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read record at offset %d: %w", offset, err)
		}

		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal a record %s: %w", string(data), err)
		}
		records = append(records, record)
	}

	return records, nil
}

func (j *LevelDBJournal) Close() error {
	return j.journalDb.Close()
}

func (j *LevelDBJournal) count() (uint64, error) {
	bz, err := j.journalDb.Get(makeCompositeKey(j.topic, countKey), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to read record counter: %w", err)
	}
	return binary.LittleEndian.Uint64(bz), nil
}

func makeCompositeKey(prefix, key string) []byte {
	return []byte(fmt.Sprintf("%s_%s", prefix, key))
}

func recordKey(topic string, offset uint64) []byte {
	return []byte(fmt.Sprintf("%s_%s_%016d", topic, recordKeyPrefix, offset))
}
