package journal

import (
	"encoding/json"
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// journalDB is the low-level LevelDB wrapper. Values are JSON.
type journalDB struct {
	db *leveldb.DB
}

func openJournalDB(path string) (*journalDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &journalDB{db: db}, nil
}

func (j *journalDB) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

func (j *journalDB) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return j.db.Put([]byte(key), data, nil)
}

// get returns found=false when the key is absent.
func (j *journalDB) get(key string, v any) (bool, error) {
	data, err := j.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, v)
}

// scan visits every value under prefix in key order.
func (j *journalDB) scan(prefix string, fn func(value []byte) error) error {
	it := j.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer it.Release()

	for it.Next() {
		if err := fn(it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}
