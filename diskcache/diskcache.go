//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

// Package diskcache implements a persistent content-addressed cache with
// a byte-size budget. Entries are indexed by a SQLite database; small
// values live inline in the index, large values in external files next
// to it, named by an obfuscated encoding of the entry's row id.
//
// The cache is a per-process owner of its directory: locking is
// exclusive, synchronous commits are off and journaling is in-memory,
// trading durability of the last few writes for speed. Every failure is
// reported as a *Failure and is safe to treat as a cache miss.
package diskcache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trpc.group/trpc-go/cradle-go/log"
)

// schemaVersion is embedded in the index via "pragma user_version" and
// must match exactly; any other value means the index belongs to an
// incompatible build and the directory is cleared.
const schemaVersion = 2

// indexFileName is the SQLite index within the cache directory.
const indexFileName = "index.db"

// Config configures a disk cache.
type Config struct {
	// Directory holds the index and the external files.
	Directory string
	// SizeLimit is the total byte budget across all entries.
	SizeLimit int64
}

// Entry describes one cache entry.
type Entry struct {
	// ID is the auto-assigned index row id.
	ID int64
	// Key is the canonical ID string the entry is stored under.
	Key string
	// InDB reports whether the value is stored inline in the index.
	InDB bool
	// Value holds the inline bytes; only populated when InDB.
	Value []byte
	// Size is the stored size in bytes (inline length or file length).
	Size int64
	// OriginalSize is the uncompressed size when the stored bytes are
	// compressed, and equals Size otherwise.
	OriginalSize int64
	// CRC32 is the checksum of the external file contents; 0 for inline
	// entries.
	CRC32 uint32
}

// Info summarizes a cache.
type Info struct {
	Directory  string
	EntryCount int64
	TotalSize  int64
}

// Failure reports a disk cache operation that failed. Callers may treat
// any Failure as a cache miss.
type Failure struct {
	Dir string
	Msg string
	Err error
}

// Error implements error.
func (f *Failure) Error() string {
	return fmt.Sprintf("disk cache at %s: %s", f.Dir, f.Msg)
}

// Unwrap exposes the underlying error.
func (f *Failure) Unwrap() error { return f.Err }

func (c *Cache) failure(msg string, err error) error {
	return &Failure{Dir: c.dir, Msg: msg, Err: err}
}

// Cache is a disk cache. All methods are safe for concurrent use; a
// single mutex serializes operations.
type Cache struct {
	mu sync.Mutex

	dir       string
	sizeLimit int64
	db        *sql.DB

	stmts statements

	// bytesInsertedSinceLastSweep tracks when the size limit needs
	// rechecking.
	bytesInsertedSinceLastSweep int64

	// usageRecordBuffer holds entry ids whose last_accessed update has
	// not been written out yet.
	usageRecordBuffer []int64

	latestActivity time.Time
}

// statements holds the prepared statements the cache runs.
type statements struct {
	recordUsage      *sql.Stmt
	updateEntryValue *sql.Stmt
	insertNewValue   *sql.Stmt
	initiateInsert   *sql.Stmt
	finishInsert     *sql.Stmt
	removeEntry      *sql.Stmt
	lookUpEntry      *sql.Stmt
	cacheSize        *sql.Stmt
	entryCount       *sql.Stmt
	entryList        *sql.Stmt
	lruEntryList     *sql.Stmt
}

// Open opens (or creates) the cache under config.Directory. If an index
// exists but is incompatible or corrupt, the directory is cleared and
// the cache reinitialized.
func Open(config Config) (*Cache, error) {
	c := &Cache{}
	if err := c.initialize(config); err != nil {
		return nil, err
	}
	return c, nil
}

// Reset closes the cache and reinitializes it with a new configuration.
func (c *Cache) Reset(config Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutDownLocked()
	return c.initialize(config)
}

// Close releases the index. The cache must not be used afterwards.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutDownLocked()
}

func (c *Cache) shutDownLocked() {
	if c.db != nil {
		c.db.Close()
		c.db = nil
	}
}

func (c *Cache) initialize(config Config) error {
	c.dir = config.Directory
	c.sizeLimit = config.SizeLimit
	c.bytesInsertedSinceLastSweep = 0
	c.usageRecordBuffer = nil

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return c.failure("failed to create cache directory", err)
	}

	if err := c.openAndCheckDB(); err != nil {
		// The index may be incompatible or corrupt: shut everything
		// down, clear out the directory, and try again.
		log.Warnf("disk cache at %s unusable (%v); clearing directory", c.dir, err)
		c.shutDownLocked()
		if err := clearDirectory(c.dir); err != nil {
			return c.failure("failed to clear cache directory", err)
		}
		if err := c.openAndCheckDB(); err != nil {
			c.shutDownLocked()
			return err
		}
	}

	if err := c.prepareStatements(); err != nil {
		c.shutDownLocked()
		return err
	}

	c.recordActivityLocked()
	c.enforceSizeLimitLocked()
	return nil
}

func clearDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) openAndCheckDB() error {
	db, err := sql.Open("sqlite3", filepath.Join(c.dir, indexFileName))
	if err != nil {
		return c.failure("failed to open disk cache index file (index.db)", err)
	}
	// The cache owns the index exclusively; one connection keeps the
	// prepared statements and pragmas coherent.
	db.SetMaxOpenConns(1)
	c.db = db

	var version int
	if err := db.QueryRow("pragma user_version;").Scan(&version); err != nil {
		return c.failure("failed to read index schema version", err)
	}

	switch version {
	case 0:
		// A version of 0 indicates a fresh database, so initialize it.
		_, err := db.Exec(
			`create table entries(
			 id integer primary key,
			 key text unique not null,
			 valid boolean not null,
			 last_accessed datetime,
			 in_db boolean,
			 value blob,
			 size integer,
			 original_size integer,
			 crc32 integer);`)
		if err != nil {
			return c.failure("failed to create entries table", err)
		}
		_, err = db.Exec(fmt.Sprintf("pragma user_version = %d;", schemaVersion))
		if err != nil {
			return c.failure("failed to set index schema version", err)
		}
	case schemaVersion:
	default:
		return c.failure("incompatible database", nil)
	}

	for _, pragma := range []string{
		"pragma synchronous = off;",
		"pragma locking_mode = exclusive;",
		"pragma journal_mode = memory;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return c.failure("failed to apply pragma", err)
		}
	}
	return nil
}

func (c *Cache) prepareStatements() error {
	prepare := func(dst **sql.Stmt, query string) error {
		stmt, err := c.db.Prepare(query)
		if err != nil {
			return c.failure("error preparing SQL query: "+query, err)
		}
		*dst = stmt
		return nil
	}
	steps := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&c.stmts.recordUsage,
			`update entries set last_accessed=strftime('%Y-%m-%d %H:%M:%f', 'now')
			 where id=?1;`},
		{&c.stmts.updateEntryValue,
			`update entries set valid=1, in_db=1, size=?1, original_size=?2,
			 value=?3, last_accessed=strftime('%Y-%m-%d %H:%M:%f', 'now')
			 where key=?4;`},
		{&c.stmts.insertNewValue,
			`insert into entries
			 (key, valid, in_db, size, original_size, value, last_accessed)
			 values(?1, 1, 1, ?2, ?3, ?4, strftime('%Y-%m-%d %H:%M:%f', 'now'));`},
		{&c.stmts.initiateInsert,
			`insert into entries(key, valid, in_db) values (?1, 0, 0);`},
		{&c.stmts.finishInsert,
			`update entries set valid=1, in_db=0, size=?1, original_size=?2,
			 crc32=?3, last_accessed=strftime('%Y-%m-%d %H:%M:%f', 'now')
			 where id=?4;`},
		{&c.stmts.removeEntry,
			`delete from entries where id=?1;`},
		{&c.stmts.lookUpEntry,
			`select id, valid, in_db, value, size, original_size, crc32
			 from entries where key=?1;`},
		{&c.stmts.cacheSize,
			`select ifnull(sum(size), 0) from entries;`},
		{&c.stmts.entryCount,
			`select count(id) from entries where valid = 1;`},
		{&c.stmts.entryList,
			`select key, id, in_db, size, original_size, crc32 from entries
			 where valid = 1 order by last_accessed;`},
		{&c.stmts.lruEntryList,
			`select id, size, in_db from entries
			 order by valid, last_accessed;`},
	}
	for _, step := range steps {
		if err := prepare(step.dst, step.query); err != nil {
			return err
		}
	}
	return nil
}

// Find returns the valid entry stored under key, or nil if there is
// none. For inline entries, Entry.Value is populated.
func (c *Cache) Find(key string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recordActivityLocked()
	return c.lookUpLocked(key, true)
}

func (c *Cache) lookUpLocked(key string, onlyIfValid bool) (*Entry, error) {
	rows, err := c.stmts.lookUpEntry.Query(key)
	if err != nil {
		return nil, c.failure("error executing SQL query in index.db", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e Entry
		var valid bool
		var inDB sql.NullBool
		var value []byte
		var size, originalSize sql.NullInt64
		var crc sql.NullInt64
		if err := rows.Scan(&e.ID, &valid, &inDB, &value, &size,
			&originalSize, &crc); err != nil {
			return nil, c.failure("error reading index row", err)
		}
		if onlyIfValid && !valid {
			return nil, nil
		}
		e.Key = key
		e.InDB = inDB.Valid && inDB.Bool
		if e.InDB {
			e.Value = value
		}
		e.Size = size.Int64
		e.OriginalSize = originalSize.Int64
		e.CRC32 = uint32(crc.Int64)
		return &e, nil
	}
	if err := rows.Err(); err != nil {
		return nil, c.failure("error executing SQL query in index.db", err)
	}
	return nil, nil
}

// Insert stores value inline under key, replacing any existing entry.
// originalSize records the uncompressed size when value holds compressed
// bytes; pass 0 to mean "same as len(value)".
func (c *Cache) Insert(key string, value []byte, originalSize int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recordActivityLocked()

	if originalSize == 0 {
		originalSize = int64(len(value))
	}

	entry, err := c.lookUpLocked(key, false)
	if err != nil {
		return err
	}
	if entry != nil {
		if _, err := c.stmts.updateEntryValue.Exec(
			int64(len(value)), originalSize, value, key); err != nil {
			return c.failure("error updating cache entry", err)
		}
	} else {
		if _, err := c.stmts.insertNewValue.Exec(
			key, int64(len(value)), originalSize, value); err != nil {
			return c.failure("error inserting cache entry", err)
		}
	}

	c.recordCacheGrowthLocked(int64(len(value)))
	return nil
}

// InitiateInsert begins a two-phase insert of an external entry and
// returns the entry id. The caller writes the value to PathForID(id) and
// then calls FinishInsert. Abandoning the insert leaves an invalid row
// that will be reused or evicted.
func (c *Cache) InitiateInsert(key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recordActivityLocked()

	entry, err := c.lookUpLocked(key, false)
	if err != nil {
		return 0, err
	}
	if entry != nil {
		return entry.ID, nil
	}

	if _, err := c.stmts.initiateInsert.Exec(key); err != nil {
		return 0, c.failure("error inserting cache entry", err)
	}

	entry, err = c.lookUpLocked(key, false)
	if err != nil {
		return 0, err
	}
	if entry == nil {
		// Since the insert succeeded, we really shouldn't get here.
		return 0, c.failure("failed to create entry in index.db", nil)
	}
	return entry.ID, nil
}

// FinishInsert completes a two-phase insert: the external file must
// already be fully written at PathForID(id). crc is the checksum of the
// file contents; originalSize as for Insert.
func (c *Cache) FinishInsert(id int64, crc uint32, originalSize int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recordActivityLocked()

	info, err := os.Stat(c.pathForIDLocked(id))
	if err != nil {
		return c.failure("failed to stat external cache file", err)
	}
	size := info.Size()
	if originalSize == 0 {
		originalSize = size
	}

	if _, err := c.stmts.finishInsert.Exec(size, originalSize,
		int64(crc), id); err != nil {
		return c.failure("error finishing cache entry", err)
	}

	c.recordCacheGrowthLocked(size)
	return nil
}

// PathForID returns the path of the external file for an entry id.
func (c *Cache) PathForID(id int64) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pathForIDLocked(id)
}

func (c *Cache) pathForIDLocked(id int64) string {
	return filepath.Join(c.dir, encodeFileID(id))
}

// RemoveEntry removes an entry and its external file, if any.
func (c *Cache) RemoveEntry(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeEntryLocked(id, true)
}

func (c *Cache) removeEntryLocked(id int64, removeFile bool) error {
	if removeFile {
		path := c.pathForIDLocked(id)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return c.failure("failed to remove external cache file", err)
		}
	}
	if _, err := c.stmts.removeEntry.Exec(id); err != nil {
		return c.failure("error removing cache entry", err)
	}
	return nil
}

// Clear removes every entry. Removal is best-effort; entries whose
// deletion fails are skipped.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.lruEntriesLocked()
	if err != nil {
		log.Warnf("disk cache clear: %v", err)
		return
	}
	for _, e := range entries {
		if err := c.removeEntryLocked(e.id, !e.inDB); err != nil {
			log.Warnf("disk cache clear: %v", err)
		}
	}
}

// RecordUsage notes that an entry was used. Updates are buffered; call
// WriteUsageRecords (or let DoIdleProcessing run) to flush them.
func (c *Cache) RecordUsage(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usageRecordBuffer = append(c.usageRecordBuffer, id)
}

// WriteUsageRecords flushes all buffered usage records to the index.
func (c *Cache) WriteUsageRecords() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeUsageRecordsLocked()
}

func (c *Cache) writeUsageRecordsLocked() {
	for _, id := range c.usageRecordBuffer {
		if _, err := c.stmts.recordUsage.Exec(id); err != nil {
			log.Warnf("disk cache usage record: %v", err)
		}
	}
	c.usageRecordBuffer = c.usageRecordBuffer[:0]
}

// DoIdleProcessing performs background maintenance: once the cache has
// been idle for at least a second, buffered usage records are flushed.
func (c *Cache) DoIdleProcessing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.usageRecordBuffer) > 0 &&
		time.Since(c.latestActivity) > time.Second {
		c.writeUsageRecordsLocked()
	}
}

// EntryList returns all valid entries in LRU order. Values are not
// populated.
func (c *Cache) EntryList() ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.stmts.entryList.Query()
	if err != nil {
		return nil, c.failure("error executing SQL query in index.db", err)
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		var inDB sql.NullBool
		var size, originalSize sql.NullInt64
		var crc sql.NullInt64
		if err := rows.Scan(&e.Key, &e.ID, &inDB, &size,
			&originalSize, &crc); err != nil {
			return nil, c.failure("error reading index row", err)
		}
		e.InDB = inDB.Valid && inDB.Bool
		e.Size = size.Int64
		e.OriginalSize = originalSize.Int64
		e.CRC32 = uint32(crc.Int64)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, c.failure("error executing SQL query in index.db", err)
	}
	return entries, nil
}

// SummaryInfo returns totals for the cache. The total size includes
// invalid entries while the entry count does not; in-flight inserts
// occupy space but are not yet entries.
func (c *Cache) SummaryInfo() (Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := Info{Directory: c.dir}
	if err := c.stmts.entryCount.QueryRow().Scan(&info.EntryCount); err != nil {
		return Info{}, c.failure("error counting cache entries", err)
	}
	if err := c.stmts.cacheSize.QueryRow().Scan(&info.TotalSize); err != nil {
		return Info{}, c.failure("error summing cache size", err)
	}
	return info, nil
}

type lruEntry struct {
	id   int64
	size int64
	inDB bool
}

func (c *Cache) lruEntriesLocked() ([]lruEntry, error) {
	rows, err := c.stmts.lruEntryList.Query()
	if err != nil {
		return nil, c.failure("error executing SQL query in index.db", err)
	}
	defer rows.Close()
	var entries []lruEntry
	for rows.Next() {
		var e lruEntry
		var size sql.NullInt64
		var inDB sql.NullBool
		if err := rows.Scan(&e.id, &size, &inDB); err != nil {
			return nil, c.failure("error reading index row", err)
		}
		e.size = size.Int64
		e.inDB = inDB.Valid && inDB.Bool
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, c.failure("error executing SQL query in index.db", err)
	}
	return entries, nil
}

func (c *Cache) recordActivityLocked() {
	c.latestActivity = time.Now()
}

// recordCacheGrowthLocked lets the cache write out roughly 1/128th of
// its capacity between size checks, so it can exceed its limit slightly
// but only temporarily and not by much.
func (c *Cache) recordCacheGrowthLocked(size int64) {
	c.bytesInsertedSinceLastSweep += size
	if c.bytesInsertedSinceLastSweep > c.sizeLimit/128 {
		c.enforceSizeLimitLocked()
	}
}

func (c *Cache) enforceSizeLimitLocked() {
	var size int64
	if err := c.stmts.cacheSize.QueryRow().Scan(&size); err != nil {
		log.Warnf("disk cache sweep: %v", err)
		return
	}
	if size > c.sizeLimit {
		entries, err := c.lruEntriesLocked()
		if err != nil {
			log.Warnf("disk cache sweep: %v", err)
			return
		}
		for _, e := range entries {
			if size <= c.sizeLimit {
				break
			}
			if err := c.removeEntryLocked(e.id, !e.inDB); err != nil {
				log.Warnf("disk cache sweep: %v", err)
				continue
			}
			size -= e.size
		}
	}
	c.bytesInsertedSinceLastSweep = 0
}
