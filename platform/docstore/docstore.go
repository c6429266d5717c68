// Package docstore is a small hierarchical document store on top of Redis.
//
// A collection is addressed by a slash separated path such as
// "studies/{study}/surveys/{survey}/datapoints". Every document is a Redis
// hash holding one JSON encoded value per field, and every collection keeps
// a sorted set of document ids scored by creation time. Writes publish a
// Change on "<path>:changes" so clients can follow a collection live.
//
// Writes are versioned. A document remembers the version of its last write
// and a deleted document leaves a tombstone, so a write that arrives after
// a newer one, or after the delete, is refused with ErrStale.
package docstore

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fieldsurvey/platform/config"

	"github.com/redis/go-redis/v9"
)

const (
	updatedField = "_updated"
	versionField = "_version"

	// tombstoneTTL bounds how long a delete can fend off late writes.
	tombstoneTTL = 7 * 24 * time.Hour
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrReservedField is returned for field names starting with "_".
	ErrReservedField = errors.New("field names starting with _ are reserved")
	// ErrInvalidPath is returned for empty collection paths or ids.
	ErrInvalidPath = errors.New("invalid document path")
	// ErrStale is returned when a newer write or a delete already happened.
	ErrStale = errors.New("document has a newer version")
)

// setScript replaces a document unless its stored version or tombstone is
// newer, indexes it and publishes the change in one step.
//
// KEYS: doc, index, tombstone, channel
// ARGV: version, score, id, added change, modified change, field/value...
var setScript = redis.NewScript(`
local version = tonumber(ARGV[1])
local tomb = redis.call('GET', KEYS[3])
if tomb and tonumber(tomb) >= version then return -1 end
local current = redis.call('HGET', KEYS[1], '_version')
if current and tonumber(current) > version then return -1 end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], unpack(ARGV, 6))
local added = redis.call('ZADD', KEYS[2], 'NX', ARGV[2], ARGV[3])
if added == 1 then
  redis.call('PUBLISH', KEYS[4], ARGV[4])
else
  redis.call('PUBLISH', KEYS[4], ARGV[5])
end
return added
`)

// updateScript merges fields into an existing document.
//
// KEYS: doc, channel
// ARGV: version, change, field/value...
var updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
redis.call('HSET', KEYS[1], unpack(ARGV, 3))
local current = redis.call('HGET', KEYS[1], '_version')
if not current or tonumber(current) < tonumber(ARGV[1]) then
  redis.call('HSET', KEYS[1], '_version', ARGV[1])
end
redis.call('PUBLISH', KEYS[2], ARGV[2])
return 1
`)

// deleteScript records a tombstone and removes the document unless it was
// written after the delete.
//
// KEYS: doc, index, tombstone, channel
// ARGV: version, id, removed change, tombstone ttl in seconds
var deleteScript = redis.NewScript(`
local version = tonumber(ARGV[1])
local tomb = redis.call('GET', KEYS[3])
if not tomb or tonumber(tomb) < version then
  redis.call('SET', KEYS[3], ARGV[1], 'EX', ARGV[4])
end
local current = redis.call('HGET', KEYS[1], '_version')
if current and tonumber(current) > version then return -1 end
local removed = redis.call('DEL', KEYS[1])
redis.call('ZREM', KEYS[2], ARGV[2])
if removed == 1 then
  redis.call('PUBLISH', KEYS[4], ARGV[3])
end
return removed
`)

// ChangeType describes what happened to a document.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// Change is one entry of a collection's change feed. For modifications
// Fields holds only the fields that were written.
type Change struct {
	Type   ChangeType                 `json:"type"`
	ID     string                     `json:"id"`
	Fields map[string]json.RawMessage `json:"fields,omitempty"`
}

// Document is a stored document.
type Document struct {
	ID         string
	Fields     map[string]json.RawMessage
	CreateTime time.Time
	UpdateTime time.Time
}

// Decode unmarshals a single field into v. Missing fields leave v untouched.
func (d Document) Decode(field string, v any) error {
	raw, ok := d.Fields[field]
	if !ok {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// Store is the entry point to the document store.
type Store struct {
	rdb redis.UniversalClient
	now func() time.Time
}

// New wraps an existing Redis client.
func New(rdb redis.UniversalClient) *Store {
	return &Store{rdb: rdb, now: time.Now}
}

// RedisOptions parses the configured URL. The insecure flag disables
// certificate checks on rediss:// URLs and forces TLS on plain ones.
func RedisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.GetRedisURL() == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return opt, nil
}

// Open connects to the Redis instance named by cfg and verifies it answers.
func Open(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	opt, err := RedisOptions(cfg)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(rdb), nil
}

// Ping reports whether Redis answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Collection returns a handle for the collection at the given path segments.
func (s *Store) Collection(segments ...string) *Collection {
	clean := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.Trim(seg, "/")
		if seg != "" {
			clean = append(clean, seg)
		}
	}
	return &Collection{store: s, path: strings.Join(clean, "/")}
}

// Collection is a set of documents sharing a path.
type Collection struct {
	store *Store
	path  string
}

// Path returns the collection path.
func (c *Collection) Path() string { return c.path }

func (c *Collection) docKey(id string) string    { return c.path + "/" + id }
func (c *Collection) tombstone(id string) string { return c.path + ":deleted:" + id }
func (c *Collection) channel() string            { return c.path + ":changes" }

func (c *Collection) check(id string) error {
	if c.path == "" || id == "" || strings.Contains(id, "/") {
		return ErrInvalidPath
	}
	return nil
}

func encodeFields(fields map[string]any) (map[string]json.RawMessage, error) {
	encoded := make(map[string]json.RawMessage, len(fields))
	for name, value := range fields {
		if name == "" || strings.HasPrefix(name, "_") {
			return nil, fmt.Errorf("%w: %q", ErrReservedField, name)
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", name, err)
		}
		encoded[name] = raw
	}
	return encoded, nil
}

func version(t time.Time) string {
	return strconv.FormatInt(t.UnixMicro(), 10)
}

func hashValues(fields map[string]json.RawMessage, updated time.Time) []any {
	values := make([]any, 0, len(fields)*2+2)
	for name, raw := range fields {
		values = append(values, name, string(raw))
	}
	return append(values, updatedField, updated.UTC().Format(time.RFC3339Nano))
}

func encodeChange(change Change) (string, error) {
	payload, err := json.Marshal(change)
	return string(payload), err
}

// Set replaces the document with exactly the given fields, creating it if
// needed. The write is versioned with the current time.
func (c *Collection) Set(ctx context.Context, id string, fields map[string]any) error {
	return c.SetAt(ctx, id, fields, c.store.now())
}

// SetAt is Set with an explicit version. It fails with ErrStale when the
// document was written with a newer version or deleted at or after it.
func (c *Collection) SetAt(ctx context.Context, id string, fields map[string]any, at time.Time) error {
	if err := c.check(id); err != nil {
		return err
	}
	encoded, err := encodeFields(fields)
	if err != nil {
		return err
	}
	added, err := encodeChange(Change{Type: ChangeAdded, ID: id, Fields: encoded})
	if err != nil {
		return err
	}
	modified, err := encodeChange(Change{Type: ChangeModified, ID: id, Fields: encoded})
	if err != nil {
		return err
	}

	args := append([]any{version(at), at.UnixMilli(), id, added, modified},
		hashValues(encoded, at)...)
	args = append(args, versionField, version(at))
	keys := []string{c.docKey(id), c.path, c.tombstone(id), c.channel()}

	res, err := setScript.Run(ctx, c.store.rdb, keys, args...).Int64()
	if err != nil {
		return fmt.Errorf("set %s: %w", c.docKey(id), err)
	}
	if res < 0 {
		return ErrStale
	}
	return nil
}

// Update merges fields into an existing document. It fails with ErrNotFound
// when the document does not exist.
func (c *Collection) Update(ctx context.Context, id string, fields map[string]any) error {
	if err := c.check(id); err != nil {
		return err
	}
	encoded, err := encodeFields(fields)
	if err != nil {
		return err
	}
	change, err := encodeChange(Change{Type: ChangeModified, ID: id, Fields: encoded})
	if err != nil {
		return err
	}

	now := c.store.now()
	args := append([]any{version(now), change}, hashValues(encoded, now)...)
	key := c.docKey(id)

	res, err := updateScript.Run(ctx, c.store.rdb, []string{key, c.channel()}, args...).Int64()
	if err != nil {
		return fmt.Errorf("update %s: %w", key, err)
	}
	if res < 0 {
		return ErrNotFound
	}
	return nil
}

// Get loads a single document.
func (c *Collection) Get(ctx context.Context, id string) (Document, error) {
	if err := c.check(id); err != nil {
		return Document{}, err
	}
	pipe := c.store.rdb.Pipeline()
	hash := pipe.HGetAll(ctx, c.docKey(id))
	score := pipe.ZScore(ctx, c.path, id)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Document{}, fmt.Errorf("get %s: %w", c.docKey(id), err)
	}
	if len(hash.Val()) == 0 {
		return Document{}, ErrNotFound
	}
	return toDocument(id, hash.Val(), score.Val()), nil
}

// List returns every document in creation order.
func (c *Collection) List(ctx context.Context) ([]Document, error) {
	members, err := c.store.rdb.ZRangeWithScores(ctx, c.path, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.path, err)
	}
	if len(members) == 0 {
		return []Document{}, nil
	}

	pipe := c.store.rdb.Pipeline()
	hashes := make([]*redis.MapStringStringCmd, len(members))
	for i, m := range members {
		hashes[i] = pipe.HGetAll(ctx, c.docKey(fmt.Sprint(m.Member)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("list %s: %w", c.path, err)
	}

	docs := make([]Document, 0, len(members))
	for i, m := range members {
		if len(hashes[i].Val()) == 0 {
			continue
		}
		docs = append(docs, toDocument(fmt.Sprint(m.Member), hashes[i].Val(), m.Score))
	}
	return docs, nil
}

// Delete removes a document and reports whether it existed. The delete is
// versioned with the current time.
func (c *Collection) Delete(ctx context.Context, id string) (bool, error) {
	return c.DeleteAt(ctx, id, c.store.now())
}

// DeleteAt is Delete with an explicit version. The tombstone it leaves
// refuses writes versioned at or before at. A document written after at is
// kept and ErrStale is returned.
func (c *Collection) DeleteAt(ctx context.Context, id string, at time.Time) (bool, error) {
	if err := c.check(id); err != nil {
		return false, err
	}
	removed, err := encodeChange(Change{Type: ChangeRemoved, ID: id})
	if err != nil {
		return false, err
	}

	keys := []string{c.docKey(id), c.path, c.tombstone(id), c.channel()}
	args := []any{version(at), id, removed, int64(tombstoneTTL / time.Second)}
	res, err := deleteScript.Run(ctx, c.store.rdb, keys, args...).Int64()
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", c.docKey(id), err)
	}
	if res < 0 {
		return false, ErrStale
	}
	return res == 1, nil
}

// Watch subscribes to the collection's change feed. The returned channel is
// closed when ctx ends.
func (c *Collection) Watch(ctx context.Context) (<-chan Change, error) {
	sub := c.store.rdb.Subscribe(ctx, c.channel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", c.channel(), err)
	}

	out := make(chan Change)
	go func() {
		defer close(out)
		defer func() {
			_ = sub.Close()
		}()

		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var change Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func toDocument(id string, hash map[string]string, score float64) Document {
	doc := Document{
		ID:         id,
		Fields:     make(map[string]json.RawMessage, len(hash)),
		CreateTime: time.UnixMilli(int64(score)).UTC(),
	}
	for name, value := range hash {
		switch {
		case name == updatedField:
			doc.UpdateTime, _ = time.Parse(time.RFC3339Nano, value)
			continue
		case strings.HasPrefix(name, "_"):
			continue
		}
		doc.Fields[name] = json.RawMessage(value)
	}
	return doc
}
