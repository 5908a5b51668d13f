package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/password"
)

const maxUpdateRetries = 5

// insertUserScript writes the user blob and both unique indexes, or nothing
// when either index is already taken.
const insertUserScript = `
if redis.call("EXISTS", KEYS[2]) == 1 or redis.call("EXISTS", KEYS[3]) == 1 then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1])
redis.call("SET", KEYS[2], ARGV[2])
redis.call("SET", KEYS[3], ARGV[2])
return 1
`

var insertUserLua = redis.NewScript(insertUserScript)

type storedUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	PasswordHash string    `json:"passwordHash"`
	Fingerprint  string    `json:"fingerprint"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toStored(u tokenguard.UserRecord) storedUser {
	return storedUser(u)
}

func (s storedUser) record() tokenguard.UserRecord {
	return tokenguard.UserRecord(s)
}

// RedisDirectory stores each user as a JSON blob at "<prefix>:<id>" with
// unique index keys for username and email.
type RedisDirectory struct {
	redis  redis.UniversalClient
	hasher password.Hasher
	prefix string
	now    func() time.Time
}

// NewRedisDirectory returns a directory that hashes passwords with hasher.
func NewRedisDirectory(client redis.UniversalClient, hasher password.Hasher, prefix string) *RedisDirectory {
	if prefix == "" {
		prefix = "usr"
	}
	return &RedisDirectory{redis: client, hasher: hasher, prefix: prefix, now: time.Now}
}

func (d *RedisDirectory) userKey(id string) string {
	return d.prefix + ":" + id
}

func (d *RedisDirectory) usernameKey(username string) string {
	return d.prefix + ":name:" + username
}

func (d *RedisDirectory) emailKey(email string) string {
	return d.prefix + ":email:" + strings.ToLower(email)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", tokenguard.ErrDirectoryUnavailable, err)
}

func (d *RedisDirectory) GetUser(ctx context.Context, id string) (tokenguard.UserRecord, error) {
	if id == "" {
		return tokenguard.UserRecord{}, tokenguard.ErrUserNotFound
	}
	return d.load(ctx, d.redis, id)
}

func (d *RedisDirectory) FindByUsername(ctx context.Context, username string) (tokenguard.UserRecord, error) {
	id, err := d.redis.Get(ctx, d.usernameKey(username)).Result()
	if errors.Is(err, redis.Nil) {
		return tokenguard.UserRecord{}, tokenguard.ErrUserNotFound
	}
	if err != nil {
		return tokenguard.UserRecord{}, unavailable(err)
	}
	return d.load(ctx, d.redis, id)
}

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (d *RedisDirectory) load(ctx context.Context, c getter, id string) (tokenguard.UserRecord, error) {
	data, err := c.Get(ctx, d.userKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return tokenguard.UserRecord{}, tokenguard.ErrUserNotFound
	}
	if err != nil {
		return tokenguard.UserRecord{}, unavailable(err)
	}

	var su storedUser
	if err := json.Unmarshal(data, &su); err != nil {
		return tokenguard.UserRecord{}, fmt.Errorf("decode user %s: %w", id, err)
	}
	return su.record(), nil
}

// InsertUser hashes the password, assigns id and fingerprint and writes the
// record atomically with its indexes.
func (d *RedisDirectory) InsertUser(ctx context.Context, u tokenguard.NewUser) (string, error) {
	rec, err := tokenguard.PrepareUser(d.hasher, u, d.now())
	if err != nil {
		return "", err
	}
	blob, err := json.Marshal(toStored(rec))
	if err != nil {
		return "", err
	}

	keys := []string{d.userKey(rec.ID), d.usernameKey(rec.Username), d.emailKey(rec.Email)}
	ok, err := insertUserLua.Run(ctx, d.redis, keys, blob, rec.ID).Int()
	if err != nil {
		return "", unavailable(err)
	}
	if ok == 0 {
		return "", tokenguard.ErrDuplicateUser
	}
	return rec.ID, nil
}

// UpdateUser applies upd under WATCH so concurrent updates to the same user
// or to the target email index retry instead of overwriting each other.
func (d *RedisDirectory) UpdateUser(ctx context.Context, id string, upd tokenguard.UserUpdate) error {
	userKey := d.userKey(id)

	txf := func(tx *redis.Tx) error {
		rec, err := d.load(ctx, tx, id)
		if err != nil {
			return err
		}
		oldEmailKey := d.emailKey(rec.Email)

		if _, err := tokenguard.ApplyUpdate(d.hasher, &rec, upd, d.now()); err != nil {
			return err
		}
		newEmailKey := d.emailKey(rec.Email)
		emailMoved := newEmailKey != oldEmailKey

		if emailMoved {
			if err := tx.Watch(ctx, newEmailKey).Err(); err != nil {
				return unavailable(err)
			}
			n, err := tx.Exists(ctx, newEmailKey).Result()
			if err != nil {
				return unavailable(err)
			}
			if n > 0 {
				return tokenguard.ErrDuplicateUser
			}
		}

		blob, err := json.Marshal(toStored(rec))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey, blob, 0)
			if emailMoved {
				pipe.Del(ctx, oldEmailKey)
				pipe.Set(ctx, newEmailKey, id, 0)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := d.redis.Watch(ctx, txf, userKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, tokenguard.ErrUserNotFound) &&
			!errors.Is(err, tokenguard.ErrDuplicateUser) &&
			!errors.Is(err, tokenguard.ErrDirectoryUnavailable) {
			return unavailable(err)
		}
		return err
	}
	return unavailable(errors.New("update contention"))
}
