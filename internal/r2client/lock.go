package r2client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// ErrLockHeld is returned by WithLock when another owner holds a live lock.
var ErrLockHeld = errors.New("r2client: lock held by another owner")

// LockInfo is the JSON body of a lock object.
type LockInfo struct {
	Owner     string    `json:"owner"`
	Purpose   string    `json:"purpose,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DistributedLock is a lease stored as an object. Creation uses
// If-None-Match so only one owner wins; an expired lease is taken over with
// If-Match on the stale ETag so concurrent takeovers cannot both succeed.
type DistributedLock struct {
	client  *Client
	key     string
	ttl     time.Duration
	purpose string
	owner   string
	etag    string
	now     func() time.Time
}

// NewDistributedLock returns a lock with a random owner id.
func NewDistributedLock(client *Client, key string, ttl time.Duration, purpose string) *DistributedLock {
	return &DistributedLock{
		client:  client,
		key:     key,
		ttl:     ttl,
		purpose: purpose,
		owner:   uuid.NewString(),
		now:     time.Now,
	}
}

// OwnerID returns the unique identifier of this lock instance.
func (l *DistributedLock) OwnerID() string { return l.owner }

func (l *DistributedLock) body() (io.Reader, error) {
	data, err := json.Marshal(LockInfo{Owner: l.owner, Purpose: l.purpose, ExpiresAt: l.now().Add(l.ttl)})
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// Acquire reports whether the lease is now ours.
func (l *DistributedLock) Acquire(ctx context.Context) (bool, error) {
	body, err := l.body()
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	created, etag, err := l.client.PutObjectIfNotExists(ctx, l.key, body, "application/json")
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if created {
		l.etag = etag
		return true, nil
	}

	info, staleETag, err := l.read(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		// Released between our write and read; try once more from scratch.
		return l.retryCreate(ctx)
	case err != nil:
		return false, fmt.Errorf("acquire lock: %w", err)
	case info != nil && l.now().Before(info.ExpiresAt):
		return false, nil
	}

	if body, err = l.body(); err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	took, etag, err := l.client.PutObjectIfMatch(ctx, l.key, body, staleETag, "application/json")
	if err != nil {
		return false, fmt.Errorf("acquire lock: take over: %w", err)
	}
	if took {
		l.etag = etag
	}
	return took, nil
}

func (l *DistributedLock) retryCreate(ctx context.Context) (bool, error) {
	body, err := l.body()
	if err != nil {
		return false, err
	}
	created, etag, err := l.client.PutObjectIfNotExists(ctx, l.key, body, "application/json")
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if created {
		l.etag = etag
	}
	return created, nil
}

// read returns (nil, etag, nil) for an unparsable body, which is treated as
// expired.
func (l *DistributedLock) read(ctx context.Context) (*LockInfo, string, error) {
	obj, err := l.client.Download(ctx, l.key)
	if err != nil {
		return nil, "", err
	}
	defer obj.Body.Close()

	var info LockInfo
	if err := json.NewDecoder(obj.Body).Decode(&info); err != nil {
		return nil, obj.ETag, nil
	}
	return &info, obj.ETag, nil
}

// Renew extends a held lease. It reports false when the lease was lost.
func (l *DistributedLock) Renew(ctx context.Context) (bool, error) {
	if l.etag == "" {
		return false, nil
	}
	body, err := l.body()
	if err != nil {
		return false, fmt.Errorf("renew lock: %w", err)
	}
	ok, etag, err := l.client.PutObjectIfMatch(ctx, l.key, body, l.etag, "application/json")
	if err != nil {
		return false, fmt.Errorf("renew lock: %w", err)
	}
	if !ok {
		l.etag = ""
		return false, nil
	}
	l.etag = etag
	return true, nil
}

// Release deletes the lock if we still own it.
func (l *DistributedLock) Release(ctx context.Context) error {
	defer func() { l.etag = "" }()

	info, _, err := l.read(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	if info != nil && info.Owner != l.owner {
		return nil
	}
	return l.client.DeleteObject(ctx, l.key)
}

// WithLock runs fn while holding the lease and always releases it afterwards.
func (l *DistributedLock) WithLock(ctx context.Context, fn func(context.Context) error) error {
	ok, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockHeld
	}
	defer func() {
		_ = l.Release(context.WithoutCancel(ctx))
	}()
	return fn(ctx)
}
