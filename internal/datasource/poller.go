package datasource

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"sync"
	"time"

	"github.com/j-veylop/opsdash-tui/internal/logger"
)

// FetchFunc loads one snapshot for a Poller.
type FetchFunc func(ctx context.Context) ([]Record, error)

// Poll turns a snapshot fetch into a subscription for backends without change
// notifications. The first snapshot is delivered immediately; later ones only
// when their content fingerprint differs.
func Poll(ctx context.Context, interval time.Duration, fetch FetchFunc, fn ChangeFunc) Unsubscribe {
	return PollWithWake(ctx, interval, nil, fetch, fn)
}

// PollWithWake is Poll with an extra trigger: a receive on wake fetches
// immediately instead of waiting for the next tick. A nil wake never fires.
func PollWithWake(ctx context.Context, interval time.Duration, wake <-chan struct{}, fetch FetchFunc, fn ChangeFunc) Unsubscribe {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last [sha256.Size]byte
		first := true

		deliver := func() {
			records, err := fetch(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				// Redeliver on recovery even if nothing changed.
				first = true
				fn(nil, err)
				return
			}
			sum := Fingerprint(records)
			if !first && sum == last {
				return
			}
			first = false
			last = sum
			fn(records, nil)
		}

		deliver()
		for {
			select {
			case <-ticker.C:
				deliver()
			case <-wake:
				deliver()
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

// Fingerprint hashes a record set. encoding/json sorts map keys, so equal sets
// in equal order hash equally.
func Fingerprint(records []Record) [sha256.Size]byte {
	data, err := json.Marshal(records)
	if err != nil {
		logger.Debug("fingerprint marshal failed", "error", err)
		return [sha256.Size]byte{}
	}
	return sha256.Sum256(data)
}
