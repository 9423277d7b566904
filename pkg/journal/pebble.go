// Package journal persists settled trades to an append-only pebble
// store. It is an audit sink: the engine writes through it but never
// reads journal contents back into live state, so engine state does
// not survive restarts through the journal.
package journal

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/uhyunpark/bazaar/pkg/market"
)

// keys: t:<8-byte big-endian sequence>
func kTrade(seq uint64) []byte {
	key := make([]byte, 2+8)
	copy(key, "t:")
	binary.BigEndian.PutUint64(key[2:], seq)
	return key
}

type PebbleJournal struct {
	mu  sync.Mutex
	db  *pebble.DB
	seq uint64 // next sequence to write
}

func Open(path string) (*PebbleJournal, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	j := &PebbleJournal{db: db}
	if err := j.initSeq(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// initSeq resumes the sequence after the highest existing key so a
// reopened journal keeps appending instead of overwriting.
func (j *PebbleJournal) initSeq() error {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: kTrade(0),
		UpperBound: kTrade(^uint64(0)),
	})
	if err != nil {
		return fmt.Errorf("journal iter: %w", err)
	}
	defer iter.Close()

	if iter.Last() && len(iter.Key()) == 10 {
		j.seq = binary.BigEndian.Uint64(iter.Key()[2:]) + 1
	}
	return nil
}

func (j *PebbleJournal) Close() error { return j.db.Close() }

// AppendTrade writes one settled trade under the next sequence key.
func (j *PebbleJournal) AppendTrade(t market.Trade) error {
	val, err := encodeGob(t)
	if err != nil {
		return fmt.Errorf("encode trade %s: %w", t.ID, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.db.Set(kTrade(j.seq), val, pebble.Sync); err != nil {
		return fmt.Errorf("append trade %s: %w", t.ID, err)
	}
	j.seq++
	return nil
}

// Len returns the number of journaled trades.
func (j *PebbleJournal) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.seq
}

// Replay streams every journaled trade, oldest first, to fn. Stops on
// the first error from fn. For offline audit tooling only.
func (j *PebbleJournal) Replay(fn func(market.Trade) error) error {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: kTrade(0),
		UpperBound: kTrade(^uint64(0)),
	})
	if err != nil {
		return fmt.Errorf("journal iter: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var t market.Trade
		if err := decodeGob(iter.Value(), &t); err != nil {
			return fmt.Errorf("decode trade at %x: %w", iter.Key(), err)
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	return iter.Error()
}
