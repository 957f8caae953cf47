// Package indexer maintains an off-chain mirror of the nullifier tree and
// serves the low-element queries clients need to build proof witnesses. The
// tree itself lives in memory; an append-only LevelDB log of inserted
// values lets the indexer rebuild the exact same tree on restart.
package indexer

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/shieldpool/nulltree/imt"
	"github.com/shieldpool/nulltree/logging"
)

var logPrefix = []byte("log/")

// LowElementWitness is the indexer's answer to a low-element query: the
// strict predecessor of the queried value together with its merkle path and
// the root the path is valid for.
type LowElementWitness struct {
	Index      uint64         `json:"index"`
	Value      *hexutil.Big   `json:"value"`
	NextValue  *hexutil.Big   `json:"nextValue"`
	NextIndex  uint64         `json:"nextIndex"`
	MerklePath []*hexutil.Big `json:"merklePath"`
	Root       *hexutil.Big   `json:"root"`
}

// Indexer replays and extends the insertion log of a nullifier tree.
type Indexer struct {
	mu   sync.RWMutex
	tree *imt.Tree
	db   *leveldb.DB
	seq  uint64
	log  zerolog.Logger
}

// Open loads the insertion log at path and replays it into a fresh tree of
// the given height. An empty path uses in-memory storage.
func Open(path string, height int) (*Indexer, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("indexer: opening log at %q: %w", path, err)
	}

	tree, err := imt.New(height)
	if err != nil {
		db.Close()
		return nil, err
	}
	ix := &Indexer{
		tree: tree,
		db:   db,
		log:  logging.Logger().With().Str("component", "indexer").Logger(),
	}
	if err := ix.replay(); err != nil {
		db.Close()
		return nil, err
	}
	return ix, nil
}

// replay walks the log in key order and re-inserts every value. Log keys
// are big-endian sequence numbers, so iteration order is insertion order.
func (ix *Indexer) replay() error {
	iter := ix.db.NewIterator(util.BytesPrefix(logPrefix), nil)
	defer iter.Release()

	for iter.Next() {
		v := new(big.Int).SetBytes(iter.Value())
		if _, err := ix.tree.Insert(v); err != nil {
			return fmt.Errorf("indexer: replaying entry %x: %w", iter.Key(), err)
		}
		ix.seq++
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("indexer: replaying log: %w", err)
	}
	ix.log.Info().Uint64("entries", ix.seq).Str("root", ix.tree.Root().String()).Msg("log replayed")
	return nil
}

func logKey(seq uint64) []byte {
	key := make([]byte, len(logPrefix)+8)
	copy(key, logPrefix)
	binary.BigEndian.PutUint64(key[len(logPrefix):], seq)
	return key
}

// Append inserts one value into the mirrored tree and records it in the
// log. The tree is updated first; a value the tree rejects never reaches
// the log.
func (ix *Indexer) Append(v *big.Int) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.append(v)
}

// AppendBatch mirrors one batch insertion. Values are logged in ascending
// order, the order the tree applies them, so replay reproduces the same
// sequence of roots.
func (ix *Indexer) AppendBatch(values []*big.Int) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	w, err := ix.tree.BatchInsertWithWitness(values)
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	for i, v := range w.Values() {
		var buf [32]byte
		v.FillBytes(buf[:])
		batch.Put(logKey(ix.seq+uint64(i)), buf[:])
	}
	if err := ix.db.Write(batch, nil); err != nil {
		return fmt.Errorf("indexer: writing log batch: %w", err)
	}
	ix.seq += uint64(len(values))
	return nil
}

func (ix *Indexer) append(v *big.Int) error {
	if _, err := ix.tree.Insert(v); err != nil {
		return err
	}
	var buf [32]byte
	v.FillBytes(buf[:])
	if err := ix.db.Put(logKey(ix.seq), buf[:], nil); err != nil {
		return fmt.Errorf("indexer: writing log entry: %w", err)
	}
	ix.seq++
	return nil
}

// Root returns the mirrored tree's current root.
func (ix *Indexer) Root() *big.Int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.tree.Root()
}

// Count returns the number of leaves in the mirrored tree, sentinel
// included.
func (ix *Indexer) Count() uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.tree.Count()
}

// GetLowElement answers the client query backing proof generation: the low
// element for value, its merkle path and the root the path commits to.
func (ix *Indexer) GetLowElement(value *big.Int) (*LowElementWitness, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	w, err := ix.tree.NonMembershipWitness(value)
	if err != nil {
		return nil, err
	}
	path := make([]*hexutil.Big, len(w.Path))
	for i, sib := range w.Path {
		path[i] = (*hexutil.Big)(new(big.Int).Set(sib))
	}
	return &LowElementWitness{
		Index:      w.LowIndex,
		Value:      (*hexutil.Big)(new(big.Int).Set(w.Low.Value)),
		NextValue:  (*hexutil.Big)(new(big.Int).Set(w.Low.NextValue)),
		NextIndex:  w.Low.NextIndex,
		MerklePath: path,
		Root:       (*hexutil.Big)(ix.tree.Root()),
	}, nil
}

// NonMembershipWitness returns the native witness for value, for callers
// that feed the prover directly instead of going through the wire format.
func (ix *Indexer) NonMembershipWitness(value *big.Int) (*imt.NonMembershipWitness, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.tree.NonMembershipWitness(value)
}

// Close flushes and closes the underlying log.
func (ix *Indexer) Close() error {
	return ix.db.Close()
}
