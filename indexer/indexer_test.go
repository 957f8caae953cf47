package indexer

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shieldpool/nulltree/imt"
)

const testHeight = 8

func openMemIndexer(t *testing.T) *Indexer {
	t.Helper()
	ix, err := Open("", testHeight)
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestAppendTracksTree(t *testing.T) {
	ix := openMemIndexer(t)

	want, err := imt.New(testHeight)
	require.NoError(t, err)
	for _, v := range []int64{42, 17, 89} {
		require.NoError(t, ix.Append(big.NewInt(v)))
		_, err := want.Insert(big.NewInt(v))
		require.NoError(t, err)
	}

	assert.Equal(t, 0, ix.Root().Cmp(want.Root()))
	assert.Equal(t, uint64(4), ix.Count())
}

func TestAppendRejectsDuplicate(t *testing.T) {
	ix := openMemIndexer(t)
	require.NoError(t, ix.Append(big.NewInt(7)))

	err := ix.Append(big.NewInt(7))
	assert.ErrorIs(t, err, imt.ErrAlreadyPresent)
	assert.Equal(t, uint64(2), ix.Count())
}

func TestAppendBatchMatchesSequential(t *testing.T) {
	ix := openMemIndexer(t)
	require.NoError(t, ix.AppendBatch([]*big.Int{
		big.NewInt(10), big.NewInt(5), big.NewInt(20), big.NewInt(1),
	}))

	want, err := imt.New(testHeight)
	require.NoError(t, err)
	for _, v := range []int64{1, 5, 10, 20} {
		_, err := want.Insert(big.NewInt(v))
		require.NoError(t, err)
	}
	assert.Equal(t, 0, ix.Root().Cmp(want.Root()))
}

func TestGetLowElement(t *testing.T) {
	ix := openMemIndexer(t)
	require.NoError(t, ix.Append(big.NewInt(42)))

	w, err := ix.GetLowElement(big.NewInt(100))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), w.Index)
	assert.Equal(t, 0, (*big.Int)(w.Value).Cmp(big.NewInt(42)))
	assert.Equal(t, 0, (*big.Int)(w.NextValue).Sign())
	assert.Equal(t, uint64(0), w.NextIndex)
	assert.Len(t, w.MerklePath, testHeight)
	assert.Equal(t, 0, (*big.Int)(w.Root).Cmp(ix.Root()))

	// the wire form is valid JSON with hex-quantity fields
	raw, err := json.Marshal(w)
	require.NoError(t, err)
	var back LowElementWitness
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, 0, (*big.Int)(back.Value).Cmp(big.NewInt(42)))
}

func TestGetLowElementRejectsMember(t *testing.T) {
	ix := openMemIndexer(t)
	require.NoError(t, ix.Append(big.NewInt(42)))

	_, err := ix.GetLowElement(big.NewInt(42))
	assert.ErrorIs(t, err, imt.ErrAlreadyPresent)
}

func TestWitnessVerifiesAgainstRoot(t *testing.T) {
	ix := openMemIndexer(t)
	require.NoError(t, ix.AppendBatch([]*big.Int{
		big.NewInt(3), big.NewInt(300), big.NewInt(30),
	}))

	w, err := ix.NonMembershipWitness(big.NewInt(31))
	require.NoError(t, err)
	require.NoError(t, imt.VerifyNonMembership(ix.Root(), w, testHeight))
}

func TestReopenRebuildsSameTree(t *testing.T) {
	dir := t.TempDir()

	ix, err := Open(dir, testHeight)
	require.NoError(t, err)
	require.NoError(t, ix.Append(big.NewInt(11)))
	require.NoError(t, ix.AppendBatch([]*big.Int{big.NewInt(44), big.NewInt(22)}))
	root := ix.Root()
	count := ix.Count()
	require.NoError(t, ix.Close())

	back, err := Open(dir, testHeight)
	require.NoError(t, err)
	defer back.Close()

	assert.Equal(t, 0, back.Root().Cmp(root))
	assert.Equal(t, count, back.Count())

	// appends continue from where the log left off
	require.NoError(t, back.Append(big.NewInt(33)))
	w, err := back.GetLowElement(big.NewInt(34))
	require.NoError(t, err)
	assert.Equal(t, 0, (*big.Int)(w.Value).Cmp(big.NewInt(33)))
}
