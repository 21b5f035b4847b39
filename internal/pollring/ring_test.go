package pollring

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingWaitReadsReadyPipe(t *testing.T) {
	r, err := NewRing()
	require.NoError(t, err)
	defer r.Close()

	rd, wr, err := os.Pipe()
	require.NoError(t, err)
	defer rd.Close()
	defer wr.Close()

	_, err = wr.Write([]byte("x"))
	require.NoError(t, err)

	results, err := r.Wait([]int{int(rd.Fd())}, 1000)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, int(rd.Fd()), results[0].FD)
}

func TestRingWaitTimesOutWhenNothingReady(t *testing.T) {
	r, err := NewRing()
	require.NoError(t, err)
	defer r.Close()

	rd, wr, err := os.Pipe()
	require.NoError(t, err)
	defer rd.Close()
	defer wr.Close()

	results, err := r.Wait([]int{int(rd.Fd())}, 20)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestRingFeaturesReportsBackend(t *testing.T) {
	features := RingFeatures()
	require.NotEmpty(t, features.Backend)
}
