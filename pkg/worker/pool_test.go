package worker

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Results always come back in input order regardless of worker count,
	// so parallel fan-out never reorders downstream upserts.
	properties.Property("results preserve input order", prop.ForAll(
		func(n, workers int) bool {
			if n < 0 || n > 200 || workers < 1 || workers > 16 {
				return true
			}

			items := make([]int, n)
			for i := range items {
				items[i] = i
			}

			results, err := Map(context.Background(), workers, items, func(ctx context.Context, v int) (string, error) {
				return strconv.Itoa(v * 2), nil
			})
			if err != nil {
				return false
			}
			if len(results) != n {
				return false
			}
			for i, r := range results {
				if r.Value != strconv.Itoa(i*2) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 200),
		gen.IntRange(1, 16),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestMapPerItemErrors(t *testing.T) {
	items := []int{1, 2, 3, 4}
	failOn := errors.New("boom")

	results, err := Map(context.Background(), 2, items, func(ctx context.Context, v int) (int, error) {
		if v%2 == 0 {
			return 0, failOn
		}
		return v, nil
	})
	require.NoError(t, err)

	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, failOn)
	assert.NoError(t, results[2].Err)
	assert.ErrorIs(t, results[3].Err, failOn)
}

func TestMapCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	items := make([]int, 1000)
	started := make(chan struct{}, 1)

	go func() {
		<-started
		cancel()
	}()

	_, err := Map(ctx, 1, items, func(ctx context.Context, v int) (int, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		time.Sleep(time.Millisecond)
		return v, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMapEmptyInput(t *testing.T) {
	results, err := Map(context.Background(), 4, nil, func(ctx context.Context, v int) (int, error) {
		return v, nil
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}
