package rxgo_test

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rxgo"
	"github.com/hupe1980/rxgo/engine"
	"github.com/hupe1980/rxgo/testutil"
)

func newLightMachine(t *testing.T, cache *rxgo.Cache, opts ...rxgo.Option) *rxgo.Machine {
	t.Helper()

	vm, err := rxgo.NewMachine(rxgo.FlagDefault, cache, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = vm.Close() })
	return vm
}

func newFastMachine(t *testing.T, ds *rxgo.Dataset, opts ...rxgo.Option) *rxgo.Machine {
	t.Helper()

	vm, err := rxgo.NewFastMachine(rxgo.FlagDefault, ds, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = vm.Close() })
	return vm
}

func TestMachine_LightMatchesFast(t *testing.T) {
	eng := testutil.NewSmallEngine()
	light := newLightMachine(t, newSmallCache(t, eng))
	fast := newFastMachine(t, newSmallDataset(t, eng, rxgo.WithWorkers(4)))

	assert.Equal(t, rxgo.ModeLight, light.Mode())
	assert.Equal(t, rxgo.ModeFast, fast.Mode())
	assert.True(t, fast.Flags().Has(rxgo.FlagFullMem))
	assert.False(t, light.Flags().Has(rxgo.FlagFullMem))

	for _, input := range testutil.NewRNG(42).Inputs(32, 256) {
		want, err := light.Sum(input)
		require.NoError(t, err)
		got, err := fast.Sum(input)
		require.NoError(t, err)
		require.Equal(t, want, got, "input %x", input)
	}
}

func TestMachine_Deterministic(t *testing.T) {
	eng := testutil.NewSmallEngine()
	cache := newSmallCache(t, eng)
	a := newLightMachine(t, cache)
	b := newLightMachine(t, cache)

	d1, err := a.Sum(testutil.ExampleInput)
	require.NoError(t, err)
	d2, err := a.Sum(testutil.ExampleInput)
	require.NoError(t, err)
	d3, err := b.Sum(testutil.ExampleInput)
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.Equal(t, d1, d3)

	other, err := a.Sum([]byte("another input"))
	require.NoError(t, err)
	assert.NotEqual(t, d1, other)
}

func TestMachine_KeyChangesDigest(t *testing.T) {
	eng := testutil.NewSmallEngine()
	c1 := newSmallCache(t, eng)
	c2, err := rxgo.NewCache(rxgo.FlagDefault, []byte("a different key"), rxgo.WithEngine(eng))
	require.NoError(t, err)
	defer c2.Close()

	vm1 := newLightMachine(t, c1)
	vm2 := newLightMachine(t, c2)
	defer vm2.Close()

	d1, err := vm1.Sum(testutil.ExampleInput)
	require.NoError(t, err)
	d2, err := vm2.Sum(testutil.ExampleInput)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)
}

func TestMachine_EmptyInput(t *testing.T) {
	vm := newLightMachine(t, newSmallCache(t, testutil.NewSmallEngine()))

	d1, err := vm.Sum(nil)
	require.NoError(t, err)
	d2, err := vm.Sum([]byte{})
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestMachine_Hash_ShortBuffer(t *testing.T) {
	vm := newLightMachine(t, newSmallCache(t, testutil.NewSmallEngine()))

	out := bytes.Repeat([]byte{0xAA}, rxgo.DigestSize-1)
	err := vm.Hash(testutil.ExampleInput, out)
	require.ErrorIs(t, err, rxgo.ErrOutputTooSmall)

	var sizeErr *rxgo.SizeError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, rxgo.DigestSize, sizeErr.Required)
	assert.Equal(t, rxgo.DigestSize-1, sizeErr.Actual)
	assert.Equal(t, bytes.Repeat([]byte{0xAA}, rxgo.DigestSize-1), out, "buffer must be untouched")

	require.ErrorIs(t, vm.Hash(testutil.ExampleInput, nil), rxgo.ErrOutputTooSmall)
}

func TestMachine_Hash_LongBuffer(t *testing.T) {
	vm := newLightMachine(t, newSmallCache(t, testutil.NewSmallEngine()))

	want, err := vm.Sum(testutil.ExampleInput)
	require.NoError(t, err)

	out := bytes.Repeat([]byte{0x5C}, rxgo.DigestSize+8)
	require.NoError(t, vm.Hash(testutil.ExampleInput, out))
	assert.Equal(t, want[:], out[:rxgo.DigestSize])
	assert.Equal(t, bytes.Repeat([]byte{0x5C}, 8), out[rxgo.DigestSize:], "tail must be untouched")
}

func TestMachine_Close(t *testing.T) {
	cache := newSmallCache(t, testutil.NewSmallEngine())
	vm, err := rxgo.NewMachine(rxgo.FlagDefault, cache)
	require.NoError(t, err)

	require.NoError(t, vm.Close())
	require.NoError(t, vm.Close())

	_, err = vm.Sum(testutil.ExampleInput)
	require.ErrorIs(t, err, rxgo.ErrClosed)

	// Closing the machine unbinds it from the cache.
	require.NoError(t, cache.Close())
}

func TestMachine_ClosedStore(t *testing.T) {
	eng := testutil.NewSmallEngine()

	cache, err := rxgo.NewCache(rxgo.FlagDefault, testutil.ExampleKey, rxgo.WithEngine(eng))
	require.NoError(t, err)
	require.NoError(t, cache.Close())
	_, err = rxgo.NewMachine(rxgo.FlagDefault, cache)
	require.ErrorIs(t, err, rxgo.ErrClosed)

	ds := newSmallDataset(t, eng)
	require.NoError(t, ds.Close())
	_, err = rxgo.NewFastMachine(rxgo.FlagDefault, ds)
	require.ErrorIs(t, err, rxgo.ErrClosed)
}

func TestMachine_ManyBoundToOneDataset(t *testing.T) {
	eng := testutil.NewSmallEngine()
	ds := newSmallDataset(t, eng, rxgo.WithWorkers(2))
	inputs := testutil.NewRNG(3).Inputs(16, 64)

	ref := newFastMachine(t, ds)
	want := make([]rxgo.Digest, len(inputs))
	for i, in := range inputs {
		d, err := ref.Sum(in)
		require.NoError(t, err)
		want[i] = d
	}

	const goroutines = 8
	machines := make([]*rxgo.Machine, goroutines)
	for i := range machines {
		machines[i] = newFastMachine(t, ds)
	}
	require.ErrorIs(t, ds.Close(), rxgo.ErrInUse)

	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for _, vm := range machines {
		wg.Add(1)
		go func(vm *rxgo.Machine) {
			defer wg.Done()
			for i, in := range inputs {
				d, err := vm.Sum(in)
				if err != nil {
					errs <- err
					return
				}
				if d != want[i] {
					errs <- assert.AnError
					return
				}
			}
		}(vm)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestNewMachine_InitErrors(t *testing.T) {
	eng := testutil.NewSmallEngine()
	cache := newSmallCache(t, eng)

	_, err := rxgo.NewMachine(rxgo.FlagDefault, nil)
	require.ErrorIs(t, err, rxgo.ErrVMInit)

	_, err = rxgo.NewFastMachine(rxgo.FlagDefault, nil)
	require.ErrorIs(t, err, rxgo.ErrVMInit)

	_, err = rxgo.NewMachine(rxgo.FlagFullMem, cache)
	require.ErrorIs(t, err, rxgo.ErrVMInit)
	var initErr *rxgo.InitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, rxgo.ModeLight, initErr.Mode)
	assert.Equal(t, rxgo.FlagFullMem, initErr.Flags)

	_, err = rxgo.NewMachine(rxgo.Flags(1<<20), cache)
	require.ErrorIs(t, err, rxgo.ErrInvalidFlags)

	// None of the failures above left a pin behind.
	require.NoError(t, cache.Close())
}

func TestNewMachine_EngineFailure(t *testing.T) {
	eng := testutil.NewHookEngine(testutil.NewSmallEngine())
	cache := newSmallCache(t, eng)
	eng.FailVM = true

	_, err := rxgo.NewMachine(rxgo.FlagDefault, cache)
	require.ErrorIs(t, err, rxgo.ErrVMInit)
	require.ErrorIs(t, err, engine.ErrVMCreate)

	require.NoError(t, cache.Close(), "failed VM creation must unpin the cache")
}

func TestNewMachine_EngineMismatch(t *testing.T) {
	cache := newSmallCache(t, testutil.NewSmallEngine())

	_, err := rxgo.NewMachine(rxgo.FlagDefault, cache, rxgo.WithEngine(testutil.NewSmallEngine()))
	require.ErrorIs(t, err, rxgo.ErrEngineMismatch)
	require.NoError(t, cache.Close())
}

func TestMachine_Metrics(t *testing.T) {
	metrics := &rxgo.BasicMetricsCollector{}
	vm := newLightMachine(t, newSmallCache(t, testutil.NewSmallEngine()), rxgo.WithMetricsCollector(metrics))

	for range 3 {
		_, err := vm.Sum(testutil.ExampleInput)
		require.NoError(t, err)
	}
	stats := metrics.GetStats()
	assert.Equal(t, int64(3), stats.HashCount)
	assert.Zero(t, stats.HashErrors)
}

func TestDigest(t *testing.T) {
	const hex = "8a48e5f9db45ab79d9080574c4d81954fe6ac63842214aff73c244b26330b7c9"

	d, err := rxgo.ParseDigest(hex)
	require.NoError(t, err)
	assert.Equal(t, hex, d.String())
	assert.Equal(t, byte(0x8a), d[0])

	_, err = rxgo.ParseDigest("8a48")
	require.Error(t, err)
	_, err = rxgo.ParseDigest("zz")
	require.Error(t, err)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "light", rxgo.ModeLight.String())
	assert.Equal(t, "fast", rxgo.ModeFast.String())
	assert.Equal(t, "Mode(9)", rxgo.Mode(9).String())
}
