package crucible

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_TypeMismatch(t *testing.T) {
	c := New()

	require.NoError(t, c.BindInstance(Named("dsn"), "a string"))

	_, err := Resolve[int](c, Named("dsn"))
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestResolve_NilBindingYieldsZeroValue(t *testing.T) {
	c := New()

	require.NoError(t, c.Bind(Named("hook"), nil, AllowNil()))

	got, err := Resolve[*testConfig](c, Named("hook"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMust_PanicsOnFailure(t *testing.T) {
	c := New()

	assert.Panics(t, func() {
		Must[*testConfig](c, KeyFor[*testConfig]())
	})
}

func TestMustGet_ReturnsBoundValue(t *testing.T) {
	c := New()

	cfg := &testConfig{DSN: "x"}
	require.NoError(t, BindInstanceOf(c, cfg))

	assert.Same(t, cfg, MustGet[*testConfig](c))
}

func TestBindHelpers_ScopeSelection(t *testing.T) {
	c := New()

	require.NoError(t, BindSingleton[*testConfig](c, func() *testConfig { return &testConfig{} }))
	require.NoError(t, BindTransient[*testService](c, func() *testService { return &testService{} }))
	require.NoError(t, BindScoped[*testDisposable](c, ScopeRequest, func() *testDisposable { return &testDisposable{} }))

	cfgBinding, ok := c.Registry().Binding(KeyFor[*testConfig]())
	require.True(t, ok)
	assert.Equal(t, ScopeSingleton, cfgBinding.ScopeName)

	svcBinding, ok := c.Registry().Binding(KeyFor[*testService]())
	require.True(t, ok)
	assert.Equal(t, ScopeTransient, svcBinding.ScopeName)

	dispBinding, ok := c.Registry().Binding(KeyFor[*testDisposable]())
	require.True(t, ok)
	assert.Equal(t, ScopeRequest, dispBinding.ScopeName)
}

func TestBindFactoryFor(t *testing.T) {
	c := New()

	require.NoError(t, BindFactoryFor[*testConfig](c, func() *testConfig {
		return &testConfig{DSN: "built"}
	}))

	got, err := Get[*testConfig](c)
	require.NoError(t, err)
	assert.Equal(t, "built", got.DSN)
}

func TestLazy_ResolvesOnce(t *testing.T) {
	c := New()

	calls := 0
	require.NoError(t, BindTransient[*testConfig](c, func() *testConfig {
		calls++

		return &testConfig{}
	}))

	lazy := NewLazyFor[*testConfig](c)
	assert.False(t, lazy.IsResolved())

	first, err := lazy.Get()
	require.NoError(t, err)
	assert.True(t, lazy.IsResolved())

	second, err := lazy.Get()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls, "lazy handle caches its own resolution")
}

func TestLazy_IsResolvedConcurrentWithGet(t *testing.T) {
	c := New()

	require.NoError(t, BindFactoryFor[*testConfig](c, func() *testConfig {
		time.Sleep(5 * time.Millisecond)

		return &testConfig{}
	}))

	lazy := NewLazyFor[*testConfig](c)

	polled := make(chan struct{})
	go func() {
		defer close(polled)
		for i := 0; i < 1000; i++ {
			lazy.IsResolved()
		}
	}()

	_, err := lazy.Get()
	require.NoError(t, err)
	<-polled

	assert.True(t, lazy.IsResolved())
}

func TestLazy_MustGetPanicsOnFailure(t *testing.T) {
	c := New()

	lazy := NewLazyFor[*testConfig](c)
	assert.Panics(t, func() { lazy.MustGet() })
	assert.False(t, lazy.IsResolved())
}

func TestNewTestContainer_ClearsOnCleanup(t *testing.T) {
	disposable := &testDisposable{}

	t.Run("inner", func(t *testing.T) {
		c := NewTestContainer(t)
		require.NoError(t, BindFactoryFor[*testDisposable](c, func() *testDisposable {
			return disposable
		}))

		_, err := Get[*testDisposable](c)
		require.NoError(t, err)
		assert.False(t, disposable.wasDisposed())
	})

	assert.True(t, disposable.wasDisposed())
}
