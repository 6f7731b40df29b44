package crucible

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_FactoryPrecedesBinding(t *testing.T) {
	c := New()
	key := KeyFor[*testConfig]()

	require.NoError(t, c.BindInstance(key, &testConfig{DSN: "from-binding"}))
	require.NoError(t, c.BindFactory(key, func() *testConfig {
		return &testConfig{DSN: "from-factory"}
	}))

	got, err := Get[*testConfig](c)
	require.NoError(t, err)
	assert.Equal(t, "from-factory", got.DSN)
}

func TestResolver_NamePrecedesType(t *testing.T) {
	c := New()

	require.NoError(t, c.BindInstance(Named("dsn"), "by-name"))
	require.NoError(t, c.BindInstance(KeyFor[string](), "by-type"))
	require.NoError(t, c.Bind(KeyFor[*testConfig](), func(dsn string) *testConfig {
		return &testConfig{DSN: dsn}
	}, WithParams("dsn")))

	got, err := Get[*testConfig](c)
	require.NoError(t, err)
	assert.Equal(t, "by-name", got.DSN)
}

func TestResolver_FallsBackToTypeWhenNameUnbound(t *testing.T) {
	c := New()

	require.NoError(t, c.BindInstance(KeyFor[string](), "by-type"))
	require.NoError(t, c.Bind(KeyFor[*testConfig](), func(dsn string) *testConfig {
		return &testConfig{DSN: dsn}
	}, WithParams("dsn")))

	got, err := Get[*testConfig](c)
	require.NoError(t, err)
	assert.Equal(t, "by-type", got.DSN)
}

func TestResolver_OptionalParamLeftZero(t *testing.T) {
	c := New()

	require.NoError(t, c.Bind(KeyFor[*testService](), func(cfg *testConfig) *testService {
		return &testService{Config: cfg}
	}, WithParams("cfg?")))

	svc, err := Get[*testService](c)
	require.NoError(t, err)
	assert.Nil(t, svc.Config)
}

func TestResolver_MissingParamFails(t *testing.T) {
	c := New()

	require.NoError(t, c.Bind(KeyFor[*testService](), func(cfg *testConfig) *testService {
		return &testService{Config: cfg}
	}))

	_, err := Get[*testService](c)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolver_NilBindingResolvesToNil(t *testing.T) {
	c := New()

	require.NoError(t, c.Bind(Named("flag"), nil, AllowNil()))

	got, err := c.Get(Named("flag"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolver_InterfaceBoundToConcreteType(t *testing.T) {
	c := New()

	require.NoError(t, c.Bind(KeyFor[testStore](), TypeOf[*memStore]()))

	store, err := Get[testStore](c)
	require.NoError(t, err)
	require.IsType(t, &memStore{}, store)

	store.Put("k", "v")
}

func TestResolver_ConstructorReceivesContext(t *testing.T) {
	type ctxProbe struct{ value any }
	type probeKey struct{}

	c := New()
	require.NoError(t, c.BindFactory(KeyFor[*ctxProbe](), func(ctx context.Context) *ctxProbe {
		return &ctxProbe{value: ctx.Value(probeKey{})}
	}))

	ctx := context.WithValue(context.Background(), probeKey{}, "threaded")

	probe, err := GetCtx[*ctxProbe](ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "threaded", probe.value)
}

func TestResolver_CycleDetected(t *testing.T) {
	type svcA struct{}
	type svcB struct{}

	c := New()

	require.NoError(t, c.BindFactory(KeyFor[*svcA](), func(b *svcB) *svcA { return &svcA{} }))
	require.NoError(t, c.BindFactory(KeyFor[*svcB](), func(a *svcA) *svcB { return &svcB{} }))

	_, err := c.Get(KeyFor[*svcA]())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrCircularDependency)

	var cErr *Error
	require.ErrorAs(t, err, &cErr)

	chain, ok := cErr.Context("chain")
	require.True(t, ok)
	assert.Contains(t, chain, KeyFor[*svcA]())
	assert.Contains(t, chain, KeyFor[*svcB]())
}

func TestResolver_SelfCycleDetected(t *testing.T) {
	type svc struct{}

	c := New()

	require.NoError(t, c.BindFactory(KeyFor[*svc](), func(s *svc) *svc { return s }))

	_, err := c.Get(KeyFor[*svc]())
	assert.ErrorIs(t, err, ErrCircularDependency)
}

func TestResolver_FailedResolutionDoesNotPoisonLaterOnes(t *testing.T) {
	c := New()
	key := KeyFor[*testConfig]()

	boom := errors.New("boom")
	healthy := false
	require.NoError(t, c.BindFactory(key, func() (*testConfig, error) {
		if !healthy {
			return nil, boom
		}

		return &testConfig{DSN: "recovered"}, nil
	}))

	_, err := c.Get(key)
	require.ErrorIs(t, err, boom)

	// Nothing is cached for the failed key; the next attempt reruns the
	// factory.
	healthy = true

	got, err := Get[*testConfig](c)
	require.NoError(t, err)
	assert.Equal(t, "recovered", got.DSN)
}

func TestResolver_SharedDependencyResolvedOncePerGraph(t *testing.T) {
	type svcLeft struct {
		Config *testConfig
	}
	type svcRight struct {
		Config *testConfig
	}
	type svcRoot struct {
		Left  *svcLeft
		Right *svcRight
	}

	c := New()

	require.NoError(t, c.Bind(KeyFor[*testConfig](), nil))
	require.NoError(t, c.Bind(KeyFor[*svcLeft](), nil))
	require.NoError(t, c.Bind(KeyFor[*svcRight](), nil))
	require.NoError(t, c.Bind(KeyFor[*svcRoot](), nil))

	root, err := Get[*svcRoot](c)
	require.NoError(t, err)
	assert.Same(t, root.Left.Config, root.Right.Config, "diamond dependency must share the singleton")
}

func TestResolver_StructFieldTags(t *testing.T) {
	type tagged struct {
		DSN      string      `inject:"dsn"`
		Ignored  string      `inject:"-"`
		Optional *testConfig `optional:"true"`
	}

	c := New()

	require.NoError(t, c.BindInstance(Named("dsn"), "postgres://localhost"))
	require.NoError(t, c.Bind(KeyFor[*tagged](), nil))

	got, err := Get[*tagged](c)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost", got.DSN)
	assert.Empty(t, got.Ignored)
	assert.Nil(t, got.Optional)
}

func TestResolver_ValueStructBinding(t *testing.T) {
	c := New()

	require.NoError(t, c.BindInstance(Named("dsn"), "postgres://localhost"))
	require.NoError(t, c.Bind(KeyFor[testConfig](), func(dsn string) testConfig {
		return testConfig{DSN: dsn}
	}, WithParams("dsn")))

	got, err := Get[testConfig](c)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost", got.DSN)
}
