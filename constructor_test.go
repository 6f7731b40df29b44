package crucible

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeConstructor_Shapes(t *testing.T) {
	t.Run("plain value", func(t *testing.T) {
		info, err := analyzeConstructor(func(dsn string) *testConfig {
			return &testConfig{DSN: dsn}
		}, nil)
		require.NoError(t, err)

		assert.Len(t, info.params, 1)
		assert.False(t, info.wantsCtx)
		assert.True(t, info.hasValue)
		assert.False(t, info.hasError)
	})

	t.Run("value and error", func(t *testing.T) {
		info, err := analyzeConstructor(func() (*testConfig, error) {
			return nil, nil
		}, nil)
		require.NoError(t, err)

		assert.True(t, info.hasValue)
		assert.True(t, info.hasError)
	})

	t.Run("leading context", func(t *testing.T) {
		info, err := analyzeConstructor(func(ctx context.Context, dsn string) *testConfig {
			return &testConfig{DSN: dsn}
		}, nil)
		require.NoError(t, err)

		assert.True(t, info.wantsCtx)
		assert.Len(t, info.params, 1, "context is not a resolvable parameter")
	})

	t.Run("variadic collector excluded", func(t *testing.T) {
		info, err := analyzeConstructor(func(dsn string, extras ...int) *testConfig {
			return &testConfig{DSN: dsn}
		}, nil)
		require.NoError(t, err)

		assert.Len(t, info.params, 1)
	})

	t.Run("no return value", func(t *testing.T) {
		info, err := analyzeConstructor(func() {}, nil)
		require.NoError(t, err)

		assert.False(t, info.hasValue)
		assert.False(t, info.hasError)
	})
}

func TestAnalyzeConstructor_Rejections(t *testing.T) {
	_, err := analyzeConstructor(nil, nil)
	assert.Error(t, err)

	_, err = analyzeConstructor(42, nil)
	assert.Error(t, err)

	_, err = analyzeConstructor(func() (error, *testConfig) {
		return nil, nil
	}, nil)
	assert.Error(t, err, "error must be the last return value")

	_, err = analyzeConstructor(func() (*testConfig, *testService) {
		return nil, nil
	}, nil)
	assert.Error(t, err, "at most one non-error value")
}

func TestAnalyzeConstructor_ParamNames(t *testing.T) {
	info, err := analyzeConstructor(func(dsn string, cfg *testConfig) *testService {
		return nil
	}, []string{"dsn", "cfg?"})
	require.NoError(t, err)

	require.Len(t, info.params, 2)
	assert.Equal(t, "dsn", info.params[0].name)
	assert.False(t, info.params[0].optional)
	assert.Equal(t, "cfg", info.params[1].name)
	assert.True(t, info.params[1].optional)
}

func TestConstructorCall_NoValueFactoryYieldsNil(t *testing.T) {
	ran := false
	info, err := analyzeConstructor(func() { ran = true }, nil)
	require.NoError(t, err)

	got, err := info.call(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.True(t, ran)
}

func TestAnalyzeStruct_FieldSelection(t *testing.T) {
	type example struct {
		DSN      string       `inject:"dsn"`
		Skipped  string       `inject:"-"`
		Optional *testConfig  `optional:"true"`
		Plain    *testService
		ignored  int
	}

	info, err := analyzeStruct(TypeOf[*example]())
	require.NoError(t, err)
	require.True(t, info.pointer)
	require.Len(t, info.fields, 3)

	assert.Equal(t, "dsn", info.fields[0].name)
	assert.True(t, info.fields[1].optional)
	assert.Empty(t, info.fields[2].name)
}

func TestAnalyzeStruct_RejectsNonStruct(t *testing.T) {
	_, err := analyzeStruct(TypeOf[int]())
	assert.Error(t, err)
}

func TestIsConstructable(t *testing.T) {
	assert.True(t, isConstructable(TypeOf[testConfig]()))
	assert.True(t, isConstructable(TypeOf[*testConfig]()))
	assert.False(t, isConstructable(TypeOf[int]()))
	assert.False(t, isConstructable(TypeOf[testStore]()))
	assert.False(t, isConstructable(nil))
}
