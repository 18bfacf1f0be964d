package quarry_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry"
)

func TestNotFoundError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := quarry.NewNotFoundError("select one")
		assert.Equal(t, "quarry: select one returned no rows", err.Error())
		assert.Equal(t, "select one", err.Label())
	})

	t.Run("IsNotFound", func(t *testing.T) {
		err := quarry.NewNotFoundError("select value")
		assert.True(t, quarry.IsNotFound(err))
		assert.True(t, errors.Is(err, quarry.ErrNotFound))

		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, quarry.IsNotFound(wrapped))
		assert.True(t, quarry.IsNotFound(quarry.ErrNotFound))

		assert.False(t, quarry.IsNotFound(errors.New("other")))
		assert.False(t, quarry.IsNotFound(nil))
	})
}

func TestNotSingularError(t *testing.T) {
	err := quarry.NewNotSingularError("select one", 3)
	assert.Equal(t, "quarry: select one returned 3 rows, expected 1", err.Error())
	assert.Equal(t, 3, err.Count())
	assert.True(t, quarry.IsNotSingular(fmt.Errorf("wrapper: %w", err)))
	assert.True(t, errors.Is(err, quarry.ErrNotSingular))
	assert.False(t, quarry.IsNotFound(err))
	assert.False(t, quarry.IsNotSingular(nil))
}

func TestValidationError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := quarry.Validationf("update", "statement has no filter")
		assert.Equal(t, "quarry: invalid update: statement has no filter", err.Error())

		err = quarry.NewValidationError("", errors.New("empty projection"))
		assert.Equal(t, "quarry: invalid statement: empty projection", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		cause := errors.New("duplicate field")
		err := fmt.Errorf("select: %w", quarry.NewValidationError("select", cause))
		assert.True(t, quarry.IsValidationError(err))
		assert.ErrorIs(t, err, cause)
		assert.ErrorIs(t, err, quarry.ErrValidation)
		assert.False(t, quarry.IsValidationError(nil))
	})
}

func TestCompilationError(t *testing.T) {
	err := quarry.NewCompilationError("mysql5", "recursive query")
	assert.Equal(t, "quarry: recursive query is not supported by mysql5", err.Error())
	assert.True(t, quarry.IsCompilationError(fmt.Errorf("compile: %w", err)))
	assert.ErrorIs(t, err, quarry.ErrCompilation)
	assert.False(t, quarry.IsValidationError(err))
}

func TestExecutionError(t *testing.T) {
	cause := errors.New("connection reset")
	err := quarry.NewExecutionError("select", "SELECT 1", cause)
	assert.Equal(t, "quarry: select: connection reset", err.Error())
	assert.Equal(t, "SELECT 1", err.SQL)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, quarry.ErrExecution)
	assert.True(t, quarry.IsExecutionError(fmt.Errorf("wrapper: %w", err)))
	assert.False(t, quarry.IsExecutionError(cause))
}

func TestTransactionStateError(t *testing.T) {
	err := quarry.NewTransactionStateError("commit", "idle")
	assert.Equal(t, "quarry: cannot commit while idle", err.Error())
	assert.True(t, quarry.IsTransactionStateError(err))
	assert.ErrorIs(t, err, quarry.ErrTransactionState)
	assert.False(t, quarry.IsTransactionStateError(quarry.ErrConcurrentUse))
}

func TestAggregateError(t *testing.T) {
	t.Run("NoErrors", func(t *testing.T) {
		assert.Nil(t, quarry.NewAggregateError())
		assert.Nil(t, quarry.NewAggregateError(nil, nil))
	})

	t.Run("SingleError", func(t *testing.T) {
		single := errors.New("single error")
		assert.Equal(t, single, quarry.NewAggregateError(nil, single, nil))
	})

	t.Run("MultipleErrors", func(t *testing.T) {
		notFound := quarry.NewNotFoundError("company")
		notSingular := quarry.NewNotSingularError("parent", 2)
		err := quarry.NewAggregateError(notFound, notSingular)

		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "multiple errors")
		assert.Contains(t, err.Error(), "[1] quarry: company returned no rows")
		assert.Contains(t, err.Error(), "[2] quarry: parent returned 2 rows")
		assert.True(t, quarry.IsNotFound(err))
		assert.True(t, quarry.IsNotSingular(err))
	})
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		quarry.ErrValidation,
		quarry.ErrCompilation,
		quarry.ErrExecution,
		quarry.ErrTransactionState,
		quarry.ErrNotFound,
		quarry.ErrNotSingular,
		quarry.ErrRunnerSuspended,
		quarry.ErrConcurrentUse,
	}
	for i, a := range sentinels {
		assert.Contains(t, a.Error(), "quarry: ")
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b)
			}
		}
	}
}

func BenchmarkErrors(b *testing.B) {
	b.Run("NewNotFoundError", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = quarry.NewNotFoundError("select one")
		}
	})

	b.Run("IsNotFound", func(b *testing.B) {
		err := fmt.Errorf("wrapped: %w", quarry.NewNotFoundError("select one"))
		for i := 0; i < b.N; i++ {
			_ = quarry.IsNotFound(err)
		}
	})

	b.Run("IsExecutionError", func(b *testing.B) {
		err := quarry.NewExecutionError("insert", "INSERT", errors.New("boom"))
		for i := 0; i < b.N; i++ {
			_ = quarry.IsExecutionError(err)
		}
	})
}
