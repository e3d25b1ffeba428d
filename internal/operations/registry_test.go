package operations_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datacheck/internal/operations"
	optest "datacheck/internal/operations/testutil"
)

func stepIDs(steps []operations.Step) []string {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID()
	}
	return ids
}

func TestRegistry_Register(t *testing.T) {
	tests := []struct {
		name        string
		step        operations.Step
		errContains string
	}{
		{name: "valid step", step: optest.CreateSuccessfulStep("load", "Load")},
		{name: "nil step", step: nil, errContains: "nil Step"},
		{name: "empty id", step: optest.CreateSuccessfulStep("", "Nameless"), errContains: "cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := operations.NewRegistry()
			err := r.Register(tt.step)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Equal(t, 0, r.Count())
				return
			}
			require.NoError(t, err)
			assert.True(t, r.Has(tt.step.ID()))
		})
	}
}

func TestRegistry_Duplicate(t *testing.T) {
	r := optest.CreateTestRegistry()

	err := r.Register(optest.CreateSuccessfulStep("step1", "Again"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
	assert.Equal(t, []string{"step1", "step2", "step3"}, r.ListIDs())

	_, err = r.Get("step4")
	assert.Error(t, err)
}

func TestRegistry_GetDependencyOrder(t *testing.T) {
	t.Run("diamond", func(t *testing.T) {
		r := operations.NewRegistry()
		for _, s := range optest.CreateDiamondSteps() {
			require.NoError(t, r.Register(s))
		}

		steps, err := r.GetDependencyOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C", "D"}, stepIDs(steps))
	})

	t.Run("registered out of order", func(t *testing.T) {
		r := operations.NewRegistry()
		require.NoError(t, r.Register(optest.CreateSuccessfulStep("report", "Report", "validate")))
		require.NoError(t, r.Register(optest.CreateSuccessfulStep("validate", "Validate", "load")))
		require.NoError(t, r.Register(optest.CreateSuccessfulStep("load", "Load")))

		steps, err := r.GetDependencyOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"load", "validate", "report"}, stepIDs(steps))
	})

	t.Run("missing dependency", func(t *testing.T) {
		r := operations.NewRegistry()
		require.NoError(t, r.Register(optest.CreateSuccessfulStep("validate", "Validate", "load")))

		_, err := r.GetDependencyOrder()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-existent Step load")
		assert.Error(t, r.ValidateDependencies())
	})

	t.Run("cycle", func(t *testing.T) {
		r := operations.NewRegistry()
		require.NoError(t, r.Register(optest.CreateSuccessfulStep("a", "A", "b")))
		require.NoError(t, r.Register(optest.CreateSuccessfulStep("b", "B", "a")))

		_, err := r.GetDependencyOrder()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cycle")
	})
}

func TestRegistry_DependentsAndTypes(t *testing.T) {
	r := operations.NewRegistry()
	for _, s := range optest.CreateDiamondSteps() {
		require.NoError(t, r.Register(s))
	}

	assert.Equal(t, []string{"B", "C"}, stepIDs(r.GetDependents("A")))
	assert.Empty(t, r.GetDependents("D"))

	types := r.Types()
	require.Len(t, types, 4)
	assert.Equal(t, operations.OperationType{ID: "D", Name: "Step D", Dependencies: []string{"B", "C"}}, types[3])
	assert.Equal(t, []string{}, types[0].Dependencies)
}
