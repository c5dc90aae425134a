package muengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knhk/core/internal/casestate"
	"github.com/knhk/core/internal/hookregistry"
	"github.com/knhk/core/internal/pattern"
	"github.com/knhk/core/internal/triple"
)

func oneTriple() []triple.Triple {
	return []triple.Triple{{S: 0xA1, P: 0xB1, O: 0xC1}}
}

func TestSequenceAlwaysFiresAndForwards(t *testing.T) {
	e := New()
	res, err := e.Dispatch(pattern.Sequence, &Context{Run: oneTriple(), Desc: &pattern.Descriptor{Tag: pattern.Sequence, TickBudget: 1}})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, oneTriple(), res.Emit)
}

func TestParallelSplitUnconditionalActivatesAllBranches(t *testing.T) {
	e := New()
	res, err := e.Dispatch(pattern.ParallelSplit, &Context{
		Run:  oneTriple(),
		Desc: &pattern.Descriptor{Tag: pattern.ParallelSplit, TickBudget: 2, BranchCount: 3},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, res.LaneActivation, 3)
	for _, a := range res.LaneActivation {
		assert.True(t, a)
	}
}

func TestParallelSplitZeroTrueBranchesImplicitTermination(t *testing.T) {
	e := New()
	falseGuard := func(triple.Triple) (bool, error) { return false, nil }
	res, err := e.Dispatch(pattern.ParallelSplit, &Context{
		Run:    oneTriple(),
		Desc:   &pattern.Descriptor{Tag: pattern.ParallelSplit, TickBudget: 2, BranchCount: 2, OnZeroTrueBranches: pattern.EdgeImplicitTermination},
		Guards: []hookregistry.GuardFunc{falseGuard, falseGuard},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Nil(t, res.Emit, "no A-slot leakage on implicit termination")
}

func TestExclusiveChoicePicksFirstTrueGuardInOrder(t *testing.T) {
	e := New()
	calls := []int{}
	g0 := func(triple.Triple) (bool, error) { calls = append(calls, 0); return false, nil }
	g1 := func(triple.Triple) (bool, error) { calls = append(calls, 1); return true, nil }
	g2 := func(triple.Triple) (bool, error) { calls = append(calls, 2); return true, nil }

	res, err := e.Dispatch(pattern.ExclusiveChoice, &Context{
		Run:    oneTriple(),
		Desc:   &pattern.Descriptor{Tag: pattern.ExclusiveChoice, TickBudget: 2, BranchCount: 3},
		Guards: []hookregistry.GuardFunc{g0, g1, g2},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []bool{false, true, false}, res.LaneActivation)
	assert.Equal(t, []int{0, 1}, calls, "evaluation stops at the first true guard")
}

func TestExclusiveChoiceAllFalseIsImplicitTermination(t *testing.T) {
	e := New()
	falseGuard := func(triple.Triple) (bool, error) { return false, nil }
	res, err := e.Dispatch(pattern.ExclusiveChoice, &Context{
		Run:    oneTriple(),
		Desc:   &pattern.Descriptor{Tag: pattern.ExclusiveChoice, TickBudget: 2, BranchCount: 2},
		Guards: []hookregistry.GuardFunc{falseGuard, falseGuard},
	})
	require.NoError(t, err)
	assert.True(t, res.Success, "all-false must not be a protocol error")
	assert.Nil(t, res.Emit)
}

func TestSimpleMergeConcurrentArrivalsIsMergeContention(t *testing.T) {
	e := New()
	res, err := e.Dispatch(pattern.SimpleMerge, &Context{Run: oneTriple(), Desc: &pattern.Descriptor{Tag: pattern.SimpleMerge, TickBudget: 1}, ArrivalsThisTick: 2})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "MergeContention", res.ErrorTag)
}

func TestMultiChoiceActivatesAllTrueGuards(t *testing.T) {
	e := New()
	trueGuard := func(triple.Triple) (bool, error) { return true, nil }
	falseGuard := func(triple.Triple) (bool, error) { return false, nil }
	res, err := e.Dispatch(pattern.MultiChoice, &Context{
		Run:    oneTriple(),
		Desc:   &pattern.Descriptor{Tag: pattern.MultiChoice, TickBudget: 3, BranchCount: 3},
		Guards: []hookregistry.GuardFunc{trueGuard, falseGuard, trueGuard},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []bool{true, false, true}, res.LaneActivation)
}

func TestSynchronizationFiresOnceAllArrivalsSeen(t *testing.T) {
	e := New()
	j := casestate.NewJoin("case-1", 0x2, 2, 0, pattern.SyncAll)
	desc := &pattern.Descriptor{Tag: pattern.Synchronization, TickBudget: 3}

	res, err := e.Dispatch(pattern.Synchronization, &Context{Run: oneTriple(), Desc: desc, Join: j, Lane: 0})
	require.NoError(t, err)
	assert.False(t, res.JoinFired)

	res, err = e.Dispatch(pattern.Synchronization, &Context{Run: oneTriple(), Desc: desc, Join: j, Lane: 1})
	require.NoError(t, err)
	assert.True(t, res.JoinFired)
	assert.Equal(t, oneTriple(), res.Emit)
}

func TestDiscriminatorFiresOnceAndSuppressesRest(t *testing.T) {
	e := New()
	j := casestate.NewJoin("case-1", 0x3, 3, 0, pattern.SyncAny)
	desc := &pattern.Descriptor{Tag: pattern.Discriminator, TickBudget: 3}

	res, err := e.Dispatch(pattern.Discriminator, &Context{Run: oneTriple(), Desc: desc, Join: j, Lane: 0})
	require.NoError(t, err)
	assert.True(t, res.JoinFired)

	res, err = e.Dispatch(pattern.Discriminator, &Context{Run: oneTriple(), Desc: desc, Join: j, Lane: 1})
	require.NoError(t, err)
	assert.Equal(t, "DiscriminatorReset", res.ErrorTag)

	res, err = e.Dispatch(pattern.Discriminator, &Context{Run: oneTriple(), Desc: desc, Join: j, Lane: 2})
	require.NoError(t, err)
	assert.Equal(t, "DiscriminatorReset", res.ErrorTag)
}

func TestArbitraryCyclesParksPastChatmanConstant(t *testing.T) {
	e := New()
	res, err := e.Dispatch(pattern.ArbitraryCycles, &Context{
		Run:        oneTriple(),
		Desc:       &pattern.Descriptor{Tag: pattern.ArbitraryCycles, TickBudget: 2},
		CycleDepth: 8, // the 9th iteration would exceed the constant
	})
	require.NoError(t, err)
	assert.True(t, res.Parked)
	assert.Equal(t, "BudgetViolation", res.ErrorTag)
}

func TestDeferredChoiceFiresAtExactTimeoutBoundary(t *testing.T) {
	e := New()
	desc := &pattern.Descriptor{Tag: pattern.DeferredChoice, TickBudget: 3, Timeout: 8}
	res, err := e.Dispatch(pattern.DeferredChoice, &Context{Run: oneTriple(), Desc: desc, ElapsedTicks: 8})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, oneTriple(), res.Emit)
}

func TestDeferredChoiceEventWinsImmediately(t *testing.T) {
	e := New()
	desc := &pattern.Descriptor{Tag: pattern.DeferredChoice, TickBudget: 3, Timeout: 8}
	res, err := e.Dispatch(pattern.DeferredChoice, &Context{Run: oneTriple(), Desc: desc, ElapsedTicks: 1, EventFired: true})
	require.NoError(t, err)
	assert.Equal(t, oneTriple(), res.Emit)
}

func TestMultipleInstanceSpawnsNCopies(t *testing.T) {
	e := New()
	res, err := e.Dispatch(pattern.MultipleInstance, &Context{
		Run:  oneTriple(),
		Desc: &pattern.Descriptor{Tag: pattern.MultipleInstance, TickBudget: 2, BranchCount: 4},
	})
	require.NoError(t, err)
	assert.Len(t, res.LaneActivation, 4)
	assert.Len(t, res.Emit, 4)
}

func TestDispatchUnknownTagIsFatal(t *testing.T) {
	e := New()
	_, err := e.Dispatch(pattern.Tag(99), &Context{})
	require.Error(t, err)
}
