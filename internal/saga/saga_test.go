package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trace struct{ calls []string }

func (tr *trace) step(name string, fail bool, compensate bool) Step {
	s := Step{
		Name: name,
		Do: func(context.Context) error {
			tr.calls = append(tr.calls, "do:"+name)
			if fail {
				return errors.New(name + " failed")
			}
			return nil
		},
	}
	if compensate {
		s.Compensate = func(context.Context) error {
			tr.calls = append(tr.calls, "undo:"+name)
			return nil
		}
	}
	return s
}

func TestRunAllSteps(t *testing.T) {
	tr := &trace{}
	s := &Saga{Steps: []Step{tr.step("a", false, true), tr.step("b", false, true)}}

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []string{"do:a", "do:b"}, tr.calls)
}

func TestRunCompensatesInReverse(t *testing.T) {
	tr := &trace{}
	s := &Saga{Steps: []Step{
		tr.step("a", false, true),
		tr.step("b", false, false),
		tr.step("c", false, true),
		tr.step("d", true, true),
		tr.step("e", false, true),
	}}

	err := s.Run(context.Background())

	var serr *StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "d", serr.Step)
	assert.Equal(t, []string{"a", "b", "c"}, serr.Completed)
	assert.NoError(t, serr.Compensation)
	assert.Equal(t, []string{"do:a", "do:b", "do:c", "do:d", "undo:c", "undo:a"}, tr.calls)
}

func TestCompensationErrorsAreJoined(t *testing.T) {
	boom := errors.New("boom")
	s := &Saga{Steps: []Step{
		{Name: "a", Do: func(context.Context) error { return nil }, Compensate: func(context.Context) error { return boom }},
		{Name: "b", Do: func(context.Context) error { return errors.New("b failed") }},
	}}

	err := s.Run(context.Background())

	var serr *StepError
	require.ErrorAs(t, err, &serr)
	assert.ErrorIs(t, serr.Compensation, boom)
	assert.Contains(t, err.Error(), "compensation")
}

func TestStepErrorUnwraps(t *testing.T) {
	cause := errors.New("cause")
	s := &Saga{Steps: []Step{{Name: "only", Do: func(context.Context) error { return cause }}}}
	assert.ErrorIs(t, s.Run(context.Background()), cause)
}
