package run_outreach

import (
	"context"

	"outreach/pkg/service"
)

// RunOutreach is one full engine pass: enroll newly eligible prospects, then
// advance whatever is due. Composing the two keeps a fresh enrollment's step 0
// eligible for sending in the same pass when it carries no delay.
type RunOutreach struct {
	enroll  service.Job
	advance service.Job
}

func New(enroll, advance service.Job) *RunOutreach {
	return &RunOutreach{
		enroll:  enroll,
		advance: advance,
	}
}

var _ service.Job = (*RunOutreach)(nil)

func (j *RunOutreach) Init(ctx context.Context) error {
	if err := j.enroll.Init(ctx); err != nil {
		return err
	}
	return j.advance.Init(ctx)
}

func (j *RunOutreach) Run(ctx context.Context) error {
	if err := j.enroll.Run(ctx); err != nil {
		return err
	}
	return j.advance.Run(ctx)
}

func (j *RunOutreach) CleanUp(ctx context.Context) error {
	if err := j.enroll.CleanUp(ctx); err != nil {
		return err
	}
	return j.advance.CleanUp(ctx)
}
