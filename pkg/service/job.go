package service

import "context"

// Job is a restartable unit of background work. All progress must live in
// the datastore so that a crashed run can be re-invoked safely.
type Job interface {
	Init(ctx context.Context) error
	Run(ctx context.Context) error
	CleanUp(ctx context.Context) error
}
