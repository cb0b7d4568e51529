package graph

import "context"

type resumeValueKey struct{}

type resumeValue struct {
	value any
}

// WithResumeValue marks ctx as resuming with value.
// Interrupt returns this value instead of halting the run.
func WithResumeValue(ctx context.Context, value any) context.Context {
	return context.WithValue(ctx, resumeValueKey{}, resumeValue{value: value})
}

// ResumeValue returns the value supplied to Runner.Resume. The boolean is false
// unless the current node is the first node of a resumed run.
func ResumeValue(ctx context.Context) (any, bool) {
	rv, ok := ctx.Value(resumeValueKey{}).(resumeValue)
	return rv.value, ok
}

// Interrupt pauses execution and waits for input.
// If resuming, it returns the value provided to Resume.
//
// A node calls it and returns the error unchanged:
//
//	answer, err := graph.Interrupt(ctx, "Do you want to go to C or D?")
//	if err != nil {
//		return graph.Command{}, err
//	}
func Interrupt(ctx context.Context, value any) (any, error) {
	if resumeVal, ok := ResumeValue(ctx); ok {
		return resumeVal, nil
	}
	return nil, &NodeInterrupt{Value: value}
}

type runIDKey struct{}

func withRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID returns the id of the run executing the current node, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

type threadIDKey struct{}

func withThreadID(ctx context.Context, threadID string) context.Context {
	return context.WithValue(ctx, threadIDKey{}, threadID)
}

// ThreadID returns the thread id of the run executing the current node, or "".
func ThreadID(ctx context.Context) string {
	id, _ := ctx.Value(threadIDKey{}).(string)
	return id
}
