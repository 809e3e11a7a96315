package logger

import "context"

type runKey struct{}

// RunContext identifies a single backup invocation and the release it is on.
type RunContext struct {
	RunID   string
	App     string
	Release string
}

// ContextWithRun returns a derived context carrying the provided run metadata.
func ContextWithRun(ctx context.Context, run RunContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, runKey{}, run)
}

// RunFromContext extracts a RunContext from ctx.
func RunFromContext(ctx context.Context) RunContext {
	if ctx == nil {
		return RunContext{}
	}
	if run, ok := ctx.Value(runKey{}).(RunContext); ok {
		return run
	}
	return RunContext{}
}

// WithRelease returns ctx with the app and release recorded alongside the run ID.
func WithRelease(ctx context.Context, app, release string) context.Context {
	run := RunFromContext(ctx)
	run.App = app
	run.Release = release
	return ContextWithRun(ctx, run)
}

func (r RunContext) fields() []Field {
	var fields []Field
	if r.RunID != "" {
		fields = append(fields, String("run_id", r.RunID))
	}
	if r.App != "" {
		fields = append(fields, String("app", r.App))
	}
	if r.Release != "" {
		fields = append(fields, String("release", r.Release))
	}
	return fields
}

// tag renders the release being processed as app#release.
func (r RunContext) tag() string {
	switch {
	case r.App != "" && r.Release != "":
		return r.App + "#" + r.Release
	default:
		return r.App
	}
}
