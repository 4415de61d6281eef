package core

import (
	"context"

	"gobear/util"
)

// Pipeline chains intercept and citnames through an intermediate
// events file.  Intercept's result is the pipeline's result: citnames
// only post-processes, so its failure never masks the build's own exit
// status.
type Pipeline struct {
	Intercept Handle
	Citnames  Handle
	// Events is the file intercept writes and citnames reads.
	Events string
	Logger *util.Logger
}

// Execute runs intercept, then citnames when intercept left an events
// file behind, then removes that file.  Construction failures of
// either stage are returned verbatim before anything runs.
func (p *Pipeline) Execute(ctx context.Context) (int, error) {
	if err := p.Intercept.Err(); err != nil {
		return ExitFailure, err
	}
	if err := p.Citnames.Err(); err != nil {
		return ExitFailure, err
	}

	code, err := p.Intercept.Execute(ctx)

	if !util.Exists(p.Events) {
		p.Logger.Verbose("no compiler calls recorded in %s, skipping citnames", p.Events)
		return code, err
	}

	if _, cerr := p.Citnames.Execute(ctx); cerr != nil {
		p.Logger.Warn("citnames: %v", cerr)
	}
	p.cleanup()

	return code, err
}

// cleanup removes the events file.  Failure is logged, never returned.
func (p *Pipeline) cleanup() {
	if err := util.RemoveIfExists(p.Events); err != nil {
		p.Logger.Debug("remove %s: %v", p.Events, err)
	}
}
