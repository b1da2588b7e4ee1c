package digest

import (
	"context"
	"errors"
)

// Runner is the daily digest job: load candidates from the spool file,
// select, write the result.
type Runner struct {
	Selector  *Selector
	SpoolFile string
	OutputDir string
}

// Run performs one digest. It is a Job.
func (r *Runner) Run(ctx context.Context) error {
	if r.SpoolFile == "" {
		return errors.New("digest spool file not configured")
	}
	candidates, err := LoadFeed(r.SpoolFile)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return errors.New("digest spool is empty")
	}
	d, err := r.Selector.Select(ctx, candidates)
	if err != nil {
		return err
	}
	if r.OutputDir == "" {
		return nil
	}
	_, err = Write(r.OutputDir, d)
	return err
}
