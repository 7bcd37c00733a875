// SPDX-License-Identifier: Apache-2.0

// Package dryrun provides the policy object that gates every side-effecting
// operation of a run. Components receive a *Policy and route writes and remote
// fetches through it; no other code inspects the dry-run flag.
package dryrun

import (
	"io"
	"log/slog"
)

// Policy decides whether side effects execute.
type Policy struct {
	dryRun bool
	logger *slog.Logger
}

// New creates a Policy. A nil logger discards skip messages.
func New(dryRun bool, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Policy{dryRun: dryRun, logger: logger}
}

// Enabled reports whether side effects are suppressed. A nil Policy never suppresses.
func (p *Policy) Enabled() bool {
	return p != nil && p.dryRun
}

// Do runs fn unless the policy is in dry-run mode, in which case it logs that
// op was skipped and returns nil.
func (p *Policy) Do(op string, fn func() error) error {
	if p.Enabled() {
		p.logger.Info("skipping operation (dry run)", "op", op)
		return nil
	}
	return fn()
}
