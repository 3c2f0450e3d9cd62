// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package workers schedules the background jobs of one session: periodic
// tasks, one-shot delays and debounced calls. Every job is owned by a
// Workers group and is cancelled through its handle or by stopping the
// whole group.
package workers

// Task is a handle to a scheduled job.
//
// Stop cancels the job and reports whether it was still active. After Stop
// returns the job's function is never started again; a run that is already
// in progress is not interrupted.
type Task interface {
	Stop() bool
}
