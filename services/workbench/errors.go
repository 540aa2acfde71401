// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workbench

import "errors"

var (
	// ErrNotConfirmed is returned when the operator declines the preview.
	// No side effects have occurred.
	ErrNotConfirmed = errors.New("operation not confirmed")

	// ErrBackupFailed aborts an apply before any file is mutated.
	ErrBackupFailed = errors.New("backup failed")

	// ErrApplyFailed reports a mid-apply write failure. Files already
	// written in the batch have been restored from the fresh backup.
	ErrApplyFailed = errors.New("apply failed")

	// ErrRollbackIncomplete reports a rollback with at least one failed
	// path. Callers must treat the repository as partially restored.
	ErrRollbackIncomplete = errors.New("rollback incomplete")

	// ErrInvalidTransition reports a state machine misuse, e.g. applying
	// a preview that was never confirmed.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrNothingToDo is returned when a preview contains no changed file.
	ErrNothingToDo = errors.New("no changes to apply")
)
