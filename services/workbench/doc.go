// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workbench implements the safe repository-edit subsystem behind
// `codesmith dev`.
//
// # Description
//
// The workbench turns a structured Operation (replace, add-file, move-file,
// edit-document, rollback) into a concrete file mutation with three gates
// between intent and disk:
//
//  1. Preview: every affected file gets a unified diff; nothing is written.
//  2. Confirmation: an operator (or an explicit auto-approve) must accept
//     exactly the previewed change set.
//  3. Backup: pre-mutation bytes of every target are snapshotted to a
//     timestamped backup directory before the first write.
//
// The apply step acts on exactly the previewed set, never wider or
// narrower, even when the scanner truncated the preview. If a write fails
// partway, files already written in the batch are restored from the backup
// just taken and the failure is reported with the restored-path list.
//
// # Lifecycle
//
//	PARSED → PREVIEWED → CONFIRMED → APPLYING → {APPLIED | FAILED}
//	FAILED → ROLLED_BACK (partial-batch restore)
//	ROLLBACK_REQUESTED → {ROLLED_BACK | ROLLBACK_FAILED} (explicit command)
//
// An Orchestrator instance handles one operation and is then discarded.
// Backups persist until the operator removes them; the workbench never
// deletes a backup itself.
//
// # Thread Safety
//
// Orchestrator is single-use and not safe for concurrent use. Scanning and
// diff computation parallelize internally, but the preview/confirm/apply
// boundary is a strict ordering barrier.
package workbench
