/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage implements project persistence and the render job ledger.
// It handles create/open/save for the canonical JSON manifest (project.json) with transactional writes and timestamped backups.
// Manifests are validated against an embedded JSON schema on load.
// It also manages the per-project embedded SQLite ledger at <project>/.clip/jobs.sqlite recording submitted renders and their outcomes.
package storage
