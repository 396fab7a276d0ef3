// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import "errors"

// Sentinel errors returned by repository implementations. Callers match them
// with errors.Is; backends wrap them with the failing key or id.
var (
	// ErrNotFound is returned when a chunk, vector space, or manifest is absent.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when a chunk key is mapped to two ids.
	ErrDuplicateKey = errors.New("duplicate key")

	ErrStorageClosed = errors.New("storage is closed")

	// ErrReadOnly is returned for writes against a backend opened read-only.
	ErrReadOnly = errors.New("storage is read-only")

	// ErrSerializationFailed wraps MUS encode and decode failures.
	ErrSerializationFailed = errors.New("serialization failed")
)
