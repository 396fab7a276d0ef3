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

import (
	"fmt"

	"github.com/poiesic/policyrag/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	buf := make([]byte, core.ChunkMUS.Size(*chunk))
	core.ChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	chunk, _, err := core.ChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &chunk, nil
}

// MarshalIndexEntry serializes an IndexEntry to bytes.
func MarshalIndexEntry(entry core.IndexEntry) []byte {
	buf := make([]byte, core.IndexEntryMUS.Size(entry))
	core.IndexEntryMUS.Marshal(entry, buf)
	return buf
}

// UnmarshalIndexEntry deserializes an IndexEntry from bytes.
func UnmarshalIndexEntry(data []byte) (core.IndexEntry, error) {
	entry, _, err := core.IndexEntryMUS.Unmarshal(data)
	if err != nil {
		return core.IndexEntry{}, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return entry, nil
}

// MarshalTriple serializes a Triple to bytes.
func MarshalTriple(triple core.Triple) []byte {
	buf := make([]byte, core.TripleMUS.Size(triple))
	core.TripleMUS.Marshal(triple, buf)
	return buf
}

// UnmarshalTriple deserializes a Triple from bytes.
func UnmarshalTriple(data []byte) (core.Triple, error) {
	triple, _, err := core.TripleMUS.Unmarshal(data)
	if err != nil {
		return core.Triple{}, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return triple, nil
}

// MarshalManifest serializes a Manifest to bytes.
func MarshalManifest(manifest *core.Manifest) []byte {
	buf := make([]byte, core.ManifestMUS.Size(*manifest))
	core.ManifestMUS.Marshal(*manifest, buf)
	return buf
}

// UnmarshalManifest deserializes a Manifest from bytes.
func UnmarshalManifest(data []byte) (*core.Manifest, error) {
	manifest, _, err := core.ManifestMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &manifest, nil
}
