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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidBlock indicates a Block failed validation.
	ErrInvalidBlock = errors.New("invalid block")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidTriple indicates a Triple failed validation.
	ErrInvalidTriple = errors.New("invalid triple")

	// ErrInvalidVariant indicates an unknown embedding variant name or value.
	ErrInvalidVariant = errors.New("invalid embedding variant")

	// ErrEmptyContent indicates a text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyDocumentID indicates the document identifier is missing.
	ErrEmptyDocumentID = errors.New("document id cannot be empty")

	// ErrInvalidSpan indicates a [start,end) span is out of order or negative.
	ErrInvalidSpan = errors.New("invalid span")

	// ErrInvalidChunkSize indicates chunking parameters violate their contract.
	ErrInvalidChunkSize = errors.New("invalid chunk size")
)
