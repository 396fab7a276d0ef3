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

import (
	"fmt"
	"strings"
)

// ValidateBlock validates a Block according to domain rules.
//
// Validation rules:
//   - DocumentID must not be empty
//   - Page, when present, must not be negative
//
// NOT validated:
//   - Heading and paragraphs (an empty block simply yields no chunks)
//   - Paragraph offsets (computed by the chunker)
func ValidateBlock(block *Block) error {
	if block == nil {
		return fmt.Errorf("%w: block is nil", ErrInvalidBlock)
	}
	if block.DocumentID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidBlock, ErrEmptyDocumentID)
	}
	if block.Page != nil && *block.Page < 0 {
		return fmt.Errorf("%w: page %d", ErrInvalidBlock, *block.Page)
	}
	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}
	if strings.TrimSpace(chunk.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}
	if chunk.Start < 0 || chunk.End <= chunk.Start {
		return fmt.Errorf("%w: %w [%d,%d)", ErrInvalidChunk, ErrInvalidSpan, chunk.Start, chunk.End)
	}
	return nil
}

// ValidateTriple validates a Triple. All three parts are required.
func ValidateTriple(t *Triple) error {
	if t == nil {
		return fmt.Errorf("%w: triple is nil", ErrInvalidTriple)
	}
	if strings.TrimSpace(t.Subject) == "" || strings.TrimSpace(t.Predicate) == "" || strings.TrimSpace(t.Object) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTriple, ErrEmptyContent)
	}
	return nil
}

// ValidateChunkSize checks the chunker's size parameters.
func ValidateChunkSize(maxSize, overlap int) error {
	if maxSize <= 0 {
		return fmt.Errorf("%w: max size %d must be positive", ErrInvalidChunkSize, maxSize)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: overlap %d must not be negative", ErrInvalidChunkSize, overlap)
	}
	return nil
}

// ValidateVariant checks that v is one of the known variants.
func ValidateVariant(v Variant) error {
	for _, known := range AllVariants {
		if v == known {
			return nil
		}
	}
	return fmt.Errorf("%w: value %d", ErrInvalidVariant, v)
}
