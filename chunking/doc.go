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


// Package chunking splits parsed document blocks into overlapping, traceable chunks.
//
// A block's heading and paragraphs are joined with a blank-line separator into
// one composed text. A window of at most MaxSize characters slides over that
// text; each window ends at the best natural break found by searching backward
// from the window end (blank line, newline, sentence end, space). Consecutive
// windows overlap by Overlap characters when that still moves the cursor forward.
//
// All offsets are measured in Unicode code points of the composed text, so a
// chunk never splits a multi-byte character.
//
// The package performs no I/O and holds no state beyond its configuration.
package chunking
