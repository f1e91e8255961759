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

// Modality identifies the data category of a document.
type Modality int

const (
	// ModalityText is UTF-8 text.
	ModalityText Modality = iota + 1
	// ModalityImage is an encoded image file.
	ModalityImage
	// ModalityAudio is an encoded audio file.
	ModalityAudio
)

// Modalities lists every supported modality.
var Modalities = []Modality{ModalityText, ModalityImage, ModalityAudio}

// String returns the wire name of the modality ("text", "image", "audio").
func (m Modality) String() string {
	switch m {
	case ModalityText:
		return "text"
	case ModalityImage:
		return "image"
	case ModalityAudio:
		return "audio"
	default:
		return fmt.Sprintf("modality(%d)", int(m))
	}
}

// IsValid reports whether m is one of the supported modalities.
func (m Modality) IsValid() bool {
	return m == ModalityText || m == ModalityImage || m == ModalityAudio
}

// ParseModality converts a wire name into a Modality.
func ParseModality(s string) (Modality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return ModalityText, nil
	case "image":
		return ModalityImage, nil
	case "audio":
		return ModalityAudio, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedModality, s)
	}
}
