/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

// ErrSchema marks a manifest that does not conform to the project schema.
var ErrSchema = errors.New("manifest does not conform to schema")

//go:embed schema/project.schema.json
var projectSchema []byte

var (
	schemaOnce sync.Once
	compiled   *gojsonschema.Schema
	schemaErr  error
)

// Schema returns the embedded manifest schema.
func Schema() []byte { return append([]byte(nil), projectSchema...) }

// ValidateManifest checks raw manifest bytes against the embedded schema.
func ValidateManifest(data []byte) error {
	schemaOnce.Do(func() {
		compiled, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(projectSchema))
	})
	if schemaErr != nil {
		return fmt.Errorf("load schema: %w", schemaErr)
	}
	res, err := compiled.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
}
