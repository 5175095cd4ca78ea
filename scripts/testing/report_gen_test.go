// Copyright 2026 The Gatherly Authors
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

package main

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates annotation parsing and merging with go test output.
// Scope: Unit Test
// Expected: doc fields parsed; subtests inherit the parent annotation; unrun tests reported as "not run".
// Test Case ID: RPT-01
func TestReport_Merge(t *testing.T) {
	src := `package x

// TestPurpose: checks a thing.
// Scope: End-to-End Test (in-process)
// Security: Capability enforcement
// Test Case ID: X-01
func TestThing(t *testing.T) {}
`
	file, err := parser.ParseFile(token.NewFileSet(), "x_test.go", src, parser.ParseComments)
	require.NoError(t, err)
	a := parseDoc(file.Comments[0])
	assert.Equal(t, "checks a thing.", a.Purpose)
	assert.Equal(t, "X-01", a.TestCaseID)
	assert.Equal(t, "E2E", typeOf(a.Scope))
	assert.Equal(t, "UT", typeOf("Unit Test"))
	assert.Equal(t, "IT", typeOf("Database Integration Test"))
	assert.Equal(t, "Session", categoryOf("internal/session"))
	a.Category = categoryOf("internal/transport/http")
	a.Type = typeOf(a.Scope)

	annotations := map[string]Annotation{
		"example.com/m/x.TestThing": a,
		"example.com/m/x.TestIdle":  {Category: "Other", Type: "UT"},
	}
	events := strings.Join([]string{
		`{"Action":"run","Package":"example.com/m/x","Test":"TestThing"}`,
		`{"Action":"output","Package":"example.com/m/x","Test":"TestThing/sub","Output":"boom\n"}`,
		`{"Action":"fail","Package":"example.com/m/x","Test":"TestThing/sub","Elapsed":0.1}`,
		`{"Action":"fail","Package":"example.com/m/x","Test":"TestThing","Elapsed":0.2}`,
	}, "\n")
	input := filepath.Join(t.TempDir(), "test.json")
	require.NoError(t, os.WriteFile(input, []byte(events), 0o644))

	results, err := mergeResults(input, annotations)
	require.NoError(t, err)
	require.Len(t, results, 3)

	byName := make(map[string]Result)
	for _, r := range results {
		byName[r.Name] = r
	}
	assert.Equal(t, "not run", byName["TestIdle"].Status)
	assert.Equal(t, "fail", byName["TestThing"].Status)
	sub := byName["TestThing/sub"]
	assert.Equal(t, "fail", sub.Status)
	assert.Equal(t, "X-01", sub.Annotations.TestCaseID)
	assert.Contains(t, sub.Failure, "boom")

	s := summarize(results)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Failed)
	md := string(renderMarkdown(s, "Unit"))
	assert.Contains(t, md, "## Failures")
	assert.Contains(t, md, "| X-01 | E2E | TestThing |")
}
