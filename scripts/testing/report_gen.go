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

// Command report_gen merges `go test -json` output with the TestPurpose
// annotations on test functions and writes JSON and Markdown reports.
//
//	go test -json ./... > test.json
//	go run ./scripts/testing -input test.json -out-json report.json -out-md report.md
package main

import (
	"bufio"
	"cmp"
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/mod/modfile"
)

// Annotation holds the metadata parsed from a test's doc comment
type Annotation struct {
	Purpose    string `json:"purpose,omitempty"`
	Scope      string `json:"scope,omitempty"`
	Security   string `json:"security,omitempty"`
	Expected   string `json:"expected,omitempty"`
	TestCaseID string `json:"test_case_id,omitempty"`
	Category   string `json:"category"`
	Type       string `json:"type"` // UT, IT or E2E
}

// testEvent is one line of `go test -json`
type testEvent struct {
	Action  string  `json:"Action"`
	Package string  `json:"Package"`
	Test    string  `json:"Test"`
	Elapsed float64 `json:"Elapsed"`
	Output  string  `json:"Output"`
}

// Result is the outcome of a single test
type Result struct {
	Name        string     `json:"name"`
	Package     string     `json:"package"`
	Status      string     `json:"status"`
	Elapsed     float64    `json:"elapsed_seconds"`
	Failure     string     `json:"failure_reason,omitempty"`
	Annotations Annotation `json:"annotations"`
}

// Summary is the report root
type Summary struct {
	GeneratedAt time.Time `json:"generated_at"`
	Total       int       `json:"total"`
	Passed      int       `json:"passed"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	Results     []Result  `json:"results"`
}

var categoryOrder = []string{
	"Capabilities", "Identity", "Session", "Auth API Client", "Storage",
	"Gateway API", "Dev Auth", "Config", "Observability", "Audit", "Other",
}

func main() {
	input := flag.String("input", "", "go test -json output file")
	outJSON := flag.String("out-json", "", "JSON report path")
	outMD := flag.String("out-md", "", "Markdown report path")
	title := flag.String("title", "Test Report", "report title")
	onlyType := flag.String("type", "", "keep only tests of this type (UT, IT, E2E)")
	flag.Parse()

	if *input == "" || *outJSON == "" || *outMD == "" {
		fmt.Fprintln(os.Stderr, "usage: report_gen -input <file> -out-json <file> -out-md <file>")
		os.Exit(2)
	}

	modulePath, err := readModulePath("go.mod")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read go.mod: %v\n", err)
		os.Exit(1)
	}

	annotations := scanAnnotations(modulePath)
	results, err := mergeResults(*input, annotations)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read test output: %v\n", err)
		os.Exit(1)
	}
	if *onlyType != "" {
		results = slices.DeleteFunc(results, func(r Result) bool {
			return !strings.EqualFold(r.Annotations.Type, *onlyType)
		})
	}

	summary := summarize(results)
	if err := writeJSON(*outJSON, summary); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write JSON report: %v\n", err)
		os.Exit(1)
	}
	if err := writeFile(*outMD, renderMarkdown(summary, *title)); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write Markdown report: %v\n", err)
		os.Exit(1)
	}

	// fail CI when any test failed
	if summary.Failed > 0 {
		fmt.Fprintf(os.Stderr, "%d tests failed\n", summary.Failed)
		os.Exit(1)
	}
}

func readModulePath(gomod string) (string, error) {
	data, err := os.ReadFile(gomod)
	if err != nil {
		return "", err
	}
	mp := modfile.ModulePath(data)
	if mp == "" {
		return "", fmt.Errorf("no module directive in %s", gomod)
	}
	return mp, nil
}

// scanAnnotations walks the tree and indexes annotated tests by
// "<import path>.<TestName>".
func scanAnnotations(modulePath string) map[string]Annotation {
	out := make(map[string]Annotation)
	fset := token.NewFileSet()

	_ = filepath.WalkDir(".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), "_") || d.Name() == ".git" || d.Name() == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(p, "_test.go") {
			return nil
		}

		file, err := parser.ParseFile(fset, p, nil, parser.ParseComments)
		if err != nil {
			return nil
		}
		pkg := path.Join(modulePath, filepath.ToSlash(filepath.Dir(p)))

		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv != nil || !strings.HasPrefix(fn.Name.Name, "Test") || fn.Name.Name == "TestMain" {
				continue
			}
			a := parseDoc(fn.Doc)
			a.Category = categoryOf(strings.TrimPrefix(pkg, modulePath+"/"))
			a.Type = typeOf(a.Scope)
			out[pkg+"."+fn.Name.Name] = a
		}
		return nil
	})

	return out
}

func parseDoc(doc *ast.CommentGroup) Annotation {
	var a Annotation
	if doc == nil {
		return a
	}
	fields := map[string]*string{
		"TestPurpose:":  &a.Purpose,
		"Scope:":        &a.Scope,
		"Security:":     &a.Security,
		"Expected:":     &a.Expected,
		"Test Case ID:": &a.TestCaseID,
	}
	for _, c := range doc.List {
		text := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
		for prefix, dst := range fields {
			if v, ok := strings.CutPrefix(text, prefix); ok {
				*dst = strings.TrimSpace(v)
				break
			}
		}
	}
	return a
}

func categoryOf(rel string) string {
	switch {
	case strings.HasPrefix(rel, "internal/authz"):
		return "Capabilities"
	case strings.HasPrefix(rel, "internal/identity"):
		return "Identity"
	case strings.HasPrefix(rel, "internal/session"):
		return "Session"
	case strings.HasPrefix(rel, "internal/authapi"):
		return "Auth API Client"
	case strings.HasPrefix(rel, "internal/store"):
		return "Storage"
	case strings.HasPrefix(rel, "internal/transport/http"):
		return "Gateway API"
	case strings.HasPrefix(rel, "internal/devauth"):
		return "Dev Auth"
	case strings.HasPrefix(rel, "internal/config"):
		return "Config"
	case strings.HasPrefix(rel, "internal/observability"):
		return "Observability"
	case strings.HasPrefix(rel, "internal/audit"):
		return "Audit"
	}
	return "Other"
}

func typeOf(scope string) string {
	switch {
	case strings.Contains(scope, "End-to-End"):
		return "E2E"
	case strings.Contains(scope, "Integration"):
		return "IT"
	}
	return "UT"
}

func mergeResults(input string, annotations map[string]Annotation) ([]Result, error) {
	f, err := os.Open(input)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	byKey := make(map[string]*Result, len(annotations))
	for key, a := range annotations {
		pkg, name := splitKey(key)
		byKey[key] = &Result{Name: name, Package: pkg, Status: "not run", Annotations: a}
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var ev testEvent
		if json.Unmarshal(scanner.Bytes(), &ev) != nil || ev.Test == "" {
			continue
		}

		key := ev.Package + "." + ev.Test
		res, ok := byKey[key]
		if !ok {
			// subtests inherit the parent's annotation
			parent, _, _ := strings.Cut(ev.Test, "/")
			a, found := annotations[ev.Package+"."+parent]
			if !found {
				a = Annotation{Category: "Other", Type: "UT"}
			}
			res = &Result{Name: ev.Test, Package: ev.Package, Annotations: a}
			byKey[key] = res
		}

		switch ev.Action {
		case "pass", "fail":
			res.Status = ev.Action
			res.Elapsed = ev.Elapsed
		case "skip":
			res.Status = "skip"
		case "output":
			if res.Status == "" || res.Status == "not run" || res.Status == "fail" {
				res.Failure += ev.Output
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(byKey))
	for _, r := range byKey {
		if r.Status != "fail" {
			r.Failure = ""
		}
		out = append(out, *r)
	}
	slices.SortFunc(out, func(a, b Result) int {
		return cmp.Or(
			cmp.Compare(a.Annotations.TestCaseID, b.Annotations.TestCaseID),
			cmp.Compare(a.Package, b.Package),
			cmp.Compare(a.Name, b.Name),
		)
	})
	return out, nil
}

func splitKey(key string) (pkg, name string) {
	i := strings.LastIndex(key, ".")
	return key[:i], key[i+1:]
}

func summarize(results []Result) Summary {
	s := Summary{GeneratedAt: time.Now(), Results: results}
	for _, r := range results {
		s.Total++
		switch r.Status {
		case "pass":
			s.Passed++
		case "fail":
			s.Failed++
		case "skip":
			s.Skipped++
		}
	}
	return s
}

func renderMarkdown(s Summary, title string) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Gatherly %s\n\n", title)
	fmt.Fprintf(&sb, "**Generated:** %s  \n", s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	status := "PASSED"
	if s.Failed > 0 {
		status = "FAILED"
	}
	fmt.Fprintf(&sb, "**Status:** %s\n\n", status)

	rate := 0.0
	if s.Total > 0 {
		rate = float64(s.Passed) / float64(s.Total) * 100
	}
	sb.WriteString("| Total | Passed | Failed | Skipped | Pass Rate |\n")
	sb.WriteString("|-------|--------|--------|---------|-----------|\n")
	fmt.Fprintf(&sb, "| %d | %d | %d | %d | %.1f%% |\n\n", s.Total, s.Passed, s.Failed, s.Skipped, rate)

	grouped := make(map[string][]Result)
	for _, r := range s.Results {
		grouped[r.Annotations.Category] = append(grouped[r.Annotations.Category], r)
	}

	for _, cat := range categoryOrder {
		tests := grouped[cat]
		if len(tests) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n\n", cat)
		sb.WriteString("| ID | Type | Test | Status | Purpose | Security |\n")
		sb.WriteString("|----|------|------|--------|---------|----------|\n")
		for _, t := range tests {
			security := t.Annotations.Security
			if security != "" {
				security = "**" + security + "**"
			}
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s |\n",
				t.Annotations.TestCaseID, t.Annotations.Type, t.Name, t.Status, t.Annotations.Purpose, security)
		}
		sb.WriteString("\n")
	}

	if s.Failed > 0 {
		sb.WriteString("## Failures\n\n")
		for _, t := range s.Results {
			if t.Status == "fail" {
				fmt.Fprintf(&sb, "### %s (%s)\n\n```\n%s\n```\n\n", t.Name, t.Package, t.Failure)
			}
		}
	}
	return []byte(sb.String())
}

func writeJSON(p string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(p, data)
}

func writeFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}
