package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/arctir/miniproc/scenario"
)

const (
	outTypeTable = "table"
	outTypeJSON  = "json"
)

// output writes b to stdout, matching the teacher's output() helper shape
// for the CLI's other writers.
func output(b []byte) {
	fmt.Fprintln(os.Stdout, string(b))
}

// outputErrorAndFail prints msg to stderr and exits 1.
func outputErrorAndFail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

// reportResults renders scenario results as a table or as JSON depending
// on outType, then exits 1 if any scenario failed.
func reportResults(results []scenario.Result, outType string) {
	switch outType {
	case outTypeJSON:
		b, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			outputErrorAndFail(fmt.Sprintf("failed marshaling results: %s", err))
		}
		output(b)
	default:
		output(renderResultsTable(results))
	}

	for _, r := range results {
		if !r.Passed {
			os.Exit(1)
		}
	}
}

func renderResultsTable(results []scenario.Result) []byte {
	buf := &bytes.Buffer{}
	table := tablewriter.NewWriter(buf)
	table.SetHeader([]string{"Scenario", "Result", "Detail"})
	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}
		table.Append([]string{r.Name, status, r.Detail})
	}
	table.Render()
	return buf.Bytes()
}
