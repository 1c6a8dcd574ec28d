package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
)

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to marshal JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printRawJSON(body []byte) {
	var raw json.RawMessage
	json.Unmarshal(body, &raw)
	printJSON(raw)
}

func printTable(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

// printDetail renders field/value rows for single-entity get commands.
func printDetail(rows [][]string) {
	printTable([]string{"FIELD", "VALUE"}, rows)
}

func printMessage(msg string) {
	fmt.Println(msg)
}

func confirmAction(prompt string, skipConfirm bool) bool {
	if skipConfirm {
		return true
	}

	fmt.Printf("%s [y/N]: ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
		return answer == "y" || answer == "yes"
	}
	return false
}
