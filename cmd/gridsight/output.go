package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var labelTitler = cases.Title(language.English)

// displayLabel turns a palette label like "pyro-core" into "Pyro Core".
func displayLabel(label string) string {
	return labelTitler.String(strings.ReplaceAll(label, "-", " "))
}

func printSession(w io.Writer, view sessionView) {
	fmt.Fprintf(w, "session:  %s\n", view.ID)
	fmt.Fprintf(w, "state:    %s\n", view.State)
	fmt.Fprintf(w, "source:   %s\n", view.SourcePath)
	if view.ErrorMsg != "" {
		fmt.Fprintf(w, "error:    %s\n", view.ErrorMsg)
	}
	if !view.StartedAt.IsZero() {
		fmt.Fprintf(w, "started:  %s\n", view.StartedAt.Local().Format(time.RFC3339))
	}

	if items := recognizedItems(view); len(items) > 0 {
		rows := make([][]string, 0, len(items))
		for _, item := range items {
			rows = append(rows, []string{
				item.slot,
				displayLabel(item.label),
				fmt.Sprintf("%.2f", item.confidence),
			})
		}
		fmt.Fprintln(w, renderTable(
			[]string{"Slot", "Piece", "Confidence"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight},
		))
	}

	if len(view.Transitions) > 0 {
		rows := make([][]string, 0, len(view.Transitions))
		for _, tr := range view.Transitions {
			rows = append(rows, []string{
				tr.At.Local().Format("15:04:05"),
				tr.From,
				tr.To,
				tr.Stage,
			})
		}
		fmt.Fprintln(w, renderTable(
			[]string{"Time", "From", "To", "Stage"},
			rows,
			nil,
		))
	}
}

type boardItem struct {
	slot       string
	label      string
	confidence float64
}

// recognizedItems pulls the recognition payload out of the session's stage
// data, sorted by slot for stable output.
func recognizedItems(view sessionView) []boardItem {
	for _, stage := range view.Stages {
		if stage.Stage != "recognition" || stage.Payload == nil {
			continue
		}
		raw, _ := stage.Payload["items"].([]any)
		items := make([]boardItem, 0, len(raw))
		for _, entry := range raw {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			slot, _ := m["slot"].(string)
			label, _ := m["label"].(string)
			confidence, _ := m["confidence"].(float64)
			items = append(items, boardItem{slot: slot, label: label, confidence: confidence})
		}
		sort.Slice(items, func(i, j int) bool { return items[i].slot < items[j].slot })
		return items
	}
	return nil
}
