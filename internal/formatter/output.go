package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/Brownie44l1/hairscan/internal/model"
	"github.com/Brownie44l1/hairscan/internal/pipeline"
)

// DisplayResult writes res to w as human readable text, json or yaml.
func DisplayResult(w io.Writer, res *pipeline.Result, format string, verbose bool) error {
	switch format {
	case "json":
		return displayJSON(w, res)
	case "yaml":
		return displayYAML(w, res)
	case "human", "":
		displayHuman(w, res, verbose)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want human, json or yaml)", format)
	}
}

func displayJSON(w io.Writer, res *pipeline.Result) error {
	output, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func displayYAML(w io.Writer, res *pipeline.Result) error {
	output, err := yaml.Marshal(res)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, string(output))
	return err
}

func displayHuman(w io.Writer, res *pipeline.Result, verbose bool) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	white := color.New(color.FgWhite, color.Bold)

	fmt.Fprintln(w)
	cyan.Fprintln(w, "PREDICTION:")
	fmt.Fprintf(w, "   %s (%s)\n\n", res.ClassName, res.Confidence)

	green.Fprintln(w, "REMEDIES:")
	printList(w, res.Remedies, "No remedies recorded for this condition.")

	yellow.Fprintln(w, "CAUTIONS:")
	printList(w, res.Cautions, "No cautions recorded for this condition.")

	if verbose && len(res.Probabilities) > 0 {
		white.Fprintln(w, "ALL CLASSES:")
		for _, label := range sortedByScore(res.Probabilities) {
			fmt.Fprintf(w, "   %-24s %s\n", label, model.FormatConfidence(res.Probabilities[label]))
		}
		fmt.Fprintln(w)
	}
}

func printList(w io.Writer, items []string, empty string) {
	if len(items) == 0 {
		fmt.Fprintf(w, "   %s\n\n", empty)
		return
	}
	for _, item := range items {
		fmt.Fprintf(w, "   • %s\n", item)
	}
	fmt.Fprintln(w)
}

func sortedByScore(probs map[string]float32) []string {
	labels := make([]string, 0, len(probs))
	for label := range probs {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if probs[labels[i]] != probs[labels[j]] {
			return probs[labels[i]] > probs[labels[j]]
		}
		return labels[i] < labels[j]
	})
	return labels
}
