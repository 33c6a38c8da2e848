// Package report renders a customer's full pipeline history as a
// self-contained markdown document, the human-readable half of a backup
// archive.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dhruvshah/sunbeam/internal/model"
)

// StepTitle names each of the 16 pipeline steps.
var StepTitle = map[int]string{
	1:  "Document Collection",
	2:  "Site Survey & Selection",
	3:  "Quotation & Agreement",
	4:  "Bank Account Opening",
	5:  "Loan Application",
	6:  "Loan Sanction",
	7:  "Margin Money Payment",
	8:  "Material Selection",
	9:  "Material Delivery",
	10: "Installation",
	11: "Net Metering Application",
	12: "Meter Installation",
	13: "Equipment Registration",
	14: "Inspection",
	15: "Subsidy Claim",
	16: "Disbursement",
}

// Render produces the report text. Output is deterministic for identical
// inputs: the only timestamps are the ones passed in, and object keys are
// rendered in sorted order. Steps without renderable data are omitted
// entirely, as are absent fields; nothing is filled with placeholders.
func Render(c *model.Customer, steps []model.StepData, generatedAt time.Time, exportedBy string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Customer Backup Report: %s\n\n", c.Name)
	fmt.Fprintf(&b, "- Name: %s\n", c.Name)
	if c.Phone != "" {
		fmt.Fprintf(&b, "- Phone: %s\n", c.Phone)
	}
	if c.Email != "" {
		fmt.Fprintf(&b, "- Email: %s\n", c.Email)
	}
	if c.Address != "" {
		fmt.Fprintf(&b, "- Address: %s\n", c.Address)
	}
	fmt.Fprintf(&b, "- Type: %s\n", c.Type)
	fmt.Fprintf(&b, "- Status: %s\n", c.Status)
	fmt.Fprintf(&b, "- Current Step: %d of %d\n", c.CurrentStep, model.TotalSteps)
	if c.ProjectCost > 0 {
		fmt.Fprintf(&b, "- Project Cost: %s\n", humanize.Comma(c.ProjectCost))
	}
	if c.LoanAmount > 0 {
		fmt.Fprintf(&b, "- Loan Amount: %s\n", humanize.Comma(c.LoanAmount))
	}
	if c.SubsidyAmount > 0 {
		fmt.Fprintf(&b, "- Subsidy Amount: %s\n", humanize.Comma(c.SubsidyAmount))
	}
	if c.Notes != "" {
		fmt.Fprintf(&b, "- Notes: %s\n", c.Notes)
	}
	fmt.Fprintf(&b, "\nGenerated at %s by %s\n", generatedAt.UTC().Format(time.RFC3339), exportedBy)

	for _, sd := range steps {
		lines := renderFields(sd.Data)
		if len(lines) == 0 {
			continue
		}
		title := StepTitle[sd.StepNumber]
		if title == "" {
			title = "Additional Data"
		}
		fmt.Fprintf(&b, "\n## Step %d: %s\n\n", sd.StepNumber, title)
		for _, line := range lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// renderFields flattens one step payload into "- Label: value" lines.
func renderFields(data json.RawMessage) []string {
	if len(data) == 0 {
		return nil
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	var lines []string
	flatten(obj, "", &lines)
	return lines
}

func flatten(obj map[string]any, prefix string, lines *[]string) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + " / " + k
		}
		switch v := obj[k].(type) {
		case string:
			if v != "" {
				*lines = append(*lines, fmt.Sprintf("- %s: %s", label(name), v))
			}
		case float64:
			*lines = append(*lines, fmt.Sprintf("- %s: %s", label(name), formatNumber(k, v)))
		case bool:
			*lines = append(*lines, fmt.Sprintf("- %s: %s", label(name), yesNo(v)))
		case []any:
			if items := scalarItems(v); len(items) > 0 {
				*lines = append(*lines, fmt.Sprintf("- %s: %s", label(name), strings.Join(items, ", ")))
			}
			for i, elem := range v {
				if nested, ok := elem.(map[string]any); ok {
					flatten(nested, fmt.Sprintf("%s %d", name, i+1), lines)
				}
			}
		case map[string]any:
			flatten(v, name, lines)
		}
		// Nulls are omitted.
	}
}

func scalarItems(arr []any) []string {
	var items []string
	for _, elem := range arr {
		switch e := elem.(type) {
		case string:
			if e != "" {
				items = append(items, e)
			}
		case float64:
			items = append(items, formatNumber("", e))
		case bool:
			items = append(items, yesNo(e))
		}
	}
	return items
}

// formatNumber renders currency-looking integer fields with thousands
// separators and everything else plainly.
func formatNumber(key string, v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		n := int64(v)
		if isCurrencyKey(key) {
			return humanize.Comma(n)
		}
		return strconv.FormatInt(n, 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var currencyWords = []string{"amount", "cost", "price", "payment", "subsidy", "emi", "fee"}

func isCurrencyKey(key string) bool {
	key = strings.ToLower(key)
	for _, w := range currencyWords {
		if strings.Contains(key, w) {
			return true
		}
	}
	return false
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// label turns a snake_case field path into a readable title.
func label(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
