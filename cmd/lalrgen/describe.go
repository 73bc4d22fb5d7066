package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/nihei9/lalrgen/grammar"
	spec "github.com/nihei9/lalrgen/spec/grammar"
	"github.com/spf13/cobra"
)

var describeFlags = struct {
	table *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "describe",
		Short:   "Print a report file in readable format",
		Example: `  lalrgen describe grammar-report.json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runDescribe,
	}
	describeFlags.table = cmd.Flags().BoolP("table", "t", false, "also print the action and goto tables")
	rootCmd.AddCommand(cmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	report, err := readReport(args[0])
	if err != nil {
		return err
	}

	err = writeReport(os.Stdout, report)
	if err != nil {
		return err
	}

	if *describeFlags.table {
		fmt.Fprintln(os.Stdout, renderParsingTable(report))
	}

	return nil
}

func readReport(path string) (*spec.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Cannot open the report file %s: %w", path, err)
	}
	defer f.Close()

	d, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	report := &spec.Report{}
	err = json.Unmarshal(d, report)
	if err != nil {
		return nil, err
	}

	return report, nil
}

const reportTemplate = `# Conflicts

{{ printConflictSummary . }}

# Terminals

{{ range slice .Terminals 1 -}}
{{ printTerminal . }}
{{ end }}
# Productions

{{ range slice .Productions 1 -}}
{{ printProduction . }}
{{ end }}
{{- if .UnreducedProductions }}
# Productions never reduced

{{ range .UnreducedProductions -}}
{{ printProduction (index $.Productions .) }}
{{ end }}
{{- end }}
# States
{{ range .States }}
## State {{ .Number }}

{{ range .Kernel -}}
{{ printItem . }}
{{ end }}
{{ range .Shift -}}
{{ printShift . }}
{{ end -}}
{{ range .Reduce -}}
{{ printReduce . }}
{{ end -}}
{{ range .GoTo -}}
{{ printGoTo . }}
{{ end -}}
{{ range .NonAssoc -}}
{{ printNonAssoc . }}
{{ end }}
{{ range .SRConflict -}}
{{ printSRConflict . }}
{{ end -}}
{{ range .RRConflict -}}
{{ printRRConflict . }}
{{ end -}}
{{ end }}`

type reportNames struct {
	report *spec.Report
}

func (n *reportNames) term(sym int) string {
	if n.report.Terminals[sym].Alias != "" {
		return n.report.Terminals[sym].Alias
	}
	return n.report.Terminals[sym].Name
}

func (n *reportNames) nonTerm(sym int) string {
	return n.report.NonTerminals[sym].Name
}

func (n *reportNames) rhs(prod *spec.Production, dot int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v →", n.nonTerm(prod.LHS))
	for i, e := range prod.RHS {
		if i == dot {
			fmt.Fprintf(&b, " ・")
		}
		if e > 0 {
			fmt.Fprintf(&b, " %v", n.term(e))
		} else {
			fmt.Fprintf(&b, " %v", n.nonTerm(e*-1))
		}
	}
	if dot >= 0 && dot >= len(prod.RHS) {
		fmt.Fprintf(&b, " ・")
	} else if dot < 0 && len(prod.RHS) == 0 {
		fmt.Fprintf(&b, " ε")
	}
	return b.String()
}

func precAndAssoc(prec int, assoc string) (string, string) {
	p := " -"
	if prec != 0 {
		p = fmt.Sprintf("%2v", prec)
	}
	if assoc == "" {
		assoc = "-"
	}
	return p, assoc
}

func resolutionName(method int) string {
	switch method {
	case grammar.ResolvedByPrec.Int():
		return "precedence"
	case grammar.ResolvedByAssoc.Int():
		return "associativity"
	case grammar.ResolvedByShift.Int():
		return "shift by default"
	case grammar.ResolvedByProdOrder.Int():
		return "production order"
	}
	return "unknown"
}

func writeReport(w io.Writer, report *spec.Report) error {
	names := &reportNames{
		report: report,
	}

	fns := template.FuncMap{
		"printConflictSummary": func(report *spec.Report) string {
			var declared int
			for _, s := range report.States {
				declared += len(s.SRConflict) + len(s.RRConflict)
			}
			declared -= report.ConflictCount

			switch {
			case report.ConflictCount == 1:
				return fmt.Sprintf("1 conflict was detected (%v resolved by declarations).", declared)
			case report.ConflictCount > 1:
				return fmt.Sprintf("%v conflicts were detected (%v resolved by declarations).", report.ConflictCount, declared)
			}
			return fmt.Sprintf("No conflict was detected (%v resolved by declarations).", declared)
		},
		"printTerminal": func(term *spec.Terminal) string {
			prec, assoc := precAndAssoc(term.Precedence, term.Associativity)
			var attrs []string
			if term.Alias != "" {
				attrs = append(attrs, fmt.Sprintf("alias: %v", term.Alias))
			}
			if term.Skip {
				attrs = append(attrs, "skip")
			}
			attrs = append(attrs, fmt.Sprintf("used: %v", term.UseCount))
			return fmt.Sprintf("%4v %v %v %v (%v)", term.Number, prec, assoc, term.Name, strings.Join(attrs, ", "))
		},
		"printProduction": func(prod *spec.Production) string {
			prec, assoc := precAndAssoc(prod.Precedence, prod.Associativity)
			s := fmt.Sprintf("%4v %v %v %v", prod.Number, prec, assoc, names.rhs(prod, -1))
			if prod.Origin != 0 {
				s += fmt.Sprintf(" (embedded in %v)", prod.Origin)
			}
			if prod.Action != "" {
				s += fmt.Sprintf(" {%v}", prod.Action)
			}
			return s
		},
		"printItem": func(item *spec.Item) string {
			prod := report.Productions[item.Production]
			la := make([]string, len(item.LookAhead))
			for i, t := range item.LookAhead {
				la[i] = names.term(t)
			}
			return fmt.Sprintf("%4v %v [%v]", prod.Number, names.rhs(prod, item.Dot), strings.Join(la, ", "))
		},
		"printShift": func(tran *spec.Transition) string {
			return fmt.Sprintf("shift  %4v on %v", tran.State, names.term(tran.Symbol))
		},
		"printReduce": func(reduce *spec.Reduce) string {
			la := make([]string, len(reduce.LookAhead))
			for i, t := range reduce.LookAhead {
				la[i] = names.term(t)
			}
			return fmt.Sprintf("reduce %4v on %v", reduce.Production, strings.Join(la, ", "))
		},
		"printGoTo": func(tran *spec.Transition) string {
			return fmt.Sprintf("goto   %4v on %v", tran.State, names.nonTerm(tran.Symbol))
		},
		"printNonAssoc": func(sym int) string {
			return fmt.Sprintf("error       on %v (non-associative)", names.term(sym))
		},
		"printSRConflict": func(sr *spec.SRConflict) string {
			var adopted string
			switch {
			case sr.AdoptedNonAssoc:
				adopted = "error"
			case sr.AdoptedState != nil:
				adopted = fmt.Sprintf("shift %v", *sr.AdoptedState)
			case sr.AdoptedProduction != nil:
				adopted = fmt.Sprintf("reduce %v", *sr.AdoptedProduction)
			}
			return fmt.Sprintf("shift/reduce conflict (shift %v, reduce %v) on %v: %v adopted by %v", sr.State, sr.Production, names.term(sr.Symbol), adopted, resolutionName(sr.ResolvedBy))
		},
		"printRRConflict": func(rr *spec.RRConflict) string {
			return fmt.Sprintf("reduce/reduce conflict (%v, %v) on %v: reduce %v adopted by %v", rr.Production1, rr.Production2, names.term(rr.Symbol), rr.AdoptedProduction, resolutionName(rr.ResolvedBy))
		},
	}

	tmpl, err := template.New("").Funcs(fns).Parse(reportTemplate)
	if err != nil {
		return err
	}

	return tmpl.Execute(w, report)
}

// renderParsingTable renders a state × symbol table. A terminal column shows `sN` for a shift,
// `rN` for a reduction, and `na` for a non-associative error; a non-terminal column shows a goto.
func renderParsingTable(report *spec.Report) string {
	names := &reportNames{
		report: report,
	}

	header := table.Row{"state"}
	for _, term := range report.Terminals[1:] {
		header = append(header, names.term(term.Number))
	}
	for _, nonTerm := range report.NonTerminals[1:] {
		header = append(header, nonTerm.Name)
	}

	termCount := len(report.Terminals)
	t := table.NewWriter()
	t.AppendHeader(header)
	for _, s := range report.States {
		cells := make([]string, termCount+len(report.NonTerminals)-1)
		for _, sh := range s.Shift {
			cells[sh.Symbol] = fmt.Sprintf("s%v", sh.State)
		}
		for _, r := range s.Reduce {
			for _, la := range r.LookAhead {
				cells[la] = fmt.Sprintf("r%v", r.Production)
			}
		}
		for _, sym := range s.NonAssoc {
			cells[sym] = "na"
		}
		for _, g := range s.GoTo {
			cells[termCount+g.Symbol-1] = fmt.Sprintf("%v", g.State)
		}

		row := table.Row{s.Number}
		for _, c := range cells[1:] {
			row = append(row, c)
		}
		t.AppendRow(row)
	}
	conflicted := map[int]struct{}{}
	for _, s := range report.States {
		if len(s.SRConflict)+len(s.RRConflict) > 0 {
			conflicted[s.Number] = struct{}{}
		}
	}
	t.SetRowPainter(func(row table.Row) text.Colors {
		num, _ := row[0].(int)
		if _, ok := conflicted[num]; ok {
			return text.Colors{text.FgYellow}
		}
		return nil
	})

	return t.Render()
}
