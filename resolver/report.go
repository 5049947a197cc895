package resolver

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"sigaddr/address"
	"sigaddr/table"
)

// Failure records why one descriptor could not be resolved.
type Failure struct {
	Name      string
	Signature string
	Err       error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Name, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Report is the outcome of ResolveAll. Entries are in registration order.
type Report struct {
	State    State
	Resolved []address.Resolved
	Failures []Failure
}

// Err joins every failure, or returns nil when all descriptors resolved.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Failed reports whether name failed to resolve.
func (r *Report) Failed(name string) bool {
	return slices.ContainsFunc(r.Failures, func(f Failure) bool { return f.Name == name })
}

func (r *Report) sort(order []string) {
	rank := make(map[string]int, len(order))
	for i, name := range order {
		rank[name] = i
	}
	slices.SortFunc(r.Resolved, func(a, b address.Resolved) int { return rank[a.Name] - rank[b.Name] })
	slices.SortFunc(r.Failures, func(a, b Failure) int { return rank[a.Name] - rank[b.Name] })
}

// Render writes the report as a table.
func (r *Report) Render(w io.Writer) error {
	tbl := table.NewTable(
		table.ColumnSpec{Header: "Name"},
		table.ColumnSpec{Header: "Address", MinWidth: 18},
		table.ColumnSpec{Header: "Match", MinWidth: 18},
		table.ColumnSpec{Header: "Hits"},
		table.ColumnSpec{Header: "Status", FormatFunc: statusFormatter},
	)

	for _, res := range r.Resolved {
		tbl.AddRow(res.Name, res.Value.String(), res.Match.String(), fmt.Sprint(res.MatchCount), "ok")
	}
	if len(r.Resolved) > 0 && len(r.Failures) > 0 {
		tbl.AddSeparator()
	}
	for _, f := range r.Failures {
		tbl.AddRow(f.Name, "", "", "", f.Err.Error())
	}

	if err := tbl.Render(w); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s: %d resolved, %d failed\n", r.State, len(r.Resolved), len(r.Failures))
	return err
}

func statusFormatter(s string) string {
	if s == "ok" {
		return table.ColorGreen(s)
	}
	return table.ColorRed(s)
}
