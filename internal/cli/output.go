package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/naveenspark/carpolicy/pkg/domain"
)

// Output formats accepted by --output.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// tabular is implemented by every value the CLI can print as a table.
type tabular interface {
	headers() []string
	rows() [][]string
}

func checkFormat(format string) error {
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (supported: table, json, yaml)", format)
}

// render writes v in the requested format. JSON and YAML use the wire field names.
func render(w io.Writer, format string, v tabular) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		return renderYAML(w, v)
	default:
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers(v.headers()...).
			Rows(v.rows()...).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
		_, err := fmt.Fprintln(w, t.Render())
		return err
	}
}

// renderYAML goes through JSON so the YAML keys match the API's field names.
func renderYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("convert to yaml: %w", err)
	}
	blockStyle(&node)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close() //nolint:errcheck
	return enc.Encode(&node)
}

// blockStyle clears the flow and quoting styles a JSON document decodes with.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

type userList []domain.User

func (l userList) headers() []string { return []string{"ID", "USERNAME", "EMAIL", "ADMIN"} }

func (l userList) rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, u := range l {
		rows = append(rows, []string{strconv.Itoa(u.UserID), u.Username, u.Email, yesNo(u.IsAdmin)})
	}
	return rows
}

type policyList []domain.PolicyWithExtras

func (l policyList) headers() []string {
	return []string{"ID", "NUMBER", "VRN", "VEHICLE", "COVERAGE", "START", "END", "EXTRAS"}
}

func (l policyList) rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, p := range l {
		rows = append(rows, []string{
			strconv.Itoa(p.Policy.PolicyID),
			p.Policy.PolicyNumber,
			p.Policy.VRN,
			p.Policy.Make + " " + p.Policy.Model,
			p.Policy.Coverage,
			domain.FormatDate(p.Policy.StartDate),
			domain.FormatDate(p.Policy.EndDate),
			extrasSummary(p.OptionalExtras),
		})
	}
	return rows
}

type extraList []domain.OptionalExtra

func (l extraList) headers() []string { return []string{"ID", "CODE", "NAME", "PRICE"} }

func (l extraList) rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, e := range l {
		rows = append(rows, []string{strconv.Itoa(e.ExtraID), e.Code, e.Name, price(e.Price)})
	}
	return rows
}

// fields is a two-column key/value table for single records.
type fields [][2]string

func (f fields) headers() []string { return []string{"FIELD", "VALUE"} }

func (f fields) rows() [][]string {
	rows := make([][]string, 0, len(f))
	for _, kv := range f {
		rows = append(rows, []string{kv[0], kv[1]})
	}
	return rows
}

func (f fields) MarshalJSON() ([]byte, error) {
	m := make(map[string]string, len(f))
	for _, kv := range f {
		m[kv[0]] = kv[1]
	}
	return json.Marshal(m)
}

func extrasSummary(extras []domain.OptionalExtra) string {
	if len(extras) == 0 {
		return "-"
	}
	s := ""
	for i, e := range extras {
		if i > 0 {
			s += ", "
		}
		s += e.Code
	}
	return s
}

func price(p float64) string {
	return fmt.Sprintf("£%.2f", p)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
