package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"minidb/internal/client"
	"minidb/internal/config"
)

// Styles holds the lipgloss styles used for status lines.
type Styles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

// DefaultStyles returns the default terminal styles.
func DefaultStyles() Styles {
	return Styles{
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Renderer prints command responses as a table, JSON lines or YAML.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   string
	styles Styles
}

// NewRenderer creates a renderer. The auto mode picks a table when out is a
// terminal and JSON otherwise.
func NewRenderer(out, errOut io.Writer, mode string) *Renderer {
	r := &Renderer{out: out, errOut: errOut, styles: DefaultStyles()}
	r.SetMode(mode)
	return r
}

// SetMode switches the output mode.
func (r *Renderer) SetMode(mode string) {
	if mode == "" || mode == config.OutputAuto {
		mode = config.OutputJSON
		if isTerminal(r.out) {
			mode = config.OutputTable
		}
	}
	r.mode = mode
}

// Mode returns the resolved output mode.
func (r *Renderer) Mode() string { return r.mode }

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Render prints one response.
func (r *Renderer) Render(resp *client.Response) error {
	switch r.mode {
	case config.OutputJSON:
		_, err := fmt.Fprintln(r.out, resp.Raw)
		return err
	case config.OutputYAML:
		return r.renderYAML(resp)
	default:
		return r.renderTable(resp)
	}
}

func (r *Renderer) renderTable(resp *client.Response) error {
	if !resp.OK() {
		msg := fmt.Sprintf("Error [%s]: %s", resp.Code, resp.Error)
		_, err := fmt.Fprintln(r.errOut, r.styles.Error.Render(msg))
		return err
	}
	if !resp.IsQuery() {
		_, err := fmt.Fprintln(r.out, r.styles.Success.Render(resp.Success))
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	t.SetStyle(style)

	header := make(table.Row, len(resp.Columns))
	for i, col := range resp.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, row := range resp.Rows {
		tr := make(table.Row, len(row))
		for i, v := range row {
			tr[i] = formatValue(v)
		}
		t.AppendRow(tr)
	}

	t.Render()
	_, err := fmt.Fprintln(r.out, r.styles.Muted.Render(resp.Success))
	return err
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

func (r *Renderer) renderYAML(resp *client.Response) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	if err := enc.Encode(responseNode(resp)); err != nil {
		return err
	}
	return enc.Close()
}

// responseNode builds the YAML document by hand so row keys keep column
// order.
func responseNode(resp *client.Response) *yaml.Node {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, val *yaml.Node) {
		doc.Content = append(doc.Content, strNode(key), val)
	}

	if !resp.OK() {
		add("error", strNode(resp.Error))
		add("kind", strNode(resp.Kind))
		add("code", strNode(resp.Code))
		return doc
	}

	add("success", strNode(resp.Success))
	if !resp.IsQuery() {
		return doc
	}

	cols := &yaml.Node{Kind: yaml.SequenceNode}
	for _, c := range resp.Columns {
		cols.Content = append(cols.Content, strNode(c))
	}
	add("columns", cols)

	data := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range resp.Rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for i, c := range resp.Columns {
			m.Content = append(m.Content, strNode(c), valueNode(row[i]))
		}
		data.Content = append(data.Content, m)
	}
	add("data", data)
	return doc
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func valueNode(v any) *yaml.Node {
	switch x := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case json.Number:
		if _, err := x.Int64(); err == nil {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: x.String()}
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: x.String()}
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(x)}
	case string:
		return strNode(x)
	default:
		return strNode(fmt.Sprint(x))
	}
}
