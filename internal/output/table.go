package output

import (
	"fmt"
	"io"

	"karmagrab/internal/scrapers/leprosorium"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Table renders the batch as a single table once every user is resolved.
type Table struct {
	out      io.Writer
	t        table.Writer
	found    int
	notFound int
}

func NewTable(out io.Writer) *Table {
	return &Table{out: out}
}

func (d *Table) Start() {
	d.t = table.NewWriter()
	d.t.AppendHeader(table.Row{"Login", "Karma", "Comment karma", "Posts", "Comments", "Parent", "Kids"})
	d.t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	d.found = 0
	d.notFound = 0
}

func (d *Table) Found(login string, record leprosorium.KarmaRecord) {
	d.found++
	parent := ""
	if record.Parent != nil {
		parent = *record.Parent
	}
	d.t.AppendRow(table.Row{
		login,
		record.Karma,
		record.CommentKarma,
		record.PostCount,
		record.CommentCount,
		parent,
		len(record.Kids),
	})
}

func (d *Table) NotFound(login string) {
	d.notFound++
	d.t.AppendRow(table.Row{login, "not found", "", "", "", "", ""})
}

func (d *Table) End() error {
	d.t.AppendFooter(table.Row{"", "", "", "", "", "found", fmt.Sprintf("%d/%d", d.found, d.found+d.notFound)})
	d.t.SetStyle(table.StyleRounded)
	_, err := fmt.Fprintln(d.out, d.t.Render())
	return err
}

func (d *Table) WantsVoters() bool {
	return false
}
