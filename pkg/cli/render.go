package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/harrisonrobin/cloudtodo/pkg/model"
	"github.com/harrisonrobin/cloudtodo/pkg/status"
	"github.com/harrisonrobin/cloudtodo/pkg/timestamp"
)

func (a *app) renderBoard(w io.Writer, b status.Board) error {
	sections := []struct {
		title string
		tasks []model.Task
	}{
		{"Pending", b.Pending},
		{"Expired", b.Expired},
		{"Completed", b.Completed},
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, s := range sections {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s (%d)\n", s.title, len(s.tasks))
		if len(s.tasks) == 0 {
			fmt.Fprintln(tw, "  -")
			continue
		}
		fmt.Fprintln(tw, "  ID\tTASK\tDEADLINE\tCREATED")
		for _, t := range s.tasks {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", t.TaskID, label(t), a.formatTime(t.Deadline), a.formatTime(t.CreatedAt))
		}
	}
	return tw.Flush()
}

func (a *app) formatTime(v timestamp.Value) string {
	t, ok := v.Time()
	if !ok {
		return "-"
	}
	return timestamp.Format(t.In(time.Local), a.cfg.DateLayout, "-")
}

func label(t model.Task) string {
	if t.Title != "" && t.Description != "" && t.Title != t.Description {
		return t.Title + ": " + t.Description
	}
	if t.Title != "" {
		return t.Title
	}
	return t.Description
}

// writeBoardJSON prints empty buckets as [] rather than null.
func writeBoardJSON(w io.Writer, b status.Board) error {
	for _, bucket := range []*[]model.Task{&b.Pending, &b.Completed, &b.Expired} {
		if *bucket == nil {
			*bucket = []model.Task{}
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}
