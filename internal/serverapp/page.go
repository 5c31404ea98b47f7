package serverapp

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/task"
)

// StatusPage renders a minimal read-only task overview for browsers
// pointed at the server root. The API is the real interface.
func StatusPage(tasks *task.Store) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		all := tasks.All()
		stats := tasks.Stats()

		if _, err := io.WriteString(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>Task Planner</title>"+
			"<style>body{font-family:sans-serif;margin:2rem}table{border-collapse:collapse}"+
			"td,th{border:1px solid #ccc;padding:.3rem .6rem;text-align:left}</style>"+
			"</head><body><h1>Task Planner</h1>"); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "<p>%d tasks, %d completed, %d overdue</p>",
			stats.Total, stats.Completed, stats.Overdue); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<table><tr><th>#</th><th>Task</th><th>Status</th><th>Due</th></tr>"); err != nil {
			return err
		}
		for i, t := range all {
			due := ""
			if t.DueDate != nil {
				due = *t.DueDate
			}
			if _, err := fmt.Fprintf(w, "<tr><td>%d</td><td>%s</td><td>%s</td><td>%s</td></tr>",
				i+1,
				templ.EscapeString(t.Title),
				templ.EscapeString(t.Status.Name()),
				templ.EscapeString(due)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</table></body></html>")
		return err
	})
}
