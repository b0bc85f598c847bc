package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"contentplanner/internal/app"
	"contentplanner/internal/domain"
	"contentplanner/internal/filter"
)

func itemCmd() *cobra.Command {
	item := &cobra.Command{
		Use:   "item",
		Short: "Manage content items",
		Long:  "Items move freely between idea, script_generated, approved, scheduled and published.",
	}
	item.AddCommand(itemCreateCmd())
	item.AddCommand(itemListCmd())
	item.AddCommand(itemShowCmd())
	item.AddCommand(itemUpdateCmd())
	item.AddCommand(itemMoveCmd())
	item.AddCommand(itemDeleteCmd())
	return item
}

// itemFlags are shared by create and update.
type itemFlags struct {
	title, description, format, objective, distribution, status string
	equipmentID, responsibleID, scheduled, calendarEventID      string
	scriptID, scriptTitle, scriptContent                        string
	tags                                                        []string
}

func (f *itemFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.title, "title", "", "title")
	fs.StringVar(&f.description, "description", "", "description")
	fs.StringSliceVar(&f.tags, "tags", nil, "comma separated tags")
	fs.StringVar(&f.format, "format", "", "story|video|layout|carousel|reels|text|other")
	fs.StringVar(&f.objective, "objective", "", "objective label")
	fs.StringVar(&f.distribution, "distribution", "", "Instagram|YouTube|TikTok|Blog|Multiple|Other")
	fs.StringVar(&f.status, "status", "", "idea|script_generated|approved|scheduled|published")
	fs.StringVar(&f.equipmentID, "equipment-id", "", "equipment id (empty clears)")
	fs.StringVar(&f.responsibleID, "responsible-id", "", "responsible id (empty clears)")
	fs.StringVar(&f.scheduled, "scheduled", "", "scheduled date YYYY-MM-DD or RFC3339 (empty clears)")
	fs.StringVar(&f.calendarEventID, "calendar-event-id", "", "external calendar event id (empty clears)")
	fs.StringVar(&f.scriptID, "script-id", "", "linked script id (empty clears)")
	fs.StringVar(&f.scriptTitle, "script-title", "", "linked script title")
	fs.StringVar(&f.scriptContent, "script-content", "", "linked script content")
}

// patch includes only flags that were set on the command line.
func (f *itemFlags) patch(fs *pflag.FlagSet) (domain.ItemPatch, error) {
	var p domain.ItemPatch
	changed := fs.Changed
	if changed("title") {
		p.Title = domain.Ptr(f.title)
	}
	if changed("description") {
		p.Description = domain.Ptr(f.description)
	}
	if changed("tags") {
		tags := append([]string{}, f.tags...)
		p.Tags = &tags
	}
	if changed("format") {
		v, err := domain.ParseFormat(f.format)
		if err != nil {
			return p, err
		}
		p.Format = &v
	}
	if changed("objective") {
		v, err := domain.ParseObjective(f.objective)
		if err != nil {
			return p, err
		}
		p.Objective = &v
	}
	if changed("distribution") {
		v, err := domain.ParseDistribution(f.distribution)
		if err != nil {
			return p, err
		}
		p.Distribution = &v
	}
	if changed("status") {
		v, err := domain.ParseStatus(f.status)
		if err != nil {
			return p, err
		}
		p.Status = &v
	}
	if changed("equipment-id") {
		p.EquipmentID = domain.Ptr(f.equipmentID)
	}
	if changed("responsible-id") {
		p.ResponsibleID = domain.Ptr(f.responsibleID)
	}
	if changed("calendar-event-id") {
		p.CalendarEventID = domain.Ptr(f.calendarEventID)
	}
	if changed("script-id") {
		p.ScriptID = domain.Ptr(f.scriptID)
		if f.scriptID != "" && (changed("script-title") || changed("script-content")) {
			p.Script = &domain.ScriptSnapshot{ID: f.scriptID, Title: f.scriptTitle, Content: f.scriptContent}
		}
	}
	if changed("scheduled") {
		if strings.TrimSpace(f.scheduled) == "" {
			p.ScheduledDate = &time.Time{}
		} else {
			t, err := parseCLIDate(f.scheduled)
			if err != nil {
				return p, domain.Invalid("scheduled_date", "expected YYYY-MM-DD or RFC3339")
			}
			p.ScheduledDate = &t
		}
	}
	return p, nil
}

func parseCLIDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", raw)
}

// filterFlags back item list and board.
type filterFlags struct {
	statuses                             []string
	objective, distribution, format      string
	equipmentID, responsibleID, from, to string
}

func (f *filterFlags) bind(fs *pflag.FlagSet) {
	fs.StringSliceVar(&f.statuses, "status", nil, "statuses to include (comma separated)")
	fs.StringVar(&f.objective, "objective", "", "objective filter")
	fs.StringVar(&f.distribution, "distribution", "", "distribution filter")
	fs.StringVar(&f.format, "format", "", "format filter")
	fs.StringVar(&f.equipmentID, "equipment-id", "", "equipment filter")
	fs.StringVar(&f.responsibleID, "responsible-id", "", "responsible filter")
	fs.StringVar(&f.from, "from", "", "scheduled on or after YYYY-MM-DD")
	fs.StringVar(&f.to, "to", "", "scheduled on or before YYYY-MM-DD")
}

func (f *filterFlags) filter() (domain.Filter, error) {
	var out domain.Filter
	for _, s := range f.statuses {
		st, err := domain.ParseStatus(strings.TrimSpace(s))
		if err != nil {
			return out, err
		}
		out.Statuses = append(out.Statuses, st)
	}
	if f.objective != "" {
		v, err := domain.ParseObjective(f.objective)
		if err != nil {
			return out, err
		}
		out.Objective = &v
	}
	if f.distribution != "" {
		v, err := domain.ParseDistribution(f.distribution)
		if err != nil {
			return out, err
		}
		out.Distribution = &v
	}
	if f.format != "" {
		v, err := domain.ParseFormat(f.format)
		if err != nil {
			return out, err
		}
		out.Format = &v
	}
	out.EquipmentID = optionalString(f.equipmentID)
	out.ResponsibleID = optionalString(f.responsibleID)
	for _, d := range []struct {
		name string
		raw  string
		dst  **time.Time
	}{{"from", f.from, &out.DateFrom}, {"to", f.to, &out.DateTo}} {
		if d.raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", d.raw)
		if err != nil {
			return out, domain.Invalid(d.name, "expected YYYY-MM-DD")
		}
		*d.dst = &t
	}
	return out, nil
}

func itemCreateCmd() *cobra.Command {
	var f itemFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an item",
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := f.patch(cmd.Flags())
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				p, err := newPlanner(ctx, rt)
				if err != nil {
					return err
				}
				defer p.Close()
				it := p.AddItem(ctx, patch)
				if it == nil {
					return errReported
				}
				return printItem(*it)
			})
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func itemListCmd() *cobra.Command {
	var f filterFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items in insertion order",
		RunE: func(cmd *cobra.Command, args []string) error {
			flt, err := f.filter()
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				items, err := rt.Engine.ListItems(ctx, flt)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Format", "Objective", "Channel", "Scheduled"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.Title, it.Status, it.Format, it.Objective, it.Distribution, dateOrEmpty(it.ScheduledDate)})
				}
				if filter.HasActiveFilters(flt) {
					tw.SetCaption("filters active")
				}
				tw.Render()
				return nil
			})
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func itemShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				it, err := rt.Engine.GetItem(ctx, args[0])
				if err != nil {
					return err
				}
				return printItem(it)
			})
		},
	}
}

func itemUpdateCmd() *cobra.Command {
	var f itemFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update item fields; unset flags are left unchanged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := f.patch(cmd.Flags())
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				p, err := newPlanner(ctx, rt)
				if err != nil {
					return err
				}
				defer p.Close()
				it := p.UpdateItem(ctx, args[0], patch)
				if it == nil {
					return errReported
				}
				return printItem(*it)
			})
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func itemMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move an item to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				p, err := newPlanner(ctx, rt)
				if err != nil {
					return err
				}
				defer p.Close()
				it := p.MoveItem(ctx, args[0], domain.Status(args[1]))
				if it == nil {
					return errReported
				}
				return printItem(*it)
			})
		},
	}
}

func itemDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				if _, err := rt.Engine.GetItem(ctx, args[0]); err != nil {
					return err
				}
				p, err := newPlanner(ctx, rt)
				if err != nil {
					return err
				}
				defer p.Close()
				p.RemoveItem(ctx, args[0])
				for _, it := range p.Items() {
					if it.ID == args[0] {
						return errReported
					}
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}

func boardCmd() *cobra.Command {
	var f filterFlags
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the five column board",
		RunE: func(cmd *cobra.Command, args []string) error {
			flt, err := f.filter()
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				p, err := newPlanner(ctx, rt)
				if err != nil {
					return err
				}
				defer p.Close()
				p.SetFilters(flt)
				cols := p.Columns()
				if viper.GetBool("json") {
					return printJSON(cols)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"Column", "ID", "Title", "Format", "Scheduled"})
				for _, c := range cols {
					tw.AppendRow(table.Row{fmt.Sprintf("%s %s (%d)", c.Icon, c.Title, len(c.Items)), "", "", "", ""})
					for _, it := range c.Items {
						tw.AppendRow(table.Row{"", it.ID, it.Title, it.Format, dateOrEmpty(it.ScheduledDate)})
					}
					tw.AppendSeparator()
				}
				if p.HasActiveFilters() {
					tw.SetCaption("filters active")
				}
				tw.Render()
				return nil
			})
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func suggestCmd() *cobra.Command {
	var count int
	var objective, format string
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Generate idea items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				if max := rt.Config.Suggestions.MaxCount; max > 0 && count > max {
					return fmt.Errorf("count %d exceeds suggestions.max_count %d", count, max)
				}
				var obj *domain.Objective
				if objective != "" {
					o := domain.Objective(objective)
					obj = &o
				}
				var fm *domain.Format
				if format != "" {
					v := domain.Format(format)
					fm = &v
				}
				p, err := newPlanner(ctx, rt)
				if err != nil {
					return err
				}
				defer p.Close()
				added := p.GenerateSuggestions(ctx, count, obj, fm)
				if viper.GetBool("json") {
					return printJSON(added)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Title", "Format", "Objective"})
				for _, it := range added {
					tw.AppendRow(table.Row{it.ID, it.Title, it.Format, it.Objective})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&count, "count", 5, "number of ideas")
	cmd.Flags().StringVar(&objective, "objective", "", "objective for every idea")
	cmd.Flags().StringVar(&format, "format", "", "format for every idea")
	return cmd
}

func equipmentCmd() *cobra.Command {
	eq := &cobra.Command{Use: "equipment", Short: "Manage the equipment catalog"}
	var name, category string
	add := &cobra.Command{
		Use:   "add",
		Short: "Register equipment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				e, err := rt.Engine.CreateEquipment(ctx, name, category, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(e)
			})
		},
	}
	add.Flags().StringVar(&name, "name", "", "name")
	add.Flags().StringVar(&category, "category", "", "category")
	list := &cobra.Command{
		Use:   "list",
		Short: "List equipment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				items, err := rt.Engine.ListEquipments(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Name", "Category"})
				for _, e := range items {
					tw.AppendRow(table.Row{e.ID, e.Name, e.Category})
				}
				tw.Render()
				return nil
			})
		},
	}
	eq.AddCommand(add, list)
	return eq
}

func responsibleCmd() *cobra.Command {
	rs := &cobra.Command{Use: "responsible", Short: "Manage responsible people"}
	var name, role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a responsible person",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				r, err := rt.Engine.CreateResponsible(ctx, name, role, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(r)
			})
		},
	}
	add.Flags().StringVar(&name, "name", "", "name")
	add.Flags().StringVar(&role, "role", "", "role")
	list := &cobra.Command{
		Use:   "list",
		Short: "List responsible people",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				items, err := rt.Engine.ListResponsibles(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Name", "Role"})
				for _, r := range items {
					tw.AppendRow(table.Row{r.ID, r.Name, r.Role})
				}
				tw.Render()
				return nil
			})
		},
	}
	rs.AddCommand(add, list)
	return rs
}

func printItem(it domain.Item) error {
	if viper.GetBool("json") {
		return printJSON(it)
	}
	tw := newTable()
	tw.AppendRows([]table.Row{
		{"ID", it.ID},
		{"Title", it.Title},
		{"Status", it.Status},
		{"Format", it.Format},
		{"Objective", it.Objective},
		{"Distribution", it.Distribution},
		{"Tags", strings.Join(it.Tags, ", ")},
		{"Equipment", derefOr(it.EquipmentName, derefOr(it.EquipmentID, ""))},
		{"Responsible", derefOr(it.ResponsibleName, derefOr(it.ResponsibleID, ""))},
		{"Scheduled", dateOrEmpty(it.ScheduledDate)},
		{"AI generated", it.AIGenerated},
		{"Updated", it.UpdatedAt.Format(time.RFC3339)},
	})
	tw.Render()
	return nil
}

func dateOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func derefOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
