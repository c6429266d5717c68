package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"fieldsurvey/internal/client"
	"fieldsurvey/internal/drawer"
	"fieldsurvey/internal/markers"
	"fieldsurvey/internal/questions"
	"fieldsurvey/internal/session"
	"fieldsurvey/platform/docstore"
	"fieldsurvey/platform/geo"

	"github.com/spf13/cobra"
)

// markerSession is a loaded marker store for the selected survey.
type markerSession struct {
	store  *markers.Store
	survey client.Survey
	fields []string
	close  func()
}

// warnOutside tells the volunteer when loc falls outside the survey site.
// Surveys without a boundary accept any location.
func (ms *markerSession) warnOutside(w io.Writer, loc geo.Point) {
	if len(ms.survey.Boundary) < 3 || ms.survey.Boundary.Contains(loc) {
		return
	}
	fmt.Fprintf(w, "warning: location is outside the survey boundary, %.0f m from its centre\n",
		geo.Distance(loc, ms.survey.Boundary.Centroid()))
}

// loadMarkers opens the selected survey's marker store. Markers go to the
// document store when SURVEYCTL_REDIS_URL is set and to the REST API
// otherwise.
func (a *app) loadMarkers(ctx context.Context, surveyFlag string, opts ...markers.Option) (*markerSession, error) {
	if _, err := a.signedIn(ctx); err != nil {
		return nil, err
	}
	surveyID, err := a.surveyID(ctx, surveyFlag)
	if err != nil {
		return nil, err
	}
	survey, err := a.api.GetSurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	var remote markers.Remote = markers.NewAPIRemote(a.api, survey.ID)
	closeFn := func() {}
	if a.cfg.RedisURL != "" {
		docs, err := docstore.Open(ctx, a.cfg)
		if err != nil {
			return nil, err
		}
		remote = markers.NewDocRemote(docs, survey.StudyID, survey.ID)
		closeFn = func() { _ = docs.Close() }
	}

	opts = append([]markers.Option{markers.WithLogger(a.log.WithSurvey(survey.StudyID, survey.ID))}, opts...)
	store := markers.New(remote, a.schema, survey.Fields, opts...)
	if err := store.Load(ctx); err != nil {
		closeFn()
		return nil, err
	}
	if err := a.sess.Set(ctx, session.KeyStudyID, survey.StudyID); err != nil {
		a.log.Warn("could not remember study", "error", err)
	}
	return &markerSession{store: store, survey: survey, fields: survey.Fields, close: closeFn}, nil
}

// resolve finds a marker by id or, case-insensitively, by title.
func resolve(store *markers.Store, ref string) (markers.Marker, error) {
	if m, ok := store.Get(ref); ok {
		return m, nil
	}
	for _, m := range store.Markers() {
		if strings.EqualFold(m.Title, ref) {
			return m, nil
		}
	}
	return markers.Marker{}, fmt.Errorf("marker %q: %w", ref, markers.ErrNotFound)
}

func (a *app) markersCmd() *cobra.Command {
	var surveyFlag string
	cmd := &cobra.Command{
		Use:     "markers",
		Aliases: []string{"m"},
		Short:   "Record and edit markers in the selected survey",
	}
	cmd.PersistentFlags().StringVar(&surveyFlag, "survey", "", "survey id (defaults to the one selected with use)")

	// withMarkers loads the store, runs fn and releases the remote.
	withMarkers := func(fn func(cmd *cobra.Command, ms *markerSession, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ms, err := a.loadMarkers(cmd.Context(), surveyFlag)
			if err != nil {
				return err
			}
			defer ms.close()
			return fn(cmd, ms, args)
		}
	}

	var lat, lng float64
	addLocationFlags := func(c *cobra.Command) {
		c.Flags().Float64Var(&lat, "lat", 0, "latitude")
		c.Flags().Float64Var(&lng, "lng", 0, "longitude")
		_ = c.MarkFlagRequired("lat")
		_ = c.MarkFlagRequired("lng")
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List markers",
		Args:  cobra.NoArgs,
		RunE: withMarkers(func(cmd *cobra.Command, ms *markerSession, _ []string) error {
			return writeMarkers(cmd.OutOrStdout(), ms.store.Markers(), ms.fields)
		}),
	}

	var screen float64
	show := &cobra.Command{
		Use:   "show MARKER",
		Short: "Show a marker's form and how it sits in the drawer",
		Args:  cobra.ExactArgs(1),
		RunE: withMarkers(func(cmd *cobra.Command, ms *markerSession, args []string) error {
			m, err := resolve(ms.store, args[0])
			if err != nil {
				return err
			}
			selectors := a.schema.Render(ms.fields, m.Answers, questions.DefaultLayout)
			sheet, err := openSheet(screen, m.ID, selectors)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			writeForm(out, m, selectors)
			fmt.Fprintf(out, "sheet: %s, form %.0f pt, scroll %.0f pt\n",
				sheet.State(), questions.TotalHeight(selectors), sheet.ScrollOffset())
			return nil
		}),
	}
	show.Flags().Float64Var(&screen, "screen", 780, "screen height in points")

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a marker at a location",
		Args:  cobra.NoArgs,
		RunE: withMarkers(func(cmd *cobra.Command, ms *markerSession, _ []string) error {
			loc := geo.Point{Latitude: lat, Longitude: lng}
			m, err := ms.store.Create(cmd.Context(), loc)
			if err != nil {
				return err
			}
			ms.warnOutside(cmd.ErrOrStderr(), loc)
			fmt.Fprintf(cmd.OutOrStdout(), "added %s %s %s\n", m.Title, m.ID, m.Color)
			return nil
		}),
	}
	addLocationFlags(add)

	answer := &cobra.Command{
		Use:   "answer MARKER QUESTION [VALUE...]",
		Short: "Set a question's answer; no value clears it",
		Args:  cobra.MinimumNArgs(2),
		RunE: withMarkers(func(cmd *cobra.Command, ms *markerSession, args []string) error {
			m, err := resolve(ms.store, args[0])
			if err != nil {
				return err
			}
			q, ok := a.schema.Lookup(args[1])
			if !ok {
				return fmt.Errorf("unknown question %q", args[1])
			}
			value := questions.Empty(q.Type)
			switch {
			case q.Type == questions.TypeMulti:
				value = questions.Multi(args[2:]...)
			case len(args) > 3:
				return fmt.Errorf("question %q takes a single value", q.Key)
			case len(args) == 3:
				value = questions.Single(args[2])
			}
			m, err = ms.store.SetAnswer(cmd.Context(), m.ID, q.Key, value)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", m.Title, q.Key, m.Answers[q.Key])
			return nil
		}),
	}

	toggle := &cobra.Command{
		Use:   "toggle MARKER QUESTION VALUE",
		Short: "Toggle one option of a question",
		Args:  cobra.ExactArgs(3),
		RunE: withMarkers(func(cmd *cobra.Command, ms *markerSession, args []string) error {
			m, err := resolve(ms.store, args[0])
			if err != nil {
				return err
			}
			m, err = ms.store.Toggle(cmd.Context(), m.ID, args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", m.Title, args[1], m.Answers[args[1]])
			return nil
		}),
	}

	note := &cobra.Command{
		Use:   "note MARKER TEXT...",
		Short: "Replace a marker's note",
		Args:  cobra.MinimumNArgs(1),
		RunE: withMarkers(func(cmd *cobra.Command, ms *markerSession, args []string) error {
			m, err := resolve(ms.store, args[0])
			if err != nil {
				return err
			}
			m, err = ms.store.SetNote(cmd.Context(), m.ID, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s note updated\n", m.Title)
			return nil
		}),
	}

	move := &cobra.Command{
		Use:   "move MARKER",
		Short: "Move a marker",
		Args:  cobra.ExactArgs(1),
		RunE: withMarkers(func(cmd *cobra.Command, ms *markerSession, args []string) error {
			m, err := resolve(ms.store, args[0])
			if err != nil {
				return err
			}
			loc := geo.Point{Latitude: lat, Longitude: lng}
			m, err = ms.store.Move(cmd.Context(), m.ID, loc)
			if err != nil {
				return err
			}
			ms.warnOutside(cmd.ErrOrStderr(), loc)
			fmt.Fprintf(cmd.OutOrStdout(), "%s moved to %.6f,%.6f\n", m.Title, m.Location.Latitude, m.Location.Longitude)
			return nil
		}),
	}
	addLocationFlags(move)

	duplicate := &cobra.Command{
		Use:   "duplicate MARKER",
		Short: "Copy a marker's answers into a new marker",
		Args:  cobra.ExactArgs(1),
		RunE: withMarkers(func(cmd *cobra.Command, ms *markerSession, args []string) error {
			src, err := resolve(ms.store, args[0])
			if err != nil {
				return err
			}
			m, err := ms.store.Duplicate(cmd.Context(), src.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s %s %s\n", m.Title, m.ID, m.Color)
			return nil
		}),
	}

	del := &cobra.Command{
		Use:     "delete MARKER",
		Aliases: []string{"rm"},
		Short:   "Delete a marker",
		Args:    cobra.ExactArgs(1),
		RunE: withMarkers(func(cmd *cobra.Command, ms *markerSession, args []string) error {
			m, err := resolve(ms.store, args[0])
			if err != nil {
				return err
			}
			if err := ms.store.Delete(cmd.Context(), m.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", m.Title)
			return nil
		}),
	}

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Print marker changes from other devices until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			ms, err := a.loadMarkers(cmd.Context(), surveyFlag, markers.WithChangeHook(func(c markers.Change, m markers.Marker) {
				writeChange(out, c, m)
			}))
			if err != nil {
				return err
			}
			defer ms.close()

			fmt.Fprintf(out, "watching %s (%d markers)\n", ms.survey.ID, len(ms.store.Markers()))
			err = ms.store.Follow(cmd.Context())
			switch {
			case errors.Is(err, markers.ErrNoChangeFeed):
				return fmt.Errorf("%w, set SURVEYCTL_REDIS_URL to follow the document store", err)
			case errors.Is(err, context.Canceled):
				return nil
			}
			return err
		},
	}

	cmd.AddCommand(list, show, add, answer, toggle, note, move, duplicate, del, watch)
	return cmd
}

func writeChange(w io.Writer, c markers.Change, m markers.Marker) {
	switch c.Type {
	case markers.Added:
		fmt.Fprintf(w, "added %s %s %s\n", m.Title, m.ID, m.Color)
	case markers.Modified:
		fmt.Fprintf(w, "changed %s\n", m.Title)
	case markers.Removed:
		fmt.Fprintf(w, "deleted %s\n", m.Title)
	}
}

// sheetHeader is the drawer's handle and title bar.
const sheetHeader = 64

// openSheet selects id in a drawer sized for the screen, as tapping a marker
// does, and reveals whatever part of the form is hidden below the fold.
func openSheet(screen float64, id string, selectors []questions.Selector) (*drawer.Drawer, error) {
	d, err := drawer.New(drawer.ForScreen(screen, sheetHeader))
	if err != nil {
		return nil, fmt.Errorf("screen height %.0f: %w", screen, err)
	}
	d.Select(id)
	visible := screen - d.Offset() - sheetHeader
	d.Reveal(questions.TotalHeight(selectors) - visible)
	return d, nil
}

func writeMarkers(w io.Writer, items []markers.Marker, fields []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "TITLE\tTIME\tCOLOR\tLOCATION\t%s\n", strings.ToUpper(strings.Join(fields, "\t")))
	for _, m := range items {
		cols := make([]string, len(fields))
		for i, f := range fields {
			cols[i] = m.Answers[f].String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.5f,%.5f\t%s\n",
			m.Title, m.TimeLabel, m.Color, m.Location.Latitude, m.Location.Longitude, strings.Join(cols, "\t"))
	}
	return tw.Flush()
}

func writeForm(w io.Writer, m markers.Marker, selectors []questions.Selector) {
	fmt.Fprintf(w, "%s  %s  %s\n", m.Title, m.TimeLabel, m.ID)
	for _, s := range selectors {
		fmt.Fprintf(w, "%s (%s)\n", s.Label, s.Key)
		for _, o := range s.Options {
			mark := " "
			if o.Selected {
				mark = "x"
			}
			fmt.Fprintf(w, "  [%s] %s\n", mark, o.Label)
		}
	}
	if m.Note != "" {
		fmt.Fprintf(w, "note: %s\n", m.Note)
	}
}
