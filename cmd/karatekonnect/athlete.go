package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/cuemby/karatekonnect/pkg/config"
	"github.com/cuemby/karatekonnect/pkg/roster"
	"github.com/cuemby/karatekonnect/pkg/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var athletesCmd = &cobra.Command{
	Use:   "athletes",
	Short: "Work with the whole roster",
}

var athletesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every athlete",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.requireDocument(); err != nil {
			return err
		}
		athletes, err := app.roster.GetAllAthletes(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(athletes) == 0 {
			fmt.Fprintln(out, "No athletes found")
			return nil
		}
		writeAthleteList(out, athletes)
		return nil
	},
}

var athleteCmd = &cobra.Command{
	Use:   "athlete",
	Short: "Work with a single athlete",
}

var athleteGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show an athlete and their stats",
	Long: `Show an athlete's fields followed by their stats.

Stats are listed in the configured default_stats order. A stat the athlete
has never been scored on shows its default value.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.requireDocument(); err != nil {
			return err
		}
		athlete, ok, err := app.roster.GetAthlete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return &roster.AthleteNotFoundError{ID: args[0]}
		}

		output, _ := cmd.Flags().GetString("output")
		return writeAthlete(cmd.OutOrStdout(), output, *athlete, app.cfg.DefaultStats)
	},
}

var athleteUpdateCmd = &cobra.Command{
	Use:   "update ID key=value...",
	Short: "Change fields on an athlete",
	Long: `Change one or more fields on an athlete and save the whole roster.

Values that parse as numbers are stored as numbers, true and false as
booleans, and anything else as text. Requires a token.`,
	Example: `  karatekonnect athlete update a1 Strength=72 belt=brown`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.requireDocument(); err != nil {
			return err
		}
		partial, err := parseAssignments(args[1:])
		if err != nil {
			return err
		}
		doc, err := app.roster.UpdateAthlete(cmd.Context(), args[0], partial)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Athlete %s updated (%d field(s), saved %s)\n",
			args[0], len(partial), doc.LastUpdated)
		return nil
	},
}

func init() {
	athleteGetCmd.Flags().StringP("output", "o", "text", "Output format (text, yaml, json)")

	athletesCmd.AddCommand(athletesListCmd)
	athleteCmd.AddCommand(athleteGetCmd)
	athleteCmd.AddCommand(athleteUpdateCmd)
}

// parseAssignments turns key=value arguments into a partial athlete
func parseAssignments(args []string) (map[string]any, error) {
	partial := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected key=value", arg)
		}
		if key == "id" {
			return nil, errors.New("the id of an athlete cannot be changed")
		}
		partial[key] = parseValue(value)
	}
	return partial, nil
}

func parseValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// stat is one row of an athlete's stat listing
type stat struct {
	Name    string `yaml:"name" json:"name"`
	Value   any    `yaml:"value" json:"value"`
	Default bool   `yaml:"default,omitempty" json:"default,omitempty"`
}

// athleteView is an athlete split into plain fields and ordered stats
type athleteView struct {
	ID     string         `yaml:"id" json:"id"`
	Fields map[string]any `yaml:"fields,omitempty" json:"fields,omitempty"`
	Stats  []stat         `yaml:"stats" json:"stats"`
}

func newAthleteView(a types.Athlete, defaults []config.Stat) athleteView {
	view := athleteView{ID: a.ID, Stats: make([]stat, 0, len(defaults))}

	statNames := make(map[string]bool, len(defaults))
	for _, d := range defaults {
		statNames[d.Name] = true
		if v, ok := a.Get(d.Name); ok {
			view.Stats = append(view.Stats, stat{Name: d.Name, Value: v})
		} else {
			view.Stats = append(view.Stats, stat{Name: d.Name, Value: d.Value, Default: true})
		}
	}

	for k, v := range a.Attributes {
		if statNames[k] {
			continue
		}
		if view.Fields == nil {
			view.Fields = make(map[string]any)
		}
		view.Fields[k] = v
	}
	return view
}

func writeAthlete(w io.Writer, format string, a types.Athlete, defaults []config.Stat) error {
	view := newAthleteView(a, defaults)

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	fmt.Fprintf(w, "Athlete: %s\n", view.ID)
	keys := make([]string, 0, len(view.Fields))
	for k := range view.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %v\n", k, view.Fields[k])
	}

	fmt.Fprintln(w, "Stats:")
	for _, s := range view.Stats {
		suffix := ""
		if s.Default {
			suffix = " (default)"
		}
		fmt.Fprintf(w, "  %-14s %v%s\n", s.Name, s.Value, suffix)
	}
	return nil
}

func writeAthleteList(w io.Writer, athletes []types.Athlete) {
	fmt.Fprintf(w, "%-20s %s\n", "ID", "NAME")
	for _, a := range athletes {
		name, _ := a.Get("name")
		if name == nil {
			name = "-"
		}
		fmt.Fprintf(w, "%-20s %v\n", a.ID, name)
	}
}
