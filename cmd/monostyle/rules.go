package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/phyten/monostyle/internal/rules"
)

type ruleRow struct {
	Name            string         `json:"name"`
	Severity        string         `json:"severity"`
	DefaultSeverity string         `json:"default_severity"`
	Fixable         bool           `json:"fixable"`
	Description     string         `json:"description"`
	Options         map[string]any `json:"options,omitempty"`
}

func (a *app) newRulesCmd() *cobra.Command {
	var (
		format     string
		configPath string
		envFile    string
	)
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List rules with their effective severity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogger(a.stderr, false)
			layers, err := loadLayers("", configPath, envFile)
			if err != nil {
				return usageError(err)
			}
			settings := rules.Merge(layers.file.Rules, layers.env.Rules)
			if _, err := rules.Build(settings); err != nil {
				return usageError(err)
			}
			rows := ruleRows(settings)
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "json":
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(rows)
			case "", "table":
				w := tabwriter.NewWriter(a.stdout, 2, 4, 2, ' ', 0)
				fmt.Fprintln(w, "RULE\tSEVERITY\tFIXABLE\tDESCRIPTION")
				for _, r := range rows {
					fixable := ""
					if r.Fixable {
						fixable = "yes"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Severity, fixable, r.Description)
				}
				return w.Flush()
			default:
				return usageError(fmt.Errorf("invalid --format: %s (table|json)", format))
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "table|json")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file")
	cmd.Flags().StringVar(&envFile, "env-file", "", "read MONOSTYLE_* variables from a .env file")
	return cmd
}

func ruleRows(settings map[string]rules.Setting) []ruleRow {
	all := rules.All()
	rows := make([]ruleRow, 0, len(all))
	for _, rule := range all {
		name := rule.Name()
		def := rules.DefaultSeverity(name)
		row := ruleRow{
			Name:            name,
			Severity:        def.String(),
			DefaultSeverity: def.String(),
			Fixable:         rule.Meta().Fixable,
			Description:     rule.Meta().Description,
		}
		if s, ok := settings[name]; ok {
			row.Severity = s.Severity.String()
			row.Options = s.Options
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}
