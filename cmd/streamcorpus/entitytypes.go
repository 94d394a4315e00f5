package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"streamcorpus/pkg/streamcorpus"
)

type entityTypeRow struct {
	Code        int32  `json:"code" yaml:"code"`
	Symbol      string `json:"symbol" yaml:"symbol"`
	Description string `json:"description" yaml:"description"`
}

func rowFor(et streamcorpus.EntityType) entityTypeRow {
	return entityTypeRow{Code: et.Code(), Symbol: et.String(), Description: et.Description()}
}

func (a *app) entityTypesCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "entity-types",
		Short: "List every declared entity type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all := streamcorpus.EntityTypes()
			rows := make([]entityTypeRow, 0, len(all))
			for _, et := range all {
				rows = append(rows, rowFor(et))
			}
			return a.printRows(format, rows)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "text", "Output format: text, json or yaml")
	return cmd
}

func (a *app) lookupCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "lookup <code|symbol>",
		Short: "Resolve an entity type by integer code or symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			et, err := resolveEntityType(args[0])
			if err != nil {
				return err
			}
			return a.printRows(format, []entityTypeRow{rowFor(et)})
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "text", "Output format: text, json or yaml")
	return cmd
}

func resolveEntityType(arg string) (streamcorpus.EntityType, error) {
	if code, err := strconv.ParseInt(arg, 10, 32); err == nil {
		return streamcorpus.LookupEntityType(int32(code))
	}
	return streamcorpus.ParseEntityType(arg)
}

func (a *app) printRows(format string, rows []entityTypeRow) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(a.stdout)
		defer func() { _ = enc.Close() }()
		return enc.Encode(rows)
	case "text", "":
		tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "CODE\tSYMBOL\tDESCRIPTION")
		for _, r := range rows {
			_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", r.Code, r.Symbol, r.Description)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
