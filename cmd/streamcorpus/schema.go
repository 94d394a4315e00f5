package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"streamcorpus/docs/schema"
	"streamcorpus/docs/schema/openapi"
	"streamcorpus/internal/schema/sqlbundle"
)

var schemaArtifacts = map[string]func() []byte{
	"json":     schema.Raw,
	"openapi":  openapi.Spec,
	"postgres": func() []byte { return []byte(sqlbundle.Postgres()) },
	"sqlite":   func() []byte { return []byte(sqlbundle.SQLite()) },
}

func (a *app) schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema [json|openapi|postgres|sqlite]",
		Short:     "Print the embedded entity-type schema or one of its generated artifacts",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"json", "openapi", "postgres", "sqlite"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := "json"
			if len(args) == 1 {
				kind = args[0]
			}
			_, err := a.stdout.Write(schemaArtifacts[kind]())
			return err
		},
	}
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the entity-type schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			version, err := schema.Version()
			if err != nil {
				return err
			}
			meta, err := schema.SchemaMetadata()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "schema %s (%s, %s)\n", version, meta.Source, meta.Status)
			return err
		},
	}
}
