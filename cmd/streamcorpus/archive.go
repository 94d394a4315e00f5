package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"streamcorpus/internal/blob"
	"streamcorpus/internal/corpus"
	"streamcorpus/pkg/chunk"
	"streamcorpus/pkg/streamcorpus"
)

// openService builds the corpus service from config. The caller closes it.
func (a *app) openService(ctx context.Context) (*corpus.Service, error) {
	blobs, err := blob.Open(ctx, a.cfg.Blob)
	if err != nil {
		return nil, err
	}
	cat, err := corpus.OpenCatalog(ctx, a.cfg.Catalog)
	if err != nil {
		return nil, err
	}
	enc, err := encryptOptions(a.cfg.Envelope)
	if err != nil {
		_ = cat.Close()
		return nil, err
	}
	dec, err := decryptOptions(a.cfg.Envelope)
	if err != nil {
		_ = cat.Close()
		return nil, err
	}
	return corpus.NewService(blobs, cat,
		corpus.WithLogger(a.logger),
		corpus.WithMetrics(a.metrics),
		corpus.WithEnvelope(corpus.Envelope{Compress: a.cfg.Envelope.Compress, Encrypt: enc, Decrypt: dec}),
	), nil
}

// withService runs fn against a freshly opened service and closes it.
func (a *app) withService(ctx context.Context, fn func(*corpus.Service) error) (err error) {
	svc, err := a.openService(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(svc)
}

func (a *app) archiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <key> <chunk>",
		Short: "Store a chunk file in the archive under key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := chunk.Open(args[1], streamcorpus.NewStreamItem, chunk.WithLogger(a.logger))
			if err != nil {
				return err
			}
			items, err := r.ReadAll(ctx)
			_ = r.Close()
			if err != nil {
				return err
			}
			return a.withService(ctx, func(svc *corpus.Service) error {
				rec, err := svc.Archive(ctx, args[0], items)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.stdout, "%s\t%s\t%d messages\t%d bytes\n", rec.Key, rec.MD5, rec.Messages, rec.StoredBytes)
				return err
			})
		},
	}
}

func (a *app) extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <key> <out>",
		Short: "Write an archived chunk to a local chunk file (.xz paths are compressed)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withService(ctx, func(svc *corpus.Service) error {
				items, err := svc.Items(ctx, args[0])
				if err != nil {
					return err
				}
				w, err := chunk.Create[*streamcorpus.StreamItem](args[1], chunk.WithLogger(a.logger))
				if err != nil {
					return err
				}
				for _, item := range items {
					if err := w.Add(ctx, item); err != nil {
						_ = w.Close()
						return err
					}
				}
				if err := w.Close(); err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.stdout, "%s\t%s\t%d messages\n", args[1], w.MD5Hexdigest(), w.Len())
				return err
			})
		},
	}
}

func (a *app) catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog [prefix]",
		Short: "List archived chunks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var prefix string
			if len(args) == 1 {
				prefix = args[0]
			}
			ctx := cmd.Context()
			return a.withService(ctx, func(svc *corpus.Service) error {
				records, err := svc.Records(ctx, prefix)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "KEY\tMESSAGES\tBYTES\tTOKENS\tMD5\tFLAGS")
				for _, r := range records {
					_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\n", r.Key, r.Messages, r.StoredBytes, r.Tokens(), r.MD5, flags(r.Compressed, r.Encrypted))
				}
				return tw.Flush()
			})
		},
	}
}

func flags(compressed, encrypted bool) string {
	switch {
	case encrypted:
		return "xz,gpg"
	case compressed:
		return "xz"
	default:
		return "-"
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Entity-type token totals across the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return a.withService(ctx, func(svc *corpus.Service) error {
				totals, err := svc.Stats(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "CODE\tSYMBOL\tTOKENS")
				var sum int
				for _, et := range streamcorpus.EntityTypes() {
					_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\n", et.Code(), et, totals[et])
					sum += totals[et]
				}
				_, _ = fmt.Fprintf(tw, "\ttotal\t%d\n", sum)
				return tw.Flush()
			})
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <key>",
		Short: "Delete an archived chunk and its catalog record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withService(ctx, func(svc *corpus.Service) error {
				removed, err := svc.Remove(ctx, args[0])
				if err != nil {
					return err
				}
				if !removed {
					return errors.New("no such chunk: " + args[0])
				}
				return nil
			})
		},
	}
}
