package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"streamcorpus/internal/config"
	"streamcorpus/pkg/chunk"
	"streamcorpus/pkg/chunk/envelope"
	"streamcorpus/pkg/streamcorpus"
)

func (a *app) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <chunk>",
		Short: "Summarize a chunk file: messages, digest and entity types",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := chunk.Open(args[0], streamcorpus.NewStreamItem, chunk.WithLogger(a.logger), chunk.WithObserver(a.metrics))
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()
			counts := make(map[streamcorpus.EntityType]int)
			unknown := make(map[int32]int)
			for item, err := range r.All(cmd.Context()) {
				if err != nil {
					return err
				}
				for et, n := range item.EntityCounts() {
					counts[et] += n
				}
				for _, code := range item.UnknownEntityTypes() {
					unknown[code]++
				}
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintf(tw, "messages\t%d\n", r.Len())
			_, _ = fmt.Fprintf(tw, "md5\t%s\n", r.MD5Hexdigest())
			for _, et := range streamcorpus.EntityTypes() {
				if n := counts[et]; n > 0 {
					_, _ = fmt.Fprintf(tw, "%s\t%d\n", et, n)
				}
			}
			codes := make([]int32, 0, len(unknown))
			for code := range unknown {
				codes = append(codes, code)
			}
			sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
			for _, code := range codes {
				_, _ = fmt.Fprintf(tw, "unknown(%d)\t%d\n", code, unknown[code])
			}
			return tw.Flush()
		},
	}
}

func (a *app) packCmd() *cobra.Command {
	var recipient string
	cmd := &cobra.Command{
		Use:   "pack <in> <out>",
		Short: "xz-compress a chunk and encrypt it when a public key is configured",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := encryptOptions(a.cfg.Envelope)
			if err != nil {
				return err
			}
			if recipient != "" {
				opts.Recipient = recipient
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			packed, err := envelope.CompressAndEncrypt(data, opts)
			if err != nil {
				return err
			}
			if err := writeNew(args[1], packed); err != nil {
				return err
			}
			a.logger.Info("packed chunk", "in", args[0], "out", args[1], "bytes", len(packed), "encrypted", opts.PublicKeyRing != nil)
			return nil
		},
	}
	cmd.Flags().StringVar(&recipient, "recipient", "", "Key identity to encrypt to (overrides config)")
	return cmd
}

func (a *app) unpackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unpack <in> <out>",
		Short: "Decrypt (when a private key is configured) and decompress a packed chunk",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := decryptOptions(a.cfg.Envelope)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			plain, err := envelope.DecryptAndUncompress(data, opts)
			if err != nil {
				return err
			}
			if err := writeNew(args[1], plain); err != nil {
				return err
			}
			a.logger.Info("unpacked chunk", "in", args[0], "out", args[1], "bytes", len(plain))
			return nil
		},
	}
}

// writeNew refuses to overwrite an existing file.
func writeNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func encryptOptions(cfg config.EnvelopeConfig) (envelope.EncryptOptions, error) {
	opts := envelope.EncryptOptions{Recipient: cfg.Recipient}
	if cfg.PublicKey == "" {
		return opts, nil
	}
	ring, err := envelope.LoadKeyRing(cfg.PublicKey)
	if err != nil {
		return opts, err
	}
	opts.PublicKeyRing = ring
	return opts, nil
}

func decryptOptions(cfg config.EnvelopeConfig) (envelope.DecryptOptions, error) {
	opts := envelope.DecryptOptions{}
	if cfg.Passphrase != "" {
		opts.Passphrase = []byte(cfg.Passphrase)
	}
	if cfg.PrivateKey == "" {
		return opts, nil
	}
	ring, err := envelope.LoadKeyRing(cfg.PrivateKey)
	if err != nil {
		return opts, err
	}
	opts.PrivateKeyRing = ring
	return opts, nil
}
