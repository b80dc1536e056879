package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"framecloak/internal/api"
)

func newKeysCommand(ctx *commandContext) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the message key pair",
	}

	keysCmd.AddCommand(newKeysInitCommand(ctx))
	keysCmd.AddCommand(newKeysRotateCommand(ctx))
	keysCmd.AddCommand(newKeysShowCommand(ctx))

	return keysCmd
}

func newKeysInitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate a key pair if none exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.keyStore()
			if err != nil {
				return err
			}
			kp, created, err := store.Ensure()
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"created":     created,
					"keyDir":      store.Dir(),
					"publicKey":   kp.PublicHex(),
					"fingerprint": kp.Fingerprint(),
				})
			}
			out := cmd.OutOrStdout()
			if created {
				fmt.Fprintf(out, "Generated key pair in %s\n", store.Dir())
			} else {
				fmt.Fprintf(out, "Key pair already present in %s\n", store.Dir())
			}
			fmt.Fprintf(out, "Fingerprint: %s\n", kp.Fingerprint())
			return nil
		},
	}
}

func newKeysRotateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate",
		Short: "Archive the current key pair and generate a new one",
		Long: `Archive the current key pair and generate a new one.

Videos encoded before rotation can only be decrypted with the archived
private key. Archived pairs are kept under <key_dir>/archive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.keyStore()
			if err != nil {
				return err
			}
			kp, archived, err := store.Rotate()
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"archivedTo":  archived,
					"publicKey":   kp.PublicHex(),
					"fingerprint": kp.Fingerprint(),
				})
			}
			out := cmd.OutOrStdout()
			if archived != "" {
				fmt.Fprintf(out, "Archived previous key pair to %s\n", archived)
			}
			fmt.Fprintf(out, "New fingerprint: %s\n", kp.Fingerprint())
			return nil
		},
	}
}

func newKeysShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.keyStore()
			if err != nil {
				return err
			}
			kp, err := store.Load()
			if err != nil {
				return err
			}
			archives, err := store.ListArchives()
			if err != nil {
				return err
			}
			resp := api.PublicKeyResponse{PublicKey: kp.PublicHex(), Fingerprint: kp.Fingerprint()}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"publicKey":   resp.PublicKey,
					"fingerprint": resp.Fingerprint,
					"archives":    len(archives),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Public key:  %s\n", resp.PublicKey)
			fmt.Fprintf(out, "Fingerprint: %s\n", resp.Fingerprint)
			fmt.Fprintf(out, "Archived:    %d\n", len(archives))
			return nil
		},
	}
}
