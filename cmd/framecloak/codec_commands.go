package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"framecloak/internal/api"
	"framecloak/internal/config"
	"framecloak/internal/fileutil"
)

func newEncodeCommand(ctx *commandContext) *cobra.Command {
	var (
		inputPath  string
		outputPath string
		text       string
		textFile   string
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Hide an encrypted message in a video",
		Long: `Encrypt a message to the configured public key, split it across the
first frames of the input video, and write a lossless Matroska copy carrying
a trailing metadata frame.

The message comes from --text, --text-file, or stdin when neither is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInput(inputPath)
			if err != nil {
				return err
			}
			message, err := readMessage(cmd.InOrStdin(), text, textFile)
			if err != nil {
				return err
			}
			output := strings.TrimSpace(outputPath)
			if output == "" {
				output = defaultOutputPath(input)
			} else if output, err = config.ExpandPath(output); err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}

			video, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read input video: %w", err)
			}

			return ctx.withStack(func(stack *api.Stack, _ *slog.Logger) error {
				res, err := stack.Service.Encode(cmd.Context(), api.EncodeRequest{Video: video, Text: message, Source: "cli"})
				if err != nil {
					return err
				}
				if err := fileutil.WriteFileAtomic(output, res.Video, 0o644); err != nil {
					return fmt.Errorf("write output video: %w", err)
				}

				summary := api.FromEncodeResult(res)
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{
						"output":  output,
						"summary": summary,
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Wrote %s (%s)\n", output, humanize.IBytes(uint64(summary.OutputBytes)))
				fmt.Fprintf(out, "Chunks: %d across frames %s\n", summary.Chunks, formatIndices(summary.Indices))
				fmt.Fprintf(out, "Metadata frame: %d of %d\n", summary.MetadataFrame, summary.Frames+1)
				if summary.Dropped > 0 {
					fmt.Fprintf(out, "Warning: %d chunks dropped; the message will not decrypt\n", summary.Dropped)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input video file")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output video file (default <input>_encoded.mkv)")
	cmd.Flags().StringVarP(&text, "text", "t", "", "Message to hide")
	cmd.Flags().StringVar(&textFile, "text-file", "", "Read the message from a file")
	cmd.MarkFlagsMutuallyExclusive("text", "text-file")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newDecodeCommand(ctx *commandContext) *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Recover a hidden message from a video",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInput(inputPath)
			if err != nil {
				return err
			}
			video, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read input video: %w", err)
			}

			return ctx.withStack(func(stack *api.Stack, _ *slog.Logger) error {
				resp, err := stack.Service.Decode(cmd.Context(), api.DecodeRequest{Video: video, Source: "cli"})
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if !resp.Found {
					fmt.Fprintln(out, "No hidden message found")
					return nil
				}
				fmt.Fprintln(out, resp.Message)
				if !resp.Decrypted {
					fmt.Fprintln(cmd.ErrOrStderr(), "Warning: message could not be decrypted; showing raw ciphertext")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input video file")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func resolveInput(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("input video is required")
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("resolve input path: %w", err)
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return "", fmt.Errorf("inspect input %q: %w", expanded, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("input %q is a directory", expanded)
	}
	return expanded, nil
}

func readMessage(stdin io.Reader, text, textFile string) (string, error) {
	if text != "" {
		return text, nil
	}
	if textFile != "" {
		data, err := os.ReadFile(textFile)
		if err != nil {
			return "", fmt.Errorf("read message file: %w", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read message from stdin: %w", err)
	}
	message := strings.TrimRight(string(data), "\n")
	if message == "" {
		return "", errors.New("a message is required (--text, --text-file, or stdin)")
	}
	return message, nil
}

func defaultOutputPath(input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(filepath.Dir(input), base+"_encoded.mkv")
}

func formatIndices(indices []int) string {
	switch len(indices) {
	case 0:
		return "(none)"
	case 1:
		return fmt.Sprintf("%d", indices[0])
	}
	contiguous := true
	for i := 1; i < len(indices); i++ {
		if indices[i] != indices[i-1]+1 {
			contiguous = false
			break
		}
	}
	if contiguous {
		return fmt.Sprintf("%d-%d", indices[0], indices[len(indices)-1])
	}
	parts := make([]string, len(indices))
	for i, v := range indices {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ",")
}
