package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/absfs/smbupload"
	"github.com/absfs/smbupload/httpapi"
	"github.com/absfs/smbupload/internal/config"
)

var (
	writeFolder     string
	writeFileName   string
	writeContent    string
	writeInput      string
	writeDatePrefix bool
	writeJSON       bool
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Write one file to the share and exit",
	Long: `Perform a single upload using the configured SMB settings.

The payload is --content, the contents of --input, or the trigger content
from the configuration, in that order of preference. Use --input - to read
from standard input.

Examples:
  # Write the configured payload to the configured target
  smbupload write

  # Write a local file under a dated folder
  smbupload write --input report.txt --folder reports --file report.txt --date-prefix

  # Pipe content in
  echo hello | smbupload write --input - --file hello.txt`,
	RunE: runWrite,
}

func init() {
	writeCmd.Flags().StringVar(&writeFolder, "folder", "", "Folder path on the share (default: smb.folder_path)")
	writeCmd.Flags().StringVar(&writeFileName, "file", "", "File name (default: smb.file_name)")
	writeCmd.Flags().StringVar(&writeContent, "content", "", "Content to write")
	writeCmd.Flags().StringVarP(&writeInput, "input", "i", "", "Read content from a file, or - for stdin")
	writeCmd.Flags().BoolVar(&writeDatePrefix, "date-prefix", false, "Prefix the folder with today's date (trigger.date_layout)")
	writeCmd.Flags().BoolVar(&writeJSON, "json", false, "Print the result as JSON")
}

func runWrite(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	content, err := writePayload(cmd, cfg)
	if err != nil {
		return err
	}

	folder := writeFolder
	if folder == "" {
		folder = cfg.SMB.FolderPath
	}
	if writeDatePrefix {
		folder = httpapi.DatedFolder(cfg.Trigger.DateLayout, folder)(time.Now())
	}

	writer, err := smbupload.New(cfg.SMBConfig())
	if err != nil {
		return fmt.Errorf("failed to create SMB writer: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := writer.WriteFile(ctx, smbupload.WriteRequest{
		Content:    content,
		FileName:   writeFileName,
		FolderPath: folder,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if writeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintf(out, "Wrote %d bytes to %s:%s (%d directories created, %s)\n",
		res.BytesWritten, res.Share, res.Path, res.CreatedDirs, res.Duration.Round(time.Millisecond))
	return nil
}

// writePayload resolves the bytes to upload from the flags and config.
func writePayload(cmd *cobra.Command, cfg *config.Config) ([]byte, error) {
	switch {
	case writeContent != "" && writeInput != "":
		return nil, fmt.Errorf("--content and --input are mutually exclusive")
	case writeContent != "":
		return []byte(writeContent), nil
	case writeInput == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	case writeInput != "":
		data, err := os.ReadFile(writeInput)
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		return data, nil
	default:
		return []byte(cfg.Trigger.Content), nil
	}
}
