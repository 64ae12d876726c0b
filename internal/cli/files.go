package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tansive/vaultconsole/internal/console/filemgmt"
	"github.com/tansive/vaultconsole/internal/vaultapi"
)

var (
	uploadProject   string
	downloadProject string
	downloadDir     string
)

// filesCmd groups the file management commands
var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Upload and download project files",
	Long: `Upload and download project files. CATEGORY is csv, yaml or python.

Uploaded files must carry the category's extension and start with the
project short name followed by an underscore. Files that fail these checks
are reported and skipped; the rest are sent in one request.`,
}

var filesUploadCmd = &cobra.Command{
	Use:   "upload CATEGORY FILE... [flags]",
	Short: "Upload files of a category to a project",
	Long: `Upload files of a category to a project.

Example:
  vaultctl files upload csv -p p1 p1_customers.csv p1_orders.csv`,
	Args: cobra.MinimumNArgs(2),
	RunE: uploadFiles,
}

var filesDownloadCmd = &cobra.Command{
	Use:   "download CATEGORY [flags]",
	Short: "Download all files of a category as a zip archive",
	Long: `Download all files of a category for a project as a zip archive. The
archive is named <category>_<project id>_<timestamp>.zip.

Example:
  vaultctl files download yaml --project-id 3 -o ./backups`,
	Args: cobra.ExactArgs(1),
	RunE: downloadFiles,
}

func newFileService() (*filemgmt.Service, error) {
	backend, err := newBackend()
	if err != nil {
		return nil, err
	}
	return filemgmt.NewService(backend), nil
}

func uploadFiles(cmd *cobra.Command, args []string) error {
	category := vaultapi.FileCategory(args[0])
	files := make([]vaultapi.File, 0, len(args)-1)
	for _, path := range args[1:] {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("unable to read %s: %w", path, err)
		}
		files = append(files, vaultapi.File{Name: filepath.Base(path), Content: content})
	}

	svc, err := newFileService()
	if err != nil {
		return err
	}
	res, err := svc.Upload(cmd.Context(), category, uploadProject, files)
	if jsonOutput && res != nil {
		out := map[string]any{"result": 1, "value": res}
		if err != nil {
			out["result"] = 0
			out["error"] = errorText(err)
		}
		printJSON(out)
		if err != nil {
			return ErrAlreadyHandled
		}
		return nil
	}
	if res != nil {
		for _, r := range res.Rejected {
			warnLabel.Fprintf(os.Stderr, "[SKIPPED] ")
			fmt.Fprintf(os.Stderr, "%s: %s\n", r.File, r.Reason)
		}
	}
	if err != nil {
		return err
	}
	okLabel.Printf("✓ Uploaded %d file(s)\n", len(res.Uploaded))
	if res.Result != nil && res.Result.Message != "" {
		fmt.Println(res.Result.Message)
	}
	return nil
}

func downloadFiles(cmd *cobra.Command, args []string) error {
	category := vaultapi.FileCategory(args[0])
	svc, err := newFileService()
	if err != nil {
		return err
	}
	name, dl, err := svc.Download(cmd.Context(), category, downloadProject)
	if err != nil {
		return err
	}
	defer dl.Body.Close()

	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return fmt.Errorf("unable to create %s: %w", downloadDir, err)
	}
	path := filepath.Join(downloadDir, name)
	n, err := writeFile(path, dl.Body)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]any{"result": 1, "file": path, "bytes": n})
		return nil
	}
	okLabel.Printf("✓ Downloaded %s (%d bytes)\n", path, n)
	return nil
}

// writeFile copies r into a new file at path, removing it again on failure.
func writeFile(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("unable to create %s: %w", path, err)
	}
	n, err := io.Copy(f, r)
	err = errors.Join(err, f.Close())
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("unable to write %s: %w", path, err)
	}
	return n, nil
}

func init() {
	filesUploadCmd.Flags().StringVarP(&uploadProject, "project", "p", "", "Project short name")
	filesUploadCmd.MarkFlagRequired("project")
	filesDownloadCmd.Flags().StringVar(&downloadProject, "project-id", "", "Project id")
	filesDownloadCmd.MarkFlagRequired("project-id")
	filesDownloadCmd.Flags().StringVarP(&downloadDir, "output-dir", "o", ".", "Directory to save the archive in")

	filesCmd.AddCommand(filesUploadCmd, filesDownloadCmd)
	rootCmd.AddCommand(filesCmd)
}
