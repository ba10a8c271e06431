package commands

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

// NewDownloadCmd creates the download command
func NewDownloadCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <file-id>",
		Short: "Download a purchased product file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd.Context(), args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (defaults to the server's filename)")

	return cmd
}

// runDownload streams the file directly rather than going through the JSON
// pipeline. The token travels as a query parameter, the same way media
// elements that cannot set headers fetch these files.
func runDownload(ctx context.Context, fileID, output string, opts ...Option) error {
	o, err := resolve(opts...)
	if err != nil {
		return err
	}

	token, err := o.tokenStore.Load()
	if err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}

	serveURL := o.apiURL + "/api/files/" + fileID + "/serve"
	if token != "" {
		serveURL += "?token=" + url.QueryEscape(token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serveURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return fmt.Errorf("not authenticated. Run 'tradekit login' first")
	case http.StatusForbidden:
		return fmt.Errorf("you have not purchased this file")
	case http.StatusNotFound:
		return fmt.Errorf("file not found")
	default:
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	if output == "" {
		output = filenameFromResponse(resp)
	}

	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	fmt.Printf("✓ Downloaded %s (%d bytes)\n", output, written)
	return nil
}

func filenameFromResponse(resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	return "download.bin"
}
