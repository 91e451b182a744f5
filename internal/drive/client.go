package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"driveingest/internal/services"
)

// GoogleDocMimeType identifies native Google Docs, which must be exported.
const GoogleDocMimeType = "application/vnd.google-apps.document"

// ExportMimeType is the format Google Docs are exported as.
const ExportMimeType = "text/html"

const listFields googleapi.Field = "nextPageToken, files(id, name, mimeType, size, createdTime)"

// RemoteFile is a file listed in a Drive folder.
type RemoteFile struct {
	ID          string
	Name        string
	MimeType    string
	Size        int64
	CreatedTime time.Time
}

// Client is the subset of the Drive API used by the downloader.
type Client interface {
	// List returns the non-trashed files directly inside folderID ordered by
	// creation time, oldest first.
	List(ctx context.Context, folderID string, pageSize int) ([]RemoteFile, error)
	// Download streams the binary content of a file.
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)
	// Export streams a native Google document converted to mimeType.
	Export(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error)
	// Delete permanently removes a file.
	Delete(ctx context.Context, fileID string) error
}

type googleClient struct {
	svc *drive.Service
}

// NewClient wraps an authorized HTTP client in a Drive v3 service.
func NewClient(ctx context.Context, httpClient *http.Client) (Client, error) {
	svc, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "drive", "create service", "Drive API client could not be built", err)
	}
	return &googleClient{svc: svc}, nil
}

// FolderQuery is the Drive search expression for the children of folderID.
func FolderQuery(folderID string) string {
	return fmt.Sprintf("'%s' in parents and trashed=false", folderID)
}

func (c *googleClient) List(ctx context.Context, folderID string, pageSize int) ([]RemoteFile, error) {
	var files []RemoteFile
	pageToken := ""
	for {
		call := c.svc.Files.List().
			Q(FolderQuery(folderID)).
			OrderBy("createdTime").
			PageSize(int64(pageSize)).
			Fields(listFields).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list folder %s: %w", folderID, err)
		}
		for _, f := range page.Files {
			files = append(files, toRemoteFile(f))
		}
		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *googleClient) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileID, err)
	}
	return resp.Body, nil
}

func (c *googleClient) Export(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error) {
	resp, err := c.svc.Files.Export(fileID, mimeType).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("export %s as %s: %w", fileID, mimeType, err)
	}
	return resp.Body, nil
}

func (c *googleClient) Delete(ctx context.Context, fileID string) error {
	if err := c.svc.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete %s: %w", fileID, err)
	}
	return nil
}

func toRemoteFile(f *drive.File) RemoteFile {
	rf := RemoteFile{ID: f.Id, Name: f.Name, MimeType: f.MimeType, Size: f.Size}
	if created, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
		rf.CreatedTime = created
	}
	return rf
}
