package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/codebuildervaibhav/voice-to-text/internal/types"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveClient mirrors finished transcripts into a Google Drive folder
type DriveClient struct {
	service    *drive.Service
	folderName string
	folderID   string
}

// NewDriveClient authenticates with the stored OAuth token and makes sure
// the root folder exists. A missing token file is an error: the interactive
// consent flow is not run from the server.
func NewDriveClient(ctx context.Context, credentialsFile, tokenFile, folderName string) (*DriveClient, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read token file %s (authorize once with %s): %w",
			tokenFile, config.AuthCodeURL("state-token", oauth2.AccessTypeOffline), err)
	}

	return newDriveClientWithHTTP(ctx, config.Client(ctx, tok), folderName)
}

func newDriveClientWithHTTP(ctx context.Context, client *http.Client, folderName string, opts ...option.ClientOption) (*DriveClient, error) {
	opts = append(opts, option.WithHTTPClient(client))
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %w", err)
	}

	dc := &DriveClient{
		service:    srv,
		folderName: folderName,
	}
	if err := dc.ensureFolder(ctx); err != nil {
		return nil, err
	}
	return dc, nil
}

// tokenFromFile retrieves a token from a local file
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// ensureFolder resolves the root folder once, at startup
func (dc *DriveClient) ensureFolder(ctx context.Context) error {
	id, err := dc.findOrCreateFolder(ctx, dc.folderName, "")
	if err != nil {
		return err
	}
	dc.folderID = id
	return nil
}

// Upload stores the transcript text and its metadata under
// Transcripts/YYYY/MM/DD and returns a link to the text file
func (dc *DriveClient) Upload(ctx context.Context, requestName string, result *types.TranscriptionResult) (string, error) {
	now := time.Now()
	folderID, err := dc.ensureDateFolder(ctx, now)
	if err != nil {
		return "", err
	}

	baseFilename := fmt.Sprintf("%s_%s", now.Format("20060102_150405"), sanitizeFilename(requestName))

	txtFile := &drive.File{
		Name:     baseFilename + ".txt",
		Parents:  []string{folderID},
		MimeType: "text/plain",
	}
	createdTxt, err := dc.service.Files.Create(txtFile).Media(strings.NewReader(result.Text)).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload transcript: %w", err)
	}

	metadata := map[string]interface{}{
		"job_id":            result.JobID,
		"request_name":      requestName,
		"transcription_job": result.TranscriptionJob,
		"media_uri":         result.MediaURI,
		"duration_seconds":  result.Duration,
		"word_count":        result.WordCount,
		"language":          result.Language,
		"created_at":        result.ProcessedAt,
	}
	metaJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	metaFile := &drive.File{
		Name:     baseFilename + "_meta.json",
		Parents:  []string{folderID},
		MimeType: "application/json",
	}
	if _, err := dc.service.Files.Create(metaFile).Media(bytes.NewReader(metaJSON)).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to upload metadata: %w", err)
	}

	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", createdTxt.Id), nil
}

// ensureDateFolder creates nested year/month/day folders
func (dc *DriveClient) ensureDateFolder(ctx context.Context, t time.Time) (string, error) {
	parent := dc.folderID
	for _, name := range []string{
		fmt.Sprintf("%d", t.Year()),
		fmt.Sprintf("%02d", t.Month()),
		fmt.Sprintf("%02d", t.Day()),
	} {
		id, err := dc.findOrCreateFolder(ctx, name, parent)
		if err != nil {
			return "", err
		}
		parent = id
	}
	return parent, nil
}

// findOrCreateFolder returns the folder called name under parentID, or at
// the top level when parentID is empty, creating it if needed
func (dc *DriveClient) findOrCreateFolder(ctx context.Context, name, parentID string) (string, error) {
	clauses := []string{
		fmt.Sprintf("name='%s'", escapeQuery(name)),
		"mimeType='" + folderMimeType + "'",
		"trashed=false",
	}
	folder := &drive.File{Name: name, MimeType: folderMimeType}
	if parentID != "" {
		clauses = append(clauses, fmt.Sprintf("'%s' in parents", parentID))
		folder.Parents = []string{parentID}
	}

	r, err := dc.service.Files.List().Q(strings.Join(clauses, " and ")).
		Spaces("drive").Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to search for folder %s: %w", name, err)
	}
	if len(r.Files) > 0 {
		return r.Files[0].Id, nil
	}

	file, err := dc.service.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create folder %s: %w", name, err)
	}
	return file.Id, nil
}

// escapeQuery quotes a value for a Drive query string literal. Backslashes
// go first so the ones added for quotes are not doubled.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
