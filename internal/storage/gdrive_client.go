package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/types"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveClient talks to Google Drive. Buckets are folders under a root folder.
type DriveClient struct {
	service  *drive.Service
	folderID string
}

// DriveStore is a bucket backed by a Drive folder; keys are file names.
type DriveStore struct {
	service  *drive.Service
	folderID string
	name     string
}

// NewDriveClient creates a new Google Drive client
func NewDriveClient(ctx context.Context, credentialsFile, tokenFile, folderName string) (*DriveClient, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	client, err := getClient(ctx, config, tokenFile)
	if err != nil {
		return nil, err
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %w", err)
	}

	dc := &DriveClient{service: srv}
	dc.folderID, err = findOrCreateFolder(ctx, srv, folderName, "")
	if err != nil {
		return nil, fmt.Errorf("unable to prepare root folder: %w", err)
	}
	return dc, nil
}

// Bucket finds or creates the folder for a logical bucket.
func (dc *DriveClient) Bucket(ctx context.Context, name string) (*DriveStore, error) {
	id, err := findOrCreateFolder(ctx, dc.service, name, dc.folderID)
	if err != nil {
		return nil, fmt.Errorf("unable to prepare bucket %s: %w", name, err)
	}
	return &DriveStore{service: dc.service, folderID: id, name: name}, nil
}

// getClient retrieves a cached token, or runs the interactive flow and caches the result
func getClient(ctx context.Context, config *oauth2.Config, tokenFile string) (*http.Client, error) {
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		tok, err = getTokenFromWeb(ctx, config)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenFile, tok); err != nil {
			return nil, err
		}
	}
	return config.Client(ctx, tok), nil
}

func getTokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser:\n%v\n", authURL)
	fmt.Print("Enter authorization code: ")

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

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

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// Put creates the file, or replaces its content when key already exists so
// that retried writes converge on one file.
func (ds *DriveStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	existing, err := ds.lookup(ctx, key)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return err
	}

	media := googleapi.ContentType(contentType)
	if existing != "" {
		_, err = ds.service.Files.Update(existing, &drive.File{MimeType: contentType}).
			Media(bytes.NewReader(data), media).Context(ctx).Do()
	} else {
		file := &drive.File{
			Name:     key,
			MimeType: contentType,
			Parents:  []string{ds.folderID},
		}
		_, err = ds.service.Files.Create(file).Media(bytes.NewReader(data), media).Context(ctx).Do()
	}
	if err != nil {
		return fmt.Errorf("failed to upload %s to bucket %s: %w", key, ds.name, err)
	}
	return nil
}

// Get downloads the file named key.
func (ds *DriveStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	id, err := ds.lookup(ctx, key)
	if err != nil {
		return nil, err
	}

	resp, err := ds.service.Files.Get(id).Context(ctx).Download()
	if err != nil {
		if isDriveNotFound(err) {
			return nil, fmt.Errorf("blob %s: %w", key, types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// Check confirms the bucket folder is still reachable.
func (ds *DriveStore) Check(ctx context.Context) error {
	_, err := ds.service.Files.Get(ds.folderID).Fields("id").Context(ctx).Do()
	return err
}

func (ds *DriveStore) lookup(ctx context.Context, key string) (string, error) {
	query := fmt.Sprintf("name='%s' and '%s' in parents and trashed=false", escapeQuery(key), ds.folderID)
	r, err := ds.service.Files.List().Q(query).Spaces("drive").Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to search bucket %s: %w", ds.name, err)
	}
	if len(r.Files) == 0 {
		return "", fmt.Errorf("blob %s: %w", key, types.ErrNotFound)
	}
	return r.Files[0].Id, nil
}

// findOrCreateFolder finds or creates a folder with the given parent; an
// empty parent searches the whole drive.
func findOrCreateFolder(ctx context.Context, srv *drive.Service, name, parentID string) (string, error) {
	query := folderQuery(name, parentID)

	r, err := srv.Files.List().Q(query).Spaces("drive").Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(r.Files) > 0 {
		return r.Files[0].Id, nil
	}

	folder := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
	}
	if parentID != "" {
		folder.Parents = []string{parentID}
	}

	file, err := srv.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return file.Id, nil
}

func folderQuery(name, parentID string) string {
	query := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQuery(name), folderMimeType)
	if parentID != "" {
		query += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}
	return query
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

func isDriveNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
