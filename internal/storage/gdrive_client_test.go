package storage

import (
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestFolderQuery(t *testing.T) {
	cases := []struct {
		name, parent, want string
	}{
		{"AudioSpectrograms", "", "name='AudioSpectrograms' and mimeType='application/vnd.google-apps.folder' and trashed=false"},
		{"audio", "root123", "name='audio' and mimeType='application/vnd.google-apps.folder' and trashed=false and 'root123' in parents"},
		{"it's", "", `name='it\'s' and mimeType='application/vnd.google-apps.folder' and trashed=false`},
	}
	for _, tc := range cases {
		if got := folderQuery(tc.name, tc.parent); got != tc.want {
			t.Errorf("folderQuery(%q, %q) = %q, want %q", tc.name, tc.parent, got, tc.want)
		}
	}
}

func TestIsDriveNotFound(t *testing.T) {
	if !isDriveNotFound(fmt.Errorf("wrapped: %w", &googleapi.Error{Code: 404})) {
		t.Fatal("expected 404 to be not found")
	}
	if isDriveNotFound(&googleapi.Error{Code: 500}) {
		t.Fatal("500 is not a not-found")
	}
}
