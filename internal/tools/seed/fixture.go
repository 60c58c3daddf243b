package seed

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "github.com/louisbranch/photos/internal/platform/errors"
	"github.com/louisbranch/photos/internal/services/photos/storage"
)

// DefaultFixturePath names the embedded photo fixture.
const DefaultFixturePath = "fixtures/photos.json"

//go:embed fixtures/*.json
var fixtureFS embed.FS

// Fixture is an ordered list of photos to insert.
type Fixture struct {
	Name   string             `json:"name"`
	Photos []storage.NewPhoto `json:"photos"`
}

// DefaultFixture returns the embedded seven-photo fixture.
func DefaultFixture() (Fixture, error) {
	return LoadFixture(fixtureFS, DefaultFixturePath)
}

// LoadFixtureFile reads a fixture from disk.
func LoadFixtureFile(path string) (Fixture, error) {
	return LoadFixture(os.DirFS(filepath.Dir(path)), filepath.Base(path))
}

// LoadFixture decodes a JSON fixture from fsys. Unknown fields and empty
// photo lists are rejected.
func LoadFixture(fsys fs.FS, path string) (Fixture, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return Fixture{}, apperrors.Wrap(apperrors.CodeFixtureInvalid, fmt.Sprintf("read fixture %s", path), err)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	var fixture Fixture
	if err := decoder.Decode(&fixture); err != nil {
		return Fixture{}, apperrors.Wrap(apperrors.CodeFixtureInvalid, fmt.Sprintf("decode fixture %s", path), err)
	}
	if len(fixture.Photos) == 0 {
		return Fixture{}, apperrors.New(apperrors.CodeFixtureInvalid, fmt.Sprintf("fixture %s has no photos", path))
	}
	if fixture.Name == "" {
		fixture.Name = filepath.Base(path)
	}
	return fixture, nil
}
