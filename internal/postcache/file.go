package postcache

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/multierr"

	"github.com/SergeyParamoshkin/blog/internal/model"
)

// DefaultPath is relative to the working directory.
const DefaultPath = "posts-cache.json"

var ErrInvalidSnapshot = errors.New("invalid posts cache")

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://github.com/SergeyParamoshkin/blog/posts-cache.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	postSchema *jsonschema.Schema
	schemaErr  error
)

func compileSchemas() {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if schemaErr = compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); schemaErr != nil {
		return
	}
	if schema, schemaErr = compiler.Compile(schemaURL); schemaErr != nil {
		return
	}
	postSchema, schemaErr = compiler.Compile(schemaURL + "#/$defs/post")
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(compileSchemas)

	return schema, schemaErr
}

func compiledPostSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(compileSchemas)

	return postSchema, schemaErr
}

// Encode returns the pretty-printed JSON array for posts.
func Encode(posts []model.Post) ([]byte, error) {
	if posts == nil {
		posts = []model.Post{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(posts); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Write replaces the snapshot at path. The data goes to a temporary file
// in the same directory first, so readers never see a partial file.
func Write(path string, posts []model.Post) (err error) {
	data, err := Encode(posts)
	if err != nil {
		return fmt.Errorf("encoding posts: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".posts-cache-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	_, err = tmp.Write(data)
	err = multierr.Append(err, tmp.Chmod(0o644))
	err = multierr.Append(err, tmp.Close())
	if err != nil {
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	return nil
}

// Decode validates data against the snapshot schema and decodes it.
func Decode(data []byte) ([]model.Post, error) {
	s, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling cache schema: %w", err)
	}

	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if err := s.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	var posts []model.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	return posts, nil
}

// EntryError describes one snapshot entry that failed validation.
type EntryError struct {
	Index int
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %d: %v", e.Index, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

// DecodeEntries is Decode for readers that keep serving when part of a
// snapshot is bad: entries failing the post schema are returned as
// *EntryError values instead of failing the whole snapshot. Data that is
// not a JSON array is still an error.
func DecodeEntries(data []byte) ([]model.Post, []error, error) {
	s, err := compiledPostSchema()
	if err != nil {
		return nil, nil, fmt.Errorf("compiling cache schema: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	posts := make([]model.Post, 0, len(raw))
	var bad []error
	for i, entry := range raw {
		var doc interface{}
		dec := json.NewDecoder(bytes.NewReader(entry))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			bad = append(bad, &EntryError{Index: i, Err: err})
			continue
		}
		if err := s.Validate(doc); err != nil {
			bad = append(bad, &EntryError{Index: i, Err: err})
			continue
		}

		var p model.Post
		if err := json.Unmarshal(entry, &p); err != nil {
			bad = append(bad, &EntryError{Index: i, Err: err})
			continue
		}
		posts = append(posts, p)
	}

	return posts, bad, nil
}

// LoadEntries reads path with DecodeEntries. A missing file is empty.
func LoadEntries(path string) ([]model.Post, []error, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []model.Post{}, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	posts, bad, err := DecodeEntries(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	return posts, bad, nil
}

// Read loads the snapshot at path.
func Read(path string) ([]model.Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	posts, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return posts, nil
}

// Load is Read with a missing file treated as an empty snapshot.
func Load(path string) ([]model.Post, error) {
	posts, err := Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []model.Post{}, nil
	}

	return posts, err
}
