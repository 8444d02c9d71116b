package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"postenrich/internal/adapter/fs"
	"postenrich/internal/domain"
	"postenrich/internal/port"
)

// JSONCorpus reads raw posts and writes the processed corpus as JSON arrays.
type JSONCorpus struct {
	files port.FileResolver
}

func NewJSONCorpus(files port.FileResolver) *JSONCorpus {
	if files == nil {
		files = fs.NewWalker(nil, nil)
	}
	return &JSONCorpus{files: files}
}

// ReadPosts reads every raw file that path resolves to and concatenates the
// posts in file order. Any failure is a *domain.DecodeError.
func (c *JSONCorpus) ReadPosts(path string) ([]domain.RawPost, error) {
	files, err := c.files.Resolve(path)
	if err != nil {
		return nil, &domain.DecodeError{Path: path, Err: err}
	}

	var posts []domain.RawPost
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, &domain.DecodeError{Path: file, Err: err}
		}
		var filePosts []domain.RawPost
		if err := json.Unmarshal(data, &filePosts); err != nil {
			return nil, &domain.DecodeError{Path: file, Err: err}
		}
		if filePosts == nil && !bytes.Equal(bytes.TrimSpace(data), []byte("[]")) {
			return nil, &domain.DecodeError{Path: file, Err: fmt.Errorf("expected a JSON array of posts")}
		}
		posts = append(posts, filePosts...)
	}
	return posts, nil
}

// WriteCorpus writes posts as an indented JSON array. The file is replaced
// atomically so a failed run never leaves a partial corpus behind.
func (c *JSONCorpus) WriteCorpus(path string, posts []domain.EnrichedPost) error {
	if posts == nil {
		posts = []domain.EnrichedPost{}
	}
	data, err := json.MarshalIndent(posts, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode processed posts: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".processed-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write processed posts: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write processed posts: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move processed posts into place: %w", err)
	}
	return nil
}

// ReadCorpus reads a processed corpus written by WriteCorpus.
func ReadCorpus(path string) ([]domain.EnrichedPost, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var posts []domain.EnrichedPost
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, err
	}
	if posts == nil && !bytes.Equal(bytes.TrimSpace(data), []byte("[]")) {
		return nil, fmt.Errorf("expected a JSON array of posts")
	}
	return posts, nil
}
