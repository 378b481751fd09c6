package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/go-github/v81/github"
)

var (
	// ErrNotPDF is returned when the requested path is not a PDF file.
	ErrNotPDF = errors.New("not a PDF file")

	// ErrTooLarge is returned when a file exceeds the fetcher's size limit.
	ErrTooLarge = errors.New("file too large")
)

// FetchedFile is a file downloaded from a GitHub repository.
type FetchedFile struct {
	Path    string // Path within the repository
	Name    string // Base name
	SHA     string // Git blob SHA
	URL     string // HTML URL on github.com
	Content []byte
}

// Fetcher downloads PDF files from GitHub repositories.
type Fetcher struct {
	client  *Client
	maxSize int64
}

// NewFetcher creates a fetcher that rejects files larger than maxSize bytes.
// maxSize <= 0 disables the limit.
func NewFetcher(client *Client, maxSize int64) *Fetcher {
	return &Fetcher{client: client, maxSize: maxSize}
}

// Source identifies a file or directory in a repository. An empty Ref means
// the default branch.
type Source struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Path  string `json:"path"`
	Ref   string `json:"ref,omitempty"`
}

func (s Source) options() *github.RepositoryContentGetOptions {
	if s.Ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: s.Ref}
}

// ListPDFs returns the repository paths of all PDF files under src.Path.
// A path naming a single PDF yields just that path.
func (f *Fetcher) ListPDFs(ctx context.Context, src Source) ([]string, error) {
	fileContent, dirContents, _, err := f.client.Repositories.GetContents(
		ctx, src.Owner, src.Repo, src.Path, src.options(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", src.Path, err)
	}

	if fileContent != nil {
		if !isPDF(fileContent.GetName()) {
			return nil, fmt.Errorf("%w: %s", ErrNotPDF, src.Path)
		}
		return []string{fileContent.GetPath()}, nil
	}

	var pdfs []string
	for _, item := range dirContents {
		switch item.GetType() {
		case "file":
			if isPDF(item.GetName()) {
				pdfs = append(pdfs, item.GetPath())
			}
		case "dir":
			sub := src
			sub.Path = item.GetPath()
			subPDFs, err := f.ListPDFs(ctx, sub)
			if err != nil {
				return nil, err
			}
			pdfs = append(pdfs, subPDFs...)
		}
	}

	return pdfs, nil
}

// FetchFile downloads a single PDF.
func (f *Fetcher) FetchFile(ctx context.Context, src Source) (*FetchedFile, error) {
	if !isPDF(src.Path) {
		return nil, fmt.Errorf("%w: %s", ErrNotPDF, src.Path)
	}

	fileContent, _, _, err := f.client.Repositories.GetContents(
		ctx, src.Owner, src.Repo, src.Path, src.options(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", src.Path, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("%s is a directory", src.Path)
	}
	if f.maxSize > 0 && int64(fileContent.GetSize()) > f.maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, src.Path, fileContent.GetSize())
	}

	var content []byte
	switch fileContent.GetEncoding() {
	case "base64":
		if fileContent.Content == nil {
			return nil, fmt.Errorf("no file content returned for %s", src.Path)
		}
		content, err = base64.StdEncoding.DecodeString(*fileContent.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to decode content of %s: %w", src.Path, err)
		}
	default:
		// Files over 1 MB come back without inline content
		content, err = f.download(ctx, src)
		if err != nil {
			return nil, err
		}
	}

	return &FetchedFile{
		Path:    fileContent.GetPath(),
		Name:    fileContent.GetName(),
		SHA:     fileContent.GetSHA(),
		URL:     fileContent.GetHTMLURL(),
		Content: content,
	}, nil
}

func (f *Fetcher) download(ctx context.Context, src Source) ([]byte, error) {
	rc, _, err := f.client.Repositories.DownloadContents(ctx, src.Owner, src.Repo, src.Path, src.options())
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", src.Path, err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if f.maxSize > 0 {
		r = io.LimitReader(rc, f.maxSize+1)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", src.Path, err)
	}
	if f.maxSize > 0 && int64(buf.Len()) > f.maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, src.Path, f.maxSize)
	}
	return buf.Bytes(), nil
}

func isPDF(name string) bool {
	return strings.EqualFold(path.Ext(name), ".pdf")
}
