// Package assets places specimen photos and audio notes where the static site
// serves them and works out the URL the event JSON should reference.
package assets

import (
	"bytes"
	"fmt"
	"hash"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gabriel-vasile/mimetype"
	"github.com/moby/sys/atomicwriter"

	"specimenpro/internal/status"
)

type Kind int

const (
	// KindAuto detects the kind from the file content, then its extension.
	KindAuto Kind = iota
	KindImage
	KindAudio
)

// AssetsDir is the path segment shared by destination paths and URLs.
const AssetsDir = "assets"

var (
	imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".webp": true, ".heic": true}
	audioExtensions = map[string]bool{".mp3": true, ".wav": true, ".m4a": true, ".aac": true, ".ogg": true}
)

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return KindAuto, nil
	case "image", "images", "photo":
		return KindImage, nil
	case "audio", "sound":
		return KindAudio, nil
	}
	return KindAuto, fmt.Errorf("unknown asset kind %q", s)
}

// Segment is the directory name for the kind: "images" or "audio".
func (k Kind) Segment() string {
	switch k {
	case KindImage:
		return "images"
	case KindAudio:
		return "audio"
	}
	return ""
}

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindAudio:
		return "audio"
	}
	return "auto"
}

// Reference is where an asset lives on disk and how the event JSON refers
// to it.
type Reference struct {
	Kind            Kind
	DestinationPath string
	PublishedURL    string
}

// Resolver maps local files into <root>/assets/<images|audio>/ and
// <baseURL>/assets/<images|audio>/. Callers are expected to use one Resolver
// from a single goroutine; two copies racing for the same name are not
// coordinated.
type Resolver struct {
	root    string
	baseURL string
}

func NewResolver(root, baseURL string) *Resolver {
	return &Resolver{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

// Resolve computes the reference for localPath. The result depends only on
// the kind and the file's base name, never on the source directory. With
// KindAuto the file must exist so its type can be detected.
func (r *Resolver) Resolve(localPath string, kind Kind) (Reference, error) {
	name := filepath.Base(localPath)
	if name == "." || name == string(filepath.Separator) {
		return Reference{}, fmt.Errorf("resolve %q: not a file path", localPath)
	}
	if kind == KindAuto {
		detected, err := DetectKind(localPath)
		if err != nil {
			return Reference{}, err
		}
		kind = detected
	}

	publishedURL, err := url.JoinPath(r.baseURL, AssetsDir, kind.Segment(), name)
	if err != nil {
		return Reference{}, fmt.Errorf("resolve %q: %w", localPath, err)
	}
	return Reference{
		Kind:            kind,
		DestinationPath: filepath.Join(r.root, AssetsDir, kind.Segment(), name),
		PublishedURL:    publishedURL,
	}, nil
}

// DetectKind sniffs the file content and falls back to the extension.
func DetectKind(path string) (Kind, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return KindAuto, fmt.Errorf("detect asset kind: %w", err)
	}
	for m := mtype; m != nil; m = m.Parent() {
		switch {
		case strings.HasPrefix(m.String(), "image/"):
			return KindImage, nil
		case strings.HasPrefix(m.String(), "audio/"):
			return KindAudio, nil
		}
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExtensions[ext]:
		return KindImage, nil
	case audioExtensions[ext]:
		return KindAudio, nil
	}
	return KindAuto, fmt.Errorf("detect asset kind: %s is %s, neither image nor audio", path, mtype.String())
}

// Copy places localPath at its destination. If a different file already sits
// there and overwrite is false, it returns a *status.CollisionError and
// touches nothing. The new file appears atomically under its final name and
// keeps the source modification time.
func (r *Resolver) Copy(localPath string, kind Kind, overwrite bool) (Reference, error) {
	ref, err := r.Resolve(localPath, kind)
	if err != nil {
		return Reference{}, err
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return ref, fmt.Errorf("copy asset: %w", err)
	}
	if !info.Mode().IsRegular() {
		return ref, fmt.Errorf("copy asset: %s is not a regular file", localPath)
	}
	// read fully first so a failing read can never publish a partial file
	data, err := os.ReadFile(localPath)
	if err != nil {
		return ref, fmt.Errorf("copy asset: %w", err)
	}

	same, err := sameContent(ref.DestinationPath, data)
	switch {
	case err == nil && same:
		return ref, nil
	case err == nil && !overwrite:
		return ref, &status.CollisionError{Source: localPath, Destination: ref.DestinationPath}
	case err != nil && !os.IsNotExist(err):
		return ref, fmt.Errorf("copy asset: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(ref.DestinationPath), 0o755); err != nil {
		return ref, fmt.Errorf("copy asset: %w", err)
	}
	if err := atomicwriter.WriteFile(ref.DestinationPath, data, info.Mode().Perm()); err != nil {
		return ref, fmt.Errorf("copy asset: %w", err)
	}
	if err := os.Chtimes(ref.DestinationPath, info.ModTime(), info.ModTime()); err != nil {
		return ref, fmt.Errorf("copy asset: keep modification time: %w", err)
	}
	return ref, nil
}

var newDigest = func() hash.Hash64 { return xxhash.New() }

// sameContent reports whether the file at path holds exactly data. Size and
// digest rule out most differences without loading the file; a digest match
// is confirmed byte for byte.
func sameContent(path string, data []byte) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("%s exists and is not a regular file", path)
	}
	if info.Size() != int64(len(data)) {
		return false, nil
	}

	d := newDigest()
	if _, err := io.Copy(d, f); err != nil {
		return false, err
	}
	want := newDigest()
	want.Write(data)
	if d.Sum64() != want.Sum64() {
		return false, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return false, err
	}
	existing, err := io.ReadAll(f)
	if err != nil {
		return false, err
	}
	return bytes.Equal(existing, data), nil
}
