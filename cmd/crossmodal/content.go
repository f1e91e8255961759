package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/crossmodal/core"
	"github.com/spf13/afero"
)

var extensionModality = map[string]core.Modality{
	".txt":  core.ModalityText,
	".md":   core.ModalityText,
	".png":  core.ModalityImage,
	".jpg":  core.ModalityImage,
	".jpeg": core.ModalityImage,
	".gif":  core.ModalityImage,
	".webp": core.ModalityImage,
	".bmp":  core.ModalityImage,
	".wav":  core.ModalityAudio,
	".mp3":  core.ModalityAudio,
	".flac": core.ModalityAudio,
	".ogg":  core.ModalityAudio,
	".m4a":  core.ModalityAudio,
}

// modalityOf picks a modality from a file extension.
func modalityOf(path string) (core.Modality, error) {
	m, ok := extensionModality[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return 0, fmt.Errorf("%w: %s", core.ErrUnsupportedModality, path)
	}
	return m, nil
}

// readContent loads a file as the content variant matching its extension.
func readContent(fs afero.Fs, path string) (core.Content, error) {
	modality, err := modalityOf(path)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	return core.NewFileContent(modality, data, filepath.Base(path))
}

// collectContents walks dir and loads every file with a supported extension.
// Unsupported files are skipped.
func collectContents(fs afero.Fs, dir string) ([]core.Content, error) {
	var contents []core.Content
	err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if _, err := modalityOf(path); err != nil {
			return nil
		}
		content, err := readContent(fs, path)
		if err != nil {
			return err
		}
		contents = append(contents, content)
		return nil
	})
	return contents, err
}

// readLines returns each non-empty, trimmed line of a text file as text content.
func readLines(fs afero.Fs, path string) ([]core.Content, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	var contents []core.Content
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		contents = append(contents, core.TextContent{Text: line})
	}
	return contents, scanner.Err()
}
