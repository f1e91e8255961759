package main

import (
	"bytes"
	"encoding/json"
	"hash/fnv"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/crossmodal/config"
	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/search"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"crossmodal"}, args...))
	return out.String(), err
}

// fakeCLIP serves deterministic 4-dimensional embeddings derived from the
// request payload.
func fakeCLIP(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text  string `json:"text"`
			Image string `json:"image"`
			Audio string `json:"audio"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h := fnv.New32a()
		h.Write([]byte(req.Text + req.Image + req.Audio))
		seed := h.Sum32()
		vec := make([]float32, 4)
		for i := range vec {
			seed = seed*1664525 + 1013904223
			vec[i] = float32(seed%1000)/1000.0 + 0.01
		}
		json.NewEncoder(w).Encode([][]float32{vec})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeTestConfig(t *testing.T, host string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(dir, "db")
	cfg.Storage.UploadDir = filepath.Join(dir, "uploads")
	cfg.Embedding.Host = host
	cfg.Embedding.Dimensions = 4
	path := filepath.Join(dir, "crossmodal.yaml")
	require.NoError(t, config.Write(afero.NewOsFs(), path, cfg))
	return path
}

func TestEndToEnd(t *testing.T) {
	srv := fakeCLIP(t)
	cfgPath := writeTestConfig(t, srv.URL)

	out, err := runApp(t, "-c", cfgPath, "submit", "-t", "sunny beach", "-t", "rainy city")
	require.NoError(t, err)
	assert.Contains(t, out, string(core.IDFromContent("sunny beach"))+" stored")
	assert.Contains(t, out, string(core.IDFromContent("rainy city"))+" stored")

	imagePath := filepath.Join(t.TempDir(), "wave.png")
	require.NoError(t, os.WriteFile(imagePath, []byte("not really a png"), 0644))
	out, err = runApp(t, "-c", cfgPath, "submit", "--json", imagePath)
	require.NoError(t, err)
	var submitted []submitJSON
	require.NoError(t, json.Unmarshal([]byte(out), &submitted))
	require.Len(t, submitted, 1)
	assert.True(t, submitted[0].Created)
	// The image itself plus both texts
	require.Len(t, submitted[0].Neighbors, 3)
	assert.Equal(t, submitted[0].Key, submitted[0].Neighbors[0].ID)
	assert.Equal(t, 1.0, submitted[0].Neighbors[0].Score)

	out, err = runApp(t, "-c", cfgPath, "submit", "-t", "sunny beach")
	require.NoError(t, err)
	assert.Contains(t, out, "exists")

	out, err = runApp(t, "-c", cfgPath, "search", "--json", "-t", "sunny beach")
	require.NoError(t, err)
	var results []resultJSON
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.NotEmpty(t, results)
	assert.Equal(t, core.IDFromContent("sunny beach"), results[0].ID)
	assert.Equal(t, 1.0, results[0].Score)

	out, err = runApp(t, "-c", cfgPath, "stats", "--json")
	require.NoError(t, err)
	var stats struct {
		Documents int `json:"documents"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 3, stats.Documents)

	out, err = runApp(t, "-c", cfgPath, "graph")
	require.NoError(t, err)
	var graph struct {
		Nodes []struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &graph))
	assert.Len(t, graph.Nodes, 3)

	out, err = runApp(t, "-c", cfgPath, "repair")
	require.NoError(t, err)
	assert.Contains(t, out, "Scanned 3 documents, relinked 0")
}

func TestSeedCommand(t *testing.T) {
	srv := fakeCLIP(t)
	cfgPath := writeTestConfig(t, srv.URL)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "note.txt"), []byte("a note"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.jpg"), []byte{0xff, 0xd8, 0xff}, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.bin"), []byte{0}, 0644))
	lines := filepath.Join(t.TempDir(), "lines")
	require.NoError(t, os.WriteFile(lines, []byte("first line\n\nsecond line\n"), 0644))

	out, err := runApp(t, "-c", cfgPath, "seed", "--workers", "2", "--lines", lines, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 4 documents (4 new, 0 existing, 0 failed)")
}

func TestCommandErrors(t *testing.T) {
	srv := fakeCLIP(t)
	cfgPath := writeTestConfig(t, srv.URL)

	tests := []struct {
		name string
		args []string
	}{
		{"submit without input", []string{"-c", cfgPath, "submit"}},
		{"search without query", []string{"-c", cfgPath, "search"}},
		{"search with text and file", []string{"-c", cfgPath, "search", "-t", "x", "file.png"}},
		{"search unsupported file", []string{"-c", cfgPath, "search", "file.xyz"}},
		{"search bad mode", []string{"-c", cfgPath, "search", "-t", "x", "--mode", "graph"}},
		{"seed without input", []string{"-c", cfgPath, "seed"}},
		{"repair bad batch size", []string{"-c", cfgPath, "repair", "--batch-size", "0"}},
		{"missing config file", []string{"-c", "/nonexistent/crossmodal.yaml", "stats"}},
		{"invalid log level", []string{"--log-level", "loud", "stats"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runApp(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crossmodal.yaml")

	_, err := runApp(t, "config", "init", path)
	require.NoError(t, err)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = runApp(t, "config", "init", path)
	assert.Error(t, err)
	_, err = runApp(t, "config", "init", "--force", path)
	assert.NoError(t, err)

	out, err := runApp(t, "--db", "/srv/crossmodal", "--dimensions", "768", "-c", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "path: /srv/crossmodal")
	assert.Contains(t, out, "dimensions: 768")
}

func TestSearchParams(t *testing.T) {
	defaults := search.Params{TopK: 12, Mode: search.ModeBalanced, Expand: true, Depth: 3, Alpha: 0.7}

	run := func(args ...string) (search.Params, error) {
		var got search.Params
		var gotErr error
		app := newApp()
		for _, cmd := range app.Commands {
			if cmd.Name == "search" {
				cmd.Action = func(c *cli.Context) error {
					got, gotErr = searchParams(c, defaults)
					return nil
				}
			}
		}
		app.ErrWriter = io.Discard
		require.NoError(t, app.Run(append([]string{"crossmodal", "search"}, args...)))
		return got, gotErr
	}

	p, err := run()
	require.NoError(t, err)
	assert.Equal(t, defaults, p)

	p, err = run("-k", "5", "--mode", "hybrid", "--depth", "1", "--alpha", "0.4", "--no-expand")
	require.NoError(t, err)
	assert.Equal(t, search.Params{TopK: 5, Mode: search.ModeHybrid, Expand: false, Depth: 1, Alpha: 0.4}, p)

	_, err = run("--mode", "graph")
	assert.ErrorIs(t, err, search.ErrInvalidMode)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "debug", "json")
	require.NoError(t, err)
	logger.Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	_, err = newLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestModalityOf(t *testing.T) {
	tests := []struct {
		path string
		want core.Modality
	}{
		{"notes.txt", core.ModalityText},
		{"README.MD", core.ModalityText},
		{"photo.JPG", core.ModalityImage},
		{"/a/b/diagram.png", core.ModalityImage},
		{"song.mp3", core.ModalityAudio},
		{"take.wav", core.ModalityAudio},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := modalityOf(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := modalityOf("archive.zip")
	assert.ErrorIs(t, err, core.ErrUnsupportedModality)
}

func TestCollectContents(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "in/a.txt", []byte("hello"), 0644))
	require.NoError(t, afero.WriteFile(fs, "in/sub/b.png", []byte{1, 2}, 0644))
	require.NoError(t, afero.WriteFile(fs, "in/sub/c.wav", []byte{3}, 0644))
	require.NoError(t, afero.WriteFile(fs, "in/skip.exe", []byte{4}, 0644))

	contents, err := collectContents(fs, "in")
	require.NoError(t, err)
	require.Len(t, contents, 3)
	assert.Equal(t, core.TextContent{Text: "hello"}, contents[0])
	assert.Equal(t, core.ImageContent{Data: []byte{1, 2}, Filename: "b.png"}, contents[1])
	assert.Equal(t, core.AudioContent{Data: []byte{3}, Filename: "c.wav"}, contents[2])
}

func TestReadLines(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "lines.txt", []byte("  one \n\n two\n"), 0644))
	contents, err := readLines(fs, "lines.txt")
	require.NoError(t, err)
	assert.Equal(t, []core.Content{core.TextContent{Text: "one"}, core.TextContent{Text: "two"}}, contents)
}
