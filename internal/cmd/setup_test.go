package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylarkhq/assetferry/internal/config"
	"github.com/skylarkhq/assetferry/pkg/manifest"
	"github.com/skylarkhq/assetferry/pkg/output"
)

func testManifest() *manifest.Manifest {
	m := &manifest.Manifest{
		Version: "1.0",
		Source:  manifest.SourceConfig{CloudName: "demo-cloud"},
		Target:  manifest.TargetConfig{Bucket: "media-archive"},
	}
	m.ApplyDefaults()
	return m
}

func TestParseDate(t *testing.T) {
	t.Run("date only", func(t *testing.T) {
		got, err := parseDate("2024-03-15")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("RFC 3339", func(t *testing.T) {
		got, err := parseDate("2024-03-15T10:30:00Z")
		require.NoError(t, err)
		assert.Equal(t, 10, got.Hour())
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := parseDate("15/03/2024")
		require.Error(t, err)
	})
}

func TestReadIDsFile(t *testing.T) {
	t.Run("plain text with comments and duplicates", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ids.txt")
		content := "# failed assets\nevents/a\n\nevents/b\nevents/a\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		ids, err := readIDsFile(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"events/a", "events/b"}, ids)
	})

	t.Run("JSONL from previous run", func(t *testing.T) {
		rec := func(id string) string {
			data, _ := json.Marshal(output.AssetRecord{PublicID: id, Error: "fetch failed"})
			env, _ := json.Marshal(output.Record{
				Type:  output.TypeFailed,
				TS:    time.Now(),
				RunID: "run-1",
				Cloud: "demo-cloud",
				Data:  data,
			})
			return string(env)
		}
		path := filepath.Join(t.TempDir(), "failed.jsonl")
		content := rec("events/x") + "\n" + rec("events/y") + "\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		ids, err := readIDsFile(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"events/x", "events/y"}, ids)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readIDsFile("/nonexistent/ids.txt")
		var ec *exitCodeError
		require.ErrorAs(t, err, &ec)
		assert.Equal(t, foundry.ExitFileNotFound, ec.code)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.txt")
		require.NoError(t, os.WriteFile(path, []byte("# nothing here\n"), 0o600))

		_, err := readIDsFile(path)
		var ec *exitCodeError
		require.ErrorAs(t, err, &ec)
		assert.Equal(t, foundry.ExitInvalidArgument, ec.code)
	})
}

func TestBuildFilters(t *testing.T) {
	t.Run("manifest values carry through", func(t *testing.T) {
		m := testManifest()
		m.Filters.Prefix = "events/"
		m.Filters.StartAt = "2024-01-01"

		f, err := buildFilters(m, "", "")
		require.NoError(t, err)
		assert.Equal(t, "image", f.ResourceType)
		assert.Equal(t, "upload", f.DeliveryType)
		assert.Equal(t, "events/", f.Prefix)
		assert.Equal(t, 2024, f.StartAt.Year())
	})

	t.Run("flag start date wins", func(t *testing.T) {
		m := testManifest()
		m.Filters.StartAt = "2024-01-01"

		f, err := buildFilters(m, "2025-06-01", "")
		require.NoError(t, err)
		assert.Equal(t, 2025, f.StartAt.Year())
	})

	t.Run("ids file replaces manifest list", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ids.txt")
		require.NoError(t, os.WriteFile(path, []byte("replay/one\n"), 0o600))

		m := testManifest()
		m.Filters.PublicIDs = []string{"manifest/id"}

		f, err := buildFilters(m, "", path)
		require.NoError(t, err)
		assert.Equal(t, []string{"replay/one"}, f.PublicIDs)
	})
}

func TestBuildMatcher(t *testing.T) {
	t.Run("no patterns yields nil", func(t *testing.T) {
		matcher, err := buildMatcher(testManifest())
		require.NoError(t, err)
		assert.Nil(t, matcher)
	})

	t.Run("patterns compile", func(t *testing.T) {
		m := testManifest()
		m.Match.Includes = []string{"events/**"}

		matcher, err := buildMatcher(m)
		require.NoError(t, err)
		require.NotNil(t, matcher)
		assert.True(t, matcher.Match("events/2024/a"))
		assert.False(t, matcher.Match("drafts/b"))
	})
}

func TestBuildSource(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		_, err := buildSource(testManifest(), &config.Config{})
		var ec *exitCodeError
		require.ErrorAs(t, err, &ec)
		assert.Equal(t, foundry.ExitInvalidArgument, ec.code)
	})

	t.Run("cloud mismatch", func(t *testing.T) {
		cfg := &config.Config{Cloudinary: config.CloudinaryConfig{
			CloudName: "other-cloud",
			APIKey:    "k",
			APISecret: "s",
		}}

		_, err := buildSource(testManifest(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not match")
	})

	t.Run("manifest cloud with split credentials", func(t *testing.T) {
		cfg := &config.Config{Cloudinary: config.CloudinaryConfig{
			APIKey:    "k",
			APISecret: "s",
		}}

		src, err := buildSource(testManifest(), cfg)
		require.NoError(t, err)
		require.NotNil(t, src)
		_ = src.Close()
	})
}

func TestCreateWriter(t *testing.T) {
	t.Run("stdout destination", func(t *testing.T) {
		m := testManifest()

		w, cleanup, err := createWriter(m, "run-1")
		require.NoError(t, err)
		require.NotNil(t, w)
		cleanup()
	})

	t.Run("file destination", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.jsonl")
		m := testManifest()
		m.Output.Destination = "file:" + path

		w, cleanup, err := createWriter(m, "run-1")
		require.NoError(t, err)
		require.NoError(t, w.WriteProgress(context.Background(), &output.ProgressRecord{Batch: 1}))
		cleanup()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), output.TypeProgress)
	})

	t.Run("unwritable path", func(t *testing.T) {
		m := testManifest()
		m.Output.Destination = "file:/nonexistent-dir/out.jsonl"

		_, _, err := createWriter(m, "run-1")
		require.Error(t, err)
	})
}
