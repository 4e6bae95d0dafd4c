package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/skylarkhq/assetferry/internal/config"
	"github.com/skylarkhq/assetferry/pkg/catalog"
	"github.com/skylarkhq/assetferry/pkg/catalog/cloudinary"
	"github.com/skylarkhq/assetferry/pkg/manifest"
	"github.com/skylarkhq/assetferry/pkg/match"
	"github.com/skylarkhq/assetferry/pkg/output"
	"github.com/skylarkhq/assetferry/pkg/store/s3"
)

// buildSource creates the catalog source from manifest and resolved
// credentials.
func buildSource(m *manifest.Manifest, cfg *config.Config) (catalog.Source, error) {
	creds := cfg.Cloudinary
	if creds.CloudName == "" {
		creds.CloudName = m.Source.CloudName
	}
	if !creds.HasCredentials() {
		return nil, exitError(foundry.ExitInvalidArgument, "Missing catalog credentials",
			fmt.Errorf("set CLOUDINARY_URL or the %s_CLOUDINARY_* variables", config.EnvPrefix))
	}

	// The manifest names the cloud to migrate; the credentials must be
	// for that same cloud.
	if creds.CloudName != m.Source.CloudName {
		return nil, exitError(foundry.ExitInvalidArgument, "Credential mismatch",
			fmt.Errorf("manifest cloud %q does not match credential cloud %q", m.Source.CloudName, creds.CloudName))
	}

	return cloudinary.New(cloudinary.Config{
		CloudName: creds.CloudName,
		APIKey:    creds.APIKey,
		APISecret: creds.APISecret,
		BaseURL:   m.Source.BaseURL,
	})
}

// buildFilters translates manifest filters plus flag overrides into
// catalog filters.
func buildFilters(m *manifest.Manifest, startDate, idsFile string) (catalog.Filters, error) {
	f := catalog.Filters{
		ResourceType: m.Source.ResourceType,
		DeliveryType: m.Source.DeliveryType,
		Prefix:       m.Filters.Prefix,
		PublicIDs:    m.Filters.PublicIDs,
	}

	startAt := m.Filters.StartAt
	if startDate != "" {
		startAt = startDate
	}
	if startAt != "" {
		t, err := parseDate(startAt)
		if err != nil {
			return catalog.Filters{}, exitError(foundry.ExitInvalidArgument, "Invalid start date", err)
		}
		f.StartAt = t
	}

	if idsFile != "" {
		ids, err := readIDsFile(idsFile)
		if err != nil {
			return catalog.Filters{}, err
		}
		f.PublicIDs = ids
	}

	return f, nil
}

// parseDate accepts a date or an RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC 3339 timestamp: %q", s)
	}
	return t, nil
}

// readIDsFile reads public IDs from a file, one per line.
//
// Lines that are JSONL records from a previous run (e.g. the failed
// list) are accepted too: the public_id field of the record payload is
// extracted, which makes `--ids-file failed.jsonl` a direct replay of a
// prior run's failures.
func readIDsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, exitError(foundry.ExitFileNotFound, "IDs file not found", err)
		}
		return nil, exitError(foundry.ExitFileReadError, "Failed to read IDs file", err)
	}
	defer func() { _ = f.Close() }()

	var ids []string
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		id := line
		if strings.HasPrefix(line, "{") {
			id = publicIDFromRecord([]byte(line))
			if id == "" {
				continue
			}
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if err := sc.Err(); err != nil {
		return nil, exitError(foundry.ExitFileReadError, "Failed to read IDs file", err)
	}
	if len(ids) == 0 {
		return nil, exitError(foundry.ExitInvalidArgument, "Empty IDs file",
			fmt.Errorf("no public IDs found in %s", path))
	}
	return ids, nil
}

// publicIDFromRecord extracts the public_id from a JSONL record line.
// Non-asset records (progress, summary) yield an empty string.
func publicIDFromRecord(line []byte) string {
	var rec output.Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return ""
	}
	var payload output.AssetRecord
	if err := json.Unmarshal(rec.Data, &payload); err != nil {
		return ""
	}
	return payload.PublicID
}

// buildMatcher creates the client-side public ID matcher, or nil when
// the manifest has no patterns.
func buildMatcher(m *manifest.Manifest) (*match.Matcher, error) {
	if len(m.Match.Includes) == 0 && len(m.Match.Excludes) == 0 {
		return nil, nil
	}
	return match.New(match.Config{
		Includes: m.Match.Includes,
		Excludes: m.Match.Excludes,
	})
}

// buildStore creates the destination object store from manifest
// configuration.
func buildStore(ctx context.Context, m *manifest.Manifest) (*s3.Store, error) {
	return s3.New(ctx, s3.Config{
		Bucket:   m.Target.Bucket,
		Region:   m.Target.Region,
		Endpoint: m.Target.Endpoint,
		Profile:  m.Target.Profile,
		// S3-compatible services (moto, MinIO, etc.) require path style.
		ForcePathStyle: m.Target.ForcePathStyle || m.Target.Endpoint != "",
	})
}

// createWriter creates an output writer from manifest configuration.
// Returns the writer, a cleanup function, and any error.
func createWriter(m *manifest.Manifest, runID string) (output.Writer, func(), error) {
	dest := m.Output.Destination

	if dest == "" || dest == "stdout" {
		w := output.NewJSONLWriter(os.Stdout, runID, m.Source.CloudName)
		return w, func() { _ = w.Close() }, nil
	}

	path := strings.TrimPrefix(dest, "file:")
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}

	w := output.NewJSONLWriter(f, runID, m.Source.CloudName)
	cleanup := func() {
		_ = w.Close()
		_ = f.Close()
	}
	return w, cleanup, nil
}
