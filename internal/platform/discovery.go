package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rflorenc/scm-migration-workbench/internal/models"
)

// MinimumVersion is the oldest source version the lister has been run against.
const MinimumVersion = "11.0"

// VersionResponse holds the parsed /version response.
type VersionResponse struct {
	Version  string `json:"version"`
	Revision string `json:"revision"`
}

// ParseVersionResponse extracts the version from a /version JSON body.
func ParseVersionResponse(body []byte) (*VersionResponse, error) {
	var resp VersionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing version response: %w", err)
	}
	if resp.Version == "" {
		return nil, fmt.Errorf("version response missing version field")
	}
	return &resp, nil
}

// CompareVersions performs a simple semver comparison.
// Returns -1 if a < b, 0 if a == b, 1 if a > b.
// Handles partial versions ("16.4" vs "16.4.1") and edition suffixes ("16.4.1-ee").
func CompareVersions(a, b string) int {
	aParts := parseVersionParts(a)
	bParts := parseVersionParts(b)

	maxLen := len(aParts)
	if len(bParts) > maxLen {
		maxLen = len(bParts)
	}

	for i := 0; i < maxLen; i++ {
		var av, bv int
		if i < len(aParts) {
			av = aParts[i]
		}
		if i < len(bParts) {
			bv = bParts[i]
		}
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

// VersionAtLeast returns true if version >= min.
func VersionAtLeast(version, min string) bool {
	if version == "" || min == "" {
		return true
	}
	return CompareVersions(version, min) >= 0
}

func parseVersionParts(v string) []int {
	if i := strings.IndexAny(v, "-+ "); i >= 0 {
		v = v[:i]
	}
	parts := strings.Split(v, ".")
	result := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			break
		}
		result = append(result, n)
	}
	return result
}

// Version calls the version endpoint. If the call succeeds but the body
// carries no version, an empty VersionResponse is returned.
func (c *Client) Version(ctx context.Context) (*VersionResponse, error) {
	body, err := c.Get(ctx, "/version", nil)
	if err != nil {
		return nil, err
	}
	resp, err := ParseVersionResponse(body)
	if err != nil {
		return &VersionResponse{}, nil
	}
	return resp, nil
}

// Discover probes a connection and records its status and version on the
// store. Failures are reported through the status, never returned.
func Discover(ctx context.Context, log *slog.Logger, conn *models.Connection, store *models.ConnectionStore) string {
	client := NewClient(conn)
	resp, err := client.Version(ctx)
	status := "ok"
	version := ""
	switch {
	case IsUnauthorized(err):
		status = "unauthorized"
		log.Warn("connection rejected credentials", "connection", conn.Name, "error", err)
	case err != nil:
		status = "unreachable"
		log.Warn("connection unreachable", "connection", conn.Name, "error", err)
	default:
		version = resp.Version
		log.Info("connection ok", "connection", conn.Name, "version", version)
		if !VersionAtLeast(version, MinimumVersion) {
			log.Warn("connection version is older than supported", "connection", conn.Name, "version", version, "minimum", MinimumVersion)
		}
	}
	if store != nil {
		store.SetStatus(conn.ID, status, version)
	}
	return status
}
