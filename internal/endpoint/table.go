package endpoint

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/example/ocpi-client/internal/ocpi"
)

// Table is an in-memory Resolver fed from the outcome of version discovery.
// Entries can be replaced while calls are in flight.
type Table struct {
	mu      sync.RWMutex
	entries map[Key]ResolvedEndpoint
	logger  zerolog.Logger
}

// NewTable returns an empty table.
func NewTable(logger zerolog.Logger) *Table {
	return &Table{
		entries: make(map[Key]ResolvedEndpoint),
		logger:  logger.With().Str("component", "endpoint_table").Logger(),
	}
}

// Set stores or replaces the endpoint of desc at version.
func (t *Table) Set(desc ocpi.ModuleDescriptor, version ocpi.Version, ep ResolvedEndpoint) error {
	ep.Descriptor = desc
	ep.Version = version
	ep, err := normalize(ep)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.entries[Key{Descriptor: desc, Version: version}] = ep
	t.mu.Unlock()
	return nil
}

// Delete forgets an endpoint; later lookups report it as absent.
func (t *Table) Delete(desc ocpi.ModuleDescriptor, version ocpi.Version) {
	t.mu.Lock()
	delete(t.entries, Key{Descriptor: desc, Version: version})
	t.mu.Unlock()
}

// Len returns the number of endpoints held.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *Table) Resolve(ctx context.Context, desc ocpi.ModuleDescriptor, version ocpi.Version, eventTrackingID string) (ResolvedEndpoint, bool, error) {
	if err := ctx.Err(); err != nil {
		return ResolvedEndpoint{}, false, err
	}

	t.mu.RLock()
	ep, ok := t.entries[Key{Descriptor: desc, Version: version}]
	t.mu.RUnlock()

	if !ok {
		t.logger.Debug().
			Str("module", desc.String()).
			Str("version", string(version)).
			Str("event_tracking_id", eventTrackingID).
			Msg("endpoint table: no endpoint advertised")
	}
	return ep, ok, nil
}

// tableFile is the YAML layout accepted by LoadTable:
//
//	credential: <default token>
//	endpoints:
//	  - module: locations
//	    role: RECEIVER
//	    version: "2.2.1"
//	    url: https://emsp.example.com/ocpi/2.2.1/locations
//	    credential: <optional per-endpoint token>
type tableFile struct {
	Credential string       `yaml:"credential"`
	Endpoints  []tableEntry `yaml:"endpoints"`
}

type tableEntry struct {
	Module     string `yaml:"module"`
	Role       string `yaml:"role"`
	Version    string `yaml:"version"`
	URL        string `yaml:"url"`
	Credential string `yaml:"credential"`
}

// LoadTable reads a YAML endpoint table from path.
func LoadTable(path string, logger zerolog.Logger) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("endpoint: open table: %w", err)
	}
	defer f.Close()
	return ParseTable(f, logger)
}

// ParseTable decodes a YAML endpoint table. Unknown fields are rejected.
func ParseTable(r io.Reader, logger zerolog.Logger) (*Table, error) {
	var file tableFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("endpoint: decode table: %w", err)
	}

	t := NewTable(logger)
	for i, e := range file.Endpoints {
		desc, err := ocpi.ParseModuleDescriptor(e.Module + "/" + defaultRole(e.Role))
		if err != nil {
			return nil, fmt.Errorf("endpoint: entry %d: %w", i, err)
		}
		version, err := ocpi.ParseVersion(e.Version)
		if err != nil {
			return nil, fmt.Errorf("endpoint: entry %d: %w", i, err)
		}
		cred := e.Credential
		if cred == "" {
			cred = file.Credential
		}
		if err := t.Set(desc, version, ResolvedEndpoint{BaseURL: e.URL, Credential: cred}); err != nil {
			return nil, fmt.Errorf("endpoint: entry %d: %w", i, err)
		}
	}

	t.logger.Info().Int("endpoints", t.Len()).Msg("endpoint table loaded")
	return t, nil
}

func defaultRole(role string) string {
	if role == "" {
		return string(ocpi.RoleReceiver)
	}
	return role
}
