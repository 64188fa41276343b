package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultSince is the watermark used when a configuration has never
// completed a cycle.
const DefaultSince = "2000-01-01T00:00:00.000Z"

// ConnectorSpec selects a connector variant and its parameters.
type ConnectorSpec struct {
	Name       string `json:"name"`
	Parameters Params `json:"parameters"`
}

// KnowledgeBox identifies the destination of a configuration.
type KnowledgeBox struct {
	Backend      string `json:"backend"`
	Zone         string `json:"zone,omitempty"`
	KnowledgeBox string `json:"knowledgeBox"`
	APIKey       string `json:"apiKey,omitempty"`
}

// Validate checks the destination fields as a group.
func (kb KnowledgeBox) Validate() error {
	var missing []string
	if strings.TrimSpace(kb.Backend) == "" {
		missing = append(missing, "backend")
	}
	if strings.TrimSpace(kb.KnowledgeBox) == "" {
		missing = append(missing, "knowledgeBox")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: kb.%s required", ErrInvalidInput, strings.Join(missing, ", kb."))
	}
	if _, err := url.ParseRequestURI(kb.Backend); err != nil {
		return fmt.Errorf("%w: kb.backend is not a URL", ErrInvalidInput)
	}
	return nil
}

// Label is a classification tag applied to uploaded resources.
type Label struct {
	Labelset string `json:"labelset"`
	Label    string `json:"label"`
}

// Configuration is one configured pairing of a source with a destination.
// It is mutated by the orchestrator (watermark, folder status, known ids,
// rotated credentials) and by user edits.
type Configuration struct {
	ID                 string        `json:"id"`
	Connector          ConnectorSpec `json:"connector"`
	KB                 KnowledgeBox  `json:"kb"`
	Title              string        `json:"title"`
	Labels             []Label       `json:"labels,omitempty"`
	PreserveLabels     bool          `json:"preserveLabels,omitempty"`
	SyncSecurityGroups bool          `json:"syncSecurityGroups,omitempty"`
	ExtractStrategy    string        `json:"extract_strategy,omitempty"`
	Disabled           bool          `json:"disabled,omitempty"`
	Filters            *Filters      `json:"filters,omitempty"`
	FoldersToSync      []SyncItem    `json:"foldersToSync,omitempty"`
	OriginalIDs        []string      `json:"originalIds,omitempty"`
	LastSyncGMT        string        `json:"lastSyncGMT,omitempty"`
}

// Since returns the watermark for incremental queries.
func (c Configuration) Since() string {
	if c.LastSyncGMT == "" {
		return DefaultSince
	}
	return c.LastSyncGMT
}

// PartitionFolders splits the selected folders into those never enumerated
// and those tracked incrementally.
func (c Configuration) PartitionFolders() (pending, uploaded []SyncItem) {
	for _, f := range c.FoldersToSync {
		if f.Status == StatusUploaded {
			uploaded = append(uploaded, f)
		} else {
			pending = append(pending, f)
		}
	}
	return pending, uploaded
}

// Summary is the listing view of a configuration.
type Summary struct {
	ID                   string `json:"id"`
	Title                string `json:"title"`
	Connector            string `json:"connector"`
	LastSyncGMT          string `json:"lastSyncGMT,omitempty"`
	Disabled             bool   `json:"disabled"`
	TotalSyncedResources int    `json:"totalSyncedResources"`
}

// Summarise returns the listing view of c.
func (c Configuration) Summarise() Summary {
	return Summary{
		ID:                   c.ID,
		Title:                c.Title,
		Connector:            c.Connector.Name,
		LastSyncGMT:          c.LastSyncGMT,
		Disabled:             c.Disabled,
		TotalSyncedResources: len(c.OriginalIDs),
	}
}

// ValidateFolders checks that every selected folder can be addressed.
func ValidateFolders(folders []SyncItem) error {
	for i, f := range folders {
		if strings.TrimSpace(f.OriginalID) == "" {
			return fmt.Errorf("%w: foldersToSync[%d].originalId required", ErrInvalidInput, i)
		}
		if strings.TrimSpace(f.Title) == "" {
			return fmt.Errorf("%w: foldersToSync[%d].title required", ErrInvalidInput, i)
		}
	}
	return nil
}

// NowGMT formats t the way watermarks are stored.
func NowGMT(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
