package domain

// ConnectorPatch changes the connector of a configuration. Parameters are
// deep-merged onto the stored ones.
type ConnectorPatch struct {
	Name       *string `json:"name,omitempty"`
	Parameters Params  `json:"parameters,omitempty"`
}

// KnowledgeBoxPatch changes destination fields one by one.
type KnowledgeBoxPatch struct {
	Backend      *string `json:"backend,omitempty"`
	Zone         *string `json:"zone,omitempty"`
	KnowledgeBox *string `json:"knowledgeBox,omitempty"`
	APIKey       *string `json:"apiKey,omitempty"`
}

// ConfigurationPatch is a partial update applied against the latest stored
// state of a configuration. Nil fields are left untouched. Filters and list
// fields replace the stored value wholesale.
//
// The operation fields (MarkFoldersUploaded, RemoveOriginalIDs,
// AddOriginalIDs) are evaluated against the stored lists so a cycle does not
// clobber a folder selection edited while it ran.
type ConfigurationPatch struct {
	Title              *string            `json:"title,omitempty"`
	Connector          *ConnectorPatch    `json:"connector,omitempty"`
	KB                 *KnowledgeBoxPatch `json:"kb,omitempty"`
	Labels             *[]Label           `json:"labels,omitempty"`
	PreserveLabels     *bool              `json:"preserveLabels,omitempty"`
	SyncSecurityGroups *bool              `json:"syncSecurityGroups,omitempty"`
	ExtractStrategy    *string            `json:"extract_strategy,omitempty"`
	Disabled           *bool              `json:"disabled,omitempty"`
	Filters            *Filters           `json:"filters,omitempty"`
	ClearFilters       bool               `json:"-"`
	FoldersToSync      *[]SyncItem        `json:"foldersToSync,omitempty"`
	OriginalIDs        *[]string          `json:"originalIds,omitempty"`
	LastSyncGMT        *string            `json:"lastSyncGMT,omitempty"`

	MarkFoldersUploaded []string `json:"-"`
	RemoveOriginalIDs   []string `json:"-"`
	AddOriginalIDs      []string `json:"-"`
}

// Apply returns c with the patch applied. c is not modified.
func (p ConfigurationPatch) Apply(c Configuration) Configuration {
	out := c.clone()

	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Connector != nil {
		if p.Connector.Name != nil {
			out.Connector.Name = *p.Connector.Name
		}
		if p.Connector.Parameters != nil {
			out.Connector.Parameters = MergeParams(out.Connector.Parameters, p.Connector.Parameters)
		}
	}
	if p.KB != nil {
		setString(&out.KB.Backend, p.KB.Backend)
		setString(&out.KB.Zone, p.KB.Zone)
		setString(&out.KB.KnowledgeBox, p.KB.KnowledgeBox)
		setString(&out.KB.APIKey, p.KB.APIKey)
	}
	if p.Labels != nil {
		out.Labels = append([]Label(nil), (*p.Labels)...)
	}
	if p.PreserveLabels != nil {
		out.PreserveLabels = *p.PreserveLabels
	}
	if p.SyncSecurityGroups != nil {
		out.SyncSecurityGroups = *p.SyncSecurityGroups
	}
	setString(&out.ExtractStrategy, p.ExtractStrategy)
	if p.Disabled != nil {
		out.Disabled = *p.Disabled
	}
	switch {
	case p.ClearFilters:
		out.Filters = nil
	case p.Filters != nil:
		f := *p.Filters
		out.Filters = &f
	}
	if p.FoldersToSync != nil {
		out.FoldersToSync = cloneItems(*p.FoldersToSync)
	}
	if p.OriginalIDs != nil {
		out.OriginalIDs = append([]string(nil), (*p.OriginalIDs)...)
	}
	setString(&out.LastSyncGMT, p.LastSyncGMT)

	if len(p.MarkFoldersUploaded) > 0 {
		mark := toSet(p.MarkFoldersUploaded)
		for i := range out.FoldersToSync {
			if _, ok := mark[out.FoldersToSync[i].OriginalID]; ok {
				out.FoldersToSync[i].Status = StatusUploaded
			}
		}
	}
	if len(p.RemoveOriginalIDs) > 0 || len(p.AddOriginalIDs) > 0 {
		out.OriginalIDs = updateIDs(out.OriginalIDs, p.RemoveOriginalIDs, p.AddOriginalIDs)
	}
	return out
}

// IsEmpty reports whether applying the patch would change nothing.
func (p ConfigurationPatch) IsEmpty() bool {
	return p.Title == nil && p.Connector == nil && p.KB == nil && p.Labels == nil &&
		p.PreserveLabels == nil && p.SyncSecurityGroups == nil && p.ExtractStrategy == nil &&
		p.Disabled == nil && p.Filters == nil && !p.ClearFilters && p.FoldersToSync == nil &&
		p.OriginalIDs == nil && p.LastSyncGMT == nil && len(p.MarkFoldersUploaded) == 0 &&
		len(p.RemoveOriginalIDs) == 0 && len(p.AddOriginalIDs) == 0
}

// updateIDs removes then adds ids, keeping order and uniqueness.
func updateIDs(ids, remove, add []string) []string {
	drop := toSet(remove)
	seen := make(map[string]struct{}, len(ids)+len(add))
	out := make([]string, 0, len(ids)+len(add))
	for _, id := range ids {
		if _, ok := drop[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range add {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func toSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func cloneItems(items []SyncItem) []SyncItem {
	if items == nil {
		return nil
	}
	out := make([]SyncItem, len(items))
	for i, it := range items {
		out[i] = it
		out[i].Parents = append([]string(nil), it.Parents...)
		if it.Metadata != nil {
			out[i].Metadata = make(map[string]string, len(it.Metadata))
			for k, v := range it.Metadata {
				out[i].Metadata[k] = v
			}
		}
	}
	return out
}

func (c Configuration) clone() Configuration {
	out := c
	out.Connector.Parameters = c.Connector.Parameters.Clone()
	out.Labels = append([]Label(nil), c.Labels...)
	if c.Filters != nil {
		f := *c.Filters
		out.Filters = &f
	}
	out.FoldersToSync = cloneItems(c.FoldersToSync)
	out.OriginalIDs = append([]string(nil), c.OriginalIDs...)
	return out
}

// Ptr returns a pointer to v. It is a helper for building patches.
func Ptr[T any](v T) *T {
	return &v
}
