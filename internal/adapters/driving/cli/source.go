package cli

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// promptValue asks for a value on stdin instead of taking it from the
// command line.
const promptValue = "-"

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage sync configurations",
	Long: `A sync configuration pairs a connector and its parameters with the
knowledge box receiving the documents.`,
}

var sourceAddCmd = &cobra.Command{
	Use:   "add <connector>",
	Short: "Create a sync configuration",
	Long: `Create a sync configuration for a connector.

Connector parameters are given as key=value pairs. A value of '-' is read
from standard input without echo, which keeps tokens out of shell history:

  sercha-sync source add folder --title Docs -p path=/srv/docs \
    --kb-backend https://europe-1.nuclia.cloud/api --kb my-kb --api-key -

Run 'sercha-sync connectors <name>' to see the parameters of a connector.`,
	Args: cobra.ExactArgs(1),
	RunE: runSourceAdd,
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sync configurations",
	RunE:  runSourceList,
}

var sourceShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one sync configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourceShow,
}

var sourceUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a sync configuration",
	Long: `Change a sync configuration. Only the flags given are applied;
connector parameters are merged onto the stored ones.`,
	Args: cobra.ExactArgs(1),
	RunE: runSourceUpdate,
}

var sourceRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Delete a sync configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourceRemove,
}

var sourceFoldersCmd = &cobra.Command{
	Use:   "folders <id> [query]",
	Short: "List the folders a configuration can sync",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runSourceFolders,
}

var sourceSelectCmd = &cobra.Command{
	Use:   "select-folders <id> <folder-id>...",
	Short: "Choose the folders a configuration syncs",
	Long: `Replace the folder selection of a configuration. Folder ids are the
ones printed by 'sercha-sync source folders'. Connectors without folder
listing, such as folder, take any id (a directory path for folder). Folders
already selected keep their sync state.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSourceSelect,
}

// configFlags are shared by add and update.
type configFlags struct {
	title              string
	params             []string
	backend            string
	zone               string
	kb                 string
	apiKey             string
	labels             []string
	preserveLabels     bool
	syncSecurityGroups bool
	extractStrategy    string
	extensions         string
	excludeExtensions  bool
	modifiedFrom       string
	modifiedTo         string
	disabled           bool
}

var (
	addFlags    configFlags
	updateFlags configFlags

	updateEnable       bool
	updateClearFilters bool
	listKB             string
)

func init() {
	bindConfigFlags(sourceAddCmd, &addFlags)
	bindConfigFlags(sourceUpdateCmd, &updateFlags)
	sourceUpdateCmd.Flags().BoolVar(&updateEnable, "enable", false, "re-enable a disabled configuration")
	sourceUpdateCmd.Flags().BoolVar(&updateClearFilters, "clear-filters", false, "remove every filter")
	sourceListCmd.Flags().StringVar(&listKB, "kb", "", "only list configurations targeting this knowledge box")

	sourceCmd.AddCommand(sourceAddCmd)
	sourceCmd.AddCommand(sourceListCmd)
	sourceCmd.AddCommand(sourceShowCmd)
	sourceCmd.AddCommand(sourceUpdateCmd)
	sourceCmd.AddCommand(sourceRemoveCmd)
	sourceCmd.AddCommand(sourceFoldersCmd)
	sourceCmd.AddCommand(sourceSelectCmd)
	rootCmd.AddCommand(sourceCmd)
}

func bindConfigFlags(cmd *cobra.Command, f *configFlags) {
	flags := cmd.Flags()
	flags.StringVar(&f.title, "title", "", "display title")
	flags.StringArrayVarP(&f.params, "param", "p", nil, "connector parameter as key=value (repeatable)")
	flags.StringVar(&f.backend, "kb-backend", "", "knowledge box API base URL")
	flags.StringVar(&f.zone, "zone", "", "knowledge box zone")
	flags.StringVar(&f.kb, "kb", "", "knowledge box id")
	flags.StringVar(&f.apiKey, "api-key", "", "knowledge box service account key, '-' to prompt")
	flags.StringArrayVar(&f.labels, "label", nil, "label as labelset/label (repeatable)")
	flags.BoolVar(&f.preserveLabels, "preserve-labels", false, "keep labels already set on resources")
	flags.BoolVar(&f.syncSecurityGroups, "sync-security-groups", false, "upload source access groups")
	flags.StringVar(&f.extractStrategy, "extract-strategy", "", "destination extract strategy")
	flags.StringVar(&f.extensions, "extensions", "", "comma separated file extensions to sync")
	flags.BoolVar(&f.excludeExtensions, "exclude-extensions", false, "skip the listed extensions instead")
	flags.StringVar(&f.modifiedFrom, "modified-from", "", "only sync items modified on or after this date")
	flags.StringVar(&f.modifiedTo, "modified-to", "", "only sync items modified on or before this date")
	flags.BoolVar(&f.disabled, "disabled", false, "exclude the configuration from sync cycles")
}

func runSourceAdd(cmd *cobra.Command, args []string) error {
	if configurationService == nil {
		return errConfigurationsMissing
	}

	in := newPrompter(cmd.InOrStdin())
	params, err := parseParams(cmd, in, addFlags.params)
	if err != nil {
		return err
	}
	labels, err := parseLabels(addFlags.labels)
	if err != nil {
		return err
	}
	apiKey := addFlags.apiKey
	if apiKey == promptValue {
		cmd.Print("Enter knowledge box API key: ")
		apiKey = in.secret()
		cmd.Println()
	}

	cfg := domain.Configuration{
		Connector: domain.ConnectorSpec{Name: args[0], Parameters: params},
		KB: domain.KnowledgeBox{
			Backend:      addFlags.backend,
			Zone:         addFlags.zone,
			KnowledgeBox: addFlags.kb,
			APIKey:       apiKey,
		},
		Title:              addFlags.title,
		Labels:             labels,
		PreserveLabels:     addFlags.preserveLabels,
		SyncSecurityGroups: addFlags.syncSecurityGroups,
		ExtractStrategy:    addFlags.extractStrategy,
		Disabled:           addFlags.disabled,
		Filters:            buildFilters(&addFlags),
	}

	created, err := configurationService.Create(commandContext(cmd), cfg)
	if err != nil {
		return fmt.Errorf("failed to create configuration: %w", err)
	}

	cmd.Printf("Created configuration %s (%s)\n", created.ID, created.Title)
	if def, ok := findDefinition(created.Connector.Name); ok && def.HasFolders {
		cmd.Printf("Choose folders with 'sercha-sync source folders %s'.\n", created.ID)
	}
	return nil
}

func runSourceList(cmd *cobra.Command, _ []string) error {
	if configurationService == nil {
		return errConfigurationsMissing
	}
	ctx := commandContext(cmd)

	var summaries []domain.Summary
	if listKB != "" {
		var err error
		summaries, err = configurationService.ListByKnowledgeBox(ctx, listKB)
		if err != nil {
			return fmt.Errorf("failed to list configurations: %w", err)
		}
	} else {
		configs, err := configurationService.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list configurations: %w", err)
		}
		for _, c := range configs {
			summaries = append(summaries, c.Summarise())
		}
	}

	if len(summaries) == 0 {
		cmd.Println("No configurations. Create one with 'sercha-sync source add'.")
		return nil
	}

	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.ID,
			s.Title,
			s.Connector,
			lastSync(s.LastSyncGMT),
			humanize.Comma(int64(s.TotalSyncedResources)),
			statusLabel(s.Disabled),
		})
	}
	renderTable(cmd.OutOrStdout(), []string{"ID", "Title", "Connector", "Last sync", "Resources", "Status"}, rows)
	return nil
}

func runSourceShow(cmd *cobra.Command, args []string) error {
	if configurationService == nil {
		return errConfigurationsMissing
	}

	cfg, err := configurationService.Get(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get configuration: %w", err)
	}
	secrets := secretKeys(cfg.Connector.Name)

	cmd.Printf("ID:         %s\n", cfg.ID)
	cmd.Printf("Title:      %s\n", cfg.Title)
	cmd.Printf("Connector:  %s\n", cfg.Connector.Name)
	cmd.Printf("Status:     %s\n", statusLabel(cfg.Disabled))
	cmd.Printf("Last sync:  %s\n", lastSync(cfg.LastSyncGMT))
	cmd.Printf("Resources:  %s\n", humanize.Comma(int64(len(cfg.OriginalIDs))))
	cmd.Println()

	cmd.Println("[Knowledge box]")
	cmd.Printf("  Backend: %s\n", cfg.KB.Backend)
	if cfg.KB.Zone != "" {
		cmd.Printf("  Zone: %s\n", cfg.KB.Zone)
	}
	cmd.Printf("  ID: %s\n", cfg.KB.KnowledgeBox)
	if cfg.KB.APIKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(cfg.KB.APIKey))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
	cmd.Println()

	cmd.Println("[Parameters]")
	for _, key := range sortedKeys(cfg.Connector.Parameters) {
		value := fmt.Sprint(cfg.Connector.Parameters[key])
		if secrets[key] {
			value = maskAPIKey(value)
		}
		cmd.Printf("  %s: %s\n", key, value)
	}
	cmd.Println()

	if len(cfg.Labels) > 0 {
		cmd.Println("[Labels]")
		for _, l := range cfg.Labels {
			cmd.Printf("  %s/%s\n", l.Labelset, l.Label)
		}
		cmd.Printf("  Preserve existing: %s\n", yesNo(cfg.PreserveLabels))
		cmd.Println()
	}

	if f := cfg.Filters; f != nil {
		cmd.Println("[Filters]")
		if f.FileExtensions != nil {
			mode := "include"
			if f.FileExtensions.Exclude {
				mode = "exclude"
			}
			cmd.Printf("  Extensions (%s): %s\n", mode, f.FileExtensions.Extensions)
		}
		if f.Modified != nil {
			cmd.Printf("  Modified: %s .. %s\n", f.Modified.From, f.Modified.To)
		}
		cmd.Println()
	}

	cmd.Println("[Folders]")
	if len(cfg.FoldersToSync) == 0 {
		cmd.Println("  (none)")
	}
	for _, folder := range cfg.FoldersToSync {
		cmd.Printf("  %s  %s  [%s]\n", folder.OriginalID, folder.Title, folder.Status)
	}
	return nil
}

func runSourceUpdate(cmd *cobra.Command, args []string) error {
	if configurationService == nil {
		return errConfigurationsMissing
	}
	if updateEnable && updateFlags.disabled {
		return fmt.Errorf("%w: --enable and --disabled are exclusive", domain.ErrInvalidInput)
	}

	patch, err := buildPatch(cmd, &updateFlags)
	if err != nil {
		return err
	}

	updated, err := configurationService.Update(commandContext(cmd), args[0], patch)
	if err != nil {
		return fmt.Errorf("failed to update configuration: %w", err)
	}
	cmd.Printf("Updated configuration %s (%s)\n", updated.ID, updated.Title)
	return nil
}

func runSourceRemove(cmd *cobra.Command, args []string) error {
	if configurationService == nil {
		return errConfigurationsMissing
	}
	if err := configurationService.Delete(commandContext(cmd), args[0]); err != nil {
		return fmt.Errorf("failed to delete configuration: %w", err)
	}
	cmd.Printf("Deleted configuration %s\n", args[0])
	return nil
}

func runSourceFolders(cmd *cobra.Command, args []string) error {
	if configurationService == nil {
		return errConfigurationsMissing
	}
	query := ""
	if len(args) > 1 {
		query = args[1]
	}

	res, err := configurationService.ListFolders(commandContext(cmd), args[0], query)
	if err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}
	if len(res.Items) == 0 {
		cmd.Println("No folders found.")
		return nil
	}

	rows := make([][]string, 0, len(res.Items))
	for _, f := range res.Items {
		path := f.Meta(domain.MetaPath)
		if path == "" {
			path = "-"
		}
		rows = append(rows, []string{f.OriginalID, f.Title, path})
	}
	renderTable(cmd.OutOrStdout(), []string{"ID", "Title", "Path"}, rows)
	return nil
}

func runSourceSelect(cmd *cobra.Command, args []string) error {
	if configurationService == nil {
		return errConfigurationsMissing
	}
	ctx := commandContext(cmd)
	id, wanted := args[0], args[1:]

	cfg, err := configurationService.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get configuration: %w", err)
	}
	listsFolders := true
	if def, ok := findDefinition(cfg.Connector.Name); ok {
		listsFolders = def.HasFolders
	}
	var res domain.SearchResults
	if listsFolders {
		res, err = configurationService.ListFolders(ctx, id, "")
		if err != nil {
			return fmt.Errorf("failed to list folders: %w", err)
		}
	}

	available := make(map[string]domain.SyncItem, len(res.Items))
	for _, f := range res.Items {
		available[f.OriginalID] = f
	}
	current := make(map[string]domain.SyncItem, len(cfg.FoldersToSync))
	for _, f := range cfg.FoldersToSync {
		current[f.OriginalID] = f
	}

	var missing []string
	selected := make([]domain.SyncItem, 0, len(wanted))
	seen := make(map[string]bool, len(wanted))
	for _, folderID := range wanted {
		if seen[folderID] {
			continue
		}
		seen[folderID] = true
		if f, ok := current[folderID]; ok {
			selected = append(selected, f)
			continue
		}
		f, ok := available[folderID]
		if !ok && !listsFolders {
			f, ok = domain.SyncItem{
				OriginalID: folderID,
				Title:      filepath.Base(folderID),
				IsFolder:   true,
				Metadata:   map[string]string{domain.MetaPath: folderID},
			}, true
		}
		if !ok {
			missing = append(missing, folderID)
			continue
		}
		f.Status = domain.StatusPending
		selected = append(selected, f)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: unknown folders %s", domain.ErrNotFound, strings.Join(missing, ", "))
	}

	if _, err := configurationService.Update(ctx, id, domain.ConfigurationPatch{FoldersToSync: &selected}); err != nil {
		return fmt.Errorf("failed to update configuration: %w", err)
	}
	cmd.Printf("Configuration %s now syncs %d folders\n", id, len(selected))
	return nil
}

// buildPatch collects the flags the user set into a patch.
func buildPatch(cmd *cobra.Command, f *configFlags) (domain.ConfigurationPatch, error) {
	var patch domain.ConfigurationPatch
	flags := cmd.Flags()
	in := newPrompter(cmd.InOrStdin())

	if flags.Changed("title") {
		patch.Title = &f.title
	}
	if flags.Changed("param") {
		params, err := parseParams(cmd, in, f.params)
		if err != nil {
			return patch, err
		}
		patch.Connector = &domain.ConnectorPatch{Parameters: params}
	}

	var kb domain.KnowledgeBoxPatch
	kbChanged := false
	if flags.Changed("kb-backend") {
		kb.Backend, kbChanged = &f.backend, true
	}
	if flags.Changed("zone") {
		kb.Zone, kbChanged = &f.zone, true
	}
	if flags.Changed("kb") {
		kb.KnowledgeBox, kbChanged = &f.kb, true
	}
	if flags.Changed("api-key") {
		key := f.apiKey
		if key == promptValue {
			cmd.Print("Enter knowledge box API key: ")
			key = in.secret()
			cmd.Println()
		}
		kb.APIKey, kbChanged = &key, true
	}
	if kbChanged {
		patch.KB = &kb
	}

	if flags.Changed("label") {
		labels, err := parseLabels(f.labels)
		if err != nil {
			return patch, err
		}
		patch.Labels = &labels
	}
	if flags.Changed("preserve-labels") {
		patch.PreserveLabels = &f.preserveLabels
	}
	if flags.Changed("sync-security-groups") {
		patch.SyncSecurityGroups = &f.syncSecurityGroups
	}
	if flags.Changed("extract-strategy") {
		patch.ExtractStrategy = &f.extractStrategy
	}
	if flags.Changed("disabled") {
		patch.Disabled = &f.disabled
	}
	if flags.Changed("enable") && updateEnable {
		disabled := false
		patch.Disabled = &disabled
	}

	if flags.Changed("clear-filters") && updateClearFilters {
		patch.ClearFilters = true
	} else {
		patch.Filters = buildFilters(f)
	}
	return patch, nil
}

func buildFilters(f *configFlags) *domain.Filters {
	var filters domain.Filters
	if f.extensions != "" {
		filters.FileExtensions = &domain.ExtensionFilter{
			Extensions: f.extensions,
			Exclude:    f.excludeExtensions,
		}
	}
	if f.modifiedFrom != "" || f.modifiedTo != "" {
		filters.Modified = &domain.ModifiedFilter{From: f.modifiedFrom, To: f.modifiedTo}
	}
	if filters.FileExtensions == nil && filters.Modified == nil {
		return nil
	}
	return &filters
}

// parseParams turns key=value pairs into Params, prompting for values
// given as '-'.
func parseParams(cmd *cobra.Command, in *prompter, pairs []string) (domain.Params, error) {
	params := make(domain.Params, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: parameter %q is not key=value", domain.ErrInvalidInput, pair)
		}
		if value == promptValue {
			cmd.Printf("Enter %s: ", key)
			value = in.secret()
			cmd.Println()
		}
		params[key] = value
	}
	return params, nil
}

func parseLabels(values []string) ([]domain.Label, error) {
	labels := make([]domain.Label, 0, len(values))
	for _, v := range values {
		set, label, ok := strings.Cut(v, "/")
		if !ok || set == "" || label == "" {
			return nil, fmt.Errorf("%w: label %q is not labelset/label", domain.ErrInvalidInput, v)
		}
		labels = append(labels, domain.Label{Labelset: set, Label: label})
	}
	return labels, nil
}

func findDefinition(name string) (domain.ConnectorDefinition, bool) {
	for _, def := range configurationService.Connectors() {
		if def.Name == name {
			return def, true
		}
	}
	return domain.ConnectorDefinition{}, false
}

// secretKeys returns the parameter names of connector that are masked on
// output.
func secretKeys(connector string) map[string]bool {
	secrets := map[string]bool{}
	def, ok := findDefinition(connector)
	if !ok {
		return secrets
	}
	for _, k := range def.ConfigKeys {
		if k.Secret {
			secrets[k.Key] = true
		}
	}
	return secrets
}

func sortedKeys(params domain.Params) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func statusLabel(disabled bool) string {
	if disabled {
		return "disabled"
	}
	return "enabled"
}

// lastSync renders a watermark relative to now.
func lastSync(gmt string) string {
	if gmt == "" {
		return "never"
	}
	t, ok := domain.ParseTimestamp(gmt)
	if !ok {
		return gmt
	}
	return humanize.Time(t)
}
