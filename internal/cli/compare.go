package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	compareShowAll bool
	comparePair    string
	compareOutput  string
)

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare <file1> <file2>",
	Short: "Compare two pool state dump files",
	Long: `Compare two pool state dump JSON files and show differences.

Dump files are arrays of pool objects keyed by "pair", as written by
verify --dump (snapshot_state.json and replayed_state.json).

Shows:
- Added pools (in file2 but not file1)
- Removed pools (in file1 but not file2)
- Modified pools with a field-by-field diff

Examples:
    ammd compare before.json after.json
    ammd compare poolstore.debug/snapshot_state.json poolstore.debug/replayed_state.json
    ammd compare before.json after.json --pair BTC/USD
    ammd compare before.json after.json --all -o diff.json`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().BoolVarP(&compareShowAll, "all", "a", false, "Show unchanged pools as well")
	compareCmd.Flags().StringVarP(&comparePair, "pair", "p", "", "Only compare the given pair (e.g. BTC/USD)")
	compareCmd.Flags().StringVarP(&compareOutput, "output", "o", "", "Output diff to JSON file")
}

// modifiedPool is one pool present in both files with differing fields.
type modifiedPool struct {
	Pair          string
	Old           map[string]interface{}
	New           map[string]interface{}
	ChangedFields []string
}

func runCompare(cmd *cobra.Command, args []string) error {
	file1Path := args[0]
	file2Path := args[1]

	fmt.Println("================================================================================")
	fmt.Println("                         Pool State Comparison")
	fmt.Println("================================================================================")
	fmt.Printf("File 1: %s\n", file1Path)
	fmt.Printf("File 2: %s\n", file2Path)
	fmt.Println()

	pools1, err := loadDumpFile(file1Path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", file1Path, err)
	}
	pools2, err := loadDumpFile(file2Path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", file2Path, err)
	}

	fmt.Printf("File 1: %d pools\n", len(pools1))
	fmt.Printf("File 2: %d pools\n", len(pools2))
	fmt.Println()

	map1 := buildDumpMap(pools1)
	map2 := buildDumpMap(pools2)

	if comparePair != "" {
		map1 = filterPair(map1, comparePair)
		map2 = filterPair(map2, comparePair)
		fmt.Printf("Filtered by pair: %s\n\n", comparePair)
	}

	added, removed, modified, unchanged := diffDumps(map1, map2)

	fmt.Println("--- Summary ---")
	fmt.Printf("Added:     %d pools (in file2 but not file1)\n", len(added))
	fmt.Printf("Removed:   %d pools (in file1 but not file2)\n", len(removed))
	fmt.Printf("Modified:  %d pools\n", len(modified))
	fmt.Printf("Unchanged: %d pools\n", len(unchanged))
	fmt.Println()

	if len(added) > 0 {
		printDumpSection("ADDED POOLS", "[+]", added, map2)
	}
	if len(removed) > 0 {
		printDumpSection("REMOVED POOLS", "[-]", removed, map1)
	}
	if len(modified) > 0 {
		printModifiedPools(modified)
	}
	if compareShowAll && len(unchanged) > 0 {
		fmt.Println("================================================================================")
		fmt.Println("                            UNCHANGED POOLS")
		fmt.Println("================================================================================")
		for _, pair := range unchanged {
			fmt.Printf("[=] %s\n", pair)
		}
		fmt.Println()
	}

	if compareOutput != "" {
		writeCompareDiff(compareOutput, added, removed, modified, map1, map2)
	}

	if len(added) > 0 || len(removed) > 0 || len(modified) > 0 {
		os.Exit(1)
	}
	return nil
}

// loadDumpFile reads a dump file, accepting either a bare JSON array of
// pool objects or a wrapper object holding them under "pools".
func loadDumpFile(path string) ([]map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []map[string]interface{}
	if err := json.Unmarshal(data, &entries); err == nil {
		return entries, nil
	}

	var wrapper struct {
		Pools []map[string]interface{} `json:"pools"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.Pools != nil {
		return wrapper.Pools, nil
	}

	return nil, fmt.Errorf("unrecognized dump format")
}

// buildDumpMap indexes dump entries by their pair key, dropping entries
// without one.
func buildDumpMap(entries []map[string]interface{}) map[string]map[string]interface{} {
	result := make(map[string]map[string]interface{}, len(entries))
	for _, entry := range entries {
		pair, ok := entry["pair"].(string)
		if !ok || pair == "" {
			continue
		}
		result[pair] = entry
	}
	return result
}

func filterPair(entries map[string]map[string]interface{}, pair string) map[string]map[string]interface{} {
	result := make(map[string]map[string]interface{}, 1)
	if entry, ok := entries[pair]; ok {
		result[pair] = entry
	}
	return result
}

// diffDumps splits the union of both files into added, removed, modified
// and unchanged pairs, each sorted.
func diffDumps(map1, map2 map[string]map[string]interface{}) (added, removed []string, modified []modifiedPool, unchanged []string) {
	for pair, entry2 := range map2 {
		entry1, exists := map1[pair]
		if !exists {
			added = append(added, pair)
			continue
		}
		changed := changedFields(entry1, entry2)
		if len(changed) > 0 {
			modified = append(modified, modifiedPool{
				Pair:          pair,
				Old:           entry1,
				New:           entry2,
				ChangedFields: changed,
			})
		} else {
			unchanged = append(unchanged, pair)
		}
	}

	for pair := range map1 {
		if _, exists := map2[pair]; !exists {
			removed = append(removed, pair)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(unchanged)
	sort.Slice(modified, func(i, j int) bool { return modified[i].Pair < modified[j].Pair })

	return
}

// changedFields lists every field whose value differs between the two
// entries, sorted.
func changedFields(old, new map[string]interface{}) []string {
	allKeys := make(map[string]bool, len(old)+len(new))
	for k := range old {
		allKeys[k] = true
	}
	for k := range new {
		allKeys[k] = true
	}

	changed := make([]string, 0)
	for k := range allKeys {
		oldVal, oldExists := old[k]
		newVal, newExists := new[k]
		if !oldExists || !newExists || !reflect.DeepEqual(oldVal, newVal) {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

func printDumpSection(title, marker string, pairs []string, entries map[string]map[string]interface{}) {
	fmt.Println("================================================================================")
	fmt.Printf("%s\n", centerTitle(title))
	fmt.Println("================================================================================")

	for _, pair := range pairs {
		fmt.Printf("\n%s %s\n", marker, pair)
		printDumpEntry(entries[pair])
	}
	fmt.Println()
}

func printModifiedPools(modified []modifiedPool) {
	fmt.Println("================================================================================")
	fmt.Printf("%s\n", centerTitle("MODIFIED POOLS"))
	fmt.Println("================================================================================")

	for _, m := range modified {
		fmt.Printf("\n[~] %s\n", m.Pair)
		fmt.Printf("    Changed fields: %v\n", m.ChangedFields)
		for _, field := range m.ChangedFields {
			fmt.Printf("    %s:\n", field)
			fmt.Printf("      - %s\n", formatDumpValue(m.Old[field]))
			fmt.Printf("      + %s\n", formatDumpValue(m.New[field]))
		}
	}
	fmt.Println()
}

func printDumpEntry(entry map[string]interface{}) {
	if entry == nil {
		return
	}
	fields := make([]string, 0, len(entry))
	for field := range entry {
		if field != "pair" {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	for _, field := range fields {
		fmt.Printf("    %s: %s\n", field, formatDumpValue(entry[field]))
	}
}

// formatDumpValue renders a decoded JSON value for display. Sequence
// numbers decode as float64 and print without the exponent form.
func formatDumpValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "(none)"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case map[string]interface{}:
		data, _ := json.Marshal(val)
		return string(data)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func centerTitle(title string) string {
	const width = 80
	pad := (width - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	return fmt.Sprintf("%*s", pad+len(title), title)
}

func writeCompareDiff(path string, added, removed []string, modified []modifiedPool, map1, map2 map[string]map[string]interface{}) {
	output := map[string]interface{}{
		"added":    make([]map[string]interface{}, 0, len(added)),
		"removed":  make([]map[string]interface{}, 0, len(removed)),
		"modified": make([]map[string]interface{}, 0, len(modified)),
	}

	for _, pair := range added {
		output["added"] = append(output["added"].([]map[string]interface{}), map2[pair])
	}
	for _, pair := range removed {
		output["removed"] = append(output["removed"].([]map[string]interface{}), map1[pair])
	}
	for _, m := range modified {
		output["modified"] = append(output["modified"].([]map[string]interface{}), map[string]interface{}{
			"pair":           m.Pair,
			"changed_fields": m.ChangedFields,
			"old":            m.Old,
			"new":            m.New,
		})
	}

	data, _ := json.MarshalIndent(output, "", "  ")
	if err := os.WriteFile(path, data, 0644); err != nil {
		fmt.Printf("ERROR: Failed to write diff file: %v\n", err)
	} else {
		fmt.Printf("Diff written to: %s\n", path)
	}
}
