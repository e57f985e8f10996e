package listing

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-blockfs/internal/disk"
	"github.com/deploymenttheory/go-blockfs/internal/types"
)

const timeLayout = "2006-01-02 15:04"

// encode writes v as json or yaml. ok is false for any other format so the
// caller can fall back to its table rendering.
func encode(w io.Writer, v any, format string) (ok bool, err error) {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return true, encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		encoder.SetIndent(2)
		return true, encoder.Encode(v)
	case "table", "":
		return false, nil
	default:
		return true, fmt.Errorf("unsupported output format: %s", format)
	}
}

// FormatListing writes a directory listing. Directories sort before files,
// each group by name.
func FormatListing(w io.Writer, entries []types.ListingEntry, format string) error {
	sorted := make([]types.ListingEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].IsDirectory != sorted[j].IsDirectory {
			return sorted[i].IsDirectory
		}
		return sorted[i].Name < sorted[j].Name
	})

	if ok, err := encode(w, sorted, format); ok {
		return err
	}

	if len(sorted) == 0 {
		fmt.Fprintln(w, "Directory is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "NAME\tTYPE\tSIZE\tMODIFIED\n")
	fmt.Fprintf(tw, "----\t----\t----\t--------\n")

	var totalSize int64
	for _, e := range sorted {
		kind, size := "file", FormatBytes(e.Size)
		if e.IsDirectory {
			kind, size = "dir", "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, kind, size, formatTime(e))
		totalSize += e.Size
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d entries totaling %s\n", len(sorted), FormatBytes(totalSize))
	return nil
}

func formatTime(e types.ListingEntry) string {
	if e.ModifiedAt.IsZero() {
		return "-"
	}
	return e.ModifiedAt.Local().Format(timeLayout)
}

// FormatTree writes the directory tree, indenting each level
func FormatTree(w io.Writer, tree []types.DirectoryTreeEntry, format string) error {
	if ok, err := encode(w, tree, format); ok {
		return err
	}

	sorted := make([]types.DirectoryTreeEntry, len(tree))
	copy(sorted, tree)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	for _, d := range sorted {
		name := d.Name
		if d.Depth > 0 {
			name += "/"
		}
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", d.Depth), name)
	}
	return nil
}

// FormatInfo writes the container summary
func FormatInfo(w io.Writer, info *types.ContainerInfo, format string) error {
	if ok, err := encode(w, info, format); ok {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Container:\t%s\n", info.Path)
	fmt.Fprintf(tw, "Block size:\t%s\n", FormatBytes(int64(info.BlockSize)))
	fmt.Fprintf(tw, "Total blocks:\t%d\n", info.TotalBlocks)
	fmt.Fprintf(tw, "Used blocks:\t%d (%s)\n", info.UsedBlocks, FormatBytes(int64(info.UsedBlocks)*int64(info.BlockSize)))
	fmt.Fprintf(tw, "Free blocks:\t%d (%s)\n", info.FreeBlocks, FormatBytes(int64(info.FreeBlocks)*int64(info.BlockSize)))
	fmt.Fprintf(tw, "Current directory:\t%s\n", info.CurrentDirectory)
	return tw.Flush()
}

// FormatIntegrity writes a verification report
func FormatIntegrity(w io.Writer, report *types.IntegrityReport, format string) error {
	if ok, err := encode(w, report, format); ok {
		return err
	}

	fmt.Fprintf(w, "Files: %d, used blocks: %d, referenced blocks: %d\n",
		report.Files, report.UsedBlocks, report.ReferencedBlocks)

	if report.Healthy() {
		fmt.Fprintln(w, "No problems found.")
		return nil
	}

	for _, m := range report.RefcountMismatches {
		fmt.Fprintf(w, "block %d: refcount %d, referenced %d times\n", m.Block, m.Stored, m.Observed)
	}
	for _, b := range report.UnallocatedRefs {
		fmt.Fprintf(w, "block %d: referenced but not allocated\n", b)
	}
	for _, b := range report.UnreferencedBlocks {
		fmt.Fprintf(w, "block %d: allocated but not referenced\n", b)
	}
	for _, f := range report.OrphanedFiles {
		fmt.Fprintf(w, "file inode %d: parent directory missing\n", f)
	}
	return nil
}

// FormatBytes formats byte count as human readable
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatConfig writes the effective configuration. Table output is yaml.
func FormatConfig(w io.Writer, cfg *disk.Config, format string) error {
	if format == "table" || format == "" {
		format = "yaml"
	}
	_, err := encode(w, cfg, format)
	return err
}
