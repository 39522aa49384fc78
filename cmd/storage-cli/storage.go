package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/bobmcallan/storage-inspector/internal/app"
	"github.com/bobmcallan/storage-inspector/internal/exchange"
	"github.com/bobmcallan/storage-inspector/internal/models"
	"github.com/bobmcallan/storage-inspector/internal/surface"
)

// StorageView is the subset of the surface view the storage commands use.
type StorageView interface {
	Refresh(ctx context.Context) (models.Snapshot, error)
	Rows(category models.Category, term string) []models.StorageItem
	Edit(ctx context.Context, id models.RecordID, value string) error
	Delete(ctx context.Context, id models.RecordID) error
	Copy(id models.RecordID) (string, error)
	Export() exchange.Document
	Import(ctx context.Context, data []byte) (exchange.Result, error)
}

// StorageCmd handles cookie, localStorage and sessionStorage operations.
type StorageCmd struct {
	view StorageView
	out  io.Writer
	now  func() time.Time
}

// ListStorageInput holds input for listing storage rows.
type ListStorageInput struct {
	Type   string
	Search string
	JSON   bool
}

// refresh re-reads storage. A partial read is reported as a warning and the
// rows that could be read are used.
func (c StorageCmd) refresh(ctx context.Context) error {
	_, err := c.view.Refresh(ctx)
	if err != nil && surface.Degraded(err) == nil {
		pterm.Warning.Printfln("some storage could not be read: %v", err)
		return nil
	}
	return err
}

// List prints the rows matching the type filter and search term.
func (c StorageCmd) List(ctx context.Context, in ListStorageInput) error {
	category, err := models.ParseItemFilter(in.Type)
	if err != nil {
		return err
	}
	if err := c.refresh(ctx); err != nil {
		return err
	}
	items := c.view.Rows(category, in.Search)

	if in.JSON {
		return printJSON(c.out, items)
	}
	if len(items) == 0 {
		pterm.Info.Println("No storage items found")
		return nil
	}

	rows := pterm.TableData{{"Type", "Key", "Value", "Domain"}}
	rows = append(rows, lo.Map(items, func(it models.StorageItem, _ int) []string {
		return []string{it.Category.Label(), it.Key, cell(it.Value), lo.Ternary(it.Domain == "", "-", it.Domain)}
	})...)
	PrintTableNoPad(c.out, rows, true)
	return nil
}

// SetStorageInput holds input for writing a row.
type SetStorageInput struct {
	Type   string
	Key    string
	Value  string
	Domain string
}

// Set writes a row and confirms with the refreshed value.
func (c StorageCmd) Set(ctx context.Context, in SetStorageInput) error {
	category, err := parseItemType(in.Type)
	if err != nil {
		return err
	}
	id := models.RecordID{Category: category, Key: in.Key, Domain: in.Domain}
	if err := c.view.Edit(ctx, id, in.Value); err != nil {
		return err
	}
	pterm.Success.Printfln("Set %s %q", category.Label(), in.Key)
	return nil
}

// DeleteStorageInput holds input for deleting a row.
type DeleteStorageInput struct {
	Type   string
	Key    string
	Domain string
}

// Delete removes a row.
func (c StorageCmd) Delete(ctx context.Context, in DeleteStorageInput) error {
	category, err := parseItemType(in.Type)
	if err != nil {
		return err
	}
	if err := c.view.Delete(ctx, models.RecordID{Category: category, Key: in.Key, Domain: in.Domain}); err != nil {
		return err
	}
	pterm.Success.Printfln("Deleted %s %q", category.Label(), in.Key)
	return nil
}

// CopyStorageInput holds input for printing a single value.
type CopyStorageInput struct {
	Type   string
	Key    string
	Domain string
	Pretty bool
}

// Copy prints the raw value of a row so it can be piped elsewhere.
func (c StorageCmd) Copy(ctx context.Context, in CopyStorageInput) error {
	category, err := parseItemType(in.Type)
	if err != nil {
		return err
	}
	if err := c.refresh(ctx); err != nil {
		return err
	}
	value, err := c.view.Copy(models.RecordID{Category: category, Key: in.Key, Domain: in.Domain})
	if err != nil {
		return err
	}
	if in.Pretty {
		value = surface.DisplayValue(value)
	}
	_, err = fmt.Fprintln(c.out, value)
	return err
}

// ExportInput holds input for exporting storage.
type ExportInput struct {
	Output string
}

// Export writes the export document to Output, or to stdout when Output is
// empty or "-". A directory receives storage_export_YYYY-MM-DD.json.
func (c StorageCmd) Export(ctx context.Context, in ExportInput) error {
	if err := c.refresh(ctx); err != nil {
		return err
	}
	data, err := c.view.Export().Marshal()
	if err != nil {
		return err
	}
	if in.Output == "" || in.Output == "-" {
		_, err = fmt.Fprintln(c.out, string(data))
		return err
	}
	path := in.Output
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, exchange.Filename(c.now()))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	pterm.Success.Printfln("Exported storage to %s", path)
	return nil
}

// ImportInput holds input for importing a document.
type ImportInput struct {
	Path string
}

// Import replays a document read from Path, or stdin for "-". Entries that
// fail are reported and skipped.
func (c StorageCmd) Import(ctx context.Context, in ImportInput) error {
	var (
		data []byte
		err  error
	)
	if in.Path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(in.Path)
	}
	if err != nil {
		return fmt.Errorf("read import document: %w", err)
	}

	res, err := c.view.Import(ctx, data)
	if err != nil {
		return err
	}
	for _, msg := range res.Messages() {
		pterm.Warning.Println(msg)
	}

	rows := pterm.TableData{{"Applied", "Skipped"}, {fmt.Sprint(res.Applied), fmt.Sprint(res.Skipped)}}
	PrintTableNoPad(c.out, rows, true)
	return nil
}

// --- Cobra wiring ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List storage rows",
	Long:  "List cookies, localStorage and sessionStorage rows of the inspected tab",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a storage row",
	Long:  "Create or overwrite a cookie, localStorage or sessionStorage entry",
	Args:  cobra.ExactArgs(2),
	RunE:  runSet,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a storage row",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var copyCmd = &cobra.Command{
	Use:   "copy <key>",
	Short: "Print a storage value",
	Long:  "Print the raw value of a storage row, suitable for piping to a clipboard tool",
	Args:  cobra.ExactArgs(1),
	RunE:  runCopy,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export storage as JSON",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import storage from a JSON export",
	Long:  "Replay cookies, localStorage and sessionStorage from an export document. Use - to read stdin.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)

	listCmd.Flags().StringP("type", "t", "all", "Row type: all, cookie, local or session")
	listCmd.Flags().StringP("search", "s", "", "Case-insensitive filter over key, value and type")
	listCmd.Flags().Bool("json", false, "Print rows as JSON")

	for _, c := range []*cobra.Command{setCmd, deleteCmd, copyCmd} {
		c.Flags().StringP("type", "t", "", "Row type: cookie, local or session (required)")
		c.Flags().String("domain", "", "Cookie domain")
		_ = c.MarkFlagRequired("type")
	}
	copyCmd.Flags().Bool("pretty", false, "Pretty-print JSON values")

	exportCmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
}

func newStorageCmd(a *app.App) StorageCmd {
	return StorageCmd{view: a.View, out: os.Stdout, now: time.Now}
}

func runList(cmd *cobra.Command, args []string) error {
	typ, _ := cmd.Flags().GetString("type")
	search, _ := cmd.Flags().GetString("search")
	asJSON, _ := cmd.Flags().GetBool("json")

	return withApp(cmd, func(a *app.App) error {
		return newStorageCmd(a).List(cmd.Context(), ListStorageInput{Type: typ, Search: search, JSON: asJSON})
	})
}

func runSet(cmd *cobra.Command, args []string) error {
	typ, _ := cmd.Flags().GetString("type")
	domain, _ := cmd.Flags().GetString("domain")

	return withApp(cmd, func(a *app.App) error {
		return newStorageCmd(a).Set(cmd.Context(), SetStorageInput{Type: typ, Key: args[0], Value: args[1], Domain: domain})
	})
}

func runDelete(cmd *cobra.Command, args []string) error {
	typ, _ := cmd.Flags().GetString("type")
	domain, _ := cmd.Flags().GetString("domain")

	return withApp(cmd, func(a *app.App) error {
		return newStorageCmd(a).Delete(cmd.Context(), DeleteStorageInput{Type: typ, Key: args[0], Domain: domain})
	})
}

func runCopy(cmd *cobra.Command, args []string) error {
	typ, _ := cmd.Flags().GetString("type")
	domain, _ := cmd.Flags().GetString("domain")
	pretty, _ := cmd.Flags().GetBool("pretty")

	return withApp(cmd, func(a *app.App) error {
		return newStorageCmd(a).Copy(cmd.Context(), CopyStorageInput{Type: typ, Key: args[0], Domain: domain, Pretty: pretty})
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	return withApp(cmd, func(a *app.App) error {
		return newStorageCmd(a).Export(cmd.Context(), ExportInput{Output: output})
	})
}

func runImport(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app.App) error {
		return newStorageCmd(a).Import(cmd.Context(), ImportInput{Path: args[0]})
	})
}
