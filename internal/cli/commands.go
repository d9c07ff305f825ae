package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/JonMunkholm/datatable/internal/config"
	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/JonMunkholm/datatable/internal/session"
	"github.com/JonMunkholm/datatable/internal/sheetimport"
	"github.com/JonMunkholm/datatable/internal/store"
	"github.com/spf13/cobra"
)

func (a *app) newImportCommand() *cobra.Command {
	var replace, dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import spreadsheets into the project",
		Long: `Import one or more files into the project. Each sheet of an .xlsx
workbook becomes a table, a .csv file becomes one table named after the
file, and .json and .yaml files must hold an exported snapshot. Names that collide with stored tables get a "(n)" suffix.`,
		Example: `  tablectl import sales.xlsx
  tablectl import --replace -p q3 export.yaml regions.csv
  tablectl import --dry-run -o json sales.xlsx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var raws []datatable.RawTable
			for _, path := range args {
				tables, err := sheetimport.ReadFile(path)
				if err != nil {
					return err
				}
				slog.Debug("read import file", "path", path, "tables", len(tables))
				raws = append(raws, tables...)
			}

			if dryRun {
				merged, err := mergeTables(ctx, a.cfg.Editor, nil, raws)
				if err != nil {
					return err
				}
				return renderTables(out(cmd), merged, a.output)
			}

			return a.withStore(ctx, func(s Snapshots) error {
				var existing []datatable.TableJSON
				if !replace {
					var err error
					if existing, err = a.loadProject(ctx, s); err != nil {
						return err
					}
				}
				merged, err := mergeTables(ctx, a.cfg.Editor, existing, raws)
				if err != nil {
					return err
				}
				if err := s.Save(ctx, a.project, merged); err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Imported %d table(s) into %q (%d stored)\n", len(raws), a.project, len(merged))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "Discard the stored tables first")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the imported tables without storing them")

	return cmd
}

// mergeTables runs existing and imported tables through a headless session,
// so names are de-duplicated and bodies aligned exactly as the editor does.
// Re-importing an export of the same project gets fresh ids.
func mergeTables(ctx context.Context, cfg config.EditorConfig, existing []datatable.TableJSON, raws []datatable.RawTable) ([]datatable.TableJSON, error) {
	cfg.Autosave = false
	s, err := session.New(cfg, session.Widgets{}, nil, slog.Default())
	if err != nil {
		return nil, err
	}

	inputs := make([]datatable.TableInput, 0, len(existing)+len(raws))
	for _, t := range existing {
		inputs = append(inputs, datatable.RawFromJSON(t))
	}
	for _, raw := range raws {
		inputs = append(inputs, raw)
	}

	if err := s.Controller.SetTables(ctx, inputs); err != nil {
		return nil, err
	}
	return s.Controller.GetTableJSON(), nil
}

func (a *app) newExportCommand() *cobra.Command {
	var format, file string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the project's tables",
		Long: `Export the stored tables of the project as JSON or YAML. The output
can be imported again with "tablectl import".`,
		Example: `  tablectl export > tables.json
  tablectl export --format yaml -f tables.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format, FormatJSON, FormatYAML); err != nil {
				return err
			}
			ctx := cmd.Context()

			return a.withStore(ctx, func(s Snapshots) error {
				tables, err := s.Load(ctx, a.project)
				if err != nil {
					return err
				}

				w := out(cmd)
				if file != "" {
					f, err := os.Create(file)
					if err != nil {
						return fmt.Errorf("create %s: %w", file, err)
					}
					defer f.Close()
					w = f
				}
				return renderTables(w, tables, format)
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", FormatJSON, "Export format (json|yaml)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Write to file instead of stdout")

	return cmd
}

func (a *app) newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the project's tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return a.withStore(ctx, func(s Snapshots) error {
				tables, err := a.loadProject(ctx, s)
				if err != nil {
					return err
				}
				return renderTables(out(cmd), tables, a.output)
			})
		},
	}
}

func (a *app) newProjectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List stored projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return a.withStore(ctx, func(s Snapshots) error {
				projects, err := s.Projects(ctx)
				if err != nil {
					return err
				}
				return renderProjects(out(cmd), projects, a.output)
			})
		},
	}
}

func (a *app) newDeleteCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the project's stored tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete project %q without --yes", a.project)
			}
			ctx := cmd.Context()
			return a.withStore(ctx, func(s Snapshots) error {
				n, err := s.Delete(ctx, a.project)
				if err != nil {
					return err
				}
				if n == 0 {
					return fmt.Errorf("%s: %w", a.project, store.ErrProjectNotFound)
				}
				fmt.Fprintf(out(cmd), "Deleted %d table(s) from %q\n", n, a.project)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")

	return cmd
}
