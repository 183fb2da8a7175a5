package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"record-linkage/internal/fileio"
	"record-linkage/internal/linkage/labeler"
	"record-linkage/internal/linkage/model"
	"record-linkage/internal/linkage/service"
)

// linkFlags: общие флаги link и link-db; пустые значения берутся из конфига.
type linkFlags struct {
	mode       string
	threshold  float64
	output     string
	singleLine bool
	readOnly   bool
}

func (f *linkFlags) register(cmd *cobra.Command, threshold float64) {
	cmd.Flags().StringVar(&f.mode, "mode", "", "one-to-one, many-to-one or dedupe (default LINK_MODE)")
	cmd.Flags().Float64Var(&f.threshold, "threshold", threshold, "minimum match probability")
	cmd.Flags().StringVarP(&f.output, "output", "o", "data_matching_output.csv", "output file (.csv or .xlsx, - for stdout)")
	cmd.Flags().BoolVar(&f.singleLine, "single-line", false, "one line per cluster with the sources side by side")
	cmd.Flags().BoolVar(&f.readOnly, "no-training", false, "fail instead of training when no settings file exists")
}

func (f *linkFlags) linker(cmd *cobra.Command, a *app) (*service.Linker, error) {
	lc := a.cfg.Linker()
	if f.mode != "" {
		lc.Mode = model.Mode(strings.ToLower(f.mode))
	}
	if cmd.Flags().Changed("threshold") || cmd.Name() == "link-db" {
		lc.Threshold = f.threshold
	}
	lc.Training.ReadOnly = f.readOnly
	console := labeler.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout())
	return service.New(lc, a.fields, console, a.logger)
}

// dedupeSheets: в dedupe все записи сливаются в одну коллекцию источника A.
func (f *linkFlags) dedupeSheets(a *app, sheets []fileio.Sheet) {
	mode := f.mode
	if mode == "" {
		mode = a.cfg.Mode
	}
	if model.Mode(strings.ToLower(mode)) != model.ModeDedupe {
		return
	}
	for i := range sheets {
		sheets[i].Source = model.SourceA
	}
}

// write кладёт результат в файл: формат по расширению.
func (f *linkFlags) write(cmd *cobra.Command, a *app, sheets []fileio.Sheet, res *service.Result) error {
	rows := fileio.Rows(sheets, res.Assignments)
	if f.singleLine {
		rows = fileio.ClusterRows(sheets, res.Assignments, a.fields[0].SourceColumn())
	}

	if f.output == "-" {
		if err := writeRows(cmd.OutOrStdout(), f.output, rows); err != nil {
			return err
		}
	} else if err := writeFile(f.output, rows); err != nil {
		return err
	}
	a.logger.Info().Str("output", f.output).Int("rows", len(rows)-1).Msg("output written")
	return nil
}

// writeFile закрывает файл явно: ошибка на Close значит, что данные не записаны.
func writeFile(path string, rows [][]string) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create output %s", path)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close output %s", path)
		}
	}()
	return writeRows(out, path, rows)
}

func writeRows(w io.Writer, path string, rows [][]string) error {
	var err error
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		err = fileio.WriteXLSXRows(w, rows)
	} else {
		err = fileio.WriteCSVRows(w, rows)
	}
	return errors.Wrapf(err, "write output %s", path)
}

func newLinkCmd(a *app) *cobra.Command {
	var (
		lf         linkFlags
		pathA      string
		pathB      string
		headerRowA int
		headerRowB int
	)
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link a ledger file (A) with a supplier master file (B)",
		Long: "Reads both files (CSV, XLS or XLSX), trains a model interactively on the\n" +
			"console when no settings file exists, and writes every row with its cluster id.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			linker, err := lf.linker(cmd, a)
			if err != nil {
				return err
			}
			ca, sheetA, err := readFile(pathA, headerRowA, model.SourceA, a.fields)
			if err != nil {
				return err
			}
			var (
				cb     *model.Collection
				sheets []fileio.Sheet
			)
			if pathB != "" {
				var sheetB fileio.Sheet
				if cb, sheetB, err = readFile(pathB, headerRowB, model.SourceB, a.fields); err != nil {
					return err
				}
				sheets = append(sheets, sheetB)
			}
			sheets = append(sheets, sheetA)
			lf.dedupeSheets(a, sheets)

			res, err := linker.Run(cmd.Context(), ca, cb)
			if err != nil {
				return err
			}
			return lf.write(cmd, a, sheets, res)
		},
	}
	lf.register(cmd, 0)
	cmd.Flags().StringVar(&pathA, "a", "", "ledger file with unmatched rows (required)")
	cmd.Flags().StringVar(&pathB, "b", "", "supplier master file (required unless --mode dedupe)")
	cmd.Flags().IntVar(&headerRowA, "a-header-row", 1, "header row of file A (1-based)")
	cmd.Flags().IntVar(&headerRowB, "b-header-row", 1, "header row of file B (1-based)")
	_ = cmd.MarkFlagRequired("a")
	return cmd
}

func readFile(path string, headerRow int, src model.Source, fields []model.FieldSpec) (*model.Collection, fileio.Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fileio.Sheet{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	t, err := fileio.ReadTable(f, path, headerRow)
	if err != nil {
		return nil, fileio.Sheet{}, err
	}
	c, err := fileio.ToCollection(t, src, fields)
	if err != nil {
		return nil, fileio.Sheet{}, err
	}
	return c, fileio.Sheet{Table: t, Source: src}, nil
}
