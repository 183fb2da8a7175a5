package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"record-linkage/internal/fileio"
	"record-linkage/internal/linkage/model"
	"record-linkage/internal/source/postgres"
)

func newLinkDBCmd(a *app) *cobra.Command {
	var (
		lf     linkFlags
		prefix string
		qa     = postgres.Query{Table: "blue.usm3", ID: "id", Column: "sss", Null: []string{"sid"}}
		qb     = postgres.Query{Table: "blue.supplier", ID: "rid", Column: "supplier_name", NotNull: []string{"supplier_id", "rid"}}
	)
	cmd := &cobra.Command{
		Use:   "link-db",
		Short: "Link unmatched ledger rows with the supplier table in PostgreSQL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(a.fields) != 1 {
				return model.NewError(model.ErrConfiguration, "config", a.cfg.FieldsFile,
					fmt.Errorf("link-db compares one column, %d fields configured", len(a.fields)))
			}
			// колонка из YAML относится к файлам; в БД берём алиас поля
			field := a.fields[0]
			field.Column = ""
			fields := []model.FieldSpec{field}

			linker, err := lf.linker(cmd, a)
			if err != nil {
				return err
			}
			src, err := postgres.Open(cmd.Context(), a.cfg.DB.DSN(), a.logger)
			if err != nil {
				return err
			}
			defer src.Close()

			qa.Field, qb.Field = field.Name, field.Name
			qa.Prefix, qb.Prefix = prefix, prefix

			var sheets []fileio.Sheet
			var cols [2]*model.Collection
			for i, q := range []postgres.Query{qb, qa} {
				t, err := src.Load(cmd.Context(), q)
				if err != nil {
					return err
				}
				s := fileio.Sheet{Table: t, Source: model.SourceB}
				if i == 1 {
					s.Source = model.SourceA
				}
				if cols[i], err = fileio.ToCollection(t, s.Source, fields); err != nil {
					return err
				}
				sheets = append(sheets, s)
			}

			lf.dedupeSheets(a, sheets)
			res, err := linker.Run(cmd.Context(), cols[1], cols[0])
			if err != nil {
				return err
			}
			return lf.write(cmd, a, sheets, res)
		},
	}
	lf.register(cmd, 0.5)
	f := cmd.Flags()
	f.StringVar(&prefix, "prefix", "", "only values starting with this prefix, e.g. AB")
	f.StringVar(&qa.Table, "a-table", qa.Table, "ledger table")
	f.StringVar(&qa.ID, "a-id", qa.ID, "ledger id column")
	f.StringVar(&qa.Column, "a-column", qa.Column, "ledger supplier name column")
	f.StringSliceVar(&qa.Null, "a-null", qa.Null, "ledger columns that must be NULL (unmatched rows)")
	f.StringVar(&qb.Table, "b-table", qb.Table, "supplier table")
	f.StringVar(&qb.ID, "b-id", qb.ID, "supplier id column")
	f.StringVar(&qb.Column, "b-column", qb.Column, "supplier name column")
	f.StringSliceVar(&qb.NotNull, "b-not-null", qb.NotNull, "supplier columns that must be NOT NULL")
	return cmd
}
