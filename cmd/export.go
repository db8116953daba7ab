package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/nhigh-tools/deadline-cli/internal/model"
)

var (
	exportOut    string
	exportSheets []string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export event sheets to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		names := exportSheets
		if len(names) == 0 {
			names = append([]string{cfg.Pipeline.EventSheet}, model.Categories...)
		}

		header := []string{"タイトル", "要約", "締切日", "リンク", "カテゴリ"}

		f := xlsx.NewFile()
		exported := 0
		for _, name := range names {
			rows, err := env.Pipeline.ListAllRows(ctx, name)
			if err != nil {
				return eris.Wrapf(err, "read sheet %s", name)
			}
			if rows == nil {
				continue
			}

			ws, err := f.AddSheet(name)
			if err != nil {
				return eris.Wrapf(err, "add sheet %s", name)
			}
			hr := ws.AddRow()
			for _, h := range header {
				hr.AddCell().SetString(h)
			}
			for _, row := range rows {
				r := ws.AddRow()
				for _, cell := range row {
					r.AddCell().SetString(cell)
				}
			}
			exported++
		}

		if exported == 0 {
			return eris.New("no sheets to export")
		}
		if err := f.Save(exportOut); err != nil {
			return eris.Wrapf(err, "save %s", exportOut)
		}

		zap.L().Info("export complete", zap.String("file", exportOut), zap.Int("sheets", exported))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "events.xlsx", "output workbook path")
	exportCmd.Flags().StringSliceVar(&exportSheets, "sheet", nil, "sheet to export (repeatable; default all)")
	rootCmd.AddCommand(exportCmd)
}
