package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/warp/variable-pay/api"
	"github.com/warp/variable-pay/compensation"
	"github.com/warp/variable-pay/generic"
	"github.com/warp/variable-pay/tasklog"
)

var (
	tasksFile      string
	tasksOperator  string
	tasksDate      string
	tasksCharset   string
	tasksDelimiter string
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Count the valid tasks of an operator in a management export",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := generic.ParseDay(strings.TrimSpace(tasksDate))
		if err != nil {
			return err
		}
		loc, err := cfg.Compensation.Location()
		if err != nil {
			return err
		}

		opts := tasklog.Options{Charset: tasksCharset}
		if tasksDelimiter != "" {
			opts.Delimiter = []rune(tasksDelimiter)[0]
		}
		result, err := tasklog.ReadFile(tasksFile, opts)
		if err != nil {
			return err
		}

		operator := generic.Canonical(tasksOperator)
		rows := result.Rows()
		resp := api.TaskValidationDTO{
			Operator: operator,
			Date:     day.String(),
			Rows:     len(rows),
			Count:    api.NewTaskCountDTO(compensation.CountValidTasks(rows, operator, day, loc)),
			Skipped:  []api.SkippedRowDTO{},
		}
		for _, s := range result.Skipped() {
			resp.Skipped = append(resp.Skipped, api.SkippedRowDTO{Line: s.Line, Error: s.Err.Error()})
		}
		return printJSON(cmd, resp)
	},
}

func init() {
	tasksCmd.Flags().StringVar(&tasksFile, "file", "", "export file, .csv or .xlsx (required)")
	tasksCmd.Flags().StringVar(&tasksOperator, "operator", "", "operator login as written in the export (required)")
	tasksCmd.Flags().StringVar(&tasksDate, "date", "", "work day, YYYY-MM-DD (required)")
	tasksCmd.Flags().StringVar(&tasksCharset, "charset", "", "CSV charset label, e.g. windows-1252 (default auto)")
	tasksCmd.Flags().StringVar(&tasksDelimiter, "delimiter", "", "CSV delimiter (default ;)")
	_ = tasksCmd.MarkFlagRequired("file")
	_ = tasksCmd.MarkFlagRequired("operator")
	_ = tasksCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(tasksCmd)
}
